package theme

import "github.com/charmbracelet/lipgloss"

var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Mauve    = lipgloss.Color("#cba6f7")

	App = lipgloss.NewStyle().
		Background(Base).
		Foreground(Text).
		Padding(1, 2)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(1)

	PaneActive = Pane.BorderForeground(Lavender)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
)

// circuit maps gym hold colors onto the palette. Black and white are shifted
// to shades that stay readable on the dark background.
var circuit = map[string]lipgloss.Color{
	"green":  Green,
	"yellow": Yellow,
	"orange": Peach,
	"red":    Red,
	"purple": Mauve,
	"black":  Surface1,
	"white":  Text,
}

// Swatch returns a colored marker for a route circuit color, or a muted one
// for colors outside the palette.
func Swatch(color string) string {
	c, ok := circuit[color]
	if !ok {
		return Muted.Render("●")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}
