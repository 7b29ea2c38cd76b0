package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "crux/internal/modules/session/dto"
	"crux/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	OverallStats(ctx context.Context) (sessiondto.OverallStatsOutput, error)
	ColorStats(ctx context.Context, sessionID string) (sessiondto.ColorStatsOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type LoadedMsg struct {
	Overall sessiondto.OverallStatsOutput
	Colors  sessiondto.ColorStatsOutput
	Err     error
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    Port
	view    viewport.Model
	spinner spinner.Model
	overall sessiondto.OverallStatsOutput
	colors  sessiondto.ColorStatsOutput
	loading bool
	width   int
	height  int
}

func New(port Port) Model {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Mauve)

	return Model{
		port:    port,
		view:    vp,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick)
}

// Reload refetches the aggregates in place.
func (m Model) Reload() tea.Cmd {
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = m.width - 4
		m.view.Height = m.height - 4

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.view.SetContent(theme.Hot.Render("stats load failed: " + msg.Err.Error()))
			return m, nil
		}
		m.overall = msg.Overall
		m.colors = msg.Colors
		m.view.SetContent(m.renderStats())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if msg.String() == "r" {
			cmds = append(cmds, m.loadCmd())
		}
	}

	if !m.loading {
		var vCmd tea.Cmd
		m.view, vCmd = m.view.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Crunching numbers…")
	}

	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(m.width - 2).
		Height(m.height - 2).
		Render(m.view.View())

	return pane
}

// Filtering is always false: the stats tab has no search filter. Present so
// the app model can treat all tabs uniformly.
func (m Model) Filtering() bool { return false }

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) renderStats() string {
	o := m.overall

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Stats") + "\n\n")
	sb.WriteString(fmt.Sprintf("%s%d\n", theme.Muted.Render("sessions:      "), o.TotalSessions))
	sb.WriteString(fmt.Sprintf("%s%d\n", theme.Muted.Render("attempts:      "), o.TotalAttempts))
	sb.WriteString(fmt.Sprintf("%s%d\n", theme.Muted.Render("sent:          "), o.TotalSuccess))
	sb.WriteString(theme.Muted.Render("success rate:  ") + theme.Hot.Render(o.OverallSuccessRate.String()) + "\n")

	if len(m.colors.Colors) > 0 {
		sb.WriteString("\n" + theme.Title.Render("By color") + "\n\n")
		for _, color := range sortedColors(m.colors.Colors) {
			count := m.colors.Colors[color]
			sb.WriteString(fmt.Sprintf(" %s %-8s %s  %d/%d\n",
				theme.Swatch(color), color, bar(count.Success, count.Total), count.Success, count.Total))
		}
	}

	sb.WriteString("\n" + theme.Muted.Render("r: refresh"))
	return sb.String()
}

// bar renders a 16-cell success bar. Zero attempts render as all empty.
func bar(success, total int) string {
	const cells = 16
	filled := 0
	if total > 0 {
		filled = success * cells / total
	}
	return theme.Hot.Render(strings.Repeat("█", filled)) +
		theme.Muted.Render(strings.Repeat("░", cells-filled))
}

func sortedColors(colors map[string]sessiondto.ColorCount) []string {
	keys := make([]string, 0, len(colors))
	for color := range colors {
		keys = append(keys, color)
	}
	sort.Strings(keys)
	return keys
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		overall, err := m.port.OverallStats(context.Background())
		if err != nil {
			return LoadedMsg{Err: err}
		}
		colors, err := m.port.ColorStats(context.Background(), "")
		return LoadedMsg{Overall: overall, Colors: colors, Err: err}
	}
}
