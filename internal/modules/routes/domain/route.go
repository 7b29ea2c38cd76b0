package domain

import (
	"fmt"
	"strings"
	"time"
)

// Color is the hold color a gym uses to mark a route's circuit.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorBlack  Color = "black"
	ColorWhite  Color = "white"
)

// Colors returns the supported circuit colors in difficulty order.
func Colors() []Color {
	return []Color{ColorGreen, ColorYellow, ColorOrange, ColorRed, ColorPurple, ColorBlack, ColorWhite}
}

func (c Color) Validate() error {
	switch c {
	case ColorGreen, ColorYellow, ColorOrange, ColorRed, ColorPurple, ColorBlack, ColorWhite:
		return nil
	default:
		return fmt.Errorf("unsupported route color %q", string(c))
	}
}

// Route is a saved problem with its topo attachment. Name, gym, and notes are
// optional; the color and the attachment are what identify a problem on the
// wall. Attempts copy the descriptive fields at log time, so editing or
// deleting a route never rewrites history.
type Route struct {
	ID         string
	Name       string
	Color      Color
	Gym        string
	Notes      string
	Image      []byte
	Attachment AttachmentInfo
	CreatedAt  time.Time
}

// AttachmentInfo describes the stored blob: a photo of the route, or a
// guidebook/topo page as PDF.
type AttachmentInfo struct {
	MIME   string
	Size   int
	Width  int
	Height int
	Pages  int
}

func (a AttachmentInfo) Describe() string {
	switch {
	case a.Pages > 0:
		return fmt.Sprintf("pdf, %d pages", a.Pages)
	case a.Width > 0 && a.Height > 0:
		return fmt.Sprintf("%s, %dx%d", a.MIME, a.Width, a.Height)
	case a.MIME != "":
		return a.MIME
	default:
		return "attachment"
	}
}

func (r Route) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if err := r.Color.Validate(); err != nil {
		return err
	}
	return nil
}

// Label is the human form used in lists and journal lines.
func (r Route) Label() string {
	name := r.Name
	if name == "" {
		name = "unnamed route"
	}
	if r.Gym == "" {
		return fmt.Sprintf("%s (%s)", name, r.Color)
	}
	return fmt.Sprintf("%s (%s, %s)", name, r.Color, r.Gym)
}

// Patch carries partial edits. Nil fields keep the stored value; a non-nil
// Image replaces the attachment.
type Patch struct {
	Name  *string
	Color *Color
	Gym   *string
	Notes *string
	Image []byte
}

func (p Patch) Apply(route *Route) {
	if p.Name != nil {
		route.Name = *p.Name
	}
	if p.Color != nil {
		route.Color = *p.Color
	}
	if p.Gym != nil {
		route.Gym = *p.Gym
	}
	if p.Notes != nil {
		route.Notes = *p.Notes
	}
	if p.Image != nil {
		route.Image = p.Image
	}
}
