package logbook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "crux/internal/modules/session/dto"
	apperrors "crux/internal/platform/errors"
	"crux/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	Current(ctx context.Context) (sessiondto.SessionRecord, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

// LoadedMsg carries the open session, or Empty when none is active.
type LoadedMsg struct {
	Session sessiondto.SessionRecord
	Empty   bool
	Err     error
}

// ─── list item ───────────────────────────────────────────────────────────────

type attemptItem struct {
	attempt sessiondto.AttemptRecord
}

func (i attemptItem) Title() string {
	verb := "fell"
	if i.attempt.Success {
		verb = "sent"
	}
	return verb + "  " + routeLabel(i.attempt)
}

func (i attemptItem) Description() string {
	desc := i.attempt.Timestamp.Format("15:04")
	if i.attempt.Notes != "" {
		desc += "  " + i.attempt.Notes
	}
	return desc
}

func (i attemptItem) FilterValue() string {
	return routeLabel(i.attempt) + " " + i.attempt.Notes
}

func routeLabel(attempt sessiondto.AttemptRecord) string {
	if attempt.Route == nil {
		return "unrecorded route"
	}
	name := attempt.Route.Name
	if name == "" {
		name = "unnamed route"
	}
	if attempt.Route.Color == "" {
		return name
	}
	return name + " (" + attempt.Route.Color + ")"
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port       Port
	list       list.Model
	detail     viewport.Model
	spinner    spinner.Model
	session    sessiondto.SessionRecord
	hasSession bool
	loading    bool
	width      int
	height     int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Logbook"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		list:    l,
		detail:  vp,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick)
}

// Reload refetches the open session without flipping into the loading state,
// so filesystem-triggered refreshes do not flicker.
func (m Model) Reload() tea.Cmd {
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Logbook — " + msg.Err.Error()
			return m, nil
		}
		if msg.Empty {
			m.hasSession = false
			m.session = sessiondto.SessionRecord{}
			m.list.Title = "Logbook"
			cmds = append(cmds, m.list.SetItems(nil))
		} else {
			m.hasSession = true
			m.session = msg.Session
			m.list.Title = "Logbook — " + msg.Session.Gym
			items := make([]list.Item, len(msg.Session.Attempts))
			for i, attempt := range msg.Session.Attempts {
				items[i] = attemptItem{attempt: attempt}
			}
			cmds = append(cmds, m.list.SetItems(items))
		}
		m.detail.SetContent(m.renderDetail())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			m.detail.SetContent(m.renderDetail())
		}

		var vCmd tea.Cmd
		m.detail, vCmd = m.detail.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading logbook…")
	}

	listW := m.width * 4 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.detail.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// Filtering reports whether the list's search filter is currently active.
// The app model checks this to avoid consuming global keys during a search.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.detail.Width = detailW - 4
	m.detail.Height = m.height - 4
}

func (m Model) renderDetail() string {
	if !m.hasSession {
		return theme.Muted.Render("No open session.\n\nUse :session:start [gym] to begin logging attempts,\nor crux session start from a shell.")
	}

	s := m.session
	sends := 0
	for _, attempt := range s.Attempts {
		if attempt.Success {
			sends++
		}
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render(s.Gym) + "\n\n")
	sb.WriteString(theme.Muted.Render("id:       ") + s.ID + "\n")
	sb.WriteString(theme.Muted.Render("date:     ") + s.Date.Format("2006-01-02 15:04") + "\n")
	sb.WriteString(fmt.Sprintf("%s%d attempts, %d sent\n", theme.Muted.Render("logged:   "), len(s.Attempts), sends))

	if item, ok := m.list.SelectedItem().(attemptItem); ok {
		a := item.attempt
		sb.WriteString("\n" + theme.Title.Render("Selected attempt") + "\n")
		sb.WriteString(theme.Muted.Render("id:       ") + a.ID + "\n")
		sb.WriteString(theme.Muted.Render("time:     ") + a.Timestamp.Format("15:04:05") + "\n")
		if a.Route != nil {
			sb.WriteString(theme.Muted.Render("route:    ") + theme.Swatch(a.Route.Color) + " " + routeLabel(a) + "\n")
			if a.Route.Gym != "" {
				sb.WriteString(theme.Muted.Render("wall:     ") + a.Route.Gym + "\n")
			}
		}
		if a.Notes != "" {
			sb.WriteString(theme.Muted.Render("notes:    ") + a.Notes + "\n")
		}
	}

	sb.WriteString("\n" + theme.Muted.Render(":session:finish to close  :attempt:add to log"))
	return sb.String()
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		session, err := m.port.Current(context.Background())
		if errors.Is(err, apperrors.ErrNoActiveSession) {
			return LoadedMsg{Empty: true}
		}
		return LoadedMsg{Session: session, Err: err}
	}
}
