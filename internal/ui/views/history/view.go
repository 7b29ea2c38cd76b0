package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "crux/internal/modules/session/dto"
	"crux/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	History(ctx context.Context) ([]sessiondto.SessionRecord, error)
	Show(ctx context.Context, sessionID string) (sessiondto.SessionRecord, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type SessionsLoadedMsg struct {
	Sessions []sessiondto.SessionRecord
	Err      error
}

type DetailLoadedMsg struct {
	Session sessiondto.SessionRecord
	Err     error
}

// ─── list item ───────────────────────────────────────────────────────────────

type sessionItem struct {
	session sessiondto.SessionRecord
}

func (i sessionItem) Title() string {
	return i.session.Date.Format("2006-01-02") + "  " + i.session.Gym
}

func (i sessionItem) Description() string {
	sends := 0
	for _, attempt := range i.session.Attempts {
		if attempt.Success {
			sends++
		}
	}
	return fmt.Sprintf("%d attempts, %d sent", len(i.session.Attempts), sends)
}

func (i sessionItem) FilterValue() string {
	return i.session.Gym + " " + i.session.Date.Format("2006-01-02") + " " + i.session.ID
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    Port
	list    list.Model
	detail  sessiondto.SessionRecord
	preview viewport.Model
	spinner spinner.Model
	loading bool
	width   int
	height  int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Sapphire).BorderForeground(theme.Sapphire)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Lavender).BorderForeground(theme.Sapphire)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "History"
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
	sp.Style = lipgloss.NewStyle().Foreground(theme.Sapphire)

	return Model{
		port:    port,
		list:    l,
		preview: vp,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSessionsCmd(), m.spinner.Tick)
}

// Reload refetches the session list in place.
func (m Model) Reload() tea.Cmd {
	return m.loadSessionsCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case SessionsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "History — " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.Sessions))
		for i, s := range msg.Sessions {
			items[i] = sessionItem{session: s}
		}
		cmds = append(cmds, m.list.SetItems(items))
		if len(msg.Sessions) > 0 {
			cmds = append(cmds, m.loadDetailCmd(msg.Sessions[0].ID))
		} else {
			m.detail = sessiondto.SessionRecord{}
			m.preview.SetContent(m.renderDetail())
		}

	case DetailLoadedMsg:
		if msg.Err == nil {
			m.detail = msg.Session
			m.preview.SetContent(m.renderDetail())
		}

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
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				cmds = append(cmds, m.loadDetailCmd(item.session.ID))
			}
		}

		var vCmd tea.Cmd
		m.preview, vCmd = m.preview.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading history…")
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
		Render(m.preview.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.preview.Width = detailW - 4
	m.preview.Height = m.height - 4
}

func (m Model) renderDetail() string {
	s := m.detail
	if s.ID == "" {
		return theme.Muted.Render("No finished sessions yet.\n\nFinish an open session and it lands here.")
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render(s.Gym+"  "+s.Date.Format("2006-01-02 15:04")) + "\n")
	sb.WriteString(theme.Muted.Render("id: "+s.ID) + "\n\n")

	if len(s.Attempts) == 0 {
		sb.WriteString(theme.Muted.Render("no attempts logged"))
		return sb.String()
	}

	for _, attempt := range s.Attempts {
		verb := theme.Muted.Render("fell")
		if attempt.Success {
			verb = theme.Hot.Render("sent")
		}
		label := "unrecorded route"
		swatch := theme.Swatch("")
		if attempt.Route != nil {
			label = attempt.Route.Name
			if label == "" {
				label = "unnamed route"
			}
			swatch = theme.Swatch(attempt.Route.Color)
		}
		sb.WriteString(fmt.Sprintf(" %s  %s %s  %s", swatch, attempt.Timestamp.Format("15:04"), verb, label))
		if attempt.Notes != "" {
			sb.WriteString("  " + theme.Muted.Render(attempt.Notes))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) loadSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.port.History(context.Background())
		return SessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

func (m Model) loadDetailCmd(id string) tea.Cmd {
	return func() tea.Msg {
		session, err := m.port.Show(context.Background(), id)
		return DetailLoadedMsg{Session: session, Err: err}
	}
}
