package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	backupdto "crux/internal/modules/backup/dto"
	"crux/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	Status(ctx context.Context) (backupdto.DaemonStatusOutput, error)
	Push(ctx context.Context) (backupdto.PushOutput, error)
	Pull(ctx context.Context) (backupdto.PullOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type StatusMsg struct {
	Status backupdto.DaemonStatusOutput
	Err    error
}

type PushedMsg struct {
	Out backupdto.PushOutput
	Err error
}

type PulledMsg struct {
	Out backupdto.PullOutput
	Err error
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port       Port
	view       viewport.Model
	spinner    spinner.Model
	status     backupdto.DaemonStatusOutput
	statusLine string
	loading    bool
	busy       bool
	width      int
	height     int
}

func New(port Port) Model {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Peach)

	return Model{
		port:    port,
		view:    vp,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadStatusCmd(), m.spinner.Tick)
}

// Reload refetches the daemon status in place.
func (m Model) Reload() tea.Cmd {
	return m.loadStatusCmd()
}

// PushNow triggers a snapshot push, as the P key would.
func (m *Model) PushNow() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	return tea.Batch(m.pushCmd(), m.spinner.Tick)
}

// PullNow triggers a snapshot pull, as the L key would.
func (m *Model) PullNow() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	return tea.Batch(m.pullCmd(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = m.width - 4
		m.view.Height = m.height - 4

	case StatusMsg:
		m.loading = false
		if msg.Err != nil {
			m.statusLine = "status failed: " + msg.Err.Error()
		} else {
			m.status = msg.Status
		}
		m.view.SetContent(m.renderStatus())

	case PushedMsg:
		m.busy = false
		if msg.Err != nil {
			m.statusLine = "push failed: " + msg.Err.Error()
		} else {
			m.statusLine = fmt.Sprintf("pushed %s (%d sessions, %d attempts)", msg.Out.Name, msg.Out.Sessions, msg.Out.Attempts)
		}
		cmds = append(cmds, m.loadStatusCmd())

	case PulledMsg:
		m.busy = false
		if msg.Err != nil {
			m.statusLine = "pull failed: " + msg.Err.Error()
		} else {
			m.statusLine = fmt.Sprintf("pulled %s (%d sessions, %d attempts)", msg.Out.Name, msg.Out.Sessions, msg.Out.Attempts)
		}
		cmds = append(cmds, m.loadStatusCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if m.busy {
			break
		}
		switch msg.String() {
		case "P":
			m.busy = true
			cmds = append(cmds, m.pushCmd(), m.spinner.Tick)
		case "L":
			m.busy = true
			cmds = append(cmds, m.pullCmd(), m.spinner.Tick)
		case "r":
			cmds = append(cmds, m.loadStatusCmd())
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
	if m.loading || m.busy {
		label := " Loading backup status…"
		if m.busy {
			label = " Talking to the daemon…"
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+label)
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(m.width - 2).
		Height(m.height - 2).
		Render(m.view.View())
}

// Filtering is always false: the backup tab has no search filter.
func (m Model) Filtering() bool { return false }

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) renderStatus() string {
	s := m.status

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Backup") + "\n\n")

	state := theme.Muted.Render("stopped")
	if s.Running {
		state = theme.Hot.Render("running")
	}
	sb.WriteString(theme.Muted.Render("daemon:     ") + state + "\n")
	if s.Running {
		sb.WriteString(fmt.Sprintf("%s%d\n", theme.Muted.Render("pid:        "), s.PID))
		if !s.StartedAt.IsZero() {
			sb.WriteString(theme.Muted.Render("up since:   ") + s.StartedAt.Format("2006-01-02 15:04:05") + "\n")
		}
		sb.WriteString(theme.Muted.Render("socket:     ") + s.SocketPath + "\n")
	}
	sb.WriteString(fmt.Sprintf("%s%d\n", theme.Muted.Render("snapshots:  "), s.Snapshots))
	if !s.LatestAt.IsZero() {
		age := time.Since(s.LatestAt).Round(time.Second)
		sb.WriteString(theme.Muted.Render("latest:     ") + fmt.Sprintf("%s (%s ago)", s.LatestAt.Format("2006-01-02 15:04:05"), age) + "\n")
	}
	if s.LogPath != "" {
		sb.WriteString(theme.Muted.Render("log:        ") + s.LogPath + "\n")
	}
	if !s.Running {
		sb.WriteString("\n" + theme.Muted.Render("Start it with crux backup daemon start.") + "\n")
	}

	if m.statusLine != "" {
		sb.WriteString("\n" + theme.Hot.Render(m.statusLine) + "\n")
	}

	sb.WriteString("\n" + theme.Muted.Render("P: push snapshot  L: pull latest  r: refresh"))
	return sb.String()
}

func (m Model) loadStatusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.port.Status(context.Background())
		return StatusMsg{Status: status, Err: err}
	}
}

func (m Model) pushCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.port.Push(context.Background())
		return PushedMsg{Out: out, Err: err}
	}
}

func (m Model) pullCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.port.Pull(context.Background())
		return PulledMsg{Out: out, Err: err}
	}
}
