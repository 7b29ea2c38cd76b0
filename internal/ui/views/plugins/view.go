package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	plugindto "crux/internal/modules/plugin/dto"
	"crux/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

// Port is the minimal interface this view needs from the plugin use-case.
type Port interface {
	List(ctx context.Context) ([]plugindto.PluginInfo, error)
	Doctor(ctx context.Context) ([]plugindto.DoctorResult, error)
	ListCommands(ctx context.Context, pluginName string) ([]plugindto.CommandInfo, error)
	Execute(ctx context.Context, input plugindto.ExecuteInput) (plugindto.ExecuteOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

// ManifestsLoadedMsg is sent when the plugin manifests finish loading.
type ManifestsLoadedMsg struct {
	Plugins []plugindto.PluginInfo
	Err     error
}

// DoctorMsg is sent when a doctor run finishes.
type DoctorMsg struct {
	Results []plugindto.DoctorResult
	Err     error
}

// CommandsLoadedMsg is sent when a plugin's commands finish loading.
type CommandsLoadedMsg struct {
	PluginName string
	Commands   []plugindto.CommandInfo
	Err        error
}

// ExecDoneMsg is sent when a plugin command finishes executing.
type ExecDoneMsg struct {
	Out plugindto.ExecuteOutput
	Err error
}

// ─── list items ──────────────────────────────────────────────────────────────

type manifestItem struct{ info plugindto.PluginInfo }

func (i manifestItem) Title() string {
	state := "disabled"
	if i.info.Enabled {
		state = "enabled"
	}
	return i.info.Name + "@" + i.info.Version + " (" + state + ")"
}

func (i manifestItem) Description() string {
	return strings.Join(i.info.Capabilities, ", ")
}

func (i manifestItem) FilterValue() string { return i.info.Name }

type commandItem struct{ cmd plugindto.CommandInfo }

func (i commandItem) Title() string       { return i.cmd.Title }
func (i commandItem) Description() string { return "[" + i.cmd.Kind + "] " + i.cmd.Description }
func (i commandItem) FilterValue() string { return i.cmd.ID + " " + i.cmd.Title }

// ─── pane ────────────────────────────────────────────────────────────────────

type pane int

const (
	paneManifests pane = iota // plugin manifest list
	paneCommands              // commands of the selected plugin
	paneOutput                // exec result or doctor report
)

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the self-contained Bubble Tea model for the Plugins tab.
type Model struct {
	port         Port
	pane         pane
	manifestList list.Model
	cmdList      list.Model
	output       viewport.Model
	spinner      spinner.Model
	activeName   string
	lastOut      plugindto.ExecuteOutput
	loading      bool
	// context wired from the parent model
	homePath  string
	sessionID string
	routeID   string
	width     int
	height    int
}

// New creates a Plugins Model. homePath is used for plugin execution context.
func New(port Port, homePath string) Model {
	manifestDelegate := list.NewDefaultDelegate()
	manifestDelegate.Styles.SelectedTitle = manifestDelegate.Styles.SelectedTitle.
		Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	manifestDelegate.Styles.SelectedDesc = manifestDelegate.Styles.SelectedDesc.
		Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	ml := list.New(nil, manifestDelegate, 0, 0)
	ml.Title = "Plugins"
	ml.Styles.Title = theme.Title
	ml.SetShowStatusBar(true)
	ml.SetFilteringEnabled(true)
	ml.SetShowHelp(false)

	cmdDelegate := list.NewDefaultDelegate()
	cmdDelegate.Styles.SelectedTitle = cmdDelegate.Styles.SelectedTitle.
		Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	cmdDelegate.Styles.SelectedDesc = cmdDelegate.Styles.SelectedDesc.
		Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	cl := list.New(nil, cmdDelegate, 0, 0)
	cl.Title = "Commands"
	cl.Styles.Title = theme.Title
	cl.SetShowStatusBar(true)
	cl.SetFilteringEnabled(true)
	cl.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:         port,
		pane:         paneManifests,
		manifestList: ml,
		cmdList:      cl,
		output:       vp,
		spinner:      sp,
		homePath:     homePath,
		loading:      port != nil,
	}
}

// SetContext updates the plugin execution context with the active session and
// the currently-selected route. Called by the parent model when those change.
func (m *Model) SetContext(sessionID, routeID string) {
	m.sessionID = sessionID
	m.routeID = routeID
}

// Filtering reports whether the visible list's search filter is active.
func (m Model) Filtering() bool {
	switch m.pane {
	case paneManifests:
		return m.manifestList.FilterState() == list.Filtering
	case paneCommands:
		return m.cmdList.FilterState() == list.Filtering
	}
	return false
}

// ExecCommand triggers an execution of the named command without going through
// the interactive pane flow — used by the command palette.
func (m *Model) ExecCommand(pluginName, commandID, inputJSON string) tea.Cmd {
	m.loading = true
	return tea.Batch(m.execNamedCmd(pluginName, commandID, inputJSON), m.spinner.Tick)
}

// RunDoctor triggers a doctor pass — used by the command palette.
func (m *Model) RunDoctor() tea.Cmd {
	m.loading = true
	return tea.Batch(m.doctorCmd(), m.spinner.Tick)
}

func (m Model) Init() tea.Cmd {
	if m.port == nil {
		return nil
	}
	return tea.Batch(m.loadManifestsCmd(), m.spinner.Tick)
}

// Reload refetches the manifest list in place.
func (m Model) Reload() tea.Cmd {
	if m.port == nil {
		return nil
	}
	return m.loadManifestsCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case ManifestsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.manifestList.Title = "Plugins — " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.Plugins))
		for i, p := range msg.Plugins {
			items[i] = manifestItem{info: p}
		}
		cmds = append(cmds, m.manifestList.SetItems(items))

	case DoctorMsg:
		m.loading = false
		if msg.Err != nil {
			m.output.SetContent(theme.Hot.Render("Doctor failed: " + msg.Err.Error()))
		} else {
			m.output.SetContent(renderDoctor(msg.Results))
		}
		m.output.GotoTop()
		m.pane = paneOutput

	case CommandsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.output.SetContent(theme.Hot.Render("Error loading commands: " + msg.Err.Error()))
			m.pane = paneOutput
			return m, nil
		}
		m.activeName = msg.PluginName
		m.cmdList.Title = "Commands — " + msg.PluginName
		items := make([]list.Item, len(msg.Commands))
		for i, c := range msg.Commands {
			items[i] = commandItem{cmd: c}
		}
		cmds = append(cmds, m.cmdList.SetItems(items))
		m.pane = paneCommands

	case ExecDoneMsg:
		m.loading = false
		if msg.Err != nil {
			m.output.SetContent(theme.Hot.Render("Error: " + msg.Err.Error()))
		} else {
			m.lastOut = msg.Out
			m.output.SetContent(m.renderOutput())
		}
		m.output.GotoTop()
		m.pane = paneOutput

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if m.Filtering() {
			break
		}
		switch m.pane {
		case paneManifests:
			switch msg.String() {
			case "enter":
				if item, ok := m.manifestList.SelectedItem().(manifestItem); ok && m.port != nil {
					m.loading = true
					cmds = append(cmds, m.loadCommandsCmd(item.info.Name), m.spinner.Tick)
				}
			case "d":
				if m.port != nil {
					m.loading = true
					cmds = append(cmds, m.doctorCmd(), m.spinner.Tick)
				}
			}

		case paneCommands:
			switch msg.String() {
			case "enter":
				if item, ok := m.cmdList.SelectedItem().(commandItem); ok && m.port != nil {
					m.loading = true
					cmds = append(cmds, m.execNamedCmd(m.activeName, item.cmd.ID, ""), m.spinner.Tick)
				}
			case "esc":
				m.pane = paneManifests
			}

		case paneOutput:
			if msg.String() == "esc" {
				m.pane = paneManifests
			}
		}
	}

	// Pass remaining input through to the active pane component.
	switch m.pane {
	case paneManifests:
		var lCmd tea.Cmd
		m.manifestList, lCmd = m.manifestList.Update(msg)
		cmds = append(cmds, lCmd)
	case paneCommands:
		var lCmd tea.Cmd
		m.cmdList, lCmd = m.cmdList.Update(msg)
		cmds = append(cmds, lCmd)
	case paneOutput:
		var vCmd tea.Cmd
		m.output, vCmd = m.output.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.port == nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			theme.Muted.Render("Plugins are not available in this session."))
	}
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Working…")
	}

	switch m.pane {
	case paneCommands:
		listW := m.width * 4 / 10
		detailW := m.width - listW
		listPane := lipgloss.NewStyle().Width(listW).Height(m.height).Render(m.cmdList.View())
		hint := theme.Muted.Render("enter: execute  esc: back to plugins")
		detailPane := lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Surface1).
			Background(theme.Mantle).Width(detailW - 2).Height(m.height - 2).
			Render(hint)
		return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)

	case paneOutput:
		hint := theme.Muted.Render("esc: back  ↑/↓: scroll\n")
		hintH := lipgloss.Height(hint)
		m.output.Height = m.height - hintH
		if m.output.Height < 1 {
			m.output.Height = 1
		}
		return lipgloss.JoinVertical(lipgloss.Left, hint, m.output.View())
	}

	listW := m.width * 4 / 10
	detailW := m.width - listW
	listPane := lipgloss.NewStyle().Width(listW).Height(m.height).Render(m.manifestList.View())
	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Surface1).
		Background(theme.Mantle).Width(detailW - 2).Height(m.height - 2).
		Render(m.renderManifestDetail())
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	m.manifestList.SetSize(m.width*4/10, m.height)
	m.cmdList.SetSize(m.width*4/10, m.height)
	m.output.Width = m.width - 4
	m.output.Height = m.height - 4
}

func (m Model) renderManifestDetail() string {
	item, ok := m.manifestList.SelectedItem().(manifestItem)
	if !ok {
		return theme.Muted.Render("No plugins configured.\n\nDrop a manifest under the plugins directory of the data home.")
	}
	p := item.info

	var sb strings.Builder
	sb.WriteString(theme.Title.Render(p.Name) + "\n\n")
	sb.WriteString(theme.Muted.Render("version: ") + p.Version + "\n")
	sb.WriteString(theme.Muted.Render("binary:  ") + p.Binary + "\n")
	enabled := theme.Muted.Render("no")
	if p.Enabled {
		enabled = theme.Hot.Render("yes")
	}
	sb.WriteString(theme.Muted.Render("enabled: ") + enabled + "\n")
	if len(p.Capabilities) > 0 {
		sb.WriteString(theme.Muted.Render("caps:    ") + strings.Join(p.Capabilities, ", ") + "\n")
	}
	sb.WriteString("\n" + theme.Muted.Render("enter: list commands  d: run doctor"))
	return sb.String()
}

func renderDoctor(results []plugindto.DoctorResult) string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Doctor") + "\n\n")
	if len(results) == 0 {
		sb.WriteString(theme.Muted.Render("no plugins configured"))
		return sb.String()
	}
	for _, r := range results {
		mark := theme.Hot.Render("✗")
		if r.ChecksumValid && r.BinaryReachable && r.LifecycleOK {
			mark = lipgloss.NewStyle().Foreground(theme.Green).Render("✓")
		}
		sb.WriteString(fmt.Sprintf(" %s %s  checksum=%t binary=%t lifecycle=%t\n",
			mark, r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK))
		if r.Error != "" {
			sb.WriteString("    " + theme.Muted.Render(r.Error) + "\n")
		}
	}
	return sb.String()
}

func (m Model) renderOutput() string {
	out := m.lastOut
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(
		fmt.Sprintf("%s:%s  exit=%d", out.PluginName, out.CommandID, out.ExitCode),
	) + "\n\n")
	if out.Stdout != "" {
		sb.WriteString(theme.Muted.Render("stdout:\n") + out.Stdout + "\n")
	}
	if out.Stderr != "" {
		sb.WriteString(theme.Hot.Render("stderr:\n") + out.Stderr + "\n")
	}
	if out.OutputJSON != "" {
		sb.WriteString(theme.Muted.Render("output JSON:\n") + out.OutputJSON + "\n")
	}
	return sb.String()
}

func (m Model) loadManifestsCmd() tea.Cmd {
	return func() tea.Msg {
		plugins, err := m.port.List(context.Background())
		return ManifestsLoadedMsg{Plugins: plugins, Err: err}
	}
}

func (m Model) doctorCmd() tea.Cmd {
	return func() tea.Msg {
		results, err := m.port.Doctor(context.Background())
		return DoctorMsg{Results: results, Err: err}
	}
}

func (m Model) loadCommandsCmd(pluginName string) tea.Cmd {
	return func() tea.Msg {
		cmds, err := m.port.ListCommands(context.Background(), pluginName)
		return CommandsLoadedMsg{PluginName: pluginName, Commands: cmds, Err: err}
	}
}

func (m Model) execNamedCmd(pluginName, commandID, inputJSON string) tea.Cmd {
	input := plugindto.ExecuteInput{
		PluginName: pluginName,
		CommandID:  commandID,
		InputJSON:  inputJSON,
		SessionID:  m.sessionID,
		RouteID:    m.routeID,
		Home:       m.homePath,
		Cwd:        m.homePath,
	}
	return func() tea.Msg {
		out, err := m.port.Execute(context.Background(), input)
		return ExecDoneMsg{Out: out, Err: err}
	}
}
