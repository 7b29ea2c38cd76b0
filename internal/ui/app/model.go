package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	backupdto "crux/internal/modules/backup/dto"
	plugindto "crux/internal/modules/plugin/dto"
	routesdto "crux/internal/modules/routes/dto"
	sessiondto "crux/internal/modules/session/dto"
	"crux/internal/platform/activity"
	"crux/internal/platform/config"
	apperrors "crux/internal/platform/errors"
	"crux/internal/ui/components"
	"crux/internal/ui/theme"
	backupview "crux/internal/ui/views/backup"
	historyview "crux/internal/ui/views/history"
	logbookview "crux/internal/ui/views/logbook"
	pluginsview "crux/internal/ui/views/plugins"
	routesview "crux/internal/ui/views/routes"
	statsview "crux/internal/ui/views/stats"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the slice of a module's inbound adapter that this orchestration
// layer requires. Sub-views narrow them further in their own packages.

type sessionPort interface {
	Start(ctx context.Context, date, gym string) (sessiondto.SessionRecord, error)
	Finish(ctx context.Context) (sessiondto.SessionRecord, error)
	Clear(ctx context.Context) error
	Current(ctx context.Context) (sessiondto.SessionRecord, error)
	Show(ctx context.Context, sessionID string) (sessiondto.SessionRecord, error)
	History(ctx context.Context) ([]sessiondto.SessionRecord, error)
	AddAttempt(ctx context.Context, route *sessiondto.RouteRef, success *bool, notes string) (sessiondto.AttemptRecord, error)
	OverallStats(ctx context.Context) (sessiondto.OverallStatsOutput, error)
	ColorStats(ctx context.Context, sessionID string) (sessiondto.ColorStatsOutput, error)
}

type routesPort interface {
	List(ctx context.Context, color, gym string) ([]routesdto.RouteOutput, error)
	Show(ctx context.Context, id string) (routesdto.RouteOutput, error)
	View(ctx context.Context, id string) error
}

type backupPort interface {
	Status(ctx context.Context) (backupdto.DaemonStatusOutput, error)
	Push(ctx context.Context) (backupdto.PushOutput, error)
	Pull(ctx context.Context) (backupdto.PullOutput, error)
	Export(ctx context.Context, destPath string) (string, backupdto.SnapshotOutput, error)
}

type pluginPort interface {
	List(ctx context.Context) ([]plugindto.PluginInfo, error)
	Doctor(ctx context.Context) ([]plugindto.DoctorResult, error)
	ListCommands(ctx context.Context, pluginName string) ([]plugindto.CommandInfo, error)
	Execute(ctx context.Context, input plugindto.ExecuteInput) (plugindto.ExecuteOutput, error)
	PrepareTTY(ctx context.Context, input plugindto.TTYPrepareInput) (plugindto.TTYPrepareOutput, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabLogbook tabID = iota
	tabHistory
	tabRoutes
	tabStats
	tabBackup
	tabPlugins
	tabCount
)

var tabLabels = [tabCount]string{
	"Logbook", "History", "Routes", "Stats", "Backup", "Plugins",
}

// ─── async messages ───────────────────────────────────────────────────────────

type activeLoadedMsg struct {
	session sessiondto.SessionRecord
	empty   bool
	err     error
}

type sessionStartedMsg struct {
	session sessiondto.SessionRecord
	err     error
}

type sessionFinishedMsg struct {
	session sessiondto.SessionRecord
	err     error
}

type sessionClearedMsg struct{ err error }

type attemptAddedMsg struct {
	attempt sessiondto.AttemptRecord
	err     error
}

type exportDoneMsg struct {
	path string
	err  error
}

type activityTailMsg struct {
	events []activity.Event
	err    error
}

type pluginTTYReadyMsg struct {
	plan plugindto.TTYPrepareOutput
	err  error
}

type pluginTTYDoneMsg struct{ err error }

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	View    key.Binding
	Doctor  key.Binding
	Push    key.Binding
	Pull    key.Binding
	Refresh key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		View:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "open attachment (routes)")),
		Doctor:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "doctor (plugins)")),
		Push:    key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "push snapshot (backup)")),
		Pull:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "pull snapshot (backup)")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.View, k.Doctor},
		{k.Push, k.Pull, k.Refresh},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, the open-session
// indicator, the help overlay, the command palette, and the data-home watcher.
// All business logic is delegated to port interfaces; all rendering is
// delegated to sub-views.
type Model struct {
	homePath   string
	defaultGym string

	// ports used at this orchestration level only
	session  sessionPort
	backup   backupPort
	plugin   pluginPort
	recorder activity.Recorder

	// sub-views (one per tab)
	logView    logbookview.Model
	histView   historyview.Model
	routeView  routesview.Model
	statsView  statsview.Model
	backupView backupview.Model
	pluginView pluginsview.Model

	watcher *homeWatcher

	// global UI state
	activeTab     tabID
	keys          keyMap
	help          help.Model
	showHelp      bool
	palette       components.Palette
	activeSession sessiondto.SessionRecord
	hasActive     bool
	status        string
	width         int
	height        int
}

// ─── constructor ─────────────────────────────────────────────────────────────

func NewModel(
	cfg config.Config,
	session sessionPort,
	routes routesPort,
	backup backupPort,
	plugin pluginPort,
	recorder activity.Recorder,
) Model {
	// A failed watcher only costs live refresh; the TUI still works.
	watcher, _ := newHomeWatcher(cfg.HomePath)

	return Model{
		homePath:   cfg.HomePath,
		defaultGym: cfg.DefaultGym,
		session:    session,
		backup:     backup,
		plugin:     plugin,
		recorder:   recorder,
		logView:    logbookview.New(session),
		histView:   historyview.New(session),
		routeView:  routesview.New(routes),
		statsView:  statsview.New(session),
		backupView: backupview.New(backup),
		pluginView: pluginsview.New(plugin, cfg.HomePath),
		watcher:    watcher,
		activeTab:  tabLogbook,
		keys:       defaultKeys(),
		help:       help.New(),
		palette:    components.NewPalette(),
		status:     "ready",
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.logView.Init(),
		m.histView.Init(),
		m.routeView.Init(),
		m.statsView.Init(),
		m.backupView.Init(),
		m.pluginView.Init(),
		m.loadActiveCmd(),
	}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.wait())
	}
	return tea.Batch(cmds...)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case refreshMsg:
		cmds := []tea.Cmd{
			m.logView.Reload(),
			m.histView.Reload(),
			m.routeView.Reload(),
			m.statsView.Reload(),
			m.backupView.Reload(),
			m.pluginView.Reload(),
			m.loadActiveCmd(),
			m.tailActivityCmd(),
		}
		if m.watcher != nil {
			cmds = append(cmds, m.watcher.wait())
		}
		return m, tea.Batch(cmds...)

	case activityTailMsg:
		if msg.err == nil && len(msg.events) > 0 {
			m.status = "refreshed — " + msg.events[len(msg.events)-1].Message
		} else {
			m.status = "refreshed"
		}
		return m, nil

	case activeLoadedMsg:
		switch {
		case msg.err != nil:
			m.status = "session check: " + msg.err.Error()
			m.hasActive = false
		case msg.empty:
			m.hasActive = false
			m.activeSession = sessiondto.SessionRecord{}
		default:
			m.hasActive = true
			m.activeSession = msg.session
		}
		m.syncPluginContext()
		return m, nil

	case sessionStartedMsg:
		if msg.err != nil {
			m.status = "session start failed: " + msg.err.Error()
			return m, nil
		}
		m.hasActive = true
		m.activeSession = msg.session
		m.status = "session started at " + msg.session.Gym
		m.activeTab = tabLogbook
		m.syncPluginContext()
		return m, m.logView.Reload()

	case sessionFinishedMsg:
		if msg.err != nil {
			m.status = "session finish failed: " + msg.err.Error()
			return m, nil
		}
		m.hasActive = false
		m.activeSession = sessiondto.SessionRecord{}
		m.status = fmt.Sprintf("session finished: %d attempts", len(msg.session.Attempts))
		m.syncPluginContext()
		return m, tea.Batch(m.logView.Reload(), m.histView.Reload(), m.statsView.Reload())

	case sessionClearedMsg:
		if msg.err != nil {
			m.status = "session clear failed: " + msg.err.Error()
			return m, nil
		}
		m.hasActive = false
		m.activeSession = sessiondto.SessionRecord{}
		m.status = "session cleared"
		m.syncPluginContext()
		return m, m.logView.Reload()

	case attemptAddedMsg:
		if msg.err != nil {
			m.status = "attempt failed: " + msg.err.Error()
			return m, nil
		}
		verb := "fell on"
		if msg.attempt.Success {
			verb = "sent"
		}
		m.status = "logged: " + verb + " " + attemptLabel(msg.attempt)
		return m, tea.Batch(m.logView.Reload(), m.loadActiveCmd())

	case exportDoneMsg:
		if msg.err != nil {
			m.status = "export failed: " + msg.err.Error()
		} else {
			m.status = "backup written: " + msg.path
		}
		return m, nil

	case pluginTTYReadyMsg:
		if msg.err != nil {
			m.status = "plugin tty prepare: " + msg.err.Error()
			return m, nil
		}
		if len(msg.plan.Argv) == 0 {
			m.status = "plugin tty: empty argv"
			return m, nil
		}
		cmd := osexec.Command(msg.plan.Argv[0], msg.plan.Argv[1:]...)
		if msg.plan.Cwd != "" {
			cmd.Dir = msg.plan.Cwd
		}
		env := os.Environ()
		for k, v := range msg.plan.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
		m.status = "plugin tty running"
		return m, tea.ExecProcess(cmd, func(err error) tea.Msg {
			return pluginTTYDoneMsg{err: err}
		})

	case pluginTTYDoneMsg:
		if msg.err != nil {
			m.status = "plugin tty error: " + msg.err.Error()
		} else {
			m.status = "plugin tty completed"
		}
		return m, nil

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		// Yield to the sub-view when its search filter is active.
		if m.subViewFiltering() {
			return m.updateActive(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.syncPluginContext()
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			m.syncPluginContext()
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case ":":
			return m, m.palette.Open()
		}
		return m.updateActive(msg)
	}

	// Async results, spinner ticks, and other component messages fan out to
	// every tab so background views finish loading even while hidden.
	return m.updateAll(msg)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activeTab {
	case tabLogbook:
		m.logView, cmd = m.logView.Update(msg)
	case tabHistory:
		m.histView, cmd = m.histView.Update(msg)
	case tabRoutes:
		m.routeView, cmd = m.routeView.Update(msg)
	case tabStats:
		m.statsView, cmd = m.statsView.Update(msg)
	case tabBackup:
		m.backupView, cmd = m.backupView.Update(msg)
	case tabPlugins:
		m.pluginView, cmd = m.pluginView.Update(msg)
	}
	return m, cmd
}

func (m Model) updateAll(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	cmds = append(cmds, cmd)
	m.histView, cmd = m.histView.Update(msg)
	cmds = append(cmds, cmd)
	m.routeView, cmd = m.routeView.Update(msg)
	cmds = append(cmds, cmd)
	m.statsView, cmd = m.statsView.Update(msg)
	cmds = append(cmds, cmd)
	m.backupView, cmd = m.backupView.Update(msg)
	cmds = append(cmds, cmd)
	m.pluginView, cmd = m.pluginView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	tabBarH := lipgloss.Height(tabBar)
	statusBarH := lipgloss.Height(statusBar)

	contentH := m.height - tabBarH - statusBarH
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.activeView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabLogbook:
		return m.logView.View()
	case tabHistory:
		return m.histView.View()
	case tabRoutes:
		return m.routeView.View()
	case tabStats:
		return m.statsView.View()
	case tabBackup:
		return m.backupView.View()
	case tabPlugins:
		return m.pluginView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "crux  " + strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.hasActive {
		left = theme.Hot.Render("● "+m.activeSession.Gym) + "  " + left
	}
	right := theme.Muted.Render("?:help  tab:switch  :::palette  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)

	switch parts[0] {
	case "session:start":
		gym := m.defaultGym
		if len(parts) >= 2 {
			gym = strings.Join(parts[1:], " ")
		}
		return m, m.startSessionCmd(gym)

	case "session:finish":
		return m, m.finishSessionCmd()

	case "session:clear":
		return m, m.clearSessionCmd()

	case "attempt:add":
		if len(parts) < 2 || (parts[1] != "sent" && parts[1] != "fell") {
			m.status = "usage: attempt:add <sent|fell> [notes]"
			return m, nil
		}
		routeID, ok := m.routeView.SelectedRouteID()
		if !ok {
			m.status = "no route selected — pick one on the Routes tab"
			return m, nil
		}
		notes := strings.TrimSpace(strings.TrimPrefix(input, parts[0]+" "+parts[1]))
		return m, m.addAttemptCmd(routeID, parts[1] == "sent", notes)

	case "route:view":
		m.activeTab = tabRoutes
		if cmd := m.routeView.ViewSelected(); cmd != nil {
			return m, cmd
		}
		m.status = "no route selected"
		return m, nil

	case "backup:push":
		m.activeTab = tabBackup
		return m, m.backupView.PushNow()

	case "backup:pull":
		m.activeTab = tabBackup
		return m, m.backupView.PullNow()

	case "backup:export":
		dest := ""
		if len(parts) >= 2 {
			dest = parts[1]
		}
		return m, m.exportCmd(dest)

	case "plugin:exec":
		if len(parts) < 3 {
			m.status = "usage: plugin:exec <plugin> <command> [json]"
			return m, nil
		}
		prefix := parts[0] + " " + parts[1] + " " + parts[2]
		inputJSON := strings.TrimSpace(strings.TrimPrefix(input, prefix))
		m.activeTab = tabPlugins
		m.syncPluginContext()
		return m, m.pluginView.ExecCommand(parts[1], parts[2], inputJSON)

	case "plugin:tty":
		if len(parts) < 3 {
			m.status = "usage: plugin:tty <plugin> <command> [json]"
			return m, nil
		}
		prefix := parts[0] + " " + parts[1] + " " + parts[2]
		inputJSON := strings.TrimSpace(strings.TrimPrefix(input, prefix))
		routeID, _ := m.routeView.SelectedRouteID()
		return m, m.preparePluginTTYCmd(plugindto.TTYPrepareInput{
			PluginName: parts[1],
			CommandID:  parts[2],
			InputJSON:  inputJSON,
			SessionID:  m.activeSession.ID,
			RouteID:    routeID,
			Home:       m.homePath,
			Cwd:        m.homePath,
		})

	case "plugin:doctor":
		m.activeTab = tabPlugins
		return m, m.pluginView.RunDoctor()

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// subViewFiltering reports whether the active tab's list filter is open,
// in which case global key bindings must yield to allow free typing.
func (m Model) subViewFiltering() bool {
	switch m.activeTab {
	case tabLogbook:
		return m.logView.Filtering()
	case tabHistory:
		return m.histView.Filtering()
	case tabRoutes:
		return m.routeView.Filtering()
	case tabPlugins:
		return m.pluginView.Filtering()
	}
	return false
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.logView, _ = m.logView.Update(sz)
	m.histView, _ = m.histView.Update(sz)
	m.routeView, _ = m.routeView.Update(sz)
	m.statsView, _ = m.statsView.Update(sz)
	m.backupView, _ = m.backupView.Update(sz)
	m.pluginView, _ = m.pluginView.Update(sz)
}

// syncPluginContext keeps plugin execution context aligned with the active
// session and the route selection.
func (m *Model) syncPluginContext() {
	routeID, _ := m.routeView.SelectedRouteID()
	m.pluginView.SetContext(m.activeSession.ID, routeID)
}

func attemptLabel(attempt sessiondto.AttemptRecord) string {
	if attempt.Route == nil {
		return "a route"
	}
	if attempt.Route.Name != "" {
		return attempt.Route.Name
	}
	if attempt.Route.Color != "" {
		return "a " + attempt.Route.Color + " route"
	}
	return "a route"
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) loadActiveCmd() tea.Cmd {
	return func() tea.Msg {
		session, err := m.session.Current(context.Background())
		if errors.Is(err, apperrors.ErrNoActiveSession) {
			return activeLoadedMsg{empty: true}
		}
		return activeLoadedMsg{session: session, err: err}
	}
}

func (m Model) startSessionCmd(gym string) tea.Cmd {
	// The palette starts sessions "now"; explicit dates stay a CLI affair.
	date := time.Now().Format("2006-01-02T15:04")
	return func() tea.Msg {
		session, err := m.session.Start(context.Background(), date, gym)
		return sessionStartedMsg{session: session, err: err}
	}
}

func (m Model) finishSessionCmd() tea.Cmd {
	return func() tea.Msg {
		session, err := m.session.Finish(context.Background())
		return sessionFinishedMsg{session: session, err: err}
	}
}

func (m Model) clearSessionCmd() tea.Cmd {
	return func() tea.Msg {
		return sessionClearedMsg{err: m.session.Clear(context.Background())}
	}
}

func (m Model) addAttemptCmd(routeID string, success bool, notes string) tea.Cmd {
	return func() tea.Msg {
		attempt, err := m.session.AddAttempt(context.Background(),
			&sessiondto.RouteRef{RouteID: routeID}, &success, notes)
		return attemptAddedMsg{attempt: attempt, err: err}
	}
}

func (m Model) exportCmd(dest string) tea.Cmd {
	return func() tea.Msg {
		path, _, err := m.backup.Export(context.Background(), dest)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) tailActivityCmd() tea.Cmd {
	return func() tea.Msg {
		if m.recorder == nil {
			return activityTailMsg{}
		}
		events, err := m.recorder.Tail(context.Background(), activity.Query{Limit: 1})
		return activityTailMsg{events: events, err: err}
	}
}

func (m Model) preparePluginTTYCmd(input plugindto.TTYPrepareInput) tea.Cmd {
	return func() tea.Msg {
		if m.plugin == nil {
			return pluginTTYReadyMsg{err: fmt.Errorf("plugin adapter not configured")}
		}
		plan, err := m.plugin.PrepareTTY(context.Background(), input)
		return pluginTTYReadyMsg{plan: plan, err: err}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
