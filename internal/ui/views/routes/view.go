package routes

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	routesdto "crux/internal/modules/routes/dto"
	"crux/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	List(ctx context.Context, color, gym string) ([]routesdto.RouteOutput, error)
	Show(ctx context.Context, id string) (routesdto.RouteOutput, error)
	View(ctx context.Context, id string) error
}

// ─── messages ────────────────────────────────────────────────────────────────

type RoutesLoadedMsg struct {
	Routes []routesdto.RouteOutput
	Err    error
}

type DetailLoadedMsg struct {
	Route routesdto.RouteOutput
	Err   error
}

// ViewedMsg reports the outcome of opening an attachment externally.
type ViewedMsg struct {
	RouteID string
	Err     error
}

// ─── list item ───────────────────────────────────────────────────────────────

type routeItem struct {
	route routesdto.RouteOutput
}

func (i routeItem) Title() string {
	name := i.route.Name
	if name == "" {
		name = "unnamed route"
	}
	return name
}

func (i routeItem) Description() string {
	parts := []string{i.route.Color}
	if i.route.Gym != "" {
		parts = append(parts, i.route.Gym)
	}
	return strings.Join(parts, "  ")
}

func (i routeItem) FilterValue() string {
	return i.route.Name + " " + i.route.Color + " " + i.route.Gym
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port       Port
	list       list.Model
	detail     routesdto.RouteOutput
	preview    viewport.Model
	spinner    spinner.Model
	statusLine string
	loading    bool
	width      int
	height     int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Green).BorderForeground(theme.Green)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Green)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Routes"
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
	sp.Style = lipgloss.NewStyle().Foreground(theme.Green)

	return Model{
		port:    port,
		list:    l,
		preview: vp,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadRoutesCmd(), m.spinner.Tick)
}

// Reload refetches the route list in place.
func (m Model) Reload() tea.Cmd {
	return m.loadRoutesCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case RoutesLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Routes — " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.Routes))
		for i, r := range msg.Routes {
			items[i] = routeItem{route: r}
		}
		cmds = append(cmds, m.list.SetItems(items))
		if len(msg.Routes) > 0 {
			cmds = append(cmds, m.loadDetailCmd(msg.Routes[0].ID))
		} else {
			m.detail = routesdto.RouteOutput{}
			m.preview.SetContent(m.renderDetail())
		}

	case DetailLoadedMsg:
		if msg.Err == nil {
			m.detail = msg.Route
			m.preview.SetContent(m.renderDetail())
		}

	case ViewedMsg:
		if msg.Err != nil {
			m.statusLine = "view failed: " + msg.Err.Error()
		} else {
			m.statusLine = "opened in system viewer"
		}
		m.preview.SetContent(m.renderDetail())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if msg.String() == "v" && !m.Filtering() {
			if item, ok := m.list.SelectedItem().(routeItem); ok {
				cmds = append(cmds, m.viewCmd(item.route.ID))
			}
		}
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			m.statusLine = ""
			if item, ok := m.list.SelectedItem().(routeItem); ok {
				cmds = append(cmds, m.loadDetailCmd(item.route.ID))
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
			m.spinner.View()+" Loading routes…")
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

// SelectedRouteID returns the current selection's route id, if any.
func (m Model) SelectedRouteID() (string, bool) {
	if item, ok := m.list.SelectedItem().(routeItem); ok {
		return item.route.ID, true
	}
	return "", false
}

// ViewSelected opens the selected route's attachment in the system viewer.
// It returns nil when nothing is selected.
func (m Model) ViewSelected() tea.Cmd {
	id, ok := m.SelectedRouteID()
	if !ok {
		return nil
	}
	return m.viewCmd(id)
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
	r := m.detail
	if r.ID == "" {
		return theme.Muted.Render("No routes saved.\n\nSave one with crux route save --color <color> --image <path>.")
	}

	name := r.Name
	if name == "" {
		name = "unnamed route"
	}

	var sb strings.Builder
	sb.WriteString(theme.Swatch(r.Color) + " " + theme.Title.Render(name) + "\n\n")
	sb.WriteString(theme.Muted.Render("id:         ") + r.ID + "\n")
	sb.WriteString(theme.Muted.Render("color:      ") + r.Color + "\n")
	if r.Gym != "" {
		sb.WriteString(theme.Muted.Render("gym:        ") + r.Gym + "\n")
	}
	sb.WriteString(theme.Muted.Render("attachment: ") + r.Attachment + "\n")
	sb.WriteString(theme.Muted.Render("created:    ") + r.CreatedAt.Format("2006-01-02 15:04") + "\n")
	if r.Notes != "" {
		sb.WriteString("\n" + r.Notes + "\n")
	}
	if m.statusLine != "" {
		sb.WriteString("\n" + theme.Hot.Render(m.statusLine) + "\n")
	}
	sb.WriteString("\n" + theme.Muted.Render("v: open attachment  :attempt:add sent|fell to log"))
	return sb.String()
}

func (m Model) loadRoutesCmd() tea.Cmd {
	return func() tea.Msg {
		routes, err := m.port.List(context.Background(), "", "")
		return RoutesLoadedMsg{Routes: routes, Err: err}
	}
}

func (m Model) loadDetailCmd(id string) tea.Cmd {
	return func() tea.Msg {
		route, err := m.port.Show(context.Background(), id)
		return DetailLoadedMsg{Route: route, Err: err}
	}
}

func (m Model) viewCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.port.View(context.Background(), id)
		return ViewedMsg{RouteID: id, Err: err}
	}
}
