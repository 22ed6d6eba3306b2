// Package tui hosts the visualization shell inside a Bubble Tea program: it
// maps terminal mouse and keyboard input onto the interaction controller,
// drives frames from ticks, polls snapshots, and renders the status bar and
// detail panel around the cell canvas.
package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/app"
	"github.com/hylla/orrery/internal/canvas"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/interact"
	"github.com/hylla/orrery/internal/shell"
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/catalog"
	"github.com/hylla/orrery/internal/viz/orbital"
)

// Service is the application surface the view reads snapshots and preferences from.
type Service interface {
	Refresh(context.Context) (app.Refresh, error)
	Preferences(context.Context) (domain.Preferences, error)
	SetStrategy(context.Context, string) (domain.Preferences, error)
	SetFilter(context.Context, domain.WorkOrderFilter) (domain.Preferences, error)
	TogglePin(context.Context, string) (domain.Preferences, bool, error)
}

// layout and polling defaults.
const (
	defaultPollInterval = 5 * time.Second
	panStepCells        = 4
	minDetailWidth      = 28
	maxDetailWidth      = 48
)

// preferencesMsg carries stored preferences loaded at startup.
type preferencesMsg struct {
	prefs domain.Preferences
	err   error
}

// snapshotMsg carries one refresh result; manual refreshes do not reschedule polling.
type snapshotMsg struct {
	refresh app.Refresh
	err     error
	manual  bool
}

// pollTickMsg triggers the next scheduled poll.
type pollTickMsg struct{}

// prefsSavedMsg carries preferences after a persisted change.
type prefsSavedMsg struct {
	prefs  domain.Preferences
	status string
	err    error
}

// Model is the Bubble Tea model hosting the visualization shell.
type Model struct {
	svc      Service
	registry *viz.Registry
	logger   *log.Logger
	now      func() time.Time
	copyText func(string) error

	ctx    context.Context
	cancel context.CancelFunc

	ready    bool
	quitting bool
	width    int
	height   int
	status   string
	err      error

	help       help.Model
	keys       keyMap
	showDetail bool
	detail     *markdownRenderer

	fps          int
	pollInterval time.Duration
	metrics      canvas.Metrics
	interaction  interact.Config
	background   color.Color

	canvas     *canvas.Canvas
	scheduler  *shell.TickScheduler
	controller *interact.Controller
	shell      *shell.Shell

	prefs   domain.Preferences
	latest  app.Refresh
	hasData bool
	pressed bool
}

// NewModel constructs the view over svc; a nil registry uses the built-in catalog.
func NewModel(svc Service, registry *viz.Registry, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:          svc,
		registry:     registry,
		logger:       log.New(io.Discard),
		now:          time.Now,
		copyText:     clipboard.WriteAll,
		status:       "loading...",
		help:         h,
		keys:         newKeyMap(),
		detail:       &markdownRenderer{},
		fps:          shell.DefaultFPS,
		pollInterval: defaultPollInterval,
		interaction:  interact.DefaultConfig(),
		background:   viz.ColorBackground,
		prefs:        domain.Preferences{Filter: domain.WorkOrderFilterActive},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if m.registry == nil {
		m.registry = catalog.Default(orbital.Config{})
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.canvas = canvas.New(0, 0, m.metrics)
	m.scheduler = shell.NewTickScheduler(m.fps)
	m.controller = interact.New(m.interaction, interact.WithLogger(m.logger))
	m.shell = shell.New(
		m.registry,
		m.canvas,
		m.scheduler,
		m.controller,
		shell.WithLogger(m.logger),
		shell.WithBackground(m.background),
		shell.WithStrategyOptions(m.strategyOptions()),
	)
	return m
}

// Init loads stored preferences; the first poll follows.
func (m Model) Init() tea.Cmd {
	return m.loadPreferences
}

// Update applies one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, m.mountPending()

	case preferencesMsg:
		if msg.err != nil {
			m.logger.Warn("load preferences failed", "err", msg.err)
			m.status = "preferences unavailable: " + msg.err.Error()
		} else {
			m.prefs = msg.prefs
		}
		if _, ok := m.registry.Lookup(m.prefs.Strategy); !ok {
			m.prefs.Strategy = m.defaultStrategy()
		}
		m.shell.SetStrategyOptions(m.strategyOptions())
		return m, m.refreshCmd(false)

	case snapshotMsg:
		if m.quitting {
			return m, nil
		}
		var cmds []tea.Cmd
		if !msg.manual {
			cmds = append(cmds, m.pollAfter())
		}
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				return m, nil
			}
			m.err = msg.err
			m.status = "refresh failed: " + msg.err.Error()
			return m, tea.Batch(cmds...)
		}
		m.err = nil
		m.latest = msg.refresh
		m.hasData = true
		switch {
		case msg.refresh.Stale && msg.refresh.Err != nil:
			m.status = "showing cached snapshot: " + msg.refresh.Err.Error()
		case msg.refresh.Stale:
			m.status = "showing cached snapshot"
		default:
			m.status = "ready"
		}
		if m.shell.Mounted() {
			m.shell.Update(msg.refresh.Data)
		} else {
			cmds = append(cmds, m.mountPending())
		}
		return m, tea.Batch(cmds...)

	case pollTickMsg:
		if m.quitting {
			return m, nil
		}
		return m, m.refreshCmd(false)

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save preferences failed", "err", msg.err)
			m.status = "save preferences failed: " + msg.err.Error()
			return m, nil
		}
		m.prefs = msg.prefs
		m.applyFilter()
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case shell.FrameMsg:
		m.scheduler.Fire(msg)
		return m, m.scheduler.Cmd()

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// View renders the canvas, optional detail panel, status bar, and help.
func (m Model) View() tea.View {
	var content string
	switch {
	case !m.ready:
		content = "loading..."
	case !m.hasData && m.err != nil:
		title := lipgloss.NewStyle().Bold(true).Foreground(viz.ColorLabel).Render("orrery")
		content = title + "\n\nno snapshot yet: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	case !m.hasData:
		content = "waiting for the first snapshot..."
	default:
		content = m.renderScene()
	}
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeAllMotion
	v.AltScreen = true
	return v
}

// handleKey handles one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		m.shell.Unmount()
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.status = "refreshing..."
		return m, m.refreshCmd(true)
	case key.Matches(msg, m.keys.nextStrategy):
		return m.selectStrategy(m.registry.Next(m.currentStrategy(), 1))
	case key.Matches(msg, m.keys.prevStrategy):
		return m.selectStrategy(m.registry.Next(m.currentStrategy(), -1))
	case key.Matches(msg, m.keys.jumpStrategy):
		idx, err := strconv.Atoi(msg.String())
		ids := m.registry.IDs()
		if err != nil || idx < 1 || idx > len(ids) {
			return m, nil
		}
		return m.selectStrategy(ids[idx-1])
	case key.Matches(msg, m.keys.toggleFilter):
		return m.toggleFilter()
	case key.Matches(msg, m.keys.togglePin):
		return m.togglePin()
	case key.Matches(msg, m.keys.nextNode):
		m.cycleSelection(1)
	case key.Matches(msg, m.keys.prevNode):
		m.cycleSelection(-1)
	case key.Matches(msg, m.keys.clearSelect):
		m.controller.Select("")
	case key.Matches(msg, m.keys.details):
		m.showDetail = !m.showDetail
		m.layout()
	case key.Matches(msg, m.keys.copyID):
		m.copySelection()
	case key.Matches(msg, m.keys.panLeft):
		m.controller.PanBy(panStepCells*m.canvas.Metrics().CellWidth, 0)
	case key.Matches(msg, m.keys.panRight):
		m.controller.PanBy(-panStepCells*m.canvas.Metrics().CellWidth, 0)
	case key.Matches(msg, m.keys.panUp):
		m.controller.PanBy(0, panStepCells*m.canvas.Metrics().CellHeight/2)
	case key.Matches(msg, m.keys.panDown):
		m.controller.PanBy(0, -panStepCells*m.canvas.Metrics().CellHeight/2)
	case key.Matches(msg, m.keys.zoomIn):
		m.controller.Wheel(viz.Center(m.canvas), 1)
	case key.Matches(msg, m.keys.zoomOut):
		m.controller.Wheel(viz.Center(m.canvas), -1)
	case key.Matches(msg, m.keys.resetView):
		m.controller.Reset()
	}
	return m, nil
}

// handleMouseClick begins a left-button press on the canvas.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft {
		return m, nil
	}
	p, ok := m.canvasPoint(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	m.controller.PointerDown(p)
	m.pressed = true
	return m, nil
}

// handleMouseMotion forwards hover and drag motion; leaving the canvas ends any gesture.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	p, ok := m.canvasPoint(msg.X, msg.Y)
	if !ok {
		m.controller.PointerLeave()
		m.pressed = false
		return m, nil
	}
	pressed := m.pressed && msg.Button == tea.MouseLeft
	m.controller.PointerMove(p, pressed)
	m.pressed = pressed
	return m, nil
}

// handleMouseRelease ends a press.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	m.pressed = false
	p, ok := m.canvasPoint(msg.X, msg.Y)
	if !ok {
		m.controller.PointerLeave()
		return m, nil
	}
	m.controller.PointerUp(p)
	return m, nil
}

// handleMouseWheel zooms around the pointer.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	p, ok := m.canvasPoint(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.controller.Wheel(p, 1)
	case tea.MouseWheelDown:
		m.controller.Wheel(p, -1)
	}
	return m, nil
}

// selectStrategy swaps the live strategy and persists the choice.
func (m Model) selectStrategy(id string) (tea.Model, tea.Cmd) {
	if id == "" || id == m.currentStrategy() {
		return m, nil
	}
	if m.shell.Mounted() {
		if err := m.shell.Swap(id); err != nil {
			m.status = err.Error()
			return m, nil
		}
	}
	m.prefs.Strategy = id
	m.status = "view: " + m.strategyName(id)
	svc, ctx := m.svc, m.ctx
	return m, func() tea.Msg {
		prefs, err := svc.SetStrategy(ctx, id)
		return prefsSavedMsg{prefs: prefs, err: err}
	}
}

// toggleFilter flips between active and all work orders.
func (m Model) toggleFilter() (tea.Model, tea.Cmd) {
	next := domain.WorkOrderFilterAll
	if m.prefs.Filter == domain.WorkOrderFilterAll {
		next = domain.WorkOrderFilterActive
	}
	m.prefs.Filter = next
	m.applyFilter()
	status := "work orders: " + string(next)
	m.status = status
	svc, ctx := m.svc, m.ctx
	return m, func() tea.Msg {
		prefs, err := svc.SetFilter(ctx, next)
		return prefsSavedMsg{prefs: prefs, status: status, err: err}
	}
}

// togglePin pins or unpins the selected work order.
func (m Model) togglePin() (tea.Model, tea.Cmd) {
	node, ok := m.controller.Selected()
	if !ok || node.Kind() != viz.KindWorkOrder {
		m.status = "select a work order to pin"
		return m, nil
	}
	id := node.ID()
	svc, ctx := m.svc, m.ctx
	return m, func() tea.Msg {
		prefs, pinned, err := svc.TogglePin(ctx, id)
		status := "unpinned " + id
		if pinned {
			status = "pinned " + id
		}
		return prefsSavedMsg{prefs: prefs, status: status, err: err}
	}
}

// cycleSelection moves the selection through the drawn nodes.
func (m *Model) cycleSelection(delta int) {
	nodes := m.shell.Nodes()
	n := len(nodes)
	if n == 0 {
		return
	}
	current := -1
	for i, node := range nodes {
		if node.ID() == m.controller.SelectedID() {
			current = i
			break
		}
	}
	next := 0
	switch {
	case current < 0 && delta < 0:
		next = n - 1
	case current >= 0:
		next = ((current+delta)%n + n) % n
	}
	m.controller.Select(nodes[next].ID())
}

// copySelection copies the selected node id to the system clipboard.
func (m *Model) copySelection() {
	node, ok := m.controller.Selected()
	if !ok {
		m.status = "nothing selected"
		return
	}
	if err := m.copyText(node.ID()); err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = "copied " + node.ID()
}

// applyFilter pushes the filter and pins to the live strategy and later mounts.
func (m *Model) applyFilter() {
	opts := m.strategyOptions()
	m.shell.SetStrategyOptions(opts)
	if setter, ok := m.shell.Active().(viz.WorkOrderFilterSetter); ok {
		setter.SetWorkOrderFilter(opts.Filter, opts.Pinned)
		m.shell.Update(m.shell.Data())
	}
}

// mountPending mounts the preferred strategy once both a size and a snapshot exist.
func (m *Model) mountPending() tea.Cmd {
	cols, rows := m.canvas.Grid()
	if !m.ready || !m.hasData || m.quitting || m.shell.Mounted() || cols == 0 || rows == 0 {
		return nil
	}
	id := m.prefs.Strategy
	if _, ok := m.registry.Lookup(id); !ok {
		id = m.defaultStrategy()
	}
	if err := m.shell.Mount(id, m.latest.Data); err != nil {
		m.logger.Error("mount strategy failed", "strategy", id, "err", err)
		m.status = "mount failed: " + err.Error()
		return nil
	}
	m.prefs.Strategy = id
	return m.scheduler.Cmd()
}

// layout resizes the canvas to the space left by the chrome and detail panel.
func (m *Model) layout() {
	cols := m.width
	if m.showDetail {
		cols -= m.detailWidth()
	}
	rows := m.height - 1 - lipgloss.Height(m.helpView())
	m.canvas.Resize(max(cols, 0), max(rows, 0))
}

// detailWidth returns the detail panel width for the current terminal width.
func (m Model) detailWidth() int {
	return min(max(m.width/3, minDetailWidth), maxDetailWidth, m.width)
}

// canvasPoint maps one terminal cell to a canvas screen point.
func (m Model) canvasPoint(x, y int) (viz.Point, bool) {
	cols, rows := m.canvas.Grid()
	if x < 0 || y < 0 || x >= cols || y >= rows {
		return viz.Point{}, false
	}
	return m.canvas.ScreenPoint(x, y), true
}

// loadPreferences reads stored preferences.
func (m Model) loadPreferences() tea.Msg {
	prefs, err := m.svc.Preferences(m.ctx)
	return preferencesMsg{prefs: prefs, err: err}
}

// refreshCmd polls the service once.
func (m Model) refreshCmd(manual bool) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		refresh, err := svc.Refresh(ctx)
		return snapshotMsg{refresh: refresh, err: err, manual: manual}
	}
}

// pollAfter schedules the next poll.
func (m Model) pollAfter() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// strategyOptions returns the options handed to strategy factories.
func (m Model) strategyOptions() viz.Options {
	return viz.Options{
		Now:    m.now,
		Logger: m.logger,
		Filter: m.prefs.Filter,
		Pinned: m.prefs.Pinned,
	}
}

// currentStrategy returns the live strategy id, falling back to the preferred one.
func (m Model) currentStrategy() string {
	if id := m.shell.ActiveID(); id != "" {
		return id
	}
	if m.prefs.Strategy != "" {
		return m.prefs.Strategy
	}
	return m.defaultStrategy()
}

// defaultStrategy returns the catalog default when registered, else the first id.
func (m Model) defaultStrategy() string {
	if _, ok := m.registry.Lookup(catalog.DefaultID); ok {
		return catalog.DefaultID
	}
	if ids := m.registry.IDs(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// strategyName returns the display name for id.
func (m Model) strategyName(id string) string {
	if d, ok := m.registry.Lookup(id); ok && d.Name != "" {
		return d.Name
	}
	return id
}

// renderScene joins the canvas, detail panel, status bar, and help.
func (m Model) renderScene() string {
	scene := m.canvas.String()
	if m.showDetail {
		scene = lipgloss.JoinHorizontal(lipgloss.Top, scene, m.renderDetail())
	}
	return lipgloss.JoinVertical(lipgloss.Left, scene, m.renderStatus(), m.helpView())
}

// renderDetail renders the markdown detail panel for the selected node.
func (m Model) renderDetail() string {
	_, rows := m.canvas.Grid()
	width := m.detailWidth()
	body := m.detail.render(m.detailMarkdown(), width-4)
	return lipgloss.NewStyle().
		Width(width).
		Height(rows).
		MaxHeight(rows).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(viz.ColorZone).
		Padding(0, 1).
		Render(body)
}

// renderStatus renders the one-line status bar.
func (m Model) renderStatus() string {
	muted := lipgloss.NewStyle().Foreground(viz.ColorMuted)
	title := lipgloss.NewStyle().Bold(true).Foreground(viz.ColorLabel)
	alert := lipgloss.NewStyle().Foreground(viz.ColorAlert)

	data := m.shell.Data()
	parts := []string{
		title.Render("orrery"),
		m.strategyName(m.currentStrategy()),
		fmt.Sprintf("%d projects", len(data.Nodes)),
		fmt.Sprintf("%d work orders (%s)", len(data.WorkOrderNodes), m.prefs.Filter),
	}
	if !m.latest.FetchedAt.IsZero() {
		parts = append(parts, "updated "+m.latest.FetchedAt.Local().Format("15:04:05"))
	}
	if m.latest.Stale {
		parts = append(parts, alert.Render("stale"))
	}
	if dropped := m.shell.Stats().Recovered; dropped > 0 {
		parts = append(parts, alert.Render(fmt.Sprintf("%d dropped frames", dropped)))
	}
	if tip := m.controller.Tooltip(); tip.Visible {
		if node, ok := m.controller.Hovered(); ok {
			parts = append(parts, "▸ "+tooltipText(node, data))
		}
	}
	if m.status != "" && m.status != "ready" {
		parts = append(parts, m.status)
	}
	return muted.MaxWidth(max(m.width, 1)).Render(strings.Join(parts, " · "))
}

// helpView renders the help bubble at the current width.
func (m Model) helpView() string {
	h := m.help
	h.SetWidth(max(0, m.width))
	return h.View(m.keys)
}
