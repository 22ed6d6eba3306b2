// Package orbital implements the orbital gravity strategy: distance from the
// center encodes how much a node needs attention. Hot nodes orbit close to the
// sun, cold nodes drift out to the archive ring.
package orbital

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
)

// Strategy ids.
const (
	ProjectsID   = "orbital"
	WorkOrdersID = "orbital-work-orders"
)

// Mode selects which node set the strategy orbits.
type Mode int

// Mode values.
const (
	ModeProjects Mode = iota
	ModeWorkOrders
)

// Smoothing rates per second and relaxation tuning.
const (
	heatUpRate      = 3.0
	heatDownRate    = 0.6
	radiusRate      = 2.2
	maxStep         = 0.1
	collisionPasses = 3
	collisionPad    = 1.5
)

// Focus timing defaults.
const (
	DefaultFocusDuration = 7 * time.Second
	DefaultFocusFade     = 1800 * time.Millisecond
)

// body is the private per-node simulation state.
type body struct {
	angle        float64
	radius       float64
	targetRadius float64
	heat         float64
	targetHeat   float64
	omega        float64
	jitter       float64
	size         float64
	worked       bool
	waiting      bool
	archived     bool
	alert        bool
}

// BodyState is a read-only view of one node's simulation state. Radii are
// fractions of the base radius.
type BodyState struct {
	Heat         float64
	TargetHeat   float64
	Radius       float64
	TargetRadius float64
	Angle        float64
	Omega        float64
	Worked       bool
	Archived     bool
	Focused      bool
	Zone         string
}

// Config tunes focus timing.
type Config struct {
	FocusDuration time.Duration
	FocusFade     time.Duration
}

// Strategy is the orbital gravity visualization.
type Strategy struct {
	mode    Mode
	cfg     Config
	now     func() time.Time
	logger  *log.Logger
	filter  domain.WorkOrderFilter
	pinned  map[string]struct{}
	layout  Layout
	surface viz.Surface

	projects   []domain.ProjectNode
	workOrders []domain.WorkOrderNode
	phases     map[string]domain.RunPhase
	bodies     *viz.StateMap[body]
	drawn      []viz.NodeRef

	focusID string
	focusAt time.Time

	lastFrame time.Time
	destroyed bool
}

// New constructs an orbital strategy in the given mode.
func New(mode Mode, cfg Config, opts viz.Options) *Strategy {
	if cfg.FocusDuration <= 0 {
		cfg.FocusDuration = DefaultFocusDuration
	}
	if cfg.FocusFade <= 0 || cfg.FocusFade > cfg.FocusDuration {
		cfg.FocusFade = min(DefaultFocusFade, cfg.FocusDuration)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	filter := opts.Filter
	if filter == "" {
		filter = domain.WorkOrderFilterActive
	}
	layout := ProjectLayout
	if mode == ModeWorkOrders {
		layout = WorkOrderLayout
	}
	return &Strategy{
		mode:   mode,
		cfg:    cfg,
		now:    opts.Clock(),
		logger: logger,
		filter: filter,
		pinned: opts.PinnedSet(),
		layout: layout,
		bodies: viz.NewStateMap[body](),
	}
}

// ID implements viz.Strategy.
func (s *Strategy) ID() string {
	if s.mode == ModeWorkOrders {
		return WorkOrdersID
	}
	return ProjectsID
}

// Init implements viz.Strategy.
func (s *Strategy) Init(surface viz.Surface, data domain.VisualizationData) {
	if s.destroyed {
		return
	}
	s.surface = surface
	s.Update(data)
}

// Update implements viz.Strategy.
func (s *Strategy) Update(data domain.VisualizationData) {
	if s.destroyed {
		return
	}
	s.phases = data.RunPhases()
	if s.mode == ModeWorkOrders {
		next := FilterWorkOrders(data.WorkOrderNodes, s.filter, s.pinned)
		viz.CarryWorkOrderRender(s.workOrders, next)
		s.workOrders = next
		s.projects = nil
	} else {
		next := slices.Clone(data.Nodes)
		viz.CarryProjectRender(s.projects, next)
		s.projects = next
		s.workOrders = nil
	}
	ids := s.ids()
	added, removed := s.bodies.Reconcile(ids, s.seed)
	for i := range s.projects {
		s.retarget(s.projects[i].ID, s.projectTargets(s.projects[i]))
	}
	for i := range s.workOrders {
		s.retarget(s.workOrders[i].ID, s.workOrderTargets(s.workOrders[i]))
	}
	if s.focusID != "" && !slices.Contains(ids, s.focusID) {
		s.focusID = ""
	}
	s.drawn = s.refs(ids)
	if added > 0 || removed > 0 {
		s.logger.Debug("orbital reconciled", "strategy", s.ID(), "added", added, "removed", removed, "live", s.bodies.Len())
	}
}

// SetWorkOrderFilter changes the work-order filter; the next Update applies it.
// The host re-runs Update with its current snapshot after calling this.
func (s *Strategy) SetWorkOrderFilter(filter domain.WorkOrderFilter, pinned []string) {
	s.filter = filter
	s.pinned = viz.Options{Pinned: pinned}.PinnedSet()
}

// Render implements viz.Strategy.
func (s *Strategy) Render() {
	if s.destroyed || s.surface == nil {
		return
	}
	now := s.now()
	dt := 0.0
	if !s.lastFrame.IsZero() {
		dt = math.Min(math.Max(now.Sub(s.lastFrame).Seconds(), 0), maxStep)
	}
	s.lastFrame = now
	s.expireFocus(now)

	w, h := s.surface.Size()
	base := baseRadiusFactor * math.Min(w, h)
	if base <= 0 {
		return
	}
	center := viz.Center(s.surface)
	s.drawZones(center, base)

	ids := s.ids()
	discs := make([]disc, 0, len(ids))
	live := make([]string, 0, len(ids))
	for i, id := range ids {
		b, ok := s.bodies.Get(id)
		if !ok {
			continue
		}
		s.step(id, b, dt, now)
		discs = append(discs, disc{angle: b.angle, orbit: b.radius * base, radius: b.size, order: i})
		live = append(live, id)
	}
	relax(discs, collisionPasses, collisionPad)
	for i, id := range live {
		b, _ := s.bodies.Get(id)
		b.angle = discs[i].angle
	}

	sort.SliceStable(live, func(a, b int) bool {
		ba, _ := s.bodies.Get(live[a])
		bb, _ := s.bodies.Get(live[b])
		return ba.heat < bb.heat
	})
	s.drawn = s.drawn[:0]
	for _, ref := range s.refs(live) {
		b, _ := s.bodies.Get(ref.ID())
		x := center.X + math.Cos(b.angle)*b.radius*base
		y := center.Y + math.Sin(b.angle)*b.radius*base
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		s.drawNode(ref, b, viz.Point{X: x, Y: y}, now)
	}
}

// Destroy implements viz.Strategy.
func (s *Strategy) Destroy() {
	s.destroyed = true
	s.surface = nil
	s.bodies.Clear()
	s.projects = nil
	s.workOrders = nil
	s.phases = nil
	s.drawn = nil
	s.focusID = ""
}

// Nodes implements viz.Strategy.
func (s *Strategy) Nodes() []viz.NodeRef {
	return s.drawn
}

// OnNodeClick focuses the clicked node; empty space clears focus.
func (s *Strategy) OnNodeClick(node *viz.NodeRef) {
	if s.destroyed {
		return
	}
	if node == nil || !node.Valid() {
		s.focusID = ""
		return
	}
	if _, ok := s.bodies.Get(node.ID()); !ok {
		return
	}
	s.focusID = node.ID()
	s.focusAt = s.now()
}

// FocusedID returns the focused node id.
func (s *Strategy) FocusedID() string {
	return s.focusID
}

// StateCount returns the number of live per-node states.
func (s *Strategy) StateCount() int {
	return s.bodies.Len()
}

// Inspect returns the simulation state for id.
func (s *Strategy) Inspect(id string) (BodyState, bool) {
	b, ok := s.bodies.Get(id)
	if !ok {
		return BodyState{}, false
	}
	return BodyState{
		Heat:         b.heat,
		TargetHeat:   b.targetHeat,
		Radius:       b.radius,
		TargetRadius: b.targetRadius,
		Angle:        b.angle,
		Omega:        b.omega,
		Worked:       b.worked,
		Archived:     b.archived,
		Focused:      id == s.focusID,
		Zone:         s.layout.ZoneAt(b.radius).Name,
	}, true
}

// Layout returns the zone layout in use.
func (s *Strategy) Layout() Layout {
	return s.layout
}

// targets is the data-derived part of a body.
type targets struct {
	heat     float64
	size     float64
	worked   bool
	waiting  bool
	archived bool
	alert    bool
}

func (s *Strategy) projectTargets(p domain.ProjectNode) targets {
	waiting := p.NeedsHuman || p.Phase == domain.RunPhaseWaiting || p.Phase == domain.RunPhaseYouReview
	worked := !waiting && (p.Phase.Worked() || (p.IsActive && p.WorkOrders.Building > 0))
	heat := ProjectHeat(p)
	size := 6 + 2.2*math.Log1p(domain.NonNegative(p.ConsumptionRate)) + 4*heat
	return targets{
		heat:     heat,
		size:     math.Min(math.Max(size, 6), 18),
		worked:   worked,
		waiting:  waiting,
		archived: ProjectArchived(p),
		alert:    p.NeedsHuman || p.EscalationCount > 0,
	}
}

func (s *Strategy) workOrderTargets(w domain.WorkOrderNode) targets {
	phase := s.phases[w.ID]
	waiting := phase == domain.RunPhaseWaiting || phase == domain.RunPhaseYouReview || w.Status == domain.WorkOrderYouReview
	worked := !waiting && (phase.Worked() || w.Status == domain.WorkOrderBuilding || w.Status == domain.WorkOrderAIReview)
	heat := WorkOrderHeat(w, phase)
	return targets{
		heat:     heat,
		size:     4 + 3*heat,
		worked:   worked,
		waiting:  waiting,
		archived: WorkOrderArchived(w, phase),
		alert:    w.Status == domain.WorkOrderBlocked,
	}
}

// retarget applies data-derived targets to an existing body.
func (s *Strategy) retarget(id string, t targets) {
	b, ok := s.bodies.Get(id)
	if !ok {
		return
	}
	b.targetHeat = t.heat
	b.size = t.size
	b.worked = t.worked
	b.waiting = t.waiting
	b.archived = t.archived
	b.alert = t.alert
	if t.archived {
		b.targetRadius = s.layout.Archive
	} else {
		b.targetRadius = s.layout.TargetRadius(t.heat, b.jitter)
	}
	if b.radius == 0 {
		b.heat = b.targetHeat
		b.radius = b.targetRadius
	}
}

// seed creates state for a newly seen id; angle and jitter derive only from the id.
func (s *Strategy) seed(id string) *body {
	return &body{
		angle:  viz.NewSeeded(id, "angle").Angle(),
		jitter: viz.NewSeeded(id, "jitter").Signed() * jitterSpan,
	}
}

// step advances one body by dt seconds.
func (s *Strategy) step(id string, b *body, dt float64, now time.Time) {
	rate := heatDownRate
	if b.targetHeat > b.heat {
		rate = heatUpRate
	}
	b.heat = domain.Clamp01(smooth(b.heat, b.targetHeat, rate, dt))
	target := b.targetRadius
	if id == s.focusID {
		w := s.focusWeight(now)
		target = target + (focusRadius-target)*w
	}
	b.radius = s.layout.Clamp(smooth(b.radius, target, radiusRate, dt))
	b.omega = AngularSpeed(b.radius, s.layout.Archive)
	if b.worked {
		b.angle = math.Mod(b.angle+b.omega*dt, 2*math.Pi)
	}
}

// focusWeight returns the focus pull in [0,1], fading linearly over the tail.
func (s *Strategy) focusWeight(now time.Time) float64 {
	elapsed := now.Sub(s.focusAt)
	remaining := s.cfg.FocusDuration - elapsed
	switch {
	case remaining <= 0:
		return 0
	case remaining >= s.cfg.FocusFade:
		return 1
	default:
		return float64(remaining) / float64(s.cfg.FocusFade)
	}
}

func (s *Strategy) expireFocus(now time.Time) {
	if s.focusID != "" && now.Sub(s.focusAt) >= s.cfg.FocusDuration {
		s.focusID = ""
	}
}

func (s *Strategy) ids() []string {
	out := make([]string, 0, len(s.projects)+len(s.workOrders))
	for i := range s.projects {
		out = append(out, s.projects[i].ID)
	}
	for i := range s.workOrders {
		out = append(out, s.workOrders[i].ID)
	}
	return out
}

// refs builds node references for ids in the given order.
func (s *Strategy) refs(ids []string) []viz.NodeRef {
	index := make(map[string]viz.NodeRef, len(ids))
	for i := range s.projects {
		index[s.projects[i].ID] = viz.ProjectRef(&s.projects[i])
	}
	for i := range s.workOrders {
		index[s.workOrders[i].ID] = viz.WorkOrderRef(&s.workOrders[i])
	}
	out := make([]viz.NodeRef, 0, len(ids))
	for _, id := range ids {
		if ref, ok := index[id]; ok {
			out = append(out, ref)
		}
	}
	return out
}

func (s *Strategy) drawZones(center viz.Point, base float64) {
	s.surface.FillCircle(center, 0.05*base, viz.ColorSun, 0.9)
	for _, z := range s.layout.Zones {
		s.surface.StrokeCircle(center, z.Max*base, viz.ColorZone, 0.25)
	}
	s.surface.StrokeCircle(center, s.layout.Archive*base, viz.ColorZone, 0.12)
}

func (s *Strategy) drawNode(ref viz.NodeRef, b *body, at viz.Point, now time.Time) {
	id := ref.ID()
	size := b.size
	if b.waiting {
		size *= 1 + 0.15*math.Sin(float64(now.UnixMilli())/1000*4)
	}
	glow := viz.HeatColor(b.heat)
	s.surface.FillCircle(at, size*1.8, glow, 0.35*b.heat)

	fill := viz.ProjectColor(ref.Project)
	if ref.WorkOrder != nil {
		fill = viz.WorkOrderColor(ref.WorkOrder, s.phases[id])
		s.surface.FillRect(viz.Point{X: at.X - size, Y: at.Y - size}, 2*size, 2*size, fill, 0.9)
		ref.WorkOrder.Render.Place(at.X, at.Y, size)
	} else {
		s.surface.FillCircle(at, size, fill, 0.9)
		ref.Project.Render.Place(at.X, at.Y, size)
	}
	if b.alert {
		s.surface.StrokeCircle(at, size+3, viz.ColorAlert, 0.8)
	}
	if ref.Project != nil || b.heat >= 0.6 || id == s.focusID {
		s.surface.Text(viz.Point{X: at.X + size + 2, Y: at.Y}, truncate(ref.Label(), 18), viz.ColorLabel)
	}
	s.drawn = append(s.drawn, ref)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s…", string(r[:n-1]))
}

// Factory returns a registry factory for mode.
func Factory(mode Mode, cfg Config) viz.Factory {
	return func(opts viz.Options) viz.Strategy {
		return New(mode, cfg, opts)
	}
}
