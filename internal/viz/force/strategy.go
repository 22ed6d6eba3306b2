package force

import (
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
)

// ID is the force strategy id.
const ID = "force"

// Layout tuning.
const (
	projectCharge     = -260.0
	workOrderCharge   = -90.0
	dependencyLength  = 90.0
	linkLength        = 55.0
	reheatAlpha       = 0.5
	dragAlphaTarget   = 0.3
	ticksPerFrame     = 2
	seedSpread        = 120.0
	minProjectRadius  = 4.0
	maxProjectRadius  = 14.0
	ownershipEdgeType = "owns"
	dimAlpha          = 0.15
)

// Strategy is the force-directed visualization of projects and work orders.
type Strategy struct {
	logger  *log.Logger
	surface viz.Surface
	sim     *Simulation
	center  *Center

	projects   []domain.ProjectNode
	workOrders []domain.WorkOrderNode
	phases     map[string]domain.RunPhase
	edges      []domain.Edge
	bodies     *viz.StateMap[Body]
	linkKey    []string
	drawn      []viz.NodeRef

	hoverID    string
	selectedID string
	draggingID string
	destroyed  bool
}

// New constructs a force strategy.
func New(opts viz.Options) *Strategy {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Strategy{
		logger: logger,
		sim:    NewSimulation(),
		center: &Center{},
		bodies: viz.NewStateMap[Body](),
	}
}

// Factory is the registry factory for the force strategy.
func Factory(opts viz.Options) viz.Strategy {
	return New(opts)
}

// ID implements viz.Strategy.
func (s *Strategy) ID() string { return ID }

// Init implements viz.Strategy.
func (s *Strategy) Init(surface viz.Surface, data domain.VisualizationData) {
	if s.destroyed {
		return
	}
	s.surface = surface
	c := viz.Center(surface)
	s.center.X, s.center.Y = c.X, c.Y
	s.Update(data)
}

// Update implements viz.Strategy. Retained bodies keep position and velocity;
// structural changes reheat the simulation.
func (s *Strategy) Update(data domain.VisualizationData) {
	if s.destroyed {
		return
	}
	projects := slices.Clone(data.Nodes)
	workOrders := slices.Clone(data.WorkOrderNodes)
	viz.CarryProjectRender(s.projects, projects)
	viz.CarryWorkOrderRender(s.workOrders, workOrders)
	s.projects, s.workOrders = projects, workOrders
	s.phases = data.RunPhases()

	ids := make([]string, 0, len(s.projects)+len(s.workOrders))
	kinds := make(map[string]viz.NodeKind, cap(ids))
	for i := range s.projects {
		ids = append(ids, s.projects[i].ID)
		kinds[s.projects[i].ID] = viz.KindProject
	}
	for i := range s.workOrders {
		if _, dup := kinds[s.workOrders[i].ID]; dup {
			continue
		}
		ids = append(ids, s.workOrders[i].ID)
		kinds[s.workOrders[i].ID] = viz.KindWorkOrder
	}
	added, removed := s.bodies.Reconcile(ids, s.seed)

	s.edges = s.resolveEdges(data.Edges, kinds)
	links := make([]Link, 0, len(s.edges))
	key := make([]string, 0, len(s.edges))
	for _, e := range s.edges {
		dist := linkLength
		if e.Type == domain.EdgeTypeDependency {
			dist = dependencyLength
		}
		links = append(links, Link{Source: e.Source, Target: e.Target, Distance: dist})
		key = append(key, e.Source+">"+e.Target+":"+e.Type)
	}

	bodies := make([]*Body, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.bodies.Get(id); ok {
			bodies = append(bodies, b)
		}
	}
	s.sim.SetBodies(bodies)
	s.sim.SetForce("link", NewLinkForce(links))
	s.sim.SetForce("charge", &ManyBody{Strength: func(b *Body) float64 {
		if kinds[b.ID] == viz.KindProject {
			return projectCharge
		}
		return workOrderCharge
	}, DistanceMin: 1})
	s.sim.SetForce("center", s.center)
	radius := s.radiusIndex()
	s.sim.SetForce("collide", &Collide{Radius: func(b *Body) float64 { return radius[b.ID] + 2 }})

	if added > 0 || removed > 0 || !slices.Equal(key, s.linkKey) {
		s.sim.SetAlpha(math.Max(s.sim.Alpha(), reheatAlpha))
		s.logger.Debug("force reheated", "added", added, "removed", removed, "links", len(links))
	}
	s.linkKey = key
	if s.selectedID != "" && !slices.Contains(ids, s.selectedID) {
		s.selectedID = ""
	}
	if !slices.Contains(ids, s.hoverID) {
		s.hoverID = ""
	}
	if s.draggingID != "" && !slices.Contains(ids, s.draggingID) {
		s.draggingID = ""
		s.sim.SetAlphaTarget(0)
	}
	s.drawn = s.refs()
}

// Render implements viz.Strategy.
func (s *Strategy) Render() {
	if s.destroyed || s.surface == nil {
		return
	}
	c := viz.Center(s.surface)
	s.center.X, s.center.Y = c.X, c.Y
	if s.sim.Active() {
		for i := 0; i < ticksPerFrame; i++ {
			s.sim.Tick()
		}
	}

	focus := s.hoverID
	if focus == "" {
		focus = s.selectedID
	}
	neighbors := s.neighbors(focus)
	radius := s.radiusIndex()

	for _, e := range s.edges {
		a, okA := s.bodies.Get(e.Source)
		b, okB := s.bodies.Get(e.Target)
		if !okA || !okB || !finite(a.X, a.Y, b.X, b.Y) {
			continue
		}
		alpha := 0.45
		if focus != "" && e.Source != focus && e.Target != focus {
			alpha = dimAlpha * 0.5
		}
		from := viz.Point{X: a.X, Y: a.Y}
		to := viz.Point{X: b.X, Y: b.Y}
		s.surface.Line(from, to, viz.ColorEdge, alpha)
		if e.Type == domain.EdgeTypeDependency {
			s.arrow(from, to, radius[e.Target], alpha)
		}
	}

	s.drawn = s.drawn[:0]
	for i := range s.workOrders {
		w := &s.workOrders[i]
		b, ok := s.bodies.Get(w.ID)
		if !ok || !finite(b.X, b.Y) {
			continue
		}
		size := radius[w.ID]
		alpha := nodeAlpha(focus, w.ID, neighbors)
		s.surface.FillRect(viz.Point{X: b.X - size, Y: b.Y - size}, 2*size, 2*size, viz.WorkOrderColor(w, s.phases[w.ID]), alpha)
		w.Render.Place(b.X, b.Y, size)
		s.drawn = append(s.drawn, viz.WorkOrderRef(w))
	}
	for i := range s.projects {
		p := &s.projects[i]
		b, ok := s.bodies.Get(p.ID)
		if !ok || !finite(b.X, b.Y) {
			continue
		}
		size := radius[p.ID]
		alpha := nodeAlpha(focus, p.ID, neighbors)
		s.surface.FillCircle(viz.Point{X: b.X, Y: b.Y}, size, viz.ProjectColor(p), alpha)
		if p.NeedsHuman {
			s.surface.StrokeCircle(viz.Point{X: b.X, Y: b.Y}, size+3, viz.ColorAlert, alpha)
		}
		s.surface.Text(viz.Point{X: b.X + size + 2, Y: b.Y}, p.DisplayName(), viz.ColorLabel)
		p.Render.Place(b.X, b.Y, size)
		s.drawn = append(s.drawn, viz.ProjectRef(p))
	}
}

// Destroy implements viz.Strategy.
func (s *Strategy) Destroy() {
	s.destroyed = true
	s.surface = nil
	s.bodies.Clear()
	s.sim.SetBodies(nil)
	s.projects = nil
	s.workOrders = nil
	s.edges = nil
	s.drawn = nil
}

// Nodes implements viz.Strategy.
func (s *Strategy) Nodes() []viz.NodeRef {
	return s.drawn
}

// OnNodeHover implements viz.HoverHandler.
func (s *Strategy) OnNodeHover(node *viz.NodeRef) {
	if node == nil {
		s.hoverID = ""
		return
	}
	s.hoverID = node.ID()
}

// OnNodeClick implements viz.ClickHandler.
func (s *Strategy) OnNodeClick(node *viz.NodeRef) {
	if node == nil {
		s.selectedID = ""
		return
	}
	s.selectedID = node.ID()
}

// OnNodeDragStart pins the node and keeps the simulation warm.
func (s *Strategy) OnNodeDragStart(node viz.NodeRef, world viz.Point) {
	b, ok := s.bodies.Get(node.ID())
	if !ok || s.destroyed {
		return
	}
	s.draggingID = node.ID()
	b.Pin(world.X, world.Y)
	s.sim.SetAlphaTarget(dragAlphaTarget)
	s.sim.SetAlpha(math.Max(s.sim.Alpha(), dragAlphaTarget))
}

// OnNodeDrag moves the pinned node.
func (s *Strategy) OnNodeDrag(node viz.NodeRef, world viz.Point) {
	if b, ok := s.bodies.Get(node.ID()); ok {
		b.Pin(world.X, world.Y)
	}
}

// OnNodeDragEnd releases the pin so the layout re-absorbs the node.
func (s *Strategy) OnNodeDragEnd(node viz.NodeRef, _ viz.Point) {
	if b, ok := s.bodies.Get(node.ID()); ok {
		b.Unpin()
	}
	s.draggingID = ""
	s.sim.SetAlphaTarget(0)
}

// Body returns the simulated body for id.
func (s *Strategy) Body(id string) (Body, bool) {
	b, ok := s.bodies.Get(id)
	if !ok {
		return Body{}, false
	}
	return *b, true
}

// Alpha returns the simulation energy.
func (s *Strategy) Alpha() float64 {
	return s.sim.Alpha()
}

// StateCount returns the number of live bodies.
func (s *Strategy) StateCount() int {
	return s.bodies.Len()
}

// ProjectRadius maps consumption onto a log-scaled radius.
func ProjectRadius(consumption float64) float64 {
	r := minProjectRadius + 2.2*math.Log1p(domain.NonNegative(consumption))
	return math.Min(math.Max(r, minProjectRadius), maxProjectRadius)
}

// WorkOrderRadius derives a glyph half-size from status, priority, and estimate.
func WorkOrderRadius(w domain.WorkOrderNode) float64 {
	r := 3.0
	if w.Status.InProgress() {
		r += 1.5
	}
	if w.Priority > 0 {
		r += math.Min(float64(w.Priority), 5) * 0.3
	}
	if w.Estimate != nil {
		r += math.Min(domain.NonNegative(*w.Estimate), 16) / 8
	}
	return r
}

func (s *Strategy) seed(id string) *Body {
	rng := viz.NewSeeded(id, "force")
	angle := rng.Angle()
	dist := seedSpread * math.Sqrt(rng.Float64())
	return &Body{ID: id, X: s.center.X + math.Cos(angle)*dist, Y: s.center.Y + math.Sin(angle)*dist}
}

// resolveEdges keeps edges whose endpoints exist and adds project ownership links.
func (s *Strategy) resolveEdges(edges []domain.Edge, kinds map[string]viz.NodeKind) []domain.Edge {
	out := make([]domain.Edge, 0, len(edges)+len(s.workOrders))
	seen := map[string]struct{}{}
	add := func(e domain.Edge) {
		if _, ok := kinds[e.Source]; !ok {
			return
		}
		if _, ok := kinds[e.Target]; !ok {
			return
		}
		k := e.Source + ">" + e.Target
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	for _, e := range edges {
		add(e)
	}
	for _, w := range s.workOrders {
		if w.ProjectID != "" {
			add(domain.Edge{Source: w.ProjectID, Target: w.ID, Type: ownershipEdgeType})
		}
	}
	return out
}

func (s *Strategy) radiusIndex() map[string]float64 {
	out := make(map[string]float64, len(s.projects)+len(s.workOrders))
	for _, p := range s.projects {
		out[p.ID] = ProjectRadius(p.ConsumptionRate)
	}
	for _, w := range s.workOrders {
		if _, ok := out[w.ID]; !ok {
			out[w.ID] = WorkOrderRadius(w)
		}
	}
	return out
}

func (s *Strategy) neighbors(id string) map[string]struct{} {
	if id == "" {
		return nil
	}
	out := map[string]struct{}{id: {}}
	for _, e := range s.edges {
		switch id {
		case e.Source:
			out[e.Target] = struct{}{}
		case e.Target:
			out[e.Source] = struct{}{}
		}
	}
	return out
}

func (s *Strategy) refs() []viz.NodeRef {
	out := make([]viz.NodeRef, 0, len(s.projects)+len(s.workOrders))
	for i := range s.workOrders {
		out = append(out, viz.WorkOrderRef(&s.workOrders[i]))
	}
	for i := range s.projects {
		out = append(out, viz.ProjectRef(&s.projects[i]))
	}
	return out
}

// arrow draws a dependency arrowhead at the target's rim.
func (s *Strategy) arrow(from, to viz.Point, targetRadius, alpha float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	d := math.Hypot(dx, dy)
	if d <= targetRadius || d == 0 {
		return
	}
	ux, uy := dx/d, dy/d
	tip := viz.Point{X: to.X - ux*targetRadius, Y: to.Y - uy*targetRadius}
	const head = 6.0
	for _, sign := range []float64{-1, 1} {
		angle := math.Atan2(uy, ux) + math.Pi - sign*0.45
		s.surface.Line(tip, viz.Point{X: tip.X + math.Cos(angle)*head, Y: tip.Y + math.Sin(angle)*head}, viz.ColorEdge, alpha)
	}
}

func nodeAlpha(focus, id string, neighbors map[string]struct{}) float64 {
	if focus == "" {
		return 0.9
	}
	if _, ok := neighbors[id]; ok {
		return 1
	}
	return dimAlpha
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
