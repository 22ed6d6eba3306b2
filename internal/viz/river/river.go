// Package river lays projects out as horizontal lanes along a time axis: the
// newest activity sits on the right and work-order glyphs drift left as they age.
package river

import (
	"io"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
)

// ID is the river strategy id.
const ID = "river"

const (
	margin      = 24.0
	labelSpace  = 140.0
	maxLaneH    = 56.0
	driftRate   = 1.8
	defaultSpan = 7 * 24 * time.Hour
)

type glyph struct {
	x      float64
	placed bool
}

// Strategy is the timeline river visualization.
type Strategy struct {
	now     func() time.Time
	logger  *log.Logger
	surface viz.Surface
	span    time.Duration

	projects   []domain.ProjectNode
	workOrders []domain.WorkOrderNode
	lanes      map[string]int
	glyphs     *viz.StateMap[glyph]
	drawn      []viz.NodeRef
	last       time.Time
	done       bool
}

// New constructs a river strategy with the default one-week window.
func New(opts viz.Options) *Strategy {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Strategy{
		now:    opts.Clock(),
		logger: logger,
		span:   defaultSpan,
		glyphs: viz.NewStateMap[glyph](),
	}
}

// Factory is the registry factory.
func Factory(opts viz.Options) viz.Strategy { return New(opts) }

// ID implements viz.Strategy.
func (s *Strategy) ID() string { return ID }

// Init implements viz.Strategy.
func (s *Strategy) Init(surface viz.Surface, data domain.VisualizationData) {
	if s.done {
		return
	}
	s.surface = surface
	s.Update(data)
}

// Update implements viz.Strategy.
func (s *Strategy) Update(data domain.VisualizationData) {
	if s.done {
		return
	}
	next := slices.Clone(data.Nodes)
	viz.CarryProjectRender(s.projects, next)
	s.projects = next
	sort.SliceStable(s.projects, func(i, j int) bool { return s.projects[i].ID < s.projects[j].ID })
	s.lanes = make(map[string]int, len(s.projects))
	for i, p := range s.projects {
		s.lanes[p.ID] = i
	}
	workOrders := make([]domain.WorkOrderNode, 0, len(data.WorkOrderNodes))
	for _, w := range data.WorkOrderNodes {
		if _, ok := s.lanes[w.ProjectID]; ok {
			workOrders = append(workOrders, w)
		}
	}
	viz.CarryWorkOrderRender(s.workOrders, workOrders)
	s.workOrders = workOrders
	ids := make([]string, 0, len(s.projects)+len(s.workOrders))
	for _, p := range s.projects {
		ids = append(ids, p.ID)
	}
	for _, w := range s.workOrders {
		ids = append(ids, w.ID)
	}
	s.glyphs.Reconcile(ids, func(string) *glyph { return &glyph{} })
	s.drawn = s.drawn[:0]
	for i := range s.workOrders {
		s.drawn = append(s.drawn, viz.WorkOrderRef(&s.workOrders[i]))
	}
	for i := range s.projects {
		s.drawn = append(s.drawn, viz.ProjectRef(&s.projects[i]))
	}
}

// Render implements viz.Strategy.
func (s *Strategy) Render() {
	if s.done || s.surface == nil || len(s.projects) == 0 {
		return
	}
	now := s.now()
	dt := 0.0
	if !s.last.IsZero() {
		dt = math.Min(math.Max(now.Sub(s.last).Seconds(), 0), 0.1)
	}
	s.last = now

	w, h := s.surface.Size()
	left, right := margin+labelSpace, w-margin
	laneH := math.Min(maxLaneH, (h-2*margin)/float64(len(s.projects)))
	if right <= left || laneH <= 2 {
		return
	}
	for i := range s.projects {
		y := margin + (float64(i)+0.5)*laneH
		s.surface.Line(viz.Point{X: left, Y: y}, viz.Point{X: right, Y: y}, viz.ColorZone, 0.35)
	}

	for i := range s.workOrders {
		wo := &s.workOrders[i]
		lane := s.lanes[wo.ProjectID]
		y := margin + (float64(lane)+0.5)*laneH + laneH*0.25
		x := s.drift(wo.ID, s.axis(now, wo.UpdatedAt, left, right), dt)
		size := math.Max(3, laneH*0.12)
		s.surface.FillRect(viz.Point{X: x - size, Y: y - size}, 2*size, 2*size, viz.WorkOrderColor(wo, ""), 0.85)
		wo.Render.Place(x, y, size)
	}
	for i := range s.projects {
		p := &s.projects[i]
		y := margin + (float64(i)+0.5)*laneH
		x := s.drift(p.ID, s.axis(now, p.LastActivity, left, right), dt)
		size := math.Max(4, laneH*0.22)
		s.surface.Text(viz.Point{X: margin, Y: y}, p.DisplayName(), viz.ColorLabel)
		s.surface.FillCircle(viz.Point{X: x, Y: y}, size, viz.ProjectColor(p), 0.9)
		if p.NeedsHuman {
			s.surface.StrokeCircle(viz.Point{X: x, Y: y}, size+3, viz.ColorAlert, 0.9)
		}
		p.Render.Place(x, y, size)
	}
}

// Destroy implements viz.Strategy.
func (s *Strategy) Destroy() {
	s.done = true
	s.surface = nil
	s.projects = nil
	s.workOrders = nil
	s.drawn = nil
	s.glyphs.Clear()
}

// Nodes implements viz.Strategy.
func (s *Strategy) Nodes() []viz.NodeRef { return s.drawn }

// StateCount returns the number of live per-node states.
func (s *Strategy) StateCount() int { return s.glyphs.Len() }

// axis maps a timestamp to x: now at right, span ago (or older, or unknown) at left.
func (s *Strategy) axis(now time.Time, at *time.Time, left, right float64) float64 {
	if at == nil || at.IsZero() {
		return left
	}
	age := now.Sub(*at)
	if age < 0 {
		age = 0
	}
	frac := math.Min(float64(age)/float64(s.span), 1)
	return right - frac*(right-left)
}

// drift eases the drawn x for id toward target.
func (s *Strategy) drift(id string, target, dt float64) float64 {
	g, ok := s.glyphs.Get(id)
	if !ok {
		return target
	}
	if !g.placed {
		g.x = target
		g.placed = true
		return g.x
	}
	g.x += (target - g.x) * (1 - math.Exp(-driftRate*dt))
	return g.x
}
