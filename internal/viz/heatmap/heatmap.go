// Package heatmap draws one row per project: a heat-colored project tile
// followed by smaller tiles for its work orders.
package heatmap

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/orbital"
)

// ID is the heatmap strategy id.
const ID = "heatmap"

const (
	margin     = 16.0
	maxRowH    = 48.0
	easeRate   = 3.0
	labelWidth = 160.0
)

type tile struct {
	heat float64
	seen bool
}

// Strategy is the heatmap grid visualization.
type Strategy struct {
	now     func() time.Time
	logger  *log.Logger
	surface viz.Surface

	projects   []domain.ProjectNode
	workOrders map[string][]*domain.WorkOrderNode
	woStore    []domain.WorkOrderNode
	phases     map[string]domain.RunPhase
	tiles      *viz.StateMap[tile]
	drawn      []viz.NodeRef
	last       time.Time
	done       bool
}

// New constructs a heatmap strategy.
func New(opts viz.Options) *Strategy {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Strategy{now: opts.Clock(), logger: logger, tiles: viz.NewStateMap[tile]()}
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
	projects := slices.Clone(data.Nodes)
	viz.CarryProjectRender(s.projects, projects)
	s.projects = projects
	slices.SortStableFunc(s.projects, func(a, b domain.ProjectNode) int {
		if c := cmp.Compare(orbital.ProjectHeat(b), orbital.ProjectHeat(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	woStore := slices.Clone(data.WorkOrderNodes)
	viz.CarryWorkOrderRender(s.woStore, woStore)
	s.woStore = woStore
	s.phases = data.RunPhases()
	s.workOrders = map[string][]*domain.WorkOrderNode{}
	ids := make([]string, 0, len(s.projects)+len(s.woStore))
	for _, p := range s.projects {
		ids = append(ids, p.ID)
	}
	for i := range s.woStore {
		w := &s.woStore[i]
		s.workOrders[w.ProjectID] = append(s.workOrders[w.ProjectID], w)
		ids = append(ids, w.ID)
	}
	s.tiles.Reconcile(ids, func(string) *tile { return &tile{} })
	s.drawn = s.drawn[:0]
	for i := range s.projects {
		p := &s.projects[i]
		if !p.Render.Placed {
			continue
		}
		s.drawn = append(s.drawn, viz.ProjectRef(p))
		for _, wo := range s.workOrders[p.ID] {
			if wo.Render.Placed {
				s.drawn = append(s.drawn, viz.WorkOrderRef(wo))
			}
		}
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
	rowH := math.Min(maxRowH, (h-2*margin)/float64(len(s.projects)))
	if rowH <= 2 || w <= 2*margin {
		return
	}
	side := rowH * 0.8
	small := side * 0.5
	s.drawn = s.drawn[:0]
	for row := range s.projects {
		p := &s.projects[row]
		y := margin + float64(row)*rowH
		heat := s.ease(p.ID, orbital.ProjectHeat(*p), dt)
		at := viz.Point{X: margin + side/2, Y: y + side/2}
		s.surface.FillRect(viz.Point{X: margin, Y: y}, side, side, viz.HeatColor(heat), 0.95)
		if p.NeedsHuman {
			s.surface.StrokeRect(viz.Point{X: margin, Y: y}, side, side, viz.ColorAlert, 0.9)
		}
		counts := p.WorkOrders
		label := fmt.Sprintf("%s  %d ready %d building %d blocked", p.DisplayName(), counts.Ready, counts.Building, counts.Blocked)
		s.surface.Text(viz.Point{X: margin + side + 6, Y: at.Y}, label, viz.ColorLabel)
		p.Render.Place(at.X, at.Y, side/2)
		s.drawn = append(s.drawn, viz.ProjectRef(p))

		x := margin + side + 6 + labelWidth
		for _, wo := range s.workOrders[p.ID] {
			if x+small > w-margin {
				break
			}
			woHeat := s.ease(wo.ID, orbital.WorkOrderHeat(*wo, s.phases[wo.ID]), dt)
			s.surface.FillRect(viz.Point{X: x, Y: at.Y - small/2}, small, small, viz.HeatColor(woHeat), 0.9)
			wo.Render.Place(x+small/2, at.Y, small/2)
			s.drawn = append(s.drawn, viz.WorkOrderRef(wo))
			x += small + 3
		}
	}
}

// Destroy implements viz.Strategy.
func (s *Strategy) Destroy() {
	s.done = true
	s.surface = nil
	s.projects = nil
	s.woStore = nil
	s.workOrders = nil
	s.drawn = nil
	s.tiles.Clear()
}

// Nodes implements viz.Strategy.
func (s *Strategy) Nodes() []viz.NodeRef { return s.drawn }

// StateCount returns the number of live per-node states.
func (s *Strategy) StateCount() int { return s.tiles.Len() }

// ease moves the displayed heat for id toward target and returns it.
func (s *Strategy) ease(id string, target, dt float64) float64 {
	t, ok := s.tiles.Get(id)
	if !ok {
		return target
	}
	if !t.seen {
		t.heat = target
		t.seen = true
	}
	t.heat = domain.Clamp01(t.heat + (target-t.heat)*(1-math.Exp(-easeRate*dt)))
	return t.heat
}
