// Package pulse draws projects on a ring, each breathing at a rate and depth set by its activity.
package pulse

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

// ID is the pulse strategy id.
const ID = "pulse"

type pulse struct {
	phase     float64
	amplitude float64
}

// Strategy is the activity pulse visualization.
type Strategy struct {
	now     func() time.Time
	logger  *log.Logger
	surface viz.Surface

	projects []domain.ProjectNode
	state    *viz.StateMap[pulse]
	drawn    []viz.NodeRef
	last     time.Time
	done     bool
}

// New constructs a pulse strategy.
func New(opts viz.Options) *Strategy {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Strategy{now: opts.Clock(), logger: logger, state: viz.NewStateMap[pulse]()}
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
	ids := make([]string, 0, len(s.projects))
	for _, p := range s.projects {
		ids = append(ids, p.ID)
	}
	s.state.Reconcile(ids, func(id string) *pulse {
		return &pulse{phase: viz.NewSeeded(id, "pulse").Angle()}
	})
	s.drawn = s.drawn[:0]
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
	ring := 0.38 * math.Min(w, h)
	if ring <= 0 {
		return
	}
	center := viz.Center(s.surface)
	s.surface.StrokeCircle(center, ring, viz.ColorZone, 0.3)

	t := float64(now.UnixMilli()) / 1000
	n := float64(len(s.projects))
	for i := range s.projects {
		p := &s.projects[i]
		st, ok := s.state.Get(p.ID)
		if !ok {
			continue
		}
		activity := domain.Clamp01(p.ActivityLevel)
		st.amplitude += (activity - st.amplitude) * (1 - math.Exp(-2*dt))
		if dt == 0 {
			st.amplitude = activity
		}
		rate := 0.3 + 1.5*activity
		beat := 0.5 + 0.5*math.Sin(2*math.Pi*rate*t+st.phase)
		size := 5 + 6*st.amplitude*beat

		angle := 2*math.Pi*float64(i)/n - math.Pi/2
		at := viz.Point{X: center.X + math.Cos(angle)*ring, Y: center.Y + math.Sin(angle)*ring}
		s.surface.FillCircle(at, size*1.6, viz.HeatColor(activity), 0.25*beat*activity)
		s.surface.FillCircle(at, size, viz.ProjectColor(p), 0.9)
		if p.NeedsHuman {
			s.surface.StrokeCircle(at, size+4, viz.ColorAlert, 0.9)
		}
		s.surface.Text(viz.Point{X: at.X + size + 2, Y: at.Y}, p.DisplayName(), viz.ColorLabel)
		p.Render.Place(at.X, at.Y, size)
	}
}

// Destroy implements viz.Strategy.
func (s *Strategy) Destroy() {
	s.done = true
	s.surface = nil
	s.projects = nil
	s.drawn = nil
	s.state.Clear()
}

// Nodes implements viz.Strategy.
func (s *Strategy) Nodes() []viz.NodeRef { return s.drawn }

// StateCount returns the number of live per-node states.
func (s *Strategy) StateCount() int { return s.state.Len() }
