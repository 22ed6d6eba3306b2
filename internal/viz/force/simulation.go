// Package force provides a small velocity-Verlet force simulation with alpha
// cooling, and the force-directed strategy built on it.
package force

import (
	"math"

	"github.com/hylla/orrery/internal/viz"
)

// Body is one simulated particle. FX/FY pin the body when set.
type Body struct {
	ID    string
	Index int
	X     float64
	Y     float64
	VX    float64
	VY    float64
	FX    *float64
	FY    *float64
}

// Pin fixes the body at x,y.
func (b *Body) Pin(x, y float64) {
	b.FX = &x
	b.FY = &y
}

// Unpin releases a pinned body.
func (b *Body) Unpin() {
	b.FX = nil
	b.FY = nil
}

// Force is one named force acting on the simulation bodies.
type Force interface {
	Initialize(bodies []*Body, jiggle func() float64)
	Apply(alpha float64)
}

// Simulation defaults.
const (
	DefaultAlphaMin      = 0.001
	DefaultVelocityDecay = 0.4
)

// Simulation advances bodies under a set of named forces while alpha cools toward alphaTarget.
type Simulation struct {
	bodies        []*Body
	names         []string
	forces        map[string]Force
	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64
	rng           *viz.Seeded
}

// NewSimulation constructs a hot simulation with no bodies.
func NewSimulation() *Simulation {
	return &Simulation{
		forces:        map[string]Force{},
		alpha:         1,
		alphaMin:      DefaultAlphaMin,
		alphaDecay:    1 - math.Pow(DefaultAlphaMin, 1.0/300),
		velocityDecay: DefaultVelocityDecay,
		rng:           viz.NewSeeded("force-simulation"),
	}
}

// SetBodies replaces the body set and reinitializes every force.
func (s *Simulation) SetBodies(bodies []*Body) {
	s.bodies = bodies
	for i, b := range bodies {
		b.Index = i
	}
	for _, name := range s.names {
		s.forces[name].Initialize(s.bodies, s.jiggle)
	}
}

// Bodies returns the simulated bodies.
func (s *Simulation) Bodies() []*Body {
	return s.bodies
}

// SetForce registers or replaces the force under name; nil removes it.
func (s *Simulation) SetForce(name string, f Force) {
	if f == nil {
		delete(s.forces, name)
		for i, n := range s.names {
			if n == name {
				s.names = append(s.names[:i], s.names[i+1:]...)
				break
			}
		}
		return
	}
	if _, ok := s.forces[name]; !ok {
		s.names = append(s.names, name)
	}
	s.forces[name] = f
	f.Initialize(s.bodies, s.jiggle)
}

// Force returns the force registered under name.
func (s *Simulation) Force(name string) (Force, bool) {
	f, ok := s.forces[name]
	return f, ok
}

// Alpha returns the current energy.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha sets the current energy.
func (s *Simulation) SetAlpha(alpha float64) { s.alpha = math.Max(alpha, 0) }

// AlphaTarget returns the energy the simulation cools toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget sets the energy the simulation cools toward.
func (s *Simulation) SetAlphaTarget(target float64) { s.alphaTarget = math.Max(target, 0) }

// Active reports whether ticking would still move bodies.
func (s *Simulation) Active() bool {
	return s.alpha >= s.alphaMin || s.alphaTarget > s.alphaMin
}

// Tick advances the simulation one step.
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	for _, name := range s.names {
		s.forces[name].Apply(s.alpha)
	}
	keep := 1 - s.velocityDecay
	for _, b := range s.bodies {
		if b.FX != nil {
			b.X = *b.FX
			b.VX = 0
		} else {
			b.VX *= keep
			b.X += b.VX
		}
		if b.FY != nil {
			b.Y = *b.FY
			b.VY = 0
		} else {
			b.VY *= keep
			b.Y += b.VY
		}
	}
}

// jiggle returns a tiny deterministic offset used to separate coincident bodies.
func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
