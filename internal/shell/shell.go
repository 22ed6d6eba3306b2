// Package shell runs the per-frame render loop: it clears the surface, applies
// the interaction transform, delegates to the active strategy, and overlays the
// selection and hover rings.
package shell

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/interact"
	"github.com/hylla/orrery/internal/viz"
)

// ErrNotMounted is returned when an operation needs a mounted strategy.
var ErrNotMounted = errors.New("shell is not mounted")

// Ring styling.
const (
	selectionPad   = 3.0
	hoverPad       = 2.0
	selectionAlpha = 1.0
	hoverAlpha     = 0.35
)

// Stats reports render loop counters.
type Stats struct {
	Frames    uint64
	Recovered uint64
	Swaps     uint64
	LastFrame time.Time
}

// Option configures a shell.
type Option func(*Shell)

// WithLogger sets the shell logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackground sets the clear color.
func WithBackground(c color.Color) Option {
	return func(s *Shell) {
		if c != nil {
			s.background = c
		}
	}
}

// WithStrategyOptions sets the options handed to strategy factories.
func WithStrategyOptions(opts viz.Options) Option {
	return func(s *Shell) {
		s.strategyOpts = opts
	}
}

// Shell hosts one active strategy and its frame loop.
type Shell struct {
	registry     *viz.Registry
	surface      viz.Surface
	scheduler    Scheduler
	controller   *interact.Controller
	strategyOpts viz.Options
	logger       *log.Logger
	background   color.Color

	active   viz.Strategy
	data     domain.VisualizationData
	token    Token
	hasToken bool
	mounted  bool
	stats    Stats
}

// New constructs a shell.
func New(registry *viz.Registry, surface viz.Surface, scheduler Scheduler, controller *interact.Controller, opts ...Option) *Shell {
	s := &Shell{
		registry:   registry,
		surface:    surface,
		scheduler:  scheduler,
		controller: controller,
		logger:     log.New(io.Discard),
		background: viz.ColorBackground,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.strategyOpts.Logger == nil {
		s.strategyOpts.Logger = s.logger
	}
	return s
}

// Mount instantiates the strategy registered under id and starts the frame loop.
func (s *Shell) Mount(id string, data domain.VisualizationData) error {
	if s.mounted {
		s.Unmount()
	}
	s.data = data.Normalize()
	strategy, err := s.registry.New(id, s.strategyOpts)
	if err != nil {
		return fmt.Errorf("mount strategy: %w", err)
	}
	s.start(strategy)
	s.mounted = true
	s.schedule()
	return nil
}

// Swap destroys the active strategy and initializes the one registered under id
// with the latest snapshot. No simulation state carries over.
func (s *Shell) Swap(id string) error {
	if !s.mounted {
		return ErrNotMounted
	}
	strategy, err := s.registry.New(id, s.strategyOpts)
	if err != nil {
		return fmt.Errorf("swap strategy: %w", err)
	}
	s.stop()
	s.start(strategy)
	s.stats.Swaps++
	return nil
}

// Update hands a fresh snapshot to the active strategy; it is a no-op after unmount.
func (s *Shell) Update(data domain.VisualizationData) {
	if !s.mounted || s.active == nil {
		return
	}
	s.data = data.Normalize()
	s.active.Update(s.data)
}

// SetStrategyOptions replaces the options used for later Mount and Swap calls.
func (s *Shell) SetStrategyOptions(opts viz.Options) {
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	s.strategyOpts = opts
}

// Frame draws one frame and schedules the next.
func (s *Shell) Frame(now time.Time) {
	s.hasToken = false
	if !s.mounted || s.active == nil {
		return
	}
	s.surface.Clear(s.background)
	transform := viz.Identity()
	if s.controller != nil {
		transform = s.controller.Transform()
	}
	s.surface.SetTransform(transform)
	if s.render() {
		s.drawRings()
	}
	s.stats.Frames++
	s.stats.LastFrame = now
	s.schedule()
}

// Unmount destroys the active strategy and cancels the pending frame.
func (s *Shell) Unmount() {
	if s.hasToken {
		s.scheduler.Cancel(s.token)
		s.hasToken = false
	}
	s.stop()
	s.mounted = false
}

// Mounted reports whether a strategy is live.
func (s *Shell) Mounted() bool {
	return s.mounted
}

// Active returns the live strategy, or nil.
func (s *Shell) Active() viz.Strategy {
	return s.active
}

// ActiveID returns the live strategy id.
func (s *Shell) ActiveID() string {
	if s.active == nil {
		return ""
	}
	return s.active.ID()
}

// Data returns the latest normalized snapshot.
func (s *Shell) Data() domain.VisualizationData {
	return s.data
}

// Nodes returns the nodes drawn by the active strategy.
func (s *Shell) Nodes() []viz.NodeRef {
	if s.active == nil {
		return nil
	}
	return s.active.Nodes()
}

// Stats returns render loop counters.
func (s *Shell) Stats() Stats {
	return s.stats
}

func (s *Shell) start(strategy viz.Strategy) {
	strategy.Init(s.surface, s.data)
	s.active = strategy
	if s.controller != nil {
		s.controller.SetTarget(strategy)
	}
	s.logger.Debug("strategy mounted", "strategy", strategy.ID(), "nodes", len(s.data.Nodes), "work_orders", len(s.data.WorkOrderNodes))
}

func (s *Shell) stop() {
	if s.active == nil {
		return
	}
	id := s.active.ID()
	s.active.Destroy()
	s.active = nil
	if s.controller != nil {
		s.controller.SetTarget(nil)
	}
	s.logger.Debug("strategy destroyed", "strategy", id)
}

func (s *Shell) schedule() {
	if s.hasToken || s.scheduler == nil {
		return
	}
	s.token = s.scheduler.Schedule(s.Frame)
	s.hasToken = true
}

// render runs the strategy and drops the frame if it panics.
func (s *Shell) render() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.stats.Recovered++
			s.logger.Error("strategy render panicked; frame dropped", "strategy", s.active.ID(), "panic", r)
			ok = false
		}
	}()
	s.active.Render()
	return true
}

func (s *Shell) drawRings() {
	if s.controller == nil {
		return
	}
	if node, ok := s.controller.Selected(); ok {
		ring(s.surface, node, selectionPad, viz.ColorSelection, selectionAlpha)
	}
	if node, ok := s.controller.Hovered(); ok && node.ID() != s.controller.SelectedID() {
		ring(s.surface, node, hoverPad, viz.ColorHover, hoverAlpha)
	}
}

// ring outlines one node at its current drawn position.
func ring(surface viz.Surface, node viz.NodeRef, pad float64, c color.Color, alpha float64) {
	r := node.Render()
	if !r.Placed || r.Radius <= 0 {
		return
	}
	center := viz.Point{X: r.X, Y: r.Y}
	if node.Kind() == viz.KindWorkOrder {
		side := 2 * (r.Radius + pad)
		surface.StrokeRect(viz.Point{X: r.X - r.Radius - pad, Y: r.Y - r.Radius - pad}, side, side, c, alpha)
		return
	}
	surface.StrokeCircle(center, r.Radius+pad, c, alpha)
}
