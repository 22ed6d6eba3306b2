// Package interact owns the pan/zoom transform and the pointer state machine
// that drives hover, selection and drag for whichever strategy is active.
package interact

import (
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/viz"
)

// State is one interaction state.
type State int

// State values.
const (
	StateIdle State = iota
	StateHoveringNode
	StatePanning
	StateDraggingNode
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateHoveringNode:
		return "hovering"
	case StatePanning:
		return "panning"
	case StateDraggingNode:
		return "dragging"
	default:
		return "idle"
	}
}

// Default interaction tuning.
const (
	DefaultDragThreshold = 4.0
	DefaultZoomFactor    = 1.15
	DefaultMinScale      = 0.25
	DefaultMaxScale      = 4.0
)

// Config tunes the controller.
type Config struct {
	// DragThreshold is the screen distance below which a press-release is a click.
	DragThreshold float64
	ZoomFactor    float64
	MinScale      float64
	MaxScale      float64
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		DragThreshold: DefaultDragThreshold,
		ZoomFactor:    DefaultZoomFactor,
		MinScale:      DefaultMinScale,
		MaxScale:      DefaultMaxScale,
	}
}

// normalize fills unset or invalid fields from defaults.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.DragThreshold < 0 || math.IsNaN(c.DragThreshold) {
		c.DragThreshold = def.DragThreshold
	}
	if c.ZoomFactor <= 1 {
		c.ZoomFactor = def.ZoomFactor
	}
	if c.MinScale <= 0 {
		c.MinScale = def.MinScale
	}
	if c.MaxScale <= 0 {
		c.MaxScale = def.MaxScale
	}
	if c.MinScale > c.MaxScale {
		c.MinScale, c.MaxScale = c.MaxScale, c.MinScale
	}
	return c
}

// Target is the node source the controller hit-tests against. Optional hooks
// (viz.HoverHandler, viz.ClickHandler, viz.DragHandler) are found by type assertion.
type Target interface {
	Nodes() []viz.NodeRef
}

// Capture acquires and releases exclusive pointer delivery for the drawing surface.
type Capture interface {
	Acquire() error
	Release() error
}

// Tooltip describes the hover tooltip anchor in screen space.
type Tooltip struct {
	At      viz.Point
	NodeID  string
	Visible bool
}

// Handlers is the pointer event handler set a host attaches to its surface.
type Handlers struct {
	Down  func(p viz.Point)
	Move  func(p viz.Point, pressed bool)
	Up    func(p viz.Point)
	Leave func()
	Wheel func(p viz.Point, ticks float64)
}

// Option configures a controller.
type Option func(*Controller)

// WithCapture installs a pointer capture implementation.
func WithCapture(c Capture) Option {
	return func(ctrl *Controller) {
		ctrl.capture = c
	}
}

// WithLogger installs a logger for ignored capture errors.
func WithLogger(logger *log.Logger) Option {
	return func(ctrl *Controller) {
		if logger != nil {
			ctrl.logger = logger
		}
	}
}

// Controller is the pointer-driven interaction state machine.
type Controller struct {
	cfg       Config
	transform viz.Transform
	target    Target
	capture   Capture
	logger    *log.Logger

	state    State
	pressed  bool
	moved    bool
	captured bool
	downAt   viz.Point
	lastAt   viz.Point
	// pressNode is the node under the pointer at press time.
	pressNode string

	dragStarted bool
	hoverID     string
	selectedID  string
	tooltip     Tooltip
}

// New constructs a controller.
func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg.normalize(),
		transform: viz.Identity(),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetTarget replaces the hit-test target and clears node-bound state.
func (c *Controller) SetTarget(t Target) {
	c.target = t
	c.hoverID = ""
	c.selectedID = ""
	c.tooltip = Tooltip{}
	c.pressed = false
	c.moved = false
	c.dragStarted = false
	c.pressNode = ""
	c.state = StateIdle
}

// Transform returns the current world-to-screen transform.
func (c *Controller) Transform() viz.Transform {
	return c.transform
}

// SetTransform replaces the transform.
func (c *Controller) SetTransform(t viz.Transform) {
	c.transform = t
}

// State returns the current interaction state.
func (c *Controller) State() State {
	return c.state
}

// IsPanning reports whether a pan is in progress.
func (c *Controller) IsPanning() bool {
	return c.state == StatePanning && c.moved
}

// Tooltip returns the current tooltip anchor.
func (c *Controller) Tooltip() Tooltip {
	return c.tooltip
}

// Selected returns the selected node resolved against the target's current nodes.
func (c *Controller) Selected() (viz.NodeRef, bool) {
	return c.resolve(c.selectedID)
}

// Hovered returns the hovered node resolved against the target's current nodes.
func (c *Controller) Hovered() (viz.NodeRef, bool) {
	return c.resolve(c.hoverID)
}

// SelectedID returns the selected node id.
func (c *Controller) SelectedID() string {
	return c.selectedID
}

// Handlers returns the pointer event handler set.
func (c *Controller) Handlers() Handlers {
	return Handlers{
		Down:  c.PointerDown,
		Move:  c.PointerMove,
		Up:    c.PointerUp,
		Leave: c.PointerLeave,
		Wheel: c.Wheel,
	}
}

// PointerDown begins a press at screen point p.
func (c *Controller) PointerDown(p viz.Point) {
	c.acquire()
	c.pressed = true
	c.moved = false
	c.dragStarted = false
	c.downAt = p
	c.lastAt = p
	c.pressNode = ""

	node, ok := c.hit(p)
	switch {
	case ok && c.dragHandler() != nil:
		c.pressNode = node.ID()
		c.state = StateDraggingNode
	case ok:
		c.pressNode = node.ID()
		c.state = StateHoveringNode
	default:
		c.state = StatePanning
	}
}

// PointerMove handles motion at screen point p; pressed reports whether a button is held.
func (c *Controller) PointerMove(p viz.Point, pressed bool) {
	if !pressed || !c.pressed {
		if c.pressed {
			c.finish(p)
		}
		c.hover(p)
		return
	}
	if !c.moved {
		if p.Dist(c.downAt) < c.cfg.DragThreshold {
			return
		}
		c.moved = true
		c.tooltip = Tooltip{}
		if c.state == StateHoveringNode {
			// A press on a node the strategy cannot drag pans instead.
			c.state = StatePanning
		}
	}
	switch c.state {
	case StatePanning:
		c.transform = c.transform.Pan(p.X-c.lastAt.X, p.Y-c.lastAt.Y)
	case StateDraggingNode:
		c.drag(p)
	}
	c.lastAt = p
}

// PointerUp ends a press at screen point p.
func (c *Controller) PointerUp(p viz.Point) {
	if !c.pressed {
		c.hover(p)
		return
	}
	c.finish(p)
	c.hover(p)
}

// PointerLeave ends any press and clears hover and tooltip.
func (c *Controller) PointerLeave() {
	if c.pressed {
		c.finish(c.lastAt)
	}
	c.setHover("")
	c.tooltip = Tooltip{}
	c.state = StateIdle
}

// Wheel zooms by ZoomFactor^ticks around screen point p.
func (c *Controller) Wheel(p viz.Point, ticks float64) {
	if ticks == 0 || math.IsNaN(ticks) || math.IsInf(ticks, 0) {
		return
	}
	c.ZoomAt(p, math.Pow(c.cfg.ZoomFactor, ticks))
}

// ZoomAt zooms by factor around screen point p, clamped to the configured scale range.
func (c *Controller) ZoomAt(p viz.Point, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	c.transform = c.transform.ZoomAt(p, factor, c.cfg.MinScale, c.cfg.MaxScale)
}

// PanBy shifts the transform by a screen-space delta.
func (c *Controller) PanBy(dx, dy float64) {
	c.transform = c.transform.Pan(dx, dy)
	c.tooltip = Tooltip{}
}

// Reset restores the identity transform.
func (c *Controller) Reset() {
	c.transform = viz.Identity()
	c.tooltip = Tooltip{}
}

// Select sets the selection without a pointer gesture and notifies click handlers.
func (c *Controller) Select(id string) {
	node, ok := c.resolve(id)
	if !ok {
		c.selectedID = ""
		c.notifyClick(nil)
		return
	}
	c.selectedID = node.ID()
	c.notifyClick(&node)
}

// finish finalizes a drag or resolves a click, then releases capture.
func (c *Controller) finish(p viz.Point) {
	if c.pressed && !c.moved && p.Dist(c.downAt) >= c.cfg.DragThreshold {
		// Terminals may drop motion while a button is held; the release is the last move.
		c.PointerMove(p, true)
	}
	switch {
	case c.state == StateDraggingNode && c.dragStarted:
		if node, ok := c.resolve(c.pressNode); ok {
			if h := c.dragHandler(); h != nil {
				h.OnNodeDragEnd(node, c.transform.ToWorld(p))
			}
		}
	case !c.moved:
		c.click(p)
	}
	c.pressed = false
	c.moved = false
	c.dragStarted = false
	c.pressNode = ""
	c.state = StateIdle
	c.release()
}

// click updates selection from the node under p.
func (c *Controller) click(p viz.Point) {
	node, ok := c.hit(p)
	if !ok {
		c.selectedID = ""
		c.notifyClick(nil)
		return
	}
	c.selectedID = node.ID()
	c.notifyClick(&node)
}

// drag forwards a drag step, starting the drag on first movement.
func (c *Controller) drag(p viz.Point) {
	h := c.dragHandler()
	node, ok := c.resolve(c.pressNode)
	if h == nil || !ok {
		return
	}
	world := c.transform.ToWorld(p)
	if !c.dragStarted {
		c.dragStarted = true
		h.OnNodeDragStart(node, world)
	}
	h.OnNodeDrag(node, world)
}

// hover re-evaluates the hovered node at p.
func (c *Controller) hover(p viz.Point) {
	node, ok := c.hit(p)
	if !ok {
		c.setHover("")
		c.tooltip = Tooltip{}
		c.state = StateIdle
		return
	}
	c.setHover(node.ID())
	c.tooltip = Tooltip{At: p, NodeID: node.ID(), Visible: true}
	c.state = StateHoveringNode
}

func (c *Controller) setHover(id string) {
	if id == c.hoverID {
		return
	}
	c.hoverID = id
	h, ok := c.target.(viz.HoverHandler)
	if !ok {
		return
	}
	if node, found := c.resolve(id); found {
		h.OnNodeHover(&node)
		return
	}
	h.OnNodeHover(nil)
}

func (c *Controller) notifyClick(node *viz.NodeRef) {
	if h, ok := c.target.(viz.ClickHandler); ok {
		h.OnNodeClick(node)
	}
}

func (c *Controller) dragHandler() viz.DragHandler {
	h, _ := c.target.(viz.DragHandler)
	return h
}

// hit returns the topmost node under screen point p.
func (c *Controller) hit(p viz.Point) (viz.NodeRef, bool) {
	if c.target == nil {
		return viz.NodeRef{}, false
	}
	return viz.HitTest(c.target.Nodes(), c.transform.ToWorld(p))
}

func (c *Controller) resolve(id string) (viz.NodeRef, bool) {
	if c.target == nil || id == "" {
		return viz.NodeRef{}, false
	}
	return viz.FindNode(c.target.Nodes(), id)
}

func (c *Controller) acquire() {
	if c.capture == nil {
		return
	}
	if err := c.capture.Acquire(); err != nil {
		c.logger.Debug("pointer capture acquire failed", "err", err)
		return
	}
	c.captured = true
}

// release drops pointer capture; failures are expected under leave races and ignored.
func (c *Controller) release() {
	if c.capture == nil || !c.captured {
		return
	}
	c.captured = false
	if err := c.capture.Release(); err != nil {
		c.logger.Debug("pointer capture release ignored", "err", err)
	}
}
