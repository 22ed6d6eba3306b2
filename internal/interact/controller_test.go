package interact

import (
	"errors"
	"testing"

	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget is a hit-test target with optional hooks recorded.
type fakeTarget struct {
	projects []*domain.ProjectNode
	hovers   []string
	clicks   []string
}

func newFakeTarget() *fakeTarget {
	a := &domain.ProjectNode{ID: "a"}
	a.Render.Place(100, 100, 10)
	b := &domain.ProjectNode{ID: "b"}
	b.Render.Place(200, 100, 10)
	return &fakeTarget{projects: []*domain.ProjectNode{a, b}}
}

func (f *fakeTarget) Nodes() []viz.NodeRef {
	out := make([]viz.NodeRef, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, viz.ProjectRef(p))
	}
	return out
}

func (f *fakeTarget) OnNodeHover(node *viz.NodeRef) {
	if node == nil {
		f.hovers = append(f.hovers, "")
		return
	}
	f.hovers = append(f.hovers, node.ID())
}

func (f *fakeTarget) OnNodeClick(node *viz.NodeRef) {
	if node == nil {
		f.clicks = append(f.clicks, "")
		return
	}
	f.clicks = append(f.clicks, node.ID())
}

// dragTarget adds drag hooks.
type dragTarget struct {
	*fakeTarget
	events []string
}

func (d *dragTarget) OnNodeDragStart(node viz.NodeRef, _ viz.Point) {
	d.events = append(d.events, "start:"+node.ID())
}

func (d *dragTarget) OnNodeDrag(node viz.NodeRef, _ viz.Point) {
	d.events = append(d.events, "drag:"+node.ID())
}

func (d *dragTarget) OnNodeDragEnd(node viz.NodeRef, _ viz.Point) {
	d.events = append(d.events, "end:"+node.ID())
}

// fakeCapture counts capture calls and fails release.
type fakeCapture struct {
	acquired int
	released int
}

func (f *fakeCapture) Acquire() error { f.acquired++; return nil }
func (f *fakeCapture) Release() error {
	f.released++
	return errors.New("capture already lost")
}

// TestHoverTransitions verifies hover re-evaluation and tooltip tracking.
func TestHoverTransitions(t *testing.T) {
	target := newFakeTarget()
	c := New(DefaultConfig())
	c.SetTarget(target)

	c.PointerMove(viz.Point{X: 102, Y: 99}, false)
	if c.State() != StateHoveringNode {
		t.Fatalf("State() = %v, want hovering", c.State())
	}
	if tip := c.Tooltip(); !tip.Visible || tip.NodeID != "a" || tip.At.X != 102 {
		t.Fatalf("Tooltip() = %+v, want visible on a", tip)
	}
	c.PointerMove(viz.Point{X: 103, Y: 99}, false)
	c.PointerMove(viz.Point{X: 150, Y: 150}, false)
	if c.State() != StateIdle {
		t.Fatalf("State() = %v, want idle", c.State())
	}
	assert.Equal(t, []string{"a", ""}, target.hovers)

	c.PointerMove(viz.Point{X: 200, Y: 100}, false)
	c.PointerLeave()
	if c.Tooltip().Visible {
		t.Fatal("expected leave to clear tooltip")
	}
	if _, ok := c.Hovered(); ok {
		t.Fatal("expected leave to clear hover")
	}
}

// TestClickUnderThresholdSelects verifies jitter below the threshold still clicks.
func TestClickUnderThresholdSelects(t *testing.T) {
	target := newFakeTarget()
	c := New(DefaultConfig())
	c.SetTarget(target)

	c.PointerDown(viz.Point{X: 100, Y: 100})
	c.PointerMove(viz.Point{X: 102, Y: 101}, true)
	c.PointerUp(viz.Point{X: 102, Y: 101})

	node, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", node.ID())
	assert.Equal(t, viz.Identity(), c.Transform())

	c.PointerDown(viz.Point{X: 10, Y: 10})
	c.PointerUp(viz.Point{X: 11, Y: 10})
	if _, ok := c.Selected(); ok {
		t.Fatal("expected click on empty space to clear selection")
	}
	assert.Equal(t, []string{"a", ""}, target.clicks)
}

// TestPanAddsRawDelta verifies panning past the threshold moves the offset.
func TestPanAddsRawDelta(t *testing.T) {
	c := New(DefaultConfig())
	c.SetTarget(newFakeTarget())

	c.PointerDown(viz.Point{X: 10, Y: 10})
	c.PointerMove(viz.Point{X: 12, Y: 10}, true)
	assert.Equal(t, viz.Identity(), c.Transform(), "under threshold must not pan")
	c.PointerMove(viz.Point{X: 20, Y: 15}, true)
	assert.True(t, c.IsPanning())
	c.PointerMove(viz.Point{X: 25, Y: 15}, true)
	c.PointerUp(viz.Point{X: 25, Y: 15})

	tr := c.Transform()
	assert.InDelta(t, 15, tr.OffsetX, 1e-9)
	assert.InDelta(t, 5, tr.OffsetY, 1e-9)
	assert.False(t, c.IsPanning())
	assert.Equal(t, StateIdle, c.State())
}

// TestDragLifecycle verifies drag start fires once and drag end finalizes.
func TestDragLifecycle(t *testing.T) {
	target := &dragTarget{fakeTarget: newFakeTarget()}
	capture := &fakeCapture{}
	c := New(DefaultConfig(), WithCapture(capture))
	c.SetTarget(target)

	c.PointerDown(viz.Point{X: 200, Y: 100})
	require.Equal(t, StateDraggingNode, c.State())
	c.PointerMove(viz.Point{X: 210, Y: 100}, true)
	c.PointerMove(viz.Point{X: 220, Y: 100}, true)
	c.PointerUp(viz.Point{X: 220, Y: 100})

	assert.Equal(t, []string{"start:b", "drag:b", "drag:b", "end:b"}, target.events)
	assert.Empty(t, target.clicks)
	assert.Equal(t, 1, capture.acquired)
	assert.Equal(t, 1, capture.released)
	assert.Equal(t, viz.Identity(), c.Transform())
}

// TestDragWithoutMovementClicks verifies a still press on a draggable node selects it.
func TestDragWithoutMovementClicks(t *testing.T) {
	target := &dragTarget{fakeTarget: newFakeTarget()}
	c := New(DefaultConfig())
	c.SetTarget(target)

	c.PointerDown(viz.Point{X: 100, Y: 100})
	c.PointerUp(viz.Point{X: 101, Y: 100})
	assert.Empty(t, target.events)
	assert.Equal(t, "a", c.SelectedID())
}

// TestReleaseFarFromPressWithoutMotion verifies a release past the threshold is a pan or drag, never a click.
func TestReleaseFarFromPressWithoutMotion(t *testing.T) {
	target := newFakeTarget()
	c := New(DefaultConfig())
	c.SetTarget(target)
	c.Select("a")
	target.clicks = nil

	c.PointerDown(viz.Point{X: 10, Y: 10})
	c.PointerUp(viz.Point{X: 40, Y: 30})
	assert.Equal(t, "a", c.SelectedID(), "a pan must not clear the selection")
	assert.Empty(t, target.clicks)
	tr := c.Transform()
	assert.InDelta(t, 30, tr.OffsetX, 1e-9)
	assert.InDelta(t, 20, tr.OffsetY, 1e-9)
	assert.Equal(t, StateIdle, c.State())

	dragger := &dragTarget{fakeTarget: newFakeTarget()}
	d := New(DefaultConfig())
	d.SetTarget(dragger)
	d.PointerDown(viz.Point{X: 200, Y: 100})
	d.PointerUp(viz.Point{X: 230, Y: 100})
	assert.Equal(t, []string{"start:b", "drag:b", "end:b"}, dragger.events)
	assert.Empty(t, dragger.clicks)
}

// TestWheelZoomKeepsAnchorAndClamps verifies zoom-to-point.
func TestWheelZoomKeepsAnchorAndClamps(t *testing.T) {
	c := New(DefaultConfig())
	anchor := viz.Point{X: 320, Y: 200}
	before := c.Transform().ToWorld(anchor)
	c.Wheel(anchor, 3)
	after := c.Transform().ToScreen(before)
	assert.InDelta(t, anchor.X, after.X, 1e-9)
	assert.InDelta(t, anchor.Y, after.Y, 1e-9)

	for i := 0; i < 50; i++ {
		c.Wheel(anchor, 1)
	}
	assert.InDelta(t, DefaultMaxScale, c.Transform().Scale, 1e-9)
	for i := 0; i < 100; i++ {
		c.Wheel(anchor, -1)
	}
	assert.InDelta(t, DefaultMinScale, c.Transform().Scale, 1e-9)

	c.Reset()
	assert.Equal(t, viz.Identity(), c.Transform())
}

// TestHitTestUsesTransform verifies hit-testing runs in world space.
func TestHitTestUsesTransform(t *testing.T) {
	target := newFakeTarget()
	c := New(DefaultConfig())
	c.SetTarget(target)
	c.SetTransform(viz.Transform{OffsetX: 50, OffsetY: 0, Scale: 2})

	c.PointerMove(viz.Point{X: 250, Y: 200}, false)
	node, ok := c.Hovered()
	require.True(t, ok)
	assert.Equal(t, "a", node.ID())
}
