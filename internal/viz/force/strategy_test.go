package force

import (
	"testing"

	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/viztest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphData() domain.VisualizationData {
	est := 6.0
	return domain.VisualizationData{
		Nodes: []domain.ProjectNode{
			{ID: "p1", Name: "alpha", Status: "active", ConsumptionRate: 20},
			{ID: "p2", Name: "beta", Status: "blocked", NeedsHuman: true},
		},
		WorkOrderNodes: []domain.WorkOrderNode{
			{ID: "wo1", ProjectID: "p1", Status: "building", Priority: 3, Estimate: &est},
			{ID: "wo2", ProjectID: "p1", Status: "backlog"},
		},
		Edges: []domain.Edge{
			{Source: "wo2", Target: "wo1", Type: "dependency"},
			{Source: "p1", Target: "ghost", Type: "dependency"},
		},
	}.Normalize()
}

func newStrategy(t *testing.T, data domain.VisualizationData) (*Strategy, *viztest.Recorder) {
	t.Helper()
	s := New(viz.Options{})
	rec := viztest.New(800, 400)
	s.Init(rec, data)
	return s, rec
}

// TestForceSeedsDeterministically verifies fresh instances place new bodies identically.
func TestForceSeedsDeterministically(t *testing.T) {
	a, _ := newStrategy(t, graphData())
	b, _ := newStrategy(t, graphData())
	for _, id := range []string{"p1", "p2", "wo1", "wo2"} {
		ba, ok := a.Body(id)
		require.True(t, ok, id)
		bb, _ := b.Body(id)
		assert.Equal(t, ba.X, bb.X, id)
		assert.Equal(t, ba.Y, bb.Y, id)
	}
}

// TestForceRetainsBodiesAndReheats verifies retained state and alpha bump on structural change.
func TestForceRetainsBodiesAndReheats(t *testing.T) {
	s, _ := newStrategy(t, graphData())
	for i := 0; i < 200; i++ {
		s.Render()
	}
	require.Less(t, s.Alpha(), reheatAlpha)
	before, _ := s.Body("p1")

	s.Update(graphData())
	same, _ := s.Body("p1")
	assert.Equal(t, before, same)
	assert.Less(t, s.Alpha(), reheatAlpha, "identical snapshot must not reheat")

	data := graphData()
	data.Nodes = data.Nodes[:1]
	s.Update(data)
	assert.GreaterOrEqual(t, s.Alpha(), reheatAlpha)
	assert.Equal(t, 3, s.StateCount())
	_, ok := s.Body("p2")
	assert.False(t, ok)
	retained, _ := s.Body("p1")
	assert.Equal(t, before.X, retained.X)
}

// TestForceDragPinsAndReleases verifies drag hooks pin the body and warm the simulation.
func TestForceDragPinsAndReleases(t *testing.T) {
	s, _ := newStrategy(t, graphData())
	s.Render()
	node, ok := viz.FindNode(s.Nodes(), "p2")
	require.True(t, ok)

	s.OnNodeDragStart(node, viz.Point{X: 10, Y: 20})
	s.OnNodeDrag(node, viz.Point{X: 30, Y: 40})
	for i := 0; i < 5; i++ {
		s.Render()
	}
	body, _ := s.Body("p2")
	assert.Equal(t, 30.0, body.X)
	assert.Equal(t, 40.0, body.Y)
	assert.InDelta(t, dragAlphaTarget, s.sim.AlphaTarget(), 1e-9)

	s.OnNodeDragEnd(node, viz.Point{X: 30, Y: 40})
	body, _ = s.Body("p2")
	assert.Nil(t, body.FX)
	assert.Zero(t, s.sim.AlphaTarget())
}

// TestForceRenderEncodesGraph verifies placement, arrowheads, and dimming.
func TestForceRenderEncodesGraph(t *testing.T) {
	s, rec := newStrategy(t, graphData())
	s.Render()

	nodes := s.Nodes()
	require.Len(t, nodes, 4)
	for _, n := range nodes {
		assert.True(t, n.Render().Placed, n.ID())
	}
	// two ownership links and one dependency with a two-stroke arrowhead; the ghost edge is dropped
	assert.Equal(t, 5, rec.Count(viztest.OpLine))
	assert.Equal(t, 2, rec.Count(viztest.OpFillRect))
	assert.Equal(t, 1, rec.Count(viztest.OpStrokeCircle))

	p1, _ := viz.FindNode(nodes, "p1")
	s.OnNodeHover(&p1)
	rec.Clear(viz.ColorBackground)
	s.Render()
	for _, call := range rec.Calls {
		if call.Op == viztest.OpFillCircle && call.Alpha == dimAlpha {
			return
		}
	}
	t.Fatal("expected the unconnected project to be dimmed")
}

// TestForceRadiusEncoding verifies the log-scaled project radius bounds.
func TestForceRadiusEncoding(t *testing.T) {
	assert.Equal(t, minProjectRadius, ProjectRadius(0))
	assert.Equal(t, minProjectRadius, ProjectRadius(-5))
	assert.Equal(t, maxProjectRadius, ProjectRadius(1e9))
	assert.Greater(t, ProjectRadius(20), ProjectRadius(2))

	small := WorkOrderRadius(domain.WorkOrderNode{Status: domain.WorkOrderBacklog})
	big := WorkOrderRadius(domain.WorkOrderNode{Status: domain.WorkOrderBuilding, Priority: 4})
	assert.Greater(t, big, small)
}

// TestForceDestroyReleasesState verifies later calls are no-ops.
func TestForceDestroyReleasesState(t *testing.T) {
	s, _ := newStrategy(t, graphData())
	s.Destroy()
	s.Update(graphData())
	s.Render()
	assert.Empty(t, s.Nodes())
	assert.Zero(t, s.StateCount())
}
