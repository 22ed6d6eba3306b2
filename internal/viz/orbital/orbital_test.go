package orbital

import (
	"fmt"
	"testing"
	"time"

	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/viztest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newProjects(t *testing.T, clock *fakeClock, data domain.VisualizationData) (*Strategy, *viztest.Recorder) {
	t.Helper()
	s := New(ModeProjects, Config{}, viz.Options{Now: clock.Now})
	rec := viztest.New(800, 400)
	s.Init(rec, data.Normalize())
	return s, rec
}

func run(s *Strategy, clock *fakeClock, frames int, step time.Duration) {
	for i := 0; i < frames; i++ {
		clock.Advance(step)
		s.Render()
	}
}

func mixedSnapshot(n int) domain.VisualizationData {
	statuses := []domain.ProjectStatus{"active", "blocked", "parked", "bogus"}
	phases := []domain.RunPhase{"", "building", "testing", "ai_review", "waiting"}
	nodes := make([]domain.ProjectNode, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, domain.ProjectNode{
			ID:              fmt.Sprintf("p%02d", i),
			Status:          statuses[i%len(statuses)],
			IsActive:        i%3 == 0,
			ActivityLevel:   float64(i%11)/5 - 0.4,
			NeedsHuman:      i%7 == 0,
			ConsumptionRate: float64(i * 3),
			Phase:           phases[i%len(phases)],
		})
	}
	return domain.VisualizationData{Nodes: nodes}
}

// TestHeatAndRadiusStayBounded verifies heat in [0,1] and radius in [minR, archive].
func TestHeatAndRadiusStayBounded(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s, _ := newProjects(t, clock, mixedSnapshot(24))
	layout := s.Layout()
	for round := 0; round < 6; round++ {
		s.Update(mixedSnapshot(24 - round*3).Normalize())
		run(s, clock, 20, 80*time.Millisecond)
		clock.Advance(5 * time.Second)
		s.Render()
		for _, node := range s.Nodes() {
			st, ok := s.Inspect(node.ID())
			require.True(t, ok, node.ID())
			assert.GreaterOrEqual(t, st.Heat, 0.0)
			assert.LessOrEqual(t, st.Heat, 1.0)
			assert.GreaterOrEqual(t, st.Radius, layout.MinRadius())
			assert.LessOrEqual(t, st.Radius, layout.Archive)
		}
	}
}

// TestUpdateIsIdempotent verifies a repeated snapshot does not move targets.
func TestUpdateIsIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	data := mixedSnapshot(10).Normalize()
	s, _ := newProjects(t, clock, data)
	run(s, clock, 5, 50*time.Millisecond)

	s.Update(data)
	before := map[string]BodyState{}
	for _, node := range s.Nodes() {
		before[node.ID()], _ = s.Inspect(node.ID())
	}
	s.Update(data)
	for id, want := range before {
		got, _ := s.Inspect(id)
		assert.Equal(t, want.TargetHeat, got.TargetHeat, id)
		assert.Equal(t, want.TargetRadius, got.TargetRadius, id)
		assert.Equal(t, want.Omega, got.Omega, id)
	}
}

// TestActiveAndParkedProjectsSettle verifies the hot/cold settling scenario.
func TestActiveAndParkedProjectsSettle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	data := domain.VisualizationData{Nodes: []domain.ProjectNode{
		{ID: "hot", Status: "active", IsActive: true, ActivityLevel: 0.9},
		{ID: "cold", Status: "parked", IsActive: false, ActivityLevel: 0.05},
	}}
	s, _ := newProjects(t, clock, data)
	run(s, clock, 300, 50*time.Millisecond)

	hot, _ := s.Inspect("hot")
	cold, _ := s.Inspect("cold")
	assert.GreaterOrEqual(t, hot.Heat, 0.65)
	assert.LessOrEqual(t, cold.Heat, 0.2)
	assert.Less(t, hot.Radius, cold.Radius)
	assert.GreaterOrEqual(t, cold.Radius, 0.66)
	assert.True(t, cold.Archived)
	assert.Contains(t, []string{"focus", "active"}, hot.Zone)
}

// TestVanishedNodesAreCollected verifies state is dropped with its id.
func TestVanishedNodesAreCollected(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s, _ := newProjects(t, clock, mixedSnapshot(6))
	run(s, clock, 2, 50*time.Millisecond)
	require.Len(t, s.Nodes(), 6)

	s.Update(mixedSnapshot(4).Normalize())
	assert.Len(t, s.Nodes(), 4)
	assert.Equal(t, 4, s.StateCount())
	_, ok := s.Inspect("p05")
	assert.False(t, ok)
	run(s, clock, 1, 50*time.Millisecond)
	assert.Len(t, s.Nodes(), 4)
}

// TestSeedingIsDeterministic verifies two fresh instances derive identical state.
func TestSeedingIsDeterministic(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	a, _ := newProjects(t, clock, mixedSnapshot(8))
	b, _ := newProjects(t, clock, mixedSnapshot(8))
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("p%02d", i)
		sa, _ := a.Inspect(id)
		sb, _ := b.Inspect(id)
		assert.Equal(t, sa.Angle, sb.Angle, id)
		assert.Equal(t, sa.TargetRadius, sb.TargetRadius, id)
	}

	// Re-appearance after a gap reproduces the same seed.
	first, _ := a.Inspect("p07")
	a.Update(mixedSnapshot(3).Normalize())
	a.Update(mixedSnapshot(8).Normalize())
	again, _ := a.Inspect("p07")
	assert.Equal(t, first.Angle, again.Angle)
	assert.Equal(t, first.TargetRadius, again.TargetRadius)
}

// TestFocusMovesBetweenNodes verifies only one node is focused at a time.
func TestFocusMovesBetweenNodes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	data := domain.VisualizationData{Nodes: []domain.ProjectNode{
		{ID: "a", Status: "blocked", ActivityLevel: 0.5},
		{ID: "b", Status: "blocked", ActivityLevel: 0.5},
	}}
	s, _ := newProjects(t, clock, data)
	run(s, clock, 1, 50*time.Millisecond)

	nodeA, ok := viz.FindNode(s.Nodes(), "a")
	require.True(t, ok)
	s.OnNodeClick(&nodeA)
	run(s, clock, 60, 50*time.Millisecond)
	aFocused, _ := s.Inspect("a")
	require.True(t, aFocused.Focused)
	assert.InDelta(t, focusRadius, aFocused.Radius, 0.02)

	nodeB, ok := viz.FindNode(s.Nodes(), "b")
	require.True(t, ok)
	bBefore, _ := s.Inspect("b")
	s.OnNodeClick(&nodeB)
	assert.Equal(t, "b", s.FocusedID())
	run(s, clock, 1, 50*time.Millisecond)

	aAfter, _ := s.Inspect("a")
	bAfter, _ := s.Inspect("b")
	assert.False(t, aAfter.Focused)
	assert.True(t, bAfter.Focused)
	assert.Greater(t, aAfter.Radius, aFocused.Radius)
	assert.Less(t, bAfter.Radius, bBefore.Radius)

	// Focus expires after its duration.
	run(s, clock, 200, 50*time.Millisecond)
	assert.Empty(t, s.FocusedID())
	bSettled, _ := s.Inspect("b")
	assert.InDelta(t, bSettled.TargetRadius, bSettled.Radius, 0.01)
}

// TestAngleAdvancesOnlyWhileWorked verifies idle and waiting nodes hold their angle.
func TestAngleAdvancesOnlyWhileWorked(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	for _, tc := range []struct {
		node  domain.ProjectNode
		moves bool
	}{
		{node: domain.ProjectNode{ID: "w", Status: "active", IsActive: true, Phase: domain.RunPhaseBuilding}, moves: true},
		{node: domain.ProjectNode{ID: "i", Status: "active", ActivityLevel: 0.4}, moves: false},
		{node: domain.ProjectNode{ID: "h", Status: "active", IsActive: true, NeedsHuman: true, Phase: domain.RunPhaseTesting}, moves: false},
	} {
		s, _ := newProjects(t, clock, domain.VisualizationData{Nodes: []domain.ProjectNode{tc.node}})
		before, _ := s.Inspect(tc.node.ID)
		run(s, clock, 10, 50*time.Millisecond)
		after, _ := s.Inspect(tc.node.ID)
		if tc.moves {
			assert.NotEqual(t, before.Angle, after.Angle, tc.node.ID)
			assert.GreaterOrEqual(t, after.Omega, minAngularSpeed)
			assert.LessOrEqual(t, after.Omega, maxAngularSpeed)
		} else {
			assert.Equal(t, before.Angle, after.Angle, tc.node.ID)
		}
	}
}

// TestRenderIsSafeOutsideLifecycle verifies render before init and after destroy draws nothing.
func TestRenderIsSafeOutsideLifecycle(t *testing.T) {
	s := New(ModeProjects, Config{}, viz.Options{})
	s.Render()
	assert.Empty(t, s.Nodes())

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s, rec := newProjects(t, clock, domain.VisualizationData{})
	s.Render()
	assert.Equal(t, 0, rec.Count(viztest.OpText))

	s.Update(mixedSnapshot(3).Normalize())
	s.Destroy()
	s.Update(mixedSnapshot(3).Normalize())
	s.Render()
	assert.Empty(t, s.Nodes())
	assert.Equal(t, 0, s.StateCount())
}

// TestWorkOrderModeFiltersAndHeats verifies work-order mode uses run phases and filters.
func TestWorkOrderModeFiltersAndHeats(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	data := domain.VisualizationData{
		WorkOrderNodes: []domain.WorkOrderNode{
			{ID: "wo-build", Status: "ready", ProjectID: "p"},
			{ID: "wo-backlog", Status: "backlog", ProjectID: "p"},
			{ID: "wo-pinned", Status: "done", ProjectID: "p"},
		},
		RunsByProject: map[string][]domain.RunSummary{
			"p": {{WorkOrderID: "wo-build", Status: "waiting_for_input"}},
		},
	}
	s := New(ModeWorkOrders, Config{}, viz.Options{Now: clock.Now, Pinned: []string{"wo-pinned"}})
	s.Init(viztest.New(800, 400), data.Normalize())
	assert.Equal(t, WorkOrdersID, s.ID())
	assert.Len(t, s.Nodes(), 2)

	st, ok := s.Inspect("wo-build")
	require.True(t, ok)
	assert.InDelta(t, 0.95, st.TargetHeat, 1e-9)
	assert.False(t, st.Worked)

	s.SetWorkOrderFilter(domain.WorkOrderFilterAll, nil)
	s.Update(data.Normalize())
	assert.Len(t, s.Nodes(), 3)

	run(s, clock, 3, 50*time.Millisecond)
	for _, node := range s.Nodes() {
		assert.Equal(t, viz.KindWorkOrder, node.Kind())
		assert.True(t, node.Render().Placed, node.ID())
	}
}

// TestUpdateKeepsRetainedNodesHittable verifies a snapshot update does not drop drawn positions.
func TestUpdateKeepsRetainedNodesHittable(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	data := mixedSnapshot(6).Normalize()
	s, _ := newProjects(t, clock, data)
	run(s, clock, 3, 50*time.Millisecond)

	placed := map[string]domain.Render{}
	for _, node := range s.Nodes() {
		placed[node.ID()] = node.Render()
	}
	require.NotEmpty(t, placed)

	s.Update(data)
	hits := 0
	for _, node := range s.Nodes() {
		want, ok := placed[node.ID()]
		if !ok {
			continue
		}
		assert.Equal(t, want, node.Render(), node.ID())
		if node.Hit(viz.Point{X: want.X, Y: want.Y}) {
			hits++
		}
	}
	assert.Equal(t, len(placed), hits)
}
