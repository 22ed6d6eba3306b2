package river

import (
	"testing"
	"time"

	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/viztest"
)

// TestRiverPlacesNewestRight verifies the time axis and leftward drift with age.
func TestRiverPlacesNewestRight(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	s := New(viz.Options{Now: func() time.Time { return clock }})
	rec := viztest.New(1000, 300)
	fresh := now.Add(-time.Minute)
	stale := now.Add(-3 * 24 * time.Hour)
	data := domain.VisualizationData{
		Nodes: []domain.ProjectNode{
			{ID: "a", LastActivity: &fresh},
			{ID: "b", LastActivity: &stale},
			{ID: "c"},
		},
		WorkOrderNodes: []domain.WorkOrderNode{
			{ID: "wo", ProjectID: "a", Status: "ready", UpdatedAt: &fresh},
			{ID: "orphan", ProjectID: "zzz"},
		},
	}.Normalize()
	s.Init(rec, data)
	s.Render()

	byID := map[string]domain.Render{}
	for _, n := range s.Nodes() {
		byID[n.ID()] = n.Render()
	}
	if _, ok := byID["orphan"]; ok {
		t.Fatal("expected work orders without a lane to be skipped")
	}
	if !(byID["a"].X > byID["b"].X && byID["b"].X > byID["c"].X) {
		t.Fatalf("x order a=%v b=%v c=%v, want newest right", byID["a"].X, byID["b"].X, byID["c"].X)
	}
	start := byID["wo"].X

	for i := 0; i < 50; i++ {
		clock = clock.Add(2 * time.Hour)
		s.Render()
	}
	wo, _ := viz.FindNode(s.Nodes(), "wo")
	if wo.Render().X >= start {
		t.Fatalf("work order x = %v, want drift left of %v", wo.Render().X, start)
	}
}
