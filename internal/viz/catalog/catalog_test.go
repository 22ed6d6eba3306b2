package catalog

import (
	"slices"
	"testing"
	"time"

	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/orbital"
	"github.com/hylla/orrery/internal/viz/viztest"
)

// TestDefaultRegistersEveryStrategy verifies each strategy survives a full lifecycle.
func TestDefaultRegistersEveryStrategy(t *testing.T) {
	reg := Default(orbital.Config{})
	want := []string{"orbital", "orbital-work-orders", "force", "pulse", "heatmap", "river"}
	if !slices.Equal(reg.IDs(), want) {
		t.Fatalf("IDs() = %v, want %v", reg.IDs(), want)
	}
	if _, ok := reg.Lookup(DefaultID); !ok {
		t.Fatalf("DefaultID %q not registered", DefaultID)
	}

	now := time.Unix(1_700_000_000, 0)
	opts := viz.Options{Now: func() time.Time { return now }, Filter: domain.WorkOrderFilterAll}
	data := domain.VisualizationData{
		Nodes:          []domain.ProjectNode{{ID: "p", Status: "active", IsActive: true, ActivityLevel: 0.7}},
		WorkOrderNodes: []domain.WorkOrderNode{{ID: "w", ProjectID: "p", Status: "building"}},
	}.Normalize()
	for _, id := range want {
		s, err := reg.New(id, opts)
		if err != nil {
			t.Fatalf("New(%q) error = %v", id, err)
		}
		if s.ID() != id {
			t.Fatalf("New(%q).ID() = %q", id, s.ID())
		}
		s.Render()
		rec := viztest.New(640, 320)
		s.Init(rec, data)
		for i := 0; i < 3; i++ {
			now = now.Add(33 * time.Millisecond)
			s.Render()
		}
		if len(s.Nodes()) == 0 {
			t.Fatalf("%s drew no nodes", id)
		}
		s.Update(domain.VisualizationData{}.Normalize())
		s.Render()
		if len(s.Nodes()) != 0 {
			t.Fatalf("%s kept %d nodes after empty update", id, len(s.Nodes()))
		}
		s.Destroy()
		s.Render()
	}
}
