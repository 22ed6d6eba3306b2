package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hylla/orrery/internal/app"
	"github.com/hylla/orrery/internal/domain"
)

// stubSource returns one fixed snapshot or error.
type stubSource struct {
	data domain.VisualizationData
	err  error
}

// Snapshot returns the configured snapshot.
func (s *stubSource) Snapshot(context.Context) (domain.VisualizationData, error) {
	return s.data, s.err
}

// newAdapter builds an adapter over a source-backed service with no store.
func newAdapter(src app.SnapshotSource) *AppServiceAdapter {
	clock := func() time.Time { return time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC) }
	return NewAppServiceAdapter(app.NewService(nil, src, nil, clock, app.ServiceConfig{}))
}

// adapterFixture returns a small snapshot with one blocked and one hot project.
func adapterFixture() domain.VisualizationData {
	return domain.VisualizationData{
		Nodes: []domain.ProjectNode{
			{ID: "alpha", Name: "Alpha", Status: domain.ProjectStatusActive, IsActive: true, ActivityLevel: 1},
			{ID: "beta", Name: "Beta", Status: domain.ProjectStatusBlocked, IsActive: true, NeedsHuman: true},
		},
		WorkOrderNodes: []domain.WorkOrderNode{
			{ID: "WO-1", ProjectID: "alpha", Status: domain.WorkOrderBuilding},
			{ID: "WO-2", ProjectID: "alpha", Status: domain.WorkOrderDone},
		},
		RunsByProject: map[string][]domain.RunSummary{
			"alpha": {{WorkOrderID: "WO-1", Status: "testing"}},
		},
	}
}

// TestAdapterSnapshotHashIsStable verifies identical content yields the same state hash.
func TestAdapterSnapshotHashIsStable(t *testing.T) {
	src := &stubSource{data: adapterFixture()}
	adapter := newAdapter(src)

	first, err := adapter.Snapshot(context.Background(), SnapshotRequest{})
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	src.data.Timestamp = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	second, err := adapter.Snapshot(context.Background(), SnapshotRequest{Refresh: true})
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if first.StateHash == "" || first.StateHash != second.StateHash {
		t.Fatalf("expected stable hash, got %q vs %q", first.StateHash, second.StateHash)
	}

	src.data.Nodes[0].ActivityLevel = 0.2
	third, err := adapter.Snapshot(context.Background(), SnapshotRequest{Refresh: true})
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if third.StateHash == first.StateHash {
		t.Fatal("expected hash to change with content")
	}
}

// TestAdapterAttentionCountsHumanBlocked verifies the overview counters.
func TestAdapterAttentionCountsHumanBlocked(t *testing.T) {
	adapter := newAdapter(&stubSource{data: adapterFixture()})
	overview, err := adapter.Attention(context.Background(), AttentionRequest{Limit: 5})
	if err != nil {
		t.Fatalf("Attention() error = %v", err)
	}
	if len(overview.Items) != 2 || overview.NeedsHuman != 1 {
		t.Fatalf("unexpected overview %#v", overview)
	}
	if overview.Items[0].ProjectID != "beta" {
		t.Fatalf("expected beta first, got %#v", overview.Items[0])
	}
	if _, err := adapter.Attention(context.Background(), AttentionRequest{Limit: 1000}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// TestAdapterProjectDetail verifies derived heat, zone, and per-work-order phases.
func TestAdapterProjectDetail(t *testing.T) {
	adapter := newAdapter(&stubSource{data: adapterFixture()})
	detail, err := adapter.Project(context.Background(), ProjectRequest{ProjectID: "alpha"})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if detail.Heat != 1 || detail.Zone != "focus" {
		t.Fatalf("unexpected heat/zone %v %q", detail.Heat, detail.Zone)
	}
	if len(detail.WorkOrders) != 2 {
		t.Fatalf("unexpected work orders %#v", detail.WorkOrders)
	}
	if detail.WorkOrders[0].Phase != domain.RunPhaseTesting || detail.WorkOrders[0].Archived {
		t.Fatalf("unexpected WO-1 detail %#v", detail.WorkOrders[0])
	}
	if !detail.WorkOrders[1].Archived {
		t.Fatalf("expected done work order archived, got %#v", detail.WorkOrders[1])
	}

	if _, err := adapter.Project(context.Background(), ProjectRequest{ProjectID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := adapter.Project(context.Background(), ProjectRequest{ProjectID: " "}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// TestAdapterMapsUnavailable verifies a failing source with no cache maps to ErrUnavailable.
func TestAdapterMapsUnavailable(t *testing.T) {
	adapter := newAdapter(&stubSource{err: errors.New("pcc down")})
	if _, err := adapter.Snapshot(context.Background(), SnapshotRequest{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var nilAdapter *AppServiceAdapter
	if _, err := nilAdapter.Attention(context.Background(), AttentionRequest{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from nil adapter, got %v", err)
	}
}
