package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hylla/orrery/internal/domain"
)

func TestCurrentSnapshotEnvelope(t *testing.T) {
	src := &fakeSource{data: sampleData()}
	svc := NewService(nil, src, nil, fixedClock(), ServiceConfig{SourceName: "fixture"})
	ctx := context.Background()

	snap, err := svc.CurrentSnapshot(ctx, false)
	if err != nil {
		t.Fatalf("CurrentSnapshot() error = %v", err)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if snap.Source != "fixture" || snap.Version != SnapshotVersion {
		t.Fatalf("unexpected envelope %#v", snap)
	}
	if _, err := svc.CurrentSnapshot(ctx, false); err != nil {
		t.Fatalf("CurrentSnapshot() error = %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected cached snapshot reused, got %d source calls", src.calls)
	}
	if _, err := svc.CurrentSnapshot(ctx, true); err != nil || src.calls != 2 {
		t.Fatalf("expected forced refresh, calls=%d err=%v", src.calls, err)
	}
}

func TestCurrentSnapshotServesStoreAfterRestart(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()
	first := NewService(repo, &fakeSource{data: sampleData()}, sequentialIDs(), fixedClock(), ServiceConfig{SourceName: "pcc"})
	if _, err := first.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	down := &fakeSource{err: errors.New("pcc down")}
	second := NewService(repo, down, sequentialIDs(), fixedClock(), ServiceConfig{SourceName: "pcc"})
	snap, err := second.CurrentSnapshot(ctx, false)
	if err != nil {
		t.Fatalf("CurrentSnapshot() error = %v", err)
	}
	if down.calls != 0 {
		t.Fatalf("expected cached read without polling, got %d calls", down.calls)
	}
	if !snap.Stale || len(snap.Data.Nodes) != 3 {
		t.Fatalf("expected stale cached envelope, got %#v", snap)
	}

	refreshed, err := second.CurrentSnapshot(ctx, true)
	if err != nil {
		t.Fatalf("CurrentSnapshot(refresh) error = %v", err)
	}
	if !refreshed.Stale || refreshed.Error == "" {
		t.Fatalf("expected stale envelope carrying the source error, got %#v", refreshed)
	}
}

func TestCurrentSnapshotWithoutSourceOrCacheFails(t *testing.T) {
	svc := NewService(nil, &fakeSource{err: errors.New("boom")}, nil, fixedClock(), ServiceConfig{})
	if _, err := svc.CurrentSnapshot(context.Background(), false); err == nil {
		t.Fatal("expected error with no source data and no cache")
	}
}

func TestExportSnapshotNormalizesData(t *testing.T) {
	svc := NewService(nil, nil, nil, fixedClock(), ServiceConfig{})
	fetched := time.Date(2026, 2, 21, 11, 0, 0, 0, time.FixedZone("x", 3600))
	snap := svc.ExportSnapshot(Refresh{
		Data: domain.VisualizationData{
			Nodes: []domain.ProjectNode{{ID: "alpha", ActivityLevel: 3}, {ID: ""}},
		},
		FetchedAt: fetched,
		Source:    "fixture",
		Stale:     true,
		Err:       errors.New("pcc down"),
	})
	if snap.Version != SnapshotVersion || snap.Error != "pcc down" || !snap.Stale {
		t.Fatalf("unexpected envelope %#v", snap)
	}
	if snap.FetchedAt.Location() != time.UTC || !snap.FetchedAt.Equal(fetched) {
		t.Fatalf("expected UTC fetch time, got %v", snap.FetchedAt)
	}
	if !snap.ExportedAt.Equal(fixedClock()()) {
		t.Fatalf("unexpected export time %v", snap.ExportedAt)
	}
	if len(snap.Data.Nodes) != 1 || snap.Data.Nodes[0].ActivityLevel != 1 {
		t.Fatalf("expected normalized nodes, got %#v", snap.Data.Nodes)
	}
	if snap.Data.Edges == nil || snap.Data.WorkOrderNodes == nil {
		t.Fatal("expected empty slices instead of nil")
	}
}

func TestSnapshotValidate(t *testing.T) {
	valid := Snapshot{Version: SnapshotVersion, Data: sampleData()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cases := map[string]Snapshot{
		"version":   {Version: "v0"},
		"empty id":  {Version: SnapshotVersion, Data: domain.VisualizationData{Nodes: []domain.ProjectNode{{ID: " "}}}},
		"duplicate": {Version: SnapshotVersion, Data: domain.VisualizationData{Nodes: []domain.ProjectNode{{ID: "a"}, {ID: "a"}}}},
	}
	for name, snap := range cases {
		if err := snap.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("%s: expected ErrInvalidSnapshot, got %v", name, err)
		}
	}
}
