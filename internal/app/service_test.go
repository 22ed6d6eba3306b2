package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/hylla/orrery/internal/domain"
)

type fakeRepo struct {
	mu        sync.Mutex
	prefs     *domain.Preferences
	snapshots []domain.SnapshotRecord
	saveErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{}
}

func (f *fakeRepo) GetPreferences(context.Context) (domain.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefs == nil {
		return domain.Preferences{}, ErrNotFound
	}
	return *f.prefs, nil
}

func (f *fakeRepo) SavePreferences(_ context.Context, p domain.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs = &p
	return nil
}

func (f *fakeRepo) SaveSnapshot(_ context.Context, rec domain.SnapshotRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshots = append(f.snapshots, rec)
	return nil
}

func (f *fakeRepo) LatestSnapshot(context.Context) (domain.SnapshotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return domain.SnapshotRecord{}, ErrNotFound
	}
	return f.snapshots[len(f.snapshots)-1], nil
}

func (f *fakeRepo) PruneSnapshots(_ context.Context, keep int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) <= keep {
		return 0, nil
	}
	pruned := len(f.snapshots) - keep
	f.snapshots = slices.Clone(f.snapshots[pruned:])
	return pruned, nil
}

type fakeSource struct {
	data  domain.VisualizationData
	err   error
	calls int
}

func (f *fakeSource) Snapshot(context.Context) (domain.VisualizationData, error) {
	f.calls++
	if f.err != nil {
		return domain.VisualizationData{}, f.err
	}
	return f.data, nil
}

func sampleData() domain.VisualizationData {
	return domain.VisualizationData{
		Nodes: []domain.ProjectNode{
			{ID: "alpha", Name: "Alpha", Status: domain.ProjectStatusActive, IsActive: true, ActivityLevel: 0.9},
			{ID: "beta", Name: "Beta", Status: domain.ProjectStatusActive, NeedsHuman: true, EscalationCount: 2},
			{ID: "gamma", Name: "Gamma", Status: domain.ProjectStatusParked},
		},
		WorkOrderNodes: []domain.WorkOrderNode{
			{ID: "WO-2", ProjectID: "beta", Status: domain.WorkOrderBuilding},
			{ID: "WO-1", ProjectID: "beta", Status: domain.WorkOrderYouReview},
		},
		RunsByProject: map[string][]domain.RunSummary{
			"beta": {{WorkOrderID: "WO-2", Status: "waiting_for_input"}},
		},
	}
}

func fixedClock() Clock {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return "snap-" + string(rune('0'+n))
	}
}

func TestRefreshCachesAndPrunes(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{data: sampleData()}
	svc := NewService(repo, src, sequentialIDs(), fixedClock(), ServiceConfig{SnapshotRetention: 2})

	for range 3 {
		got, err := svc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if got.Stale || got.Source != "pcc" || len(got.Data.Nodes) != 3 {
			t.Fatalf("unexpected refresh %#v", got)
		}
		if got.Data.Timestamp.IsZero() {
			t.Fatal("expected timestamp stamped on refresh")
		}
	}
	if len(repo.snapshots) != 2 {
		t.Fatalf("expected 2 cached snapshots, got %d", len(repo.snapshots))
	}
	if repo.snapshots[1].ID != "snap-3" {
		t.Fatalf("unexpected newest snapshot id %q", repo.snapshots[1].ID)
	}
}

func TestRefreshFallsBackToCache(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{data: sampleData()}
	svc := NewService(repo, src, sequentialIDs(), fixedClock(), ServiceConfig{})
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	sourceErr := errors.New("pcc down")
	src.err = sourceErr
	got, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !got.Stale || !errors.Is(got.Err, sourceErr) || len(got.Data.Nodes) != 3 {
		t.Fatalf("expected stale cached refresh, got %#v", got)
	}
}

func TestRefreshFallsBackToStoreAcrossRestart(t *testing.T) {
	repo := newFakeRepo()
	first := NewService(repo, &fakeSource{data: sampleData()}, sequentialIDs(), fixedClock(), ServiceConfig{})
	if _, err := first.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	second := NewService(repo, &fakeSource{err: errors.New("offline")}, sequentialIDs(), fixedClock(), ServiceConfig{})
	got, err := second.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !got.Stale || got.Data.Nodes[0].ID != "alpha" {
		t.Fatalf("expected stored snapshot, got %#v", got)
	}
}

func TestRefreshWithoutCacheFails(t *testing.T) {
	sourceErr := errors.New("pcc down")
	svc := NewService(nil, &fakeSource{err: sourceErr}, nil, fixedClock(), ServiceConfig{})
	_, err := svc.Refresh(context.Background())
	if !errors.Is(err, ErrNoSnapshot) || !errors.Is(err, sourceErr) {
		t.Fatalf("expected ErrNoSnapshot wrapping source error, got %v", err)
	}
	if _, err := NewService(nil, nil, nil, nil, ServiceConfig{}).Refresh(context.Background()); !errors.Is(err, ErrSourceRequired) {
		t.Fatalf("expected ErrSourceRequired, got %v", err)
	}
}

func TestRefreshKeepsDataWhenCacheWriteFails(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("disk full")
	svc := NewService(repo, &fakeSource{data: sampleData()}, nil, fixedClock(), ServiceConfig{})
	got, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got.Stale || len(got.Data.Nodes) != 3 {
		t.Fatalf("unexpected refresh %#v", got)
	}
}

func TestPreferencesDefaultsAndUpdates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, fixedClock(), ServiceConfig{DefaultStrategy: "heatmap", DefaultFilter: domain.WorkOrderFilterAll})
	ctx := context.Background()

	prefs, err := svc.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if prefs.Strategy != "heatmap" || prefs.Filter != domain.WorkOrderFilterAll {
		t.Fatalf("unexpected default prefs %#v", prefs)
	}

	if _, err := svc.SetStrategy(ctx, "force"); err != nil {
		t.Fatalf("SetStrategy() error = %v", err)
	}
	if _, err := svc.SetFilter(ctx, domain.WorkOrderFilterActive); err != nil {
		t.Fatalf("SetFilter() error = %v", err)
	}
	_, pinned, err := svc.TogglePin(ctx, "WO-7")
	if err != nil || !pinned {
		t.Fatalf("TogglePin() = %v, %v", pinned, err)
	}

	stored, err := svc.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if stored.Strategy != "force" || stored.Filter != domain.WorkOrderFilterActive || !stored.IsPinned("WO-7") {
		t.Fatalf("unexpected stored prefs %#v", stored)
	}
	if _, err := svc.SetFilter(ctx, "sometimes"); !errors.Is(err, domain.ErrInvalidFilterMode) {
		t.Fatalf("expected ErrInvalidFilterMode, got %v", err)
	}
}

func TestRankAttentionOrdersHumanBlockedFirst(t *testing.T) {
	items := RankAttention(sampleData().Normalize(), 0)
	if len(items) != 2 {
		t.Fatalf("expected parked project excluded, got %#v", items)
	}
	if items[0].ProjectID != "beta" || !items[0].NeedsHuman {
		t.Fatalf("expected beta first, got %#v", items[0])
	}
	if !slices.Equal(items[0].Waiting, []string{"WO-1", "WO-2"}) {
		t.Fatalf("unexpected waiting work orders %#v", items[0].Waiting)
	}
	if items[0].Reasons[0] != "2 escalation(s)" {
		t.Fatalf("unexpected reasons %#v", items[0].Reasons)
	}
	if items[1].ProjectID != "alpha" || items[1].Heat < 0.9 {
		t.Fatalf("unexpected second item %#v", items[1])
	}
	if got := RankAttention(sampleData().Normalize(), 1); len(got) != 1 {
		t.Fatalf("expected limit applied, got %d", len(got))
	}
}

func TestAttentionAndProjectUseLatestSnapshot(t *testing.T) {
	svc := NewService(nil, &fakeSource{data: sampleData()}, nil, fixedClock(), ServiceConfig{})
	ctx := context.Background()

	items, current, err := svc.Attention(ctx, 5)
	if err != nil {
		t.Fatalf("Attention() error = %v", err)
	}
	if len(items) != 2 || current.Stale {
		t.Fatalf("unexpected attention %#v %#v", items, current)
	}

	project, workOrders, _, err := svc.Project(ctx, "beta")
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if project.Name != "Beta" || len(workOrders) != 2 {
		t.Fatalf("unexpected project %#v %#v", project, workOrders)
	}
	if _, _, _, err := svc.Project(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectRefreshesWhenNothingCached(t *testing.T) {
	src := &fakeSource{data: sampleData()}
	svc := NewService(nil, src, nil, fixedClock(), ServiceConfig{})

	project, workOrders, current, err := svc.Project(context.Background(), "beta")
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if project.ID != "beta" || len(workOrders) != 2 {
		t.Fatalf("unexpected project %#v %#v", project, workOrders)
	}
	if src.calls != 1 || current.Stale {
		t.Fatalf("expected one fresh poll, got calls=%d refresh=%#v", src.calls, current)
	}
	if _, _, _, err := svc.Project(context.Background(), "beta"); err != nil {
		t.Fatalf("Project() second call error = %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected cached snapshot on second call, got %d polls", src.calls)
	}
}

func TestPollerRefreshesUntilCancelled(t *testing.T) {
	src := &fakeSource{data: sampleData()}
	svc := NewService(nil, src, nil, fixedClock(), ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	refreshed := make(chan struct{}, 8)
	poller := NewPoller(svc, time.Millisecond, func(Refresh, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})

	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()
	for range 2 {
		select {
		case <-refreshed:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for refresh")
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	if _, ok := svc.Latest(); !ok {
		t.Fatal("expected latest refresh recorded")
	}
}
