package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/orrery/internal/adapters/server/common"
	"github.com/hylla/orrery/internal/app"
	"github.com/hylla/orrery/internal/domain"
)

// stubService answers every transport read with fixed data.
type stubService struct{}

// Snapshot returns one fixed snapshot view.
func (stubService) Snapshot(context.Context, common.SnapshotRequest) (common.SnapshotView, error) {
	return common.SnapshotView{
		Snapshot: app.Snapshot{
			Version:   app.SnapshotVersion,
			FetchedAt: time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC),
			Data:      domain.VisualizationData{Nodes: []domain.ProjectNode{{ID: "p1"}}},
		},
		StateHash: "h1",
	}, nil
}

// Attention returns an empty overview.
func (stubService) Attention(context.Context, common.AttentionRequest) (common.AttentionOverview, error) {
	return common.AttentionOverview{}, nil
}

// Project returns one fixed project detail.
func (stubService) Project(_ context.Context, req common.ProjectRequest) (common.ProjectDetail, error) {
	return common.ProjectDetail{Project: domain.ProjectNode{ID: req.ProjectID}}, nil
}

// TestNewHandlerRoutes verifies health and API routes are mounted.
func TestNewHandlerRoutes(t *testing.T) {
	handler, cfg, err := NewHandler(Config{}, Dependencies{Service: stubService{}})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.ServerName != "orrery" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
			t.Fatalf("%s = %d %q", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d, want %d", rec.Code, http.StatusOK)
	}
	var view common.SnapshotView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if view.StateHash != "h1" || len(view.Data.Nodes) != 1 {
		t.Fatalf("unexpected snapshot view %#v", view)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects/p1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("project status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestReadyzWaitsForSnapshot verifies readiness tracks the poller's first snapshot.
func TestReadyzWaitsForSnapshot(t *testing.T) {
	var (
		current app.Refresh
		ready   bool
	)
	handler, _, err := NewHandler(Config{}, Dependencies{
		Service: stubService{},
		Latest:  func() (app.Refresh, bool) { return current, ready },
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "waiting_for_snapshot") {
		t.Fatalf("readyz before snapshot = %d %q", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want %d", rec.Code, http.StatusOK)
	}

	current = app.Refresh{Source: "pcc", FetchedAt: time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC), Stale: true}
	ready = true
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz after snapshot = %d %q", rec.Code, rec.Body.String())
	}
	var got readiness
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Status != "ok" || got.Source != "pcc" || !got.Stale || !got.FetchedAt.Equal(current.FetchedAt) {
		t.Fatalf("unexpected readiness %#v", got)
	}
}

// TestNewHandlerValidation verifies dependency and endpoint checks.
func TestNewHandlerValidation(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("NewHandler() error = nil, want missing service error")
	}
	if _, _, err := NewHandler(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}, Dependencies{Service: stubService{}}); err == nil {
		t.Fatal("NewHandler() error = nil, want endpoint collision error")
	}
}

// TestNormalizeEndpoint verifies endpoint path canonicalization.
func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"":           "/api/v1",
		"/":          "/api/v1",
		"api":        "/api",
		" /api/v2/ ": "/api/v2",
	}
	for in, want := range cases {
		if got := normalizeEndpoint(in, "/api/v1"); got != want {
			t.Fatalf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestRunStopsOnCancel verifies Run shuts down cleanly when its context ends.
func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Service: stubService{}})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
