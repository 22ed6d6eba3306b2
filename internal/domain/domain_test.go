package domain

import (
	"math"
	"testing"
	"time"
)

func TestNormalizeDefaultsAndClamps(t *testing.T) {
	ts := time.Date(2026, 2, 21, 12, 0, 0, 0, time.FixedZone("x", 3600))
	in := VisualizationData{
		Timestamp: ts,
		Nodes: []ProjectNode{
			{ID: " p1 ", Status: "Blocked", ActivityLevel: 2, Health: math.NaN(), EscalationCount: -3, Phase: "reviewing"},
			{ID: "p1", Name: "duplicate"},
			{ID: "", Name: "no id"},
			{ID: "p2", Status: "weird", ConsumptionRate: math.Inf(1), Phase: "sleeping"},
		},
		WorkOrderNodes: []WorkOrderNode{{ID: "w1", Status: "nope", ActivityLevel: -1}},
		Edges: []Edge{
			{Source: "p1", Target: "p2"},
			{Source: "p1", Target: "p1"},
			{Source: "", Target: "p2"},
		},
	}
	in.Nodes[0].Render.Place(1, 2, 3)

	out := in.Normalize()
	if len(out.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %#v", out.Nodes)
	}
	p1 := out.Nodes[0]
	if p1.ID != "p1" || p1.Status != ProjectStatusBlocked || p1.ActivityLevel != 1 || p1.Health != 0 {
		t.Fatalf("unexpected p1 %#v", p1)
	}
	if p1.EscalationCount != 0 || p1.Phase != RunPhaseAIReview || p1.Render.Placed {
		t.Fatalf("unexpected p1 extras %#v", p1)
	}
	p2 := out.Nodes[1]
	if p2.Status != ProjectStatusActive || p2.ConsumptionRate != 0 || p2.Phase != RunPhaseNone {
		t.Fatalf("unexpected p2 %#v", p2)
	}
	if out.WorkOrderNodes[0].Status != WorkOrderBacklog || out.WorkOrderNodes[0].ActivityLevel != 0 {
		t.Fatalf("unexpected work order %#v", out.WorkOrderNodes[0])
	}
	if len(out.Edges) != 1 || out.Edges[0].Type != "link" {
		t.Fatalf("unexpected edges %#v", out.Edges)
	}
	if out.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", out.Timestamp)
	}
	if in.Nodes[0].Render.Placed != true {
		t.Fatal("expected input render fields untouched")
	}
}

func TestNormalizeEmptyArrays(t *testing.T) {
	out := VisualizationData{}.Normalize()
	if out.Nodes == nil || out.Edges == nil || out.WorkOrderNodes == nil || out.RunsByProject == nil {
		t.Fatalf("expected non-nil collections, got %#v", out)
	}
	if !out.Empty() {
		t.Fatal("expected empty snapshot")
	}
}

func TestPhaseFromRunsPicksMostUrgent(t *testing.T) {
	runs := []RunSummary{
		{WorkOrderID: "w1", Status: "building"},
		{WorkOrderID: "w1", Status: "you_review"},
		{WorkOrderID: "w1", Status: "testing"},
		{WorkOrderID: "w2", Status: "merged"},
		{WorkOrderID: "w3", Status: "security_hold"},
		{WorkOrderID: "", Status: "waiting"},
	}
	got := PhaseFromRuns(runs)
	if got["w1"] != RunPhaseYouReview || got["w3"] != RunPhaseWaiting {
		t.Fatalf("unexpected phases %#v", got)
	}
	if _, ok := got["w2"]; ok {
		t.Fatalf("expected finished run ignored, got %#v", got)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 phases, got %#v", got)
	}
}

func TestRunPhaseWorked(t *testing.T) {
	for phase, want := range map[RunPhase]bool{
		RunPhaseBuilding:  true,
		RunPhaseTesting:   true,
		RunPhaseAIReview:  true,
		RunPhaseYouReview: false,
		RunPhaseWaiting:   false,
		RunPhaseNone:      false,
	} {
		if phase.Worked() != want {
			t.Fatalf("%q.Worked() = %v, want %v", phase, !want, want)
		}
	}
}

func TestWorkOrderStatusBuckets(t *testing.T) {
	if !WorkOrderBlocked.InProgress() || WorkOrderBacklog.InProgress() {
		t.Fatal("unexpected InProgress buckets")
	}
	if !WorkOrderDone.Archival() || WorkOrderBuilding.Archival() {
		t.Fatal("unexpected Archival buckets")
	}
	if _, err := ParseWorkOrderStatus("shipping"); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestParseWorkOrderFilter(t *testing.T) {
	if f, err := ParseWorkOrderFilter(""); err != nil || f != WorkOrderFilterActive {
		t.Fatalf("ParseWorkOrderFilter(\"\") = %q, %v", f, err)
	}
	if f, err := ParseWorkOrderFilter(" ALL "); err != nil || f != WorkOrderFilterAll {
		t.Fatalf("ParseWorkOrderFilter(ALL) = %q, %v", f, err)
	}
	if _, err := ParseWorkOrderFilter("some"); err != ErrInvalidFilterMode {
		t.Fatalf("expected ErrInvalidFilterMode, got %v", err)
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	if got := (ProjectNode{ID: "p", Path: "/src/p"}).DisplayName(); got != "/src/p" {
		t.Fatalf("unexpected project display name %q", got)
	}
	if got := (WorkOrderNode{ID: "WO-1", Title: "  "}).DisplayName(); got != "WO-1" {
		t.Fatalf("unexpected work order display name %q", got)
	}
}

func TestClampHelpers(t *testing.T) {
	if Clamp01(math.NaN()) != 0 || Clamp01(-1) != 0 || Clamp01(3) != 1 || Clamp01(0.4) != 0.4 {
		t.Fatal("unexpected Clamp01 result")
	}
	if NonNegative(math.Inf(-1)) != 0 || NonNegative(2.5) != 2.5 {
		t.Fatal("unexpected NonNegative result")
	}
}

func TestPreferencesNormalizeAndToggle(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	prefs, err := NewPreferences(" Force ", "", []string{"b", " a ", "b", ""}, now)
	if err != nil {
		t.Fatalf("NewPreferences() error = %v", err)
	}
	if prefs.Strategy != "force" || prefs.Filter != WorkOrderFilterActive {
		t.Fatalf("unexpected prefs %#v", prefs)
	}
	if len(prefs.Pinned) != 2 || prefs.Pinned[0] != "a" {
		t.Fatalf("unexpected pinned ids %#v", prefs.Pinned)
	}

	pinned, err := prefs.TogglePin("c", now)
	if err != nil || !pinned || !prefs.IsPinned("c") {
		t.Fatalf("TogglePin(c) = %v, %v; pinned=%#v", pinned, err, prefs.Pinned)
	}
	pinned, err = prefs.TogglePin("a", now)
	if err != nil || pinned || prefs.IsPinned("a") {
		t.Fatalf("TogglePin(a) = %v, %v; pinned=%#v", pinned, err, prefs.Pinned)
	}
	if _, err := prefs.TogglePin(" ", now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewPreferences("", WorkOrderFilterAll, nil, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewPreferences("orbital", "bogus", nil, now); err != ErrInvalidFilterMode {
		t.Fatalf("expected ErrInvalidFilterMode, got %v", err)
	}
}
