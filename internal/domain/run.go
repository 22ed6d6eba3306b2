package domain

import (
	"strings"
	"time"
)

// RunPhase classifies a work order's in-flight execution state.
type RunPhase string

// RunPhase values, ordered here from least to most urgent.
const (
	RunPhaseNone      RunPhase = ""
	RunPhaseBuilding  RunPhase = "building"
	RunPhaseTesting   RunPhase = "testing"
	RunPhaseAIReview  RunPhase = "ai_review"
	RunPhaseYouReview RunPhase = "you_review"
	RunPhaseWaiting   RunPhase = "waiting"
)

// ParseRunPhase normalizes one raw phase value; empty input maps to RunPhaseNone.
func ParseRunPhase(raw string) (RunPhase, error) {
	switch RunPhase(strings.ToLower(strings.TrimSpace(raw))) {
	case RunPhaseNone:
		return RunPhaseNone, nil
	case RunPhaseBuilding:
		return RunPhaseBuilding, nil
	case RunPhaseTesting:
		return RunPhaseTesting, nil
	case RunPhaseAIReview, "reviewing":
		return RunPhaseAIReview, nil
	case RunPhaseYouReview:
		return RunPhaseYouReview, nil
	case RunPhaseWaiting, "waiting_for_input":
		return RunPhaseWaiting, nil
	default:
		return RunPhaseNone, ErrInvalidRunPhase
	}
}

// Urgency ranks phases so the most urgent in-flight run wins.
func (p RunPhase) Urgency() int {
	switch p {
	case RunPhaseBuilding:
		return 1
	case RunPhaseTesting:
		return 2
	case RunPhaseAIReview:
		return 3
	case RunPhaseYouReview:
		return 4
	case RunPhaseWaiting:
		return 5
	default:
		return 0
	}
}

// Worked reports whether an agent is actively working in this phase.
func (p RunPhase) Worked() bool {
	switch p {
	case RunPhaseBuilding, RunPhaseTesting, RunPhaseAIReview:
		return true
	default:
		return false
	}
}

// RunSummary is the minimal run record the visualization consumes.
type RunSummary struct {
	WorkOrderID string     `json:"work_order_id" yaml:"work_order_id"`
	Status      string     `json:"status" yaml:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
}

// Phase maps a run status onto a run phase; finished or unknown runs map to RunPhaseNone.
func (r RunSummary) Phase() RunPhase {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "building", "running", "queued", "baselining":
		return RunPhaseBuilding
	case "testing":
		return RunPhaseTesting
	case "ai_review", "reviewing":
		return RunPhaseAIReview
	case "you_review":
		return RunPhaseYouReview
	case "waiting", "waiting_for_input", "security_hold":
		return RunPhaseWaiting
	default:
		return RunPhaseNone
	}
}

// PhaseFromRuns derives the most urgent in-flight phase per work order.
func PhaseFromRuns(runs []RunSummary) map[string]RunPhase {
	out := make(map[string]RunPhase, len(runs))
	for _, run := range runs {
		id := strings.TrimSpace(run.WorkOrderID)
		if id == "" {
			continue
		}
		phase := run.Phase()
		if phase == RunPhaseNone {
			continue
		}
		if current, ok := out[id]; !ok || phase.Urgency() > current.Urgency() {
			out[id] = phase
		}
	}
	return out
}
