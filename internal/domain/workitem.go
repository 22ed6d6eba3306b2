package domain

import (
	"strings"
	"time"
)

// WorkOrderStatus is the board status of one work order.
type WorkOrderStatus string

// WorkOrderStatus values.
const (
	WorkOrderBacklog   WorkOrderStatus = "backlog"
	WorkOrderReady     WorkOrderStatus = "ready"
	WorkOrderBuilding  WorkOrderStatus = "building"
	WorkOrderAIReview  WorkOrderStatus = "ai_review"
	WorkOrderYouReview WorkOrderStatus = "you_review"
	WorkOrderDone      WorkOrderStatus = "done"
	WorkOrderBlocked   WorkOrderStatus = "blocked"
	WorkOrderParked    WorkOrderStatus = "parked"
)

// validWorkOrderStatuses stores every accepted work-order status.
var validWorkOrderStatuses = []WorkOrderStatus{
	WorkOrderBacklog,
	WorkOrderReady,
	WorkOrderBuilding,
	WorkOrderAIReview,
	WorkOrderYouReview,
	WorkOrderDone,
	WorkOrderBlocked,
	WorkOrderParked,
}

// ParseWorkOrderStatus normalizes one raw status value.
func ParseWorkOrderStatus(raw string) (WorkOrderStatus, error) {
	status := WorkOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, candidate := range validWorkOrderStatuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

// InProgress reports whether the status belongs to the active working set.
func (s WorkOrderStatus) InProgress() bool {
	switch s {
	case WorkOrderReady, WorkOrderBuilding, WorkOrderAIReview, WorkOrderYouReview, WorkOrderBlocked:
		return true
	default:
		return false
	}
}

// Archival reports whether the status is a backlog or archive bucket.
func (s WorkOrderStatus) Archival() bool {
	switch s {
	case WorkOrderBacklog, WorkOrderDone, WorkOrderParked:
		return true
	default:
		return false
	}
}

// WorkOrderNode represents one work order in a visualization snapshot.
type WorkOrderNode struct {
	ID            string          `json:"id" yaml:"id"`
	Title         string          `json:"title" yaml:"title"`
	Status        WorkOrderStatus `json:"status" yaml:"status"`
	Priority      int             `json:"priority" yaml:"priority"`
	Estimate      *float64        `json:"estimate_hours,omitempty" yaml:"estimate_hours,omitempty"`
	Track         string          `json:"track,omitempty" yaml:"track,omitempty"`
	Era           string          `json:"era,omitempty" yaml:"era,omitempty"`
	ProjectID     string          `json:"project_id" yaml:"project_id"`
	ActivityLevel float64         `json:"activity_level" yaml:"activity_level"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`

	Render Render `json:"-" yaml:"-"`
}

// DisplayName returns the title, falling back to the id.
func (w WorkOrderNode) DisplayName() string {
	if title := strings.TrimSpace(w.Title); title != "" {
		return title
	}
	return w.ID
}

// normalize clamps intensities and defaults unknown fields.
func (w *WorkOrderNode) normalize() {
	w.ID = strings.TrimSpace(w.ID)
	w.ProjectID = strings.TrimSpace(w.ProjectID)
	if status, err := ParseWorkOrderStatus(string(w.Status)); err == nil {
		w.Status = status
	} else {
		w.Status = WorkOrderBacklog
	}
	w.ActivityLevel = Clamp01(w.ActivityLevel)
	if w.Estimate != nil && *w.Estimate < 0 {
		w.Estimate = nil
	}
	w.Render = Render{}
}
