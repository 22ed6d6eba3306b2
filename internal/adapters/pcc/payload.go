package pcc

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/hylla/orrery/internal/domain"
)

// recencyWindow is how long an update keeps contributing work-order activity.
const recencyWindow = 24 * time.Hour

// healthScores maps PCC health categories onto [0,1].
var healthScores = map[string]float64{
	"healthy":          1,
	"attention_needed": 0.6,
	"stalled":          0.4,
	"failing":          0.2,
	"blocked":          0.1,
}

// globalContext is the subset of GET /global/context the dashboard reads.
type globalContext struct {
	Projects []projectPayload `json:"projects"`
}

// projectPayload is one project entry of the global context.
type projectPayload struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Path            string            `json:"path"`
	Status          string            `json:"status"`
	Priority        int               `json:"priority"`
	Health          json.RawMessage   `json:"health"`
	IsActive        *bool             `json:"is_active"`
	ActivityLevel   *float64          `json:"activity_level"`
	ConsumptionRate float64           `json:"consumption_rate"`
	WorkOrders      countsPayload     `json:"work_orders"`
	NeedsHuman      bool              `json:"needs_human"`
	Escalations     []json.RawMessage `json:"escalations"`
	ActiveShift     json.RawMessage   `json:"active_shift"`
	LastActivity    *time.Time        `json:"last_activity"`
}

// countsPayload mirrors the work_orders count object.
type countsPayload struct {
	Ready    int `json:"ready"`
	Building int `json:"building"`
	Blocked  int `json:"blocked"`
	Done     int `json:"done"`
}

// node converts one payload into a project node, deriving missing intensities.
func (p projectPayload) node() domain.ProjectNode {
	shift := hasValue(p.ActiveShift)
	active := shift || p.WorkOrders.Building > 0
	if p.IsActive != nil {
		active = *p.IsActive
	}
	activity := 0.25 * float64(p.WorkOrders.Building)
	if shift {
		activity += 0.5
	}
	if p.ActivityLevel != nil {
		activity = *p.ActivityLevel
	}
	return domain.ProjectNode{
		ID:              strings.TrimSpace(p.ID),
		Name:            p.Name,
		Path:            p.Path,
		Status:          domain.ProjectStatus(p.Status),
		Priority:        p.Priority,
		IsActive:        active,
		ActivityLevel:   domain.Clamp01(activity),
		Health:          parseHealth(p.Health),
		ConsumptionRate: p.ConsumptionRate,
		WorkOrders: domain.WorkOrderCounts{
			Ready:    p.WorkOrders.Ready,
			Building: p.WorkOrders.Building,
			Blocked:  p.WorkOrders.Blocked,
			Done:     p.WorkOrders.Done,
		},
		NeedsHuman:      p.NeedsHuman || len(p.Escalations) > 0,
		EscalationCount: len(p.Escalations),
		LastActivity:    p.LastActivity,
	}
}

// parseHealth accepts either a numeric score or a PCC health category.
// Missing or unknown values are neutral.
func parseHealth(raw json.RawMessage) float64 {
	if !hasValue(raw) {
		return 0.5
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err == nil {
		return domain.Clamp01(score)
	}
	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		if v, ok := healthScores[strings.ToLower(strings.TrimSpace(label))]; ok {
			return v
		}
	}
	return 0.5
}

// hasValue reports whether a raw JSON field is present and not null.
func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// workOrderPayload is one entry of GET /repos/{id}/work-orders.
type workOrderPayload struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	Priority      int        `json:"priority"`
	Estimate      *float64   `json:"estimate_hours"`
	Track         string     `json:"track"`
	Era           string     `json:"era"`
	ActivityLevel *float64   `json:"activity_level"`
	UpdatedAt     *time.Time `json:"updated_at"`
	DependsOn     []string   `json:"depends_on"`
}

// node converts one payload into a work-order node owned by projectID.
// Without an explicit activity level, activity decays linearly with time since the last update.
func (w workOrderPayload) node(projectID string, now time.Time) domain.WorkOrderNode {
	activity := 0.0
	if w.UpdatedAt != nil {
		age := now.Sub(*w.UpdatedAt)
		if age < 0 {
			age = 0
		}
		activity = 1 - float64(age)/float64(recencyWindow)
	}
	if w.ActivityLevel != nil {
		activity = *w.ActivityLevel
	}
	return domain.WorkOrderNode{
		ID:            strings.TrimSpace(w.ID),
		Title:         w.Title,
		Status:        domain.WorkOrderStatus(w.Status),
		Priority:      w.Priority,
		Estimate:      w.Estimate,
		Track:         w.Track,
		Era:           w.Era,
		ProjectID:     projectID,
		ActivityLevel: domain.Clamp01(activity),
		UpdatedAt:     w.UpdatedAt,
	}
}

// workOrderList decodes either a bare array or {"work_orders": [...]}.
type workOrderList []workOrderPayload

// UnmarshalJSON implements json.Unmarshaler.
func (l *workOrderList) UnmarshalJSON(raw []byte) error {
	var wrapped struct {
		WorkOrders []workOrderPayload `json:"work_orders"`
	}
	items, err := decodeList(raw, &wrapped, func() []workOrderPayload { return wrapped.WorkOrders })
	*l = items
	return err
}

// runList decodes either a bare array or {"runs": [...]}.
type runList []domain.RunSummary

// UnmarshalJSON implements json.Unmarshaler.
func (l *runList) UnmarshalJSON(raw []byte) error {
	var wrapped struct {
		Runs []domain.RunSummary `json:"runs"`
	}
	items, err := decodeList(raw, &wrapped, func() []domain.RunSummary { return wrapped.Runs })
	*l = items
	return err
}

// decodeList decodes raw as []T, or as an object into wrapped and returns inner().
func decodeList[T any](raw []byte, wrapped any, inner func() []T) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	if err := json.Unmarshal(trimmed, wrapped); err != nil {
		return nil, err
	}
	items := inner()
	if items == nil {
		items = []T{}
	}
	return items, nil
}
