package domain

import (
	"strings"
	"time"
)

// ProjectStatus is the lifecycle status reported for one project.
type ProjectStatus string

// ProjectStatus values.
const (
	ProjectStatusActive  ProjectStatus = "active"
	ProjectStatusBlocked ProjectStatus = "blocked"
	ProjectStatusParked  ProjectStatus = "parked"
)

// ParseProjectStatus normalizes one raw status value.
func ParseProjectStatus(raw string) (ProjectStatus, error) {
	switch ProjectStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ProjectStatusActive:
		return ProjectStatusActive, nil
	case ProjectStatusBlocked:
		return ProjectStatusBlocked, nil
	case ProjectStatusParked:
		return ProjectStatusParked, nil
	default:
		return "", ErrInvalidStatus
	}
}

// WorkOrderCounts buckets a project's work orders by coarse state.
type WorkOrderCounts struct {
	Ready    int `json:"ready" yaml:"ready"`
	Building int `json:"building" yaml:"building"`
	Blocked  int `json:"blocked" yaml:"blocked"`
	Done     int `json:"done" yaml:"done"`
}

// Total returns the sum of all buckets.
func (c WorkOrderCounts) Total() int {
	return c.Ready + c.Building + c.Blocked + c.Done
}

// Render holds the drawn position and size of a node.
// Only the active strategy writes these fields, during its render pass.
type Render struct {
	X      float64 `json:"-" yaml:"-"`
	Y      float64 `json:"-" yaml:"-"`
	Radius float64 `json:"-" yaml:"-"`
	Placed bool    `json:"-" yaml:"-"`
}

// Place records one drawn position.
func (r *Render) Place(x, y, radius float64) {
	r.X = x
	r.Y = y
	r.Radius = radius
	r.Placed = true
}

// ProjectNode represents one project in a visualization snapshot.
type ProjectNode struct {
	ID              string          `json:"id" yaml:"id"`
	Name            string          `json:"name" yaml:"name"`
	Path            string          `json:"path,omitempty" yaml:"path,omitempty"`
	Status          ProjectStatus   `json:"status" yaml:"status"`
	Priority        int             `json:"priority" yaml:"priority"`
	IsActive        bool            `json:"is_active" yaml:"is_active"`
	ActivityLevel   float64         `json:"activity_level" yaml:"activity_level"`
	Health          float64         `json:"health" yaml:"health"`
	ConsumptionRate float64         `json:"consumption_rate" yaml:"consumption_rate"`
	WorkOrders      WorkOrderCounts `json:"work_orders" yaml:"work_orders"`
	NeedsHuman      bool            `json:"needs_human" yaml:"needs_human"`
	EscalationCount int             `json:"escalation_count" yaml:"escalation_count"`
	LastActivity    *time.Time      `json:"last_activity,omitempty" yaml:"last_activity,omitempty"`
	Phase           RunPhase        `json:"phase,omitempty" yaml:"phase,omitempty"`

	Render Render `json:"-" yaml:"-"`
}

// DisplayName returns the name, falling back to path and id.
func (p ProjectNode) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if path := strings.TrimSpace(p.Path); path != "" {
		return path
	}
	return p.ID
}

// Parked reports whether the project is parked.
func (p ProjectNode) Parked() bool {
	return p.Status == ProjectStatusParked
}

// normalize clamps intensities and defaults unknown fields.
func (p *ProjectNode) normalize() {
	p.ID = strings.TrimSpace(p.ID)
	if status, err := ParseProjectStatus(string(p.Status)); err == nil {
		p.Status = status
	} else {
		p.Status = ProjectStatusActive
	}
	p.ActivityLevel = Clamp01(p.ActivityLevel)
	p.Health = Clamp01(p.Health)
	p.ConsumptionRate = NonNegative(p.ConsumptionRate)
	if p.EscalationCount < 0 {
		p.EscalationCount = 0
	}
	if phase, err := ParseRunPhase(string(p.Phase)); err == nil {
		p.Phase = phase
	} else {
		p.Phase = RunPhaseNone
	}
	p.Render = Render{}
}
