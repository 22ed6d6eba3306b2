// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/orrery/internal/app"
	"github.com/hylla/orrery/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrUnavailable reports that no snapshot has been fetched or cached yet.
var ErrUnavailable = errors.New("snapshot unavailable")

// maxAttentionLimit caps attention list sizes requested by callers.
const maxAttentionLimit = 100

// SnapshotRequest captures one snapshot read.
type SnapshotRequest struct {
	// Refresh forces a poll of the source instead of serving the latest cached snapshot.
	Refresh bool
}

// SnapshotView is the snapshot envelope plus a content hash clients can poll against.
type SnapshotView struct {
	app.Snapshot
	StateHash string `json:"state_hash"`
}

// AttentionRequest captures one attention ranking read.
type AttentionRequest struct {
	Limit int
}

// AttentionOverview summarizes which projects need a human.
type AttentionOverview struct {
	CapturedAt time.Time           `json:"captured_at"`
	Stale      bool                `json:"stale"`
	NeedsHuman int                 `json:"needs_human"`
	Items      []app.AttentionItem `json:"items"`
}

// ProjectRequest captures one project detail read.
type ProjectRequest struct {
	ProjectID string
}

// WorkOrderDetail is one work order with its derived run phase and heat.
type WorkOrderDetail struct {
	domain.WorkOrderNode
	Phase    domain.RunPhase `json:"phase,omitempty"`
	Heat     float64         `json:"heat"`
	Archived bool            `json:"archived"`
}

// ProjectDetail is one project with derived orbital placement and its work orders.
type ProjectDetail struct {
	CapturedAt time.Time          `json:"captured_at"`
	Project    domain.ProjectNode `json:"project"`
	Heat       float64            `json:"heat"`
	Zone       string             `json:"zone"`
	WorkOrders []WorkOrderDetail  `json:"work_orders"`
}

// SnapshotReader resolves one snapshot request.
type SnapshotReader interface {
	Snapshot(context.Context, SnapshotRequest) (SnapshotView, error)
}

// AttentionReader ranks projects by attention.
type AttentionReader interface {
	Attention(context.Context, AttentionRequest) (AttentionOverview, error)
}

// ProjectReader resolves one project detail.
type ProjectReader interface {
	Project(context.Context, ProjectRequest) (ProjectDetail, error)
}

// Service bundles every read exposed by the transports.
type Service interface {
	SnapshotReader
	AttentionReader
	ProjectReader
}
