package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/orrery/internal/app"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz/orbital"
)

// AppServiceAdapter maps transport contracts onto app.Service snapshot and attention APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// Snapshot returns the latest snapshot envelope with its state hash.
func (a *AppServiceAdapter) Snapshot(ctx context.Context, in SnapshotRequest) (SnapshotView, error) {
	if a == nil || a.service == nil {
		return SnapshotView{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	snap, err := a.service.CurrentSnapshot(ctx, in.Refresh)
	if err != nil {
		return SnapshotView{}, mapAppError("snapshot", err)
	}
	hash, err := stateHash(snap.Data)
	if err != nil {
		return SnapshotView{}, fmt.Errorf("snapshot: %w", err)
	}
	return SnapshotView{Snapshot: snap, StateHash: hash}, nil
}

// Attention ranks projects from the latest snapshot.
func (a *AppServiceAdapter) Attention(ctx context.Context, in AttentionRequest) (AttentionOverview, error) {
	if a == nil || a.service == nil {
		return AttentionOverview{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	if in.Limit < 0 || in.Limit > maxAttentionLimit {
		return AttentionOverview{}, fmt.Errorf("limit must be between 0 and %d: %w", maxAttentionLimit, ErrInvalidRequest)
	}
	items, current, err := a.service.Attention(ctx, in.Limit)
	if err != nil {
		return AttentionOverview{}, mapAppError("attention", err)
	}
	out := AttentionOverview{
		CapturedAt: current.FetchedAt,
		Stale:      current.Stale,
		Items:      items,
	}
	for _, item := range items {
		if item.NeedsHuman || len(item.Waiting) > 0 {
			out.NeedsHuman++
		}
	}
	return out, nil
}

// Project resolves one project and its work orders with derived heat and zone.
func (a *AppServiceAdapter) Project(ctx context.Context, in ProjectRequest) (ProjectDetail, error) {
	if a == nil || a.service == nil {
		return ProjectDetail{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return ProjectDetail{}, fmt.Errorf("project_id is required: %w", ErrInvalidRequest)
	}
	project, workOrders, current, err := a.service.Project(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, mapAppError("project", err)
	}
	phases := current.Data.RunPhases()

	heat := orbital.ProjectHeat(project)
	zone := orbital.ProjectLayout.ZoneAt(orbital.ProjectLayout.TargetRadius(heat, 0)).Name
	if orbital.ProjectArchived(project) {
		zone = "archive"
	}
	out := ProjectDetail{
		CapturedAt: current.FetchedAt,
		Project:    project,
		Heat:       heat,
		Zone:       zone,
		WorkOrders: make([]WorkOrderDetail, 0, len(workOrders)),
	}
	for _, wo := range workOrders {
		phase := phases[wo.ID]
		out.WorkOrders = append(out.WorkOrders, WorkOrderDetail{
			WorkOrderNode: wo,
			Phase:         phase,
			Heat:          orbital.WorkOrderHeat(wo, phase),
			Archived:      orbital.WorkOrderArchived(wo, phase),
		})
	}
	return out, nil
}

// stateHash returns a stable content hash of one snapshot, ignoring its timestamp.
func stateHash(data domain.VisualizationData) (string, error) {
	payload := struct {
		Nodes          []domain.ProjectNode           `json:"nodes"`
		Edges          []domain.Edge                  `json:"edges"`
		WorkOrderNodes []domain.WorkOrderNode         `json:"work_order_nodes"`
		RunsByProject  map[string][]domain.RunSummary `json:"runs_by_project"`
	}{data.Nodes, data.Edges, data.WorkOrderNodes, data.RunsByProject}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("hash snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// mapAppError maps app-level failures onto transport sentinel errors.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNoSnapshot), errors.Is(err, app.ErrSourceRequired):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUnavailable, err))
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidFilterMode):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
