package app

import (
	"context"

	"github.com/hylla/orrery/internal/domain"
)

// SnapshotSource produces one fresh visualization snapshot per call.
type SnapshotSource interface {
	Snapshot(context.Context) (domain.VisualizationData, error)
}

// Repository persists viewer preferences and the snapshot cache.
type Repository interface {
	GetPreferences(context.Context) (domain.Preferences, error)
	SavePreferences(context.Context, domain.Preferences) error

	SaveSnapshot(context.Context, domain.SnapshotRecord) error
	LatestSnapshot(context.Context) (domain.SnapshotRecord, error)
	PruneSnapshots(context.Context, int) (int, error)
}
