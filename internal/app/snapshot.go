package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/orrery/internal/domain"
)

// SnapshotVersion tags exported snapshot envelopes.
const SnapshotVersion = "orrery.snapshot.v1"

// ErrInvalidSnapshot reports a malformed export envelope.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the versioned export envelope printed by the CLI and served over HTTP.
type Snapshot struct {
	Version    string                   `json:"version" yaml:"version"`
	ExportedAt time.Time                `json:"exported_at" yaml:"exported_at"`
	FetchedAt  time.Time                `json:"fetched_at" yaml:"fetched_at"`
	Source     string                   `json:"source" yaml:"source"`
	Stale      bool                     `json:"stale" yaml:"stale"`
	Error      string                   `json:"error,omitempty" yaml:"error,omitempty"`
	Data       domain.VisualizationData `json:"data" yaml:"data"`
}

// ExportSnapshot wraps one refresh result in an export envelope.
func (s *Service) ExportSnapshot(r Refresh) Snapshot {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		FetchedAt:  r.FetchedAt.UTC(),
		Source:     r.Source,
		Stale:      r.Stale,
		Data:       r.Data.Normalize(),
	}
	if r.Err != nil {
		snap.Error = r.Err.Error()
	}
	return snap
}

// CurrentSnapshot exports the latest known snapshot, refreshing once if nothing is cached.
func (s *Service) CurrentSnapshot(ctx context.Context, refresh bool) (Snapshot, error) {
	var (
		current Refresh
		err     error
	)
	if refresh {
		current, err = s.Refresh(ctx)
	} else if current, err = s.Cached(ctx); errors.Is(err, ErrNoSnapshot) {
		current, err = s.Refresh(ctx)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return s.ExportSnapshot(current), nil
}

// Validate checks the envelope version and payload identities.
func (s Snapshot) Validate() error {
	if strings.TrimSpace(s.Version) != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	seen := map[string]struct{}{}
	for _, p := range s.Data.Nodes {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("%w: project with empty id", ErrInvalidSnapshot)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate project id %q", ErrInvalidSnapshot, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
