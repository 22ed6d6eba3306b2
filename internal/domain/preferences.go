package domain

import (
	"slices"
	"strings"
	"time"
)

// Preferences holds the viewer choices that survive restarts.
type Preferences struct {
	Strategy  string
	Filter    WorkOrderFilter
	Pinned    []string
	UpdatedAt time.Time
}

// NewPreferences validates and normalizes one preference set.
func NewPreferences(strategy string, filter WorkOrderFilter, pinned []string, now time.Time) (Preferences, error) {
	strategy = strings.ToLower(strings.TrimSpace(strategy))
	if strategy == "" {
		return Preferences{}, ErrInvalidID
	}
	parsed, err := ParseWorkOrderFilter(string(filter))
	if err != nil {
		return Preferences{}, err
	}
	return Preferences{
		Strategy:  strategy,
		Filter:    parsed,
		Pinned:    normalizeIDs(pinned),
		UpdatedAt: now.UTC(),
	}, nil
}

// IsPinned reports whether id is pinned.
func (p Preferences) IsPinned(id string) bool {
	return slices.Contains(p.Pinned, strings.TrimSpace(id))
}

// TogglePin pins or unpins id and reports whether it is now pinned.
func (p *Preferences) TogglePin(id string, now time.Time) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, ErrInvalidID
	}
	p.UpdatedAt = now.UTC()
	if idx := slices.Index(p.Pinned, id); idx >= 0 {
		p.Pinned = slices.Delete(slices.Clone(p.Pinned), idx, idx+1)
		return false, nil
	}
	p.Pinned = normalizeIDs(append(slices.Clone(p.Pinned), id))
	return true, nil
}

// normalizeIDs trims, drops empties, dedupes and sorts ids.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SnapshotRecord is one cached snapshot with its fetch metadata.
type SnapshotRecord struct {
	ID        string
	Source    string
	FetchedAt time.Time
	Data      VisualizationData
}
