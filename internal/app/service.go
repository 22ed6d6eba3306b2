package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
)

// defaultSnapshotRetention bounds cached snapshots when the config omits it.
const defaultSnapshotRetention = 20

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	SourceName        string
	SnapshotRetention int
	DefaultStrategy   string
	DefaultFilter     domain.WorkOrderFilter
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Refresh is the outcome of one poll: fresh data, or cached data marked stale
// together with the source error that forced the fallback.
type Refresh struct {
	Data      domain.VisualizationData
	FetchedAt time.Time
	Source    string
	Stale     bool
	Err       error
}

// Service composes a snapshot source with the preferences and snapshot store.
type Service struct {
	repo      Repository
	source    SnapshotSource
	idGen     IDGenerator
	clock     Clock
	logger    *log.Logger
	cfg       ServiceConfig
	mu        sync.RWMutex
	latest    Refresh
	hasLatest bool
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a new value for this package. repo may be nil, which
// disables persistence and the cached fallback.
func NewService(repo Repository, source SnapshotSource, idGen IDGenerator, clock Clock, cfg ServiceConfig, opts ...Option) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.SnapshotRetention <= 0 {
		cfg.SnapshotRetention = defaultSnapshotRetention
	}
	cfg.SourceName = strings.TrimSpace(cfg.SourceName)
	if cfg.SourceName == "" {
		cfg.SourceName = "pcc"
	}
	if cfg.DefaultFilter == "" {
		cfg.DefaultFilter = domain.WorkOrderFilterActive
	}
	s := &Service{
		repo:   repo,
		source: source,
		idGen:  idGen,
		clock:  clock,
		logger: log.New(io.Discard),
		cfg:    cfg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Refresh polls the source once. On success the snapshot is cached and pruned;
// on failure the most recent cached snapshot is returned marked stale. An error
// is returned only when neither the source nor the cache can provide data.
func (s *Service) Refresh(ctx context.Context) (Refresh, error) {
	if s.source == nil {
		return Refresh{}, ErrSourceRequired
	}
	data, err := s.source.Snapshot(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Refresh{}, ctxErr
		}
		s.logger.Warn("snapshot source failed", "source", s.cfg.SourceName, "err", err)
		cached, cacheErr := s.Cached(ctx)
		if cacheErr != nil {
			if errors.Is(cacheErr, ErrNoSnapshot) {
				return Refresh{}, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
			}
			return Refresh{}, errors.Join(err, cacheErr)
		}
		cached.Stale = true
		cached.Err = err
		s.remember(cached)
		return cached, nil
	}

	now := s.clock().UTC()
	data = data.Normalize()
	if data.Timestamp.IsZero() {
		data.Timestamp = now
	}
	out := Refresh{Data: data, FetchedAt: now, Source: s.cfg.SourceName}
	s.remember(out)
	s.persist(ctx, out)
	return out, nil
}

// Cached returns the newest cached snapshot, in memory first, then from the store.
func (s *Service) Cached(ctx context.Context) (Refresh, error) {
	s.mu.RLock()
	latest, ok := s.latest, s.hasLatest
	s.mu.RUnlock()
	if ok {
		return latest, nil
	}
	if s.repo == nil {
		return Refresh{}, ErrNoSnapshot
	}
	rec, err := s.repo.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Refresh{}, ErrNoSnapshot
		}
		return Refresh{}, fmt.Errorf("load cached snapshot: %w", err)
	}
	return Refresh{Data: rec.Data.Normalize(), FetchedAt: rec.FetchedAt, Source: rec.Source, Stale: true}, nil
}

// Latest returns the last refresh result seen by this service.
func (s *Service) Latest() (Refresh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

// remember stores one refresh result as the latest.
func (s *Service) remember(r Refresh) {
	s.mu.Lock()
	s.latest = r
	s.hasLatest = true
	s.mu.Unlock()
}

// persist caches one fresh snapshot; store failures are logged, never surfaced.
func (s *Service) persist(ctx context.Context, r Refresh) {
	if s.repo == nil {
		return
	}
	rec := domain.SnapshotRecord{
		ID:        s.idGen(),
		Source:    r.Source,
		FetchedAt: r.FetchedAt,
		Data:      r.Data,
	}
	if err := s.repo.SaveSnapshot(ctx, rec); err != nil {
		s.logger.Warn("cache snapshot failed", "err", err)
		return
	}
	pruned, err := s.repo.PruneSnapshots(ctx, s.cfg.SnapshotRetention)
	if err != nil {
		s.logger.Warn("prune snapshots failed", "err", err)
		return
	}
	if pruned > 0 {
		s.logger.Debug("pruned cached snapshots", "count", pruned)
	}
}

// Preferences returns the stored preferences, or the configured defaults when none exist.
func (s *Service) Preferences(ctx context.Context) (domain.Preferences, error) {
	defaults, err := domain.NewPreferences(s.defaultStrategy(), s.cfg.DefaultFilter, nil, s.clock())
	if err != nil {
		return domain.Preferences{}, err
	}
	if s.repo == nil {
		return defaults, nil
	}
	prefs, err := s.repo.GetPreferences(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaults, nil
		}
		return domain.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}

// SetStrategy records the active strategy id.
func (s *Service) SetStrategy(ctx context.Context, id string) (domain.Preferences, error) {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return domain.Preferences{}, err
	}
	next, err := domain.NewPreferences(id, prefs.Filter, prefs.Pinned, s.clock())
	if err != nil {
		return domain.Preferences{}, err
	}
	return next, s.savePreferences(ctx, next)
}

// SetFilter records the work-order filter mode.
func (s *Service) SetFilter(ctx context.Context, filter domain.WorkOrderFilter) (domain.Preferences, error) {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return domain.Preferences{}, err
	}
	next, err := domain.NewPreferences(prefs.Strategy, filter, prefs.Pinned, s.clock())
	if err != nil {
		return domain.Preferences{}, err
	}
	return next, s.savePreferences(ctx, next)
}

// TogglePin pins or unpins one work order id.
func (s *Service) TogglePin(ctx context.Context, id string) (domain.Preferences, bool, error) {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return domain.Preferences{}, false, err
	}
	pinned, err := prefs.TogglePin(id, s.clock())
	if err != nil {
		return domain.Preferences{}, false, err
	}
	return prefs, pinned, s.savePreferences(ctx, prefs)
}

// savePreferences writes preferences when a store is configured.
func (s *Service) savePreferences(ctx context.Context, prefs domain.Preferences) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SavePreferences(ctx, prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// defaultStrategy returns the configured default strategy id.
func (s *Service) defaultStrategy() string {
	if id := strings.TrimSpace(s.cfg.DefaultStrategy); id != "" {
		return id
	}
	return "orbital"
}
