package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/orrery/internal/app"
	"github.com/hylla/orrery/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// preferencesRowID pins the single preferences row.
const preferencesRowID = 1

// Repository stores viewer preferences and the snapshot cache.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; the poller and HTTP refreshes share this handle.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would otherwise see its own empty in-memory database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			strategy TEXT NOT NULL,
			work_order_filter TEXT NOT NULL DEFAULT 'active',
			pinned_json TEXT NOT NULL DEFAULT '[]',
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL,
			project_count INTEGER NOT NULL DEFAULT 0,
			work_order_count INTEGER NOT NULL DEFAULT 0,
			data_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// GetPreferences returns the stored preferences or app.ErrNotFound.
func (r *Repository) GetPreferences(ctx context.Context) (domain.Preferences, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT strategy, work_order_filter, pinned_json, updated_at
		FROM preferences WHERE id = ?
	`, preferencesRowID)
	var (
		prefs      domain.Preferences
		filterRaw  string
		pinnedRaw  string
		updatedRaw string
	)
	if err := row.Scan(&prefs.Strategy, &filterRaw, &pinnedRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Preferences{}, app.ErrNotFound
		}
		return domain.Preferences{}, err
	}
	filter, err := domain.ParseWorkOrderFilter(filterRaw)
	if err != nil {
		filter = domain.WorkOrderFilterActive
	}
	prefs.Filter = filter
	if err := json.Unmarshal([]byte(pinnedRaw), &prefs.Pinned); err != nil {
		return domain.Preferences{}, fmt.Errorf("decode pinned ids: %w", err)
	}
	prefs.UpdatedAt = parseTS(updatedRaw)
	return prefs, nil
}

// SavePreferences upserts the single preferences row.
func (r *Repository) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	pinned := prefs.Pinned
	if pinned == nil {
		pinned = []string{}
	}
	pinnedJSON, err := json.Marshal(pinned)
	if err != nil {
		return fmt.Errorf("encode pinned ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO preferences(id, strategy, work_order_filter, pinned_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			strategy = excluded.strategy,
			work_order_filter = excluded.work_order_filter,
			pinned_json = excluded.pinned_json,
			updated_at = excluded.updated_at
	`, preferencesRowID, prefs.Strategy, string(prefs.Filter), string(pinnedJSON), ts(prefs.UpdatedAt))
	return err
}

// SaveSnapshot inserts one cached snapshot.
func (r *Repository) SaveSnapshot(ctx context.Context, rec domain.SnapshotRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return domain.ErrInvalidID
	}
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots(id, source, fetched_at, project_count, work_order_count, data_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Source, ts(rec.FetchedAt), len(rec.Data.Nodes), len(rec.Data.WorkOrderNodes), string(dataJSON))
	return err
}

// LatestSnapshot returns the most recently fetched snapshot or app.ErrNotFound.
func (r *Repository) LatestSnapshot(ctx context.Context) (domain.SnapshotRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source, fetched_at, data_json
		FROM snapshots
		ORDER BY fetched_at DESC, rowid DESC
		LIMIT 1
	`)
	rec, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SnapshotRecord{}, app.ErrNotFound
	}
	return rec, err
}

// ListSnapshots returns cached snapshot metadata newest first; Data is left empty.
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, fetched_at, project_count, work_order_count
		FROM snapshots
		ORDER BY fetched_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SnapshotInfo, 0)
	for rows.Next() {
		var (
			info       SnapshotInfo
			fetchedRaw string
		)
		if err := rows.Scan(&info.ID, &info.Source, &fetchedRaw, &info.Projects, &info.WorkOrders); err != nil {
			return nil, err
		}
		info.FetchedAt = parseTS(fetchedRaw)
		out = append(out, info)
	}
	return out, rows.Err()
}

// SnapshotInfo summarizes one cached snapshot without its payload.
type SnapshotInfo struct {
	ID         string
	Source     string
	FetchedAt  time.Time
	Projects   int
	WorkOrders int
}

// PruneSnapshots keeps the newest keep snapshots and returns how many were deleted.
func (r *Repository) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE rowid NOT IN (
			SELECT rowid FROM snapshots
			ORDER BY fetched_at DESC, rowid DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// scanner abstracts row scanning for sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSnapshot scans one full snapshot row.
func scanSnapshot(s scanner) (domain.SnapshotRecord, error) {
	var (
		rec        domain.SnapshotRecord
		fetchedRaw string
		dataRaw    string
	)
	if err := s.Scan(&rec.ID, &rec.Source, &fetchedRaw, &dataRaw); err != nil {
		return domain.SnapshotRecord{}, err
	}
	rec.FetchedAt = parseTS(fetchedRaw)
	if err := json.Unmarshal([]byte(dataRaw), &rec.Data); err != nil {
		return domain.SnapshotRecord{}, fmt.Errorf("decode snapshot %s: %w", rec.ID, err)
	}
	rec.Data = rec.Data.Normalize()
	return rec, nil
}

// tsLayout keeps a fixed fraction width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
