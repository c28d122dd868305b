package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Store manages media item persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the library database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "library.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// CreateParams describes a new media item handed over by the upload surface.
// ID is optional; the upload path pre-assigns one so the on-disk layout can
// be derived before the record exists.
type CreateParams struct {
	ID          string
	TenantID    string
	Title       string
	Description string
	SourcePath  string
	SizeBytes   int64
}

// Create inserts a new item in pending state and returns it.
func (s *Store) Create(ctx context.Context, params CreateParams) (*Item, error) {
	if strings.TrimSpace(params.TenantID) == "" {
		return nil, services.Wrap(services.ErrValidation, "library", "create", "tenant id required", nil)
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "library", "create", "title required", nil)
	}
	if strings.TrimSpace(params.SourcePath) == "" {
		return nil, services.Wrap(services.ErrValidation, "library", "create", "source path required", nil)
	}

	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO media_items (
            id, tenant_id, title, description, source_path, size_bytes,
            status, sensitivity, progress, variants_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		params.TenantID,
		strings.TrimSpace(params.Title),
		strings.TrimSpace(params.Description),
		params.SourcePath,
		params.SizeBytes,
		StatusPending,
		VerdictUnchecked,
		0,
		"[]",
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert media item: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a media item. A missing id yields services.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: media item %s", services.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return item, nil
}

// ListByTenant returns all items owned by a tenant, newest first.
func (s *Store) ListByTenant(ctx context.Context, tenantID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM media_items WHERE tenant_id = ? ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media items: %w", err)
	}
	return items, nil
}

// SetProcessing transitions an item into processing and resets progress to 0.
// Persisted before any external call so a crash leaves an honest state behind.
func (s *Store) SetProcessing(ctx context.Context, id string) error {
	return s.updateByID(
		ctx,
		id,
		`UPDATE media_items SET status = ?, progress = 0, updated_at = ? WHERE id = ?`,
		StatusProcessing,
		nowStamp(),
		id,
	)
}

// SetDuration records the probed container duration.
func (s *Store) SetDuration(ctx context.Context, id string, seconds float64) error {
	return s.updateByID(
		ctx,
		id,
		`UPDATE media_items SET duration_seconds = ?, updated_at = ? WHERE id = ?`,
		seconds,
		nowStamp(),
		id,
	)
}

// UpdateProgress persists a new progress value for an in-flight item.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return s.updateByID(
		ctx,
		id,
		`UPDATE media_items SET progress = ?, updated_at = ? WHERE id = ?`,
		progress,
		nowStamp(),
		id,
	)
}

// AppendVariant records one completed rendition and the new overall progress
// in a single transaction. Duplicate quality labels are rejected.
func (s *Store) AppendVariant(ctx context.Context, id string, variant Variant, progress int) error {
	return retryOnBusy(ensureContext(ctx), func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin variant tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var raw string
		row := tx.QueryRowContext(ctx, `SELECT variants_json FROM media_items WHERE id = ?`, id)
		if err := row.Scan(&raw); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: media item %s", services.ErrNotFound, id)
		} else if err != nil {
			return fmt.Errorf("read variants: %w", err)
		}

		variants, err := decodeVariants(raw)
		if err != nil {
			return err
		}
		for _, existing := range variants {
			if existing.Quality == variant.Quality {
				return fmt.Errorf("variant %q already recorded for item %s", variant.Quality, id)
			}
		}
		variants = append(variants, variant)

		encoded, err := json.Marshal(variants)
		if err != nil {
			return fmt.Errorf("encode variants: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE media_items SET variants_json = ?, progress = ?, updated_at = ? WHERE id = ?`,
			string(encoded),
			progress,
			nowStamp(),
			id,
		); err != nil {
			return fmt.Errorf("append variant: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit variant: %w", err)
		}
		return nil
	})
}

// SetVerdict records the moderation outcome and the matching terminal status.
func (s *Store) SetVerdict(ctx context.Context, id string, verdict Verdict) error {
	var status Status
	switch verdict {
	case VerdictSafe:
		status = StatusSafe
	case VerdictFlagged:
		status = StatusFlagged
	default:
		return fmt.Errorf("verdict %q is not terminal", verdict)
	}
	return s.updateByID(
		ctx,
		id,
		`UPDATE media_items SET status = ?, sensitivity = ?, progress = 100, updated_at = ? WHERE id = ?`,
		status,
		verdict,
		nowStamp(),
		id,
	)
}

// MarkFailed transitions an item to the failed terminal state. Progress stays
// frozen at its last persisted value.
func (s *Store) MarkFailed(ctx context.Context, id string) error {
	return s.updateByID(
		ctx,
		id,
		`UPDATE media_items SET status = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nowStamp(),
		id,
	)
}

// Delete removes an item record. Deleting a missing id is a no-op; the bool
// reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM media_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete media item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetStuckProcessing returns items left in processing by an interrupted run
// back to pending so the scheduler can pick them up again at startup.
func (s *Store) ResetStuckProcessing(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM media_items WHERE status = ?`, StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("find stuck items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stuck item: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stuck items: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE media_items SET status = ?, progress = 0, updated_at = ? WHERE status = ?`,
		StatusPending,
		nowStamp(),
		StatusProcessing,
	); err != nil {
		return nil, fmt.Errorf("reset stuck items: %w", err)
	}
	return ids, nil
}

// HealthSummary describes aggregated item counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Safe       int
	Flagged    int
	Failed     int
}

// Health returns aggregate per-status counts.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM media_items GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("count media items: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan status count: %w", err)
		}
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusSafe:
			summary.Safe = count
		case StatusFlagged:
			summary.Flagged = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, fmt.Errorf("iterate status counts: %w", err)
	}
	return summary, nil
}

func (s *Store) updateByID(ctx context.Context, id, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update media item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: media item %s", services.ErrNotFound, id)
	}
	return nil
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
