package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM clip_queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusRecording:
			health.Recording += count
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = integrity == "ok"

	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM clip_queue_items").Scan(&health.TotalItems); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count items: %w", err)
	}
	return health, nil
}

// ClearCompleted removes all COMPLETED items. Their clip rows survive with a
// NULL queue item reference.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM clip_queue_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// PurgeCompletedBefore deletes COMPLETED items last updated before cutoff
// together with their clip rows, returning the removed clips so callers can
// delete the files.
func (s *Store) PurgeCompletedBefore(ctx context.Context, cutoff time.Time) ([]*Clip, error) {
	ctx = ensureContext(ctx)
	stamp := formatTime(cutoff)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE queue_item_id IN (
             SELECT id FROM clip_queue_items WHERE status = ? AND updated_at < ?
         )`, StatusCompleted, stamp)
	if err != nil {
		return nil, fmt.Errorf("select expired clips: %w", err)
	}
	var clips []*Clip
	for rows.Next() {
		clip, scanErr := scanClip(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, clip := range clips {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clips WHERE id = ?`, clip.ID); err != nil {
			return nil, fmt.Errorf("delete clip %s: %w", clip.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM clip_queue_items WHERE status = ? AND updated_at < ?`, StatusCompleted, stamp); err != nil {
		return nil, fmt.Errorf("delete expired items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purge: %w", err)
	}
	return clips, nil
}
