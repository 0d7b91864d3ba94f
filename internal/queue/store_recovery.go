package queue

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	timestamp := now()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clip_queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		timestamp, timestamp, id, StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ResetStuckProcessing returns every PROCESSING item to PENDING. The daemon
// calls it on startup, when no worker can still own a claim.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	if err := checkTransition(StatusProcessing, StatusPending); err != nil {
		return 0, err
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items SET status = ?, last_heartbeat = NULL, updated_at = ? WHERE status = ?`,
		StatusPending, now(), StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing returns PROCESSING items whose heartbeat is older
// than cutoff to PENDING.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := checkTransition(StatusProcessing, StatusPending); err != nil {
		return 0, err
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending, now(), StatusProcessing, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}
