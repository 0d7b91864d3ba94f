package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateRecording inserts a RECORDING item for a freshly accepted trigger.
// The database rejects a second RECORDING row for the same session with
// ErrSessionRecording.
func (s *Store) CreateRecording(ctx context.Context, in NewItem) (*Item, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, errors.New("create recording: session id is required")
	}
	if !in.TriggerType.Valid() {
		return nil, fmt.Errorf("create recording: unknown trigger type %q", in.TriggerType)
	}
	confidence := in.TriggerConfidence
	if in.TriggerType == TriggerManual {
		confidence = nil
	}
	source := strings.TrimSpace(in.TriggerSource)
	if source == "" {
		source = strings.ToLower(string(in.TriggerType))
	}

	id := uuid.NewString()
	timestamp := now()
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO clip_queue_items (
            id, session_id, status, trigger_type, trigger_source, trigger_confidence,
            t0, title, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		in.SessionID,
		StatusRecording,
		in.TriggerType,
		source,
		nullableFloat(confidence),
		in.T0,
		nullableString(in.Title),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create recording: %w", ErrSessionRecording)
		}
		return nil, fmt.Errorf("create recording: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. A missing item yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM clip_queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// RecordingForSession returns the session's RECORDING item, if any.
func (s *Store) RecordingForSession(ctx context.Context, sessionID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM clip_queue_items WHERE session_id = ? AND status = ? LIMIT 1`,
		sessionID,
		StatusRecording,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recording for session: %w", err)
	}
	return item, nil
}

// ItemsByStatus returns items matching a status ordered by creation time.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	return s.List(ctx, status)
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM clip_queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, rowid`
	return s.queryItems(ctx, query, args...)
}

// ListBySession returns a session's items in creation order.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]*Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM clip_queue_items WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID,
	)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextPending returns the oldest PENDING item, or nil when the queue is idle.
// Claiming it is a separate step; see StartProcessing.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM clip_queue_items WHERE status = ? ORDER BY created_at, rowid LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending item: %w", err)
	}
	return item, nil
}

// EndRecording moves a RECORDING item to PENDING with its end time.
func (s *Store) EndRecording(ctx context.Context, id string, t1 float64) (*Item, error) {
	if err := checkTransition(StatusRecording, StatusPending); err != nil {
		return nil, err
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items SET status = ?, t1 = ?, updated_at = ?
         WHERE id = ? AND status = ? AND t0 <= ?`,
		StatusPending, t1, now(), id, StatusRecording, t1,
	)
	if err != nil {
		return nil, fmt.Errorf("end recording: %w", err)
	}
	if err := s.requireRow(ctx, res, id, StatusRecording, StatusPending); err != nil {
		if errors.Is(err, errWindowRejected) {
			return nil, fmt.Errorf("end recording %s: %w", id, ErrInvalidWindow)
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// StartProcessing claims a PENDING item for a processor worker. The update is
// conditional on the current status, so only one concurrent caller succeeds;
// the others receive ErrNotClaimed.
func (s *Store) StartProcessing(ctx context.Context, id string) (*Item, error) {
	if err := checkTransition(StatusPending, StatusProcessing); err != nil {
		return nil, err
	}
	timestamp := now()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items
         SET status = ?, attempts = attempts + 1, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessing, timestamp, timestamp, id, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("start processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("start processing: %w", err)
	}
	if affected == 0 {
		existing, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("start processing %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("start processing %s (status %s): %w", id, existing.Status, ErrNotClaimed)
	}
	return s.GetByID(ctx, id)
}

// CompleteProcessing marks a PROCESSING item COMPLETED and links its clip.
func (s *Store) CompleteProcessing(ctx context.Context, id, clipID, thumbnailPath string) (*Item, error) {
	if err := checkTransition(StatusProcessing, StatusCompleted); err != nil {
		return nil, err
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items
         SET status = ?, clip_id = ?, thumbnail_path = COALESCE(?, thumbnail_path),
             error_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, nullableString(clipID), nullableString(thumbnailPath), now(), id, StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("complete processing: %w", err)
	}
	if err := s.requireRow(ctx, res, id, StatusProcessing, StatusCompleted); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// FailProcessing marks a PROCESSING item FAILED, retaining message for diagnostics.
func (s *Store) FailProcessing(ctx context.Context, id, message string) (*Item, error) {
	if err := checkTransition(StatusProcessing, StatusFailed); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "processing failed"
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items
         SET status = ?, error_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed, message, now(), id, StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("fail processing: %w", err)
	}
	if err := s.requireRow(ctx, res, id, StatusProcessing, StatusFailed); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Retry returns a FAILED item to PENDING and clears its error message.
func (s *Store) Retry(ctx context.Context, id string) (*Item, error) {
	if err := checkTransition(StatusFailed, StatusPending); err != nil {
		return nil, err
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items SET status = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending, now(), id, StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("retry item: %w", err)
	}
	if err := s.requireRow(ctx, res, id, StatusFailed, StatusPending); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// RetryAllFailed returns every FAILED item to PENDING.
func (s *Store) RetryAllFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE clip_queue_items SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`,
		StatusPending, now(), StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// Cancel deletes an item that has not completed. It reports whether a row was removed.
func (s *Store) Cancel(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM clip_queue_items WHERE id = ? AND status <> ?`,
		id, StatusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("cancel item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetTitle updates the display title of an item.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE clip_queue_items SET title = ?, updated_at = ? WHERE id = ?`,
		nullableString(strings.TrimSpace(title)), now(), id,
	)
	if err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("set title %s: %w", id, ErrNotFound)
	}
	return nil
}

var errWindowRejected = errors.New("window rejected")

// requireRow converts a zero-row conditional update into a typed error by
// inspecting the item's current state.
func (s *Store) requireRow(ctx context.Context, res sql.Result, id string, from, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if existing.Status == from {
		return errWindowRejected
	}
	return fmt.Errorf("%s: %w: %s -> %s", id, ErrInvalidTransition, existing.Status, to)
}
