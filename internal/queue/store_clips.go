package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const clipColumns = "id, session_id, queue_item_id, path, duration, file_size, thumbnail_path, created_at"

// CreateClip records a finished clip artifact and assigns its ID.
func (s *Store) CreateClip(ctx context.Context, clip Clip) (*Clip, error) {
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO clips (`+clipColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.ID,
		clip.SessionID,
		nullableString(clip.QueueItemID),
		clip.Path,
		clip.Duration,
		clip.FileSize,
		nullableString(clip.ThumbnailPath),
		now(),
	); err != nil {
		return nil, fmt.Errorf("create clip: %w", err)
	}
	return s.GetClip(ctx, clip.ID)
}

// GetClip fetches a clip by identifier. A missing clip yields (nil, nil).
func (s *Store) GetClip(ctx context.Context, id string) (*Clip, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// ClipsForSession lists the clips produced for a session.
func (s *Store) ClipsForSession(ctx context.Context, sessionID string) ([]*Clip, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+clipColumns+` FROM clips WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

func scanClip(scanner interface{ Scan(dest ...any) error }) (*Clip, error) {
	var (
		clip       Clip
		itemID     sql.NullString
		thumbnail  sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&clip.ID,
		&clip.SessionID,
		&itemID,
		&clip.Path,
		&clip.Duration,
		&clip.FileSize,
		&thumbnail,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	clip.QueueItemID = itemID.String
	clip.ThumbnailPath = thumbnail.String
	if created, err := parseTimeString(createdRaw); err == nil {
		clip.CreatedAt = created
	}
	return &clip, nil
}
