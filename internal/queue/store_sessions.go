package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateSession inserts a capture session.
func (s *Store) CreateSession(ctx context.Context, session Session) (*Session, error) {
	if strings.TrimSpace(session.ID) == "" {
		return nil, errors.New("create session: id is required")
	}
	workflow := strings.TrimSpace(session.Workflow)
	if workflow == "" {
		return nil, errors.New("create session: workflow is required")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO sessions (id, workflow, source_path, created_at) VALUES (?, ?, ?, ?)`,
		session.ID, workflow, nullableString(session.SourcePath), now(),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create session %s: already exists", session.ID)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s.GetSession(ctx, session.ID)
}

// GetSession fetches a session by identifier. A missing session yields (nil, nil).
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, workflow, source_path, created_at FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns every session ordered by creation time.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, workflow, source_path, created_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session together with its queue items and clips.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		session    Session
		sourcePath sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&session.ID, &session.Workflow, &sourcePath, &createdRaw); err != nil {
		return nil, err
	}
	session.SourcePath = sourcePath.String
	if created, err := parseTimeString(createdRaw); err == nil {
		session.CreatedAt = created
	}
	return &session, nil
}
