package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/scsonic/nexavatar/api/domain"
)

// CreateSession records a newly authenticated session.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	query := `
		INSERT INTO user_sessions (session_id, access_code, ip_address, user_agent, started_at, last_activity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.conn(ctx).Exec(ctx, query,
		sess.ID, sess.AccessCode, sess.IPAddress, sess.UserAgent,
		sess.StartedAt, sess.LastActivity, sess.IsActive)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves an active session, joining the code type of the
// access code it was opened with.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT s.session_id, s.access_code, c.code_type, s.ip_address, s.user_agent,
		       s.started_at, s.last_activity, s.is_active
		FROM user_sessions s
		JOIN access_codes c ON c.code = s.access_code
		WHERE s.session_id = $1 AND s.is_active = TRUE`

	sess := &domain.Session{}
	err := s.conn(ctx).QueryRow(ctx, query, sessionID).Scan(
		&sess.ID, &sess.AccessCode, &sess.CodeType, &sess.IPAddress, &sess.UserAgent,
		&sess.StartedAt, &sess.LastActivity, &sess.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// TouchSession bumps the last activity timestamp.
func (s *Store) TouchSession(ctx context.Context, sessionID string) error {
	query := `UPDATE user_sessions SET last_activity = $2 WHERE session_id = $1 AND is_active = TRUE`

	_, err := s.conn(ctx).Exec(ctx, query, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DeactivateSession closes a session.
func (s *Store) DeactivateSession(ctx context.Context, sessionID string) error {
	query := `UPDATE user_sessions SET is_active = FALSE WHERE session_id = $1`

	_, err := s.conn(ctx).Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	query := `
		SELECT s.session_id, s.access_code, c.code_type, s.ip_address, s.user_agent,
		       s.started_at, s.last_activity, s.is_active
		FROM user_sessions s
		JOIN access_codes c ON c.code = s.access_code
		ORDER BY s.started_at DESC
		LIMIT $1`

	rows, err := s.conn(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		sess := &domain.Session{}
		if err := rows.Scan(&sess.ID, &sess.AccessCode, &sess.CodeType, &sess.IPAddress,
			&sess.UserAgent, &sess.StartedAt, &sess.LastActivity, &sess.IsActive); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
