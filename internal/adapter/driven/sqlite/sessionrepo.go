package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a session.
func (r *SessionRepo) Create(ctx context.Context, session model.Session) error {
	const query = `INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		session.Token, session.UserID, formatTime(session.CreatedAt), formatTime(session.ExpiresAt))
	if err != nil {
		return fmt.Errorf("create session for user %d: %w", session.UserID, err)
	}

	return nil
}

// Get retrieves a session by token. Returns nil, nil if the token is unknown.
func (r *SessionRepo) Get(ctx context.Context, token string) (*model.Session, error) {
	const query = `SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`

	var (
		s         model.Session
		createdAt string
		expiresAt string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.UserID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	return &s, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE token = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// DeleteExpired removes every session whose expiry has passed.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= ?`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(nowUTC()))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return n, nil
}
