package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// ErrInvalidCredentials is returned by Login when the backend rejects the
// username or password, or the account is disabled.
var ErrInvalidCredentials = errors.New("invalid username or password")

// SessionService logs users in and out and resolves session tokens.
type SessionService struct {
	auth     driven.AuthBackend
	sessions driven.SessionStore
	users    driven.UserStore
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSessionService creates a SessionService issuing sessions valid for ttl.
func NewSessionService(
	auth driven.AuthBackend,
	sessions driven.SessionStore,
	users driven.UserStore,
	ttl time.Duration,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		auth:     auth,
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		logger:   logger,
	}
}

// Login authenticates through the configured backend and opens a session.
func (s *SessionService) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	ok, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, fmt.Errorf("authenticating %s with %s backend: %w", username, s.auth.ID(), err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.auth.GetOrCreateUser(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("loading user %s: %w", username, err)
	}
	if user == nil || !user.IsActive {
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := model.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("creating session for %s: %w", username, err)
	}

	s.logger.Info("user logged in", "user", user.Username, "backend", s.auth.ID())
	return &session, user, nil
}

// Logout deletes the session.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// UserForToken returns the user owning a live session, or nil when the token
// is unknown, expired, or belongs to a disabled account.
func (s *SessionService) UserForToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if session.Expired(time.Now().UTC()) {
		if err := s.sessions.Delete(ctx, token); err != nil {
			s.logger.Error("deleting expired session", "error", err)
		}
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, driven.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session user %d: %w", session.UserID, err)
	}
	if !user.IsActive {
		return nil, nil
	}
	return user, nil
}

// Cleanup deletes expired sessions and returns how many were removed.
func (s *SessionService) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return n, nil
}

// StartCleanup deletes expired sessions immediately and then on every
// interval. It blocks until the context is canceled.
func (s *SessionService) StartCleanup(ctx context.Context, interval time.Duration) {
	s.cleanupOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session cleanup stopped")
			return
		case <-ticker.C:
			s.cleanupOnce(ctx)
		}
	}
}

func (s *SessionService) cleanupOnce(ctx context.Context) {
	n, err := s.Cleanup(ctx)
	if err != nil {
		s.logger.Error("session cleanup failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("expired sessions removed", "count", n)
	}
}
