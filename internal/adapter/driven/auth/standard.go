// Package auth provides the authentication backends users log in through.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthBackend = (*StandardBackend)(nil)

// StandardBackend authenticates against bcrypt password hashes stored on the
// local user records. Users can change their password, name and email.
type StandardBackend struct {
	users driven.UserStore
}

// NewStandardBackend creates a StandardBackend over the given user store.
func NewStandardBackend(users driven.UserStore) *StandardBackend {
	return &StandardBackend{users: users}
}

func (b *StandardBackend) ID() string   { return "builtin" }
func (b *StandardBackend) Name() string { return "Standard registration" }

func (b *StandardBackend) SupportsChangePassword() bool { return true }
func (b *StandardBackend) SupportsChangeName() bool     { return true }
func (b *StandardBackend) SupportsChangeEmail() bool    { return true }

// Authenticate reports whether password matches the stored hash. Unknown,
// inactive and passwordless users never authenticate.
func (b *StandardBackend) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := b.users.GetByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("look up user %s: %w", username, err)
	}
	if user == nil || !user.IsActive || user.PasswordHash == "" {
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password for %s: %w", username, err)
	}

	return true, nil
}

// GetOrCreateUser returns the existing user. Standard users are created by
// an administrator, never on login.
func (b *StandardBackend) GetOrCreateUser(ctx context.Context, username string) (*model.User, error) {
	user, err := b.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", username, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", username, driven.ErrNotFound)
	}
	return user, nil
}

// UpdatePassword stores a new hash on the user. The caller persists it.
func (b *StandardBackend) UpdatePassword(_ context.Context, user *model.User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

// UpdateName is a no-op: names live on the local user record.
func (b *StandardBackend) UpdateName(context.Context, *model.User) error { return nil }

// UpdateEmail is a no-op: email addresses live on the local user record.
func (b *StandardBackend) UpdateEmail(context.Context, *model.User) error { return nil }

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
