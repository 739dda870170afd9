package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// AuthBackend defines the driven port for the configured authentication
// backend. The capability flags tell callers which account fields the backend
// lets users change; callers must not invoke an Update method whose flag is false.
type AuthBackend interface {
	ID() string
	Name() string

	SupportsChangePassword() bool
	SupportsChangeName() bool
	SupportsChangeEmail() bool

	// Authenticate reports whether the password is valid for username.
	Authenticate(ctx context.Context, username, password string) (bool, error)

	// GetOrCreateUser returns the local user record for an authenticated
	// username, creating it when the backend manages users externally.
	GetOrCreateUser(ctx context.Context, username string) (*model.User, error)

	// UpdatePassword changes the password on the backend. The user record may
	// be modified in place; the caller persists it.
	UpdatePassword(ctx context.Context, user *model.User, password string) error

	// UpdateName pushes user.FirstName and user.LastName to the backend.
	UpdateName(ctx context.Context, user *model.User) error

	// UpdateEmail pushes user.Email to the backend.
	UpdateEmail(ctx context.Context, user *model.User) error
}
