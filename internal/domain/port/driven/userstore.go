package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// UserStore defines the driven port for user and profile persistence.
type UserStore interface {
	// Create inserts a new user and returns it with its assigned ID.
	Create(ctx context.Context, user model.User) (model.User, error)

	// GetByID returns ErrNotFound when no such user exists.
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// GetByUsername returns (nil, nil) when no such user exists.
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// GetByUsernames returns the users matching the given usernames, in the
	// order requested. Unknown usernames are skipped.
	GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error)

	// Update persists every mutable column of the user.
	Update(ctx context.Context, user model.User) error

	// ListActive returns all active users ordered by username.
	ListActive(ctx context.Context) ([]model.User, error)

	// GetProfile returns the user's profile, or model.DefaultProfile when none
	// has been saved yet.
	GetProfile(ctx context.Context, userID int64) (model.Profile, error)

	// SaveProfile inserts or replaces the user's profile.
	SaveProfile(ctx context.Context, profile model.Profile) error
}
