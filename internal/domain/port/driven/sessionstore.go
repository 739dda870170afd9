package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// SessionStore defines the driven port for login session persistence.
type SessionStore interface {
	Create(ctx context.Context, session model.Session) error

	// Get returns (nil, nil) when the token is unknown.
	Get(ctx context.Context, token string) (*model.Session, error)

	Delete(ctx context.Context, token string) error

	// DeleteExpired removes every session that expired before now and
	// returns the number removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
