package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// RepositoryStore defines the driven port for source repository persistence.
type RepositoryStore interface {
	Create(ctx context.Context, repo model.Repository) (model.Repository, error)

	// GetByID returns ErrNotFound when no such repository exists.
	GetByID(ctx context.Context, id int64) (*model.Repository, error)

	ListAll(ctx context.Context) ([]model.Repository, error)
}
