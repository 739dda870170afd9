package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// ChangesetChecker defines the driven port for asking the hosting service
// whether a changeset has been committed yet.
type ChangesetChecker interface {
	// IsPending reports whether changenum on repo has not been committed.
	// Repositories without hosting information are never pending.
	IsPending(ctx context.Context, repo model.Repository, changenum int64) (bool, error)
}
