package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// ReviewRequestStore defines the driven port for review requests, their
// drafts and change descriptions.
type ReviewRequestStore interface {
	// Create inserts a new review request with its relations and returns it
	// with its assigned ID (and local ID on local sites).
	Create(ctx context.Context, rr model.ReviewRequest) (model.ReviewRequest, error)

	// Get loads a review request with submitter, repository, dependencies and
	// targets. Returns ErrNotFound when it does not exist.
	Get(ctx context.Context, id int64) (*model.ReviewRequest, error)

	// GetByDisplayID resolves a user-facing id on a local site (nil for the
	// global site). Returns (nil, nil) when it does not exist.
	GetByDisplayID(ctx context.Context, displayID int64, localSiteID *int64) (*model.ReviewRequest, error)

	// Save persists the review request's columns and replaces its relations.
	Save(ctx context.Context, rr model.ReviewRequest) error

	// GetRefs returns references for the given review request IDs, in the
	// order requested. Unknown IDs are skipped.
	GetRefs(ctx context.Context, ids []int64) ([]model.ReviewRequestRef, error)

	// ListBlocking returns the public review requests that depend on id.
	ListBlocking(ctx context.Context, id int64) ([]model.ReviewRequestRef, error)

	// ListIndexable returns every public pending or submitted review request.
	ListIndexable(ctx context.Context) ([]model.ReviewRequest, error)

	// GetDraft returns (nil, nil) when the review request has no draft.
	GetDraft(ctx context.Context, reviewRequestID int64) (*model.ReviewRequestDraft, error)

	// SaveDraft inserts or replaces the draft and its relations.
	SaveDraft(ctx context.Context, draft model.ReviewRequestDraft) error

	DeleteDraft(ctx context.Context, reviewRequestID int64) error

	// Publish atomically saves the review request, inserts cd when non-nil
	// and deletes the draft. It returns the stored change description, or
	// nil when cd is nil.
	Publish(ctx context.Context, rr model.ReviewRequest, cd *model.ChangeDescription) (*model.ChangeDescription, error)

	// AddChangeDescription inserts the change description and returns it with its ID.
	AddChangeDescription(ctx context.Context, cd model.ChangeDescription) (model.ChangeDescription, error)

	// ListChangeDescriptions returns public change descriptions, oldest first.
	ListChangeDescriptions(ctx context.Context, reviewRequestID int64) ([]model.ChangeDescription, error)
}
