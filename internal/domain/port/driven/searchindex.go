package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// SearchIndex defines the driven port for the full-text search index.
type SearchIndex interface {
	// Index inserts or replaces the document identified by (Kind, ObjectID).
	Index(ctx context.Context, doc model.SearchDocument) error

	// Remove deletes a document. Removing an unindexed document is not an error.
	Remove(ctx context.Context, kind model.SearchKind, objectID int64) error

	// Search returns documents matching the query, newest first.
	Search(ctx context.Context, query model.SearchQuery) (model.SearchResults, error)

	// Clear removes every document from the index.
	Clear(ctx context.Context) error
}
