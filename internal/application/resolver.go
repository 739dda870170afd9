package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/application/fields"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ fields.Resolver = (*StoreResolver)(nil)

// StoreResolver resolves names typed into model list fields against the stores.
type StoreResolver struct {
	users    driven.UserStore
	groups   driven.GroupStore
	requests driven.ReviewRequestStore
}

// NewStoreResolver creates a StoreResolver.
func NewStoreResolver(users driven.UserStore, groups driven.GroupStore, requests driven.ReviewRequestStore) *StoreResolver {
	return &StoreResolver{users: users, groups: groups, requests: requests}
}

func (r *StoreResolver) ResolveUsers(ctx context.Context, usernames []string) ([]model.User, error) {
	return r.users.GetByUsernames(ctx, usernames)
}

func (r *StoreResolver) ResolveGroups(ctx context.Context, names []string, localSiteID *int64) ([]model.Group, error) {
	return r.groups.GetByNames(ctx, names, localSiteID)
}

// ResolveReviewRequests looks up public review requests by display id.
// Unknown and unpublished ids are skipped.
func (r *StoreResolver) ResolveReviewRequests(ctx context.Context, displayIDs []int64, localSiteID *int64) ([]model.ReviewRequestRef, error) {
	refs := make([]model.ReviewRequestRef, 0, len(displayIDs))
	for _, id := range displayIDs {
		rr, err := r.requests.GetByDisplayID(ctx, id, localSiteID)
		if err != nil {
			return nil, fmt.Errorf("looking up review request %d: %w", id, err)
		}
		if rr == nil || !rr.Public {
			continue
		}
		refs = append(refs, rr.Ref())
	}
	return refs, nil
}
