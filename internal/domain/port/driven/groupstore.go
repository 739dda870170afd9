package driven

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// GroupStore defines the driven port for review groups, local sites and
// group membership.
type GroupStore interface {
	Create(ctx context.Context, group model.Group) (model.Group, error)

	// GetByName returns (nil, nil) when the group does not exist on the given
	// local site (nil for the global site).
	GetByName(ctx context.Context, name string, localSiteID *int64) (*model.Group, error)

	// GetByNames returns the groups matching the given names on one local
	// site, in the order requested. Unknown names are skipped.
	GetByNames(ctx context.Context, names []string, localSiteID *int64) ([]model.Group, error)

	// ListAccessible returns the groups on one local site that the user may
	// see, ordered by name: visible non-invite-only groups plus any group the
	// user belongs to.
	ListAccessible(ctx context.Context, userID int64, localSiteID *int64) ([]model.Group, error)

	// JoinedGroupIDs returns the IDs of every group the user is a member of.
	JoinedGroupIDs(ctx context.Context, userID int64) ([]int64, error)

	// ListPublicNamesForUser returns the names of the non-invite-only groups
	// the user belongs to.
	ListPublicNamesForUser(ctx context.Context, userID int64) ([]string, error)

	AddMember(ctx context.Context, groupID, userID int64) error
	RemoveMember(ctx context.Context, groupID, userID int64) error

	// CreateLocalSite inserts a local site and returns it with its ID.
	CreateLocalSite(ctx context.Context, name string) (model.LocalSite, error)

	// GetLocalSite returns (nil, nil) when no local site has that name.
	GetLocalSite(ctx context.Context, name string) (*model.LocalSite, error)

	// LocalSitesForUser returns the local sites the user belongs to, ordered by name.
	LocalSitesForUser(ctx context.Context, userID int64) ([]model.LocalSite, error)

	AddLocalSiteUser(ctx context.Context, localSiteID, userID int64) error
}
