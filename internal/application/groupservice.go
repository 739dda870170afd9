package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// GroupService handles joining and leaving review groups.
type GroupService struct {
	groups driven.GroupStore
	logger *slog.Logger
}

// NewGroupService creates a GroupService.
func NewGroupService(groups driven.GroupStore, logger *slog.Logger) *GroupService {
	return &GroupService{groups: groups, logger: logger}
}

// accessibleGroup returns the named group when user may see it. Invisible and
// invite-only groups are only accessible to their members.
func (s *GroupService) accessibleGroup(ctx context.Context, user model.User, name string, localSiteID *int64) (*model.Group, error) {
	groups, err := s.groups.ListAccessible(ctx, user.ID, localSiteID)
	if err != nil {
		return nil, fmt.Errorf("listing accessible groups: %w", err)
	}
	for _, g := range groups {
		if g.Name == name {
			return &g, nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", name, driven.ErrNotFound)
}

// Join adds user to the named group.
func (s *GroupService) Join(ctx context.Context, user model.User, name string, localSiteID *int64) (*model.Group, error) {
	g, err := s.accessibleGroup(ctx, user, name, localSiteID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.AddMember(ctx, g.ID, user.ID); err != nil {
		return nil, fmt.Errorf("joining group %s: %w", name, err)
	}
	s.logger.Info("user joined group", "user", user.Username, "group", name)
	return g, nil
}

// Leave removes user from the named group.
func (s *GroupService) Leave(ctx context.Context, user model.User, name string, localSiteID *int64) (*model.Group, error) {
	g, err := s.accessibleGroup(ctx, user, name, localSiteID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RemoveMember(ctx, g.ID, user.ID); err != nil {
		return nil, fmt.Errorf("leaving group %s: %w", name, err)
	}
	s.logger.Info("user left group", "user", user.Username, "group", name)
	return g, nil
}

// LocalSite resolves a local site by name. An empty name is the global site
// and returns nil.
func (s *GroupService) LocalSite(ctx context.Context, name string) (*model.LocalSite, error) {
	if name == "" {
		return nil, nil
	}
	site, err := s.groups.GetLocalSite(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading local site %s: %w", name, err)
	}
	if site == nil {
		return nil, fmt.Errorf("local site %q: %w", name, driven.ErrNotFound)
	}
	return site, nil
}
