package accounts

import (
	"context"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// GroupEntry is the client-side view of one review group.
type GroupEntry struct {
	Name          string  `json:"name"`
	ReviewGroupID int64   `json:"reviewGroupID"`
	DisplayName   string  `json:"displayName"`
	LocalSiteName *string `json:"localSiteName"`
	Joined        bool    `json:"joined"`
	URL           string  `json:"url"`
}

// GroupsForm lists the groups the user can join, per local site. It has no
// fields; membership changes go through the group membership API.
type GroupsForm struct {
	formState
	req  Request
	deps Deps
}

// NewGroupsForm creates the groups form.
func NewGroupsForm(ctx context.Context, req Request, deps Deps) (*GroupsForm, error) {
	f := &GroupsForm{
		formState: newFormState("groups", "Groups", ""),
		req:       req,
		deps:      deps,
	}
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// JSViewData returns {"groups": {"": [...], "<local site>": [...]}} with the
// global site first and local sites ordered by name.
func (f *GroupsForm) JSViewData(ctx context.Context) (map[string]any, error) {
	joinedIDs, err := f.deps.Groups.JoinedGroupIDs(ctx, f.req.User.ID)
	if err != nil {
		return nil, fmt.Errorf("listing joined groups: %w", err)
	}
	joined := make(map[int64]struct{}, len(joinedIDs))
	for _, id := range joinedIDs {
		joined[id] = struct{}{}
	}

	serialized := orderedmap.New[string, []GroupEntry]()

	entries, err := f.serializeGroups(ctx, nil, joined)
	if err != nil {
		return nil, err
	}
	serialized.Set("", entries)

	sites, err := f.deps.Groups.LocalSitesForUser(ctx, f.req.User.ID)
	if err != nil {
		return nil, fmt.Errorf("listing local sites: %w", err)
	}
	for _, site := range sites {
		entries, err := f.serializeGroups(ctx, &site, joined)
		if err != nil {
			return nil, err
		}
		serialized.Set(site.Name, entries)
	}

	return map[string]any{"groups": serialized}, nil
}

func (f *GroupsForm) serializeGroups(ctx context.Context, site *model.LocalSite, joined map[int64]struct{}) ([]GroupEntry, error) {
	var siteID *int64
	var siteName *string
	if site != nil {
		siteID = &site.ID
		siteName = &site.Name
	}

	groups, err := f.deps.Groups.ListAccessible(ctx, f.req.User.ID, siteID)
	if err != nil {
		return nil, fmt.Errorf("listing accessible groups: %w", err)
	}

	entries := make([]GroupEntry, 0, len(groups))
	for _, g := range groups {
		_, isMember := joined[g.ID]
		entries = append(entries, GroupEntry{
			Name:          g.Name,
			ReviewGroupID: g.ID,
			DisplayName:   g.DisplayName,
			LocalSiteName: siteName,
			Joined:        isMember,
			URL:           g.AbsoluteURL(),
		})
	}
	return entries, nil
}
