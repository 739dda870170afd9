package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GroupStore = (*GroupRepo)(nil)

const groupSelect = `SELECT g.id, g.name, g.display_name, g.local_site_id, IFNULL(ls.name, ''), g.visible, g.invite_only
	FROM review_groups g
	LEFT JOIN local_sites ls ON ls.id = g.local_site_id`

// GroupRepo is the SQLite implementation of the GroupStore port interface.
// It also owns local sites and their membership.
type GroupRepo struct {
	db *DB
}

// NewGroupRepo creates a new GroupRepo backed by the given DB.
func NewGroupRepo(db *DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// Create inserts a review group. Returns driven.ErrAlreadyExists when the
// name is taken on the group's local site.
func (r *GroupRepo) Create(ctx context.Context, group model.Group) (model.Group, error) {
	const query = `INSERT INTO review_groups (name, display_name, local_site_id, visible, invite_only) VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.Writer.ExecContext(ctx, query,
		group.Name, group.DisplayName, nullableID(group.LocalSiteID),
		boolToInt(group.Visible), boolToInt(group.InviteOnly),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Group{}, fmt.Errorf("create group %s: %w", group.Name, driven.ErrAlreadyExists)
		}
		return model.Group{}, fmt.Errorf("create group %s: %w", group.Name, err)
	}

	group.ID, err = result.LastInsertId()
	if err != nil {
		return model.Group{}, fmt.Errorf("get group id: %w", err)
	}

	if group.LocalSiteID != nil && group.LocalSite == "" {
		const siteQuery = `SELECT name FROM local_sites WHERE id = ?`
		if err := r.db.Writer.QueryRowContext(ctx, siteQuery, *group.LocalSiteID).Scan(&group.LocalSite); err != nil {
			return model.Group{}, fmt.Errorf("get local site %d: %w", *group.LocalSiteID, err)
		}
	}

	return group, nil
}

// GetByName retrieves a group by name on a local site. Returns nil, nil if it
// does not exist.
func (r *GroupRepo) GetByName(ctx context.Context, name string, localSiteID *int64) (*model.Group, error) {
	const query = groupSelect + ` WHERE g.name = ? AND IFNULL(g.local_site_id, 0) = ?`

	group, err := scanGroup(r.db.Reader.QueryRowContext(ctx, query, name, siteKey(localSiteID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", name, err)
	}

	return group, nil
}

// GetByNames returns the matching groups in the order requested.
func (r *GroupRepo) GetByNames(ctx context.Context, names []string, localSiteID *int64) ([]model.Group, error) {
	if len(names) == 0 {
		return nil, nil
	}

	query := groupSelect + ` WHERE IFNULL(g.local_site_id, 0) = ? AND g.name IN (` + placeholders(len(names)) + `)`
	args := make([]any, 0, len(names)+1)
	args = append(args, siteKey(localSiteID))
	for _, name := range names {
		args = append(args, name)
	}

	groups, err := r.queryGroups(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]model.Group, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}

	ordered := make([]model.Group, 0, len(groups))
	for _, name := range names {
		if g, ok := byName[name]; ok {
			ordered = append(ordered, g)
			delete(byName, name)
		}
	}

	return ordered, nil
}

// ListAccessible returns the groups on one local site the user may see,
// ordered by name.
func (r *GroupRepo) ListAccessible(ctx context.Context, userID int64, localSiteID *int64) ([]model.Group, error) {
	const query = groupSelect + `
		WHERE IFNULL(g.local_site_id, 0) = ?
		  AND ((g.visible = 1 AND g.invite_only = 0)
		       OR g.id IN (SELECT group_id FROM review_group_users WHERE user_id = ?))
		ORDER BY g.name`

	return r.queryGroups(ctx, query, siteKey(localSiteID), userID)
}

// JoinedGroupIDs returns the IDs of every group the user is a member of.
func (r *GroupRepo) JoinedGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	const query = `SELECT group_id FROM review_group_users WHERE user_id = ? ORDER BY group_id`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list joined groups for user %d: %w", userID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate joined groups: %w", err)
	}

	return ids, nil
}

// ListPublicNamesForUser returns the names of the non-invite-only groups the
// user belongs to.
func (r *GroupRepo) ListPublicNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `SELECT g.name FROM review_groups g
		JOIN review_group_users m ON m.group_id = g.id
		WHERE m.user_id = ? AND g.invite_only = 0
		ORDER BY g.name`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list group names for user %d: %w", userID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan group name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group names: %w", err)
	}

	return names, nil
}

// AddMember adds the user to the group. Joining twice is a no-op.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID int64) error {
	const query = `INSERT OR IGNORE INTO review_group_users (group_id, user_id) VALUES (?, ?)`

	if _, err := r.db.Writer.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("add user %d to group %d: %w", userID, groupID, err)
	}

	return nil
}

// RemoveMember removes the user from the group. Leaving a group the user is
// not in is a no-op.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID int64) error {
	const query = `DELETE FROM review_group_users WHERE group_id = ? AND user_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("remove user %d from group %d: %w", userID, groupID, err)
	}

	return nil
}

// CreateLocalSite inserts a local site.
func (r *GroupRepo) CreateLocalSite(ctx context.Context, name string) (model.LocalSite, error) {
	const query = `INSERT INTO local_sites (name) VALUES (?)`

	result, err := r.db.Writer.ExecContext(ctx, query, name)
	if err != nil {
		if isUniqueViolation(err) {
			return model.LocalSite{}, fmt.Errorf("create local site %s: %w", name, driven.ErrAlreadyExists)
		}
		return model.LocalSite{}, fmt.Errorf("create local site %s: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.LocalSite{}, fmt.Errorf("get local site id: %w", err)
	}

	return model.LocalSite{ID: id, Name: name}, nil
}

// GetLocalSite retrieves a local site by name. Returns nil, nil if it does
// not exist.
func (r *GroupRepo) GetLocalSite(ctx context.Context, name string) (*model.LocalSite, error) {
	const query = `SELECT id, name FROM local_sites WHERE name = ?`

	var site model.LocalSite
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&site.ID, &site.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get local site %s: %w", name, err)
	}

	return &site, nil
}

// LocalSitesForUser returns the local sites the user belongs to, ordered by name.
func (r *GroupRepo) LocalSitesForUser(ctx context.Context, userID int64) ([]model.LocalSite, error) {
	const query = `SELECT ls.id, ls.name FROM local_sites ls
		JOIN local_site_users lsu ON lsu.local_site_id = ls.id
		WHERE lsu.user_id = ?
		ORDER BY ls.name`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list local sites for user %d: %w", userID, err)
	}
	defer rows.Close()

	var sites []model.LocalSite
	for rows.Next() {
		var site model.LocalSite
		if err := rows.Scan(&site.ID, &site.Name); err != nil {
			return nil, fmt.Errorf("scan local site: %w", err)
		}
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate local sites: %w", err)
	}

	return sites, nil
}

// AddLocalSiteUser makes the user a member of the local site.
func (r *GroupRepo) AddLocalSiteUser(ctx context.Context, localSiteID, userID int64) error {
	const query = `INSERT OR IGNORE INTO local_site_users (local_site_id, user_id) VALUES (?, ?)`

	if _, err := r.db.Writer.ExecContext(ctx, query, localSiteID, userID); err != nil {
		return fmt.Errorf("add user %d to local site %d: %w", userID, localSiteID, err)
	}

	return nil
}

func (r *GroupRepo) queryGroups(ctx context.Context, query string, args ...any) ([]model.Group, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return groups, nil
}

func scanGroup(s scanner) (*model.Group, error) {
	var g model.Group
	var localSiteID sql.NullInt64

	err := s.Scan(&g.ID, &g.Name, &g.DisplayName, &localSiteID, &g.LocalSite, &g.Visible, &g.InviteOnly)
	if err != nil {
		return nil, err
	}
	g.LocalSiteID = idPtr(localSiteID)

	return &g, nil
}
