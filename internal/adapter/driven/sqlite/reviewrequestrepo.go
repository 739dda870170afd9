package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewRequestStore = (*ReviewRequestRepo)(nil)

const reviewRequestSelect = `SELECT rr.id, rr.local_id, rr.local_site_id, IFNULL(ls.name, ''), rr.repository_id,
		rr.changenum, rr.status, rr.public, rr.time_added,
		rr.summary, rr.description, rr.testing_done, rr.rich_text, rr.branch, rr.bugs_closed, rr.commit_id,
		rr.extra_data, rr.last_updated,
		u.id, u.username, u.first_name, u.last_name, u.email, u.password_hash, u.is_active, u.is_staff, u.date_joined
	FROM review_requests rr
	JOIN users u ON u.id = rr.submitter_id
	LEFT JOIN local_sites ls ON ls.id = rr.local_site_id`

const refSelect = `SELECT d.id, d.local_id, d.local_site_id, IFNULL(ls.name, ''), d.summary
	FROM review_requests d
	LEFT JOIN local_sites ls ON ls.id = d.local_site_id`

// Relation rows are keyed by is_draft so a review request and its draft can
// target different groups, people and dependencies.
const (
	relationPublished = 0
	relationDraft     = 1
)

// ReviewRequestRepo is the SQLite implementation of the ReviewRequestStore
// port interface. Drafts and change descriptions live in their own tables.
type ReviewRequestRepo struct {
	db *DB
}

// NewReviewRequestRepo creates a new ReviewRequestRepo backed by the given DB.
func NewReviewRequestRepo(db *DB) *ReviewRequestRepo {
	return &ReviewRequestRepo{db: db}
}

// Create inserts the review request and its relations in one transaction.
// Review requests on a local site get the next local ID for that site.
func (r *ReviewRequestRepo) Create(ctx context.Context, rr model.ReviewRequest) (model.ReviewRequest, error) {
	const nextLocalID = `SELECT IFNULL(MAX(local_id), 0) + 1 FROM review_requests WHERE local_site_id = ?`
	const query = `INSERT INTO review_requests (
			local_id, local_site_id, submitter_id, repository_id, changenum, status, public, time_added,
			summary, description, testing_done, rich_text, branch, bugs_closed, commit_id, extra_data, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if rr.Status == "" {
		rr.Status = model.ReviewRequestPending
	}
	if rr.TimeAdded.IsZero() {
		rr.TimeAdded = nowUTC()
	}
	if rr.LastUpdated.IsZero() {
		rr.LastUpdated = rr.TimeAdded
	}

	extraData, err := marshalExtraData(rr.ExtraData)
	if err != nil {
		return model.ReviewRequest{}, err
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.ReviewRequest{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if rr.LocalSiteID != nil {
		if err := tx.QueryRowContext(ctx, nextLocalID, *rr.LocalSiteID).Scan(&rr.LocalID); err != nil {
			return model.ReviewRequest{}, fmt.Errorf("allocate local id: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, query,
		rr.LocalID, nullableID(rr.LocalSiteID), rr.Submitter.ID, repositoryID(rr.Repository),
		rr.Changenum, string(rr.Status), boolToInt(rr.Public), formatTime(rr.TimeAdded),
		rr.Summary, rr.Description, rr.TestingDone, boolToInt(rr.RichText), rr.Branch,
		rr.BugsClosed, rr.CommitID, extraData, formatTime(rr.LastUpdated),
	)
	if err != nil {
		return model.ReviewRequest{}, fmt.Errorf("insert review request: %w", err)
	}

	rr.ID, err = result.LastInsertId()
	if err != nil {
		return model.ReviewRequest{}, fmt.Errorf("get review request id: %w", err)
	}

	if err := replaceRelations(ctx, tx, rr.ID, relationPublished, rr.ReviewRequestDetails); err != nil {
		return model.ReviewRequest{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.ReviewRequest{}, fmt.Errorf("commit transaction: %w", err)
	}

	return rr, nil
}

// Get loads a review request with its submitter, repository and relations.
func (r *ReviewRequestRepo) Get(ctx context.Context, id int64) (*model.ReviewRequest, error) {
	const query = reviewRequestSelect + ` WHERE rr.id = ?`

	rr, err := r.loadOne(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get review request %d: %w", id, err)
	}
	if rr == nil {
		return nil, fmt.Errorf("get review request %d: %w", id, driven.ErrNotFound)
	}

	return rr, nil
}

// GetByDisplayID resolves a user-facing id. Global review requests are
// addressed by primary key, local site ones by local id.
func (r *ReviewRequestRepo) GetByDisplayID(ctx context.Context, displayID int64, localSiteID *int64) (*model.ReviewRequest, error) {
	var (
		rr  *model.ReviewRequest
		err error
	)

	if localSiteID == nil {
		const query = reviewRequestSelect + ` WHERE rr.id = ? AND rr.local_site_id IS NULL`
		rr, err = r.loadOne(ctx, query, displayID)
	} else {
		const query = reviewRequestSelect + ` WHERE rr.local_site_id = ? AND rr.local_id = ?`
		rr, err = r.loadOne(ctx, query, *localSiteID, displayID)
	}
	if err != nil {
		return nil, fmt.Errorf("get review request #%d: %w", displayID, err)
	}

	return rr, nil
}

// Save persists the review request's columns and replaces its relations.
func (r *ReviewRequestRepo) Save(ctx context.Context, rr model.ReviewRequest) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateReviewRequest(ctx, tx, rr); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Publish saves the review request, records cd (when non-nil) and deletes
// the draft in one transaction. Nothing is written if any step fails.
func (r *ReviewRequestRepo) Publish(ctx context.Context, rr model.ReviewRequest, cd *model.ChangeDescription) (*model.ChangeDescription, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateReviewRequest(ctx, tx, rr); err != nil {
		return nil, err
	}

	var saved *model.ChangeDescription
	if cd != nil {
		inserted, err := insertChangeDescription(ctx, tx, *cd)
		if err != nil {
			return nil, err
		}
		saved = &inserted
	}

	if err := deleteDraft(ctx, tx, rr.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return saved, nil
}

func updateReviewRequest(ctx context.Context, tx execer, rr model.ReviewRequest) error {
	const query = `UPDATE review_requests SET
			repository_id = ?, changenum = ?, status = ?, public = ?,
			summary = ?, description = ?, testing_done = ?, rich_text = ?, branch = ?,
			bugs_closed = ?, commit_id = ?, extra_data = ?, last_updated = ?
		WHERE id = ?`

	extraData, err := marshalExtraData(rr.ExtraData)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, query,
		repositoryID(rr.Repository), rr.Changenum, string(rr.Status), boolToInt(rr.Public),
		rr.Summary, rr.Description, rr.TestingDone, boolToInt(rr.RichText), rr.Branch,
		rr.BugsClosed, rr.CommitID, extraData, formatTime(rr.LastUpdated), rr.ID,
	)
	if err != nil {
		return fmt.Errorf("update review request %d: %w", rr.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update review request %d: %w", rr.ID, driven.ErrNotFound)
	}

	return replaceRelations(ctx, tx, rr.ID, relationPublished, rr.ReviewRequestDetails)
}

// GetRefs returns references for the given IDs in the order requested.
func (r *ReviewRequestRepo) GetRefs(ctx context.Context, ids []int64) ([]model.ReviewRequestRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := refSelect + ` WHERE d.id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	refs, err := r.queryRefs(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.ReviewRequestRef, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}

	ordered := make([]model.ReviewRequestRef, 0, len(refs))
	for _, id := range ids {
		if ref, ok := byID[id]; ok {
			ordered = append(ordered, ref)
			delete(byID, id)
		}
	}

	return ordered, nil
}

// ListBlocking returns the public review requests whose published
// dependencies include id.
func (r *ReviewRequestRepo) ListBlocking(ctx context.Context, id int64) ([]model.ReviewRequestRef, error) {
	const query = refSelect + `
		JOIN review_request_depends_on t ON t.review_request_id = d.id
		WHERE t.depends_on_id = ? AND t.is_draft = 0 AND d.public = 1
		ORDER BY d.id`

	return r.queryRefs(ctx, query, id)
}

// ListIndexable returns every public pending or submitted review request.
func (r *ReviewRequestRepo) ListIndexable(ctx context.Context) ([]model.ReviewRequest, error) {
	const query = reviewRequestSelect + ` WHERE rr.public = 1 AND rr.status IN ('P', 'S') ORDER BY rr.id`

	requests, err := r.loadMany(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list indexable review requests: %w", err)
	}

	return requests, nil
}

// GetDraft returns the review request's draft. Returns nil, nil if there is none.
func (r *ReviewRequestRepo) GetDraft(ctx context.Context, reviewRequestID int64) (*model.ReviewRequestDraft, error) {
	const query = `SELECT review_request_id, summary, description, testing_done, rich_text, branch, bugs_closed,
			commit_id, extra_data, last_updated
		FROM review_request_drafts WHERE review_request_id = ?`

	var (
		draft       model.ReviewRequestDraft
		extraData   string
		lastUpdated string
	)

	d := &draft.ReviewRequestDetails
	err := r.db.Reader.QueryRowContext(ctx, query, reviewRequestID).Scan(
		&draft.ReviewRequestID, &d.Summary, &d.Description, &d.TestingDone, &d.RichText,
		&d.Branch, &d.BugsClosed, &d.CommitID, &extraData, &lastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft for review request %d: %w", reviewRequestID, err)
	}

	if d.ExtraData, err = unmarshalExtraData(extraData); err != nil {
		return nil, err
	}
	if d.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}

	if err := r.loadRelations(ctx, reviewRequestID, relationDraft, d); err != nil {
		return nil, err
	}

	return &draft, nil
}

// SaveDraft inserts or replaces the draft and its relations.
func (r *ReviewRequestRepo) SaveDraft(ctx context.Context, draft model.ReviewRequestDraft) error {
	const query = `INSERT INTO review_request_drafts (
			review_request_id, summary, description, testing_done, rich_text, branch, bugs_closed,
			commit_id, extra_data, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(review_request_id) DO UPDATE SET
			summary = excluded.summary,
			description = excluded.description,
			testing_done = excluded.testing_done,
			rich_text = excluded.rich_text,
			branch = excluded.branch,
			bugs_closed = excluded.bugs_closed,
			commit_id = excluded.commit_id,
			extra_data = excluded.extra_data,
			last_updated = excluded.last_updated`

	extraData, err := marshalExtraData(draft.ExtraData)
	if err != nil {
		return err
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	d := draft.ReviewRequestDetails
	_, err = tx.ExecContext(ctx, query,
		draft.ReviewRequestID, d.Summary, d.Description, d.TestingDone, boolToInt(d.RichText),
		d.Branch, d.BugsClosed, d.CommitID, extraData, formatTime(d.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("save draft for review request %d: %w", draft.ReviewRequestID, err)
	}

	if err := replaceRelations(ctx, tx, draft.ReviewRequestID, relationDraft, d); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeleteDraft removes the draft and its relations. Deleting a missing draft
// is not an error.
func (r *ReviewRequestRepo) DeleteDraft(ctx context.Context, reviewRequestID int64) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteDraft(ctx, tx, reviewRequestID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func deleteDraft(ctx context.Context, tx execer, reviewRequestID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_request_drafts WHERE review_request_id = ?`, reviewRequestID); err != nil {
		return fmt.Errorf("delete draft for review request %d: %w", reviewRequestID, err)
	}
	return clearRelations(ctx, tx, reviewRequestID, relationDraft)
}

// AddChangeDescription inserts a change description.
func (r *ReviewRequestRepo) AddChangeDescription(ctx context.Context, cd model.ChangeDescription) (model.ChangeDescription, error) {
	return insertChangeDescription(ctx, r.db.Writer, cd)
}

func insertChangeDescription(ctx context.Context, tx execer, cd model.ChangeDescription) (model.ChangeDescription, error) {
	const query = `INSERT INTO change_descriptions (review_request_id, text, rich_text, public, timestamp, fields_changed)
		VALUES (?, ?, ?, ?, ?, ?)`

	if cd.Timestamp.IsZero() {
		cd.Timestamp = nowUTC()
	}

	fieldsChanged, err := json.Marshal(cd.FieldsChanged)
	if err != nil {
		return model.ChangeDescription{}, fmt.Errorf("marshal fields_changed: %w", err)
	}
	if cd.FieldsChanged == nil {
		fieldsChanged = []byte("{}")
	}

	result, err := tx.ExecContext(ctx, query,
		cd.ReviewRequestID, cd.Text, boolToInt(cd.RichText), boolToInt(cd.Public),
		formatTime(cd.Timestamp), string(fieldsChanged),
	)
	if err != nil {
		return model.ChangeDescription{}, fmt.Errorf("insert change description for review request %d: %w", cd.ReviewRequestID, err)
	}

	cd.ID, err = result.LastInsertId()
	if err != nil {
		return model.ChangeDescription{}, fmt.Errorf("get change description id: %w", err)
	}

	return cd, nil
}

// ListChangeDescriptions returns public change descriptions, oldest first.
func (r *ReviewRequestRepo) ListChangeDescriptions(ctx context.Context, reviewRequestID int64) ([]model.ChangeDescription, error) {
	const query = `SELECT id, review_request_id, text, rich_text, public, timestamp, fields_changed
		FROM change_descriptions
		WHERE review_request_id = ? AND public = 1
		ORDER BY timestamp, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, reviewRequestID)
	if err != nil {
		return nil, fmt.Errorf("list change descriptions for review request %d: %w", reviewRequestID, err)
	}
	defer rows.Close()

	var cds []model.ChangeDescription
	for rows.Next() {
		var (
			cd            model.ChangeDescription
			timestamp     string
			fieldsChanged string
		)
		if err := rows.Scan(&cd.ID, &cd.ReviewRequestID, &cd.Text, &cd.RichText, &cd.Public, &timestamp, &fieldsChanged); err != nil {
			return nil, fmt.Errorf("scan change description: %w", err)
		}

		if cd.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(fieldsChanged), &cd.FieldsChanged); err != nil {
			return nil, fmt.Errorf("unmarshal fields_changed: %w", err)
		}

		cds = append(cds, cd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change descriptions: %w", err)
	}

	return cds, nil
}

// loadOne returns nil, nil when the query matches nothing.
func (r *ReviewRequestRepo) loadOne(ctx context.Context, query string, args ...any) (*model.ReviewRequest, error) {
	requests, err := r.loadMany(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// loadMany scans every row before loading repositories and relations so the
// reader connection is released between queries.
func (r *ReviewRequestRepo) loadMany(ctx context.Context, query string, args ...any) ([]model.ReviewRequest, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var (
		requests      []model.ReviewRequest
		repositoryIDs []sql.NullInt64
	)
	for rows.Next() {
		rr, repoID, err := scanReviewRequest(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan review request: %w", err)
		}
		requests = append(requests, *rr)
		repositoryIDs = append(repositoryIDs, repoID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate review requests: %w", err)
	}
	_ = rows.Close()

	repos := NewRepositoryRepo(r.db)
	for i := range requests {
		if repositoryIDs[i].Valid {
			repo, err := repos.GetByID(ctx, repositoryIDs[i].Int64)
			if err != nil {
				return nil, err
			}
			requests[i].Repository = repo
		}

		if err := r.loadRelations(ctx, requests[i].ID, relationPublished, &requests[i].ReviewRequestDetails); err != nil {
			return nil, err
		}
	}

	return requests, nil
}

func (r *ReviewRequestRepo) loadRelations(ctx context.Context, id int64, isDraft int, d *model.ReviewRequestDetails) error {
	const groupsQuery = groupSelect + `
		JOIN review_request_target_groups t ON t.group_id = g.id
		WHERE t.review_request_id = ? AND t.is_draft = ?
		ORDER BY t.position`
	const peopleQuery = `SELECT ` + userColumns + ` FROM users
		JOIN review_request_target_people t ON t.user_id = users.id
		WHERE t.review_request_id = ? AND t.is_draft = ?
		ORDER BY t.position`
	const dependsQuery = refSelect + `
		JOIN review_request_depends_on t ON t.depends_on_id = d.id
		WHERE t.review_request_id = ? AND t.is_draft = ?
		ORDER BY t.position`

	var err error

	if d.TargetGroups, err = NewGroupRepo(r.db).queryGroups(ctx, groupsQuery, id, isDraft); err != nil {
		return fmt.Errorf("load target groups for %d: %w", id, err)
	}
	if d.TargetPeople, err = NewUserRepo(r.db).queryUsers(ctx, peopleQuery, id, isDraft); err != nil {
		return fmt.Errorf("load target people for %d: %w", id, err)
	}
	if d.DependsOn, err = r.queryRefs(ctx, dependsQuery, id, isDraft); err != nil {
		return fmt.Errorf("load dependencies for %d: %w", id, err)
	}

	return nil
}

func (r *ReviewRequestRepo) queryRefs(ctx context.Context, query string, args ...any) ([]model.ReviewRequestRef, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review request refs: %w", err)
	}
	defer rows.Close()

	var refs []model.ReviewRequestRef
	for rows.Next() {
		var (
			ref         model.ReviewRequestRef
			localID     int64
			localSiteID sql.NullInt64
		)
		if err := rows.Scan(&ref.ID, &localID, &localSiteID, &ref.LocalSite, &ref.Summary); err != nil {
			return nil, fmt.Errorf("scan review request ref: %w", err)
		}

		ref.DisplayID = ref.ID
		if localSiteID.Valid && localID != 0 {
			ref.DisplayID = localID
		}

		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review request refs: %w", err)
	}

	return refs, nil
}

// replaceRelations rewrites the target groups, target people and
// dependencies of one side (published or draft) of a review request.
func replaceRelations(ctx context.Context, tx execer, id int64, isDraft int, d model.ReviewRequestDetails) error {
	if err := clearRelations(ctx, tx, id, isDraft); err != nil {
		return err
	}

	for i, g := range d.TargetGroups {
		const query = `INSERT OR IGNORE INTO review_request_target_groups (review_request_id, is_draft, group_id, position) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, id, isDraft, g.ID, i); err != nil {
			return fmt.Errorf("insert target group %s: %w", g.Name, err)
		}
	}

	for i, u := range d.TargetPeople {
		const query = `INSERT OR IGNORE INTO review_request_target_people (review_request_id, is_draft, user_id, position) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, id, isDraft, u.ID, i); err != nil {
			return fmt.Errorf("insert target person %s: %w", u.Username, err)
		}
	}

	for i, ref := range d.DependsOn {
		const query = `INSERT OR IGNORE INTO review_request_depends_on (review_request_id, is_draft, depends_on_id, position) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, id, isDraft, ref.ID, i); err != nil {
			return fmt.Errorf("insert dependency %d: %w", ref.ID, err)
		}
	}

	return nil
}

func clearRelations(ctx context.Context, tx execer, id int64, isDraft int) error {
	for _, table := range []string{
		"review_request_target_groups",
		"review_request_target_people",
		"review_request_depends_on",
	} {
		query := `DELETE FROM ` + table + ` WHERE review_request_id = ? AND is_draft = ?`
		if _, err := tx.ExecContext(ctx, query, id, isDraft); err != nil {
			return fmt.Errorf("clear %s for %d: %w", table, id, err)
		}
	}
	return nil
}

func scanReviewRequest(s scanner) (*model.ReviewRequest, sql.NullInt64, error) {
	var (
		rr           model.ReviewRequest
		localSiteID  sql.NullInt64
		repositoryID sql.NullInt64
		status       string
		timeAdded    string
		extraData    string
		lastUpdated  string
		dateJoined   string
	)

	d := &rr.ReviewRequestDetails
	u := &rr.Submitter
	err := s.Scan(
		&rr.ID, &rr.LocalID, &localSiteID, &rr.LocalSite, &repositoryID,
		&rr.Changenum, &status, &rr.Public, &timeAdded,
		&d.Summary, &d.Description, &d.TestingDone, &d.RichText, &d.Branch, &d.BugsClosed, &d.CommitID,
		&extraData, &lastUpdated,
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsStaff, &dateJoined,
	)
	if err != nil {
		return nil, sql.NullInt64{}, err
	}

	rr.LocalSiteID = idPtr(localSiteID)
	rr.Status = model.ReviewRequestStatus(status)

	if rr.TimeAdded, err = parseTime(timeAdded); err != nil {
		return nil, sql.NullInt64{}, fmt.Errorf("parse time_added: %w", err)
	}
	if d.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, sql.NullInt64{}, fmt.Errorf("parse last_updated: %w", err)
	}
	if u.DateJoined, err = parseTime(dateJoined); err != nil {
		return nil, sql.NullInt64{}, fmt.Errorf("parse date_joined: %w", err)
	}
	if d.ExtraData, err = unmarshalExtraData(extraData); err != nil {
		return nil, sql.NullInt64{}, err
	}

	return &rr, repositoryID, nil
}

func repositoryID(repo *model.Repository) any {
	if repo == nil {
		return nil
	}
	return repo.ID
}

func marshalExtraData(data map[string]any) (string, error) {
	if len(data) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal extra_data: %w", err)
	}
	return string(b), nil
}

func unmarshalExtraData(s string) (map[string]any, error) {
	data := map[string]any{}
	if s == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, fmt.Errorf("unmarshal extra_data: %w", err)
	}
	return data, nil
}
