package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

type rrFixture struct {
	db    *DB
	repo  *ReviewRequestRepo
	alice model.User
	bob   model.User
	devs  model.Group
}

func newRRFixture(t *testing.T) *rrFixture {
	t.Helper()

	db := setupTestDB(t)
	return &rrFixture{
		db:    db,
		repo:  NewReviewRequestRepo(db),
		alice: makeUser(t, db, "alice"),
		bob:   makeUser(t, db, "bob"),
		devs:  makeGroup(t, db, "devs", nil),
	}
}

func (f *rrFixture) create(t *testing.T, rr model.ReviewRequest) model.ReviewRequest {
	t.Helper()

	if rr.Submitter.ID == 0 {
		rr.Submitter = f.alice
	}
	created, err := f.repo.Create(context.Background(), rr)
	require.NoError(t, err)
	return created
}

func TestReviewRequestRepo_CreateAndGet(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	repository, err := NewRepositoryRepo(f.db).Create(ctx, model.Repository{Name: "core", HostingRepo: "acme/core"})
	require.NoError(t, err)

	dep := f.create(t, model.ReviewRequest{
		Public:               true,
		ReviewRequestDetails: model.ReviewRequestDetails{Summary: "Base change"},
	})

	created := f.create(t, model.ReviewRequest{
		Repository: &repository,
		Changenum:  77,
		ReviewRequestDetails: model.ReviewRequestDetails{
			Summary:      "Add widgets",
			Description:  "Adds *widgets*.",
			RichText:     true,
			BugsClosed:   "12, 13",
			DependsOn:    []model.ReviewRequestRef{dep.Ref()},
			TargetGroups: []model.Group{f.devs},
			TargetPeople: []model.User{f.bob},
			ExtraData:    map[string]any{"color": "blue"},
		},
	})
	assert.NotZero(t, created.ID)
	assert.Zero(t, created.LocalID)
	assert.Equal(t, model.ReviewRequestPending, created.Status)

	got, err := f.repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Add widgets", got.Summary)
	assert.True(t, got.RichText)
	assert.Equal(t, int64(77), got.Changenum)
	assert.Equal(t, "alice", got.Submitter.Username)
	require.NotNil(t, got.Repository)
	assert.Equal(t, "acme/core", got.Repository.HostingRepo)
	require.Len(t, got.DependsOn, 1)
	assert.Equal(t, dep.ID, got.DependsOn[0].ID)
	assert.Equal(t, "Base change", got.DependsOn[0].Summary)
	require.Len(t, got.TargetGroups, 1)
	assert.Equal(t, "devs", got.TargetGroups[0].Name)
	require.Len(t, got.TargetPeople, 1)
	assert.Equal(t, "bob", got.TargetPeople[0].Username)
	assert.Equal(t, "blue", got.ExtraData["color"])

	_, err = f.repo.Get(ctx, 999)
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestReviewRequestRepo_LocalSiteIDs(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	site, err := NewGroupRepo(f.db).CreateLocalSite(ctx, "acme")
	require.NoError(t, err)

	global := f.create(t, model.ReviewRequest{ReviewRequestDetails: model.ReviewRequestDetails{Summary: "global"}})
	first := f.create(t, model.ReviewRequest{LocalSiteID: &site.ID, LocalSite: site.Name})
	second := f.create(t, model.ReviewRequest{LocalSiteID: &site.ID, LocalSite: site.Name})

	assert.Equal(t, int64(1), first.LocalID)
	assert.Equal(t, int64(2), second.LocalID)

	got, err := f.repo.GetByDisplayID(ctx, 2, &site.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "acme", got.LocalSite)
	assert.Equal(t, "/s/acme/r/2/", got.AbsoluteURL())

	got, err = f.repo.GetByDisplayID(ctx, global.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "global", got.Summary)

	// A local review request is not reachable by primary key on the global site.
	got, err = f.repo.GetByDisplayID(ctx, first.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReviewRequestRepo_SaveReplacesRelations(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	qa := makeGroup(t, f.db, "qa", nil)
	rr := f.create(t, model.ReviewRequest{
		ReviewRequestDetails: model.ReviewRequestDetails{
			TargetGroups: []model.Group{f.devs},
			TargetPeople: []model.User{f.bob},
		},
	})

	rr.Public = true
	rr.Summary = "Published"
	rr.Status = model.ReviewRequestSubmitted
	rr.TargetGroups = []model.Group{qa, f.devs}
	rr.TargetPeople = nil
	rr.LastUpdated = time.Now().UTC()
	require.NoError(t, f.repo.Save(ctx, rr))

	got, err := f.repo.Get(ctx, rr.ID)
	require.NoError(t, err)
	assert.True(t, got.Public)
	assert.Equal(t, model.ReviewRequestSubmitted, got.Status)
	assert.Equal(t, "Published", got.Summary)
	require.Len(t, got.TargetGroups, 2)
	assert.Equal(t, "qa", got.TargetGroups[0].Name)
	assert.Equal(t, "devs", got.TargetGroups[1].Name)
	assert.Empty(t, got.TargetPeople)

	err = f.repo.Save(ctx, model.ReviewRequest{ID: 999})
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestReviewRequestRepo_Drafts(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	rr := f.create(t, model.ReviewRequest{
		ReviewRequestDetails: model.ReviewRequestDetails{
			Summary:      "Original",
			TargetPeople: []model.User{f.bob},
		},
	})

	draft, err := f.repo.GetDraft(ctx, rr.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)

	d := model.NewDraft(rr)
	d.Summary = "Edited"
	d.TargetPeople = []model.User{f.alice, f.bob}
	d.TargetGroups = []model.Group{f.devs}
	d.ExtraData = map[string]any{"tags": []string{"a", "b"}}
	require.NoError(t, f.repo.SaveDraft(ctx, d))

	draft, err = f.repo.GetDraft(ctx, rr.ID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "Edited", draft.Summary)
	require.Len(t, draft.TargetPeople, 2)
	assert.Equal(t, "alice", draft.TargetPeople[0].Username)
	assert.Equal(t, []any{"a", "b"}, draft.ExtraData["tags"])

	// Draft relations do not leak into the published review request.
	got, err := f.repo.Get(ctx, rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Summary)
	require.Len(t, got.TargetPeople, 1)
	assert.Empty(t, got.TargetGroups)

	d.Summary = "Edited again"
	require.NoError(t, f.repo.SaveDraft(ctx, d))
	draft, err = f.repo.GetDraft(ctx, rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited again", draft.Summary)

	require.NoError(t, f.repo.DeleteDraft(ctx, rr.ID))
	require.NoError(t, f.repo.DeleteDraft(ctx, rr.ID))

	draft, err = f.repo.GetDraft(ctx, rr.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)

	got, err = f.repo.Get(ctx, rr.ID)
	require.NoError(t, err)
	assert.Len(t, got.TargetPeople, 1)
}

func TestReviewRequestRepo_RefsAndBlocking(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	base := f.create(t, model.ReviewRequest{Public: true, ReviewRequestDetails: model.ReviewRequestDetails{Summary: "base"}})
	other := f.create(t, model.ReviewRequest{Public: true, ReviewRequestDetails: model.ReviewRequestDetails{Summary: "other"}})

	blocker := f.create(t, model.ReviewRequest{
		Public:               true,
		ReviewRequestDetails: model.ReviewRequestDetails{Summary: "public dependent", DependsOn: []model.ReviewRequestRef{base.Ref()}},
	})
	f.create(t, model.ReviewRequest{
		ReviewRequestDetails: model.ReviewRequestDetails{Summary: "private dependent", DependsOn: []model.ReviewRequestRef{base.Ref()}},
	})

	refs, err := f.repo.GetRefs(ctx, []int64{other.ID, 999, base.ID})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "other", refs[0].Summary)
	assert.Equal(t, "base", refs[1].Summary)
	assert.Equal(t, base.ID, refs[1].DisplayID)

	blocks, err := f.repo.ListBlocking(ctx, base.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, blocker.ID, blocks[0].ID)
}

func TestReviewRequestRepo_ListIndexable(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	pending := f.create(t, model.ReviewRequest{Public: true})
	submitted := f.create(t, model.ReviewRequest{Public: true, Status: model.ReviewRequestSubmitted})
	f.create(t, model.ReviewRequest{Public: true, Status: model.ReviewRequestDiscarded})
	f.create(t, model.ReviewRequest{})

	requests, err := f.repo.ListIndexable(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, pending.ID, requests[0].ID)
	assert.Equal(t, submitted.ID, requests[1].ID)
}

func TestReviewRequestRepo_ChangeDescriptions(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	rr := f.create(t, model.ReviewRequest{Public: true})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	second := model.ChangeDescription{ReviewRequestID: rr.ID, Text: "second", Public: true, Timestamp: base.Add(time.Hour)}
	second.RecordScalarChange("summary", "old", "new")
	_, err := f.repo.AddChangeDescription(ctx, second)
	require.NoError(t, err)

	first := model.ChangeDescription{ReviewRequestID: rr.ID, Text: "first", Public: true, Timestamp: base}
	first.RecordListChange("target_people",
		[]model.ChangeItem{{Label: "alice", Key: "1"}},
		[]model.ChangeItem{{Label: "bob", Key: "2", URL: "/users/bob/"}},
		"username")
	saved, err := f.repo.AddChangeDescription(ctx, first)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	_, err = f.repo.AddChangeDescription(ctx, model.ChangeDescription{ReviewRequestID: rr.ID, Text: "hidden"})
	require.NoError(t, err)

	cds, err := f.repo.ListChangeDescriptions(ctx, rr.ID)
	require.NoError(t, err)
	require.Len(t, cds, 2)
	assert.Equal(t, "first", cds[0].Text)
	assert.Equal(t, "second", cds[1].Text)
	assert.True(t, cds[0].Timestamp.Equal(base))

	people := cds[0].FieldsChanged["target_people"]
	assert.True(t, people.IsList)
	assert.Equal(t, "username", people.NameAttr)
	require.Len(t, people.Added, 1)
	assert.Equal(t, "/users/bob/", people.Added[0].URL)
	require.Len(t, people.Removed, 1)
	assert.Equal(t, "alice", people.Removed[0].Label)

	summary := cds[1].FieldsChanged["summary"]
	assert.Equal(t, "new", summary.New[0].Label)
}

func TestReviewRequestRepo_PublishRollsBackOnFailure(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	rr := f.create(t, model.ReviewRequest{
		Public: true,
		ReviewRequestDetails: model.ReviewRequestDetails{
			Summary:      "Old summary",
			TargetPeople: []model.User{f.bob},
		},
	})

	d := model.NewDraft(rr)
	d.Summary = "New summary"
	d.TargetGroups = []model.Group{f.devs}
	require.NoError(t, f.repo.SaveDraft(ctx, d))

	published := rr
	d.ApplyTo(&published)
	cd := model.ChangeDescription{ReviewRequestID: rr.ID, Text: "Renamed", Public: true}
	cd.RecordScalarChange("summary", "Old summary", "New summary")

	_, err := f.db.Writer.ExecContext(ctx, `CREATE TRIGGER fail_change_descriptions
		BEFORE INSERT ON change_descriptions
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	_, err = f.repo.Publish(ctx, published, &cd)
	require.Error(t, err)

	got, err := f.repo.Get(ctx, rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old summary", got.Summary)
	assert.Empty(t, got.TargetGroups)

	draft, err := f.repo.GetDraft(ctx, rr.ID)
	require.NoError(t, err)
	require.NotNil(t, draft, "draft survives a failed publish")
	assert.Equal(t, "New summary", draft.Summary)

	cds, err := f.repo.ListChangeDescriptions(ctx, rr.ID)
	require.NoError(t, err)
	assert.Empty(t, cds)

	// Retrying once the failure clears records the change.
	_, err = f.db.Writer.ExecContext(ctx, `DROP TRIGGER fail_change_descriptions`)
	require.NoError(t, err)

	saved, err := f.repo.Publish(ctx, published, &cd)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.NotZero(t, saved.ID)

	got, err = f.repo.Get(ctx, rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "New summary", got.Summary)
	assert.Len(t, got.TargetGroups, 1)

	draft, err = f.repo.GetDraft(ctx, rr.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)

	cds, err = f.repo.ListChangeDescriptions(ctx, rr.ID)
	require.NoError(t, err)
	require.Len(t, cds, 1)
	assert.Equal(t, "Renamed", cds[0].Text)
}

func TestReviewRequestRepo_PublishWithoutChangeDescription(t *testing.T) {
	f := newRRFixture(t)
	ctx := context.Background()

	rr := f.create(t, model.ReviewRequest{ReviewRequestDetails: model.ReviewRequestDetails{Summary: "Draft only"}})
	require.NoError(t, f.repo.SaveDraft(ctx, model.NewDraft(rr)))

	rr.Public = true
	saved, err := f.repo.Publish(ctx, rr, nil)
	require.NoError(t, err)
	assert.Nil(t, saved)

	got, err := f.repo.Get(ctx, rr.ID)
	require.NoError(t, err)
	assert.True(t, got.Public)

	draft, err := f.repo.GetDraft(ctx, rr.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)
}
