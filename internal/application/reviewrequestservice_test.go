package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/application/fields"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

type publishRecorder struct {
	published []model.ReviewRequest
}

func (r *publishRecorder) ReviewRequestPublished(_ context.Context, rr model.ReviewRequest) {
	r.published = append(r.published, rr)
}

type fakeResolver struct {
	users map[string]model.User
}

func (r *fakeResolver) ResolveUsers(_ context.Context, names []string) ([]model.User, error) {
	var out []model.User
	for _, n := range names {
		if u, ok := r.users[n]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeResolver) ResolveGroups(context.Context, []string, *int64) ([]model.Group, error) {
	return nil, nil
}

func (r *fakeResolver) ResolveReviewRequests(context.Context, []int64, *int64) ([]model.ReviewRequestRef, error) {
	return nil, nil
}

type rrFixture struct {
	store      *fakeReviewRequestStore
	changesets *fakeChangesetChecker
	notifier   *publishRecorder
	svc        *ReviewRequestService
	owner      model.User
	other      model.User
	bob        model.User
}

func newRRFixture() *rrFixture {
	fx := &rrFixture{
		store:      newFakeReviewRequestStore(),
		changesets: &fakeChangesetChecker{},
		notifier:   &publishRecorder{},
		owner:      model.User{ID: 1, Username: "alice", IsActive: true},
		other:      model.User{ID: 2, Username: "mallory", IsActive: true},
		bob:        model.User{ID: 3, Username: "bob", IsActive: true},
	}
	resolver := &fakeResolver{users: map[string]model.User{"bob": fx.bob}}
	fx.svc = NewReviewRequestService(fx.store, nil, fx.changesets,
		fields.NewBuiltinRegistry(slog.Default()), resolver, fx.notifier, slog.Default())

	fx.store.requests[1] = model.ReviewRequest{
		ID:         1,
		Submitter:  fx.owner,
		Status:     model.ReviewRequestPending,
		Repository: &model.Repository{ID: 1, Name: "core"},
		ReviewRequestDetails: model.ReviewRequestDetails{
			Summary: "Initial summary",
		},
	}
	fx.store.nextID = 2
	return fx
}

func (fx *rrFixture) fillDraft(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for field, value := range map[string]string{
		fields.FieldSummary:      "Add caching",
		fields.FieldDescription:  "Adds a cache.",
		fields.FieldTargetPeople: "bob",
	} {
		_, err := fx.svc.UpdateDraftField(ctx, 1, fx.owner, field, value)
		require.NoError(t, err)
	}
}

func TestUpdateDraftField_CreatesDraft(t *testing.T) {
	fx := newRRFixture()

	rendered, err := fx.svc.UpdateDraftField(context.Background(), 1, fx.owner, fields.FieldBranch, " feature ")
	require.NoError(t, err)
	assert.Equal(t, "feature", rendered.Value)

	draft, ok := fx.store.drafts[1]
	require.True(t, ok)
	assert.Equal(t, "feature", draft.Branch)
	assert.Equal(t, "Initial summary", draft.Summary, "draft is seeded from the review request")
	assert.Empty(t, fx.store.requests[1].Branch)
}

func TestUpdateDraftField_Errors(t *testing.T) {
	fx := newRRFixture()
	ctx := context.Background()

	_, err := fx.svc.UpdateDraftField(ctx, 1, fx.other, fields.FieldBranch, "x")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = fx.svc.UpdateDraftField(ctx, 1, fx.owner, "nope", "x")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldSubmitter, "x")
	assert.ErrorIs(t, err, fields.ErrFieldNotEditable)

	_, err = fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldTargetPeople, "ghost")
	var unknown *fields.UnknownItemsError
	assert.True(t, errors.As(err, &unknown))

	staff := fx.other
	staff.IsStaff = true
	_, err = fx.svc.UpdateDraftField(ctx, 1, staff, fields.FieldBranch, "x")
	assert.NoError(t, err)
}

func TestPublish_RequiresValidDraft(t *testing.T) {
	fx := newRRFixture()
	ctx := context.Background()

	_, err := fx.svc.Publish(ctx, 1, fx.owner, "")
	assert.ErrorIs(t, err, ErrNoDraft)

	_, err = fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldBranch, "x")
	require.NoError(t, err)

	_, err = fx.svc.Publish(ctx, 1, fx.owner, "")
	var invalid *PublishValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Len(t, invalid.Problems, 2, "description and reviewers are missing")
	assert.False(t, fx.store.requests[1].Public)
}

func TestPublish_FirstPublishRecordsNoChanges(t *testing.T) {
	fx := newRRFixture()
	fx.fillDraft(t)

	cd, err := fx.svc.Publish(context.Background(), 1, fx.owner, "")
	require.NoError(t, err)
	assert.Nil(t, cd)

	rr := fx.store.requests[1]
	assert.True(t, rr.Public)
	assert.Equal(t, "Add caching", rr.Summary)
	require.Len(t, rr.TargetPeople, 1)
	assert.Equal(t, "bob", rr.TargetPeople[0].Username)
	assert.Empty(t, fx.store.drafts)
	assert.Empty(t, fx.store.changes)
	require.Len(t, fx.notifier.published, 1)
}

func TestPublish_RecordsChangeDescription(t *testing.T) {
	fx := newRRFixture()
	ctx := context.Background()
	fx.fillDraft(t)
	_, err := fx.svc.Publish(ctx, 1, fx.owner, "")
	require.NoError(t, err)

	_, err = fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldSummary, "Add a better cache")
	require.NoError(t, err)
	_, err = fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldBugsClosed, "12, 4")
	require.NoError(t, err)

	cd, err := fx.svc.Publish(ctx, 1, fx.owner, "Addressed feedback.")
	require.NoError(t, err)
	require.NotNil(t, cd)

	assert.Equal(t, "Addressed feedback.", cd.Text)
	assert.Len(t, cd.FieldsChanged, 2)

	summary := cd.FieldsChanged[fields.FieldSummary]
	assert.Equal(t, "Add caching", summary.Old[0].Label)
	assert.Equal(t, "Add a better cache", summary.New[0].Label)

	bugs := cd.FieldsChanged[fields.FieldBugsClosed]
	require.Len(t, bugs.Added, 2)
	assert.Equal(t, "4", bugs.Added[0].Label)

	rendered, err := fx.svc.ChangeDescriptions(ctx, &model.ReviewRequest{ID: 1})
	require.NoError(t, err)
	require.Len(t, rendered, 1)
	require.Len(t, rendered[0].Changes, 2)
	assert.Equal(t, fields.FieldSummary, rendered[0].Changes[0].FieldID)
	assert.Equal(t, fields.FieldBugsClosed, rendered[0].Changes[1].FieldID)
	assert.Contains(t, string(rendered[0].Text), "Addressed feedback.")
}

func TestView_BindsDraftForOwnerOnly(t *testing.T) {
	fx := newRRFixture()
	ctx := context.Background()
	_, err := fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldSummary, "Draft summary")
	require.NoError(t, err)

	rr, err := fx.svc.Get(ctx, 1)
	require.NoError(t, err)

	view, err := fx.svc.View(ctx, rr, &fx.owner)
	require.NoError(t, err)
	assert.Equal(t, "Draft summary", view.Summary)
	assert.True(t, view.Editable)
	require.NotEmpty(t, view.FieldSets)
	assert.Equal(t, fields.FieldSetInfo, view.FieldSets[0].ID)

	view, err = fx.svc.View(ctx, rr, &fx.other)
	require.NoError(t, err)
	assert.Equal(t, "Initial summary", view.Summary)
	assert.False(t, view.Editable)
	assert.Nil(t, view.Draft)

	for _, f := range view.Main {
		assert.NotEqual(t, fields.FieldSummary, f.ID, "summary is shown as the title only")
		assert.False(t, f.Editable)
	}
}

func TestGet_ChecksPendingChangeset(t *testing.T) {
	fx := newRRFixture()
	rr := fx.store.requests[1]
	rr.Changenum = 99
	fx.store.requests[1] = rr
	fx.changesets.pending = true
	fx.store.blocking[1] = []model.ReviewRequestRef{{ID: 5, DisplayID: 5}}

	got, err := fx.svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got.ChangesetPending)
	assert.Equal(t, 1, fx.changesets.calls)
	assert.Len(t, got.Blocks, 1)
}

func TestDiscard(t *testing.T) {
	fx := newRRFixture()
	ctx := context.Background()
	_, err := fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldBranch, "x")
	require.NoError(t, err)

	assert.ErrorIs(t, fx.svc.Discard(ctx, 1, fx.other), ErrPermissionDenied)
	require.NoError(t, fx.svc.Discard(ctx, 1, fx.owner))
	assert.Empty(t, fx.store.drafts)
}

func TestCreate(t *testing.T) {
	fx := newRRFixture()

	rr, err := fx.svc.Create(context.Background(), NewReviewRequest{
		Submitter: fx.owner,
		Summary:   "New work",
	})
	require.NoError(t, err)
	assert.False(t, rr.Public)
	assert.Equal(t, model.ReviewRequestPending, rr.Status)
	assert.Contains(t, fx.store.drafts, rr.ID)
}

func TestPublish_StoreFailureKeepsDraft(t *testing.T) {
	fx := newRRFixture()
	ctx := context.Background()
	fx.fillDraft(t)
	_, err := fx.svc.Publish(ctx, 1, fx.owner, "")
	require.NoError(t, err)

	_, err = fx.svc.UpdateDraftField(ctx, 1, fx.owner, fields.FieldSummary, "Add a better cache")
	require.NoError(t, err)

	fx.store.publishErr = errors.New("disk I/O error")
	_, err = fx.svc.Publish(ctx, 1, fx.owner, "")
	require.Error(t, err)

	assert.Equal(t, "Add caching", fx.store.requests[1].Summary)
	assert.Equal(t, "Add a better cache", fx.store.drafts[1].Summary)
	assert.Empty(t, fx.store.changes)
	assert.Len(t, fx.notifier.published, 1, "failed publish is not announced")

	fx.store.publishErr = nil
	cd, err := fx.svc.Publish(ctx, 1, fx.owner, "")
	require.NoError(t, err)
	require.NotNil(t, cd, "retry still sees the change")
	assert.Contains(t, cd.FieldsChanged, fields.FieldSummary)
	assert.Len(t, fx.notifier.published, 2)
}
