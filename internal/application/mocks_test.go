package application

import (
	"context"
	"slices"
	"sync"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// --- Hand-written port fakes shared by the service tests ---

type fakeSiteConfigStore struct {
	mu  sync.Mutex
	cfg *model.SiteConfig
	err error
}

func (s *fakeSiteConfigStore) GetCurrent(context.Context) (*model.SiteConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		return nil, driven.ErrSiteConfigNotFound
	}
	cfg := *s.cfg
	return &cfg, nil
}

func (s *fakeSiteConfigStore) Save(_ context.Context, cfg model.SiteConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = &cfg
	return nil
}

type docKey struct {
	kind model.SearchKind
	id   int64
}

type fakeSearchIndex struct {
	docs      map[docKey]model.SearchDocument
	removed   []docKey
	cleared   int
	lastQuery model.SearchQuery
	results   model.SearchResults
}

func newFakeSearchIndex() *fakeSearchIndex {
	return &fakeSearchIndex{docs: map[docKey]model.SearchDocument{}}
}

func (i *fakeSearchIndex) Index(_ context.Context, doc model.SearchDocument) error {
	i.docs[docKey{doc.Kind, doc.ObjectID}] = doc
	return nil
}

func (i *fakeSearchIndex) Remove(_ context.Context, kind model.SearchKind, id int64) error {
	delete(i.docs, docKey{kind, id})
	i.removed = append(i.removed, docKey{kind, id})
	return nil
}

func (i *fakeSearchIndex) Search(_ context.Context, q model.SearchQuery) (model.SearchResults, error) {
	i.lastQuery = q
	return i.results, nil
}

func (i *fakeSearchIndex) Clear(context.Context) error {
	i.cleared++
	i.docs = map[docKey]model.SearchDocument{}
	return nil
}

type fakeGroupStore struct {
	driven.GroupStore
	sites      map[int64][]model.LocalSite
	accessible []model.Group
	members    map[int64][]int64 // group ID -> user IDs
}

func (s *fakeGroupStore) LocalSitesForUser(_ context.Context, userID int64) ([]model.LocalSite, error) {
	return s.sites[userID], nil
}

func (s *fakeGroupStore) GetLocalSite(_ context.Context, name string) (*model.LocalSite, error) {
	for _, sites := range s.sites {
		for _, site := range sites {
			if site.Name == name {
				return &site, nil
			}
		}
	}
	return nil, nil
}

func (s *fakeGroupStore) ListAccessible(context.Context, int64, *int64) ([]model.Group, error) {
	return s.accessible, nil
}

func (s *fakeGroupStore) AddMember(_ context.Context, groupID, userID int64) error {
	if s.members == nil {
		s.members = map[int64][]int64{}
	}
	s.members[groupID] = append(s.members[groupID], userID)
	return nil
}

func (s *fakeGroupStore) RemoveMember(_ context.Context, groupID, userID int64) error {
	s.members[groupID] = slices.DeleteFunc(s.members[groupID], func(id int64) bool { return id == userID })
	return nil
}

type fakeUserStore struct {
	driven.UserStore
	users map[int64]model.User
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, driven.ErrNotFound
	}
	return &u, nil
}

func (s *fakeUserStore) ListActive(context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range s.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b model.User) int { return int(a.ID - b.ID) })
	return out, nil
}

type fakeReviewRequestStore struct {
	requests   map[int64]model.ReviewRequest
	drafts     map[int64]model.ReviewRequestDraft
	changes    []model.ChangeDescription
	blocking   map[int64][]model.ReviewRequestRef
	nextID     int64
	publishErr error
}

func newFakeReviewRequestStore() *fakeReviewRequestStore {
	return &fakeReviewRequestStore{
		requests: map[int64]model.ReviewRequest{},
		drafts:   map[int64]model.ReviewRequestDraft{},
		blocking: map[int64][]model.ReviewRequestRef{},
		nextID:   1,
	}
}

func (s *fakeReviewRequestStore) Create(_ context.Context, rr model.ReviewRequest) (model.ReviewRequest, error) {
	rr.ID = s.nextID
	s.nextID++
	s.requests[rr.ID] = rr
	return rr, nil
}

func (s *fakeReviewRequestStore) Get(_ context.Context, id int64) (*model.ReviewRequest, error) {
	rr, ok := s.requests[id]
	if !ok {
		return nil, driven.ErrNotFound
	}
	rr.ReviewRequestDetails = rr.ReviewRequestDetails.Clone()
	return &rr, nil
}

func (s *fakeReviewRequestStore) GetByDisplayID(_ context.Context, displayID int64, _ *int64) (*model.ReviewRequest, error) {
	for _, rr := range s.requests {
		if rr.DisplayID() == displayID {
			return &rr, nil
		}
	}
	return nil, nil
}

func (s *fakeReviewRequestStore) Save(_ context.Context, rr model.ReviewRequest) error {
	rr.Blocks = nil
	rr.ChangesetPending = false
	s.requests[rr.ID] = rr
	return nil
}

func (s *fakeReviewRequestStore) GetRefs(_ context.Context, ids []int64) ([]model.ReviewRequestRef, error) {
	var out []model.ReviewRequestRef
	for _, id := range ids {
		if rr, ok := s.requests[id]; ok {
			out = append(out, rr.Ref())
		}
	}
	return out, nil
}

func (s *fakeReviewRequestStore) ListBlocking(_ context.Context, id int64) ([]model.ReviewRequestRef, error) {
	return s.blocking[id], nil
}

func (s *fakeReviewRequestStore) ListIndexable(context.Context) ([]model.ReviewRequest, error) {
	var out []model.ReviewRequest
	for _, rr := range s.requests {
		if rr.Public && rr.Status != model.ReviewRequestDiscarded {
			out = append(out, rr)
		}
	}
	return out, nil
}

func (s *fakeReviewRequestStore) GetDraft(_ context.Context, id int64) (*model.ReviewRequestDraft, error) {
	d, ok := s.drafts[id]
	if !ok {
		return nil, nil
	}
	d.ReviewRequestDetails = d.ReviewRequestDetails.Clone()
	return &d, nil
}

func (s *fakeReviewRequestStore) SaveDraft(_ context.Context, d model.ReviewRequestDraft) error {
	s.drafts[d.ReviewRequestID] = d
	return nil
}

func (s *fakeReviewRequestStore) DeleteDraft(_ context.Context, id int64) error {
	delete(s.drafts, id)
	return nil
}

func (s *fakeReviewRequestStore) AddChangeDescription(_ context.Context, cd model.ChangeDescription) (model.ChangeDescription, error) {
	cd.ID = int64(len(s.changes) + 1)
	s.changes = append(s.changes, cd)
	return cd, nil
}

func (s *fakeReviewRequestStore) Publish(ctx context.Context, rr model.ReviewRequest, cd *model.ChangeDescription) (*model.ChangeDescription, error) {
	if s.publishErr != nil {
		return nil, s.publishErr
	}
	_ = s.Save(ctx, rr)
	var saved *model.ChangeDescription
	if cd != nil {
		added, _ := s.AddChangeDescription(ctx, *cd)
		saved = &added
	}
	_ = s.DeleteDraft(ctx, rr.ID)
	return saved, nil
}

func (s *fakeReviewRequestStore) ListChangeDescriptions(_ context.Context, id int64) ([]model.ChangeDescription, error) {
	var out []model.ChangeDescription
	for _, cd := range s.changes {
		if cd.ReviewRequestID == id {
			out = append(out, cd)
		}
	}
	return out, nil
}

type fakeChangesetChecker struct {
	pending bool
	calls   int
}

func (c *fakeChangesetChecker) IsPending(context.Context, model.Repository, int64) (bool, error) {
	c.calls++
	return c.pending, nil
}

type fakeSessionStore struct {
	sessions map[string]model.Session
}

func (s *fakeSessionStore) Create(_ context.Context, session model.Session) error {
	if s.sessions == nil {
		s.sessions = map[string]model.Session{}
	}
	s.sessions[session.Token] = session
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, token string) (*model.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func (s *fakeSessionStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

type fakeAuthBackend struct {
	passwords map[string]string
	users     map[string]model.User
}

func (a *fakeAuthBackend) ID() string                   { return "fake" }
func (a *fakeAuthBackend) Name() string                 { return "Fake" }
func (a *fakeAuthBackend) SupportsChangePassword() bool { return true }
func (a *fakeAuthBackend) SupportsChangeName() bool     { return true }
func (a *fakeAuthBackend) SupportsChangeEmail() bool    { return true }

func (a *fakeAuthBackend) Authenticate(_ context.Context, username, password string) (bool, error) {
	p, ok := a.passwords[username]
	return ok && p == password, nil
}

func (a *fakeAuthBackend) GetOrCreateUser(_ context.Context, username string) (*model.User, error) {
	u, ok := a.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (a *fakeAuthBackend) UpdatePassword(context.Context, *model.User, string) error { return nil }
func (a *fakeAuthBackend) UpdateName(context.Context, *model.User) error             { return nil }
func (a *fakeAuthBackend) UpdateEmail(context.Context, *model.User) error            { return nil }

func enabledSearchConfig() *model.SiteConfig {
	cfg := model.NewSiteConfig()
	cfg.Set(model.SettingSearchEnable, true)
	return &cfg
}
