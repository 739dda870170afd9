package accounts

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

type mockAuth struct {
	changePassword bool
	changeName     bool
	changeEmail    bool
	password       string

	updatePasswordCalls int
	updateNameCalls     int
	updateEmailCalls    int
}

func (m *mockAuth) ID() string                   { return "mock" }
func (m *mockAuth) Name() string                 { return "Mock" }
func (m *mockAuth) SupportsChangePassword() bool { return m.changePassword }
func (m *mockAuth) SupportsChangeName() bool     { return m.changeName }
func (m *mockAuth) SupportsChangeEmail() bool    { return m.changeEmail }

func (m *mockAuth) Authenticate(_ context.Context, _, password string) (bool, error) {
	return password == m.password, nil
}

func (m *mockAuth) GetOrCreateUser(_ context.Context, username string) (*model.User, error) {
	return &model.User{Username: username}, nil
}

func (m *mockAuth) UpdatePassword(_ context.Context, _ *model.User, password string) error {
	m.updatePasswordCalls++
	m.password = password
	return nil
}

func (m *mockAuth) UpdateName(context.Context, *model.User) error {
	m.updateNameCalls++
	return nil
}

func (m *mockAuth) UpdateEmail(context.Context, *model.User) error {
	m.updateEmailCalls++
	return nil
}

type mockUserStore struct {
	driven.UserStore
	updated  []model.User
	profiles []model.Profile
}

func (m *mockUserStore) Update(_ context.Context, user model.User) error {
	m.updated = append(m.updated, user)
	return nil
}

func (m *mockUserStore) SaveProfile(_ context.Context, profile model.Profile) error {
	m.profiles = append(m.profiles, profile)
	return nil
}

type mockSiteConfigStore struct {
	cfg *model.SiteConfig
}

func (m *mockSiteConfigStore) GetCurrent(context.Context) (*model.SiteConfig, error) {
	if m.cfg == nil {
		return nil, driven.ErrSiteConfigNotFound
	}
	return m.cfg, nil
}

func (m *mockSiteConfigStore) Save(_ context.Context, cfg model.SiteConfig) error {
	m.cfg = &cfg
	return nil
}

type mockGroupStore struct {
	driven.GroupStore
	groups map[int64][]model.Group // keyed by local site ID, 0 for global
	joined []int64
	sites  []model.LocalSite
}

func (m *mockGroupStore) ListAccessible(_ context.Context, _ int64, localSiteID *int64) ([]model.Group, error) {
	var key int64
	if localSiteID != nil {
		key = *localSiteID
	}
	return m.groups[key], nil
}

func (m *mockGroupStore) JoinedGroupIDs(context.Context, int64) ([]int64, error) {
	return m.joined, nil
}

func (m *mockGroupStore) LocalSitesForUser(context.Context, int64) ([]model.LocalSite, error) {
	return m.sites, nil
}

type recordedMessage struct {
	level model.MessageLevel
	text  string
}

type messageRecorder struct {
	messages []recordedMessage
}

func (r *messageRecorder) AddMessage(level model.MessageLevel, text string) {
	r.messages = append(r.messages, recordedMessage{level: level, text: text})
}

type userSavedRecorder struct {
	users []model.User
}

func (r *userSavedRecorder) UserSaved(_ context.Context, user model.User) {
	r.users = append(r.users, user)
}

type fixture struct {
	auth     *mockAuth
	users    *mockUserStore
	groups   *mockGroupStore
	config   *mockSiteConfigStore
	saved    *userSavedRecorder
	messages *messageRecorder
	user     *model.User
	profile  *model.Profile
}

func newFixture() *fixture {
	user := &model.User{ID: 1, Username: "alice", FirstName: "Alice", Email: "alice@example.com", IsActive: true}
	profile := model.DefaultProfile(user.ID)
	return &fixture{
		auth:     &mockAuth{changePassword: true, changeName: true, changeEmail: true, password: "old-secret"},
		users:    &mockUserStore{},
		groups:   &mockGroupStore{groups: map[int64][]model.Group{}},
		config:   &mockSiteConfigStore{},
		saved:    &userSavedRecorder{},
		messages: &messageRecorder{},
		user:     user,
		profile:  &profile,
	}
}

func (f *fixture) request() Request {
	return Request{User: f.user, Profile: f.profile, Messages: f.messages}
}

func (f *fixture) deps() Deps {
	return Deps{
		Auth:       f.auth,
		Users:      f.users,
		Groups:     f.groups,
		SiteConfig: f.config,
		UserSaved:  f.saved,
		Logger:     slog.Default(),
	}
}
