package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// memUsers is a minimal in-memory UserStore.
type memUsers struct {
	driven.UserStore
	byName map[string]model.User
	nextID int64
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{byName: map[string]model.User{}, nextID: 1}
	for _, u := range users {
		u.ID = m.nextID
		m.nextID++
		m.byName[u.Username] = u
	}
	return m
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) Create(_ context.Context, user model.User) (model.User, error) {
	user.ID = m.nextID
	m.nextID++
	m.byName[user.Username] = user
	return user, nil
}

func TestStandardBackend_Authenticate(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	users := newMemUsers(
		model.User{Username: "alice", PasswordHash: hash, IsActive: true},
		model.User{Username: "gone", PasswordHash: hash, IsActive: false},
		model.User{Username: "external", IsActive: true},
	)
	backend := NewStandardBackend(users)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{name: "correct password", username: "alice", password: "s3cret", want: true},
		{name: "wrong password", username: "alice", password: "nope"},
		{name: "inactive user", username: "gone", password: "s3cret"},
		{name: "unusable password", username: "external", password: ""},
		{name: "unknown user", username: "mallory", password: "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := backend.Authenticate(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStandardBackend_UpdatePassword(t *testing.T) {
	backend := NewStandardBackend(newMemUsers())
	user := &model.User{Username: "alice", IsActive: true}

	require.NoError(t, backend.UpdatePassword(context.Background(), user, "new-password"))
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "new-password", user.PasswordHash)

	assert.True(t, backend.SupportsChangePassword())
	assert.True(t, backend.SupportsChangeName())
	assert.True(t, backend.SupportsChangeEmail())
}

func TestStandardBackend_GetOrCreateUserNeverCreates(t *testing.T) {
	backend := NewStandardBackend(newMemUsers(model.User{Username: "alice", IsActive: true}))
	ctx := context.Background()

	u, err := backend.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = backend.GetOrCreateUser(ctx, "bob")
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func writeDigestFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "htdigest")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDigestBackend_Authenticate(t *testing.T) {
	path := writeDigestFile(t,
		"alice:reviews:"+digestHash("alice", "reviews", "wonderland"),
		"bob:reviews:"+digestHash("bob", "reviews", "builder"),
	)
	users := newMemUsers()
	backend := NewDigestBackend(path, "reviews", users, nil)
	ctx := context.Background()

	ok, err := backend.Authenticate(ctx, " alice ", "wonderland")
	require.NoError(t, err)
	assert.True(t, ok)

	created, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, created, "first login creates the local user")
	assert.True(t, created.IsActive)
	assert.False(t, created.IsStaff)
	assert.Empty(t, created.PasswordHash)

	ok, err = backend.Authenticate(ctx, "bob", "wonderland")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDigestBackend_UnreadableOrMalformedFile(t *testing.T) {
	ctx := context.Background()

	missing := NewDigestBackend(filepath.Join(t.TempDir(), "absent"), "reviews", newMemUsers(), nil)
	ok, err := missing.Authenticate(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.False(t, ok)

	path := writeDigestFile(t,
		"garbage-line",
		"alice:reviews:"+digestHash("alice", "reviews", "wonderland"),
	)
	malformed := NewDigestBackend(path, "reviews", newMemUsers(), nil)
	ok, err = malformed.Authenticate(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.False(t, ok, "parsing stops at the first malformed line")
}

func TestDigestBackend_SupportsNothing(t *testing.T) {
	backend := NewDigestBackend("unused", "reviews", newMemUsers(), nil)
	ctx := context.Background()

	assert.False(t, backend.SupportsChangePassword())
	assert.False(t, backend.SupportsChangeName())
	assert.False(t, backend.SupportsChangeEmail())

	assert.ErrorIs(t, backend.UpdatePassword(ctx, &model.User{}, "x"), driven.ErrNotSupported)
	assert.ErrorIs(t, backend.UpdateName(ctx, &model.User{}), driven.ErrNotSupported)
	assert.ErrorIs(t, backend.UpdateEmail(ctx, &model.User{}), driven.ErrNotSupported)
}

func TestDigestHash(t *testing.T) {
	assert.Len(t, digestHash("alice", "reviews", "wonderland"), 32)
	assert.NotEqual(t, digestHash("alice", "reviews", "a"), digestHash("alice", "other", "a"))
}
