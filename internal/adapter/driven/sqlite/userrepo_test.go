package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.User{
		Username:     "alice",
		FirstName:    "Alice",
		LastName:     "Liddell",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		IsActive:     true,
		IsStaff:      true,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.DateJoined.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Alice Liddell", got.FullName())
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, got.IsActive)
	assert.True(t, got.IsStaff)
	assert.WithinDuration(t, created.DateJoined, got.DateJoined, 0)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, model.User{Username: "bob", IsActive: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, model.User{Username: "bob", IsActive: true})
	assert.ErrorIs(t, err, driven.ErrAlreadyExists)
}

func TestUserRepo_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, driven.ErrNotFound)

	got, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepo_GetByUsernamesKeepsOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	makeUser(t, db, "alice")
	makeUser(t, db, "bob")
	makeUser(t, db, "carol")

	users, err := repo.GetByUsernames(ctx, []string{"carol", "ghost", "alice", "carol"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "carol", users[0].Username)
	assert.Equal(t, "alice", users[1].Username)

	none, err := repo.GetByUsernames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUserRepo_UpdateAndListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	alice := makeUser(t, db, "alice")
	bob := makeUser(t, db, "bob")

	bob.IsActive = false
	bob.Email = "bob@new.example.com"
	require.NoError(t, repo.Update(ctx, bob))

	got, err := repo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "bob@new.example.com", got.Email)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, alice.ID, active[0].ID)

	err = repo.Update(ctx, model.User{ID: 999, Username: "ghost"})
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestUserRepo_Profile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	alice := makeUser(t, db, "alice")

	profile, err := repo.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfile(alice.ID), profile)

	profile.Timezone = "Europe/Paris"
	profile.SyntaxHighlighting = false
	profile.IsPrivate = true
	require.NoError(t, repo.SaveProfile(ctx, profile))

	got, err := repo.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, profile, got)

	profile.OpenAnIssue = false
	require.NoError(t, repo.SaveProfile(ctx, profile))

	got, err = repo.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.OpenAnIssue)
}
