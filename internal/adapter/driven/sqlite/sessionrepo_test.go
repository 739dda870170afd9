package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

func TestSessionRepo_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	alice := makeUser(t, db, "alice")
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, model.Session{
		Token:     "live",
		UserID:    alice.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.UserID)
	assert.False(t, got.Expired(now))

	missing, err := repo.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Delete(ctx, "live"))
	require.NoError(t, repo.Delete(ctx, "live"))

	got, err = repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepo_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	alice := makeUser(t, db, "alice")
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, model.Session{Token: "old", UserID: alice.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, model.Session{Token: "new", UserID: alice.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
