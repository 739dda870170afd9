package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

func TestRepositoryRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepositoryRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Repository{
		Name:        "reviewdesk",
		Path:        "https://github.com/ericfisherdev/reviewdesk.git",
		BugTracker:  "https://bugs.example.com/%s",
		HostingRepo: "ericfisherdev/reviewdesk",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "git", created.Tool)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "reviewdesk", got.Name)
	assert.Equal(t, "https://bugs.example.com/%s", got.BugTracker)
	assert.Equal(t, "ericfisherdev/reviewdesk", got.HostingRepo)
	assert.Nil(t, got.LocalSiteID)
	assert.False(t, got.AddedAt.IsZero())

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestRepositoryRepo_DuplicateNamePerSite(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepositoryRepo(db)
	ctx := context.Background()

	site, err := NewGroupRepo(db).CreateLocalSite(ctx, "acme")
	require.NoError(t, err)

	_, err = repo.Create(ctx, model.Repository{Name: "core"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, model.Repository{Name: "core", LocalSiteID: &site.ID})
	require.NoError(t, err)

	_, err = repo.Create(ctx, model.Repository{Name: "core"})
	assert.ErrorIs(t, err, driven.ErrAlreadyExists)
}

func TestRepositoryRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepositoryRepo(db)
	ctx := context.Background()

	repos, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, repos)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := repo.Create(ctx, model.Repository{Name: name})
		require.NoError(t, err)
	}

	repos, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 3)
	assert.Equal(t, "alpha", repos[0].Name)
	assert.Equal(t, "mid", repos[1].Name)
	assert.Equal(t, "zeta", repos[2].Name)
}
