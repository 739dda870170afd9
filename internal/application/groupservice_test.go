package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

func TestGroupService_JoinAndLeave(t *testing.T) {
	groups := &fakeGroupStore{accessible: []model.Group{{ID: 7, Name: "devs"}}}
	svc := NewGroupService(groups, slog.Default())
	user := model.User{ID: 1, Username: "alice"}
	ctx := context.Background()

	g, err := svc.Join(ctx, user, "devs", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), g.ID)
	assert.Equal(t, []int64{1}, groups.members[7])

	_, err = svc.Leave(ctx, user, "devs", nil)
	require.NoError(t, err)
	assert.Empty(t, groups.members[7])

	_, err = svc.Join(ctx, user, "secret-club", nil)
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestGroupService_LocalSite(t *testing.T) {
	groups := &fakeGroupStore{sites: map[int64][]model.LocalSite{1: {{ID: 3, Name: "acme"}}}}
	svc := NewGroupService(groups, slog.Default())
	ctx := context.Background()

	site, err := svc.LocalSite(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, site)

	site, err = svc.LocalSite(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(3), site.ID)

	_, err = svc.LocalSite(ctx, "nowhere")
	assert.ErrorIs(t, err, driven.ErrNotFound)
}
