package driven_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

type stubSiteConfigStore struct {
	cfg *model.SiteConfig
	err error
}

func (s *stubSiteConfigStore) GetCurrent(context.Context) (*model.SiteConfig, error) {
	return s.cfg, s.err
}

func (s *stubSiteConfigStore) Save(context.Context, model.SiteConfig) error {
	return nil
}

func TestCurrentSiteConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("stored configuration", func(t *testing.T) {
		stored := model.NewSiteConfig()
		stored.Set(model.SettingSearchEnable, true)

		cfg, err := driven.CurrentSiteConfig(ctx, &stubSiteConfigStore{cfg: &stored})
		require.NoError(t, err)
		assert.True(t, cfg.GetBool(model.SettingSearchEnable))
	})

	t.Run("missing configuration reports defaults", func(t *testing.T) {
		cfg, err := driven.CurrentSiteConfig(ctx, &stubSiteConfigStore{err: driven.ErrSiteConfigNotFound})
		require.NoError(t, err)
		assert.True(t, cfg.GetBool(model.SettingSyntaxHighlighting))
		assert.False(t, cfg.GetBool(model.SettingSearchEnable))
	})

	t.Run("store failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := driven.CurrentSiteConfig(ctx, &stubSiteConfigStore{err: boom})
		assert.ErrorIs(t, err, boom)
	})
}
