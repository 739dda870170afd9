package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// SiteConfigStore defines the driven port for the site configuration record.
type SiteConfigStore interface {
	// GetCurrent returns ErrSiteConfigNotFound until a configuration has been saved.
	GetCurrent(ctx context.Context) (*model.SiteConfig, error)

	// Save inserts or replaces the site configuration.
	Save(ctx context.Context, cfg model.SiteConfig) error
}

// CurrentSiteConfig returns the stored site configuration, or one reporting
// the defaults when none has been saved yet.
func CurrentSiteConfig(ctx context.Context, store SiteConfigStore) (model.SiteConfig, error) {
	cfg, err := store.GetCurrent(ctx)
	if errors.Is(err, ErrSiteConfigNotFound) {
		return model.NewSiteConfig(), nil
	}
	if err != nil {
		return model.SiteConfig{}, fmt.Errorf("loading site configuration: %w", err)
	}
	return *cfg, nil
}
