package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SiteConfigStore = (*SiteConfigRepo)(nil)

// siteConfigID is the primary key of the single site configuration row.
const siteConfigID = 1

// SiteConfigRepo is the SQLite implementation of the SiteConfigStore port
// interface. Settings are stored as one JSON object.
type SiteConfigRepo struct {
	db *DB
}

// NewSiteConfigRepo creates a new SiteConfigRepo backed by the given DB.
func NewSiteConfigRepo(db *DB) *SiteConfigRepo {
	return &SiteConfigRepo{db: db}
}

// GetCurrent returns the stored configuration, or driven.ErrSiteConfigNotFound
// before one has been saved.
func (r *SiteConfigRepo) GetCurrent(ctx context.Context) (*model.SiteConfig, error) {
	const query = `SELECT id, settings, updated_at FROM siteconfig WHERE id = ?`

	var (
		cfg       model.SiteConfig
		settings  string
		updatedAt string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, siteConfigID).Scan(&cfg.ID, &settings, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrSiteConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get site configuration: %w", err)
	}

	cfg.Settings = map[string]any{}
	if err := json.Unmarshal([]byte(settings), &cfg.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal site settings: %w", err)
	}

	cfg.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &cfg, nil
}

// Save inserts or replaces the site configuration.
func (r *SiteConfigRepo) Save(ctx context.Context, cfg model.SiteConfig) error {
	const query = `INSERT INTO siteconfig (id, settings, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET settings = excluded.settings, updated_at = excluded.updated_at`

	settings := cfg.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal site settings: %w", err)
	}

	if _, err := r.db.Writer.ExecContext(ctx, query, siteConfigID, string(b), formatTime(cfg.UpdatedAt)); err != nil {
		return fmt.Errorf("save site configuration: %w", err)
	}

	return nil
}
