package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// SignalProcessor forwards review request and user changes to the search
// index. Nothing is forwarded until the site configuration exists; the check
// runs on every signal, so indexing starts as soon as the site is set up.
type SignalProcessor struct {
	siteConfig driven.SiteConfigStore
	groups     driven.GroupStore
	index      driven.SearchIndex
	logger     *slog.Logger
}

// NewSignalProcessor creates a SignalProcessor.
func NewSignalProcessor(
	siteConfig driven.SiteConfigStore,
	groups driven.GroupStore,
	index driven.SearchIndex,
	logger *slog.Logger,
) *SignalProcessor {
	return &SignalProcessor{
		siteConfig: siteConfig,
		groups:     groups,
		index:      index,
		logger:     logger,
	}
}

// CanProcessSignals reports whether the site configuration record exists.
func (p *SignalProcessor) CanProcessSignals(ctx context.Context) bool {
	return p.currentConfig(ctx) != nil
}

// currentConfig returns the site configuration, or nil when it is missing or
// cannot be read. A missing record is the normal state of an uninitialized
// site and is not logged.
func (p *SignalProcessor) currentConfig(ctx context.Context) *model.SiteConfig {
	cfg, err := p.siteConfig.GetCurrent(ctx)
	if err != nil {
		if !errors.Is(err, driven.ErrSiteConfigNotFound) {
			p.logger.Error("checking site configuration for search signals", "error", err)
		}
		return nil
	}
	return cfg
}

// indexingEnabled reports whether changes should be pushed to the index now.
func (p *SignalProcessor) indexingEnabled(ctx context.Context) bool {
	cfg := p.currentConfig(ctx)
	return cfg != nil && cfg.GetBool(model.SettingSearchEnable) && cfg.GetBool(model.SettingSearchOnTheFly)
}

// ReviewRequestPublished indexes a review request, or removes it when it is
// no longer searchable.
func (p *SignalProcessor) ReviewRequestPublished(ctx context.Context, rr model.ReviewRequest) {
	if !p.indexingEnabled(ctx) {
		return
	}

	if !isIndexable(rr) {
		p.remove(ctx, model.SearchKindReviewRequest, rr.ID)
		return
	}

	if err := p.index.Index(ctx, ReviewRequestDocument(rr)); err != nil {
		p.logger.Error("indexing review request", "review_request_id", rr.ID, "error", err)
	}
}

// ReviewRequestDeleted removes a review request from the index.
func (p *SignalProcessor) ReviewRequestDeleted(ctx context.Context, id int64) {
	if !p.indexingEnabled(ctx) {
		return
	}
	p.remove(ctx, model.SearchKindReviewRequest, id)
}

// UserSaved re-indexes a user after a profile change.
func (p *SignalProcessor) UserSaved(ctx context.Context, user model.User) {
	if !p.indexingEnabled(ctx) {
		return
	}

	if !user.IsActive {
		p.remove(ctx, model.SearchKindUser, user.ID)
		return
	}

	sites, err := p.groups.LocalSitesForUser(ctx, user.ID)
	if err != nil {
		p.logger.Error("listing local sites for user", "user", user.Username, "error", err)
		return
	}

	if err := p.index.Index(ctx, UserDocument(user, sites)); err != nil {
		p.logger.Error("indexing user", "user", user.Username, "error", err)
	}
}

func (p *SignalProcessor) remove(ctx context.Context, kind model.SearchKind, id int64) {
	if err := p.index.Remove(ctx, kind, id); err != nil {
		p.logger.Error("removing search document", "kind", kind, "object_id", id, "error", err)
	}
}

func isIndexable(rr model.ReviewRequest) bool {
	return rr.Public && rr.Status != model.ReviewRequestDiscarded
}

// ReviewRequestDocument builds the search document for a review request.
func ReviewRequestDocument(rr model.ReviewRequest) model.SearchDocument {
	siteID := model.NoLocalSiteID
	if rr.LocalSiteID != nil {
		siteID = *rr.LocalSiteID
	}

	body := strings.TrimSpace(rr.Description + "\n\n" + rr.TestingDone)
	if rr.BugsClosed != "" {
		body += "\n\n" + rr.BugsClosed
	}

	return model.SearchDocument{
		Kind:         model.SearchKindReviewRequest,
		ObjectID:     rr.ID,
		DisplayID:    rr.DisplayID(),
		Title:        rr.Summary,
		Body:         body,
		Username:     rr.Submitter.Username,
		FullName:     rr.Submitter.FullName(),
		URL:          rr.AbsoluteURL(),
		LocalSiteIDs: []int64{siteID},
		LastUpdated:  rr.LastUpdated,
	}
}

// UserDocument builds the search document for a user. Users are searchable
// on the global site and on every local site they belong to.
func UserDocument(user model.User, sites []model.LocalSite) model.SearchDocument {
	siteIDs := []int64{model.NoLocalSiteID}
	for _, s := range sites {
		siteIDs = append(siteIDs, s.ID)
	}

	return model.SearchDocument{
		Kind:         model.SearchKindUser,
		ObjectID:     user.ID,
		Title:        user.DisplayName(),
		Body:         user.Email,
		Username:     user.Username,
		FullName:     user.FullName(),
		URL:          user.AbsoluteURL(),
		LocalSiteIDs: siteIDs,
		LastUpdated:  user.DateJoined,
	}
}
