package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// adjacentPages is how many page links are shown on each side of the current
// page of search results.
const adjacentPages = 5

const defaultResultsPerPage = 20

// SearchFilter is one of the result type filters offered on the search page.
type SearchFilter struct {
	ID     string
	Name   string
	Kind   model.SearchKind
	Active bool
}

var searchFilters = []SearchFilter{
	{ID: "", Name: "All Results"},
	{ID: "users", Name: "Users", Kind: model.SearchKindUser},
	{ID: "reviewrequests", Name: "Review Requests", Kind: model.SearchKindReviewRequest},
}

// SearchRequest is a search submitted from the search page.
type SearchRequest struct {
	Query       string
	Filter      string // Comma-separated filter IDs.
	Page        int    // 1-based.
	LocalSiteID *int64
}

// SearchPage is the outcome of a search. Exactly one of RedirectURL,
// Disabled or the result fields is meaningful.
type SearchPage struct {
	RedirectURL string
	Disabled    bool

	Query       string
	Filters     []SearchFilter
	Results     []model.SearchDocument
	Total       int
	Page        int
	NumPages    int
	PageNumbers []int
}

// HasPrevious reports whether there is a page before the current one.
func (p *SearchPage) HasPrevious() bool { return p.Page > 1 }

// HasNext reports whether there is a page after the current one.
func (p *SearchPage) HasNext() bool { return p.Page < p.NumPages }

// SearchService runs full-text searches and rebuilds the search index.
type SearchService struct {
	siteConfig driven.SiteConfigStore
	index      driven.SearchIndex
	requests   driven.ReviewRequestStore
	users      driven.UserStore
	groups     driven.GroupStore
	logger     *slog.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(
	siteConfig driven.SiteConfigStore,
	index driven.SearchIndex,
	requests driven.ReviewRequestStore,
	users driven.UserStore,
	groups driven.GroupStore,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		siteConfig: siteConfig,
		index:      index,
		requests:   requests,
		users:      users,
		groups:     groups,
		logger:     logger,
	}
}

// Search runs a search. A query that is just a number redirects to that
// review request when it exists, even with search disabled.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	query := strings.TrimSpace(req.Query)

	displayID, isNumber := parseDisplayID(query)
	if isNumber {
		rr, err := s.requests.GetByDisplayID(ctx, displayID, req.LocalSiteID)
		if err != nil {
			return nil, fmt.Errorf("looking up review request %d: %w", displayID, err)
		}
		if rr != nil && rr.Public {
			return &SearchPage{RedirectURL: rr.AbsoluteURL()}, nil
		}
	}

	cfg, err := driven.CurrentSiteConfig(ctx, s.siteConfig)
	if err != nil {
		return nil, err
	}
	if !cfg.GetBool(model.SettingSearchEnable) {
		return &SearchPage{Disabled: true, Query: query}, nil
	}

	perPage := cfg.GetInt(model.SettingSearchResultsPerPage)
	if perPage <= 0 {
		perPage = defaultResultsPerPage
	}
	page := max(req.Page, 1)

	q := model.SearchQuery{
		LocalSiteID: model.NoLocalSiteID,
		Offset:      (page - 1) * perPage,
		Limit:       perPage,
	}
	if req.LocalSiteID != nil {
		q.LocalSiteID = *req.LocalSiteID
	}

	filters := activeFilters(req.Filter)
	if isNumber {
		q.DisplayID = displayID
		q.Kinds = []model.SearchKind{model.SearchKindReviewRequest}
	} else {
		q.Text = query
		for _, f := range filters {
			if f.Active && f.Kind != "" {
				q.Kinds = append(q.Kinds, f.Kind)
			}
		}
	}

	var results model.SearchResults
	if query != "" {
		results, err = s.index.Search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("searching for %q: %w", query, err)
		}
	}

	numPages := max((results.Total+perPage-1)/perPage, 1)

	return &SearchPage{
		Query:       query,
		Filters:     filters,
		Results:     results.Documents,
		Total:       results.Total,
		Page:        page,
		NumPages:    numPages,
		PageNumbers: pageWindow(page, numPages),
	}, nil
}

// Reindex rebuilds the whole index from public review requests and active
// users. It returns the number of documents indexed.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if err := s.index.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clearing search index: %w", err)
	}

	requests, err := s.requests.ListIndexable(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing review requests: %w", err)
	}

	count := 0
	for _, rr := range requests {
		if err := s.index.Index(ctx, ReviewRequestDocument(rr)); err != nil {
			return count, fmt.Errorf("indexing review request %d: %w", rr.ID, err)
		}
		count++
	}

	users, err := s.users.ListActive(ctx)
	if err != nil {
		return count, fmt.Errorf("listing users: %w", err)
	}

	for _, u := range users {
		sites, err := s.groups.LocalSitesForUser(ctx, u.ID)
		if err != nil {
			return count, fmt.Errorf("listing local sites for %s: %w", u.Username, err)
		}
		if err := s.index.Index(ctx, UserDocument(u, sites)); err != nil {
			return count, fmt.Errorf("indexing user %s: %w", u.Username, err)
		}
		count++
	}

	s.logger.Info("search index rebuilt", "documents", count)
	return count, nil
}

func parseDisplayID(query string) (int64, bool) {
	if query == "" {
		return 0, false
	}
	for _, r := range query {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(query, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func activeFilters(raw string) []SearchFilter {
	selected := make(map[string]bool)
	for _, id := range strings.Split(raw, ",") {
		selected[strings.TrimSpace(id)] = true
	}

	out := make([]SearchFilter, len(searchFilters))
	copy(out, searchFilters)

	anyModel := false
	for i := range out {
		if out[i].Kind != "" && selected[out[i].ID] {
			out[i].Active = true
			anyModel = true
		}
	}
	if !anyModel {
		out[0].Active = true
	}
	return out
}

// pageWindow returns the page numbers within adjacentPages of page.
func pageWindow(page, numPages int) []int {
	first := max(page-adjacentPages, 1)
	last := min(page+adjacentPages, numPages)

	pages := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		pages = append(pages, n)
	}
	return pages
}
