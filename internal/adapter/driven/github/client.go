// Package github implements the ChangesetChecker port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChangesetChecker = (*Client)(nil)

// Client answers changeset questions for repositories hosted on GitHub. A
// review request's changenum is the pull request number there.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, PAT auth when a token is set)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// IsPending reports whether the pull request numbered changenum has not been
// merged yet. Repositories without a GitHub counterpart are never pending.
func (c *Client) IsPending(ctx context.Context, repo model.Repository, changenum int64) (bool, error) {
	if repo.HostingRepo == "" || changenum <= 0 {
		return false, nil
	}

	owner, name, err := splitRepo(repo.HostingRepo)
	if err != nil {
		return false, err
	}

	merged, resp, err := c.gh.PullRequests.IsMerged(ctx, owner, name, int(changenum))
	if err != nil {
		return false, fmt.Errorf("checking merge state of %s#%d: %w", repo.HostingRepo, changenum, err)
	}

	logRateLimit(resp, repo.HostingRepo)

	return !merged, nil
}

// ValidateToken returns the login the client authenticates as.
func (c *Client) ValidateToken(ctx context.Context) (string, error) {
	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}

	logRateLimit(resp, "user")

	return user.GetLogin(), nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
