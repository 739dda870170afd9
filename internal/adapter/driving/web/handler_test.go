package web_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/adapter/driven/auth"
	"github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/reviewdesk/internal/adapter/driving/http"
	"github.com/ericfisherdev/reviewdesk/internal/adapter/driving/web"
	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/application/accounts"
	"github.com/ericfisherdev/reviewdesk/internal/application/fields"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

const testCSRF = "test-csrf-token"

// --- Test helpers ---

type testEnv struct {
	users          *sqlite.UserRepo
	siteConfig     *sqlite.SiteConfigRepo
	reviewRequests *application.ReviewRequestService
	search         *application.SearchService
	sessions       *application.SessionService
	handler        http.Handler
}

// newTestEnv wires the web GUI against a real SQLite database in a temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.RunMigrations(db.Writer))

	logger := slog.Default()
	users := sqlite.NewUserRepo(db)
	groups := sqlite.NewGroupRepo(db)
	requests := sqlite.NewReviewRequestRepo(db)
	siteConfig := sqlite.NewSiteConfigRepo(db)
	index := sqlite.NewSearchIndex(db)
	backend := auth.NewStandardBackend(users)

	signals := application.NewSignalProcessor(siteConfig, groups, index, logger)
	reviewRequests := application.NewReviewRequestService(
		requests, sqlite.NewRepositoryRepo(db), nil,
		fields.NewBuiltinRegistry(logger),
		application.NewStoreResolver(users, groups, requests),
		signals, logger,
	)
	search := application.NewSearchService(siteConfig, index, requests, users, groups, logger)
	groupSvc := application.NewGroupService(groups, logger)
	sessions := application.NewSessionService(backend, sqlite.NewSessionRepo(db), users, time.Hour, logger)
	pages := accounts.NewPages(accounts.DefaultPageSpecs(), accounts.Deps{
		Auth:       backend,
		Users:      users,
		Groups:     groups,
		SiteConfig: siteConfig,
		UserSaved:  signals,
		Logger:     logger,
	})

	h := web.NewHandler(reviewRequests, search, groupSvc, sessions, pages, users, time.Hour, false, logger)
	mux := http.NewServeMux()
	web.RegisterRoutes(mux, h)

	return &testEnv{
		users:          users,
		siteConfig:     siteConfig,
		reviewRequests: reviewRequests,
		search:         search,
		sessions:       sessions,
		handler:        httphandler.SessionMiddleware(sessions, logger, httphandler.ApplyMiddleware(mux, logger)),
	}
}

func (e *testEnv) createUser(t *testing.T, username, password string) model.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	u, err := e.users.Create(context.Background(), model.User{
		Username:     username,
		FirstName:    "Test",
		LastName:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     true,
	})
	require.NoError(t, err)
	return u
}

// sessionCookie logs the user in through the session service and returns
// the cookie a browser would carry.
func (e *testEnv) sessionCookie(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	session, _, err := e.sessions.Login(context.Background(), username, password)
	require.NoError(t, err)
	return &http.Cookie{Name: httphandler.SessionCookieName, Value: session.Token}
}

func (e *testEnv) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// postForm submits a form with a matching CSRF cookie and field unless
// withCSRF is false.
func (e *testEnv) postForm(t *testing.T, path string, values url.Values, withCSRF bool, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	if withCSRF {
		values.Set("csrf_token", testCSRF)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: httphandler.CSRFCookieName, Value: testCSRF})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// --- Tests ---

func TestHome(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret")

	rec := env.get(t, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/search/", rec.Header().Get("Location"))

	rec = env.get(t, "/", env.sessionCookie(t, "alice", "s3cret"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/account/preferences/", rec.Header().Get("Location"))
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/login/?next=/search/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `action="/login/"`)
	assert.Contains(t, body, `value="/search/"`)

	csrf := findCookie(rec, httphandler.CSRFCookieName)
	require.NotNil(t, csrf)
	assert.Contains(t, body, `value="`+csrf.Value+`"`)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret")

	t.Run("missing csrf token", func(t *testing.T) {
		rec := env.postForm(t, "/login/", url.Values{"username": {"alice"}, "password": {"s3cret"}}, false)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.postForm(t, "/login/", url.Values{"username": {"alice"}, "password": {"nope"}}, true)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please enter a correct username and password.")
		assert.Nil(t, findCookie(rec, httphandler.SessionCookieName))
	})

	t.Run("success", func(t *testing.T) {
		rec := env.postForm(t, "/login/", url.Values{"username": {"alice"}, "password": {"s3cret"}}, true)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/account/preferences/", rec.Header().Get("Location"))

		session := findCookie(rec, httphandler.SessionCookieName)
		require.NotNil(t, session)
		assert.True(t, session.HttpOnly)

		user, err := env.sessions.UserForToken(context.Background(), session.Value)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("local next is honored", func(t *testing.T) {
		rec := env.postForm(t, "/login/", url.Values{"username": {"alice"}, "password": {"s3cret"}, "next": {"/search/?q=x"}}, true)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/search/?q=x", rec.Header().Get("Location"))
	})

	t.Run("external next is ignored", func(t *testing.T) {
		rec := env.postForm(t, "/login/", url.Values{"username": {"alice"}, "password": {"s3cret"}, "next": {"//evil.example.com/"}}, true)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/account/preferences/", rec.Header().Get("Location"))
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret")
	cookie := env.sessionCookie(t, "alice", "s3cret")

	rec := env.postForm(t, "/logout/", url.Values{}, true, cookie)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	cleared := findCookie(rec, httphandler.SessionCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	user, err := env.sessions.UserForToken(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAccount_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/account/preferences/")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next=%2Faccount%2Fpreferences%2F", rec.Header().Get("Location"))
}

func TestAccount_Render(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret")

	rec := env.get(t, "/account/preferences/", env.sessionCookie(t, "alice", "s3cret"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, id := range []string{"settings", "authentication", "profile", "groups"} {
		assert.Contains(t, body, `href="#`+id+`"`)
	}
	assert.Contains(t, body, `id="form-profile"`)
	assert.Contains(t, body, `value="alice@example.com"`)
	assert.Contains(t, body, `id="view-groups"`)
	assert.Contains(t, body, `>{"groups":`)
	assert.Contains(t, body, "/static/js/accountPage/joinedGroupsView.js")
	assert.Contains(t, body, "/static/css/account-page.css")
}

func TestAccount_Submit(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "s3cret")
	cookie := env.sessionCookie(t, "alice", "s3cret")

	t.Run("saves and redirects with a message", func(t *testing.T) {
		rec := env.postForm(t, "/account/preferences/", url.Values{
			accounts.FormTargetField: {"profile"},
			"first_name":             {"Alice"},
			"last_name":              {"Liddell"},
			"email":                  {"alice@wonderland.example"},
		}, true, cookie)

		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
		assert.Equal(t, "/account/preferences/", rec.Header().Get("Location"))

		updated, err := env.users.GetByID(context.Background(), alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", updated.FirstName)
		assert.Equal(t, "alice@wonderland.example", updated.Email)

		flash := findCookie(rec, "reviewdesk_messages")
		require.NotNil(t, flash)

		rec = env.get(t, "/account/preferences/", cookie, flash)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Your profile has been saved.")
	})

	t.Run("invalid form is redisplayed", func(t *testing.T) {
		rec := env.postForm(t, "/account/preferences/", url.Values{
			accounts.FormTargetField: {"profile"},
			"email":                  {""},
		}, true, cookie)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "This field is required.")
	})

	t.Run("unknown form target", func(t *testing.T) {
		rec := env.postForm(t, "/account/preferences/", url.Values{accounts.FormTargetField: {"bogus"}}, true, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing csrf token", func(t *testing.T) {
		rec := env.postForm(t, "/account/preferences/", url.Values{accounts.FormTargetField: {"profile"}}, false, cookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestReviewRequestPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", "s3cret")
	bob := env.createUser(t, "bob", "hunter2")
	aliceCookie := env.sessionCookie(t, "alice", "s3cret")

	rr, err := env.reviewRequests.Create(ctx, application.NewReviewRequest{Submitter: alice, Summary: "Add <caching>"})
	require.NoError(t, err)
	path := "/r/" + itoa(rr.DisplayID()) + "/"

	// Hidden until published, except from the submitter.
	assert.Equal(t, http.StatusNotFound, env.get(t, path).Code)

	rec := env.get(t, path, aliceCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Add &lt;caching&gt;")
	assert.Contains(t, body, `class="draft-banner"`)
	assert.Contains(t, body, `data-raw-value="Add &lt;caching&gt;"`)
	assert.Contains(t, body, "/static/js/reviewRequestPage/fieldEditor.js")

	_, err = env.reviewRequests.UpdateDraftField(ctx, rr.ID, alice, fields.FieldDescription, "Caches things.")
	require.NoError(t, err)
	_, err = env.reviewRequests.UpdateDraftField(ctx, rr.ID, alice, fields.FieldTargetPeople, bob.Username)
	require.NoError(t, err)
	_, err = env.reviewRequests.Publish(ctx, rr.ID, alice, "")
	require.NoError(t, err)

	rec = env.get(t, path)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Caches things.")
	assert.NotContains(t, body, "data-raw-value")
	assert.NotContains(t, body, `class="draft-banner"`)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/r/999/").Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/r/abc/").Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/s/nowhere/r/"+itoa(rr.DisplayID())+"/").Code)
}

func TestSearchPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", "s3cret")
	bob := env.createUser(t, "bob", "hunter2")

	rr, err := env.reviewRequests.Create(ctx, application.NewReviewRequest{Submitter: alice, Summary: "Tune the cache"})
	require.NoError(t, err)
	_, err = env.reviewRequests.UpdateDraftField(ctx, rr.ID, alice, fields.FieldDescription, "Bigger buckets.")
	require.NoError(t, err)
	_, err = env.reviewRequests.UpdateDraftField(ctx, rr.ID, alice, fields.FieldTargetPeople, bob.Username)
	require.NoError(t, err)
	_, err = env.reviewRequests.Publish(ctx, rr.ID, alice, "")
	require.NoError(t, err)

	rec := env.get(t, "/search/?q=cache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Search is not enabled on this server.")

	rec = env.get(t, "/search/?q="+itoa(rr.DisplayID()))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/r/"+itoa(rr.DisplayID())+"/", rec.Header().Get("Location"))

	cfg := model.NewSiteConfig()
	cfg.Set(model.SettingSearchEnable, true)
	require.NoError(t, env.siteConfig.Save(ctx, cfg))
	_, err = env.search.Reindex(ctx)
	require.NoError(t, err)

	rec = env.get(t, "/search/?q=cache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#"+itoa(rr.DisplayID())+": Tune the cache")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/static/js/common.js")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}
