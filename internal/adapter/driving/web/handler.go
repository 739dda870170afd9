// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	httphandler "github.com/ericfisherdev/reviewdesk/internal/adapter/driving/http"
	"github.com/ericfisherdev/reviewdesk/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/application/accounts"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

const accountPath = "/account/preferences/"

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	reviewRequests *application.ReviewRequestService
	search         *application.SearchService
	groups         *application.GroupService
	sessions       *application.SessionService
	accountPages   *accounts.Pages
	users          driven.UserStore
	sessionTTL     time.Duration
	secureCookies  bool
	logger         *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	reviewRequests *application.ReviewRequestService,
	search *application.SearchService,
	groups *application.GroupService,
	sessions *application.SessionService,
	accountPages *accounts.Pages,
	users driven.UserStore,
	sessionTTL time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		reviewRequests: reviewRequests,
		search:         search,
		groups:         groups,
		sessions:       sessions,
		accountPages:   accountPages,
		users:          users,
		sessionTTL:     sessionTTL,
		secureCookies:  secureCookies,
		logger:         logger,
	}
}

// Home sends logged-in users to their account page and everyone else to search.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if application.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, accountPath, http.StatusFound)
		return
	}
	http.Redirect(w, r, "/search/", http.StatusFound)
}

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	form := templates.LoginForm{Next: safeNext(r.URL.Query().Get("next"))}
	h.renderLogin(w, r, form, http.StatusOK)
}

// Login authenticates the submitted credentials and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	form := templates.LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Next:     safeNext(r.PostFormValue("next")),
	}

	session, _, err := h.sessions.Login(r.Context(), form.Username, r.PostFormValue("password"))
	if errors.Is(err, application.ErrInvalidCredentials) {
		form.Error = "Please enter a correct username and password."
		h.renderLogin(w, r, form, http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("failed to log in", "user", form.Username, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httphandler.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})

	next := form.Next
	if next == "" {
		next = accountPath
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout ends the session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	if token := httphandler.SessionToken(r); token != "" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			h.logger.Error("failed to log out", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httphandler.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
	})
	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}

// ReviewRequest renders a review request page. Unpublished review requests
// are only shown to users who may edit them.
func (h *Handler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	site, ok := h.localSite(w, r)
	if !ok {
		return
	}

	displayID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || displayID < 1 {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	user := application.UserFromContext(ctx)

	rr, err := h.reviewRequests.GetByDisplayID(ctx, displayID, siteID(site))
	if errors.Is(err, driven.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, "failed to load review request", err, "display_id", displayID)
		return
	}
	if !rr.Public && (user == nil || !rr.IsMutableBy(*user)) {
		http.NotFound(w, r)
		return
	}

	view, err := h.reviewRequests.View(ctx, rr, user)
	if err != nil {
		h.serverError(w, "failed to render review request", err, "id", rr.ID)
		return
	}

	changes, err := h.reviewRequests.ChangeDescriptions(ctx, rr)
	if err != nil {
		h.serverError(w, "failed to list change descriptions", err, "id", rr.ID)
		return
	}

	title := view.Summary
	if title == "" {
		title = "Review Request #" + strconv.FormatInt(rr.DisplayID(), 10)
	}

	h.render(w, r, http.StatusOK, title, templates.ReviewRequestPage(view, changes),
		"common-css", "common", "review-request-page")
}

// Account renders the account pages.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	req, ok := h.accountRequest(w, r)
	if !ok {
		return
	}

	pages, err := h.accountPages.Build(r.Context(), req)
	if err != nil {
		h.serverError(w, "failed to build account pages", err)
		return
	}

	h.renderAccount(w, r, pages, http.StatusOK)
}

// SubmitAccount validates and saves the form named by form_target. Invalid
// submissions redisplay the pages with errors.
func (h *Handler) SubmitAccount(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	req, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	pages, saved, err := h.accountPages.Submit(r.Context(), req, r.PostForm)
	if errors.Is(err, accounts.ErrUnknownFormTarget) {
		http.Error(w, "unknown form", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.serverError(w, "failed to save account form", err, "user", req.User.Username)
		return
	}

	if !saved {
		h.renderAccount(w, r, pages, http.StatusBadRequest)
		return
	}

	sink := req.Messages.(*flashMessages)
	if len(sink.messages) == 0 {
		sink.AddMessage(model.MessageSuccess, "Your preferences have been saved.")
	}
	sink.save(w, h.secureCookies)

	http.Redirect(w, r, accountPath, http.StatusSeeOther)
}

// Search runs a search and renders the results. A query naming a review
// request redirects to it.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	site, ok := h.localSite(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.search.Search(r.Context(), application.SearchRequest{
		Query:       r.URL.Query().Get("q"),
		Filter:      r.URL.Query().Get("filter"),
		Page:        page,
		LocalSiteID: siteID(site),
	})
	if err != nil {
		h.serverError(w, "failed to search", err)
		return
	}

	if result.RedirectURL != "" {
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		return
	}

	basePath := "/search/"
	if site != nil {
		basePath = model.LocalSitePrefix(site.Name) + basePath
	}

	h.render(w, r, http.StatusOK, "Search", templates.SearchPage(result, basePath), "common-css", "common")
}

// accountRequest builds the per-request state the account forms act on.
// Anonymous users are redirected to the login page.
func (h *Handler) accountRequest(w http.ResponseWriter, r *http.Request) (accounts.Request, bool) {
	user := application.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login/?next="+url.QueryEscape(accountPath), http.StatusFound)
		return accounts.Request{}, false
	}

	profile, err := h.users.GetProfile(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, "failed to load profile", err, "user", user.Username)
		return accounts.Request{}, false
	}

	return accounts.Request{User: user, Profile: &profile, Messages: &flashMessages{}}, true
}

func (h *Handler) renderAccount(w http.ResponseWriter, r *http.Request, pages []accounts.Page, status int) {
	ctx := r.Context()

	sections := make([]templates.AccountSection, 0, len(pages))
	for _, page := range pages {
		section := templates.AccountSection{ID: page.ID, Title: page.Title}
		for _, form := range page.Forms {
			af, err := accountForm(ctx, form)
			if err != nil {
				h.serverError(w, "failed to serialize account form", err, "form", form.ID())
				return
			}
			section.Forms = append(section.Forms, af)
		}
		sections = append(sections, section)
	}

	token := h.csrfToken(w, r)
	h.renderWithToken(w, r, status, token, "My Account", templates.AccountPage(sections, token),
		"common-css", "account-page-css", "common", "account-page")
}

func accountForm(ctx context.Context, form accounts.Form) (templates.AccountForm, error) {
	modelJSON, err := json.Marshal(form.JSModelData())
	if err != nil {
		return templates.AccountForm{}, err
	}

	viewData, err := form.JSViewData(ctx)
	if err != nil {
		return templates.AccountForm{}, err
	}
	viewJSON, err := json.Marshal(viewData)
	if err != nil {
		return templates.AccountForm{}, err
	}

	return templates.AccountForm{Form: form, Model: modelJSON, View: viewJSON}, nil
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, form templates.LoginForm, status int) {
	form.CSRFToken = h.csrfToken(w, r)
	h.renderWithToken(w, r, status, form.CSRFToken, "Log in", templates.LoginPage(form), "common-css")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title string, content templ.Component, bundles ...string) {
	h.renderWithToken(w, r, status, h.csrfToken(w, r), title, content, bundles...)
}

// renderWithToken renders content inside the layout. Flash messages from the
// previous request are consumed here.
func (h *Handler) renderWithToken(w http.ResponseWriter, r *http.Request, status int, token, title string, content templ.Component, bundles ...string) {
	page := templates.Page{
		Title:     title,
		User:      application.UserFromContext(r.Context()),
		Messages:  popFlash(w, r),
		CSRFToken: token,
		Assets:    bundleAssets(bundles...),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := templates.Layout(page, content).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "title", title, "error", err)
	}
}

func (h *Handler) localSite(w http.ResponseWriter, r *http.Request) (*model.LocalSite, bool) {
	site, err := h.groups.LocalSite(r.Context(), r.PathValue("site"))
	if errors.Is(err, driven.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		h.serverError(w, "failed to load local site", err)
		return nil, false
	}
	return site, true
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	h.logger.Error(msg, append(attrs, "error", err)...)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func siteID(site *model.LocalSite) *int64 {
	if site == nil {
		return nil
	}
	return &site.ID
}

// safeNext accepts only local absolute paths as redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
