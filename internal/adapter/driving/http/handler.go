// Package httphandler serves the JSON API and the middleware shared with the
// HTML pages.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/application/fields"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	reviewRequests *application.ReviewRequestService
	search         *application.SearchService
	groups         *application.GroupService
	sessions       *application.SessionService
	db             Pinger
	logger         *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	reviewRequests *application.ReviewRequestService,
	search *application.SearchService,
	groups *application.GroupService,
	sessions *application.SessionService,
	db Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		reviewRequests: reviewRequests,
		search:         search,
		groups:         groups,
		sessions:       sessions,
		db:             db,
		logger:         logger,
	}
}

// RegisterAPIRoutes registers every JSON API route on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/session", h.CurrentSession)
	mux.HandleFunc("POST /api/v1/session", h.Login)
	mux.HandleFunc("DELETE /api/v1/session", h.Logout)

	mux.HandleFunc("GET /api/v1/review-requests/{id}", h.GetReviewRequest)
	mux.HandleFunc("GET /api/v1/review-requests/{id}/changes", h.ListChanges)
	mux.HandleFunc("PUT /api/v1/review-requests/{id}/draft/fields/{field}", h.UpdateDraftField)
	mux.HandleFunc("POST /api/v1/review-requests/{id}/draft/publish", h.PublishDraft)
	mux.HandleFunc("DELETE /api/v1/review-requests/{id}/draft", h.DiscardDraft)

	mux.HandleFunc("POST /api/v1/groups/{name}/members", h.JoinGroup)
	mux.HandleFunc("DELETE /api/v1/groups/{name}/members", h.LeaveGroup)

	mux.HandleFunc("GET /api/v1/search", h.Search)
}

// Health reports service status. It returns 503 when the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// CurrentSession returns the logged-in user.
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(*user, true))
}

// Login authenticates the user and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	session, user, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, application.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to log in", "user", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		Token:     session.Token,
		ExpiresAt: formatTime(session.ExpiresAt),
		User:      toUserResponse(*user, true),
	})
}

// Logout deletes the session the request was made with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := SessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if err := h.sessions.Logout(r.Context(), token); err != nil {
		h.logger.Error("failed to log out", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetReviewRequest returns a review request by display id, rendered for the
// requesting user. The local_site query parameter scopes the id.
func (h *Handler) GetReviewRequest(w http.ResponseWriter, r *http.Request) {
	rr, ok := h.loadReviewRequest(w, r)
	if !ok {
		return
	}

	view, err := h.reviewRequests.View(r.Context(), rr, application.UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "render review request", "id", rr.ID)
		return
	}

	writeJSON(w, http.StatusOK, toReviewRequestResponse(view))
}

// ListChanges returns the public change descriptions of a review request.
func (h *Handler) ListChanges(w http.ResponseWriter, r *http.Request) {
	rr, ok := h.loadReviewRequest(w, r)
	if !ok {
		return
	}

	changes, err := h.reviewRequests.ChangeDescriptions(r.Context(), rr)
	if err != nil {
		h.writeServiceError(w, err, "list change descriptions", "id", rr.ID)
		return
	}

	resp := make([]ChangeDescriptionResponse, 0, len(changes))
	for _, cd := range changes {
		resp = append(resp, toChangeDescriptionResponse(cd))
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateDraftField sets one field of the user's draft from raw input and
// returns the re-rendered field.
func (h *Handler) UpdateDraftField(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	rr, ok := h.loadReviewRequest(w, r)
	if !ok {
		return
	}

	var req UpdateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fieldID := r.PathValue("field")
	field, err := h.reviewRequests.UpdateDraftField(r.Context(), rr.ID, *user, fieldID, req.Value)
	if err != nil {
		h.writeServiceError(w, err, "update draft field", "id", rr.ID, "field", fieldID)
		return
	}

	writeJSON(w, http.StatusOK, toFieldResponse(*field, ""))
}

// PublishDraft publishes the user's draft.
func (h *Handler) PublishDraft(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	rr, ok := h.loadReviewRequest(w, r)
	if !ok {
		return
	}

	var req PublishRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	cd, err := h.reviewRequests.Publish(r.Context(), rr.ID, *user, req.ChangeText)
	if err != nil {
		h.writeServiceError(w, err, "publish draft", "id", rr.ID)
		return
	}

	resp := PublishResponse{ReviewRequestID: rr.ID}
	if cd != nil {
		published, err := h.reviewRequests.Get(r.Context(), rr.ID)
		if err != nil {
			h.writeServiceError(w, err, "reload review request", "id", rr.ID)
			return
		}
		rendered, err := h.reviewRequests.ChangeDescriptions(r.Context(), published)
		if err != nil {
			h.writeServiceError(w, err, "list change descriptions", "id", rr.ID)
			return
		}
		for _, c := range rendered {
			if c.ID == cd.ID {
				out := toChangeDescriptionResponse(c)
				resp.ChangeDescription = &out
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// DiscardDraft deletes the user's draft.
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	rr, ok := h.loadReviewRequest(w, r)
	if !ok {
		return
	}

	if err := h.reviewRequests.Discard(r.Context(), rr.ID, *user); err != nil {
		h.writeServiceError(w, err, "discard draft", "id", rr.ID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// JoinGroup adds the logged-in user to a group.
func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	h.changeMembership(w, r, h.groups.Join)
}

// LeaveGroup removes the logged-in user from a group.
func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	h.changeMembership(w, r, h.groups.Leave)
}

type membershipFunc func(ctx context.Context, user model.User, name string, localSiteID *int64) (*model.Group, error)

func (h *Handler) changeMembership(w http.ResponseWriter, r *http.Request, change membershipFunc) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	site, ok := h.localSite(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")
	group, err := change(r.Context(), *user, name, siteID(site))
	if err != nil {
		h.writeServiceError(w, err, "change group membership", "group", name)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(*group))
}

// Search runs a full-text search. Query parameters: q, filter, page, local_site.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	site, ok := h.localSite(w, r)
	if !ok {
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page number")
			return
		}
		page = n
	}

	result, err := h.search.Search(r.Context(), application.SearchRequest{
		Query:       r.URL.Query().Get("q"),
		Filter:      r.URL.Query().Get("filter"),
		Page:        page,
		LocalSiteID: siteID(site),
	})
	if err != nil {
		h.writeServiceError(w, err, "search")
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(result))
}

// loadReviewRequest resolves the {id} path value and local_site query
// parameter to a review request the requesting user may see. Unpublished
// review requests are only visible to users who may edit them.
func (h *Handler) loadReviewRequest(w http.ResponseWriter, r *http.Request) (*model.ReviewRequest, bool) {
	displayID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || displayID < 1 {
		writeError(w, http.StatusBadRequest, "invalid review request id")
		return nil, false
	}

	site, ok := h.localSite(w, r)
	if !ok {
		return nil, false
	}

	rr, err := h.reviewRequests.GetByDisplayID(r.Context(), displayID, siteID(site))
	if err != nil {
		h.writeServiceError(w, err, "load review request", "display_id", displayID)
		return nil, false
	}

	if !rr.Public {
		user := application.UserFromContext(r.Context())
		if user == nil || !rr.IsMutableBy(*user) {
			writeError(w, http.StatusNotFound, "not found")
			return nil, false
		}
	}

	return rr, true
}

func (h *Handler) localSite(w http.ResponseWriter, r *http.Request) (*model.LocalSite, bool) {
	site, err := h.groups.LocalSite(r.Context(), r.URL.Query().Get("local_site"))
	if err != nil {
		h.writeServiceError(w, err, "load local site")
		return nil, false
	}
	return site, true
}

func siteID(site *model.LocalSite) *int64 {
	if site == nil {
		return nil
	}
	return &site.ID
}

// requireUser returns the logged-in user, writing a 401 when there is none.
func requireUser(w http.ResponseWriter, r *http.Request) *model.User {
	user := application.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return user
}

// writeServiceError maps application and store errors to HTTP responses.
// Unexpected errors are logged and reported as 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, action string, attrs ...any) {
	var validation *application.PublishValidationError
	var unknown *fields.UnknownItemsError

	switch {
	case errors.Is(err, driven.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, application.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "draft cannot be published", Problems: validation.Problems})
	case errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrUnknownField),
		errors.Is(err, application.ErrNoDraft),
		errors.Is(err, fields.ErrFieldNotEditable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to "+action, append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
