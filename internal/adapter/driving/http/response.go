package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the JSON representation of a user.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	URL      string `json:"url"`
}

// RefResponse is the JSON representation of a review request reference.
type RefResponse struct {
	ID        int64  `json:"id"`
	DisplayID int64  `json:"display_id"`
	Summary   string `json:"summary"`
	URL       string `json:"url"`
}

// FieldResponse is one rendered review request field.
type FieldResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	FieldSet string `json:"fieldset"`
	Required bool   `json:"required"`
	Editable bool   `json:"editable"`
	Value    string `json:"value"`
	HTML     string `json:"html"`
}

// ReviewRequestResponse is the JSON representation of a review request as
// seen by the requesting user.
type ReviewRequestResponse struct {
	ID               int64           `json:"id"`
	DisplayID        int64           `json:"display_id"`
	LocalSite        string          `json:"local_site,omitempty"`
	Summary          string          `json:"summary"`
	Submitter        UserResponse    `json:"submitter"`
	Repository       string          `json:"repository,omitempty"`
	Status           string          `json:"status"`
	Public           bool            `json:"public"`
	Changenum        int64           `json:"changenum,omitempty"`
	ChangesetPending bool            `json:"changeset_pending"`
	URL              string          `json:"url"`
	TimeAdded        string          `json:"time_added"`
	LastUpdated      string          `json:"last_updated"`
	Editable         bool            `json:"editable"`
	HasDraft         bool            `json:"has_draft"`
	Blocks           []RefResponse   `json:"blocks"`
	Fields           []FieldResponse `json:"fields"`
}

// UpdateFieldRequest is the JSON body for updating one draft field.
type UpdateFieldRequest struct {
	Value string `json:"value"`
}

// PublishRequest is the JSON body for publishing a draft.
type PublishRequest struct {
	ChangeText string `json:"change_text"`
}

// PublishResponse reports the change description recorded by a publish, if any.
type PublishResponse struct {
	ReviewRequestID   int64                      `json:"review_request_id"`
	ChangeDescription *ChangeDescriptionResponse `json:"change_description"`
}

// ChangeResponse is one rendered field change.
type ChangeResponse struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label"`
	HTML    string `json:"html"`
}

// ChangeDescriptionResponse is the JSON representation of a change description.
type ChangeDescriptionResponse struct {
	ID        int64            `json:"id"`
	Timestamp string           `json:"timestamp"`
	Text      string           `json:"text"`
	Changes   []ChangeResponse `json:"changes"`
}

// GroupResponse is the JSON representation of a review group.
type GroupResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	LocalSite   string `json:"local_site,omitempty"`
	URL         string `json:"url"`
}

// SearchResultResponse is one search hit.
type SearchResultResponse struct {
	Kind        string `json:"kind"`
	ID          int64  `json:"id"`
	DisplayID   int64  `json:"display_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Username    string `json:"username,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	URL         string `json:"url"`
	LastUpdated string `json:"last_updated"`
}

// SearchResponse is the JSON representation of a search. When RedirectURL is
// set the query named a review request and no results are returned.
type SearchResponse struct {
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Disabled    bool                   `json:"disabled,omitempty"`
	Query       string                 `json:"query"`
	Total       int                    `json:"total"`
	Page        int                    `json:"page"`
	NumPages    int                    `json:"num_pages"`
	Results     []SearchResultResponse `json:"results"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// toUserResponse converts a domain User to its JSON representation. The
// email address is only included for the user themselves.
func toUserResponse(u model.User, includeEmail bool) UserResponse {
	resp := UserResponse{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName(),
		URL:      u.AbsoluteURL(),
	}
	if includeEmail {
		resp.Email = u.Email
	}
	return resp
}

func toRefResponse(ref model.ReviewRequestRef) RefResponse {
	return RefResponse{
		ID:        ref.ID,
		DisplayID: ref.DisplayID,
		Summary:   ref.Summary,
		URL:       ref.AbsoluteURL(),
	}
}

func toFieldResponse(f application.RenderedField, fieldSet string) FieldResponse {
	return FieldResponse{
		ID:       f.ID,
		Label:    f.Label,
		FieldSet: fieldSet,
		Required: f.Required,
		Editable: f.Editable,
		Value:    f.Value,
		HTML:     string(f.HTML),
	}
}

// toReviewRequestResponse flattens a rendered view into its JSON
// representation. Main fields report the "main" fieldset.
func toReviewRequestResponse(view *application.ReviewRequestView) ReviewRequestResponse {
	rr := view.ReviewRequest

	resp := ReviewRequestResponse{
		ID:               rr.ID,
		DisplayID:        rr.DisplayID(),
		LocalSite:        rr.LocalSite,
		Summary:          view.Summary,
		Submitter:        toUserResponse(rr.Submitter, false),
		Status:           string(rr.Status),
		Public:           rr.Public,
		Changenum:        rr.Changenum,
		ChangesetPending: rr.ChangesetPending,
		URL:              rr.AbsoluteURL(),
		TimeAdded:        formatTime(rr.TimeAdded),
		LastUpdated:      formatTime(rr.LastUpdated),
		Editable:         view.Editable,
		HasDraft:         view.Draft != nil,
		Blocks:           make([]RefResponse, 0, len(rr.Blocks)),
		Fields:           []FieldResponse{},
	}
	if rr.Repository != nil {
		resp.Repository = rr.Repository.Name
	}

	for _, ref := range rr.Blocks {
		resp.Blocks = append(resp.Blocks, toRefResponse(ref))
	}
	for _, f := range view.Main {
		resp.Fields = append(resp.Fields, toFieldResponse(f, "main"))
	}
	for _, fs := range view.FieldSets {
		for _, f := range fs.Fields {
			resp.Fields = append(resp.Fields, toFieldResponse(f, fs.ID))
		}
	}

	return resp
}

func toChangeDescriptionResponse(cd application.RenderedChangeDescription) ChangeDescriptionResponse {
	changes := make([]ChangeResponse, 0, len(cd.Changes))
	for _, c := range cd.Changes {
		changes = append(changes, ChangeResponse{
			FieldID: c.FieldID,
			Label:   c.Label,
			HTML:    string(c.HTML),
		})
	}

	return ChangeDescriptionResponse{
		ID:        cd.ID,
		Timestamp: formatTime(cd.Timestamp),
		Text:      string(cd.Text),
		Changes:   changes,
	}
}

func toGroupResponse(g model.Group) GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		DisplayName: g.DisplayName,
		LocalSite:   g.LocalSite,
		URL:         g.AbsoluteURL(),
	}
}

func toSearchResponse(page *application.SearchPage) SearchResponse {
	resp := SearchResponse{
		RedirectURL: page.RedirectURL,
		Disabled:    page.Disabled,
		Query:       page.Query,
		Total:       page.Total,
		Page:        page.Page,
		NumPages:    page.NumPages,
		Results:     make([]SearchResultResponse, 0, len(page.Results)),
	}

	for _, doc := range page.Results {
		resp.Results = append(resp.Results, SearchResultResponse{
			Kind:        string(doc.Kind),
			ID:          doc.ObjectID,
			DisplayID:   doc.DisplayID,
			Title:       doc.Title,
			Username:    doc.Username,
			FullName:    doc.FullName,
			URL:         doc.URL,
			LastUpdated: formatTime(doc.LastUpdated),
		})
	}

	return resp
}
