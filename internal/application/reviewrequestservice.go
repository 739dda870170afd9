package application

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewdesk/internal/application/fields"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
	"github.com/ericfisherdev/reviewdesk/internal/markup"
)

var (
	// ErrPermissionDenied is returned when the user may not modify the review request.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoDraft is returned when publishing a review request without a draft.
	ErrNoDraft = errors.New("review request has no draft")

	// ErrUnknownField is returned when a field ID is not registered.
	ErrUnknownField = errors.New("unknown field")
)

// PublishValidationError lists why a draft cannot be published yet.
type PublishValidationError struct {
	Problems []string
}

func (e *PublishValidationError) Error() string {
	return "draft cannot be published: " + strings.Join(e.Problems, "; ")
}

// PublishNotifier is told when a review request has been published.
type PublishNotifier interface {
	ReviewRequestPublished(ctx context.Context, rr model.ReviewRequest)
}

// RenderedField is one field ready for display.
type RenderedField struct {
	ID             string
	Label          string
	Required       bool
	Editable       bool
	Value          string // Raw value for the inline editor.
	HTML           template.HTML
	CSSClasses     []string
	DataAttributes map[string]string
}

// RenderedFieldSet is one fieldset ready for display.
type RenderedFieldSet struct {
	ID           string
	Label        string
	ShowRequired bool
	Fields       []RenderedField
}

// ReviewRequestView is everything a review request page shows.
type ReviewRequestView struct {
	ReviewRequest *model.ReviewRequest
	Draft         *model.ReviewRequestDraft
	Summary       string
	Editable      bool
	Main          []RenderedField
	FieldSets     []RenderedFieldSet
}

// RenderedChange is one field change of a change description.
type RenderedChange struct {
	FieldID string
	Label   string
	HTML    template.HTML
}

// RenderedChangeDescription is a change description ready for display.
type RenderedChangeDescription struct {
	ID        int64
	Timestamp time.Time
	Text      template.HTML
	Changes   []RenderedChange
}

// NewReviewRequest describes a review request to create.
type NewReviewRequest struct {
	Submitter    model.User
	RepositoryID *int64
	LocalSite    *model.LocalSite
	Changenum    int64
	CommitID     string
	Summary      string
}

// ReviewRequestService loads, edits and publishes review requests through the
// registered fields.
type ReviewRequestService struct {
	requests     driven.ReviewRequestStore
	repositories driven.RepositoryStore
	changesets   driven.ChangesetChecker
	registry     *fields.Registry
	resolver     fields.Resolver
	notifier     PublishNotifier
	logger       *slog.Logger
}

// NewReviewRequestService creates a ReviewRequestService. changesets may be
// nil when no hosting service is configured.
func NewReviewRequestService(
	requests driven.ReviewRequestStore,
	repositories driven.RepositoryStore,
	changesets driven.ChangesetChecker,
	registry *fields.Registry,
	resolver fields.Resolver,
	notifier PublishNotifier,
	logger *slog.Logger,
) *ReviewRequestService {
	return &ReviewRequestService{
		requests:     requests,
		repositories: repositories,
		changesets:   changesets,
		registry:     registry,
		resolver:     resolver,
		notifier:     notifier,
		logger:       logger,
	}
}

// Get loads a review request with the review requests it blocks and the
// pending state of its changeset.
func (s *ReviewRequestService) Get(ctx context.Context, id int64) (*model.ReviewRequest, error) {
	rr, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading review request %d: %w", id, err)
	}
	return s.decorate(ctx, rr)
}

// GetByDisplayID loads a review request by the id shown to users. Returns
// driven.ErrNotFound when it does not exist.
func (s *ReviewRequestService) GetByDisplayID(ctx context.Context, displayID int64, localSiteID *int64) (*model.ReviewRequest, error) {
	rr, err := s.requests.GetByDisplayID(ctx, displayID, localSiteID)
	if err != nil {
		return nil, fmt.Errorf("loading review request %d: %w", displayID, err)
	}
	if rr == nil {
		return nil, fmt.Errorf("review request %d: %w", displayID, driven.ErrNotFound)
	}
	return s.decorate(ctx, rr)
}

func (s *ReviewRequestService) decorate(ctx context.Context, rr *model.ReviewRequest) (*model.ReviewRequest, error) {
	blocks, err := s.requests.ListBlocking(ctx, rr.ID)
	if err != nil {
		return nil, fmt.Errorf("listing review requests blocked by %d: %w", rr.ID, err)
	}
	rr.Blocks = blocks

	if rr.Changenum != 0 && rr.Repository != nil && s.changesets != nil {
		pending, err := s.changesets.IsPending(ctx, *rr.Repository, rr.Changenum)
		if err != nil {
			// The page still renders; the number just loses its pending marker.
			s.logger.Warn("checking changeset state", "review_request_id", rr.ID,
				"changenum", rr.Changenum, "error", err)
		}
		rr.ChangesetPending = pending
	}
	return rr, nil
}

// View renders a review request for viewer. The viewer's draft is shown in
// place of the published values when they may edit the review request.
func (s *ReviewRequestService) View(ctx context.Context, rr *model.ReviewRequest, viewer *model.User) (*ReviewRequestView, error) {
	view := &ReviewRequestView{ReviewRequest: rr}

	if viewer != nil && rr.IsMutableBy(*viewer) {
		view.Editable = true

		draft, err := s.requests.GetDraft(ctx, rr.ID)
		if err != nil {
			return nil, fmt.Errorf("loading draft for %d: %w", rr.ID, err)
		}
		view.Draft = draft
	}

	binding := fields.Binding{ReviewRequest: rr, Draft: view.Draft}
	view.Summary = fields.SummarySpec().Bind(binding).Value().Text

	for _, fs := range s.registry.FieldSets(true) {
		rendered := RenderedFieldSet{ID: fs.ID, Label: fs.Label, ShowRequired: fs.ShowRequired}
		for _, f := range fs.Bind(binding) {
			v := f.Value()
			if !f.ShouldRender(v) {
				continue
			}
			rendered.Fields = append(rendered.Fields, renderField(f, v, view.Editable))
		}

		if fs.ID == fields.FieldSetMain {
			view.Main = rendered.Fields
			continue
		}
		if len(rendered.Fields) > 0 {
			view.FieldSets = append(view.FieldSets, rendered)
		}
	}
	return view, nil
}

func renderField(f fields.Descriptor, v fields.Value, canEdit bool) RenderedField {
	raw := v.Text
	if f.Kind().IsList() {
		raw = strings.Join(v.Labels(), ", ")
	}

	return RenderedField{
		ID:             f.ID(),
		Label:          f.Label(),
		Required:       f.Required(),
		Editable:       canEdit && f.Editable(),
		Value:          raw,
		HTML:           f.RenderValue(v),
		CSSClasses:     f.CSSClasses(),
		DataAttributes: f.DataAttributes(),
	}
}

// UpdateDraftField parses raw input for one field and saves it to the
// user's draft, creating the draft on first edit.
func (s *ReviewRequestService) UpdateDraftField(ctx context.Context, id int64, user model.User, fieldID, raw string) (*RenderedField, error) {
	rr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rr.IsMutableBy(user) {
		return nil, ErrPermissionDenied
	}

	def := s.registry.Field(fieldID)
	if def == nil {
		return nil, fmt.Errorf("%q: %w", fieldID, ErrUnknownField)
	}

	draft, err := s.requests.GetDraft(ctx, rr.ID)
	if err != nil {
		return nil, fmt.Errorf("loading draft for %d: %w", rr.ID, err)
	}
	if draft == nil {
		d := model.NewDraft(*rr)
		draft = &d
	}

	f := def.Bind(fields.Binding{ReviewRequest: rr, Draft: draft})
	if !f.Editable() {
		return nil, fmt.Errorf("%q: %w", fieldID, fields.ErrFieldNotEditable)
	}

	v, err := f.ParseInput(ctx, s.resolver, raw)
	if err != nil {
		return nil, err
	}
	if err := f.SaveValue(v); err != nil {
		return nil, err
	}

	draft.LastUpdated = time.Now().UTC()
	if err := s.requests.SaveDraft(ctx, *draft); err != nil {
		return nil, fmt.Errorf("saving draft for %d: %w", rr.ID, err)
	}

	rendered := renderField(f, f.Value(), true)
	return &rendered, nil
}

// Publish copies the draft onto the review request. When the review request
// was already public, every changed field is recorded in a change
// description along with changeText.
func (s *ReviewRequestService) Publish(ctx context.Context, id int64, user model.User, changeText string) (*model.ChangeDescription, error) {
	rr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rr.IsMutableBy(user) {
		return nil, ErrPermissionDenied
	}

	draft, err := s.requests.GetDraft(ctx, rr.ID)
	if err != nil {
		return nil, fmt.Errorf("loading draft for %d: %w", rr.ID, err)
	}
	if draft == nil {
		return nil, ErrNoDraft
	}

	if problems := validateDraft(*draft); len(problems) > 0 {
		return nil, &PublishValidationError{Problems: problems}
	}

	now := time.Now().UTC()
	var cd *model.ChangeDescription
	if rr.Public {
		cd = &model.ChangeDescription{
			ReviewRequestID: rr.ID,
			Text:            changeText,
			Public:          true,
			Timestamp:       now,
		}
		s.recordChanges(cd, rr, draft)
	}

	draft.ApplyTo(rr)
	rr.Public = true
	rr.LastUpdated = now

	if cd != nil && !cd.HasChanges() && strings.TrimSpace(changeText) == "" {
		cd = nil
	}

	cd, err = s.requests.Publish(ctx, *rr, cd)
	if err != nil {
		return nil, fmt.Errorf("publishing review request %d: %w", rr.ID, err)
	}

	s.logger.Info("review request published", "review_request_id", rr.ID, "user", user.Username)

	if s.notifier != nil {
		s.notifier.ReviewRequestPublished(ctx, *rr)
	}
	return cd, nil
}

// recordChanges diffs every registered field between the review request and
// its draft. It must run before the draft is applied.
func (s *ReviewRequestService) recordChanges(cd *model.ChangeDescription, rr *model.ReviewRequest, draft *model.ReviewRequestDraft) {
	for _, def := range s.registry.Fields() {
		published := def.Bind(fields.Binding{ReviewRequest: rr})
		if !published.RecordsChanges() {
			continue
		}
		drafted := def.Bind(fields.Binding{ReviewRequest: rr, Draft: draft})

		oldValue, newValue := published.Value(), drafted.Value()
		if published.HasValueChanged(oldValue, newValue) {
			published.RecordChangeEntry(cd, oldValue, newValue)
		}
	}
}

func validateDraft(d model.ReviewRequestDraft) []string {
	var problems []string
	if strings.TrimSpace(d.Summary) == "" {
		problems = append(problems, "The draft must have a summary.")
	}
	if strings.TrimSpace(d.Description) == "" {
		problems = append(problems, "The draft must have a description.")
	}
	if len(d.TargetGroups) == 0 && len(d.TargetPeople) == 0 {
		problems = append(problems, "There must be at least one reviewer before this review request can be published.")
	}
	return problems
}

// Discard throws away the user's draft.
func (s *ReviewRequestService) Discard(ctx context.Context, id int64, user model.User) error {
	rr, err := s.requests.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading review request %d: %w", id, err)
	}
	if !rr.IsMutableBy(user) {
		return ErrPermissionDenied
	}

	if err := s.requests.DeleteDraft(ctx, rr.ID); err != nil {
		return fmt.Errorf("deleting draft for %d: %w", rr.ID, err)
	}
	return nil
}

// ChangeDescriptions renders the public change history of a review request,
// oldest first. Changes are listed in field registration order.
func (s *ReviewRequestService) ChangeDescriptions(ctx context.Context, rr *model.ReviewRequest) ([]RenderedChangeDescription, error) {
	cds, err := s.requests.ListChangeDescriptions(ctx, rr.ID)
	if err != nil {
		return nil, fmt.Errorf("listing change descriptions for %d: %w", rr.ID, err)
	}

	defs := s.registry.Fields()
	binding := fields.Binding{ReviewRequest: rr}

	out := make([]RenderedChangeDescription, 0, len(cds))
	for _, cd := range cds {
		rendered := RenderedChangeDescription{
			ID:        cd.ID,
			Timestamp: cd.Timestamp,
			Text:      renderChangeText(cd),
		}

		for _, def := range defs {
			change, ok := cd.FieldsChanged[def.ID]
			if !ok {
				continue
			}
			f := def.Bind(binding)
			rendered.Changes = append(rendered.Changes, RenderedChange{
				FieldID: def.ID,
				Label:   def.Label,
				HTML:    f.RenderChangeEntry(change),
			})
		}
		out = append(out, rendered)
	}
	return out, nil
}

func renderChangeText(cd model.ChangeDescription) template.HTML {
	if cd.RichText {
		return template.HTML(markup.RenderMarkdown(cd.Text))
	}
	return template.HTML(markup.RenderPlainText(cd.Text))
}

// Create creates an unpublished review request and its initial draft.
func (s *ReviewRequestService) Create(ctx context.Context, in NewReviewRequest) (*model.ReviewRequest, error) {
	now := time.Now().UTC()
	rr := model.ReviewRequest{
		Submitter: in.Submitter,
		Changenum: in.Changenum,
		Status:    model.ReviewRequestPending,
		TimeAdded: now,
		ReviewRequestDetails: model.ReviewRequestDetails{
			Summary:     in.Summary,
			CommitID:    in.CommitID,
			LastUpdated: now,
		},
	}

	if in.LocalSite != nil {
		rr.LocalSiteID = &in.LocalSite.ID
		rr.LocalSite = in.LocalSite.Name
	}

	if in.RepositoryID != nil {
		repo, err := s.repositories.GetByID(ctx, *in.RepositoryID)
		if err != nil {
			return nil, fmt.Errorf("loading repository %d: %w", *in.RepositoryID, err)
		}
		rr.Repository = repo
	}

	created, err := s.requests.Create(ctx, rr)
	if err != nil {
		return nil, fmt.Errorf("creating review request: %w", err)
	}

	if err := s.requests.SaveDraft(ctx, model.NewDraft(created)); err != nil {
		return nil, fmt.Errorf("creating draft for %d: %w", created.ID, err)
	}

	s.logger.Info("review request created", "review_request_id", created.ID, "user", in.Submitter.Username)
	return &created, nil
}
