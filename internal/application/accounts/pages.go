package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrUnknownFormTarget is returned by Submit when form_target names no
// visible form that accepts submissions.
var ErrUnknownFormTarget = errors.New("unknown form target")

// FormTargetField is the hidden input naming the form a POST is for.
const FormTargetField = "form_target"

// FormFactory constructs and loads a form for one request.
type FormFactory func(ctx context.Context, req Request, deps Deps) (Form, error)

// PageSpec is a page of the account area and the forms it shows.
type PageSpec struct {
	ID    string
	Title string
	Forms []FormFactory
}

// Page is a page built for one request, holding only visible forms.
type Page struct {
	ID    string
	Title string
	Forms []Form
}

// Pages builds account pages and dispatches form submissions.
type Pages struct {
	specs []PageSpec
	deps  Deps
}

// DefaultPageSpecs returns the built-in account pages.
func DefaultPageSpecs() []PageSpec {
	return []PageSpec{
		{ID: "settings", Title: "Settings", Forms: []FormFactory{
			func(ctx context.Context, req Request, deps Deps) (Form, error) { return NewSettingsForm(ctx, req, deps) },
		}},
		{ID: "authentication", Title: "Authentication", Forms: []FormFactory{
			func(ctx context.Context, req Request, deps Deps) (Form, error) { return NewChangePasswordForm(ctx, req, deps) },
		}},
		{ID: "profile", Title: "Profile", Forms: []FormFactory{
			func(ctx context.Context, req Request, deps Deps) (Form, error) { return NewProfileForm(ctx, req, deps) },
		}},
		{ID: "groups", Title: "Groups", Forms: []FormFactory{
			func(ctx context.Context, req Request, deps Deps) (Form, error) { return NewGroupsForm(ctx, req, deps) },
		}},
	}
}

// NewPages creates the account page set.
func NewPages(specs []PageSpec, deps Deps) *Pages {
	return &Pages{specs: specs, deps: deps}
}

// Build instantiates every visible form. Pages without visible forms are
// omitted.
func (p *Pages) Build(ctx context.Context, req Request) ([]Page, error) {
	var pages []Page
	for _, spec := range p.specs {
		page := Page{ID: spec.ID, Title: spec.Title}

		for _, newForm := range spec.Forms {
			form, err := newForm(ctx, req, p.deps)
			if err != nil {
				return nil, fmt.Errorf("building %s page: %w", spec.ID, err)
			}
			if form.IsVisible() {
				page.Forms = append(page.Forms, form)
			}
		}

		if len(page.Forms) > 0 {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

// Submit dispatches a POST to the form named by form_target: validate, then
// save. It returns the built pages so an invalid form can be redisplayed with
// its errors, and whether the save happened.
func (p *Pages) Submit(ctx context.Context, req Request, values url.Values) ([]Page, bool, error) {
	pages, err := p.Build(ctx, req)
	if err != nil {
		return nil, false, err
	}

	target := values.Get(FormTargetField)
	form := findForm(pages, target)
	if form == nil || form.SaveLabel() == "" {
		return pages, false, fmt.Errorf("%q: %w", target, ErrUnknownFormTarget)
	}

	if !form.Validate(ctx, values) {
		return pages, false, nil
	}

	if err := form.Save(ctx); err != nil {
		return pages, false, fmt.Errorf("saving %s form: %w", form.ID(), err)
	}

	p.deps.Logger.Info("account form saved", "form", form.ID(), "user", req.User.Username)
	return pages, true, nil
}

func findForm(pages []Page, id string) Form {
	for _, page := range pages {
		for _, form := range page.Forms {
			if form.ID() == id {
				return form
			}
		}
	}
	return nil
}
