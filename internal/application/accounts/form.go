// Package accounts implements the "My Account" pages and the forms on them.
package accounts

import (
	"context"
	"log/slog"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"time"
	_ "time/tzdata" // Timezone validation must work in scratch containers.

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// MessageSink receives one-time messages shown to the user on the next page.
type MessageSink interface {
	AddMessage(level model.MessageLevel, text string)
}

// UserSavedNotifier is told when a user record changes so derived data (the
// search index) can be refreshed.
type UserSavedNotifier interface {
	UserSaved(ctx context.Context, user model.User)
}

// Request is the per-request state a form acts on.
type Request struct {
	User     *model.User
	Profile  *model.Profile
	Messages MessageSink
}

// Deps are the collaborators forms call out to.
type Deps struct {
	Auth       driven.AuthBackend
	Users      driven.UserStore
	Groups     driven.GroupStore
	SiteConfig driven.SiteConfigStore
	UserSaved  UserSavedNotifier
	Logger     *slog.Logger
}

// Form is one form on an account page.
type Form interface {
	ID() string
	Title() string

	// SaveLabel is the submit button text; empty for forms that never save.
	SaveLabel() string

	// Fields returns the fields remaining after Load, in display order.
	Fields() []Field

	// IsVisible reports whether the form should be shown at all.
	IsVisible() bool

	// Load sets initial values from the user and profile and removes fields
	// that capabilities or site configuration disable.
	Load(ctx context.Context) error

	// Validate binds submitted values. It never mutates the user or profile.
	Validate(ctx context.Context, values url.Values) bool

	// Errors returns validation errors keyed by field name. Errors not tied
	// to a field use the empty key.
	Errors() map[string][]string

	// Save writes validated values and persists them. Only call after a
	// successful Validate.
	Save(ctx context.Context) error

	JSModelData() map[string]any
	JSViewData(ctx context.Context) (map[string]any, error)
}

// FieldType selects input rendering and generic validation.
type FieldType int

const (
	FieldText FieldType = iota
	FieldPassword
	FieldEmail
	FieldBool
	FieldTimezone
)

// Field is one input of a form.
type Field struct {
	Name     string
	Label    string
	HelpText string
	Type     FieldType
	Required bool

	// Initial is the value loaded from the user or profile. Bool fields use
	// "true" and "false".
	Initial string

	// Value is the submitted, cleaned value after Validate.
	Value string
}

// Checked reports whether a bool field is on, preferring the submitted value.
func (f Field) Checked() bool {
	if f.Value != "" {
		return f.Value == "true"
	}
	return f.Initial == "true"
}

const errRequired = "This field is required."

// formState holds the field table and validation results shared by every
// form. Forms embed it and override the methods they implement.
type formState struct {
	id        string
	title     string
	saveLabel string
	fields    []Field
	errors    map[string][]string
	cleaned   map[string]string
}

func newFormState(id, title, saveLabel string, fields ...Field) formState {
	return formState{
		id:        id,
		title:     title,
		saveLabel: saveLabel,
		fields:    fields,
		errors:    map[string][]string{},
		cleaned:   map[string]string{},
	}
}

func (s *formState) ID() string        { return s.id }
func (s *formState) Title() string     { return s.title }
func (s *formState) SaveLabel() string { return s.saveLabel }

func (s *formState) Fields() []Field {
	return slices.Clone(s.fields)
}

func (s *formState) Errors() map[string][]string {
	return s.errors
}

func (s *formState) IsVisible() bool {
	return true
}

func (s *formState) Load(context.Context) error {
	return nil
}

// Save panics: a form without a save implementation must never be submitted.
func (s *formState) Save(context.Context) error {
	panic("accounts: form " + s.id + " does not implement Save")
}

func (s *formState) JSModelData() map[string]any {
	return map[string]any{}
}

func (s *formState) JSViewData(context.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

func (s *formState) Validate(_ context.Context, values url.Values) bool {
	return s.bind(values)
}

func (s *formState) hasField(name string) bool {
	return slices.ContainsFunc(s.fields, func(f Field) bool { return f.Name == name })
}

func (s *formState) removeField(name string) {
	s.fields = slices.DeleteFunc(s.fields, func(f Field) bool { return f.Name == name })
}

func (s *formState) setInitial(name, value string) {
	for i := range s.fields {
		if s.fields[i].Name == name {
			s.fields[i].Initial = value
			return
		}
	}
}

func (s *formState) setBoolInitial(name string, value bool) {
	if value {
		s.setInitial(name, "true")
	} else {
		s.setInitial(name, "false")
	}
}

func (s *formState) addError(name, msg string) {
	s.errors[name] = append(s.errors[name], msg)
}

func (s *formState) value(name string) string {
	return s.cleaned[name]
}

func (s *formState) boolValue(name string) bool {
	return s.cleaned[name] == "true"
}

// bind runs the generic per-type validation over the submitted values and
// records cleaned values. It reports whether every field is valid.
func (s *formState) bind(values url.Values) bool {
	s.errors = map[string][]string{}
	s.cleaned = map[string]string{}

	for i := range s.fields {
		f := &s.fields[i]
		raw := values.Get(f.Name)

		switch f.Type {
		case FieldBool:
			if isTruthy(raw) {
				raw = "true"
			} else {
				raw = "false"
			}
		case FieldPassword:
			// Passwords are compared byte for byte; never trim them.
		default:
			raw = strings.TrimSpace(raw)
		}

		if f.Type != FieldBool && f.Required && raw == "" {
			s.addError(f.Name, errRequired)
			continue
		}

		if raw != "" {
			switch f.Type {
			case FieldEmail:
				if _, err := mail.ParseAddress(raw); err != nil {
					s.addError(f.Name, "Enter a valid email address.")
					continue
				}
			case FieldTimezone:
				if _, err := time.LoadLocation(raw); err != nil {
					s.addError(f.Name, "Select a valid timezone.")
					continue
				}
			}
		}

		s.cleaned[f.Name] = raw
		if f.Type != FieldPassword {
			f.Value = raw
		}
	}

	return len(s.errors) == 0
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
