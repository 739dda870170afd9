// Package fields describes the fields shown on a review request page. Each
// field adapts one attribute of a review request or its draft into a uniform
// load/save/render/diff contract. Fields are plain data (Spec) selected by
// Kind, with per-field accessor and hook functions instead of subclassing.
package fields

import (
	"context"
	"errors"
	"html/template"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

var (
	// ErrFieldNotEditable is returned by SaveValue on read-only fields.
	ErrFieldNotEditable = errors.New("field is not editable")

	// ErrFieldRegistered is returned when a field ID is already registered in any fieldset.
	ErrFieldRegistered = errors.New("field is already registered")

	// ErrFieldNotRegistered is returned when removing a field that is not registered.
	ErrFieldNotRegistered = errors.New("field is not registered")

	// ErrFieldSetRegistered is returned when a fieldset ID is already registered.
	ErrFieldSetRegistered = errors.New("fieldset is already registered")

	// ErrFieldSetNotRegistered is returned when a fieldset ID is unknown.
	ErrFieldSetNotRegistered = errors.New("fieldset is not registered")
)

// Kind selects the shared behavior of a field.
type Kind int

const (
	KindText      Kind = iota // Read-only value.
	KindEditable              // Single-line editable text.
	KindTextArea              // Multi-line editable text, Markdown capable.
	KindCommaList             // Editable comma-separated list of strings.
	KindModelList             // Editable list of references to other records.
)

// IsList reports whether values of this kind are item lists.
func (k Kind) IsList() bool {
	return k == KindCommaList || k == KindModelList
}

// Owner says which record an attribute lives on.
type Owner int

const (
	// OwnerDetails attributes exist on both the review request and its
	// draft. They resolve to the draft when one is bound.
	OwnerDetails Owner = iota

	// OwnerReviewRequest attributes only exist on the review request and
	// always resolve there, even when a draft is bound.
	OwnerReviewRequest
)

// Item is one element of a list-valued field.
type Item struct {
	Key      string // Identity key: primary key or the raw string.
	Label    string // Text shown when rendering the item.
	Name     string // Display attribute recorded in change descriptions; Label when empty.
	URL      string
	Inactive bool
}

// Value is the loaded value of a field. Scalar fields use Text; list fields
// use Items in display order.
type Value struct {
	Text  string
	Items []Item
}

// TextValue returns a scalar value.
func TextValue(s string) Value {
	return Value{Text: s}
}

// ListValue returns a string list value with each string as key and label.
func ListValue(items ...string) Value {
	v := Value{Items: make([]Item, 0, len(items))}
	for _, s := range items {
		v.Items = append(v.Items, Item{Key: s, Label: s})
	}
	return v
}

// Labels returns the labels of the value's items.
func (v Value) Labels() []string {
	labels := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		labels = append(labels, item.Label)
	}
	return labels
}

// Binding is the record a field reads from and writes to. ReviewRequest is
// always set; Draft is set when editing or viewing an unpublished draft.
type Binding struct {
	ReviewRequest *model.ReviewRequest
	Draft         *model.ReviewRequestDraft
}

// Resolver looks up the records named in user input for model list fields.
type Resolver interface {
	ResolveUsers(ctx context.Context, usernames []string) ([]model.User, error)
	ResolveGroups(ctx context.Context, names []string, localSiteID *int64) ([]model.Group, error)
	ResolveReviewRequests(ctx context.Context, displayIDs []int64, localSiteID *int64) ([]model.ReviewRequestRef, error)
}

// Descriptor is a field bound to a review request or draft.
type Descriptor interface {
	ID() string
	Label() string
	Kind() Kind
	Editable() bool
	Required() bool

	// RecordsChanges reports whether publishing records this field's changes
	// in the change description.
	RecordsChanges() bool

	// LoadValue returns the attribute's value from the given binding,
	// resolving the attribute owner first.
	LoadValue(b Binding) Value

	// Value returns the value loaded from the descriptor's own binding. It is
	// loaded once and cached until SaveValue.
	Value() Value

	// SaveValue writes the value onto the owning record. The caller persists it.
	SaveValue(v Value) error

	// ParseInput converts raw user input into a value, resolving references
	// for model list fields.
	ParseInput(ctx context.Context, r Resolver, raw string) (Value, error)

	ShouldRender(v Value) bool
	RenderValue(v Value) template.HTML
	HasValueChanged(oldValue, newValue Value) bool
	RecordChangeEntry(cd *model.ChangeDescription, oldValue, newValue Value)
	RenderChangeEntry(change model.FieldChange) template.HTML

	CSSClasses() []string
	DataAttributes() map[string]string

	// AsHTML renders the descriptor's own value.
	AsHTML() template.HTML
}

// UnknownItemsError is returned by ParseInput when some names in the input do
// not match any record.
type UnknownItemsError struct {
	FieldID string
	Names   []string
}

func (e *UnknownItemsError) Error() string {
	return "unknown values for " + e.FieldID + ": " + joinComma(e.Names)
}
