package fields

import (
	"context"
	"html/template"
	"slices"
	"sort"
	"strings"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/markup"
)

// target is the resolved owner of an attribute. details points either at the
// draft's details or at the review request's own.
type target struct {
	rr      *model.ReviewRequest
	details *model.ReviewRequestDetails
}

// accessor is the getter/setter pair for one attribute. set is nil for
// read-only attributes.
type accessor struct {
	get func(t target) Value
	set func(t target, v Value)
}

// hooks override the kind's default behavior for a single field.
type hooks struct {
	shouldRender     func(f *field, v Value) bool
	renderValue      func(f *field, v Value) string
	renderItem       func(f *field, item Item) string
	renderChangeItem func(f *field, item model.ChangeItem) string
	parse            func(ctx context.Context, f *field, r Resolver, labels []string) ([]Item, error)
}

// Spec is the data-driven definition of a review request field.
type Spec struct {
	ID       string
	Label    string
	Kind     Kind
	Owner    Owner
	Required bool

	// NameAttr names the model attribute recorded for list items in change
	// descriptions ("summary", "name", "username").
	NameAttr string

	// OrderMatters makes list comparison strict instead of set-based.
	OrderMatters bool

	// RecordChanges forces change recording for read-only fields. Editable
	// fields always record changes.
	RecordChanges bool

	access accessor
	hooks  hooks
}

// Bind returns a descriptor for the spec bound to b.
func (s *Spec) Bind(b Binding) Descriptor {
	return &field{spec: s, binding: b}
}

// resolve picks the record the attribute lives on: the draft for
// draft-owned attributes when a draft is bound, else the review request.
func (s *Spec) resolve(b Binding) target {
	t := target{rr: b.ReviewRequest}
	if s.Owner == OwnerDetails && b.Draft != nil {
		t.details = &b.Draft.ReviewRequestDetails
	} else if b.ReviewRequest != nil {
		t.details = &b.ReviewRequest.ReviewRequestDetails
	}
	return t
}

// field implements Descriptor for every kind; behavior differences come from
// the spec's kind and hooks.
type field struct {
	spec    *Spec
	binding Binding
	cached  *Value
}

func (f *field) ID() string     { return f.spec.ID }
func (f *field) Label() string  { return f.spec.Label }
func (f *field) Kind() Kind     { return f.spec.Kind }
func (f *field) Required() bool { return f.spec.Required }

func (f *field) Editable() bool {
	return f.spec.Kind != KindText && f.spec.access.set != nil
}

func (f *field) RecordsChanges() bool {
	return f.Editable() || f.spec.RecordChanges
}

func (f *field) LoadValue(b Binding) Value {
	return f.spec.access.get(f.spec.resolve(b))
}

func (f *field) Value() Value {
	if f.cached == nil {
		v := f.LoadValue(f.binding)
		f.cached = &v
	}
	return *f.cached
}

func (f *field) SaveValue(v Value) error {
	if f.spec.access.set == nil {
		return ErrFieldNotEditable
	}
	f.spec.access.set(f.spec.resolve(f.binding), v)
	f.cached = nil
	return nil
}

func (f *field) ParseInput(ctx context.Context, r Resolver, raw string) (Value, error) {
	switch f.spec.Kind {
	case KindCommaList, KindModelList:
		labels := splitCommaList(raw)
		if f.spec.hooks.parse != nil {
			items, err := f.spec.hooks.parse(ctx, f, r, labels)
			if err != nil {
				return Value{}, err
			}
			return Value{Items: items}, nil
		}
		return ListValue(labels...), nil
	case KindTextArea:
		return TextValue(raw), nil
	default:
		return TextValue(strings.TrimSpace(raw)), nil
	}
}

func (f *field) ShouldRender(v Value) bool {
	if f.spec.hooks.shouldRender != nil {
		return f.spec.hooks.shouldRender(f, v)
	}
	return true
}

func (f *field) RenderValue(v Value) template.HTML {
	if f.spec.hooks.renderValue != nil {
		return template.HTML(f.spec.hooks.renderValue(f, v))
	}

	switch {
	case f.spec.Kind.IsList():
		return template.HTML(f.renderItems(v.Items))
	case f.spec.Kind == KindTextArea:
		return template.HTML(f.renderText(v.Text))
	default:
		return template.HTML(markup.Escape(v.Text))
	}
}

func (f *field) renderItems(items []Item) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, f.renderItem(item))
	}
	return strings.Join(parts, ", ")
}

func (f *field) renderItem(item Item) string {
	if f.spec.hooks.renderItem != nil {
		return f.spec.hooks.renderItem(f, item)
	}
	return markup.Escape(item.Label)
}

// renderText renders text area content: Markdown when the owner is rich
// text, else the plain text shown literally.
func (f *field) renderText(text string) string {
	if f.isRichText() {
		return markup.RenderMarkdown(text)
	}
	return markup.RenderPlainText(text)
}

func (f *field) isRichText() bool {
	t := f.spec.resolve(f.binding)
	return t.details != nil && t.details.RichText
}

func (f *field) HasValueChanged(oldValue, newValue Value) bool {
	if !f.spec.Kind.IsList() {
		return oldValue.Text != newValue.Text || !slices.Equal(itemKeys(oldValue.Items), itemKeys(newValue.Items))
	}

	if f.spec.OrderMatters {
		return !slices.Equal(itemKeys(oldValue.Items), itemKeys(newValue.Items))
	}

	return hasSymmetricDifference(itemKeys(oldValue.Items), itemKeys(newValue.Items))
}

func (f *field) RecordChangeEntry(cd *model.ChangeDescription, oldValue, newValue Value) {
	if f.spec.Kind.IsList() {
		cd.RecordListChange(f.spec.ID, toChangeItems(oldValue.Items), toChangeItems(newValue.Items), f.spec.NameAttr)
		return
	}
	cd.RecordScalarChange(f.spec.ID, oldValue.Text, newValue.Text)
}

func (f *field) RenderChangeEntry(change model.FieldChange) template.HTML {
	switch {
	case f.spec.Kind.IsList():
		return template.HTML(f.renderListChange(change))
	case f.spec.Kind == KindTextArea:
		return template.HTML(renderTextAreaChange(change))
	default:
		return template.HTML(
			"changed from <i>" + markup.Escape(firstLabel(change.Old)) +
				"</i> to <i>" + markup.Escape(firstLabel(change.New)) + "</i>")
	}
}

func (f *field) renderListChange(change model.FieldChange) string {
	var buf strings.Builder
	buf.WriteString("<ul>")

	if html := f.renderChangeItems(change.Removed); html != "" {
		buf.WriteString("\n<li>removed " + html + "</li>")
	}
	if html := f.renderChangeItems(change.Added); html != "" {
		buf.WriteString("\n<li>added " + html + "</li>")
	}

	buf.WriteString("\n</ul>")
	return buf.String()
}

func (f *field) renderChangeItems(items []model.ChangeItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if f.spec.hooks.renderChangeItem != nil {
			parts = append(parts, f.spec.hooks.renderChangeItem(f, item))
			continue
		}
		if item.URL != "" {
			parts = append(parts, link(item.URL, item.Label))
		} else {
			parts = append(parts, markup.Escape(item.Label))
		}
	}
	return strings.Join(parts, ", ")
}

func renderTextAreaChange(change model.FieldChange) string {
	return "<p><label>Changed from:</label></p>\n" +
		"<pre>" + markup.Escape(firstLabel(change.Old)) + "</pre>\n" +
		"<p><label>Changed to:</label></p>\n" +
		"<pre>" + markup.Escape(firstLabel(change.New)) + "</pre>\n"
}

func (f *field) CSSClasses() []string {
	classes := map[string]struct{}{}

	switch f.spec.Kind {
	case KindEditable:
		classes["editable"] = struct{}{}
	case KindTextArea:
		classes["editable"] = struct{}{}
		classes["field-text-area"] = struct{}{}
		if f.Value().Text != "" {
			classes["loading"] = struct{}{}
		}
	case KindCommaList, KindModelList:
		classes["editable"] = struct{}{}
		classes["comma-editable"] = struct{}{}
	}

	if f.spec.Required {
		classes["required"] = struct{}{}
	}

	out := make([]string, 0, len(classes))
	for c := range classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (f *field) DataAttributes() map[string]string {
	if f.spec.Kind == KindTextArea {
		return map[string]string{"rich-text": "true"}
	}
	return map[string]string{}
}

func (f *field) AsHTML() template.HTML {
	return f.RenderValue(f.Value())
}
