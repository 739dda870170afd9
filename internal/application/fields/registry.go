package fields

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// FieldSet is an ordered, labeled group of fields shown together on the
// review request page.
type FieldSet struct {
	ID           string
	Label        string
	ShowRequired bool
	specs        []*Spec
}

// NewFieldSet creates a fieldset with the given member fields.
func NewFieldSet(id, label string, showRequired bool, specs ...*Spec) *FieldSet {
	return &FieldSet{ID: id, Label: label, ShowRequired: showRequired, specs: specs}
}

// Specs returns the member field specs in display order.
func (fs *FieldSet) Specs() []*Spec {
	return slices.Clone(fs.specs)
}

// IsEmpty reports whether the fieldset has no fields.
func (fs *FieldSet) IsEmpty() bool {
	return len(fs.specs) == 0
}

// Bind returns the fieldset's descriptors bound to b, in display order.
func (fs *FieldSet) Bind(b Binding) []Descriptor {
	out := make([]Descriptor, 0, len(fs.specs))
	for _, s := range fs.specs {
		out = append(out, s.Bind(b))
	}
	return out
}

// Registry holds the fieldsets shown on review request pages. Field IDs are
// unique across all fieldsets. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	fieldSets []*FieldSet
	fields    map[string]*Spec
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		fields: make(map[string]*Spec),
		logger: logger,
	}
}

// NewBuiltinRegistry creates a registry populated with the built-in
// fieldsets: main, info and reviewers.
func NewBuiltinRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	builtins := []*FieldSet{
		NewFieldSet(FieldSetMain, "", false,
			SummarySpec(), DescriptionSpec(), TestingDoneSpec()),
		NewFieldSet(FieldSetInfo, "Information", false,
			SubmitterSpec(), RepositorySpec(), BranchSpec(), BugsClosedSpec(),
			DependsOnSpec(), BlocksSpec(), ChangenumSpec(), CommitIDSpec()),
		NewFieldSet(FieldSetReviewers, "Reviewers", true,
			TargetGroupsSpec(), TargetPeopleSpec()),
	}

	for _, fs := range builtins {
		if err := r.RegisterFieldSet(fs); err != nil {
			panic(fmt.Sprintf("registering built-in fieldset %q: %v", fs.ID, err))
		}
	}
	return r
}

// RegisterFieldSet appends a fieldset and indexes its fields.
func (r *Registry) RegisterFieldSet(fs *FieldSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOfLocked(fs.ID) >= 0 {
		return fmt.Errorf("fieldset %q: %w", fs.ID, ErrFieldSetRegistered)
	}

	seen := make(map[string]struct{}, len(fs.specs))
	for _, s := range fs.specs {
		if _, ok := r.fields[s.ID]; ok {
			return fmt.Errorf("field %q: %w", s.ID, ErrFieldRegistered)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("field %q: %w", s.ID, ErrFieldRegistered)
		}
		seen[s.ID] = struct{}{}
	}

	for _, s := range fs.specs {
		r.fields[s.ID] = s
	}
	r.fieldSets = append(r.fieldSets, fs)
	return nil
}

// UnregisterFieldSet removes a fieldset and all of its fields.
func (r *Registry) UnregisterFieldSet(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfLocked(id)
	if i < 0 {
		r.logger.Error("unregistering unknown fieldset", "fieldset", id)
		return fmt.Errorf("fieldset %q: %w", id, ErrFieldSetNotRegistered)
	}

	for _, s := range r.fieldSets[i].specs {
		delete(r.fields, s.ID)
	}
	r.fieldSets = slices.Delete(r.fieldSets, i, i+1)
	return nil
}

// AddField appends a field to a registered fieldset.
func (r *Registry) AddField(fieldSetID string, s *Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfLocked(fieldSetID)
	if i < 0 {
		return fmt.Errorf("fieldset %q: %w", fieldSetID, ErrFieldSetNotRegistered)
	}
	if _, ok := r.fields[s.ID]; ok {
		return fmt.Errorf("field %q: %w", s.ID, ErrFieldRegistered)
	}

	fs := r.fieldSets[i]
	fs.specs = append(fs.specs, s)
	r.fields[s.ID] = s
	return nil
}

// RemoveField removes a field from a fieldset.
func (r *Registry) RemoveField(fieldSetID, fieldID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfLocked(fieldSetID)
	if i < 0 {
		return fmt.Errorf("fieldset %q: %w", fieldSetID, ErrFieldSetNotRegistered)
	}

	fs := r.fieldSets[i]
	j := slices.IndexFunc(fs.specs, func(s *Spec) bool { return s.ID == fieldID })
	if j < 0 {
		r.logger.Error("removing unregistered field", "fieldset", fieldSetID, "field", fieldID)
		return fmt.Errorf("field %q: %w", fieldID, ErrFieldNotRegistered)
	}

	fs.specs = slices.Delete(fs.specs, j, j+1)
	delete(r.fields, fieldID)
	return nil
}

// FieldSet returns the fieldset with the given ID, or nil.
func (r *Registry) FieldSet(id string) *FieldSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOfLocked(id); i >= 0 {
		return r.fieldSets[i]
	}
	return nil
}

// FieldSets returns the registered fieldsets in registration order. The main
// fieldset is rendered separately by pages and is skipped unless includeMain
// is set.
func (r *Registry) FieldSets(includeMain bool) []*FieldSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*FieldSet, 0, len(r.fieldSets))
	for _, fs := range r.fieldSets {
		if fs.ID == FieldSetMain && !includeMain {
			continue
		}
		out = append(out, fs)
	}
	return out
}

// Field returns the field spec with the given ID, or nil.
func (r *Registry) Field(id string) *Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.fields[id]
}

// Fields returns every registered field spec in fieldset order.
func (r *Registry) Fields() []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Spec
	for _, fs := range r.fieldSets {
		out = append(out, fs.specs...)
	}
	return out
}

func (r *Registry) indexOfLocked(id string) int {
	return slices.IndexFunc(r.fieldSets, func(fs *FieldSet) bool { return fs.ID == id })
}
