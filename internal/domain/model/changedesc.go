package model

import "time"

// ChangeItem is one recorded value in a change entry. For model references
// Label holds the display attribute (summary, name, username), URL the
// object's page and Key its primary key.
type ChangeItem struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
	Key   string `json:"key,omitempty"`
}

func (i ChangeItem) identity() string {
	if i.Key != "" {
		return i.Key
	}
	return i.Label
}

// FieldChange captures the old and new value of one field. List fields also
// carry the added and removed items.
type FieldChange struct {
	Old      []ChangeItem `json:"old,omitempty"`
	New      []ChangeItem `json:"new,omitempty"`
	Added    []ChangeItem `json:"added,omitempty"`
	Removed  []ChangeItem `json:"removed,omitempty"`
	NameAttr string       `json:"name_attr,omitempty"`
	IsList   bool         `json:"is_list,omitempty"`
}

// ChangeDescription records what changed when a draft was published on top of
// an already public review request.
type ChangeDescription struct {
	ID              int64
	ReviewRequestID int64
	Text            string
	RichText        bool
	Public          bool
	Timestamp       time.Time
	FieldsChanged   map[string]FieldChange
}

// RecordScalarChange stores the old and new value of a single-valued field.
func (cd *ChangeDescription) RecordScalarChange(fieldID, oldValue, newValue string) {
	cd.record(fieldID, FieldChange{
		Old: []ChangeItem{{Label: oldValue}},
		New: []ChangeItem{{Label: newValue}},
	})
}

// RecordListChange stores the old and new items of a list field, along with
// the items added and removed. nameAttr names the attribute the labels were
// taken from; it is empty for plain string lists.
func (cd *ChangeDescription) RecordListChange(fieldID string, oldItems, newItems []ChangeItem, nameAttr string) {
	cd.record(fieldID, FieldChange{
		Old:      oldItems,
		New:      newItems,
		Added:    itemsMissingFrom(newItems, oldItems),
		Removed:  itemsMissingFrom(oldItems, newItems),
		NameAttr: nameAttr,
		IsList:   true,
	})
}

// HasChanges reports whether any field change has been recorded.
func (cd *ChangeDescription) HasChanges() bool {
	return len(cd.FieldsChanged) > 0
}

func (cd *ChangeDescription) record(fieldID string, change FieldChange) {
	if cd.FieldsChanged == nil {
		cd.FieldsChanged = make(map[string]FieldChange)
	}
	cd.FieldsChanged[fieldID] = change
}

// itemsMissingFrom returns the items of a whose identity is not present in b,
// preserving the order of a.
func itemsMissingFrom(a, b []ChangeItem) []ChangeItem {
	seen := make(map[string]struct{}, len(b))
	for _, item := range b {
		seen[item.identity()] = struct{}{}
	}

	var missing []ChangeItem
	for _, item := range a {
		if _, ok := seen[item.identity()]; !ok {
			missing = append(missing, item)
		}
	}
	return missing
}
