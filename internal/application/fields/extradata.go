package fields

import (
	"fmt"
	"strings"
)

// NewExtraDataField creates a field stored in the owner's ExtraData under
// its own ID. It is how extensions add fields without schema changes.
// List kinds store a []string.
func NewExtraDataField(id, label string, kind Kind) *Spec {
	return &Spec{
		ID:    id,
		Label: label,
		Kind:  kind,
		access: accessor{
			get: func(t target) Value {
				raw, ok := t.details.ExtraData[id]
				if !ok || raw == nil {
					return Value{}
				}
				if kind.IsList() {
					return ListValue(extraDataStrings(raw)...)
				}
				return TextValue(fmt.Sprint(raw))
			},
			set: func(t target, v Value) {
				if t.details.ExtraData == nil {
					t.details.ExtraData = make(map[string]any)
				}
				if kind.IsList() {
					t.details.ExtraData[id] = v.Labels()
					return
				}
				t.details.ExtraData[id] = v.Text
			},
		},
	}
}

// extraDataStrings accepts the shapes a list may take after a JSON round
// trip.
func extraDataStrings(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			out = append(out, fmt.Sprint(x))
		}
		return out
	case string:
		return splitCommaList(v)
	default:
		return []string{strings.TrimSpace(fmt.Sprint(v))}
	}
}
