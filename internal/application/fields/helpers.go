package fields

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/markup"
)

// sha1Length is the length of a hex SHA-1 commit id.
const sha1Length = 40

var errNoSubstitution = errors.New("template has no %s substitution")

func link(url, text string) string {
	return `<a href="` + markup.Escape(url) + `">` + markup.Escape(text) + `</a>`
}

func joinComma(values []string) string {
	return strings.Join(values, ", ")
}

// splitCommaList splits user input on commas, trimming whitespace and
// dropping empty entries.
func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func itemKeys(items []Item) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		if item.Key != "" {
			keys = append(keys, item.Key)
		} else {
			keys = append(keys, item.Label)
		}
	}
	return keys
}

// hasSymmetricDifference reports whether a and b differ as sets.
func hasSymmetricDifference(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, k := range a {
		setA[k] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, k := range b {
		setB[k] = struct{}{}
	}

	if len(setA) != len(setB) {
		return true
	}
	for k := range setA {
		if _, ok := setB[k]; !ok {
			return true
		}
	}
	return false
}

func toChangeItems(items []Item) []model.ChangeItem {
	out := make([]model.ChangeItem, 0, len(items))
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = item.Label
		}
		out = append(out, model.ChangeItem{Label: name, URL: item.URL, Key: item.Key})
	}
	return out
}

func firstLabel(items []model.ChangeItem) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Label
}

// formatBugURL substitutes bugID into a bug tracker URL template. The
// template must contain exactly one %s; %% is a literal percent sign. Any
// other verb, a second substitution or a trailing % is an error. Flags and
// widths such as %-s or %10s are not accepted either, so templates using
// them fall back to plain bug ids.
func formatBugURL(tmpl, bugID string) (string, error) {
	var buf strings.Builder
	substituted := false

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' {
			buf.WriteByte(c)
			continue
		}

		i++
		if i >= len(tmpl) {
			return "", errors.New("incomplete format at end of template")
		}

		switch tmpl[i] {
		case '%':
			buf.WriteByte('%')
		case 's':
			if substituted {
				return "", errors.New("template has more than one %s substitution")
			}
			buf.WriteString(bugID)
			substituted = true
		default:
			return "", fmt.Errorf("unsupported format character %q", tmpl[i])
		}
	}

	if !substituted {
		return "", errNoSubstitution
	}
	return buf.String(), nil
}

// abbreviateCommitID shortens SHA-1 commit ids to 7 characters plus "...".
func abbreviateCommitID(commitID string) string {
	if len(commitID) == sha1Length {
		return commitID[:7] + "..."
	}
	return commitID
}
