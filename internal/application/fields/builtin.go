package fields

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/markup"
)

// Built-in field IDs.
const (
	FieldSummary      = "summary"
	FieldDescription  = "description"
	FieldTestingDone  = "testing_done"
	FieldSubmitter    = "submitter"
	FieldRepository   = "repository"
	FieldBranch       = "branch"
	FieldBugsClosed   = "bugs_closed"
	FieldDependsOn    = "depends_on"
	FieldBlocks       = "blocks"
	FieldChangenum    = "changenum"
	FieldCommitID     = "commit_id"
	FieldTargetGroups = "target_groups"
	FieldTargetPeople = "target_people"
)

// Built-in fieldset IDs.
const (
	FieldSetMain      = "main"
	FieldSetInfo      = "info"
	FieldSetReviewers = "reviewers"
)

var bugSplitter = regexp.MustCompile(`[\s,]+`)

// SummarySpec is the one-line summary. It is shown as the page title, never
// in the field list.
func SummarySpec() *Spec {
	return &Spec{
		ID:       FieldSummary,
		Label:    "Summary",
		Kind:     KindEditable,
		Required: true,
		access: accessor{
			get: func(t target) Value { return TextValue(t.details.Summary) },
			set: func(t target, v Value) { t.details.Summary = v.Text },
		},
		hooks: hooks{
			shouldRender: func(*field, Value) bool { return false },
		},
	}
}

func DescriptionSpec() *Spec {
	return &Spec{
		ID:       FieldDescription,
		Label:    "Description",
		Kind:     KindTextArea,
		Required: true,
		access: accessor{
			get: func(t target) Value { return TextValue(t.details.Description) },
			set: func(t target, v Value) { t.details.Description = v.Text },
		},
	}
}

func TestingDoneSpec() *Spec {
	return &Spec{
		ID:    FieldTestingDone,
		Label: "Testing Done",
		Kind:  KindTextArea,
		access: accessor{
			get: func(t target) Value { return TextValue(t.details.TestingDone) },
			set: func(t target, v Value) { t.details.TestingDone = v.Text },
		},
	}
}

func SubmitterSpec() *Spec {
	return &Spec{
		ID:    FieldSubmitter,
		Label: "Submitter",
		Kind:  KindText,
		Owner: OwnerReviewRequest,
		access: accessor{
			get: func(t target) Value {
				u := t.rr.Submitter
				return Value{
					Text:  u.Username,
					Items: []Item{{Key: strconv.FormatInt(u.ID, 10), Label: u.DisplayName(), URL: u.AbsoluteURL()}},
				}
			},
		},
		hooks: hooks{
			renderValue: func(_ *field, v Value) string {
				if len(v.Items) == 0 {
					return markup.Escape(v.Text)
				}
				item := v.Items[0]
				return fmt.Sprintf(`<a class="user" href="%s">%s</a>`, markup.Escape(item.URL), markup.Escape(item.Label))
			},
		},
	}
}

func RepositorySpec() *Spec {
	return &Spec{
		ID:    FieldRepository,
		Label: "Repository",
		Kind:  KindText,
		Owner: OwnerReviewRequest,
		access: accessor{
			get: func(t target) Value {
				if t.rr.Repository == nil {
					return Value{}
				}
				return TextValue(t.rr.Repository.Name)
			},
		},
		hooks: hooks{
			shouldRender: func(f *field, _ Value) bool {
				return f.binding.ReviewRequest != nil && f.binding.ReviewRequest.Repository != nil
			},
		},
	}
}

func BranchSpec() *Spec {
	return &Spec{
		ID:    FieldBranch,
		Label: "Branch",
		Kind:  KindEditable,
		access: accessor{
			get: func(t target) Value { return TextValue(t.details.Branch) },
			set: func(t target, v Value) { t.details.Branch = v.Text },
		},
	}
}

func BugsClosedSpec() *Spec {
	return &Spec{
		ID:    FieldBugsClosed,
		Label: "Bugs",
		Kind:  KindCommaList,
		access: accessor{
			get: func(t target) Value { return ListValue(ParseBugList(t.details.BugsClosed)...) },
			set: func(t target, v Value) { t.details.BugsClosed = joinComma(v.Labels()) },
		},
		hooks: hooks{
			renderItem: func(f *field, item Item) string {
				return renderBug(f.bugTracker(), item.Label)
			},
			renderChangeItem: func(f *field, item model.ChangeItem) string {
				return renderBug(f.bugTracker(), item.Label)
			},
			parse: func(_ context.Context, _ *field, _ Resolver, labels []string) ([]Item, error) {
				return ListValue(ParseBugList(strings.Join(labels, ","))...).Items, nil
			},
		},
	}
}

// ParseBugList splits a stored bug list on commas and whitespace, removes
// duplicates and sorts the ids: numerically when every id is a number,
// otherwise lexically.
func ParseBugList(s string) []string {
	seen := make(map[string]struct{})
	var bugs []string
	for _, id := range bugSplitter.Split(s, -1) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		bugs = append(bugs, id)
	}

	numeric := make(map[string]int64, len(bugs))
	for _, id := range bugs {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			slices.Sort(bugs)
			return bugs
		}
		numeric[id] = n
	}

	slices.SortFunc(bugs, func(a, b string) int {
		switch {
		case numeric[a] < numeric[b]:
			return -1
		case numeric[a] > numeric[b]:
			return 1
		default:
			return 0
		}
	})
	return bugs
}

func (f *field) bugTracker() string {
	if f.binding.ReviewRequest == nil || f.binding.ReviewRequest.Repository == nil {
		return ""
	}
	return f.binding.ReviewRequest.Repository.BugTracker
}

// renderBug links a bug id through the repository's bug tracker template.
// Templates without a substitution produce plain text; malformed ones are
// logged and also fall back to plain text.
func renderBug(tracker, bugID string) string {
	if tracker == "" {
		return markup.Escape(bugID)
	}

	url, err := formatBugURL(tracker, bugID)
	if err != nil {
		if !errors.Is(err, errNoSubstitution) {
			slog.Error("invalid bug tracker URL template", "template", tracker, "error", err)
		}
		return markup.Escape(bugID)
	}
	return link(url, bugID)
}

func DependsOnSpec() *Spec {
	return &Spec{
		ID:       FieldDependsOn,
		Label:    "Depends On",
		Kind:     KindModelList,
		NameAttr: "summary",
		access: accessor{
			get: func(t target) Value { return refsValue(t.details.DependsOn) },
			set: func(t target, v Value) {
				refs := make([]model.ReviewRequestRef, 0, len(v.Items))
				for _, item := range v.Items {
					id, _ := strconv.ParseInt(item.Key, 10, 64)
					displayID, _ := strconv.ParseInt(item.Label, 10, 64)
					refs = append(refs, model.ReviewRequestRef{
						ID:        id,
						DisplayID: displayID,
						LocalSite: t.rr.LocalSite,
						Summary:   item.Name,
					})
				}
				t.details.DependsOn = refs
			},
		},
		hooks: hooks{
			renderItem: func(_ *field, item Item) string { return link(item.URL, item.Label) },
			parse: func(ctx context.Context, f *field, r Resolver, labels []string) ([]Item, error) {
				ids := make([]int64, 0, len(labels))
				var unknown []string
				for _, label := range labels {
					id, err := strconv.ParseInt(strings.TrimPrefix(label, "#"), 10, 64)
					if err != nil {
						unknown = append(unknown, label)
						continue
					}
					ids = append(ids, id)
				}
				if len(unknown) > 0 {
					return nil, &UnknownItemsError{FieldID: f.spec.ID, Names: unknown}
				}

				refs, err := r.ResolveReviewRequests(ctx, ids, f.localSiteID())
				if err != nil {
					return nil, fmt.Errorf("resolving review requests: %w", err)
				}

				found := make(map[int64]struct{}, len(refs))
				for _, ref := range refs {
					found[ref.DisplayID] = struct{}{}
				}
				for _, id := range ids {
					if _, ok := found[id]; !ok {
						unknown = append(unknown, strconv.FormatInt(id, 10))
					}
				}
				if len(unknown) > 0 {
					return nil, &UnknownItemsError{FieldID: f.spec.ID, Names: unknown}
				}
				return refsValue(refs).Items, nil
			},
		},
	}
}

func refsValue(refs []model.ReviewRequestRef) Value {
	v := Value{Items: make([]Item, 0, len(refs))}
	for _, ref := range refs {
		v.Items = append(v.Items, Item{
			Key:   strconv.FormatInt(ref.ID, 10),
			Label: strconv.FormatInt(ref.DisplayID, 10),
			Name:  ref.Summary,
			URL:   ref.AbsoluteURL(),
		})
	}
	return v
}

// BlocksSpec lists the review requests that depend on this one. It is
// derived from other records' depends-on lists, so it is read-only.
func BlocksSpec() *Spec {
	return &Spec{
		ID:    FieldBlocks,
		Label: "Blocks",
		Kind:  KindText,
		Owner: OwnerReviewRequest,
		access: accessor{
			get: func(t target) Value { return refsValue(t.rr.Blocks) },
		},
		hooks: hooks{
			shouldRender: func(_ *field, v Value) bool { return len(v.Items) > 0 },
			renderValue: func(_ *field, v Value) string {
				parts := make([]string, 0, len(v.Items))
				for _, item := range v.Items {
					parts = append(parts, link(item.URL, item.Label))
				}
				return joinComma(parts)
			},
		},
	}
}

func ChangenumSpec() *Spec {
	return &Spec{
		ID:    FieldChangenum,
		Label: "Change Number",
		Kind:  KindText,
		Owner: OwnerReviewRequest,
		access: accessor{
			get: func(t target) Value {
				if t.rr.Changenum == 0 {
					return Value{}
				}
				return TextValue(strconv.FormatInt(t.rr.Changenum, 10))
			},
		},
		hooks: hooks{
			shouldRender: func(_ *field, v Value) bool { return v.Text != "" },
			renderValue: func(f *field, v Value) string {
				if f.binding.ReviewRequest != nil && f.binding.ReviewRequest.ChangesetPending {
					return markup.Escape(v.Text + " (pending)")
				}
				return markup.Escape(v.Text)
			},
		},
	}
}

// CommitIDSpec is the commit the review request was posted from. It is only
// shown when no change number is set.
func CommitIDSpec() *Spec {
	return &Spec{
		ID:            FieldCommitID,
		Label:         "Commit",
		Kind:          KindText,
		RecordChanges: true,
		access: accessor{
			get: func(t target) Value { return TextValue(t.details.CommitID) },
		},
		hooks: hooks{
			shouldRender: func(f *field, v Value) bool {
				return v.Text != "" && (f.binding.ReviewRequest == nil || f.binding.ReviewRequest.Changenum == 0)
			},
			renderValue: func(_ *field, v Value) string {
				return markup.Escape(abbreviateCommitID(v.Text))
			},
		},
	}
}

func TargetGroupsSpec() *Spec {
	return &Spec{
		ID:       FieldTargetGroups,
		Label:    "Groups",
		Kind:     KindModelList,
		NameAttr: "name",
		access: accessor{
			get: func(t target) Value { return groupsValue(t.details.TargetGroups) },
			set: func(t target, v Value) {
				groups := make([]model.Group, 0, len(v.Items))
				for _, item := range v.Items {
					id, _ := strconv.ParseInt(item.Key, 10, 64)
					groups = append(groups, model.Group{
						ID:          id,
						Name:        item.Label,
						LocalSiteID: t.rr.LocalSiteID,
						LocalSite:   t.rr.LocalSite,
					})
				}
				t.details.TargetGroups = groups
			},
		},
		hooks: hooks{
			renderItem: func(_ *field, item Item) string { return link(item.URL, item.Label) },
			parse: func(ctx context.Context, f *field, r Resolver, labels []string) ([]Item, error) {
				groups, err := r.ResolveGroups(ctx, labels, f.localSiteID())
				if err != nil {
					return nil, fmt.Errorf("resolving groups: %w", err)
				}

				found := make(map[string]struct{}, len(groups))
				for _, g := range groups {
					found[g.Name] = struct{}{}
				}
				if unknown := missingNames(labels, found); len(unknown) > 0 {
					return nil, &UnknownItemsError{FieldID: f.spec.ID, Names: unknown}
				}
				return groupsValue(groups).Items, nil
			},
		},
	}
}

func groupsValue(groups []model.Group) Value {
	v := Value{Items: make([]Item, 0, len(groups))}
	for _, g := range groups {
		v.Items = append(v.Items, Item{
			Key:   strconv.FormatInt(g.ID, 10),
			Label: g.Name,
			URL:   g.AbsoluteURL(),
		})
	}
	return v
}

func TargetPeopleSpec() *Spec {
	return &Spec{
		ID:       FieldTargetPeople,
		Label:    "People",
		Kind:     KindModelList,
		NameAttr: "username",
		access: accessor{
			get: func(t target) Value { return usersValue(t.details.TargetPeople) },
			set: func(t target, v Value) {
				users := make([]model.User, 0, len(v.Items))
				for _, item := range v.Items {
					id, _ := strconv.ParseInt(item.Key, 10, 64)
					users = append(users, model.User{
						ID:       id,
						Username: item.Label,
						IsActive: !item.Inactive,
					})
				}
				t.details.TargetPeople = users
			},
		},
		hooks: hooks{
			renderItem: func(_ *field, item Item) string {
				class := "user"
				if item.Inactive {
					class += " inactive"
				}
				return fmt.Sprintf(`<a href="%s" class="%s">%s</a>`,
					markup.Escape(item.URL), class, markup.Escape(item.Label))
			},
			parse: func(ctx context.Context, f *field, r Resolver, labels []string) ([]Item, error) {
				users, err := r.ResolveUsers(ctx, labels)
				if err != nil {
					return nil, fmt.Errorf("resolving users: %w", err)
				}

				found := make(map[string]struct{}, len(users))
				for _, u := range users {
					found[u.Username] = struct{}{}
				}
				if unknown := missingNames(labels, found); len(unknown) > 0 {
					return nil, &UnknownItemsError{FieldID: f.spec.ID, Names: unknown}
				}
				return usersValue(users).Items, nil
			},
		},
	}
}

func usersValue(users []model.User) Value {
	v := Value{Items: make([]Item, 0, len(users))}
	for _, u := range users {
		v.Items = append(v.Items, Item{
			Key:      strconv.FormatInt(u.ID, 10),
			Label:    u.Username,
			URL:      u.AbsoluteURL(),
			Inactive: !u.IsActive,
		})
	}
	return v
}

func missingNames(names []string, found map[string]struct{}) []string {
	var missing []string
	for _, name := range names {
		if _, ok := found[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (f *field) localSiteID() *int64 {
	if f.binding.ReviewRequest == nil {
		return nil
	}
	return f.binding.ReviewRequest.LocalSiteID
}
