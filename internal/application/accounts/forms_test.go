package accounts

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

func fieldNames(form Form) []string {
	var names []string
	for _, f := range form.Fields() {
		names = append(names, f.Name)
	}
	return names
}

func TestChangePasswordForm_HiddenWhenBackendCannotChangePassword(t *testing.T) {
	fx := newFixture()
	fx.auth.changePassword = false

	form, err := NewChangePasswordForm(context.Background(), fx.request(), fx.deps())
	require.NoError(t, err)
	assert.False(t, form.IsVisible())

	fx.auth.changePassword = true
	assert.True(t, form.IsVisible())
}

func TestChangePasswordForm_MismatchFailsWithoutUpdate(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewChangePasswordForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	ok := form.Validate(ctx, url.Values{
		"old_password": {"old-secret"},
		"password1":    {"abc123"},
		"password2":    {"xyz999"},
	})
	assert.False(t, ok)
	assert.Equal(t, []string{"Passwords do not match"}, form.Errors()["password2"])
	assert.Zero(t, fx.auth.updatePasswordCalls)
	assert.Equal(t, "old-secret", fx.auth.password)
	assert.Empty(t, fx.users.updated)
}

func TestChangePasswordForm_WrongOldPassword(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewChangePasswordForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	ok := form.Validate(ctx, url.Values{
		"old_password": {"wrong"},
		"password1":    {"abc123"},
		"password2":    {"abc123"},
	})
	assert.False(t, ok)
	assert.Equal(t, []string{"This password is incorrect"}, form.Errors()["old_password"])
	assert.Zero(t, fx.auth.updatePasswordCalls)
}

func TestChangePasswordForm_ComparesBytes(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewChangePasswordForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	ok := form.Validate(ctx, url.Values{
		"old_password": {"old-secret"},
		"password1":    {"abc123"},
		"password2":    {"abc123 "},
	})
	assert.False(t, ok, "trailing space makes the passwords differ")
}

func TestChangePasswordForm_Save(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewChangePasswordForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	require.True(t, form.Validate(ctx, url.Values{
		"old_password": {"old-secret"},
		"password1":    {"new-secret"},
		"password2":    {"new-secret"},
	}))
	require.NoError(t, form.Save(ctx))

	assert.Equal(t, 1, fx.auth.updatePasswordCalls)
	assert.Equal(t, "new-secret", fx.auth.password)
	assert.Len(t, fx.users.updated, 1)
	assert.Equal(t, []recordedMessage{{level: model.MessageInfo, text: "Your password has been changed."}}, fx.messages.messages)
}

func TestSettingsForm_SyntaxHighlightingRemovedWhenDisabled(t *testing.T) {
	fx := newFixture()
	cfg := model.NewSiteConfig()
	cfg.Set(model.SettingSyntaxHighlighting, false)
	fx.config.cfg = &cfg
	ctx := context.Background()

	form, err := NewSettingsForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)
	assert.Equal(t, []string{"timezone", "open_an_issue"}, fieldNames(form))
	assert.True(t, form.IsVisible())

	fx.profile.SyntaxHighlighting = true
	require.True(t, form.Validate(ctx, url.Values{
		"timezone":            {"Europe/Berlin"},
		"syntax_highlighting": {""},
	}))
	require.NoError(t, form.Save(ctx))

	require.Len(t, fx.users.profiles, 1)
	saved := fx.users.profiles[0]
	assert.Equal(t, "Europe/Berlin", saved.Timezone)
	assert.True(t, saved.SyntaxHighlighting, "removed field is left untouched")
	assert.False(t, saved.OpenAnIssue)
	assert.Equal(t, "Your settings have been saved.", fx.messages.messages[0].text)
}

func TestSettingsForm_DefaultsWithoutSiteConfig(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewSettingsForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)
	assert.Equal(t, []string{"timezone", "syntax_highlighting", "open_an_issue"}, fieldNames(form))

	fields := form.Fields()
	assert.Equal(t, "UTC", fields[0].Initial)
	assert.True(t, fields[1].Checked())
}

func TestForms_SaveLabels(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	settings, err := NewSettingsForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)
	assert.Equal(t, "Save Settings", settings.SaveLabel())

	password, err := NewChangePasswordForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)
	assert.Equal(t, "Change Password", password.SaveLabel())

	profile, err := NewProfileForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)
	assert.Equal(t, "Save Profile", profile.SaveLabel())
}

func TestSettingsForm_InvalidTimezone(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewSettingsForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	assert.False(t, form.Validate(ctx, url.Values{"timezone": {"Mars/Olympus"}}))
	assert.NotEmpty(t, form.Errors()["timezone"])

	assert.False(t, form.Validate(ctx, url.Values{}))
	assert.Equal(t, []string{errRequired}, form.Errors()["timezone"])
}

func TestProfileForm_RemovesManagedFields(t *testing.T) {
	fx := newFixture()
	fx.auth.changeName = false
	fx.auth.changeEmail = false

	form, err := NewProfileForm(context.Background(), fx.request(), fx.deps())
	require.NoError(t, err)
	assert.Equal(t, []string{"profile_private"}, fieldNames(form))
}

func TestProfileForm_SaveAppliesSupportedFields(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewProfileForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	require.True(t, form.Validate(ctx, url.Values{
		"first_name":      {" Alicia "},
		"last_name":       {"Jones"},
		"email":           {"alicia@example.com"},
		"profile_private": {"on"},
	}))
	require.NoError(t, form.Save(ctx))

	assert.Equal(t, "Alicia", fx.user.FirstName)
	assert.Equal(t, "Jones", fx.user.LastName)
	assert.Equal(t, "alicia@example.com", fx.user.Email)
	assert.Equal(t, 1, fx.auth.updateNameCalls)
	assert.Equal(t, 1, fx.auth.updateEmailCalls)
	assert.True(t, fx.profile.IsPrivate)
	require.Len(t, fx.saved.users, 1)
	assert.Equal(t, "alice", fx.saved.users[0].Username)
	assert.Equal(t, "Your profile has been saved.", fx.messages.messages[0].text)
}

func TestProfileForm_UnchangedEmailSkipsBackend(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewProfileForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	require.True(t, form.Validate(ctx, url.Values{"email": {"alice@example.com"}}))
	require.NoError(t, form.Save(ctx))
	assert.Zero(t, fx.auth.updateEmailCalls)
}

func TestProfileForm_InvalidEmail(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	form, err := NewProfileForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)

	assert.False(t, form.Validate(ctx, url.Values{"email": {"not an address"}}))
	assert.NotEmpty(t, form.Errors()["email"])
	assert.Equal(t, "Alice", fx.user.FirstName)
}

func TestGroupsForm_JSViewData(t *testing.T) {
	fx := newFixture()
	fx.groups.groups[0] = []model.Group{
		{ID: 1, Name: "devs", DisplayName: "Developers"},
		{ID: 2, Name: "qa", DisplayName: "QA"},
	}
	fx.groups.groups[7] = []model.Group{{ID: 3, Name: "ops", DisplayName: "Ops", LocalSite: "acme"}}
	fx.groups.sites = []model.LocalSite{{ID: 7, Name: "acme"}}
	fx.groups.joined = []int64{2, 3}
	ctx := context.Background()

	form, err := NewGroupsForm(ctx, fx.request(), fx.deps())
	require.NoError(t, err)
	assert.Empty(t, form.SaveLabel())
	assert.Empty(t, form.Fields())

	data, err := form.JSViewData(ctx)
	require.NoError(t, err)

	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"groups": {
		"": [
			{"name": "devs", "reviewGroupID": 1, "displayName": "Developers", "localSiteName": null, "joined": false, "url": "/groups/devs/"},
			{"name": "qa", "reviewGroupID": 2, "displayName": "QA", "localSiteName": null, "joined": true, "url": "/groups/qa/"}
		],
		"acme": [
			{"name": "ops", "reviewGroupID": 3, "displayName": "Ops", "localSiteName": "acme", "joined": true, "url": "/s/acme/groups/ops/"}
		]
	}}`, string(encoded))

	// Global site first, then local sites.
	assert.Less(t, strings.Index(string(encoded), `"":`), strings.Index(string(encoded), `"acme":`))
}

func TestGroupsForm_SavePanics(t *testing.T) {
	fx := newFixture()

	form, err := NewGroupsForm(context.Background(), fx.request(), fx.deps())
	require.NoError(t, err)

	assert.Panics(t, func() { _ = form.Save(context.Background()) })
}
