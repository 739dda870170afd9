package accounts

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageIDs(pages []Page) []string {
	var ids []string
	for _, p := range pages {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestPages_BuildOmitsInvisibleForms(t *testing.T) {
	fx := newFixture()
	fx.auth.changePassword = false

	pages, err := NewPages(DefaultPageSpecs(), fx.deps()).Build(context.Background(), fx.request())
	require.NoError(t, err)
	assert.Equal(t, []string{"settings", "profile", "groups"}, pageIDs(pages))
}

func TestPages_SubmitDispatchesToTarget(t *testing.T) {
	fx := newFixture()
	p := NewPages(DefaultPageSpecs(), fx.deps())

	_, saved, err := p.Submit(context.Background(), fx.request(), url.Values{
		FormTargetField: {"settings"},
		"timezone":      {"UTC"},
		"open_an_issue": {"on"},
	})
	require.NoError(t, err)
	assert.True(t, saved)
	require.Len(t, fx.users.profiles, 1)
	assert.Empty(t, fx.users.updated, "only the targeted form saves")
}

func TestPages_SubmitInvalidFormIsNotSaved(t *testing.T) {
	fx := newFixture()
	p := NewPages(DefaultPageSpecs(), fx.deps())

	pages, saved, err := p.Submit(context.Background(), fx.request(), url.Values{
		FormTargetField: {"change_password"},
		"old_password":  {"old-secret"},
		"password1":     {"a"},
		"password2":     {"b"},
	})
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Zero(t, fx.auth.updatePasswordCalls)

	form := findForm(pages, "change_password")
	require.NotNil(t, form)
	assert.NotEmpty(t, form.Errors()["password2"])
}

func TestPages_SubmitRejectsUnknownAndReadOnlyTargets(t *testing.T) {
	fx := newFixture()
	p := NewPages(DefaultPageSpecs(), fx.deps())

	_, _, err := p.Submit(context.Background(), fx.request(), url.Values{FormTargetField: {"nope"}})
	assert.ErrorIs(t, err, ErrUnknownFormTarget)

	_, _, err = p.Submit(context.Background(), fx.request(), url.Values{FormTargetField: {"groups"}})
	assert.ErrorIs(t, err, ErrUnknownFormTarget)

	fx.auth.changePassword = false
	_, _, err = p.Submit(context.Background(), fx.request(), url.Values{FormTargetField: {"change_password"}})
	assert.ErrorIs(t, err, ErrUnknownFormTarget)
}
