package accounts

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// SettingsForm edits the user's general preferences.
type SettingsForm struct {
	formState
	req  Request
	deps Deps
}

// NewSettingsForm creates and loads the settings form.
func NewSettingsForm(ctx context.Context, req Request, deps Deps) (*SettingsForm, error) {
	f := &SettingsForm{
		formState: newFormState("settings", "Settings", "Save Settings",
			Field{Name: "timezone", Label: "Time zone", Type: FieldTimezone, Required: true,
				HelpText: "The time zone used for this account."},
			Field{Name: "syntax_highlighting", Label: "Enable syntax highlighting in the diff viewer", Type: FieldBool},
			Field{Name: "open_an_issue", Label: "Always open an issue when comment box opens", Type: FieldBool},
		),
		req:  req,
		deps: deps,
	}
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *SettingsForm) Load(ctx context.Context) error {
	cfg, err := driven.CurrentSiteConfig(ctx, f.deps.SiteConfig)
	if err != nil {
		return err
	}

	if !cfg.GetBool(model.SettingSyntaxHighlighting) {
		f.removeField("syntax_highlighting")
	}

	f.setInitial("timezone", f.req.Profile.Timezone)
	f.setBoolInitial("syntax_highlighting", f.req.Profile.SyntaxHighlighting)
	f.setBoolInitial("open_an_issue", f.req.Profile.OpenAnIssue)
	return nil
}

func (f *SettingsForm) Save(ctx context.Context) error {
	p := f.req.Profile

	if f.hasField("timezone") {
		p.Timezone = f.value("timezone")
	}
	if f.hasField("syntax_highlighting") {
		p.SyntaxHighlighting = f.boolValue("syntax_highlighting")
	}
	if f.hasField("open_an_issue") {
		p.OpenAnIssue = f.boolValue("open_an_issue")
	}

	if err := f.deps.Users.SaveProfile(ctx, *p); err != nil {
		return fmt.Errorf("saving profile for %s: %w", f.req.User.Username, err)
	}

	f.req.Messages.AddMessage(model.MessageInfo, "Your settings have been saved.")
	return nil
}
