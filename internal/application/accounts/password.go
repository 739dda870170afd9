package accounts

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// ChangePasswordForm changes the user's password through the auth backend.
type ChangePasswordForm struct {
	formState
	req  Request
	deps Deps
}

// NewChangePasswordForm creates and loads the password form.
func NewChangePasswordForm(ctx context.Context, req Request, deps Deps) (*ChangePasswordForm, error) {
	f := &ChangePasswordForm{
		formState: newFormState("change_password", "Change Password", "Change Password",
			Field{Name: "old_password", Label: "Current password", Type: FieldPassword, Required: true},
			Field{Name: "password1", Label: "New password", Type: FieldPassword, Required: true},
			Field{Name: "password2", Label: "New password (confirm)", Type: FieldPassword, Required: true},
		),
		req:  req,
		deps: deps,
	}
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *ChangePasswordForm) IsVisible() bool {
	return f.deps.Auth.SupportsChangePassword()
}

func (f *ChangePasswordForm) Validate(ctx context.Context, values url.Values) bool {
	if !f.bind(values) {
		return false
	}

	ok, err := f.deps.Auth.Authenticate(ctx, f.req.User.Username, f.value("old_password"))
	if err != nil {
		f.deps.Logger.Error("authenticating old password",
			"user", f.req.User.Username, "backend", f.deps.Auth.ID(), "error", err)
		ok = false
	}
	if !ok {
		f.addError("old_password", "This password is incorrect")
	}

	if f.value("password1") != f.value("password2") {
		f.addError("password2", "Passwords do not match")
	}

	return len(f.errors) == 0
}

func (f *ChangePasswordForm) Save(ctx context.Context) error {
	if err := f.deps.Auth.UpdatePassword(ctx, f.req.User, f.value("password1")); err != nil {
		return fmt.Errorf("updating password for %s: %w", f.req.User.Username, err)
	}

	if err := f.deps.Users.Update(ctx, *f.req.User); err != nil {
		return fmt.Errorf("saving user %s: %w", f.req.User.Username, err)
	}

	f.req.Messages.AddMessage(model.MessageInfo, "Your password has been changed.")
	return nil
}
