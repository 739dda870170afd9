package accounts

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

// ProfileForm edits the user's name, e-mail address and privacy flag. Name
// and e-mail fields are dropped when the auth backend manages them.
type ProfileForm struct {
	formState
	req  Request
	deps Deps
}

// NewProfileForm creates and loads the profile form.
func NewProfileForm(ctx context.Context, req Request, deps Deps) (*ProfileForm, error) {
	f := &ProfileForm{
		formState: newFormState("profile", "Profile", "Save Profile",
			Field{Name: "first_name", Label: "First name", Type: FieldText},
			Field{Name: "last_name", Label: "Last name", Type: FieldText},
			Field{Name: "email", Label: "E-mail address", Type: FieldEmail, Required: true},
			Field{Name: "profile_private", Label: "Keep profile information private", Type: FieldBool},
		),
		req:  req,
		deps: deps,
	}
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *ProfileForm) Load(context.Context) error {
	f.setInitial("first_name", f.req.User.FirstName)
	f.setInitial("last_name", f.req.User.LastName)
	f.setInitial("email", f.req.User.Email)
	f.setBoolInitial("profile_private", f.req.Profile.IsPrivate)

	if !f.deps.Auth.SupportsChangeName() {
		f.removeField("first_name")
		f.removeField("last_name")
	}
	if !f.deps.Auth.SupportsChangeEmail() {
		f.removeField("email")
	}
	return nil
}

func (f *ProfileForm) Save(ctx context.Context) error {
	user := f.req.User

	if f.deps.Auth.SupportsChangeName() && f.hasField("first_name") {
		user.FirstName = f.value("first_name")
		user.LastName = f.value("last_name")

		if err := f.deps.Auth.UpdateName(ctx, user); err != nil {
			return fmt.Errorf("updating name for %s: %w", user.Username, err)
		}
	}

	if f.deps.Auth.SupportsChangeEmail() && f.hasField("email") {
		if email := f.value("email"); email != user.Email {
			user.Email = email

			if err := f.deps.Auth.UpdateEmail(ctx, user); err != nil {
				return fmt.Errorf("updating email for %s: %w", user.Username, err)
			}
		}
	}

	if err := f.deps.Users.Update(ctx, *user); err != nil {
		return fmt.Errorf("saving user %s: %w", user.Username, err)
	}

	f.req.Profile.IsPrivate = f.boolValue("profile_private")
	if err := f.deps.Users.SaveProfile(ctx, *f.req.Profile); err != nil {
		return fmt.Errorf("saving profile for %s: %w", user.Username, err)
	}

	if f.deps.UserSaved != nil {
		f.deps.UserSaved.UserSaved(ctx, *user)
	}

	f.req.Messages.AddMessage(model.MessageInfo, "Your profile has been saved.")
	return nil
}
