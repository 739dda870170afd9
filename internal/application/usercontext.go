package application

import (
	"context"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

type userContextKey struct{}

// WithUser returns a context carrying the logged-in user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the logged-in user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(userContextKey{}).(*model.User)
	return u
}
