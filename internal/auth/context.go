package auth

import (
	"context"

	"github.com/Irene-03/todo-list-app/internal/model"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// ContextWithUser returns a copy of ctx carrying the authenticated user
func ContextWithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(model.User)
	return user, ok
}
