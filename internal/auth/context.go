package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrNoActor is returned when no authenticated actor is attached.
var ErrNoActor = errors.New("no acting user in context")

type contextKey string

const actorKey contextKey = "actor"

// ContextWithActor returns a new context that carries the acting user.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, strings.TrimSpace(actor))
}

// ActorFromContext retrieves the acting user from the context, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	actor, ok := ctx.Value(actorKey).(string)
	if !ok || actor == "" {
		return "", false
	}
	return actor, true
}

// RequireActor is ActorFromContext returning ErrNoActor when absent.
func RequireActor(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "", ErrNoActor
	}
	return actor, nil
}
