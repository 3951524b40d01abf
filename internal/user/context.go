package user

import "context"

type ctxKey string

const actorKey ctxKey = "actor"

// ContextWithActor stores the authenticated account in the request context.
func ContextWithActor(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, actorKey, u)
}

// ActorFromContext returns the authenticated account, if any.
func ActorFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(actorKey).(*User)
	return u, ok && u != nil
}
