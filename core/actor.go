package core

import "context"

type actorKey struct{}

// WithActor returns a copy of ctx carrying the ID of the user performing the request.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorID is the acting user's ID, or "" for anonymous & system writes.
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
