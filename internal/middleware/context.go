package middleware

import "context"

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const actorContextKey = contextKey("actor")

// Actor is the authenticated identity of the current request, derived
// from the session. The zero value is the unauthenticated actor.
type Actor struct {
	UserID          string
	IsAuthenticated bool
	IsAdmin         bool
}

// GetActor retrieves the current actor from the request context.
func GetActor(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorContextKey).(Actor); ok {
		return actor
	}
	return Actor{}
}

// SetActor adds the actor to the request context.
func SetActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}
