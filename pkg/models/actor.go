package models

import (
	"context"

	"github.com/google/uuid"
)

// Actor identifies WHO is performing an operation. It is extracted from the
// bearer token by the auth middleware and carried through context so that
// services can attribute transitions, comments, and corrections.
type Actor struct {
	UserID uuid.UUID
	Role   ReviewRole
}

// actorKey is the context key for storing actor information.
type actorKey struct{}

// WithActor returns a new context with actor information attached.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// GetActor retrieves actor information from the context.
// Returns the actor and true if present, otherwise a zero value and false.
func GetActor(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
