// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// SystemActor is recorded for changes nobody asked for explicitly, such as
// scheduler generation.
const SystemActor = "system"

type actorKey struct{}

// WithActor returns a context carrying the user on whose behalf work runs.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the explicit actor if set, else the one carried by ctx,
// else SystemActor.
func Actor(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return SystemActor
}
