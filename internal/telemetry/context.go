package telemetry

import (
	"context"

	"github.com/google/uuid"
)

type turnKey struct{}

// WithTurnID attaches id to ctx. A nil ctx is treated as Background.
func WithTurnID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnKey{}, id)
}

// TurnIDFromContext reports the turn id on ctx; empty ids count as absent.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, _ := ctx.Value(turnKey{}).(string)
	return id, id != ""
}

// EnsureTurnID keeps an existing turn id or mints "turn-<uuid>".
func EnsureTurnID(ctx context.Context) (context.Context, string) {
	if id, ok := TurnIDFromContext(ctx); ok {
		return ctx, id
	}
	id := "turn-" + uuid.NewString()
	return WithTurnID(ctx, id), id
}
