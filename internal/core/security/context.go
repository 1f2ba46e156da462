// Package security provides security-related utilities including actor
// propagation for audit attribution.
package security

import "context"

type actorIDKey struct{}

// WithActorID adds the authenticated operator's ID to context.
// Used by middleware to propagate the actor through the request chain.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actorID)
}

// GetActorID retrieves the operator's ID from context.
// Returns empty string if not found.
//
// Usage in the registry service:
//
//	if actor := security.GetActorID(ctx); actor != "" {
//	    org.UpdatedBy = actor
//	}
func GetActorID(ctx context.Context) string {
	if uid, ok := ctx.Value(actorIDKey{}).(string); ok {
		return uid
	}
	return ""
}
