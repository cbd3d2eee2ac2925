package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxActorRole contextKey = "actor_role"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

// Actor pulls caller identity from the gateway-set headers into the request
// context. Authentication happens upstream; the engine only records who
// asked, for the transaction log and event envelopes.
func Actor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if actorID := strings.TrimSpace(r.Header.Get(actorIDHeader)); actorID != "" {
				ctx = WithActorID(ctx, actorID)
			}
			if role := strings.TrimSpace(r.Header.Get(actorRoleHeader)); role != "" {
				ctx = WithActorRole(ctx, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ActorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorID).(string); ok {
		return v
	}
	return ""
}

func ActorRoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorRole).(string); ok {
		return v
	}
	return ""
}

// WithActorID injects the actor identifier into the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActorID, actorID)
}

// WithActorRole injects the actor role into the context.
func WithActorRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActorRole, role)
}
