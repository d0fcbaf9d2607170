// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them; keeping the
// package free of net/http lets services avoid pulling transport code in.
//
// Usage in services (read values):
//
//	actor := requestcontext.ActorID(ctx)
//	scopes := requestcontext.Scopes(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActor(ctx, userID, []string{"record.declare"})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"slices"
	"time"

	id "civreg/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	actorIDKey     struct{}
	scopesKey      struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// ActorID retrieves the authenticated actor from the context.
// Returns the zero value (nil UUID) if not set.
func ActorID(ctx context.Context) id.UserID {
	if actor, ok := ctx.Value(actorIDKey{}).(id.UserID); ok {
		return actor
	}
	return id.UserID{}
}

// Scopes retrieves the caller's granted scopes from the context.
func Scopes(ctx context.Context) []string {
	if scopes, ok := ctx.Value(scopesKey{}).([]string); ok {
		return scopes
	}
	return nil
}

// HasScope reports whether the caller holds the given scope.
func HasScope(ctx context.Context, scope string) bool {
	return slices.Contains(Scopes(ctx), scope)
}

// WithActor injects the authenticated actor and their scopes into the context.
func WithActor(ctx context.Context, actor id.UserID, scopes []string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey{}, actor)
	return context.WithValue(ctx, scopesKey{}, scopes)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the parsed User-Agent summary from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that skip the HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, tests, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context so every operation within
// one request observes the same "now".
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
