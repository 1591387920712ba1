// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are typically set by middleware and consumed by services. Keeping
// this package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	user := requestcontext.Principal(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPrincipal(ctx, requestcontext.User{Name: "netrunnerX", Role: "admin"})
package requestcontext

import (
	"context"
	"time"
)

// User is the opaque principal resolved by the auth middleware. The service
// never authenticates beyond header resolution; it only attributes actions.
type User struct {
	Name string
	Role string
}

type (
	principalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Principal retrieves the authenticated user from the context. Returns the
// zero User if unset.
func Principal(ctx context.Context) User {
	if u, ok := ctx.Value(principalKey{}).(User); ok {
		return u
	}
	return User{}
}

// WithPrincipal injects an authenticated user into the context.
func WithPrincipal(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, principalKey{}, u)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests), so audit
// timestamps within a single request stay consistent.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full middleware chain and for workers that need a
// consistent batch time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
