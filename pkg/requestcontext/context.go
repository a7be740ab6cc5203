// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets the rationing services depend on it directly.
//
// Usage in services (read values):
//
//	caps := requestcontext.Capabilities(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithCapabilities(ctx, requestcontext.NewCapabilitySet("process_purchase"))
package requestcontext

import (
	"context"
	"slices"
	"time"
)

type (
	actorIDKey      struct{}
	capabilitiesKey struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

var (
	ContextKeyActorID      = actorIDKey{}
	ContextKeyCapabilities = capabilitiesKey{}
	ContextKeyRequestID    = requestIDKey{}
	ContextKeyRequestTime  = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Caller identity
// -----------------------------------------------------------------------------

// CapabilitySet is the closed set of capabilities granted to a verified caller.
// It is built once at the boundary and never mutated afterwards.
type CapabilitySet struct {
	caps []string
}

// NewCapabilitySet builds a set from capability names, dropping duplicates.
func NewCapabilitySet(caps ...string) CapabilitySet {
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return CapabilitySet{caps: out}
}

// Has reports whether capability is granted.
func (s CapabilitySet) Has(capability string) bool {
	_, found := slices.BinarySearch(s.caps, capability)
	return found
}

// List returns a copy of the granted capabilities.
func (s CapabilitySet) List() []string {
	return slices.Clone(s.caps)
}

// Capabilities retrieves the caller's capability set. Empty if not set.
func Capabilities(ctx context.Context) CapabilitySet {
	if caps, ok := ctx.Value(ContextKeyCapabilities).(CapabilitySet); ok {
		return caps
	}
	return CapabilitySet{}
}

// WithCapabilities injects a capability set into the context.
func WithCapabilities(ctx context.Context, caps CapabilitySet) context.Context {
	return context.WithValue(ctx, ContextKeyCapabilities, caps)
}

// ActorID retrieves the authenticated caller (merchant operator, official) from the context.
func ActorID(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActorID).(string); ok {
		return actor
	}
	return ""
}

// WithActorID injects the authenticated caller id into the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for workers and tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
