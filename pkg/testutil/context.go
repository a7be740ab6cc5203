package testutil

import (
	"context"
	"net/http"

	"prs/pkg/requestcontext"
)

// WithCaller adds an actor id and capability set to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithCaller(req *http.Request, actorID string, caps ...string) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), actorID)
	ctx = requestcontext.WithCapabilities(ctx, requestcontext.NewCapabilitySet(caps...))
	return req.WithContext(ctx)
}

// CallerContext builds a service-level context for actorID holding caps.
func CallerContext(actorID string, caps ...string) context.Context {
	ctx := requestcontext.WithActorID(context.Background(), actorID)
	return requestcontext.WithCapabilities(ctx, requestcontext.NewCapabilitySet(caps...))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
