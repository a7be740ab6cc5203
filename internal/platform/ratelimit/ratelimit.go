// Package ratelimit throttles callers with a sliding window so a misbehaving
// terminal cannot flood the purchase path.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"prs/pkg/platform/circuit"
)

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store counts requests per key over a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Limiter checks a primary store and fails over to an in-process store when the
// primary keeps erroring.
type Limiter struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithFallback(store Store) Option {
	return func(l *Limiter) {
		l.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		if b != nil {
			l.breaker = b
		}
	}
}

func New(primary Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if primary == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("rate limit requires a positive limit and window")
	}
	l := &Limiter{
		primary: primary,
		limit:   limit,
		window:  window,
		breaker: circuit.New("ratelimit"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback == nil {
		l.fallback = NewMemory()
	}
	return l, nil
}

// Allow consumes one request from key's window. Degraded is true when the
// answer came from the fallback store.
func (l *Limiter) Allow(ctx context.Context, key string) (res *Result, degraded bool, err error) {
	if !l.breaker.IsOpen() {
		res, err = l.primary.Allow(ctx, key, l.limit, l.window)
		if err == nil {
			l.breaker.RecordSuccess()
			return res, false, nil
		}
		l.logger.WarnContext(ctx, "rate limit store failed", "error", err)
		if _, change := l.breaker.RecordFailure(); change.Opened {
			l.logger.ErrorContext(ctx, "rate limit circuit opened, using in-process fallback")
		}
		res, err = l.fallback.Allow(ctx, key, l.limit, l.window)
		return res, true, err
	}

	// Probe the primary so the circuit can close; its answer is discarded
	// until enough probes succeed.
	if _, probeErr := l.primary.Allow(ctx, key, l.limit, l.window); probeErr != nil {
		l.breaker.RecordFailure()
	} else if usePrimary, change := l.breaker.RecordSuccess(); usePrimary {
		if change.Closed {
			l.logger.InfoContext(ctx, "rate limit circuit closed")
		}
	}
	res, err = l.fallback.Allow(ctx, key, l.limit, l.window)
	return res, true, err
}
