// Package publisher routes audit events to a store.
//
// Compliance and security events are written synchronously and the caller sees
// the error. Operations events go through an optional buffered channel drained
// by worker.Worker and are dropped when the buffer is full.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "prs/pkg/platform/audit"
	"prs/pkg/requestcontext"
)

type Publisher struct {
	store  audit.Store
	async  chan<- audit.Event
	logger *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsync sends operations events to ch instead of the store.
func WithAsync(ch chan<- audit.Event) Option {
	return func(p *Publisher) {
		p.async = ch
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records event. Category and timestamp are derived when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.ActorID(ctx)
	}

	if event.Category == audit.CategoryOperations && p.async != nil {
		select {
		case p.async <- event:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit buffer full, dropping operations event", "action", event.Action)
			}
		}
		return nil
	}

	if err := p.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event %s: %w", event.Action, err)
	}
	return nil
}
