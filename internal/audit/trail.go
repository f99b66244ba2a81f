// Package audit keeps an append-only trail of registration and login
// attempts. Persistence and event publishing are independent sinks; either
// can be absent, and a sink failure never fails the attempt it describes.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Sink receives events for downstream consumers.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// Trail fans events out to a store and a sink, both optional.
type Trail struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

func NewTrail(store Store, sink Sink, logger *slog.Logger) *Trail {
	return &Trail{store: store, sink: sink, logger: logger}
}

// Emit records an event on every configured sink. Failures are logged and
// swallowed: the trail observes attempts, it must not influence them.
func (t *Trail) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if t.store != nil {
		if err := t.store.Append(ctx, event); err != nil {
			t.logger.ErrorContext(ctx, "audit append failed",
				"action", event.Action, "outcome", event.Outcome, "error", err)
		}
	}
	if t.sink != nil {
		t.sink.Publish(ctx, event)
	}
}
