package services

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/internal/infrastructure/outbox"
	"github.com/fastygo/taskmarket/usecase"
)

// Subscriber is the part of the event dispatcher the relay registers with.
type Subscriber interface {
	SubscribeAll(name string, handler usecase.EventHandler)
}

// RegisterSideEffects routes every committed event through the relay: its
// notification to the sink, its record snapshots to the mirror, the whole event
// to the stream.
func RegisterSideEffects(events Subscriber, relay *Relay) {
	events.SubscribeAll("notification", func(ctx context.Context, e domain.Event) error {
		if !e.HasNotification() {
			return nil
		}
		return relay.Deliver(ctx, outbox.TargetNotification, e)
	})
	events.SubscribeAll("mirror", func(ctx context.Context, e domain.Event) error {
		if !e.HasRecords() {
			return nil
		}
		return relay.Deliver(ctx, outbox.TargetMirror, e)
	})
	events.SubscribeAll("stream", func(ctx context.Context, e domain.Event) error {
		return relay.Deliver(ctx, outbox.TargetStream, e)
	})
}
