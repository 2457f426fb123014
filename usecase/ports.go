package usecase

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
)

// Notifier delivers a short message to one account.
type Notifier interface {
	Notify(ctx context.Context, recipientID, message, link string) error
}

// Mirror copies the records carried by an event to an external read store.
type Mirror interface {
	Mirror(ctx context.Context, event domain.Event) error
}

// EventPublisher forwards events to a stream.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventSink receives events only after their transaction committed.
// Implementations must not report failures back to the caller.
type EventSink interface {
	Dispatch(ctx context.Context, events ...domain.Event)
}

// Emit hands events to sink. A nil sink drops them.
func Emit(ctx context.Context, sink EventSink, events ...domain.Event) {
	if sink == nil || len(events) == 0 {
		return
	}
	sink.Dispatch(ctx, events...)
}
