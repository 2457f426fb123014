package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/internal/metrics"
)

type EventHandler func(ctx context.Context, event domain.Event) error

type subscription struct {
	name    string
	handler EventHandler
}

// EventDispatcher fans committed events out to named handlers. Handler errors
// and panics are logged and counted; Dispatch never fails.
type EventDispatcher struct {
	byName map[domain.EventName][]subscription
	all    []subscription
	mu     sync.RWMutex
	logger *zap.Logger
}

func NewEventDispatcher(logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventDispatcher{
		byName: make(map[domain.EventName][]subscription),
		logger: logger,
	}
}

func (d *EventDispatcher) Subscribe(event domain.EventName, name string, handler EventHandler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byName[event] = append(d.byName[event], subscription{name: name, handler: handler})
}

func (d *EventDispatcher) SubscribeAll(name string, handler EventHandler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, subscription{name: name, handler: handler})
}

func (d *EventDispatcher) Dispatch(ctx context.Context, events ...domain.Event) {
	for _, event := range events {
		d.mu.RLock()
		subs := make([]subscription, 0, len(d.all)+len(d.byName[event.Name]))
		subs = append(subs, d.all...)
		subs = append(subs, d.byName[event.Name]...)
		d.mu.RUnlock()

		metrics.EventsDispatched.WithLabelValues(string(event.Name)).Inc()
		for _, sub := range subs {
			if err := d.invoke(ctx, sub, event); err != nil {
				metrics.SideEffectFailures.WithLabelValues(sub.name).Inc()
				d.logger.Warn("side effect failed",
					zap.String("handler", sub.name),
					zap.String("event", string(event.Name)),
					zap.String("aggregate_id", event.AggregateID),
					zap.Error(err))
			}
		}
	}
}

func (d *EventDispatcher) invoke(ctx context.Context, sub subscription, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", sub.name, r)
		}
	}()
	return sub.handler(ctx, event)
}

var _ EventSink = (*EventDispatcher)(nil)
