package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/fastygo/taskmarket/domain"
)

func TestEventDispatcher_RoutesByName(t *testing.T) {
	d := NewEventDispatcher(zaptest.NewLogger(t))
	var taken, all []domain.EventName
	d.Subscribe(domain.EventTaskTaken, "taken", func(_ context.Context, e domain.Event) error {
		taken = append(taken, e.Name)
		return nil
	})
	d.SubscribeAll("all", func(_ context.Context, e domain.Event) error {
		all = append(all, e.Name)
		return nil
	})

	d.Dispatch(context.Background(),
		domain.NewEvent(domain.EventTaskCreated, "t1", "a"),
		domain.NewEvent(domain.EventTaskTaken, "t1", "b"),
	)

	if len(taken) != 1 || taken[0] != domain.EventTaskTaken {
		t.Errorf("taken handler saw %v", taken)
	}
	if len(all) != 2 {
		t.Errorf("catch-all handler saw %v, want both events", all)
	}
}

func TestEventDispatcher_IsolatesFailures(t *testing.T) {
	d := NewEventDispatcher(zaptest.NewLogger(t))
	var reached bool
	d.SubscribeAll("broken", func(context.Context, domain.Event) error {
		return errors.New("boom")
	})
	d.SubscribeAll("panics", func(context.Context, domain.Event) error {
		panic("unexpected")
	})
	d.SubscribeAll("healthy", func(context.Context, domain.Event) error {
		reached = true
		return nil
	})

	d.Dispatch(context.Background(), domain.NewEvent(domain.EventTaskCreated, "t1", "a"))

	if !reached {
		t.Error("handler after failing ones was not called")
	}
}

func TestEmit_NilSink(t *testing.T) {
	Emit(context.Background(), nil, domain.NewEvent(domain.EventTaskCreated, "t1", "a"))
}
