package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestManager_ShutdownRunsHooksInReverse(t *testing.T) {
	m := New(time.Second, zaptest.NewLogger(t))

	var order []string
	m.Register("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	m.RegisterCloser("outbox", closerFunc(func() error {
		order = append(order, "outbox")
		return nil
	}))
	m.RegisterStop("relay", func() { order = append(order, "relay") })

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	want := []string{"relay", "outbox", "store"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	if len(order) != len(want) {
		t.Fatalf("hooks ran again: %v", order)
	}
}

func TestManager_ShutdownJoinsErrors(t *testing.T) {
	m := New(time.Second, zaptest.NewLogger(t))
	errStore := errors.New("store busy")
	errRedis := errors.New("redis gone")

	var ranLast bool
	m.Register("last", func(context.Context) error {
		ranLast = true
		return nil
	})
	m.Register("store", func(context.Context) error { return errStore })
	m.RegisterCloser("redis", closerFunc(func() error { return errRedis }))

	err := m.Shutdown(context.Background())
	if !errors.Is(err, errStore) || !errors.Is(err, errRedis) {
		t.Fatalf("err = %v, want both hook errors", err)
	}
	if !ranLast {
		t.Fatal("a failing hook stopped the remaining hooks")
	}
}

func TestManager_ShutdownHonoursTimeout(t *testing.T) {
	m := New(10*time.Millisecond, zaptest.NewLogger(t))
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := m.Shutdown(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
