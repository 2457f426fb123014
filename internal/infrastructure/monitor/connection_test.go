package monitor

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

type fakePinger struct{ err error }

func (p *fakePinger) Ping(context.Context) error { return p.err }

type fakeBacklog struct{ n int }

func (b fakeBacklog) Len() (int, error) { return b.n, nil }

func TestMonitor_Refresh(t *testing.T) {
	store := &fakePinger{}
	m := New(store, nil, fakeBacklog{n: 3}, 0, zaptest.NewLogger(t))

	m.Refresh()
	status := m.GetStatus()
	if !status.Store || !status.Redis || !status.Outbox || status.OutboxSize != 3 {
		t.Errorf("status = %+v", status)
	}
	if !m.IsOnline() {
		t.Error("IsOnline() = false with a healthy store")
	}

	store.err = errors.New("connection refused")
	m.Refresh()
	if m.IsOnline() {
		t.Error("IsOnline() = true with a failing store")
	}
	m.Stop()
	m.Stop()
}
