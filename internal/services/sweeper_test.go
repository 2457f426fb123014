package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context, time.Time) (int, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return 2, nil
}

func TestSweeper_RunOnce(t *testing.T) {
	tasks := &countingSweeper{}
	s := NewSweeper(tasks, time.Minute, zaptest.NewLogger(t))

	if got := s.RunOnce(context.Background()); got != 2 {
		t.Fatalf("swept = %d, want 2", got)
	}

	tasks.err = errors.New("store offline")
	if got := s.RunOnce(context.Background()); got != 0 {
		t.Fatalf("swept = %d, want 0", got)
	}
	if got := tasks.calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestSweeper_RunsOnSchedule(t *testing.T) {
	tasks := &countingSweeper{}
	s := NewSweeper(tasks, time.Second, zaptest.NewLogger(t))
	s.Start()
	defer s.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for tasks.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweep never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
