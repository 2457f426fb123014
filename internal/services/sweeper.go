package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpirySweeper cancels available tasks whose deadline has passed.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper runs the deadline sweep on a fixed cron schedule.
type Sweeper struct {
	tasks    ExpirySweeper
	interval time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewSweeper(tasks ExpirySweeper, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval < time.Second {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		tasks:    tasks,
		interval: interval,
		logger:   logger,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	_, _ = s.cron.AddFunc(fmt.Sprintf("@every %ds", int(interval.Seconds())), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		s.RunOnce(ctx)
	})
	return s
}

// RunOnce sweeps immediately and returns how many tasks were cancelled.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	swept, err := s.tasks.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("deadline sweep failed", zap.Int("swept", swept), zap.Error(err))
	}
	return swept
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("deadline sweeper started", zap.Duration("interval", s.interval))
}

func (s *Sweeper) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
