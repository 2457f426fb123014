package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/internal/infrastructure/outbox"
	"github.com/fastygo/taskmarket/internal/metrics"
	"github.com/fastygo/taskmarket/usecase"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// Targets are the external systems committed events fan out to. Nil targets are skipped.
type Targets struct {
	Notifier  usecase.Notifier
	Mirror    usecase.Mirror
	Publisher usecase.EventPublisher
}

// RelayConfig controls how often the outbox is drained and how long deliveries live.
type RelayConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Retention   time.Duration
}

var errTargetUnavailable = errors.New("delivery target not configured")

// Relay delivers side effects of committed events. A delivery that fails is kept
// in the bolt outbox and retried on a cron schedule while dependencies are online.
type Relay struct {
	store   *outbox.Store
	health  ConnectionHealth
	targets Targets
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     RelayConfig
}

func NewRelay(store *outbox.Store, health ConnectionHealth, targets Targets, logger *zap.Logger, cfg RelayConfig) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Relay{
		store:   store,
		health:  health,
		targets: targets,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := r.Drain(ctx); err != nil {
			r.logger.Error("outbox drain failed", zap.Error(err))
		}
	})
	_, _ = r.cron.AddFunc("@hourly", func() {
		purged, err := r.store.Purge(time.Now().Add(-r.cfg.Retention))
		if err != nil {
			r.logger.Error("outbox purge failed", zap.Error(err))
			return
		}
		if purged > 0 {
			r.logger.Warn("expired outbox deliveries dropped", zap.Int("count", purged))
		}
		r.observeDepth()
	})

	return r
}

func (r *Relay) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("outbox relay started", zap.Duration("interval", r.cfg.Interval))
}

func (r *Relay) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("outbox relay stopped")
}

// Deliver sends event to target now, or keeps it in the outbox when that fails
// or the dependencies are offline. The error reports only a failure to persist.
func (r *Relay) Deliver(ctx context.Context, target outbox.Target, event domain.Event) error {
	if !r.configured(target) {
		return nil
	}
	if r.health == nil || r.health.IsOnline() {
		if r.behindQueue(target, event.AggregateID) {
			return r.enqueue(target, event)
		}
		err := r.send(ctx, target, event)
		if err == nil {
			metrics.OutboxDelivered.WithLabelValues(string(target), "direct").Inc()
			return nil
		}
		r.logger.Warn("direct delivery failed, queueing",
			zap.String("target", string(target)),
			zap.String("event", string(event.Name)),
			zap.Error(err))
	}

	return r.enqueue(target, event)
}

// behindQueue reports whether an earlier delivery for the aggregate is still
// queued, in which case sending now would overtake it.
func (r *Relay) behindQueue(target outbox.Target, aggregate string) bool {
	if r.store == nil || !target.Ordered() {
		return false
	}
	pending, err := r.store.HasPending(target, aggregate)
	if err != nil {
		r.logger.Warn("outbox lookup failed, queueing", zap.String("target", string(target)), zap.Error(err))
		return true
	}
	return pending
}

func (r *Relay) enqueue(target outbox.Target, event domain.Event) error {
	if r.store == nil {
		metrics.OutboxDelivered.WithLabelValues(string(target), "dropped").Inc()
		return fmt.Errorf("no outbox for %s delivery", target)
	}
	d, err := outbox.NewDelivery(target, event)
	if err != nil {
		return err
	}
	if err := r.store.Put(d); err != nil {
		return fmt.Errorf("queue %s delivery: %w", target, err)
	}
	metrics.OutboxDelivered.WithLabelValues(string(target), "queued").Inc()
	r.observeDepth()
	return nil
}

// Drain retries one batch of queued deliveries.
func (r *Relay) Drain(ctx context.Context) error {
	if r == nil || r.store == nil {
		return nil
	}
	if r.health != nil && !r.health.IsOnline() {
		r.logger.Debug("skipping outbox drain (offline)")
		return nil
	}

	batch, err := r.store.Peek(r.cfg.BatchSize)
	if err != nil {
		return err
	}
	defer r.observeDepth()

	// an aggregate whose delivery failed this round holds back its later ones
	blocked := make(map[string]bool)
	for _, d := range batch {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lane := string(d.Target) + "/" + d.Aggregate
		if d.Target.Ordered() && blocked[lane] {
			continue
		}
		if err := r.redeliver(ctx, d); err != nil {
			if d.Attempts+1 >= r.cfg.MaxAttempts {
				r.logger.Error("dropping outbox delivery (max attempts reached)",
					zap.String("delivery_id", d.ID),
					zap.String("target", string(d.Target)),
					zap.Error(err))
				metrics.OutboxDelivered.WithLabelValues(string(d.Target), "dropped").Inc()
				_ = r.store.Ack(d)
				continue
			}
			blocked[lane] = true
			metrics.OutboxDelivered.WithLabelValues(string(d.Target), "retry").Inc()
			if err := r.store.Retry(d); err != nil {
				r.logger.Error("failed to requeue outbox delivery", zap.String("delivery_id", d.ID), zap.Error(err))
			}
			continue
		}

		metrics.OutboxDelivered.WithLabelValues(string(d.Target), "redelivered").Inc()
		if err := r.store.Ack(d); err != nil {
			r.logger.Warn("failed to ack outbox delivery", zap.String("delivery_id", d.ID), zap.Error(err))
		}
	}
	return nil
}

// Pending returns the number of queued deliveries.
func (r *Relay) Pending() int {
	if r == nil || r.store == nil {
		return 0
	}
	n, err := r.store.Len()
	if err != nil {
		return 0
	}
	return n
}

func (r *Relay) redeliver(ctx context.Context, d outbox.Delivery) error {
	event, err := d.Decode()
	if err != nil {
		return err
	}
	return r.send(ctx, d.Target, event)
}

func (r *Relay) send(ctx context.Context, target outbox.Target, event domain.Event) error {
	switch target {
	case outbox.TargetNotification:
		if r.targets.Notifier == nil {
			return errTargetUnavailable
		}
		return r.targets.Notifier.Notify(ctx, event.RecipientID, event.Message, event.Link)
	case outbox.TargetMirror:
		if r.targets.Mirror == nil {
			return errTargetUnavailable
		}
		return r.targets.Mirror.Mirror(ctx, event)
	case outbox.TargetStream:
		if r.targets.Publisher == nil {
			return errTargetUnavailable
		}
		return r.targets.Publisher.Publish(ctx, event)
	default:
		return fmt.Errorf("unsupported target %s", target)
	}
}

func (r *Relay) configured(target outbox.Target) bool {
	switch target {
	case outbox.TargetNotification:
		return r.targets.Notifier != nil
	case outbox.TargetMirror:
		return r.targets.Mirror != nil
	case outbox.TargetStream:
		return r.targets.Publisher != nil
	}
	return false
}

func (r *Relay) observeDepth() {
	metrics.OutboxDepth.Set(float64(r.Pending()))
}
