// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LifecycleOperations counts use case calls by operation and outcome code.
var LifecycleOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmarket",
	Subsystem: "lifecycle",
	Name:      "operations_total",
	Help:      "Lifecycle operations by name and result code.",
}, []string{"operation", "result"})

// EventsDispatched counts committed events handed to side-effect handlers.
var EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmarket",
	Subsystem: "events",
	Name:      "dispatched_total",
	Help:      "Committed events dispatched after the transaction.",
}, []string{"event"})

// SideEffectFailures counts handler errors that were logged and swallowed.
var SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmarket",
	Subsystem: "events",
	Name:      "side_effect_failures_total",
	Help:      "Side-effect handler failures. They never change an operation's outcome.",
}, []string{"handler"})

// OutboxDepth is the number of side effects waiting in the local outbox.
var OutboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskmarket",
	Subsystem: "outbox",
	Name:      "depth",
	Help:      "Side effects buffered for retry.",
})

// OutboxDelivered counts outbox deliveries by target and result.
var OutboxDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmarket",
	Subsystem: "outbox",
	Name:      "deliveries_total",
	Help:      "Outbox delivery attempts by target and result.",
}, []string{"target", "result"})

// TxRetries counts transactions retried after a serialization failure or deadlock.
var TxRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskmarket",
	Subsystem: "store",
	Name:      "tx_retries_total",
	Help:      "Transactions retried after serialization failure or deadlock.",
})

// HTTPRequests observes request latency by method and status code.
var HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "taskmarket",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "status"})

// SweptTasks counts tasks cancelled by the deadline sweep.
var SweptTasks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskmarket",
	Subsystem: "lifecycle",
	Name:      "swept_tasks_total",
	Help:      "Expired available tasks cancelled by the sweep.",
})
