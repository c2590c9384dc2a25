package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttempts counts every attempt made through the retry executor
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_retry_attempts_total",
			Help: "Total number of operation attempts through the retry executor",
		},
		[]string{"context"},
	)

	// RetriesExhausted counts operations that burned the whole attempt budget
	RetriesExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_retries_exhausted_total",
			Help: "Total number of operations that exhausted all retry attempts",
		},
		[]string{"context"},
	)

	// BreakerState exposes the circuit state per service (0=closed, 1=open, 2=half-open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_breaker_state",
			Help: "Circuit breaker state per service (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// BreakerRejections counts calls short-circuited by an open breaker
	BreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_breaker_rejections_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		},
		[]string{"service"},
	)

	// DedupCoalesced counts callers that piggybacked on an in-flight request
	DedupCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_dedup_coalesced_total",
			Help: "Total number of callers coalesced onto an existing in-flight request",
		},
	)

	// ClassifiedErrors counts classified failures by kind
	ClassifiedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_classified_errors_total",
			Help: "Total number of errors classified, by kind",
		},
		[]string{"kind"},
	)

	// QueueDepth tracks the current number of queued offline operations
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_offline_queue_depth",
			Help: "Current number of operations in the offline queue",
		},
	)

	// QueuedOperations counts enqueued offline operations by type
	QueuedOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_queued_operations_total",
			Help: "Total number of operations enqueued while offline",
		},
		[]string{"type"},
	)

	// ReplayedOperations counts drain outcomes by type
	ReplayedOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_replayed_operations_total",
			Help: "Total number of offline operations replayed, by outcome",
		},
		[]string{"type", "outcome"},
	)

	// ConnectivityOnline exposes the current connectivity status (1=online)
	ConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connectivity_online",
			Help: "Whether the gateway currently considers itself online (1=online, 0=offline)",
		},
	)
)
