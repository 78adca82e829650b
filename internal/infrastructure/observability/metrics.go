package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Saga metrics
	SagaTransitions *prometheus.CounterVec
	SagaOperations  *prometheus.CounterVec
	StatusConflicts *prometheus.CounterVec

	// Messaging metrics
	MessagesConsumed  *prometheus.CounterVec
	MessageDuration   *prometheus.HistogramVec
	MessagesPublished *prometheus.CounterVec

	// Reconciler metrics
	ReconcilerRuns          *prometheus.CounterVec
	ReconcilerCancellations prometheus.Counter
	ReconcilerDuration      prometheus.Histogram

	// Payment gateway metrics
	PaymentsTotal   *prometheus.CounterVec
	PaymentDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		SagaTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saga_transitions_total",
				Help:      "Transaction status transitions by source and target status",
			},
			[]string{"from", "to"},
		),
		SagaOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saga_operations_total",
				Help:      "Saga operations by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
		StatusConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saga_status_conflicts_total",
				Help:      "Optimistic status check failures that triggered a reload",
			},
			[]string{"operation"},
		),
		MessagesConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_consumed_total",
				Help:      "Consumed messages by queue and outcome (ack, requeue, dead_letter)",
			},
			[]string{"queue", "outcome"},
		),
		MessageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "message_handling_duration_seconds",
				Help:      "Message handler duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"queue"},
		),
		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_published_total",
				Help:      "Published messages by exchange, routing key and status",
			},
			[]string{"exchange", "routing_key", "status"},
		),
		ReconcilerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciler_runs_total",
				Help:      "Expiry reconciler runs by result (ok, skipped, locked, error)",
			},
			[]string{"result"},
		),
		ReconcilerCancellations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciler_cancellations_total",
				Help:      "Transactions cancelled by the expiry reconciler",
			},
		),
		ReconcilerDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconciler_run_duration_seconds",
				Help:      "Expiry reconciler run duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of payments by operation and status",
			},
			[]string{"operation", "status"},
		),
		PaymentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payment_duration_seconds",
				Help:      "Provider call duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by service, route and status",
			},
			[]string{"service", "method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "method", "route"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.SagaTransitions,
		m.SagaOperations,
		m.StatusConflicts,
		m.MessagesConsumed,
		m.MessageDuration,
		m.MessagesPublished,
		m.ReconcilerRuns,
		m.ReconcilerCancellations,
		m.ReconcilerDuration,
		m.PaymentsTotal,
		m.PaymentDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
	)

	return m
}
