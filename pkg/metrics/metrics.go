package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer outcomes recorded per environment run
const (
	OutcomeCreated           = "created"
	OutcomeFailed            = "failed"
	OutcomeRecipientNotFound = "recipient_not_found"
	OutcomeLookupFailed      = "lookup_failed"
)

var (
	// External service metrics
	CircleAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circle_transfer_api_calls_total",
			Help: "Total number of Circle API calls",
		},
		[]string{"environment", "operation", "status_code"},
	)

	CircleAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circle_transfer_api_call_duration_seconds",
			Help:    "Circle API call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"environment", "operation"},
	)

	CircuitBreakerStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circle_transfer_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"environment"},
	)

	// Harness metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circle_transfer_runs_total",
			Help: "Environment runs by outcome",
		},
		[]string{"environment", "outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circle_transfer_run_duration_seconds",
			Help:    "Duration of one environment run in seconds",
			Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"environment"},
	)
)
