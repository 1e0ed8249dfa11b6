package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_calls_active",
		Help: "Currently active call sessions",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_calls_total",
		Help: "Total call sessions accepted",
	})

	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_auth_failures_total",
		Help: "Requests rejected for a bad or missing vendor signature",
	})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_generation_duration_seconds",
		Help:    "Full streaming generation latency per turn",
		Buckets: []float64{0.2, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0, 5.0, 10.0},
	})

	FirstTokenDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_first_token_duration_seconds",
		Help:    "Latency from generation start to first streamed token",
		Buckets: []float64{0.1, 0.2, 0.3, 0.5, 0.8, 1.2, 2.0, 3.0, 5.0},
	})

	DeadAirFills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_dead_air_fills_total",
		Help: "Filler utterances emitted while waiting on a slow first token",
	})

	Interrupts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_interrupts_total",
		Help: "Caller interrupts that cancelled an in-flight generation",
	})

	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_dropped_total",
		Help: "Inbound frames dropped as malformed or unknown",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_sessions_evicted_total",
		Help: "Idle sessions removed by the registry sweep",
	})
)
