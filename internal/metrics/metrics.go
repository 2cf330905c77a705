package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal counts availability checks by classified outcome.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutbook_attempts_total",
			Help: "Total reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ResultsTotal counts terminal run results by kind.
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutbook_results_total",
			Help: "Total run results by kind",
		},
		[]string{"result"},
	)

	// WaitSeconds tracks the jittered waits between attempts.
	WaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hutbook_wait_seconds",
			Help:    "Scheduled wait between attempts in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// GatewayRequestsTotal counts calls against the reservation service.
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutbook_gateway_requests_total",
			Help: "Total gateway HTTP requests by operation and status class",
		},
		[]string{"op", "status"},
	)
)
