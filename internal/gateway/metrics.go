package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal counts gateway calls.
	// Labels: capability (classify, search, generate_image, edit_image, transcribe),
	// outcome (ok, degraded, error)
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "managerd",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of provider calls by capability and outcome",
		},
		[]string{"capability", "outcome"},
	)

	// CallDuration tracks provider latency per capability.
	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "managerd",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"capability"},
	)
)
