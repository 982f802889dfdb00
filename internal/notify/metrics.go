package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsTotal counts raised notifications.
	// Labels: kind (info, warning, alert)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "managerd",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of notifications raised by kind",
		},
		[]string{"kind"},
	)

	// PushTotal counts push channel attempts.
	// Labels: outcome (sent, suppressed, error)
	PushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "managerd",
			Subsystem: "notify",
			Name:      "push_total",
			Help:      "Total number of push message attempts by outcome",
		},
		[]string{"outcome"},
	)
)
