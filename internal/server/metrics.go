package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the Prometheus collectors for layout sessions.
type metrics struct {
	sessions     prometheus.Gauge
	steps        prometheus.Counter
	stepDuration prometheus.Histogram
	power        *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "turbines",
			Name:      "sessions_active",
			Help:      "Number of live layout sessions.",
		}),
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "turbines",
			Name:      "steps_total",
			Help:      "Gradient-ascent steps taken across all sessions.",
		}),
		stepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turbines",
			Name:      "step_duration_seconds",
			Help:      "Time spent in one gradient-ascent step.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		power: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "turbines",
			Name:      "layout_power",
			Help:      "Mean power recorded by the last step of a session.",
		}, []string{"session"}),
	}
}
