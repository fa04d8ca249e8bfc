// Package metrics holds the prometheus collectors of the tax tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Calculations  *prometheus.CounterVec // by taxpayer class and result
	Submissions   *prometheus.CounterVec // by outcome status and reason
	SubmitLatency prometheus.Histogram
	HubClients    prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxtracker",
			Name:      "calculations_total",
			Help:      "Tax calculations by taxpayer class and result.",
		}, []string{"class", "result"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxtracker",
			Name:      "record_submissions_total",
			Help:      "Record submissions by outcome status and failure reason.",
		}, []string{"status", "reason"}),
		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taxtracker",
			Name:      "record_submit_duration_seconds",
			Help:      "Latency of record API submissions.",
			Buckets:   prometheus.DefBuckets,
		}),
		HubClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "taxtracker",
			Name:      "notification_clients",
			Help:      "Connected notification websocket clients.",
		}),
	}
}
