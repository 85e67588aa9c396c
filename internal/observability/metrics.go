// Package observability wires Prometheus metrics for the intake service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations    prometheus.Counter
	Deliveries       prometheus.Counter
	Broadcasts       prometheus.Counter
	BroadcastViewers prometheus.Gauge
	PrintJobs        *prometheus.CounterVec
}

// NewMetrics registers the service metrics on reg. Pass a fresh registry in
// tests to avoid duplicate registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_items_registered_total",
			Help: "Number of items registered.",
		}),
		Deliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_items_delivered_total",
			Help: "Number of items delivered back to customers.",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_status_broadcasts_total",
			Help: "Number of status snapshots pushed to live viewers.",
		}),
		BroadcastViewers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intake_live_viewers",
			Help: "Currently connected live status viewers.",
		}),
		PrintJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_print_jobs_total",
			Help: "Print jobs by dispatch result.",
		}, []string{"result"}),
	}
}
