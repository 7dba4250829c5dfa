// Package metrics exposes the daemon's ambient observability surface
// (spec §9 DESIGN NOTES treats counters/gauges as an ambient concern
// carried regardless of the spec's feature Non-goals). famd's go.mod
// inherits github.com/prometheus/client_golang from the teacher; no pack
// example ships a ready-made metrics-server package to copy wholesale,
// so this is a small hand-assembled registry in the same vein as any
// service that wires client_golang directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every famd gauge/counter/histogram behind its own
// prometheus.Registry, so a daemon process (and independently, its
// tests) never collide with the global default registry.
type Metrics struct {
	reg *prometheus.Registry

	ActiveConnections   prometheus.Gauge
	ActiveSubscriptions prometheus.Gauge
	QueueDepth          prometheus.Gauge
	PollTickSeconds     prometheus.Histogram
	EventsEmittedTotal  *prometheus.CounterVec
}

// New builds and registers every famd metric on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "famd",
			Name:      "active_connections",
			Help:      "Number of currently connected famd clients.",
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "famd",
			Name:      "active_subscriptions",
			Help:      "Number of currently live subscriptions across all connections.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "famd",
			Name:      "queue_depth",
			Help:      "Sum of pending events across all connection event queues.",
		}),
		PollTickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "famd",
			Name:      "poll_tick_seconds",
			Help:      "Wall-clock duration of one polling-engine tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "famd",
			Name:      "events_emitted_total",
			Help:      "Events emitted to clients, by event code.",
		}, []string{"code"}),
	}

	m.reg.MustRegister(
		m.ActiveConnections,
		m.ActiveSubscriptions,
		m.QueueDepth,
		m.PollTickSeconds,
		m.EventsEmittedTotal,
	)
	return m
}

// Handler returns the HTTP handler famd's --metrics-addr flag binds, when
// set (spec §9's added observability surface).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
