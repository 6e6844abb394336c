// Package metrics holds the Prometheus instrumentation for the ingestion
// pipeline and fan-out.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles all counters on a private registry so tests can create
// isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	MessagesIngested  *prometheus.CounterVec
	DuplicatesSkipped prometheus.Counter
	MediaFailures     prometheus.Counter
	StatusUpdates     prometheus.Counter
	FanoutDrops       prometheus.Counter
	MessagesSent      prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		MessagesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watrack_messages_ingested_total",
			Help: "Messages written to the ledger, by kind.",
		}, []string{"kind"}),
		DuplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watrack_messages_duplicate_total",
			Help: "Redelivered messages skipped by the idempotency check.",
		}),
		MediaFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watrack_media_failures_total",
			Help: "Attachment downloads or writes that failed.",
		}),
		StatusUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watrack_status_updates_total",
			Help: "Delivery status transitions applied to the ledger.",
		}),
		FanoutDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watrack_fanout_drops_total",
			Help: "Events dropped because a subscriber could not keep up.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watrack_messages_sent_total",
			Help: "Outbound messages accepted by the client.",
		}),
	}

	reg.MustRegister(
		m.MessagesIngested,
		m.DuplicatesSkipped,
		m.MediaFailures,
		m.StatusUpdates,
		m.FanoutDrops,
		m.MessagesSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
