package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type marketplaceMetrics struct {
	events   *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

var (
	marketplaceOnce     sync.Once
	marketplaceRegistry *marketplaceMetrics
)

// Metrics returns the lazily-initialised marketplace metrics registry used to
// record ledger activity.
func Metrics() *marketplaceMetrics {
	marketplaceOnce.Do(func() {
		marketplaceRegistry = &marketplaceMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "microlend",
				Subsystem: "ledger",
				Name:      "events_total",
				Help:      "Total ledger events segmented by event type.",
			}, []string{"type"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "microlend",
				Subsystem: "ledger",
				Name:      "rejections_total",
				Help:      "Count of mutating operations that were rejected or failed.",
			}, []string{"module", "op"}),
		}
		prometheus.MustRegister(
			marketplaceRegistry.events,
			marketplaceRegistry.rejected,
		)
	})
	return marketplaceRegistry
}

// RecordEvent increments the counter for the supplied event type.
func (m *marketplaceMetrics) RecordEvent(eventType string) {
	if m == nil || eventType == "" {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// RecordRejection increments the rejection counter for a module operation.
func (m *marketplaceMetrics) RecordRejection(module, op string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(module, op).Inc()
}

// Handler exposes the default prometheus registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
