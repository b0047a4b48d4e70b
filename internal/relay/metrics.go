package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_relay_published_total",
			Help: "Messages broadcast to other back-office instances",
		},
	)

	deliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_relay_delivered_total",
			Help: "Messages admitted to a subscriber, by delivery path",
		},
		[]string{"path"},
	)

	suppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_relay_suppressed_total",
			Help: "Messages rejected by the dedup/recency filter",
		},
	)
)

// RegisterMetrics registers the relay collectors on the default registry.
func RegisterMetrics() {
	prometheus.MustRegister(publishedTotal, deliveredTotal, suppressedTotal)
}
