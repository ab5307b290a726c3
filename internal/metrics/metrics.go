package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carries the domain counters for one process. Fields are nil-safe
// to omit: components check for a nil *Metrics before counting.
type Metrics struct {
	OrdersCreated   prometheus.Counter
	Transitions     *prometheus.CounterVec
	Broadcasts      prometheus.Counter
	PublishFailures prometheus.Counter
	HTTPLatencyMS   *prometheus.HistogramVec
}

func New(service string) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walkup",
			Subsystem: service,
			Name:      "orders_created_total",
			Help:      "Orders accepted into the queue.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walkup",
			Subsystem: service,
			Name:      "status_transitions_total",
			Help:      "Successful status transitions by target status.",
		}, []string{"to"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walkup",
			Subsystem: service,
			Name:      "queue_broadcasts_total",
			Help:      "Queue snapshot broadcast cycles.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walkup",
			Subsystem: service,
			Name:      "publish_failures_total",
			Help:      "Realtime publishes that failed and were dropped.",
		}),
		HTTPLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "walkup",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
	}
	prometheus.MustRegister(m.OrdersCreated, m.Transitions, m.Broadcasts, m.PublishFailures, m.HTTPLatencyMS)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
