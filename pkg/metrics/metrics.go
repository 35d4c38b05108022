package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Push pipeline
	NotificationsProcessed prometheus.Counter
	NotificationsFailed    prometheus.Counter
	DeliveriesSent         prometheus.Counter
	DeliveriesFailed       prometheus.Counter
	BatchDuration          prometheus.Histogram
	RecipientsPerBatch     prometheus.Histogram

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Click attribution
	ClicksRegistered prometheus.Counter
}

// New creates and registers all application metrics under the given
// namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		NotificationsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_processed_total",
			Help:      "Total number of send cycles completed",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of send cycles that could not start",
		}),
		DeliveriesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_sent_total",
			Help:      "Total number of successful per-recipient sends",
		}),
		DeliveriesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_failed_total",
			Help:      "Total number of failed per-recipient sends",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent processing one send cycle",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RecipientsPerBatch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recipients_per_batch",
			Help:      "Resolved recipient count per send cycle",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
		ClicksRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_registered_total",
			Help:      "Total number of attributed push clicks",
		}),
	}
}
