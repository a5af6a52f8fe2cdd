package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonq_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anonq_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonq_messages_posted_total",
			Help: "Total messages posted",
		},
		[]string{"author"}, // "visitor" or "admin"
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonq_messages_rejected_total",
			Help: "Messages rejected before persistence",
		},
		[]string{"reason"}, // "empty" or "invalid"
	)

	AdminLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonq_admin_logins_total",
			Help: "Admin login attempts",
		},
		[]string{"result"}, // "success" or "invalid"
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonq_store_errors_total",
			Help: "Storage failures surfaced to a request",
		},
		[]string{"operation"},
	)
)
