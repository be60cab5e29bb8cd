// Package metrics provides Prometheus instrumentation for the session
// exchange service: request counts and latencies per endpoint, plus a
// running total of freshly originated sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts handled HTTP requests, labeled by endpoint
	// ("POST /begin") and status code.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starch_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"endpoint", "status"})

	// RequestDuration records request handling latency in seconds.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starch_request_duration_seconds",
		Help:    "Request handling latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"endpoint"})

	// SessionsCreated counts sessions originated by the session manager,
	// whether for a missing identifier or for one not found in the store.
	SessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starch_sessions_created_total",
		Help: "Total number of sessions originated for missing or unknown identifiers",
	})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SessionsCreated,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
