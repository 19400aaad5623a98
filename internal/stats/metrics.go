package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts proxied requests.
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vertexproxy_requests_total",
		Help: "Total number of proxied requests.",
	})

	// FailoverAttempts counts region attempts by outcome.
	FailoverAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vertexproxy_failover_attempts_total",
		Help: "Region attempts by outcome (success, retryable, terminal, transport_error).",
	}, []string{"outcome"})

	// ActiveStreams tracks currently open SSE responses.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vertexproxy_active_streams",
		Help: "Number of streaming responses currently open.",
	})
)

// MetricsHandler serves the Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
