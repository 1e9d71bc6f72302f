// Package observability provides Prometheus metrics for the modelfarm client
// and an http.RoundTripper that records them.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for generation latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts outbound requests by path and status class.
	// Transport failures use the status label "error".
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelfarm_client_requests_total",
			Help: "Outbound modelfarm requests",
		},
		[]string{"path", "status"},
	)

	// RequestDuration records time to response headers in seconds by path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelfarm_client_request_duration_seconds",
			Help:    "Time until response headers",
			Buckets: LLMBuckets,
		},
		[]string{"path"},
	)

	// StreamsActive tracks streaming response bodies that are still open.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelfarm_client_streams_active",
			Help: "Open streaming responses",
		},
	)

	// TokensTotal counts tokens reported by the service, by direction.
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelfarm_client_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamsActive,
		TokensTotal,
	)
}

// RecordTokens adds reported token usage for a model. Zero counts are skipped.
func RecordTokens(model string, input, output int) {
	if model == "" {
		model = "unknown"
	}
	if input > 0 {
		TokensTotal.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		TokensTotal.WithLabelValues(model, "output").Add(float64(output))
	}
}
