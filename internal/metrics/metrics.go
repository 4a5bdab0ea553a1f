// Package metrics provides Prometheus metrics collection for the prediction
// service. It defines the prediction, artifact and HTTP metrics exposed via
// the /metrics endpoint.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	Predictions        prometheus.Counter   // Classifier answers returned
	Fallbacks          prometheus.Counter   // Answers taken from the time-of-day pattern
	PredictionFailures prometheus.Counter   // Classifier errors at request time
	PredictionLatency  prometheus.Histogram // Classifier latency per row

	// Startup state
	ArtifactLoaded *prometheus.GaugeVec // 1 when the named artifact or table is loaded

	// HTTP
	HTTPRequests *prometheus.CounterVec // Requests by route pattern and status code
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "traffic_predictions_total",
			Help: "Total number of classifier predictions made",
		}),
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "traffic_fallback_total",
			Help: "Total number of times the time-of-day pattern answered instead of the classifier",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "traffic_prediction_failures_total",
			Help: "Total number of classifier failures at request time",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "traffic_prediction_latency_seconds",
			Help:    "Classifier latency per feature row in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		ArtifactLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "traffic_artifact_loaded",
			Help: "Whether an artifact or reference table was loaded at startup (1) or is absent (0)",
		}, []string{"artifact"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// SetArtifactLoaded records whether the named artifact is available.
func (m *Metrics) SetArtifactLoaded(name string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	m.ArtifactLoaded.WithLabelValues(name).Set(v)
}

// ObserveRequest counts one served request.
func (m *Metrics) ObserveRequest(route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
