package metrics

import (
	"testing"

	"traffic-predictor/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ml.MetricsInterface = (*PredictorMetrics)(nil)

func TestNewWithRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	require.NotNil(t, m)

	m.SetArtifactLoaded("model", true)
	m.ObserveRequest("/health", 200)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["traffic_artifact_loaded"])
	assert.True(t, names["http_requests_total"])
}

func TestPredictorMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	w := NewPredictorMetrics(m)

	w.MLPredictionsInc()
	w.MLPredictionsInc()
	w.MLFailuresInc()
	w.MLFallbackUseInc()
	w.MLLatencyObserve(0.001)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Predictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PredictionLatency))
}

func TestSetArtifactLoaded(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.SetArtifactLoaded("model", true)
	m.SetArtifactLoaded("encoders", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactLoaded.WithLabelValues("model")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ArtifactLoaded.WithLabelValues("encoders")))

	m.SetArtifactLoaded("model", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ArtifactLoaded.WithLabelValues("model")))
}

func TestObserveRequest(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveRequest("/api/predict/map", 200)
	m.ObserveRequest("/api/predict/map", 200)
	m.ObserveRequest("/api/predict/map", 400)
	m.ObserveRequest("", 404)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/predict/map", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/predict/map", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", "404")))
}
