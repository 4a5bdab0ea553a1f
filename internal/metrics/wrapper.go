package metrics

// PredictorMetrics adapts Metrics to the interface the predictor records into.
type PredictorMetrics struct {
	m *Metrics
}

func NewPredictorMetrics(m *Metrics) *PredictorMetrics {
	return &PredictorMetrics{m: m}
}

func (w *PredictorMetrics) MLPredictionsInc() {
	w.m.Predictions.Inc()
}

func (w *PredictorMetrics) MLFailuresInc() {
	w.m.PredictionFailures.Inc()
}

func (w *PredictorMetrics) MLLatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *PredictorMetrics) MLFallbackUseInc() {
	w.m.Fallbacks.Inc()
}
