package ml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingClassifier struct{}

func (failingClassifier) Classify([]float64) (int, []float64, error) {
	return 0, nil, errors.New("boom")
}

type constClassifier struct {
	class int
	proba []float64
}

func (c constClassifier) Classify([]float64) (int, []float64, error) { return c.class, c.proba, nil }

type countingClassifier struct {
	constClassifier
	calls int
}

func (c *countingClassifier) Classify(row []float64) (int, []float64, error) {
	c.calls++
	return c.constClassifier.Classify(row)
}

func TestPredictor_Predict(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictor(stumpForest(3, 0.5), metrics)
	require.True(t, p.Available())

	pred, err := p.Predict([]float64{0.9})
	require.NoError(t, err)
	assert.Equal(t, LevelMacet, pred.Level)
	assert.Equal(t, "Macet", pred.Status)
	assert.Equal(t, "#e74c3c", pred.Color)
	assert.Equal(t, map[string]float64{"Lancar": 0, "Sedang": 25, "Macet": 75}, pred.Probabilities)

	assert.Equal(t, 1, metrics.predictions)
	assert.Equal(t, 1, metrics.latencyObs)
}

func TestPredictor_ProbabilitiesRoundedToOneDecimal(t *testing.T) {
	p := NewPredictor(constClassifier{class: 1, proba: []float64{0.33333, 0.44444, 0.22223}}, nil)

	pred, err := p.Predict(nil)
	require.NoError(t, err)
	assert.Equal(t, 33.3, pred.Probabilities["Lancar"])
	assert.Equal(t, 44.4, pred.Probabilities["Sedang"])
	assert.Equal(t, 22.2, pred.Probabilities["Macet"])

	var sum float64
	for _, v := range pred.Probabilities {
		sum += v
	}
	assert.InDelta(t, 100, sum, 0.2)
}

func TestPredictor_ScoresRowOnce(t *testing.T) {
	c := &countingClassifier{constClassifier: constClassifier{class: 2, proba: []float64{0.1, 0.2, 0.7}}}
	p := NewPredictor(c, nil)

	pred, err := p.Predict([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, LevelMacet, pred.Level)
	assert.Equal(t, 1, c.calls)
}

func TestPredictor_UnknownLevel(t *testing.T) {
	p := NewPredictor(constClassifier{class: 7, proba: []float64{1, 0, 0}}, nil)
	_, err := p.Predict(nil)
	assert.Error(t, err)
}

func TestPredictor_Unavailable(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictor(nil, metrics)

	assert.False(t, p.Available())
	_, err := p.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrModelUnavailable)

	pred := p.Resolve(nil, func() Prediction { return PatternFallback{}.Hourly(8) })
	assert.Equal(t, LevelSedang, pred.Level)
	assert.Equal(t, 1, metrics.fallbackUse)
	assert.Equal(t, 0, metrics.failures)
}

func TestPredictor_ResolveFallsBackOnFailure(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictor(failingClassifier{}, metrics)

	pred := p.Resolve([]float64{1}, PatternFallback{}.Snapshot)
	assert.Equal(t, LevelLancar, pred.Level)
	assert.Empty(t, pred.Probabilities)
	assert.Equal(t, 1, metrics.failures)
	assert.Equal(t, 1, metrics.fallbackUse)
	assert.Equal(t, 0, metrics.predictions)
}

func TestPredictor_NilSafety(t *testing.T) {
	var p *Predictor

	assert.False(t, p.Available())
	_, err := p.Predict([]float64{0.1})
	assert.ErrorIs(t, err, ErrModelUnavailable)

	pred := p.Resolve(nil, PatternFallback{}.Snapshot)
	assert.Equal(t, "Lancar", pred.Status)
}

func TestPatternFallback_Hourly(t *testing.T) {
	peak := map[int]bool{7: true, 8: true, 9: true, 17: true, 18: true, 19: true}

	for hour := 0; hour < 24; hour++ {
		pred := PatternFallback{}.Hourly(hour)
		if peak[hour] {
			assert.Equal(t, LevelSedang, pred.Level, "hour %d", hour)
			assert.Equal(t, "#f39c12", pred.Color)
		} else {
			assert.Equal(t, LevelLancar, pred.Level, "hour %d", hour)
		}
		assert.Equal(t, map[string]float64{"Lancar": 50, "Sedang": 30, "Macet": 20}, pred.Probabilities)
	}
}

func TestPatternFallback_HourlyReturnsIndependentMaps(t *testing.T) {
	a := PatternFallback{}.Hourly(1)
	a.Probabilities["Lancar"] = 0

	b := PatternFallback{}.Hourly(1)
	assert.Equal(t, 50.0, b.Probabilities["Lancar"])
}
