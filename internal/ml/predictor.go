package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLFallbackUseInc()
}

// Prediction is a traffic level with its display attributes and the class
// distribution in percent, keyed by status label.
type Prediction struct {
	Category
	Probabilities map[string]float64 `json:"probabilities"`
}

var ErrModelUnavailable = errors.New("classifier not loaded")

// Predictor scores feature rows with the loaded classifier. It holds no
// mutable state and is safe for concurrent use.
type Predictor struct {
	model   Classifier
	metrics MetricsInterface
}

// NewPredictor wraps model. A nil model is valid: Predict then reports
// ErrModelUnavailable and Resolve always answers from the fallback.
func NewPredictor(model Classifier, metrics MetricsInterface) *Predictor {
	return &Predictor{model: model, metrics: metrics}
}

func (p *Predictor) Available() bool {
	return p != nil && p.model != nil
}

// Predict runs the classifier on row and maps the result onto a Level.
func (p *Predictor) Predict(row []float64) (Prediction, error) {
	if !p.Available() {
		return Prediction{}, ErrModelUnavailable
	}

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	class, proba, err := p.model.Classify(row)
	if err != nil {
		return Prediction{}, fmt.Errorf("classify: %w", err)
	}

	level := Level(class)
	if !level.Valid() {
		return Prediction{}, fmt.Errorf("classifier returned unknown level %d", class)
	}
	if len(proba) < len(Levels) {
		return Prediction{}, fmt.Errorf("expected %d probabilities, got %d", len(Levels), len(proba))
	}

	probs := make(map[string]float64, len(Levels))
	for _, l := range Levels {
		probs[l.Label()] = roundTo(proba[l]*100, 1)
	}

	if p.metrics != nil {
		p.metrics.MLPredictionsInc()
	}

	return Prediction{Category: CategoryOf(level), Probabilities: probs}, nil
}

// Resolve returns the classifier's answer for row, or fallback() when no
// classifier is loaded or scoring fails. Failures are logged and counted.
func (p *Predictor) Resolve(row []float64, fallback func() Prediction) Prediction {
	if !p.Available() {
		p.fallbackUsed()
		return fallback()
	}

	pred, err := p.Predict(row)
	if err != nil {
		log.Error().Err(err).Int("features", len(row)).Msg("prediction failed, falling back to time-of-day pattern")
		if p.metrics != nil {
			p.metrics.MLFailuresInc()
		}
		p.fallbackUsed()
		return fallback()
	}
	return pred
}

func (p *Predictor) fallbackUsed() {
	if p != nil && p.metrics != nil {
		p.metrics.MLFallbackUseInc()
	}
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
