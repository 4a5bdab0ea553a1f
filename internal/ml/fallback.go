package ml

// PatternFallback answers without a classifier using fixed time-of-day windows.
type PatternFallback struct{}

// placeholder distribution reported by the hourly fallback
var patternProbabilities = map[string]float64{"Lancar": 50, "Sedang": 30, "Macet": 20}

// Hourly marks the morning and evening peak windows (07-09, 17-19 inclusive)
// as Sedang and every other hour as Lancar. The weekday is not considered.
func (PatternFallback) Hourly(hour int) Prediction {
	level := LevelLancar
	if (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19) {
		level = LevelSedang
	}

	probs := make(map[string]float64, len(patternProbabilities))
	for k, v := range patternProbabilities {
		probs[k] = v
	}
	return Prediction{Category: CategoryOf(level), Probabilities: probs}
}

// Snapshot is the per-sensor answer for the network map: always Lancar, with
// no distribution.
func (PatternFallback) Snapshot() Prediction {
	return Prediction{Category: CategoryOf(LevelLancar), Probabilities: map[string]float64{}}
}
