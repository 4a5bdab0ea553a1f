// Package ml provides the traffic-level classifier used by the prediction service.
// It includes a decision-forest artifact format, the label encoders the forest was
// trained with, a predictor with metrics, a time-of-day fallback used when no
// forest is loaded, and the size optimizer used before deployment.
//
// Artifacts are produced offline and are read-only once loaded.
package ml

// Classifier defines the capability the predictor needs from a trained model.
// Implementations must be safe for concurrent use once constructed.
type Classifier interface {
	// Classify returns the class label and the class distribution, ordered
	// like the model's classes, for a single feature row.
	Classify(row []float64) (int, []float64, error)
}
