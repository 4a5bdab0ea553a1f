package ml

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const leafNode = -1

// Tree is one fitted decision tree in the flat array layout exported from the
// training pipeline. Node i splits on Feature[i] at Threshold[i]; a sample goes
// left when x[Feature[i]] <= Threshold[i]. Leaves have ChildrenLeft[i] == -1.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is a random-forest classifier: the class distribution is the mean of
// the normalized leaf distributions of every tree.
type Forest struct {
	NEstimators  int      `json:"n_estimators"`
	NClasses     int      `json:"n_classes"`
	Classes      []int    `json:"classes"`
	FeatureNames []string `json:"feature_names,omitempty"`
	Estimators   []Tree   `json:"estimators"`

	// Populated by LoadForest; not serialized.
	ModTime  time.Time `json:"-"`
	FileSize int64     `json:"-"`

	nFeatures int
}

var ErrEmptyForest = errors.New("forest has no estimators")

// LoadForest reads and validates a forest artifact.
func LoadForest(path string) (*Forest, error) {
	var f Forest
	if err := readArtifact(path, &f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forest %s: %w", path, err)
	}

	if info, err := os.Stat(path); err == nil {
		f.ModTime = info.ModTime()
		f.FileSize = info.Size()
	}
	return &f, nil
}

// Save writes the forest at the given compression level (0 = uncompressed).
func (f *Forest) Save(path string, level int) error {
	return writeArtifact(path, f, level)
}

// Validate checks the structural invariants prediction relies on and fills
// derived fields. Child indices must point forward, so traversal always ends.
func (f *Forest) Validate() error {
	if len(f.Estimators) == 0 {
		return ErrEmptyForest
	}
	if f.NClasses <= 0 {
		return fmt.Errorf("n_classes must be positive, got %d", f.NClasses)
	}
	if len(f.Classes) == 0 {
		f.Classes = make([]int, f.NClasses)
		for i := range f.Classes {
			f.Classes[i] = i
		}
	}
	if len(f.Classes) != f.NClasses {
		return fmt.Errorf("expected %d classes, got %d", f.NClasses, len(f.Classes))
	}
	if f.NEstimators == 0 {
		f.NEstimators = len(f.Estimators)
	}

	maxFeature := -1
	for ti := range f.Estimators {
		t := &f.Estimators[ti]
		n := len(t.ChildrenLeft)
		if n == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return fmt.Errorf("tree %d has inconsistent array lengths", ti)
		}
		for i := 0; i < n; i++ {
			if len(t.Value[i]) != f.NClasses {
				return fmt.Errorf("tree %d node %d: expected %d values, got %d", ti, i, f.NClasses, len(t.Value[i]))
			}
			left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
			if left == leafNode {
				continue
			}
			if left <= i || left >= n || right <= i || right >= n {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, i)
			}
			if t.Feature[i] < 0 {
				return fmt.Errorf("tree %d node %d: negative feature index", ti, i)
			}
			if t.Feature[i] > maxFeature {
				maxFeature = t.Feature[i]
			}
		}
	}
	f.nFeatures = maxFeature + 1

	if len(f.FeatureNames) > 0 && len(f.FeatureNames) < f.nFeatures {
		return fmt.Errorf("forest splits on feature %d but names only %d features", maxFeature, len(f.FeatureNames))
	}
	return nil
}

// NumFeatures is the minimum row width the forest can score.
func (f *Forest) NumFeatures() int {
	return f.nFeatures
}

// Truncate keeps the first k trees. It is a no-op unless 0 < k < len(Estimators).
func (f *Forest) Truncate(k int) bool {
	if k <= 0 || k >= len(f.Estimators) {
		return false
	}
	f.Estimators = f.Estimators[:k]
	f.NEstimators = k
	return true
}

func (f *Forest) PredictProba(row []float64) ([]float64, error) {
	if len(f.Estimators) == 0 {
		return nil, ErrEmptyForest
	}
	if len(row) < f.nFeatures {
		return nil, fmt.Errorf("expected at least %d features, got %d", f.nFeatures, len(row))
	}

	proba := make([]float64, f.NClasses)
	for ti := range f.Estimators {
		leaf := f.Estimators[ti].leaf(row)

		var total float64
		for _, v := range leaf {
			total += v
		}
		if total <= 0 {
			continue
		}
		for c, v := range leaf {
			proba[c] += v / total
		}
	}

	n := float64(len(f.Estimators))
	for c := range proba {
		proba[c] /= n
	}
	return proba, nil
}

// Classify scores row once and returns the class with the highest mean
// probability alongside the distribution; ties go to the lower class index.
func (f *Forest) Classify(row []float64) (int, []float64, error) {
	proba, err := f.PredictProba(row)
	if err != nil {
		return 0, nil, err
	}

	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.Classes[best], proba, nil
}

func (f *Forest) Predict(row []float64) (int, error) {
	class, _, err := f.Classify(row)
	return class, err
}

func (t *Tree) leaf(row []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}
