package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions int
	failures    int
	latencySum  float64
	latencyObs  int
	fallbackUse int
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyObs++
}

func (m *MockMetrics) MLFallbackUseInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackUse++
}

// stumpForest builds a forest of n identical stumps splitting feature 0 at
// threshold: rows at or below it are Lancar, rows above it are Macet.
func stumpForest(n int, threshold float64) *Forest {
	f := &Forest{NClasses: 3, Classes: []int{0, 1, 2}}
	for i := 0; i < n; i++ {
		f.Estimators = append(f.Estimators, Tree{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{0, -2, -2},
			Threshold:     []float64{threshold, -2, -2},
			Value:         [][]float64{{10, 5, 5}, {8, 2, 0}, {0, 1, 3}},
		})
	}
	if err := f.Validate(); err != nil {
		panic(err)
	}
	return f
}
