package traffic

import (
	"errors"
	"testing"

	"traffic-predictor/internal/features"
	"traffic-predictor/internal/ml"
	"traffic-predictor/internal/refdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMetrics struct {
	predictions, failures, fallbacks, latency int
}

func (m *mockMetrics) MLPredictionsInc()        { m.predictions++ }
func (m *mockMetrics) MLFailuresInc()           { m.failures++ }
func (m *mockMetrics) MLLatencyObserve(float64) { m.latency++ }
func (m *mockMetrics) MLFallbackUseInc()        { m.fallbacks++ }

// rushForest predicts Macet for rush-hour rows and Lancar otherwise.
func rushForest(t *testing.T) *ml.Forest {
	t.Helper()

	rushIdx := -1
	for i, c := range features.NativeColumns {
		if c == features.ColIsRushHour {
			rushIdx = i
		}
	}
	require.GreaterOrEqual(t, rushIdx, 0)

	f := &ml.Forest{
		NClasses: 3,
		Estimators: []ml.Tree{{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{rushIdx, -2, -2},
			Threshold:     []float64{0.5, -2, -2},
			Value:         [][]float64{{5, 0, 5}, {9, 1, 0}, {0, 2, 8}},
		}},
	}
	require.NoError(t, f.Validate())
	return f
}

func testSensors() []refdata.Sensor {
	return []refdata.Sensor{
		{ID: "D1", Lat: 43.30, Long: 5.37, Road: "Rue A", RoadClass: "primary"},
		{ID: "D2", Lat: 43.31, Long: 5.38},
		{ID: "D3", Lat: 43.32, Long: 5.39, Road: "Rue C", RoadClass: "secondary"},
	}
}

func TestForecast24h_PatternFallback(t *testing.T) {
	metrics := &mockMetrics{}
	svc := NewService(&State{}, metrics)

	out, err := svc.Forecast24h(2, "")
	require.NoError(t, err)

	assert.Equal(t, "Rabu", out.DayName)
	assert.Nil(t, out.Detector)
	assert.Equal(t, "Pattern-based", out.ModelUsed)
	require.Len(t, out.Predictions, 24)
	assert.Equal(t, 24, out.Stats.Total())
	assert.Equal(t, 6, out.Stats.Sedang)
	assert.Equal(t, 18, out.Stats.Lancar)

	assert.Equal(t, "08:00", out.Predictions[8].HourLabel)
	assert.Equal(t, ml.LevelSedang, out.Predictions[8].Level)
	assert.Equal(t, 50.0, out.Predictions[0].Probabilities["Lancar"])
	assert.Equal(t, 24, metrics.fallbacks)
}

func TestForecast24h_Classifier(t *testing.T) {
	svc := NewService(&State{Forest: rushForest(t)}, nil)

	tests := []struct {
		name   string
		day    int
		macet  int
		lancar int
	}{
		{"weekday", 1, 6, 18},
		{"saturday", 5, 0, 24},
		{"sunday", 6, 0, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Forecast24h(tt.day, "D1")
			require.NoError(t, err)

			assert.Equal(t, "Random Forest", out.ModelUsed)
			require.NotNil(t, out.Detector)
			assert.Equal(t, "D1", *out.Detector)
			assert.Equal(t, tt.macet, out.Stats.Macet)
			assert.Equal(t, tt.lancar, out.Stats.Lancar)
			assert.Equal(t, 24, out.Stats.Total())
		})
	}
}

func TestForecast24h_CountsAlwaysSumTo24(t *testing.T) {
	for _, st := range []*State{{}, {Forest: rushForest(t)}} {
		svc := NewService(st, nil)
		for day := 0; day < 7; day++ {
			out, err := svc.Forecast24h(day, "")
			require.NoError(t, err)
			assert.Equal(t, 24, out.Stats.Total())
		}
	}
}

func TestForecast24h_InvalidDay(t *testing.T) {
	svc := NewService(&State{}, nil)

	for _, day := range []int{-1, 7} {
		_, err := svc.Forecast24h(day, "")
		assert.True(t, errors.Is(err, ErrInvalidQuery))
	}
}

func TestForecast24h_ClassifierErrorFallsBack(t *testing.T) {
	// Splits on a feature index beyond the row width.
	f := &ml.Forest{
		NClasses: 3,
		Estimators: []ml.Tree{{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{40, -2, -2},
			Threshold:     []float64{0.5, -2, -2},
			Value:         [][]float64{{1, 1, 1}, {1, 0, 0}, {0, 0, 1}},
		}},
	}
	require.NoError(t, f.Validate())

	metrics := &mockMetrics{}
	svc := NewService(&State{Forest: f}, metrics)

	out, err := svc.Forecast24h(0, "")
	require.NoError(t, err)
	assert.Equal(t, 24, out.Stats.Total())
	assert.Equal(t, 6, out.Stats.Sedang)
	assert.Equal(t, 24, metrics.failures)
	assert.Equal(t, 24, metrics.fallbacks)
}

func TestSnapshot_NoClassifier(t *testing.T) {
	svc := NewService(&State{Sensors: testSensors()}, nil)

	out, err := svc.Snapshot(8, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, out.TotalSensors)
	assert.Equal(t, map[string]int{"Lancar": 3, "Sedang": 0, "Macet": 0}, out.Stats)

	total := 0
	for _, n := range out.Stats {
		total += n
	}
	assert.Equal(t, out.TotalSensors, total)

	for _, s := range out.Sensors {
		assert.Equal(t, ml.LevelLancar, s.Level)
		assert.Empty(t, s.Probabilities)
	}

	d2 := out.Sensors[1]
	assert.Equal(t, "D2", d2.SensorID)
	assert.Equal(t, "Unknown", d2.Road)
	assert.Equal(t, "Unknown", d2.Fclass)
	assert.Equal(t, "08:00", out.HourLabel)
	assert.Equal(t, "Selasa", out.DayName)
}

func TestSnapshot_Classifier(t *testing.T) {
	svc := NewService(&State{Sensors: testSensors(), Forest: rushForest(t)}, nil)

	out, err := svc.Snapshot(18, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Stats["Macet"])
	assert.Equal(t, 80.0, out.Sensors[0].Probabilities["Macet"])

	out, err = svc.Snapshot(18, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Stats["Lancar"])
}

func TestSnapshot_Errors(t *testing.T) {
	svc := NewService(&State{}, nil)

	_, err := svc.Snapshot(8, 1)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	svc = NewService(&State{Sensors: testSensors()}, nil)
	_, err = svc.Snapshot(24, 1)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = svc.Snapshot(8, -1)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSnapshot_UsesHistory(t *testing.T) {
	avgIdx := -1
	for i, c := range features.NativeColumns {
		if c == features.ColAvgOccPerHour {
			avgIdx = i
		}
	}

	// Macet when the historical average is above 0.1.
	f := &ml.Forest{
		NClasses: 3,
		Estimators: []ml.Tree{{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{avgIdx, -2, -2},
			Threshold:     []float64{0.1, -2, -2},
			Value:         [][]float64{{1, 0, 1}, {1, 0, 0}, {0, 0, 1}},
		}},
	}
	require.NoError(t, f.Validate())

	history := &refdata.History{Averages: refdata.HourlyAverages{
		{SensorID: "D3", Hour: 8, Weekday: 1}: 0.4,
	}}
	svc := NewService(&State{Sensors: testSensors(), Forest: f, History: history}, nil)

	out, err := svc.Snapshot(8, 1)
	require.NoError(t, err)
	assert.Equal(t, ml.LevelLancar, out.Sensors[0].Level)
	assert.Equal(t, ml.LevelMacet, out.Sensors[2].Level)
}

func TestSnapshot_EmptyRoadClassIsUnknownCategory(t *testing.T) {
	roadIdx := -1
	for i, c := range features.NativeColumns {
		if c == features.ColRoadTypeEncoded {
			roadIdx = i
		}
	}

	// Macet for road_type_encoded 1 (secondary), Lancar otherwise.
	f := &ml.Forest{
		NClasses: 3,
		Estimators: []ml.Tree{{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{roadIdx, -2, -2},
			Threshold:     []float64{0.5, -2, -2},
			Value:         [][]float64{{1, 0, 1}, {1, 0, 0}, {0, 0, 1}},
		}},
	}
	require.NoError(t, f.Validate())

	bundle := &ml.EncoderBundle{RoadType: ml.NewLabelEncoder([]string{"primary", "secondary"})}
	svc := NewService(&State{Sensors: testSensors(), Forest: f, Encoders: bundle}, nil)

	out, err := svc.Snapshot(3, 2)
	require.NoError(t, err)
	assert.Equal(t, ml.LevelLancar, out.Sensors[0].Level)
	assert.Equal(t, ml.LevelLancar, out.Sensors[1].Level, "sensor without road class encodes as 0")
	assert.Equal(t, ml.LevelMacet, out.Sensors[2].Level)
}
