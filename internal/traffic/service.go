package traffic

import (
	"errors"
	"fmt"

	"traffic-predictor/internal/common"
	"traffic-predictor/internal/features"
	"traffic-predictor/internal/ml"
)

var (
	// ErrDataUnavailable means a query needs a table that was not loaded.
	ErrDataUnavailable = errors.New("data not available")
	// ErrInvalidQuery means an hour or day argument was out of range.
	ErrInvalidQuery = errors.New("invalid query")
)

const (
	modelRandomForest = "Random Forest"
	modelPattern      = "Pattern-based"
	unknownLabel      = "Unknown"
)

// Service answers queries against one State.
type Service struct {
	state      *State
	predictor  *ml.Predictor
	assembler  *features.Assembler
	thresholds ml.Thresholds
	fallback   ml.PatternFallback
	importance []ml.FeatureStats
}

// NewService wires the predictor and feature assembler over st. metrics may be nil.
func NewService(st *State, metrics ml.MetricsInterface) *Service {
	var model ml.Classifier
	var importance []ml.FeatureStats
	if st.Forest != nil {
		model = st.Forest
		importance = st.Forest.FeatureImportance()
	}

	var history features.HistoryLookup
	if st.History != nil {
		history = st.History.Averages
	}

	return &Service{
		state:      st,
		predictor:  ml.NewPredictor(model, metrics),
		assembler:  features.NewAssembler(st.Encoders, history),
		thresholds: st.Encoders.Thresholds(),
		importance: importance,
	}
}

func (s *Service) ModelUsed() string {
	if s.predictor.Available() {
		return modelRandomForest
	}
	return modelPattern
}

// HourPrediction is one hour of a day forecast.
type HourPrediction struct {
	Hour      int    `json:"hour"`
	HourLabel string `json:"hour_label"`
	ml.Prediction
}

// LevelCounts tallies predictions per level.
type LevelCounts struct {
	Lancar int `json:"lancar"`
	Sedang int `json:"sedang"`
	Macet  int `json:"macet"`
}

func (c *LevelCounts) add(l ml.Level) {
	switch l {
	case ml.LevelLancar:
		c.Lancar++
	case ml.LevelSedang:
		c.Sedang++
	case ml.LevelMacet:
		c.Macet++
	}
}

func (c LevelCounts) Total() int {
	return c.Lancar + c.Sedang + c.Macet
}

type DayForecast struct {
	Day         int              `json:"day"`
	DayName     string           `json:"day_name"`
	Detector    *string          `json:"detector"`
	Predictions []HourPrediction `json:"predictions"`
	Stats       LevelCounts      `json:"stats"`
	ModelUsed   string           `json:"model_used"`
}

// Forecast24h predicts every hour of weekday day for one sensor, or for no
// particular sensor when sensorID is "".
func (s *Service) Forecast24h(day int, sensorID string) (*DayForecast, error) {
	if err := checkDay(day); err != nil {
		return nil, err
	}

	out := &DayForecast{
		Day:         day,
		DayName:     common.DayNames[day],
		Predictions: make([]HourPrediction, 0, 24),
		ModelUsed:   s.ModelUsed(),
	}
	if sensorID != "" {
		out.Detector = &sensorID
	}

	for hour := 0; hour < 24; hour++ {
		row := s.assembler.Assemble(hour, day, sensorID, common.DefaultRoadClass)
		pred := s.predictor.Resolve(row.Values, func() ml.Prediction {
			return s.fallback.Hourly(hour)
		})

		out.Predictions = append(out.Predictions, HourPrediction{
			Hour:       hour,
			HourLabel:  hourLabel(hour),
			Prediction: pred,
		})
		out.Stats.add(pred.Level)
	}
	return out, nil
}

// SensorPrediction is one sensor of a network snapshot.
type SensorPrediction struct {
	SensorID string  `json:"detid"`
	Lat      float64 `json:"lat"`
	Long     float64 `json:"long"`
	Road     string  `json:"road"`
	Fclass   string  `json:"fclass"`
	ml.Prediction
}

type Snapshot struct {
	Hour         int                `json:"hour"`
	HourLabel    string             `json:"hour_label"`
	Day          int                `json:"day"`
	DayName      string             `json:"day_name"`
	Sensors      []SensorPrediction `json:"sensors"`
	Stats        map[string]int     `json:"stats"`
	TotalSensors int                `json:"total_sensors"`
	ModelUsed    string             `json:"model_used"`
}

// Snapshot predicts every known sensor at one hour of weekday day.
func (s *Service) Snapshot(hour, day int) (*Snapshot, error) {
	if err := checkHour(hour); err != nil {
		return nil, err
	}
	if err := checkDay(day); err != nil {
		return nil, err
	}
	if s.state.Sensors == nil {
		return nil, fmt.Errorf("detector data: %w", ErrDataUnavailable)
	}

	out := &Snapshot{
		Hour:      hour,
		HourLabel: hourLabel(hour),
		Day:       day,
		DayName:   common.DayNames[day],
		Sensors:   make([]SensorPrediction, 0, len(s.state.Sensors)),
		Stats:     newStatusCounts(),
		ModelUsed: s.ModelUsed(),
	}

	for _, sensor := range s.state.Sensors {
		row := s.assembler.Assemble(hour, day, sensor.ID, sensor.RoadClass)
		pred := s.predictor.Resolve(row.Values, s.fallback.Snapshot)

		out.Stats[pred.Status]++
		out.Sensors = append(out.Sensors, SensorPrediction{
			SensorID:   sensor.ID,
			Lat:        sensor.Lat,
			Long:       sensor.Long,
			Road:       orUnknown(sensor.Road),
			Fclass:     orUnknown(sensor.RoadClass),
			Prediction: pred,
		})
	}
	out.TotalSensors = len(out.Sensors)
	return out, nil
}

func newStatusCounts() map[string]int {
	counts := make(map[string]int, len(ml.Levels))
	for _, l := range ml.Levels {
		counts[l.Label()] = 0
	}
	return counts
}

func checkHour(hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour must be between 0 and 23, got %d", ErrInvalidQuery, hour)
	}
	return nil
}

func checkDay(day int) error {
	if day < 0 || day > 6 {
		return fmt.Errorf("%w: day must be between 0 (Monday) and 6 (Sunday), got %d", ErrInvalidQuery, day)
	}
	return nil
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

func orUnknown(s string) string {
	if s == "" {
		return unknownLabel
	}
	return s
}
