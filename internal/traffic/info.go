package traffic

import (
	"time"

	"traffic-predictor/internal/ml"
)

const (
	detectorListLimit = 100
	topFeatureCount   = 5
)

type ForestInfo struct {
	Available   bool   `json:"available"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Features    int    `json:"features"`
	Trees       int    `json:"trees,omitempty"`
	Accuracy    string `json:"accuracy"`
	UseCase     string `json:"use_case"`

	TopFeatures []ml.FeatureStats `json:"top_features,omitempty"`
}

type ForecastInfo struct {
	Available   bool   `json:"available"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Sensors     int    `json:"sensors"`
	UseCase     string `json:"use_case"`
}

type ClusteringInfo struct {
	Available   bool   `json:"available"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	NClusters   int    `json:"n_clusters"`
	UseCase     string `json:"use_case"`
}

type ThresholdInfo struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

type ModelsInfo struct {
	RandomForest ForestInfo     `json:"random_forest"`
	Prophet      ForecastInfo   `json:"prophet"`
	Spectral     ClusteringInfo `json:"spectral"`
	Thresholds   ThresholdInfo  `json:"thresholds"`
	LoadedAt     time.Time      `json:"loaded_at"`
}

// ModelsInfo describes which artifacts are loaded and the thresholds in use.
func (s *Service) ModelsInfo() *ModelsInfo {
	st := s.state

	info := &ModelsInfo{
		RandomForest: ForestInfo{
			Available:   st.Forest != nil,
			Name:        "Random Forest Classifier",
			Type:        "Supervised Learning - Classification",
			Description: "Klasifikasi status traffic (Lancar/Sedang/Macet) berdasarkan waktu dan lokasi sensor",
			Features:    len(st.Encoders.Columns()),
			Accuracy:    "85%",
			UseCase:     "Prediksi real-time status traffic per jam",
		},
		Prophet: ForecastInfo{
			Available:   st.Forecasts != nil,
			Name:        "Facebook Prophet",
			Type:        "Time Series Forecasting",
			Description: "Prediksi occupancy traffic 24 jam mendatang untuk setiap sensor",
			Sensors:     len(st.Forecasts),
			UseCase:     "Forecasting jangka pendek (24 jam)",
		},
		Spectral: ClusteringInfo{
			Available:   st.History != nil && st.Sensors != nil,
			Name:        "Spectral Clustering",
			Type:        "Unsupervised Learning - Clustering",
			Description: "Mengelompokkan sensor berdasarkan pola karakteristik traffic yang serupa",
			NClusters:   clusterCount,
			UseCase:     "Analisis pola dan segmentasi sensor",
		},
		Thresholds: ThresholdInfo{
			Low:  round(s.thresholds.Low, 4),
			High: round(s.thresholds.High, 4),
		},
		LoadedAt: st.LoadedAt,
	}
	if st.Forest != nil {
		info.RandomForest.Trees = len(st.Forest.Estimators)
		info.RandomForest.TopFeatures = s.importance
		if len(s.importance) > topFeatureCount {
			info.RandomForest.TopFeatures = s.importance[:topFeatureCount]
		}
	}
	return info
}

type Detector struct {
	SensorID string `json:"detid"`
	Road     string `json:"road"`
	Fclass   string `json:"fclass"`
}

// Detectors lists the first sensors for UI pickers. It is empty, not an
// error, when no detector data is loaded.
func (s *Service) Detectors() []Detector {
	n := len(s.state.Sensors)
	if n > detectorListLimit {
		n = detectorListLimit
	}

	out := make([]Detector, 0, n)
	for _, sensor := range s.state.Sensors[:n] {
		out = append(out, Detector{
			SensorID: sensor.ID,
			Road:     orUnknown(sensor.Road),
			Fclass:   orUnknown(sensor.RoadClass),
		})
	}
	return out
}

// Health is a compact readiness summary.
type Health struct {
	Status    string          `json:"status"`
	ModelUsed string          `json:"model_used"`
	Loaded    map[string]bool `json:"loaded"`
	Sensors   int             `json:"sensors"`
	Uptime    string          `json:"uptime"`
}

func (s *Service) Health(now time.Time) Health {
	st := s.state
	return Health{
		Status:    "ok",
		ModelUsed: s.ModelUsed(),
		Loaded: map[string]bool{
			"model":      st.Forest != nil,
			"encoders":   st.Encoders != nil,
			"detectors":  st.Sensors != nil,
			"history":    st.History != nil,
			"forecasts":  st.Forecasts != nil,
			"clustering": st.Clustering != nil,
		},
		Sensors: len(st.Sensors),
		Uptime:  now.Sub(st.LoadedAt).Truncate(time.Second).String(),
	}
}
