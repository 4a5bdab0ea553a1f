package traffic

import "fmt"

const (
	clusterCount      = 3
	clusterMinSamples = 100
	clusterHighOcc    = 0.07
	clusterMediumOcc  = 0.035
)

// ClusterOf bands a mean occupancy: 0 above 7%, 1 above 3.5%, else 2.
func ClusterOf(avgOcc float64) int {
	switch {
	case avgOcc > clusterHighOcc:
		return 0
	case avgOcc > clusterMediumOcc:
		return 1
	default:
		return 2
	}
}

type ClusteredSensor struct {
	SensorID     string  `json:"detid"`
	Lat          float64 `json:"lat"`
	Long         float64 `json:"long"`
	Road         string  `json:"road"`
	Cluster      int     `json:"cluster"`
	AvgOccupancy float64 `json:"avg_occupancy"`
	StdOccupancy float64 `json:"std_occupancy"`
	SampleCount  int     `json:"sample_count"`
}

type ClusterStat struct {
	Count        int     `json:"count"`
	AvgOccupancy float64 `json:"avg_occupancy"`
}

type ClusteringSummary struct {
	Sensors   []ClusteredSensor   `json:"sensors"`
	Stats     map[int]ClusterStat `json:"stats"`
	Total     int                 `json:"total"`
	NClusters int                 `json:"n_clusters"`
}

// ClusteringSummary groups sensors with enough observations into three fixed
// occupancy bands.
func (s *Service) ClusteringSummary() (*ClusteringSummary, error) {
	if s.state.History == nil || s.state.Sensors == nil {
		return nil, fmt.Errorf("clustering inputs: %w", ErrDataUnavailable)
	}

	type location struct {
		lat, long float64
		road      string
	}
	locations := make(map[string]location, len(s.state.Sensors))
	for _, sensor := range s.state.Sensors {
		if _, dup := locations[sensor.ID]; !dup {
			locations[sensor.ID] = location{sensor.Lat, sensor.Long, sensor.Road}
		}
	}

	out := &ClusteringSummary{
		Sensors:   make([]ClusteredSensor, 0),
		Stats:     make(map[int]ClusterStat),
		NClusters: clusterCount,
	}
	sums := make(map[int]float64)

	for _, stat := range s.state.History.SortedStats() {
		if stat.Count < clusterMinSamples {
			continue
		}
		loc, ok := locations[stat.SensorID]
		if !ok {
			continue
		}

		cluster := ClusterOf(stat.Mean)
		out.Sensors = append(out.Sensors, ClusteredSensor{
			SensorID:     stat.SensorID,
			Lat:          loc.lat,
			Long:         loc.long,
			Road:         orUnknown(loc.road),
			Cluster:      cluster,
			AvgOccupancy: percent(stat.Mean, 2),
			StdOccupancy: percent(stat.StdDev, 2),
			SampleCount:  stat.Count,
		})

		cs := out.Stats[cluster]
		cs.Count++
		out.Stats[cluster] = cs
		sums[cluster] += stat.Mean
	}

	for cluster, cs := range out.Stats {
		cs.AvgOccupancy = percent(sums[cluster]/float64(cs.Count), 2)
		out.Stats[cluster] = cs
	}
	out.Total = len(out.Sensors)
	return out, nil
}

type ClusteringModel struct {
	Name             string   `json:"name"`
	NClusters        *int     `json:"n_clusters"`
	Silhouette       *float64 `json:"silhouette"`
	DaviesBouldin    *float64 `json:"davies_bouldin"`
	CalinskiHarabasz *float64 `json:"calinski_harabasz"`
	TrainingTime     *float64 `json:"training_time"`
	Status           string   `json:"status"`
}

type ClusteringModels struct {
	Models      []ClusteringModel `json:"models"`
	BestQuality *string           `json:"best_quality"`
	BestSpeed   *string           `json:"best_speed"`
	TotalModels int               `json:"total_models"`
}

// ClusteringModels serves the offline comparison table. Among runs that
// report a silhouette, the best quality run has the highest silhouette and
// the best speed run the lowest training time; ties keep the earlier row.
func (s *Service) ClusteringModels() (*ClusteringModels, error) {
	if s.state.Clustering == nil {
		return nil, fmt.Errorf("clustering comparison: %w", ErrDataUnavailable)
	}

	out := &ClusteringModels{
		Models:      make([]ClusteringModel, 0, len(s.state.Clustering)),
		TotalModels: len(s.state.Clustering),
	}

	var bestQuality, bestSpeed *ClusteringModel
	for _, run := range s.state.Clustering {
		out.Models = append(out.Models, ClusteringModel{
			Name:             run.Model,
			NClusters:        run.NClusters,
			Silhouette:       roundPtr(run.Silhouette, 4),
			DaviesBouldin:    roundPtr(run.DaviesBouldin, 4),
			CalinskiHarabasz: roundPtr(run.CalinskiHarabasz, 0),
			TrainingTime:     roundPtr(run.TrainingTime, 2),
			Status:           run.Status,
		})
	}

	for i := range out.Models {
		m := &out.Models[i]
		if m.Silhouette == nil {
			continue
		}
		if bestQuality == nil || *m.Silhouette > *bestQuality.Silhouette {
			bestQuality = m
		}
		if m.TrainingTime != nil && (bestSpeed == nil || *m.TrainingTime < *bestSpeed.TrainingTime) {
			bestSpeed = m
		}
	}
	if bestQuality != nil {
		out.BestQuality = &bestQuality.Name
	}
	if bestSpeed != nil {
		out.BestSpeed = &bestSpeed.Name
	}
	return out, nil
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}
