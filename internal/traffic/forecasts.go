package traffic

import (
	"fmt"
	"math"
)

// HourlyOccupancy is one hour of a precomputed forecast, in percent.
type HourlyOccupancy struct {
	Hour      int     `json:"hour"`
	Occupancy float64 `json:"occupancy"`
	Status    string  `json:"status"`
	Color     string  `json:"color"`
}

type SensorForecast struct {
	SensorID       string            `json:"detid"`
	Lat            float64           `json:"lat"`
	Long           float64           `json:"long"`
	Road           string            `json:"road"`
	PredictionDate string            `json:"prediction_date"`
	AvgOccupancy   float64           `json:"avg_occupancy"`
	PeakOccupancy  float64           `json:"peak_occupancy"`
	MinOccupancy   float64           `json:"min_occupancy"`
	PeakHour       int               `json:"peak_hour"`
	CurrentStatus  string            `json:"current_status"`
	CurrentColor   string            `json:"current_color"`
	Hourly         []HourlyOccupancy `json:"hourly"`
}

type ForecastTable struct {
	Available      bool             `json:"available"`
	Hour           *int             `json:"hour"`
	PredictionDate *string          `json:"prediction_date"`
	Source         string           `json:"source,omitempty"`
	Sensors        []SensorForecast `json:"sensors"`
	Stats          map[string]int   `json:"stats"`
	Total          int              `json:"total"`
}

// Forecasts serves the precomputed forecast table with every hour categorized
// by the occupancy thresholds. The current status is taken at hour when given
// (the row average when that hour column is absent), otherwise at the peak.
func (s *Service) Forecasts(hour *int) (*ForecastTable, error) {
	if hour != nil {
		if err := checkHour(*hour); err != nil {
			return nil, err
		}
	}
	if s.state.Forecasts == nil {
		return nil, fmt.Errorf("forecasts: %w", ErrDataUnavailable)
	}

	out := &ForecastTable{
		Available: true,
		Hour:      hour,
		Source:    s.state.ForecastFile,
		Sensors:   make([]SensorForecast, 0, len(s.state.Forecasts)),
		Stats:     newStatusCounts(),
	}
	if len(s.state.Forecasts) > 0 {
		date := s.state.Forecasts[0].PredictionDate
		out.PredictionDate = &date
	}

	for _, row := range s.state.Forecasts {
		hourly := make([]HourlyOccupancy, 0, len(row.Hourly))
		for h := 0; h < 24; h++ {
			occ, ok := row.Hourly[h]
			if !ok {
				continue
			}
			cat := s.thresholds.Categorize(occ)
			hourly = append(hourly, HourlyOccupancy{
				Hour:      h,
				Occupancy: percent(occ, 1),
				Status:    cat.Status,
				Color:     cat.Color,
			})
		}

		current := row.PeakOccupancy
		if hour != nil {
			current = row.AvgOccupancy
			if occ, ok := row.Hourly[*hour]; ok {
				current = occ
			}
		}
		cat := s.thresholds.Categorize(current)
		out.Stats[cat.Status]++

		out.Sensors = append(out.Sensors, SensorForecast{
			SensorID:       row.SensorID,
			Lat:            row.Lat,
			Long:           row.Long,
			Road:           orUnknown(row.Road),
			PredictionDate: row.PredictionDate,
			AvgOccupancy:   percent(row.AvgOccupancy, 1),
			PeakOccupancy:  percent(row.PeakOccupancy, 1),
			MinOccupancy:   percent(row.MinOccupancy, 1),
			PeakHour:       row.PeakHour,
			CurrentStatus:  cat.Status,
			CurrentColor:   cat.Color,
			Hourly:         hourly,
		})
	}
	out.Total = len(out.Sensors)
	return out, nil
}

// percent turns a fraction into a percentage rounded to places decimals.
func percent(fraction float64, places int) float64 {
	return round(fraction*100, places)
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
