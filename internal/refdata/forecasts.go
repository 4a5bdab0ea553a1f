package refdata

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ForecastRow is one sensor's precomputed 24-hour occupancy forecast.
// Hourly holds only the hour_HH columns present in the file.
type ForecastRow struct {
	SensorID       string
	Lat            float64
	Long           float64
	Road           string
	PredictionDate string
	AvgOccupancy   float64
	PeakOccupancy  float64
	MinOccupancy   float64
	PeakHour       int
	Hourly         map[int]float64
}

// HourColumn is the forecast column name for hour h.
func HourColumn(h int) string {
	return fmt.Sprintf("hour_%02d", h)
}

// LatestForecastFile returns the lexicographically last file in dir whose
// name starts with prefix, or "" when there is none.
func LatestForecastFile(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}

	sort.Strings(names)
	return names[len(names)-1], nil
}

// LoadForecasts reads a forecast table. Rows without coordinates or without
// the occupancy summary are skipped.
func LoadForecasts(path string) ([]ForecastRow, error) {
	rows := make([]ForecastRow, 0)
	skipped := 0

	required := []string{"detid", "lat", "long", "prediction_date", "avg_occupancy", "peak_occupancy", "min_occupancy", "peak_hour"}
	err := forEachRecord(path, required, func(h header, record []string) error {
		row := ForecastRow{
			SensorID:       h.str(record, "detid"),
			Road:           cleanLabel(h.str(record, "road")),
			PredictionDate: h.str(record, "prediction_date"),
			Hourly:         make(map[int]float64, 24),
		}

		var okLat, okLong, okAvg, okPeak, okMin bool
		row.Lat, okLat = h.float(record, "lat")
		row.Long, okLong = h.float(record, "long")
		row.AvgOccupancy, okAvg = h.float(record, "avg_occupancy")
		row.PeakOccupancy, okPeak = h.float(record, "peak_occupancy")
		row.MinOccupancy, okMin = h.float(record, "min_occupancy")
		if !okLat || !okLong || !okAvg || !okPeak || !okMin {
			skipped++
			return nil
		}
		if peak, ok := h.float(record, "peak_hour"); ok {
			row.PeakHour = int(peak)
		}

		for hour := 0; hour < 24; hour++ {
			if v, ok := h.float(record, HourColumn(hour)); ok {
				row.Hourly[hour] = v
			}
		}

		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Str("path", path).Msg("Skipped forecast rows without coordinates or occupancy")
	}
	return rows, nil
}
