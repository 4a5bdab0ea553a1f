package refdata

import (
	"strings"

	"traffic-predictor/internal/common"

	"github.com/rs/zerolog/log"
)

// Sensor is a fixed roadway detector. Road and RoadClass are "" when the cell
// is empty. A table without an fclass column gives every sensor the default
// road class.
type Sensor struct {
	ID        string
	Lat       float64
	Long      float64
	Road      string
	RoadClass string
}

// LoadSensors reads the detector table and keeps the rows of one city.
func LoadSensors(path, city string) ([]Sensor, error) {
	sensors := make([]Sensor, 0)
	skipped := 0

	err := forEachRecord(path, []string{"detid", "citycode", "lat", "long"}, func(h header, record []string) error {
		if !strings.EqualFold(h.str(record, "citycode"), city) {
			return nil
		}

		id := h.str(record, "detid")
		lat, okLat := h.float(record, "lat")
		long, okLong := h.float(record, "long")
		if id == "" || !okLat || !okLong {
			skipped++
			return nil
		}

		roadClass := common.DefaultRoadClass
		if h.has("fclass") {
			roadClass = cleanLabel(h.str(record, "fclass"))
		}

		sensors = append(sensors, Sensor{
			ID:        id,
			Lat:       lat,
			Long:      long,
			Road:      cleanLabel(h.str(record, "road")),
			RoadClass: roadClass,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Str("path", path).Msg("Skipped sensors without id or coordinates")
	}

	return sensors, nil
}
