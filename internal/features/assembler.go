// Package features builds the feature rows the traffic classifier was trained on.
//
// A row is derived from the query (hour, weekday, sensor, road class), the
// encoders exported with the model and the historical average occupancy of
// the sensor. Unknown categories never fail a request: each lookup returns
// (value, ok) and the caller substitutes the documented default.
package features

import (
	"math"

	"traffic-predictor/internal/common"
	"traffic-predictor/internal/ml"
)

// Column names, in the order the assembler produces them.
const (
	ColHour              = "hour"
	ColHourSin           = "hour_sin"
	ColHourCos           = "hour_cos"
	ColDayOfWeek         = "day_of_week"
	ColDaySin            = "day_sin"
	ColDayCos            = "day_cos"
	ColIsWeekend         = "is_weekend"
	ColIsRushHour        = "is_rush_hour"
	ColTimePeriodEncoded = "time_period_encoded"
	ColInterval          = "interval"
	ColRoadTypeEncoded   = "road_type_encoded"
	ColDetectorEncoded   = "detector_encoded"
	ColAvgFlowPerHour    = "avg_flow_per_hour"
	ColAvgOccPerHour     = "avg_occ_per_hour"
	ColDetectorAvgOcc    = "detector_avg_occ"
)

// NativeColumns is the column order used when the encoder bundle declares none.
var NativeColumns = []string{
	ColHour, ColHourSin, ColHourCos, ColDayOfWeek, ColDaySin, ColDayCos,
	ColIsWeekend, ColIsRushHour, ColTimePeriodEncoded, ColInterval,
	ColRoadTypeEncoded, ColDetectorEncoded, ColAvgFlowPerHour,
	ColAvgOccPerHour, ColDetectorAvgOcc,
}

// HistoryLookup returns the historical mean occupancy of a sensor at an hour
// of a weekday (Monday=0).
type HistoryLookup interface {
	Average(sensorID string, hour, weekday int) (float64, bool)
}

// Row is an ordered feature vector. Values[i] belongs to Columns[i].
type Row struct {
	Columns []string
	Values  []float64
}

func (r Row) Get(name string) (float64, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Map returns the row keyed by column name.
func (r Row) Map() map[string]float64 {
	m := make(map[string]float64, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// Assembler holds the read-only inputs shared by every request.
type Assembler struct {
	encoders *ml.EncoderBundle
	history  HistoryLookup
}

// NewAssembler accepts a nil bundle and a nil history; both degrade to defaults.
func NewAssembler(encoders *ml.EncoderBundle, history HistoryLookup) *Assembler {
	return &Assembler{encoders: encoders, history: history}
}

// Assemble builds the feature row for one sensor at one hour of one weekday.
// A road class the encoder does not know, including "", encodes as 0. It
// always returns a row with exactly the declared columns.
func (a *Assembler) Assemble(hour, weekday int, sensorID, roadClass string) Row {
	isWeekend := boolToFloat(IsWeekend(weekday))
	isRush := boolToFloat(IsRushHour(hour, weekday))

	hourAngle := 2 * math.Pi * float64(hour) / 24
	dayAngle := 2 * math.Pi * float64(weekday) / 7

	detector := 0
	if code, ok := a.encoders.DetectorCode(sensorID); ok {
		detector = code
	}

	roadType := 0
	if code, ok := a.encoders.RoadTypeCode(roadClass); ok {
		roadType = code
	}

	period := 0
	if code, ok := a.encoders.TimePeriodCode(string(TimePeriodOf(hour))); ok {
		period = code
	}

	avgOcc := common.DefaultAvgOccupancy
	if a.history != nil && sensorID != "" {
		if v, ok := a.history.Average(sensorID, hour, weekday); ok {
			avgOcc = v
		}
	}

	values := map[string]float64{
		ColHour:              float64(hour),
		ColHourSin:           math.Sin(hourAngle),
		ColHourCos:           math.Cos(hourAngle),
		ColDayOfWeek:         float64(weekday),
		ColDaySin:            math.Sin(dayAngle),
		ColDayCos:            math.Cos(dayAngle),
		ColIsWeekend:         isWeekend,
		ColIsRushHour:        isRush,
		ColTimePeriodEncoded: float64(period),
		ColInterval:          common.SensorIntervalSecond,
		ColRoadTypeEncoded:   float64(roadType),
		ColDetectorEncoded:   float64(detector),
		ColAvgFlowPerHour:    common.DefaultAvgFlowPerHr,
		ColAvgOccPerHour:     avgOcc,
		ColDetectorAvgOcc:    avgOcc,
	}

	return project(values, a.Columns())
}

// Columns is the column order rows are projected onto.
func (a *Assembler) Columns() []string {
	if cols := a.encoders.Columns(); len(cols) > 0 {
		return cols
	}
	return NativeColumns
}

// project orders values by columns; columns the assembler does not produce are 0.
func project(values map[string]float64, columns []string) Row {
	row := Row{
		Columns: columns,
		Values:  make([]float64, len(columns)),
	}
	for i, c := range columns {
		row.Values[i] = values[c]
	}
	return row
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
