package features

import (
	"math"
	"testing"

	"traffic-predictor/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory map[string]float64

func (f fakeHistory) Average(sensorID string, hour, weekday int) (float64, bool) {
	v, ok := f[key(sensorID, hour, weekday)]
	return v, ok
}

func key(sensorID string, hour, weekday int) string {
	return sensorID + "/" + string(rune('a'+hour)) + string(rune('a'+weekday))
}

func testBundle() *ml.EncoderBundle {
	return &ml.EncoderBundle{
		Detector: ml.NewLabelEncoder([]string{"D1", "D2", "D3"}),
		RoadType: ml.NewLabelEncoder([]string{"motorway", "primary", "secondary"}),
		TimePeriod: ml.NewLabelEncoder([]string{
			"Afternoon", "Evening", "Evening Rush", "Late Morning", "Lunch", "Morning Rush", "Night",
		}),
		FeatureColumns: NativeColumns,
	}
}

func TestAssemble_UnknownSensorStillProducesRow(t *testing.T) {
	a := NewAssembler(testBundle(), nil)

	row := a.Assemble(8, 1, "UNKNOWN", "primary")
	m := row.Map()

	assert.Equal(t, 0.0, m[ColIsWeekend])
	assert.Equal(t, 1.0, m[ColIsRushHour])
	assert.Equal(t, 0.0, m[ColDetectorEncoded])
	assert.Equal(t, 1.0, m[ColRoadTypeEncoded])
	assert.Equal(t, 5.0, m[ColTimePeriodEncoded], "08:00 is Morning Rush")
	assert.Equal(t, NativeColumns, row.Columns)
	assert.Len(t, row.Values, len(NativeColumns))
}

func TestAssemble_KnownCategoriesAndHistory(t *testing.T) {
	history := fakeHistory{key("D2", 18, 3): 0.091}
	a := NewAssembler(testBundle(), history)

	m := a.Assemble(18, 3, "D2", "").Map()
	assert.Equal(t, 1.0, m[ColDetectorEncoded])
	assert.Equal(t, 0.0, m[ColRoadTypeEncoded], "empty road class is an unknown category")
	assert.Equal(t, 2.0, a.Assemble(18, 3, "D2", "secondary").Map()[ColRoadTypeEncoded])
	assert.Equal(t, 2.0, m[ColTimePeriodEncoded], "18:00 is Evening Rush")
	assert.Equal(t, 0.091, m[ColAvgOccPerHour])
	assert.Equal(t, 0.091, m[ColDetectorAvgOcc])
	assert.Equal(t, 100.0, m[ColAvgFlowPerHour])
	assert.Equal(t, 180.0, m[ColInterval])
	assert.Equal(t, 18.0, m[ColHour])
	assert.Equal(t, 3.0, m[ColDayOfWeek])
}

func TestAssemble_HistoryMissDefaults(t *testing.T) {
	history := fakeHistory{key("D2", 18, 3): 0.091}
	a := NewAssembler(testBundle(), history)

	m := a.Assemble(19, 3, "D2", "primary").Map()
	assert.Equal(t, 0.05, m[ColAvgOccPerHour])

	m = a.Assemble(18, 3, "", "primary").Map()
	assert.Equal(t, 0.05, m[ColDetectorAvgOcc], "no sensor id means no lookup")
}

func TestAssemble_NilBundleUsesNativeColumns(t *testing.T) {
	a := NewAssembler(nil, nil)

	row := a.Assemble(23, 6, "D1", "primary")
	assert.Equal(t, NativeColumns, row.Columns)

	m := row.Map()
	assert.Equal(t, 0.0, m[ColDetectorEncoded])
	assert.Equal(t, 0.0, m[ColRoadTypeEncoded])
	assert.Equal(t, 0.0, m[ColTimePeriodEncoded])
	assert.Equal(t, 1.0, m[ColIsWeekend])
	assert.Equal(t, 0.0, m[ColIsRushHour])
}

func TestAssemble_ProjectsOntoDeclaredColumns(t *testing.T) {
	b := testBundle()
	b.FeatureColumns = []string{ColDetectorEncoded, "lane_count", ColHour}
	a := NewAssembler(b, nil)

	row := a.Assemble(10, 2, "D3", "primary")
	require.Equal(t, []string{ColDetectorEncoded, "lane_count", ColHour}, row.Columns)
	assert.Equal(t, []float64{2, 0, 10}, row.Values)

	_, ok := row.Get(ColHourSin)
	assert.False(t, ok, "undeclared columns are dropped")
}

func TestAssemble_RowAlwaysMatchesDeclaredColumns(t *testing.T) {
	b := testBundle()
	b.FeatureColumns = append([]string{"extra_a"}, NativeColumns...)
	a := NewAssembler(b, nil)

	for hour := 0; hour < 24; hour++ {
		for day := 0; day < 7; day++ {
			for _, sensor := range []string{"D1", "nope", ""} {
				row := a.Assemble(hour, day, sensor, "unseen-road")
				assert.Equal(t, b.FeatureColumns, row.Columns)
				assert.Len(t, row.Values, len(b.FeatureColumns))
			}
		}
	}
}

func TestAssemble_CyclicalEncodings(t *testing.T) {
	a := NewAssembler(nil, nil)

	m := a.Assemble(0, 0, "", "").Map()
	assert.Equal(t, 0.0, m[ColHourSin])
	assert.Equal(t, 1.0, m[ColHourCos])
	assert.Equal(t, 0.0, m[ColDaySin])
	assert.Equal(t, 1.0, m[ColDayCos])

	m = a.Assemble(6, 0, "", "").Map()
	assert.InDelta(t, 1.0, m[ColHourSin], 1e-12)
	assert.InDelta(t, 0.0, m[ColHourCos], 1e-12)

	for h := 0; h < 24; h++ {
		base := a.Assemble(h, 0, "", "").Map()
		shifted := a.Assemble(h+24, 0, "", "").Map()
		assert.InDelta(t, base[ColHourSin], shifted[ColHourSin], 1e-9, "hour %d", h)
		assert.InDelta(t, base[ColHourCos], shifted[ColHourCos], 1e-9, "hour %d", h)
	}

	m = a.Assemble(0, 3, "", "").Map()
	assert.InDelta(t, math.Sin(2*math.Pi*3/7), m[ColDaySin], 1e-12)
}

func TestIsRushHour(t *testing.T) {
	rush := map[int]bool{7: true, 8: true, 9: true, 17: true, 18: true, 19: true}

	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			want := day < 5 && rush[hour]
			assert.Equal(t, want, IsRushHour(hour, day), "hour %d day %d", hour, day)
		}
	}
}

func TestTimePeriodOf_Partition(t *testing.T) {
	want := map[TimePeriod][]int{
		Night:       {0, 1, 2, 3, 4, 5},
		MorningRush: {6, 7, 8},
		LateMorning: {9, 10, 11},
		Lunch:       {12, 13},
		Afternoon:   {14, 15, 16},
		EveningRush: {17, 18, 19},
		Evening:     {20, 21, 22, 23},
	}

	seen := make(map[int]int)
	for period, hours := range want {
		for _, h := range hours {
			assert.Equal(t, period, TimePeriodOf(h), "hour %d", h)
			seen[h]++
		}
	}

	assert.Len(t, seen, 24)
	for h, n := range seen {
		assert.Equal(t, 1, n, "hour %d mapped more than once", h)
	}

	assert.Equal(t, Night, TimePeriodOf(24))
	assert.Equal(t, Evening, TimePeriodOf(-1))
}
