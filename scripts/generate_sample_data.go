// Command generate_sample_data writes a small, self-consistent set of
// artifacts and reference tables so the server can run locally without the
// real training outputs.
//
//	go run ./scripts -out ./sample
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"traffic-predictor/internal/common"
	"traffic-predictor/internal/features"
	"traffic-predictor/internal/ml"
	"traffic-predictor/internal/refdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var roadClasses = []string{"primary", "secondary", "tertiary", "residential", "trunk"}

type sensor struct {
	id, road, fclass string
	lat, long, base  float64
}

func main() {
	var (
		outDir  = flag.String("out", "sample", "Output directory")
		sensors = flag.Int("sensors", 40, "Number of sensors")
		days    = flag.Int("days", 14, "Days of hourly observations")
		trees   = flag.Int("trees", 100, "Number of trees in the sample forest")
		seed    = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output dir")
	}

	ss := makeSensors(rng, *sensors)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	steps := []struct {
		name string
		fn   func() error
	}{
		{common.DefaultDetectorsFile, func() error { return writeDetectors(filepath.Join(*outDir, common.DefaultDetectorsFile), ss) }},
		{common.DefaultTrafficFile, func() error {
			return writeObservations(filepath.Join(*outDir, common.DefaultTrafficFile), rng, ss, start, *days)
		}},
		{"forecasts", func() error {
			date := start.AddDate(0, 0, *days)
			name := fmt.Sprintf("%s%s.csv", common.DefaultForecastPrefix, date.Format("20060102"))
			return writeForecasts(filepath.Join(*outDir, name), rng, ss, date)
		}},
		{common.DefaultClusteringFile, func() error { return writeClustering(filepath.Join(*outDir, common.DefaultClusteringFile)) }},
		{common.DefaultEncodersFile, func() error { return writeEncoders(filepath.Join(*outDir, common.DefaultEncodersFile), ss) }},
		{common.DefaultModelFile, func() error {
			return sampleForest(rng, *trees).Save(filepath.Join(*outDir, common.DefaultModelFile), 6)
		}},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			log.Fatal().Err(err).Str("step", s.name).Msg("generation failed")
		}
		log.Info().Str("step", s.name).Msg("written")
	}

	fmt.Printf("Sample data written to %s. Run the server with BASE_PATH=%s\n", *outDir, *outDir)
}

func makeSensors(rng *rand.Rand, n int) []sensor {
	out := make([]sensor, n)
	for i := range out {
		out[i] = sensor{
			id:     fmt.Sprintf("MRS%03d", i+1),
			road:   fmt.Sprintf("Boulevard %d", i%12+1),
			fclass: roadClasses[rng.Intn(len(roadClasses))],
			lat:    43.25 + rng.Float64()*0.1,
			long:   5.33 + rng.Float64()*0.12,
			base:   0.015 + rng.Float64()*0.06,
		}
	}
	// One sensor without road metadata.
	if n > 0 {
		out[n-1].road, out[n-1].fclass = "", ""
	}
	return out
}

// occupancy is the synthetic occupancy of s at hour of weekday (Monday=0).
func occupancy(rng *rand.Rand, s sensor, hour, weekday int) float64 {
	occ := s.base * (0.4 + 0.6*math.Max(0, math.Sin(math.Pi*float64(hour-5)/16)))
	if features.IsRushHour(hour, weekday) {
		occ *= 1.8
	}
	if features.IsWeekend(weekday) {
		occ *= 0.7
	}
	occ += rng.NormFloat64() * 0.004
	return math.Max(0, occ)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeDetectors(path string, ss []sensor) error {
	rows := make([][]string, 0, len(ss)+1)
	for _, s := range ss {
		rows = append(rows, []string{s.id, common.DefaultCityCode, ff(s.lat), ff(s.long), s.road, s.fclass})
	}
	rows = append(rows, []string{"PAR001", "paris", "48.85", "2.35", "Rue de Rivoli", "primary"})
	return writeCSV(path, []string{"detid", "citycode", "lat", "long", "road", "fclass"}, rows)
}

func writeObservations(path string, rng *rand.Rand, ss []sensor, start time.Time, days int) error {
	rows := make([][]string, 0, len(ss)*days*24)
	for d := 0; d < days; d++ {
		for h := 0; h < 24; h++ {
			ts := start.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
			wd := refdata.MondayFirst(ts.Weekday())
			for _, s := range ss {
				rows = append(rows, []string{ts.Format("2006-01-02 15:04:05"), s.id, ff(occupancy(rng, s, h, wd))})
			}
		}
	}
	return writeCSV(path, []string{"datetime", "detid", "occ"}, rows)
}

func writeForecasts(path string, rng *rand.Rand, ss []sensor, date time.Time) error {
	header := []string{"detid", "lat", "long", "road", "prediction_date", "avg_occupancy", "peak_occupancy", "min_occupancy", "peak_hour"}
	for h := 0; h < 24; h++ {
		header = append(header, refdata.HourColumn(h))
	}

	wd := refdata.MondayFirst(date.Weekday())
	rows := make([][]string, 0, len(ss))
	for _, s := range ss {
		hourly := make([]float64, 24)
		sum, peak, peakHour, minOcc := 0.0, -1.0, 0, math.MaxFloat64
		for h := range hourly {
			hourly[h] = occupancy(rng, s, h, wd)
			sum += hourly[h]
			if hourly[h] > peak {
				peak, peakHour = hourly[h], h
			}
			minOcc = math.Min(minOcc, hourly[h])
		}

		row := []string{s.id, ff(s.lat), ff(s.long), s.road, date.Format("2006-01-02"),
			ff(sum / 24), ff(peak), ff(minOcc), fmt.Sprint(peakHour)}
		for _, v := range hourly {
			row = append(row, ff(v))
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

func writeClustering(path string) error {
	return writeCSV(path,
		[]string{"Model", "N_Clusters", "Silhouette", "Davies_Bouldin", "Calinski_Harabasz", "Training_Time", "Status"},
		[][]string{
			{"Spectral Clustering", "3", "0.6123", "0.5412", "1834.2", "14.52", "Success"},
			{"K-Means", "3", "0.5871", "0.6020", "1720.9", "0.84", "Success"},
			{"Agglomerative", "3", "0.5502", "0.6633", "1601.0", "3.17", "Success"},
			{"DBSCAN", "", "", "", "", "2.05", "Failed"},
		})
}

func writeEncoders(path string, ss []sensor) error {
	ids := make([]string, len(ss))
	for i, s := range ss {
		ids[i] = s.id
	}
	periods := []string{
		string(features.Afternoon), string(features.Evening), string(features.EveningRush),
		string(features.LateMorning), string(features.Lunch), string(features.MorningRush), string(features.Night),
	}
	low, high := common.DefaultThresholdLow, common.DefaultThresholdHigh

	bundle := &ml.EncoderBundle{
		Detector:       ml.NewLabelEncoder(ids),
		RoadType:       ml.NewLabelEncoder([]string{"primary", "residential", "secondary", "tertiary", "trunk"}),
		TimePeriod:     ml.NewLabelEncoder(periods),
		FeatureColumns: features.NativeColumns,
		ThresholdLow:   &low,
		ThresholdHigh:  &high,
	}
	return bundle.Save(path, 0)
}

// sampleForest builds depth-2 trees: rush hour splits first, then either the
// historical average or the weekend flag.
func sampleForest(rng *rand.Rand, n int) *ml.Forest {
	col := func(name string) int {
		for i, c := range features.NativeColumns {
			if c == name {
				return i
			}
		}
		panic("unknown column " + name)
	}
	rush, avg, weekend := col(features.ColIsRushHour), col(features.ColAvgOccPerHour), col(features.ColIsWeekend)

	f := &ml.Forest{NClasses: 3, Classes: []int{0, 1, 2}, FeatureNames: features.NativeColumns}
	for i := 0; i < n; i++ {
		jitter := func() float64 { return 1 + rng.Float64()*4 }
		f.Estimators = append(f.Estimators, ml.Tree{
			ChildrenLeft:  []int{1, 2, -1, -1, 5, -1, -1},
			ChildrenRight: []int{4, 3, -1, -1, 6, -1, -1},
			Feature:       []int{rush, avg, -2, -2, weekend, -2, -2},
			Threshold:     []float64{0.5, 0.04 + rng.Float64()*0.03, -2, -2, 0.5, -2, -2},
			Value: [][]float64{
				{30, 20, 10},
				{25, 10, 5},
				{20 * jitter(), 4, 1},
				{4, 10 * jitter(), 4},
				{5, 10, 5},
				{1, 4, 10 * jitter()},
				{3, 8 * jitter(), 2},
			},
		})
	}
	if err := f.Validate(); err != nil {
		panic(err)
	}
	return f
}

func ff(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
