package refdata

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// HourKey identifies one (sensor, hour, weekday) cell; Weekday is Monday=0.
type HourKey struct {
	SensorID string
	Hour     int
	Weekday  int
}

// HourlyAverages holds at most one mean occupancy per key.
type HourlyAverages map[HourKey]float64

// Average implements features.HistoryLookup. Safe on a nil map.
func (h HourlyAverages) Average(sensorID string, hour, weekday int) (float64, bool) {
	v, ok := h[HourKey{SensorID: sensorID, Hour: hour, Weekday: weekday}]
	return v, ok
}

// SensorStat summarizes every observation of one sensor. StdDev is the sample
// standard deviation and is 0 when Count < 2.
type SensorStat struct {
	SensorID string  `json:"detid"`
	Mean     float64 `json:"avg_occ"`
	StdDev   float64 `json:"std_occ"`
	Count    int     `json:"count"`
}

// History is the aggregated observation table. Raw rows are not kept.
type History struct {
	Averages HourlyAverages
	Stats    map[string]SensorStat
	Records  int
	Skipped  int
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MondayFirst converts a time.Weekday (Sunday=0) to Monday=0..Sunday=6.
func MondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// LoadHistory reads the observation table (datetime, detid, occ) and aggregates it.
func LoadHistory(path string) (*History, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	h, err := AggregateHistory(file)
	if err != nil {
		return nil, err
	}

	if h.Skipped > 0 {
		log.Warn().Int("skipped", h.Skipped).Str("path", path).Msg("Skipped malformed observation rows")
	}
	return h, nil
}

type cellAcc struct {
	sum   float64
	count int
}

// welford accumulates a running mean and variance.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

func (w *welford) std() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

// AggregateHistory groups observations by (sensor, hour, weekday) and by sensor.
func AggregateHistory(r io.Reader) (*History, error) {
	cells := make(map[HourKey]*cellAcc)
	sensors := make(map[string]*welford)
	records, skipped := 0, 0

	err := scanRecords(r, []string{"datetime", "detid", "occ"}, func(h header, record []string) error {
		id := h.str(record, "detid")
		occ, ok := h.float(record, "occ")
		ts, err := parseTimestamp(h.str(record, "datetime"))
		if id == "" || !ok || err != nil {
			skipped++
			return nil
		}
		records++

		k := HourKey{SensorID: id, Hour: ts.Hour(), Weekday: MondayFirst(ts.Weekday())}
		c := cells[k]
		if c == nil {
			c = &cellAcc{}
			cells[k] = c
		}
		c.sum += occ
		c.count++

		w := sensors[id]
		if w == nil {
			w = &welford{}
			sensors[id] = w
		}
		w.add(occ)
		return nil
	})
	if err != nil {
		return nil, err
	}

	hist := &History{
		Averages: make(HourlyAverages, len(cells)),
		Stats:    make(map[string]SensorStat, len(sensors)),
		Records:  records,
		Skipped:  skipped,
	}
	for k, c := range cells {
		hist.Averages[k] = c.sum / float64(c.count)
	}
	for id, w := range sensors {
		hist.Stats[id] = SensorStat{SensorID: id, Mean: w.mean, StdDev: w.std(), Count: w.n}
	}
	return hist, nil
}

// SortedStats returns the per-sensor statistics ordered by sensor id.
func (h *History) SortedStats() []SensorStat {
	if h == nil {
		return nil
	}
	out := make([]SensorStat, 0, len(h.Stats))
	for _, s := range h.Stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}

// Fingerprint identifies a version of a file by name, size and modification time.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%d", filepath.Base(path), info.Size(), info.ModTime().UnixNano()), nil
}

type averageEntry struct {
	SensorID string  `json:"detid"`
	Hour     int     `json:"hour"`
	Weekday  int     `json:"day_of_week"`
	AvgOcc   float64 `json:"avg_occ"`
}

type historySnapshot struct {
	Averages []averageEntry `json:"averages"`
	Stats    []SensorStat   `json:"stats"`
	Records  int            `json:"records"`
	Skipped  int            `json:"skipped"`
}

func (h *History) MarshalJSON() ([]byte, error) {
	snap := historySnapshot{
		Averages: make([]averageEntry, 0, len(h.Averages)),
		Stats:    h.SortedStats(),
		Records:  h.Records,
		Skipped:  h.Skipped,
	}
	for k, v := range h.Averages {
		snap.Averages = append(snap.Averages, averageEntry{SensorID: k.SensorID, Hour: k.Hour, Weekday: k.Weekday, AvgOcc: v})
	}
	return json.Marshal(snap)
}

func (h *History) UnmarshalJSON(data []byte) error {
	var snap historySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	h.Averages = make(HourlyAverages, len(snap.Averages))
	for _, e := range snap.Averages {
		h.Averages[HourKey{SensorID: e.SensorID, Hour: e.Hour, Weekday: e.Weekday}] = e.AvgOcc
	}
	h.Stats = make(map[string]SensorStat, len(snap.Stats))
	for _, s := range snap.Stats {
		h.Stats[s.SensorID] = s
	}
	h.Records = snap.Records
	h.Skipped = snap.Skipped
	return nil
}
