// Package refdata loads the flat reference files the prediction service reads
// at startup: sensor metadata, historical observations, precomputed forecasts
// and the clustering comparison table.
//
// Every file is optional. Loaders return an error the caller logs and then
// carries on with a nil table.
package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// header maps column names to their position in a record.
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	names, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	h := make(header, len(names))
	for i, name := range names {
		h[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return h, nil
}

func (h header) has(name string) bool {
	_, ok := h[name]
	return ok
}

// str returns the trimmed cell for name, or "" when the column is absent.
func (h header) str(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// float returns the cell as a number; empty, NaN and infinite cells are missing.
func (h header) float(record []string, name string) (float64, bool) {
	s := h.str(record, name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (h header) floatPtr(record []string, name string) *float64 {
	v, ok := h.float(record, name)
	if !ok {
		return nil
	}
	return &v
}

// forEachRecord opens path and calls fn for every data row.
func forEachRecord(path string, required []string, fn func(h header, record []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return scanRecords(file, required, fn)
}

func scanRecords(r io.Reader, required []string, fn func(h header, record []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	h, err := readHeader(reader, required...)
	if err != nil {
		return err
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		if err := fn(h, record); err != nil {
			return err
		}
	}
}

// cleanLabel turns pandas-style missing markers into "".
func cleanLabel(s string) string {
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return s
}
