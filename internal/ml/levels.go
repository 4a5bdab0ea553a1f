package ml

import (
	"fmt"

	"traffic-predictor/internal/common"
)

// Level is the discrete traffic status the classifier predicts.
type Level int

const (
	LevelLancar Level = iota // free flow
	LevelSedang              // moderate
	LevelMacet               // congested
)

// Levels lists every level in class order.
var Levels = []Level{LevelLancar, LevelSedang, LevelMacet}

var levelLabels = [...]string{"Lancar", "Sedang", "Macet"}
var levelColors = [...]string{"#2ecc71", "#f39c12", "#e74c3c"}

func (l Level) Valid() bool {
	return l >= LevelLancar && l <= LevelMacet
}

// Label returns the user-facing status name.
func (l Level) Label() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelLabels[l]
}

// Color returns the display color for the level.
func (l Level) Color() string {
	if !l.Valid() {
		return ""
	}
	return levelColors[l]
}

// Category is a level with its display attributes.
type Category struct {
	Level  Level  `json:"level"`
	Status string `json:"status"`
	Color  string `json:"color"`
}

func CategoryOf(l Level) Category {
	return Category{Level: l, Status: l.Label(), Color: l.Color()}
}

// Thresholds are the low/high occupancy cut points used to categorize a raw
// occupancy fraction without the classifier.
type Thresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Low: common.DefaultThresholdLow, High: common.DefaultThresholdHigh}
}

// Categorize maps an occupancy fraction to a level: below Low is Lancar,
// below High is Sedang, anything else is Macet.
func (t Thresholds) Categorize(occ float64) Category {
	switch {
	case occ < t.Low:
		return CategoryOf(LevelLancar)
	case occ < t.High:
		return CategoryOf(LevelSedang)
	default:
		return CategoryOf(LevelMacet)
	}
}
