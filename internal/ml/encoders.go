package ml

import (
	"encoding/json"
	"fmt"
)

// LabelEncoder maps category strings to the integer codes used at training time.
// Codes are positions in the class list.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder(classes []string) *LabelEncoder {
	e := &LabelEncoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range e.classes {
		if _, dup := e.index[c]; !dup {
			e.index[c] = i
		}
	}
	return e
}

// Transform returns the code for v and whether v was seen at training time.
// A nil encoder knows no categories.
func (e *LabelEncoder) Transform(v string) (int, bool) {
	if e == nil {
		return 0, false
	}
	code, ok := e.index[v]
	return code, ok
}

func (e *LabelEncoder) Classes() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.classes...)
}

func (e *LabelEncoder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.classes)
}

type labelEncoderJSON struct {
	Classes []string `json:"classes"`
}

func (e *LabelEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(labelEncoderJSON{Classes: e.classes})
}

func (e *LabelEncoder) UnmarshalJSON(data []byte) error {
	var raw labelEncoderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = *NewLabelEncoder(raw.Classes)
	return nil
}

// EncoderBundle is everything besides the forest that the training pipeline
// exported: categorical encoders, the feature column order and the occupancy
// thresholds.
type EncoderBundle struct {
	Detector       *LabelEncoder `json:"detector,omitempty"`
	RoadType       *LabelEncoder `json:"road_type,omitempty"`
	TimePeriod     *LabelEncoder `json:"time_period,omitempty"`
	FeatureColumns []string      `json:"feature_columns,omitempty"`
	ThresholdLow   *float64      `json:"threshold_low,omitempty"`
	ThresholdHigh  *float64      `json:"threshold_high,omitempty"`
}

// LoadEncoders reads an encoder bundle artifact.
func LoadEncoders(path string) (*EncoderBundle, error) {
	var b EncoderBundle
	if err := readArtifact(path, &b); err != nil {
		return nil, err
	}
	if b.ThresholdLow != nil && b.ThresholdHigh != nil && *b.ThresholdLow > *b.ThresholdHigh {
		return nil, fmt.Errorf("invalid encoder bundle %s: threshold_low %.4f above threshold_high %.4f",
			path, *b.ThresholdLow, *b.ThresholdHigh)
	}
	return &b, nil
}

func (b *EncoderBundle) Save(path string, level int) error {
	return writeArtifact(path, b, level)
}

// Thresholds returns the bundle's cut points, falling back to the defaults for
// any value the bundle does not carry. Safe on a nil bundle.
func (b *EncoderBundle) Thresholds() Thresholds {
	t := DefaultThresholds()
	if b == nil {
		return t
	}
	if b.ThresholdLow != nil {
		t.Low = *b.ThresholdLow
	}
	if b.ThresholdHigh != nil {
		t.High = *b.ThresholdHigh
	}
	return t
}

// Columns returns the declared feature column order, or nil when unset.
func (b *EncoderBundle) Columns() []string {
	if b == nil {
		return nil
	}
	return b.FeatureColumns
}

// DetectorCode encodes a sensor id. Safe on a nil bundle.
func (b *EncoderBundle) DetectorCode(sensorID string) (int, bool) {
	if b == nil {
		return 0, false
	}
	return b.Detector.Transform(sensorID)
}

// RoadTypeCode encodes a road class. Safe on a nil bundle.
func (b *EncoderBundle) RoadTypeCode(roadClass string) (int, bool) {
	if b == nil {
		return 0, false
	}
	return b.RoadType.Transform(roadClass)
}

// TimePeriodCode encodes a time-period label. Safe on a nil bundle.
func (b *EncoderBundle) TimePeriodCode(period string) (int, bool) {
	if b == nil {
		return 0, false
	}
	return b.TimePeriod.Transform(period)
}
