package ml

import (
	"fmt"
	"sort"
)

// FeatureStats summarizes how much a forest relies on one feature.
type FeatureStats struct {
	Name       string  `json:"name"`
	Splits     int     `json:"splits"`
	Importance float64 `json:"importance"`
}

// FeatureImportance weighs every split by the training samples that reached
// it (the sum of the node's class counts) and normalizes per feature so the
// scores sum to 1. Features the forest never splits on are omitted. The result
// is ordered by descending importance.
func (f *Forest) FeatureImportance() []FeatureStats {
	weights := make(map[int]float64)
	splits := make(map[int]int)
	var total float64

	for ti := range f.Estimators {
		t := &f.Estimators[ti]
		for i, left := range t.ChildrenLeft {
			if left == leafNode {
				continue
			}
			var w float64
			for _, v := range t.Value[i] {
				w += v
			}
			weights[t.Feature[i]] += w
			splits[t.Feature[i]]++
			total += w
		}
	}

	stats := make([]FeatureStats, 0, len(weights))
	for feature, w := range weights {
		s := FeatureStats{Name: f.featureName(feature), Splits: splits[feature]}
		if total > 0 {
			s.Importance = w / total
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Importance != stats[j].Importance {
			return stats[i].Importance > stats[j].Importance
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

func (f *Forest) featureName(i int) string {
	if i < len(f.FeatureNames) {
		return f.FeatureNames[i]
	}
	return fmt.Sprintf("feature_%d", i)
}
