package aggregate

import "github.com/slabworth/compengine/internal/model"

// Reliability weights for the point-estimate blend, keyed by source
// name. Fixed per-source configuration, never derived at runtime: a
// source backed by verified sale volume weighs 1.0, one backed by a
// single inferred asking price weighs less.
type Reliability map[string]float64

// defaultReliability applies to sources with no configured weight.
const defaultReliability = 1.0

func (r Reliability) weight(source string) float64 {
	if r == nil {
		return defaultReliability
	}
	if w, ok := r[source]; ok && w > 0 {
		return w
	}
	return defaultReliability
}

// FallbackBlend computes a reliability-weighted blend of per-source
// point estimates. Used only when the sale pool is empty. Each source
// contributes its MarketValue, or failing that its AveragePrice; a
// source with neither (or with an error) is skipped. Low and high are
// the min/max of the raw estimates used. Returns nil when no source
// has a usable estimate.
func FallbackBlend(results []model.SourceResult, reliability Reliability) *model.Aggregate {
	var weightedSum, totalWeight float64
	var low, high float64
	used := 0

	for _, res := range results {
		if res.Error != "" {
			continue
		}
		estimate := res.MarketValue
		if estimate == nil {
			estimate = res.AveragePrice
		}
		if estimate == nil {
			continue
		}

		w := reliability.weight(res.Source)
		weightedSum += *estimate * w
		totalWeight += w

		if used == 0 || *estimate < low {
			low = *estimate
		}
		if used == 0 || *estimate > high {
			high = *estimate
		}
		used++
	}

	if used == 0 || totalWeight == 0 {
		return nil
	}

	return &model.Aggregate{
		Average: weightedSum / totalWeight,
		Low:     low,
		High:    high,
	}
}
