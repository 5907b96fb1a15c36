package population

import "math"

// Rarity tiers by population count at the exact requested grade.
const (
	TierUltraLow = "ultra-low"
	TierLow      = "low"
	TierMedium   = "medium"
	TierHigh     = "high"
	TierVeryHigh = "very-high"
)

// Multiplier bounds. Scarcity can lift a price at most 25% and a
// saturated population can discount it at most 5%.
const (
	multiplierFloor = 0.95
	multiplierCeil  = 1.25
)

// Anchor points for the population multiplier curve, interpolated
// piecewise-linearly in log10(pop).
var multiplierAnchors = []struct {
	pop   float64
	value float64
}{
	{1, 1.25},
	{5, 1.18},
	{10, 1.15},
	{100, 1.05},
	{500, 0.98},
	{1000, 0.95},
}

// ClassifyRarityTier buckets a target-grade population count.
func ClassifyRarityTier(targetGradePop int) string {
	switch {
	case targetGradePop <= 5:
		return TierUltraLow
	case targetGradePop <= 25:
		return TierLow
	case targetGradePop <= 100:
		return TierMedium
	case targetGradePop <= 500:
		return TierHigh
	default:
		return TierVeryHigh
	}
}

// ComputePercentile returns the share of the total population at or
// above the target grade, as a percentage rounded to two decimals.
// Zero when nothing has been graded.
func ComputePercentile(targetGradePop, higherGradePop, totalGraded int) float64 {
	if totalGraded == 0 {
		return 0
	}
	pct := float64(targetGradePop+higherGradePop) / float64(totalGraded) * 100
	return math.Round(pct*100) / 100
}

// PriceMultiplier converts a target-grade population count into a
// price adjustment factor. Monotonically non-increasing in pop and
// clamped to [0.95, 1.25]: a brand-new or unpopulated grade gets the
// full scarcity premium, a thousand-plus population gets the floor.
func PriceMultiplier(targetGradePop int) float64 {
	anchors := multiplierAnchors
	if targetGradePop <= 1 {
		return multiplierCeil
	}
	if float64(targetGradePop) >= anchors[len(anchors)-1].pop {
		return multiplierFloor
	}

	x := math.Log10(float64(targetGradePop))
	for i := 1; i < len(anchors); i++ {
		hi := anchors[i]
		if float64(targetGradePop) > hi.pop {
			continue
		}
		lo := anchors[i-1]
		x0, x1 := math.Log10(lo.pop), math.Log10(hi.pop)
		t := (x - x0) / (x1 - x0)
		m := lo.value + t*(hi.value-lo.value)
		return clampMultiplier(m)
	}
	return multiplierFloor
}

func clampMultiplier(m float64) float64 {
	if m < multiplierFloor {
		return multiplierFloor
	}
	if m > multiplierCeil {
		return multiplierCeil
	}
	return m
}
