package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/slabworth/compengine/internal/model"
)

const (
	msPerDay = 86400000.0

	// Recency decay: weight halves every 30 days, floored so even
	// ancient sales keep some influence.
	recencyHalfLifeDays = 30.0
	recencyFloor        = 0.20

	// Undated sales carry more uncertainty than even a 90-day-old
	// dated sale, so they sit below the floor.
	undatedWeight = 0.10

	// Minimum pool size before trimming kicks in.
	trimMinSales = 5

	// Share of total weight mass removed from each extreme.
	trimFraction = 0.10
)

// RecencyWeight returns the decay weight for a sale ageDays old.
// Non-increasing in age, bounded to [recencyFloor, 1].
func RecencyWeight(ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Max(recencyFloor, math.Pow(0.5, ageDays/recencyHalfLifeDays))
}

// saleWeight computes the weight of one sale relative to now. Future
// dates clamp to age zero rather than going above 1.0.
func saleWeight(sale model.NormalizedSale, nowMs int64) float64 {
	if sale.DateMs == nil {
		return undatedWeight
	}
	ageDays := float64(nowMs-*sale.DateMs) / msPerDay
	return RecencyWeight(ageDays)
}

// WeightedTrimmedMean computes the recency-weighted, outlier-trimmed
// average with a low/high band. Returns nil for an empty pool.
//
// Below trimMinSales the average is a plain weight-weighted mean of
// everything. From trimMinSales up, the lowest and highest 10% of
// total weight mass are trimmed before averaging, a weighted analogue
// of a trimmed mean: a few very recent extreme sales carry enough mass
// that they cannot be discarded just for being few in number. Low and
// high always report the untrimmed min/max price.
func WeightedTrimmedMean(sales []model.NormalizedSale, now time.Time) *model.Aggregate {
	if len(sales) == 0 {
		return nil
	}

	nowMs := now.UnixMilli()

	type weighted struct {
		price  float64
		weight float64
	}
	pool := make([]weighted, len(sales))
	low, high := sales[0].Price, sales[0].Price
	for i, s := range sales {
		pool[i] = weighted{price: s.Price, weight: saleWeight(s, nowMs)}
		if s.Price < low {
			low = s.Price
		}
		if s.Price > high {
			high = s.Price
		}
	}

	var avg float64
	if len(pool) < trimMinSales {
		var sum, totalWeight float64
		for _, w := range pool {
			sum += w.price * w.weight
			totalWeight += w.weight
		}
		avg = sum / totalWeight
	} else {
		sort.Slice(pool, func(i, j int) bool { return pool[i].price < pool[j].price })

		var totalWeight float64
		for _, w := range pool {
			totalWeight += w.weight
		}
		lowCut := trimFraction * totalWeight
		highCut := (1 - trimFraction) * totalWeight

		// Walk the price-ordered pool and keep only the slice of each
		// sale's weight mass that falls inside [lowCut, highCut].
		// Boundary sales contribute fractionally.
		var sum, keptWeight float64
		cum := 0.0
		for _, w := range pool {
			start := cum
			end := cum + w.weight
			cum = end

			overlap := math.Min(end, highCut) - math.Max(start, lowCut)
			if overlap <= 0 {
				continue
			}
			sum += w.price * overlap
			keptWeight += overlap
		}

		if keptWeight > 0 {
			avg = sum / keptWeight
		} else {
			// Degenerate trim window; fall back to the untrimmed mean.
			var s, tw float64
			for _, w := range pool {
				s += w.price * w.weight
				tw += w.weight
			}
			avg = s / tw
		}
	}

	return &model.Aggregate{Average: avg, Low: low, High: high}
}
