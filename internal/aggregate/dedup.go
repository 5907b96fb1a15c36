package aggregate

import (
	"math"
	"strings"

	"github.com/slabworth/compengine/internal/model"
)

const (
	// Sales reported within this window can be the same transaction.
	dedupDateWindowMs = 2 * 24 * 60 * 60 * 1000

	// Fixed-dollar floor on the price tolerance. A pure percentage
	// band is unreasonably tight for cheap cards.
	dedupPriceFloor = 0.50
	dedupPricePct   = 0.03

	// Venue label used by sources that aggregate from unknown
	// underlying marketplaces. Compatible with every other venue.
	WildcardVenue = "various"
)

// Marketplace families. Two venue strings that both mention the same
// family ("eBay" vs "ebay auction") count as overlapping.
var venueFamilies = []string{
	"ebay",
	"pwcc",
	"goldin",
	"heritage",
	"comc",
	"mercari",
	"whatnot",
}

// Dedup removes sales that represent the same real-world transaction
// reported by more than one source, keeping the first-seen record of
// each duplicate group. Input order is source-priority order; output
// preserves the first-seen order of survivors.
func Dedup(sales []model.NormalizedSale) []model.NormalizedSale {
	kept := make([]model.NormalizedSale, 0, len(sales))
	for _, candidate := range sales {
		duplicate := false
		for _, existing := range kept {
			if sameSale(existing, candidate) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// sameSale applies the three duplicate conditions: dates within two
// days, prices within tolerance, venues overlapping. Sales with no
// date are never deduplicated against anything, including each other.
func sameSale(a, b model.NormalizedSale) bool {
	if a.DateMs == nil || b.DateMs == nil {
		return false
	}
	if abs64(*a.DateMs-*b.DateMs) > dedupDateWindowMs {
		return false
	}

	tolerance := math.Max(dedupPriceFloor, dedupPricePct*(a.Price+b.Price)/2)
	if math.Abs(a.Price-b.Price) > tolerance {
		return false
	}

	return venuesOverlap(a.Venue, b.Venue)
}

func venuesOverlap(a, b string) bool {
	al := strings.ToLower(strings.TrimSpace(a))
	bl := strings.ToLower(strings.TrimSpace(b))

	if al == WildcardVenue || bl == WildcardVenue {
		return true
	}
	if al == bl {
		return true
	}
	for _, family := range venueFamilies {
		if strings.Contains(al, family) && strings.Contains(bl, family) {
			return true
		}
	}
	return false
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
