package aggregate

import (
	"testing"
	"time"

	"github.com/slabworth/compengine/internal/model"
)

func dated(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}

func TestDedup_ConsecutiveDaysWithinTolerance(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sales := []model.NormalizedSale{
		{Price: 100.00, DateMs: dated(day), Venue: "eBay", Source: "a"},
		{Price: 102.50, DateMs: dated(day.Add(24 * time.Hour)), Venue: "ebay auction", Source: "b"},
	}

	got := Dedup(sales)
	if len(got) != 1 {
		t.Fatalf("expected duplicate pair to collapse to 1, got %d", len(got))
	}
	if got[0].Source != "a" {
		t.Errorf("expected first-seen record kept, got source %q", got[0].Source)
	}
}

func TestDedup_PriceGapBeyondTolerance(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sales := []model.NormalizedSale{
		{Price: 100, DateMs: dated(day), Venue: "eBay", Source: "a"},
		{Price: 104, DateMs: dated(day), Venue: "eBay", Source: "b"},
	}

	// 4% gap exceeds the 3% band and the $0.50 floor doesn't help here.
	if got := Dedup(sales); len(got) != 2 {
		t.Fatalf("expected both sales kept, got %d", len(got))
	}
}

func TestDedup_FloorProtectsCheapCards(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sales := []model.NormalizedSale{
		{Price: 5.00, DateMs: dated(day), Venue: "eBay", Source: "a"},
		{Price: 5.40, DateMs: dated(day), Venue: "eBay", Source: "b"},
	}

	// 3% of $5.20 is only 16 cents; the $0.50 floor makes these dupes.
	if got := Dedup(sales); len(got) != 1 {
		t.Fatalf("expected cheap-card pair to collapse, got %d", len(got))
	}
}

func TestDedup_NilDatesNeverCollapse(t *testing.T) {
	sales := []model.NormalizedSale{
		{Price: 100, Venue: "eBay", Source: "a"},
		{Price: 100, Venue: "eBay", Source: "b"},
	}

	if got := Dedup(sales); len(got) != 2 {
		t.Fatalf("undated sales must never dedup, got %d", len(got))
	}
}

func TestDedup_WildcardVenueMatchesAnything(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sales := []model.NormalizedSale{
		{Price: 250, DateMs: dated(day), Venue: "Goldin Auctions", Source: "a"},
		{Price: 251, DateMs: dated(day), Venue: WildcardVenue, Source: "b"},
	}

	if got := Dedup(sales); len(got) != 1 {
		t.Fatalf("wildcard venue should overlap with any venue, got %d", len(got))
	}
}

func TestDedup_DistinctVenuesKept(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sales := []model.NormalizedSale{
		{Price: 100, DateMs: dated(day), Venue: "PWCC", Source: "a"},
		{Price: 100, DateMs: dated(day), Venue: "Heritage", Source: "b"},
	}

	if got := Dedup(sales); len(got) != 2 {
		t.Fatalf("different venue families should not collapse, got %d", len(got))
	}
}

func TestDedup_Idempotent(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sales := []model.NormalizedSale{
		{Price: 100.00, DateMs: dated(day), Venue: "eBay", Source: "a"},
		{Price: 101.00, DateMs: dated(day), Venue: "eBay", Source: "b"},
		{Price: 300.00, DateMs: dated(day), Venue: "PWCC", Source: "a"},
		{Price: 42.00, Venue: "eBay", Source: "c"},
	}

	once := Dedup(sales)
	twice := Dedup(once)

	if len(once) != len(twice) {
		t.Fatalf("dedup not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("record %d changed across second pass", i)
		}
	}
}

func TestDedup_PreservesFirstSeenOrder(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sales := []model.NormalizedSale{
		{Price: 10, DateMs: dated(day), Venue: "eBay", Source: "a"},
		{Price: 500, DateMs: dated(day), Venue: "PWCC", Source: "a"},
		{Price: 10.25, DateMs: dated(day), Venue: "eBay", Source: "b"}, // dup of first
		{Price: 75, DateMs: dated(day), Venue: "COMC", Source: "b"},
	}

	got := Dedup(sales)
	want := []float64{10, 500, 75}
	if len(got) != len(want) {
		t.Fatalf("expected %d survivors, got %d", len(want), len(got))
	}
	for i, price := range want {
		if got[i].Price != price {
			t.Errorf("survivor %d: expected price %.2f, got %.2f", i, price, got[i].Price)
		}
	}
}
