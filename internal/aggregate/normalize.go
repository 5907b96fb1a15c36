package aggregate

import (
	"strings"
	"time"

	"github.com/slabworth/compengine/internal/model"
)

// Date layouts seen across source adapters, tried in order. Upstream
// dates are free text, so anything unparseable normalizes to nil.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
}

// ParseSaleDate converts a source's free-form date text to epoch
// milliseconds. Returns nil for empty or unrecognized text.
func ParseSaleDate(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			ms := t.UnixMilli()
			return &ms
		}
	}
	return nil
}

// Normalize converts one source's sale records into the internal
// pipeline shape, parsing dates and tagging the originating adapter.
func Normalize(source string, sales []model.SaleRecord) []model.NormalizedSale {
	out := make([]model.NormalizedSale, 0, len(sales))
	for _, s := range sales {
		out = append(out, model.NormalizedSale{
			Price:  s.Price,
			DateMs: ParseSaleDate(s.Date),
			Venue:  s.Venue,
			Source: source,
		})
	}
	return out
}
