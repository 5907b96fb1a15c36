package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/slabworth/compengine/internal/model"
)

const (
	sportsCardsProSource  = "sportscardspro"
	sportsCardsProBaseURL = "https://www.sportscardspro.com"
)

// Grade label -> price cell selector on a SportsCardsPro product page.
// Raw cards read the ungraded cell.
var scpPriceSelectors = map[string]string{
	"":    "#used_price .price.js-price",
	"7":   "#complete_price .price.js-price",
	"8":   "#new_price .price.js-price",
	"9":   "#graded_price .price.js-price",
	"9.5": "#box_only_price .price.js-price",
	"10":  "#manual_only_price .price.js-price",
}

// SportsCardsProAdapter reads the site's current market value for a
// card. The page builds its price table with JavaScript, so the
// adapter drives a headless browser instead of the scrape client. It
// reports a point estimate only, never individual sales.
type SportsCardsProAdapter struct {
	nav     Navigator
	baseURL string
}

// NewSportsCardsProAdapter builds the adapter over a page navigator.
func NewSportsCardsProAdapter(nav Navigator) *SportsCardsProAdapter {
	return &SportsCardsProAdapter{nav: nav, baseURL: sportsCardsProBaseURL}
}

// SetBaseURL points the adapter at a different host for tests.
func (a *SportsCardsProAdapter) SetBaseURL(base string) { a.baseURL = strings.TrimRight(base, "/") }

func (a *SportsCardsProAdapter) Source() string { return sportsCardsProSource }

func (a *SportsCardsProAdapter) FetchComps(ctx context.Context, query model.PricingQuery) (*model.SourceResult, error) {
	page, err := a.nav.Navigate(ctx, a.searchURL(query))
	if err != nil {
		return nil, fmt.Errorf("sportscardspro navigate: %w", err)
	}
	defer page.Close()

	text, err := page.Text(ctx, a.priceSelector(query))
	if err != nil {
		return nil, fmt.Errorf("sportscardspro price cell: %w", err)
	}

	price, ok := parseListingPrice(text)
	if !ok {
		return nil, &NoDataError{Source: sportsCardsProSource, Reason: fmt.Sprintf("unparseable price %q", text)}
	}

	return &model.SourceResult{
		Source:      sportsCardsProSource,
		MarketValue: model.Float64Ptr(price),
		Sales:       []model.SaleRecord{},
	}, nil
}

func (a *SportsCardsProAdapter) searchURL(query model.PricingQuery) string {
	params := url.Values{}
	params.Set("q", searchTerms(query))
	params.Set("type", "prices")
	return a.baseURL + "/search-products?" + params.Encode()
}

// priceSelector maps the queried grade to its price cell. Grades the
// page has no column for fall back to the generic graded cell.
func (a *SportsCardsProAdapter) priceSelector(query model.PricingQuery) string {
	if !query.Graded() {
		return scpPriceSelectors[""]
	}
	if sel, ok := scpPriceSelectors[query.Grading.Grade]; ok {
		return sel
	}
	return scpPriceSelectors["9"]
}
