package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/slabworth/compengine/internal/model"
)

const (
	ebaySource         = "ebay"
	ebayBaseURL        = "https://www.ebay.com"
	ebayRequestsPerMin = 20
	ebayTimeout        = 30 * time.Second
)

var listingPriceRe = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// EbayAdapter scrapes completed-sale listings from eBay search results.
type EbayAdapter struct {
	client  *ScrapeClient
	baseURL string
}

// NewEbayAdapter builds the adapter with its own rate-limited client.
func NewEbayAdapter() *EbayAdapter {
	return &EbayAdapter{
		client:  NewScrapeClient(ebaySource, ebayTimeout, ebayRequestsPerMin),
		baseURL: ebayBaseURL,
	}
}

// SetBaseURL points the adapter at a different host. Tests use this to
// serve canned pages locally.
func (a *EbayAdapter) SetBaseURL(base string) { a.baseURL = strings.TrimRight(base, "/") }

func (a *EbayAdapter) Source() string { return ebaySource }

// FetchComps searches sold+completed listings for the query and parses
// each result row into a SaleRecord. Listings without a parseable price
// are skipped; a page with zero usable listings is still a success.
func (a *EbayAdapter) FetchComps(ctx context.Context, query model.PricingQuery) (*model.SourceResult, error) {
	body, err := a.client.Get(ctx, a.searchURL(query))
	if err != nil {
		return nil, fmt.Errorf("ebay search: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse ebay page: %w", err)
	}

	sales := []model.SaleRecord{}
	doc.Find("li.s-item").Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(".s-item__title").Text())
		if title == "" || strings.EqualFold(title, "Shop on eBay") {
			return
		}

		price, ok := parseListingPrice(item.Find(".s-item__price").Text())
		if !ok {
			return
		}

		sales = append(sales, model.SaleRecord{
			Price: price,
			Date:  soldDate(item),
			Venue: "eBay",
			Title: title,
		})
	})

	return &model.SourceResult{Source: ebaySource, Sales: sales}, nil
}

func (a *EbayAdapter) searchURL(query model.PricingQuery) string {
	params := url.Values{}
	params.Set("_nkw", searchTerms(query))
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_ipg", "60")
	return a.baseURL + "/sch/i.html?" + params.Encode()
}

// searchTerms flattens a query into eBay keywords, including the
// grading condition so graded searches surface graded listings.
func searchTerms(query model.PricingQuery) string {
	parts := []string{query.Year, query.Brand, query.PlayerName, query.CardNumber}
	if query.SetName != "" {
		parts = append(parts, query.SetName)
	}
	if query.Parallel != "" {
		parts = append(parts, query.Parallel)
	}
	if query.Graded() {
		parts = append(parts, query.Grading.Company, query.Grading.Grade)
	}

	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// parseListingPrice extracts a dollar amount from listing text like
// "$1,234.56" or "$90.00 to $110.00" (ranges keep the first figure).
func parseListingPrice(text string) (float64, bool) {
	match := listingPriceRe.FindString(text)
	if match == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// soldDate pulls the sale date from the listing caption, which renders
// as "Sold Jan 2, 2024". Missing captions yield an empty date, which
// the aggregation pipeline treats as undated.
func soldDate(item *goquery.Selection) string {
	caption := strings.TrimSpace(item.Find(".s-item__caption").Text())
	if caption == "" {
		caption = strings.TrimSpace(item.Find(".s-item__ended-date").Text())
	}
	caption = strings.TrimSpace(strings.TrimPrefix(caption, "Sold"))
	return strings.TrimSpace(strings.TrimPrefix(caption, "Item sold"))
}
