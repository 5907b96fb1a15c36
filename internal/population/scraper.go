package population

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/slabworth/compengine/internal/model"
)

const (
	scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	scraperRateLimit = 1 // request per second
)

// ReportScraper is the generic fallback population source. It scrapes
// a public pop-report page that serves multiple grading companies and
// parses the grade/count table out of the HTML. Used only when a
// company-specific source is missing or comes back empty.
type ReportScraper struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewReportScraper creates the scraper against the given report site.
func NewReportScraper(baseURL string) *ReportScraper {
	return &ReportScraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(scraperRateLimit), 1),
	}
}

// Company returns "", marking this source company-agnostic.
func (s *ReportScraper) Company() string { return "" }

// FetchPopulation scrapes the report page for the request's card and
// company. Returns (nil, nil) when the page has no usable table.
func (s *ReportScraper) FetchPopulation(ctx context.Context, req Request) (*model.PopulationSnapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	pageURL := fmt.Sprintf("%s/pop?%s", s.baseURL, url.Values{
		"company": {req.Company},
		"player":  {req.PlayerName},
		"year":    {req.Year},
		"brand":   {req.Brand},
		"number":  {req.CardNumber},
	}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", scraperUserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch pop report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pop report returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse pop report HTML: %w", err)
	}

	breakdown := parseBreakdownTable(doc)
	if len(breakdown) == 0 {
		return nil, nil
	}

	return &model.PopulationSnapshot{
		GradingCompany: strings.ToUpper(req.Company),
		GradeBreakdown: breakdown,
	}, nil
}

// parseBreakdownTable walks table rows looking for a grade label cell
// followed by a count cell.
func parseBreakdownTable(doc *goquery.Document) []model.GradeCount {
	var breakdown []model.GradeCount

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		grade := strings.TrimSpace(cells.Eq(0).Text())
		countText := strings.TrimSpace(cells.Eq(1).Text())
		if grade == "" {
			return
		}

		count, err := strconv.Atoi(strings.ReplaceAll(countText, ",", ""))
		if err != nil || count < 0 {
			return
		}

		breakdown = append(breakdown, model.GradeCount{Grade: grade, Count: count})
	})

	SortBreakdown(breakdown)
	return breakdown
}
