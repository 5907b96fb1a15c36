package sources

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/slabworth/compengine/internal/ratelimit"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Cool-down applied when a source answers 429 without a
	// Retry-After header.
	defaultCooldown = 10 * time.Minute
)

// ScrapeClient is the shared HTTP transport for scraping-style
// adapters: realistic browser headers, gzip/brotli decompression, a
// token-bucket limiter, and a circuit breaker that trips on 429s.
// Each adapter owns its own instance so tests stay isolated.
type ScrapeClient struct {
	source  string
	client  *http.Client
	limiter *ratelimit.Limiter
	breaker *ratelimit.Breaker
}

// NewScrapeClient builds a client for one source. requestsPerMin caps
// outbound rate.
func NewScrapeClient(source string, timeout time.Duration, requestsPerMin int) *ScrapeClient {
	return &ScrapeClient{
		source:  source,
		client:  &http.Client{Timeout: timeout},
		limiter: ratelimit.NewLimiter(requestsPerMin, time.Minute),
		breaker: ratelimit.NewBreaker(source),
	}
}

// Breaker exposes the client's circuit breaker, mainly so tests and
// teardown code can Reset it.
func (c *ScrapeClient) Breaker() *ratelimit.Breaker { return c.breaker }

// Get fetches a URL, honoring the breaker and limiter. A 429 response
// trips the breaker and returns a RateLimitError; other non-200
// statuses return an HTTPError.
func (c *ScrapeClient) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.breaker.Check(); err != nil {
		return nil, err
	}

	deadline := 30 * time.Second
	if d, ok := ctx.Deadline(); ok {
		deadline = time.Until(d)
	}
	if !c.limiter.WaitWithTimeout(deadline) {
		return nil, fmt.Errorf("%s: rate limit wait timed out", c.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setBrowserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		cooldown := retryAfter(resp)
		rateErr := &RateLimitError{Source: c.source, RetryAfter: cooldown}
		c.breaker.Block(cooldown, rateErr.Error())
		return nil, rateErr
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Source: c.source, Reason: resp.Status}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{Status: resp.StatusCode, URL: url}
	}

	reader, err := decompressed(resp)
	if err != nil {
		return nil, fmt.Errorf("create reader: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (c *ScrapeClient) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Connection", "keep-alive")
}

func decompressed(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCooldown
}
