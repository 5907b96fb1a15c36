package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser-driven sources render JavaScript-heavy pages before
// extraction. The aggregation core never touches this port directly;
// it is injected into the adapters that need it, and tests substitute
// a canned implementation.

// Page is a loaded document handle.
type Page interface {
	// HTML returns the page's rendered outer HTML.
	HTML(ctx context.Context) (string, error)

	// Text returns the text content of the first node matching the
	// CSS selector.
	Text(ctx context.Context, selector string) (string, error)

	// Close releases the tab.
	Close()
}

// Navigator opens pages in a headless browser.
type Navigator interface {
	Navigate(ctx context.Context, url string) (Page, error)
}

// ChromeNavigator implements Navigator over a headless Chrome
// instance via chromedp. One browser, one tab per Navigate call.
type ChromeNavigator struct {
	userAgent  string
	renderWait time.Duration
}

// NewChromeNavigator creates a navigator with sane headless defaults.
func NewChromeNavigator() *ChromeNavigator {
	return &ChromeNavigator{
		userAgent:  defaultUserAgent,
		renderWait: 3 * time.Second,
	}
}

func (n *ChromeNavigator) Navigate(ctx context.Context, url string) (Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(n.userAgent),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(n.renderWait), // give JS time to render
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("extract HTML: %w", err)
	}
	return html, nil
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := chromedp.Run(p.ctx, chromedp.Text(selector, &text, chromedp.NodeVisible)); err != nil {
		return "", fmt.Errorf("extract text %q: %w", selector, err)
	}
	return text, nil
}

func (p *chromePage) Close() {
	p.cancel()
}
