package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// HeadlessFetcher is the PageFetcher used when useHeadlessBrowser is
// set: pages that require JavaScript execution to render their final
// DOM are navigated in a real (headless) browser via go-rod rather than
// fetched with a plain HTTP client. Grounded on the go-rod navigate/
// wait-stable/HTML() pattern used by the pack's headless-scraper
// examples, trimmed to what a crawler -- not a full scraping service --
// needs: no stealth injection, no cookie jars, no resource hijacking.
type HeadlessFetcher struct {
	browser   *rod.Browser
	userAgent string
	timeout   time.Duration
}

// NewHeadlessFetcher launches (or attaches to) a browser instance and
// returns a fetcher bound to it. Close must be called when the engine
// shuts down.
func NewHeadlessFetcher(userAgent string, timeout time.Duration) (*HeadlessFetcher, error) {
	browser := rod.New()
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect headless browser: %w", err)
	}
	return &HeadlessFetcher{browser: browser, userAgent: userAgent, timeout: timeout}, nil
}

// Fetch navigates to rawURL in a fresh tab, waits for the page to
// settle, and returns its rendered HTML as ContentBytes.
func (f *HeadlessFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	timeout := f.timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := f.browser.Context(ctx).Page(rod.PageInfo{})
	if err != nil {
		return Page{}, fmt.Errorf("open tab for %s: %w", rawURL, err)
	}
	defer func() {
		_ = page.Close()
	}()

	if f.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
			return Page{}, fmt.Errorf("set user agent: %w", err)
		}
	}

	if err := page.Navigate(rawURL); err != nil {
		return Page{}, fmt.Errorf("navigate to %s: %w", rawURL, err)
	}
	if err := page.WaitStable(500 * time.Millisecond); err != nil {
		return Page{}, fmt.Errorf("wait for stable DOM at %s: %w", rawURL, err)
	}

	html, err := page.HTML()
	if err != nil {
		return Page{}, fmt.Errorf("read rendered HTML for %s: %w", rawURL, err)
	}

	info, err := page.Info()
	finalURL := rawURL
	if err == nil && info != nil {
		finalURL = info.URL
	}

	return Page{
		StatusCode:   200,
		ContentBytes: []byte(html),
		FinalURL:     finalURL,
		FetchedAt:    time.Now(),
	}, nil
}

// Close releases the underlying browser process.
func (f *HeadlessFetcher) Close() error {
	return f.browser.Close()
}
