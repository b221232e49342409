// Package fetch implements the engine's PageFetcher: retrieving the raw
// bytes of a URL over plain HTTP, generalized from the teacher's
// crawler/worker.go and crawler/retry.go (redirect-loop detection,
// exponential backoff, retryable-error classification), adapted from
// link-checking semantics (HEAD-then-GET, pass/fail) to page-fetching
// semantics (always GET, return headers + body for downstream
// extraction).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Page is the raw result of fetching one URL: enough for the engine to
// build a FetchedPage (status, headers, body) without fetch knowing
// anything about extraction or canonicalization.
type Page struct {
	StatusCode   int
	Headers      http.Header
	ContentBytes []byte
	FinalURL     string
	FetchedAt    time.Time
}

// RetryPolicy configures exponential backoff for transient failures,
// carried over from the teacher's RetryPolicy unchanged.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy mirrors the teacher's default: 2 retries (3
// attempts total), 1s base delay, 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// HTTPFetcher is the default PageFetcher: a plain net/http client with
// per-request timeout, redirect-loop detection, and retry-with-backoff
// on transient failures.
type HTTPFetcher struct {
	Client         *http.Client
	UserAgent      string
	RequestTimeout time.Duration
	Retry          RetryPolicy
}

// NewHTTPFetcher returns an HTTPFetcher with the given user agent and
// sensible defaults for timeout and retry policy.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		Client:         &http.Client{},
		UserAgent:      userAgent,
		RequestTimeout: 10 * time.Second,
		Retry:          DefaultRetryPolicy(),
	}
}

// Fetch retrieves rawURL, retrying transient failures per f.Retry.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	backoff := f.Retry.BaseDelay
	var lastErr error

	for attempt := 0; attempt <= f.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Page{}, ctx.Err()
			case <-timer.C:
			}
			backoff = min(backoff*2, f.Retry.MaxDelay)
		}

		page, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !shouldRetry(err) {
			return Page{}, err
		}
	}
	return Page{}, fmt.Errorf("fetch %s: exhausted retries: %w", rawURL, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (Page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.RequestTimeout)
	defer cancel()

	var redirectLoop bool
	var chain []string
	client := &http.Client{
		Timeout: f.Client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			u := req.URL.String()
			for _, seen := range chain {
				if seen == u {
					redirectLoop = true
					return http.ErrUseLastResponse
				}
			}
			chain = append(chain, u)
			if len(via) >= 10 {
				redirectLoop = true
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read body for %s: %w", rawURL, err)
	}

	if redirectLoop {
		return Page{}, fmt.Errorf("fetch %s: redirect loop detected", rawURL)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Page{
		StatusCode:   resp.StatusCode,
		Headers:      resp.Header,
		ContentBytes: body,
		FinalURL:     finalURL,
		FetchedAt:    time.Now(),
	}, nil
}

// shouldRetry classifies a fetch error as transient (network-level,
// DNS, or deadline exceeded) vs. permanent, matching the teacher's
// isRetryableError without the HTTP-status branch (status-code retry
// decisions -- 429/5xx -- are the engine's call once it has a FetchedPage,
// not fetch's).
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
