// Package hostreg implements the engine's Host Registry (spec.md §4.5):
// the per-host robots.txt policy and crawl-delay cache, fetched at most
// once per host no matter how many workers discover that host
// concurrently.
//
// The spec describes this as "a future keyed by host: the first caller
// to reach a new host fetches robots.txt and populates a shared future;
// every other caller for that host blocks on the same future rather
// than issuing its own request." That is exactly what
// golang.org/x/sync/singleflight provides, so Registry is a thin
// domain-shaped wrapper around a singleflight.Group (grounded on the
// teacher's crawler.RobotsChecker, which solves the same "fetch once
// per host" problem with a sync.Map cache, but without coalescing
// concurrent in-flight fetches for the same uncached host -- singleflight
// closes that gap).
package hostreg

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/markhamlong/crawlctl/internal/robots"
)

// RobotsFetcher retrieves the raw robots.txt response for a host. host
// is in "scheme://host" form (internal/urlcanon.Host's output).
type RobotsFetcher interface {
	FetchRobots(ctx context.Context, host string) (statusCode int, body []byte, err error)
}

// HostRecord is the cached, per-host state the engine consults before
// dispatching a fetch (spec.md §4.5, §3 "HostRecord").
type HostRecord struct {
	Host       string
	Policy     *robots.Policy
	CrawlDelay time.Duration
	FetchedAt  time.Time
}

// Registry is the Host Registry: a singleflight-coalesced, cached
// lookup of each host's robots.txt policy.
type Registry struct {
	fetcher      RobotsFetcher
	defaultDelay time.Duration

	group   singleflight.Group
	mu      sync.RWMutex
	records map[string]*HostRecord
}

// New returns an empty Registry. defaultDelay is used when a host's
// robots.txt specifies no Crawl-delay.
func New(fetcher RobotsFetcher, defaultDelay time.Duration) *Registry {
	return &Registry{
		fetcher:      fetcher,
		defaultDelay: defaultDelay,
		records:      make(map[string]*HostRecord),
	}
}

// getResult is what the singleflight group shares across every caller
// coalesced onto one fetch -- fresh is true only when this Do call
// actually populated the record (as opposed to finding it already
// cached), so the engine knows to act on it exactly once per host
// (modulo the harmless race noted on Get below).
type getResult struct {
	rec   *HostRecord
	fresh bool
}

// Get returns the HostRecord for host, fetching and parsing its
// robots.txt on first access. Concurrent callers for the same
// uncached host share a single in-flight fetch (spec.md §4.5 "exactly
// once per host"). The returned fresh flag is true only for the call(s)
// that triggered that fetch -- spec.md §4.4's reset(newInterval) and
// §4.5's "advertised sitemap URLs are enqueued" both fire once per host,
// not once per lookup. Concurrent callers racing to discover the same
// new host may all observe fresh=true together; callers must tolerate
// that (the engine's enqueue is itself dedup'd).
func (r *Registry) Get(ctx context.Context, host, userAgent string) (*HostRecord, bool, error) {
	r.mu.RLock()
	rec, ok := r.records[host]
	r.mu.RUnlock()
	if ok {
		return rec, false, nil
	}

	v, err, _ := r.group.Do(host, func() (any, error) {
		// Re-check under the singleflight key: another goroutine may
		// have populated the cache while we waited to be the leader.
		r.mu.RLock()
		if rec, ok := r.records[host]; ok {
			r.mu.RUnlock()
			return getResult{rec, false}, nil
		}
		r.mu.RUnlock()

		rec, err := r.fetchLocked(ctx, host, userAgent)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.records[host] = rec
		r.mu.Unlock()
		return getResult{rec, true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(getResult)
	return res.rec, res.fresh, nil
}

func (r *Registry) fetchLocked(ctx context.Context, host, userAgent string) (*HostRecord, error) {
	statusCode, body, err := r.fetcher.FetchRobots(ctx, host)
	now := time.Now()

	var policy *robots.Policy
	switch {
	case err != nil:
		// Network failure: fail open, per spec.md §4.5 "a fetch error
		// degrades to an allow-all policy for that host".
		policy = robots.AllowAllPolicy()
	case statusCode >= 200 && statusCode < 300:
		policy = robots.Parse(body)
	default:
		if p, ok := robots.PolicyForStatus(statusCode); ok {
			policy = p
		} else {
			policy = robots.AllowAllPolicy()
		}
	}

	delay := r.defaultDelay
	if d, ok := policy.CrawlDelay(userAgent); ok {
		delay = time.Duration(d) * time.Second
	}

	return &HostRecord{
		Host:       host,
		Policy:     policy,
		CrawlDelay: delay,
		FetchedAt:  now,
	}, nil
}

// Len returns the number of hosts whose robots.txt has been resolved.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
