package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markhamlong/crawlctl/internal/fetch"
	"github.com/markhamlong/crawlctl/internal/hostreg"
	"github.com/markhamlong/crawlctl/internal/memwatch"
	"github.com/markhamlong/crawlctl/internal/queue"
	"github.com/markhamlong/crawlctl/internal/ratelimit"
	"github.com/markhamlong/crawlctl/internal/urlcanon"
)

// largeScaleMemoryLimitMB is the soft heap limit a LargeScaleCrawl
// engine runs under; crossing it at Critical triggers an early stop
// rather than letting the runtime OOM-kill the process.
const largeScaleMemoryLimitMB = 1536

// Engine is the Crawl Engine (spec.md §4.9): the Work Queue Manager,
// Host Registry, Rate Limiter, and a fan-out of workers running the
// Worker Loop (spec.md §4.8), generalized from the teacher's Crawler.
type Engine struct {
	cfg Config

	manager  *queue.Manager
	hostreg  *hostreg.Registry
	limiter  *ratelimit.Limiter
	throttle *ratelimit.Throttle

	fetcher   PageFetcher
	extractor PageExtractor
	sink      Sink
	cache     CacheLoader // nil if sink doesn't implement it

	memwatch *memwatch.Watcher // nil unless cfg.LargeScaleCrawl
}

// New builds an Engine. fetcher and extractor may be nil, in which case
// the default HTTP fetcher (or headless fetcher, per
// cfg.UseHeadlessBrowser) and the default golang.org/x/net/html-backed
// extractor are used.
func New(cfg Config, fetcher PageFetcher, extractor PageExtractor, sink Sink) (*Engine, error) {
	cfg = cfg.WithDefaults()

	if fetcher == nil {
		if cfg.UseHeadlessBrowser {
			hf, err := fetch.NewHeadlessFetcher(cfg.UserAgent, cfg.RequestTimeout)
			if err != nil {
				return nil, fmt.Errorf("construct headless fetcher: %w", err)
			}
			fetcher = headlessAdapter{hf}
		} else {
			hf := fetch.NewHTTPFetcher(cfg.UserAgent)
			hf.RequestTimeout = cfg.RequestTimeout
			fetcher = httpAdapter{hf}
		}
	}
	if extractor == nil {
		extractor = NewDefaultExtractor()
	}

	filterer := newQueueFilterer(cfg)
	manager := queue.NewManager(queue.Policy{
		FollowSitemap: cfg.FollowSitemapLinks,
		FollowFeed:    cfg.FollowFeedLinks,
		Filter:        filterer,
	}, cfg.LargeScaleCrawl)

	registry := hostreg.New(robotsFetcher{fetcher}, cfg.CrawlDelay)
	limiter := ratelimit.New(cfg.CrawlDelay)
	throttle := ratelimit.NewThrottle(10, 2*time.Second)

	var cache CacheLoader
	if c, ok := sink.(CacheLoader); ok {
		cache = c
	}

	var watcher *memwatch.Watcher
	if cfg.LargeScaleCrawl {
		watcher = memwatch.New(largeScaleMemoryLimitMB)
	}

	return &Engine{
		cfg:       cfg,
		manager:   manager,
		hostreg:   registry,
		limiter:   limiter,
		throttle:  throttle,
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		cache:     cache,
		memwatch:  watcher,
	}, nil
}

// Run executes the crawl (spec.md §4.9 "run()"): seeds the queue,
// spawns maxParallelRequests workers, waits for them to finish, closes
// fetcher resources, and returns the aggregated counters plus a
// grouping report over the visited set.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	defer e.manager.Close()
	if e.cfg.ProgressCh != nil {
		defer close(e.cfg.ProgressCh)
	}
	if closer, ok := e.fetcher.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	for _, seed := range e.cfg.SeedURLs {
		canon, err := urlcanon.Canonicalize(seed)
		if err != nil {
			e.cfg.Logger.WithError(err).WithField("url", seed).Warn("invalid seed url, skipping")
			continue
		}
		item := queue.Item{
			URL:            canon.URL,
			Hash:           canon.Hash,
			Kind:           queue.HTML,
			RemainingDepth: e.cfg.MaxDepth,
		}
		e.manager.Enqueue(item, true)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.MaxParallelRequests; i++ {
		workerID := i
		group.Go(func() error {
			return e.runWorker(groupCtx, workerID)
		})
	}
	if e.memwatch != nil {
		// The watcher runs outside the worker group and is cancelled when
		// Run returns, so it never keeps group.Wait from finishing.
		watchCtx, stopWatch := context.WithCancel(groupCtx)
		defer stopWatch()
		go e.watchMemory(watchCtx)
	}

	if err := group.Wait(); err != nil {
		return Result{}, fmt.Errorf("worker loop: %w", err)
	}

	return Result{
		Counters:    e.manager.Snapshot(),
		GroupReport: buildGroupReport(e.manager.VisitedURLs(), e.cfg.GroupReportMinPages),
	}, nil
}

// watchMemory polls heap pressure every two seconds while
// cfg.LargeScaleCrawl is set, logging at Warning and calling stop() at
// Critical so a crawl too large for its host's memory degrades to a
// clean early finish instead of an OOM kill.
func (e *Engine) watchMemory(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usedPercent, level := e.memwatch.Check()
			switch level {
			case memwatch.Critical:
				e.cfg.Logger.WithField("heap_percent", usedPercent).Warn("memory pressure critical, stopping crawl early")
				e.stop()
				return
			case memwatch.Warning:
				e.cfg.Logger.WithField("heap_percent", usedPercent).Debug("memory pressure elevated")
			}
		}
	}
}

// stop pushes one TERMINAL sentinel per worker so every blocked
// popRight unblocks and exits (spec.md §4.9 "stop()").
func (e *Engine) stop() {
	for i := 0; i < e.cfg.MaxParallelRequests; i++ {
		e.manager.Deque().PushRight(queue.Item{Kind: queue.Terminal})
	}
}

// checkTerminate implements spec.md §4.8/§4.9 "checkTerminate()": once
// every queued item is accounted for, stop the engine. Advisory by
// design -- a concurrent enqueue racing this check only defers
// termination to the next worker iteration (spec.md §9).
func (e *Engine) checkTerminate() {
	if e.manager.Quiescent() {
		e.stop()
	}
}

type headlessAdapter struct{ f *fetch.HeadlessFetcher }

func (h headlessAdapter) Fetch(ctx context.Context, rawURL string) (RawPage, error) {
	return h.f.Fetch(ctx, rawURL)
}
func (h headlessAdapter) Close() error { return h.f.Close() }

type httpAdapter struct{ f *fetch.HTTPFetcher }

func (h httpAdapter) Fetch(ctx context.Context, rawURL string) (RawPage, error) {
	return h.f.Fetch(ctx, rawURL)
}
