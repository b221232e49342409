package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/markhamlong/crawlctl/internal/errclass"
	"github.com/markhamlong/crawlctl/internal/feed"
	"github.com/markhamlong/crawlctl/internal/queue"
	"github.com/markhamlong/crawlctl/internal/sitemap"
	"github.com/markhamlong/crawlctl/internal/urlcanon"
)

// runWorker implements one worker's loop (spec.md §4.8). It returns nil
// on a clean TERMINAL exit and a non-nil error only for a fatal sink
// callback failure (spec.md §7 "Callback failure ... re-raised to
// terminate the engine").
func (e *Engine) runWorker(ctx context.Context, workerID int) error {
	log := e.cfg.Logger.WithField("worker", workerID)

	for {
		item := e.manager.Deque().PopRight()

		if item.Kind == queue.Terminal || e.manager.BudgetExceeded(e.cfg.MaxRequestedUrls) {
			return nil
		}

		// The item is IN_FLIGHT from here on, whether it ends up
		// skipped, errored, or succeeded.
		e.manager.IncRequested()

		hostKey, err := urlcanon.Host(item.URL)
		if err != nil {
			log.WithError(err).WithField("url", item.URL).Warn("cannot derive host, skipping")
			e.manager.IncSkipped()
			e.checkTerminate()
			continue
		}

		record, fresh, err := e.hostreg.Get(ctx, hostKey, e.cfg.UserAgent)
		if err != nil {
			log.WithError(err).WithField("host", hostKey).Warn("host registry lookup failed, treating as errored")
			if e.manager.IncErrored() >= e.cfg.MaxBackToBackErrors {
				e.stop()
			}
			e.checkTerminate()
			continue
		}
		if fresh {
			// spec.md §4.4: reset() fires on each newly discovered
			// host's robots crawl-delay, not on every lookup -- doing
			// it unconditionally would clear lastAcquireTime on every
			// iteration and defeat the limiter entirely.
			e.limiter.Reset(record.CrawlDelay)
			// spec.md §4.5: a host record's advertised sitemap URLs are
			// enqueued as SITEMAP work items, subject to the
			// sitemap-follow flag, once per host.
			if e.cfg.FollowSitemapLinks {
				for _, sm := range record.Policy.Sitemaps {
					e.enqueueCanonical(sm, queue.Sitemap, 0, true, nil, hostKey)
				}
			}
		}

		if !record.Policy.CanFetch(e.cfg.UserAgent, item.URL) {
			log.WithField("url", item.URL).Debug("robots disallows, skipping")
			e.manager.IncSkipped()
			e.checkTerminate()
			continue
		}

		if err := e.limiter.Acquire(ctx); err != nil {
			return nil // context cancelled
		}
		if err := e.throttle.Wait(ctx); err != nil {
			return nil
		}

		start := time.Now()
		fatalErr := e.process(ctx, item, log)
		e.throttle.ObserveRTT(time.Since(start))
		if fatalErr != nil {
			return fatalErr
		}

		e.checkTerminate()
	}
}

// process dispatches one item by kind (spec.md §4.8's switch). Per-URL
// failures are logged and counted, never propagated -- except a Sink
// callback failure, which is fatal and returned to stop the engine.
func (e *Engine) process(ctx context.Context, item queue.Item, log *logrus.Entry) error {
	var err error
	var fatal error

	switch item.Kind {
	case queue.HTML:
		fatal, err = e.processHTML(ctx, item)
	case queue.Sitemap:
		err = e.processSitemap(ctx, item)
	case queue.Feed:
		err = e.processFeed(ctx, item)
	}

	if fatal != nil {
		return fatal
	}
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"url":      item.URL,
			"category": errclass.Classify(err, 0),
		}).Error("item failed")
		errored := e.manager.IncErrored()
		if errored >= e.cfg.MaxBackToBackErrors {
			e.stop()
		}
		e.emitProgress(item, 0, err)
		return nil
	}

	e.manager.IncSucceeded()
	e.manager.ResetBackToBackErrors()
	e.emitProgress(item, 0, nil)
	return nil
}

// emitProgress sends an Event on cfg.ProgressCh, if one was supplied,
// never blocking the worker loop when nobody is listening.
func (e *Engine) emitProgress(item queue.Item, statusCode int, err error) {
	if e.cfg.ProgressCh == nil {
		return
	}
	evt := Event{URL: item.URL, Kind: item.Kind, StatusCode: statusCode, Counters: e.manager.Snapshot()}
	if err != nil {
		evt.Error = err.Error()
	}
	select {
	case e.cfg.ProgressCh <- evt:
	default:
	}
}

// processHTML implements fetchOrLoad + dispatchHTML (spec.md §4.8). The
// first return value is a fatal error (Sink failure); the second is a
// per-URL error.
func (e *Engine) processHTML(ctx context.Context, item queue.Item) (fatal, err error) {
	page, err := e.fetchOrLoad(ctx, item)
	if err != nil {
		return nil, err
	}
	if err := e.sink.OnPage(ctx, page); err != nil {
		return fmt.Errorf("sink OnPage for %s: %w", item.URL, err), nil
	}
	e.dispatchHTML(item, page)
	return nil, nil
}

// fetchOrLoad consults the Sink's optional LoadCached before invoking
// the fetcher (spec.md §4.8 "fetchOrLoad"). Hint metadata is merged in
// with page-supplied fields taking precedence.
func (e *Engine) fetchOrLoad(ctx context.Context, item queue.Item) (FetchedPage, error) {
	if e.cache != nil && !item.SkipCache {
		if cached, ok, err := e.cache.LoadCached(ctx, item.URL); err != nil {
			return FetchedPage{}, fmt.Errorf("load cached page for %s: %w", item.URL, err)
		} else if ok {
			return mergeHints(*cached, item.Hint), nil
		}
	}

	raw, err := e.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return FetchedPage{}, fmt.Errorf("fetch %s: %w", item.URL, err)
	}

	canon, err := urlcanon.Canonicalize(raw.FinalURL)
	if err != nil {
		canon, err = urlcanon.Canonicalize(item.URL)
		if err != nil {
			return FetchedPage{}, fmt.Errorf("canonicalize %s: %w", item.URL, err)
		}
	}

	page := FetchedPage{
		StatusCode:   raw.StatusCode,
		URL:          raw.FinalURL,
		CanonicalURL: canon.URL,
		Hash:         canon.Hash,
		Headers:      raw.Headers,
		ContentBytes: raw.ContentBytes,
		ContentType:  raw.Headers.Get("Content-Type"),
		FetchedAt:    raw.FetchedAt,
	}
	if idx := strings.Index(page.ContentType, "charset="); idx >= 0 {
		page.Charset = strings.TrimSpace(page.ContentType[idx+len("charset="):])
	}

	if looksLikeHTML(page.ContentType, page.ContentBytes) {
		extracted, extractErr := e.extractor.Extract(page.ContentBytes, page.URL)
		if extractErr != nil {
			return FetchedPage{}, fmt.Errorf("extract %s: %w", item.URL, extractErr)
		}
		page.Outlinks = extracted.Links
		page.SitemapLinks = extracted.SitemapLinks
		page.FeedLinks = extracted.FeedLinks
		page.RobotsMeta = extracted.MetaRobots
		page.Title = extracted.Title
		page.Description = extracted.Description
		if len(extracted.Images) > 0 {
			page.ImageURL = extracted.Images[0]
		}
	}

	return mergeHints(page, item.Hint), nil
}

func mergeHints(page FetchedPage, hint *HintMetadata) FetchedPage {
	if hint == nil {
		return page
	}
	if page.Title == "" {
		page.Title = hint.Title
	}
	if page.Description == "" {
		page.Description = hint.Description
	}
	if page.ImageURL == "" {
		page.ImageURL = hint.ImageURL
	}
	if page.PublishedAt.IsZero() && hint.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, hint.PublishedAt); err == nil {
			page.PublishedAt = ts
		}
	}
	return page
}

func looksLikeHTML(contentType string, body []byte) bool {
	if contentType != "" {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return bytes.Contains(bytes.ToLower(body[:min(len(body), 512)]), []byte("<html"))
}

// dispatchHTML enqueues a fetched HTML page's discoveries (spec.md
// §4.8 "dispatchHTML"): sitemap-hint and feed-hint links at their own
// Kind, and outlinks as HTML at remainingDepth-1 when web-follow is
// enabled and depth remains.
func (e *Engine) dispatchHTML(item queue.Item, page FetchedPage) {
	if e.cfg.FollowSitemapLinks {
		for _, link := range page.SitemapLinks {
			e.enqueueCanonical(link, queue.Sitemap, 0, true, nil, item.URL)
		}
	}
	if e.cfg.FollowFeedLinks {
		for _, link := range page.FeedLinks {
			e.enqueueCanonical(link, queue.Feed, 0, true, nil, item.URL)
		}
	}
	if e.cfg.FollowWebPageLinks && item.RemainingDepth > 0 {
		for _, link := range page.Outlinks {
			e.enqueueCanonical(link, queue.HTML, item.RemainingDepth-1, false, nil, item.URL)
		}
	}
}

func (e *Engine) enqueueCanonical(rawURL string, kind queue.Kind, remainingDepth int, highPriority bool, hint *HintMetadata, sourcePage string) {
	canon, err := urlcanon.Canonicalize(rawURL)
	if err != nil {
		return
	}
	e.manager.Enqueue(queue.Item{
		URL:            canon.URL,
		Hash:           canon.Hash,
		Kind:           kind,
		RemainingDepth: remainingDepth,
		HighPriority:   highPriority,
		Hint:           hint,
		SourcePage:     sourcePage,
	}, false)
}

// processSitemap implements downloadSitemap + enqueueSitemap (spec.md
// §4.8). Each <url> becomes an HTML item at max depth; each <sitemap>
// becomes a nested SITEMAP item.
func (e *Engine) processSitemap(ctx context.Context, item queue.Item) error {
	raw, err := e.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("fetch sitemap %s: %w", item.URL, err)
	}
	res, err := sitemap.ParseAny(raw.ContentBytes)
	if err != nil {
		return fmt.Errorf("parse sitemap %s: %w", item.URL, err)
	}
	for _, page := range res.PageURLs {
		e.enqueueCanonical(page, queue.HTML, e.cfg.MaxDepth, true, nil, item.URL)
	}
	for _, nested := range res.SitemapURLs {
		e.enqueueCanonical(nested, queue.Sitemap, 0, true, nil, item.URL)
	}
	return nil
}

// processFeed implements downloadFeed + enqueueFeed (spec.md §4.8).
// Each entry with a link becomes an HTML item carrying the entry's
// title/description/pubDate as hint metadata.
func (e *Engine) processFeed(ctx context.Context, item queue.Item) error {
	raw, err := e.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("fetch feed %s: %w", item.URL, err)
	}
	items, err := feed.Parse(raw.ContentBytes)
	if err != nil {
		return fmt.Errorf("parse feed %s: %w", item.URL, err)
	}
	for _, entry := range items {
		if entry.Link == "" {
			continue
		}
		hint := &HintMetadata{Title: entry.Title, Description: entry.Description}
		if !entry.PublishedAt.IsZero() {
			hint.PublishedAt = entry.PublishedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		e.enqueueCanonical(entry.Link, queue.HTML, e.cfg.MaxDepth, true, hint, item.URL)
	}
	return nil
}
