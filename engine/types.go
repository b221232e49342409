// Package engine implements the crawl engine: the Work Queue Manager,
// Host Registry, Rate Limiter, and Worker Loop wired together behind a
// small public API (Config, Sink, PageFetcher, PageExtractor, Run).
// It is the direct descendant of the teacher's crawler package, rebuilt
// around a generic external-collaborator model instead of a single
// hardcoded HTTP link checker.
package engine

import (
	"net/http"
	"time"

	"github.com/markhamlong/crawlctl/internal/extract"
	"github.com/markhamlong/crawlctl/internal/fetch"
	"github.com/markhamlong/crawlctl/internal/filter"
	"github.com/markhamlong/crawlctl/internal/hostreg"
	"github.com/markhamlong/crawlctl/internal/queue"
	"github.com/markhamlong/crawlctl/internal/robots"
)

// WorkItem, Kind, and HintMetadata are the queue package's canonical
// definitions, re-exported so callers never need to import
// internal/queue directly.
type (
	WorkItem     = queue.Item
	Kind         = queue.Kind
	HintMetadata = queue.HintMetadata
	Counters     = queue.Counters
)

const (
	KindHTML     = queue.HTML
	KindSitemap  = queue.Sitemap
	KindFeed     = queue.Feed
	KindTerminal = queue.Terminal
)

// RobotsPolicy and HostRecord re-export the Host Registry's types.
type (
	RobotsPolicy = robots.Policy
	HostRecord   = hostreg.HostRecord
)

// RawPage is what a PageFetcher returns: enough bytes and headers for
// downstream parsing, nothing more (spec.md §6 "Fetcher interface").
type RawPage = fetch.Page

// ExtractedPage is what a PageExtractor returns from an HTML body.
type ExtractedPage = extract.Page

// FetchedPage is the result of fetching and extracting one HTML
// resource (spec.md §3 "FetchedPage").
type FetchedPage struct {
	StatusCode   int
	URL          string
	CanonicalURL string
	Hash         string
	Headers      http.Header
	ContentBytes []byte
	ContentType  string
	Charset      string

	Outlinks     []string
	SitemapLinks []string
	FeedLinks    []string
	RobotsMeta   []string

	Title       string
	Description string
	ImageURL    string
	PublishedAt time.Time

	FetchedAt time.Time
}

// GroupReport clusters visited URLs by path prefix, restoring the
// domain-stats feature dropped by the distillation (SPEC_FULL.md §3.1,
// grounded on pyminiscraper's analyze_url_groups).
type GroupReport struct {
	MinPagesPerGroup int
	Groups           []GroupStat
}

// GroupStat is one path-prefix group with at least MinPagesPerGroup
// pages.
type GroupStat struct {
	Prefix string
	Count  int
}

// Result is what Run returns: the final counters plus the grouping
// report (spec.md §6 "Result").
type Result struct {
	Counters    Counters
	GroupReport GroupReport
}

// DomainConfig re-exports the filter package's domain configuration
// shape so callers configure Config without importing internal/filter.
type DomainConfig = filter.DomainConfig

const (
	DomainAllowAll        = filter.AllowAll
	DomainDeriveFromSeeds = filter.DeriveFromSeeds
	DomainExplicitAllow   = filter.ExplicitAllow
)
