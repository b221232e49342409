package engine

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the engine's single configuration value (spec.md §6
// "Configuration"). Every option in the spec's table has a field here;
// SkipCache is per-item (WorkItem.SkipCache), not engine-wide, and so
// lives on WorkItem rather than Config.
type Config struct {
	SeedURLs []string

	MaxParallelRequests int
	UseHeadlessBrowser  bool
	RequestTimeout      time.Duration

	FollowWebPageLinks bool
	FollowSitemapLinks bool
	FollowFeedLinks    bool

	MaxRequestedUrls    int
	MaxBackToBackErrors int
	MaxDepth            int

	CrawlDelay time.Duration

	DomainConfig        DomainConfig
	IncludePathPatterns []string
	ExcludePathPatterns []string

	UserAgent string

	// LargeScaleCrawl switches the visited set to its disk-backed
	// bloom-filter fast path, for crawls too large to keep an exact
	// in-memory map comfortably (SPEC_FULL.md domain-stack wiring of
	// the teacher's VisitedTracker).
	LargeScaleCrawl bool

	// GroupReportMinPages is the minimum page count for a path-prefix
	// group to appear in the final GroupReport (SPEC_FULL.md §3.1;
	// spec.md §6 "N ≥ 5 in the source").
	GroupReportMinPages int

	// Logger receives structured per-event log entries (SPEC_FULL.md
	// §1.1). A nil Logger defaults to a discard logger.
	Logger *logrus.Entry

	// ProgressCh, if non-nil, receives an Event after every processed
	// item (SPEC_FULL.md §1.2). Optional, mirroring the teacher's
	// progressCh parameter to crawler.New; the engine closes it when
	// Run returns.
	ProgressCh chan<- Event
}

// WithDefaults returns a copy of cfg with unset fields replaced by the
// engine's defaults, mirroring the teacher's crawler.New defaulting
// pattern.
func (cfg Config) WithDefaults() Config {
	if cfg.MaxParallelRequests <= 0 {
		cfg.MaxParallelRequests = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "crawlctl/1.0 (+https://github.com/markhamlong/crawlctl)"
	}
	if cfg.MaxBackToBackErrors <= 0 {
		cfg.MaxBackToBackErrors = 5
	}
	if cfg.GroupReportMinPages <= 0 {
		cfg.GroupReportMinPages = 5
	}
	if cfg.CrawlDelay <= 0 {
		cfg.CrawlDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(discardWriter{})
		cfg.Logger = logrus.NewEntry(logger)
	}
	return cfg
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
