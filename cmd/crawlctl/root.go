package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markhamlong/crawlctl/engine"
	"github.com/markhamlong/crawlctl/internal/filter"
	"github.com/markhamlong/crawlctl/sink"
	"github.com/markhamlong/crawlctl/tui"
)

// flagConfig mirrors spec.md §6's Configuration table, one field per
// recognized option, plus the CLI-only output/presentation flags.
type flagConfig struct {
	cfgFile string

	seedURLs            []string
	maxParallelRequests int
	useHeadlessBrowser  bool
	requestTimeout      time.Duration
	followWebPageLinks  bool
	followSitemapLinks  bool
	followFeedLinks     bool
	maxRequestedUrls    int
	maxBackToBackErrors int
	maxDepth            int
	crawlDelay          time.Duration
	domainAllowance     string
	forbiddenDomains    []string
	allowedDomains      []string
	includePatterns     []string
	excludePatterns     []string
	userAgent           string
	groupReportMinPages int
	largeScaleCrawl     bool

	outputDir      string
	downloadImages bool
	noTUI          bool
	verbose        bool
}

func rootCmd() *cobra.Command {
	var flags flagConfig

	cmd := &cobra.Command{
		Use:   "crawlctl [seed-url...]",
		Short: "A polite, breadth-first web crawl engine.",
		Long: `crawlctl crawls one or more seed URLs breadth-first, respecting
robots.txt, per-host rate limits, and configurable domain/path/depth
restrictions, following sitemap and feed links as it goes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.seedURLs = args
			return runCrawl(cmd.Context(), flags)
		},
	}

	bindFlags(cmd, &flags)
	return cmd
}

func bindFlags(cmd *cobra.Command, f *flagConfig) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.cfgFile, "config", "", "config file (YAML); flags and env override it")
	pf.IntVar(&f.maxParallelRequests, "concurrency", 10, "number of concurrent fetch workers")
	pf.BoolVar(&f.useHeadlessBrowser, "headless", false, "fetch pages with a headless browser instead of plain HTTP")
	pf.DurationVar(&f.requestTimeout, "request-timeout", 10*time.Second, "per-request timeout")
	pf.BoolVar(&f.followWebPageLinks, "follow-links", true, "follow outgoing page links")
	pf.BoolVar(&f.followSitemapLinks, "follow-sitemaps", true, "follow sitemap links discovered in pages")
	pf.BoolVar(&f.followFeedLinks, "follow-feeds", false, "follow RSS/Atom feed links discovered in pages")
	pf.IntVar(&f.maxRequestedUrls, "max-urls", 0, "hard budget on total fetches (0 = unlimited)")
	pf.IntVar(&f.maxBackToBackErrors, "max-back-to-back-errors", 5, "consecutive errors before stopping")
	pf.IntVar(&f.maxDepth, "max-depth", 5, "maximum link depth from seed URLs")
	pf.DurationVar(&f.crawlDelay, "crawl-delay", 200*time.Millisecond, "minimum delay between requests, engine-wide; a host's robots.txt Crawl-delay replaces it")
	pf.StringVar(&f.domainAllowance, "domain-allowance", "derive-from-seeds", "allow-all | derive-from-seeds | explicit")
	pf.StringArrayVar(&f.forbiddenDomains, "forbid-domain", nil, "domain to always reject, regardless of allowance")
	pf.StringArrayVar(&f.allowedDomains, "allow-domain", nil, "explicit allowed domain (only with --domain-allowance=explicit)")
	pf.StringArrayVar(&f.includePatterns, "include-path", nil, "glob pattern a path must match to be crawled")
	pf.StringArrayVar(&f.excludePatterns, "exclude-path", nil, "glob pattern that excludes a matching path")
	pf.StringVar(&f.userAgent, "user-agent", "crawlctl/1.0 (+https://github.com/markhamlong/crawlctl)", "user agent sent with requests and matched against robots.txt")
	pf.IntVar(&f.groupReportMinPages, "group-report-min-pages", 5, "minimum pages for a path-prefix group to be reported")
	pf.BoolVar(&f.largeScaleCrawl, "large-scale", false, "use a bloom-filter visited set for crawls too large to track exactly")
	pf.StringVar(&f.outputDir, "output-dir", "", "directory to write crawled pages as JSON (default: keep pages in memory only)")
	pf.BoolVar(&f.downloadImages, "download-images", false, "download each page's primary image alongside its record (requires --output-dir)")
	pf.BoolVar(&f.noTUI, "no-tui", false, "disable the interactive progress view and log headlessly")
	pf.BoolVar(&f.verbose, "verbose", false, "log at debug level")

	viper.BindPFlags(pf)
}

// runCrawl builds an engine.Config and Engine from flagConfig, then runs
// it either interactively (Bubble Tea TUI) or headlessly (structured
// logrus output), mirroring the teacher's main.go dispatch.
func runCrawl(ctx context.Context, f flagConfig) error {
	if f.cfgFile != "" {
		viper.SetConfigFile(f.cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", f.cfgFile, err)
		}
	}
	viper.SetEnvPrefix("crawlctl")
	viper.AutomaticEnv()

	logger := logrus.New()
	if f.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logrus.NewEntry(logger)

	domainCfg, err := buildDomainConfig(f)
	if err != nil {
		return err
	}

	cfg := engine.Config{
		SeedURLs:            f.seedURLs,
		MaxParallelRequests: f.maxParallelRequests,
		UseHeadlessBrowser:  f.useHeadlessBrowser,
		RequestTimeout:      f.requestTimeout,
		FollowWebPageLinks:  f.followWebPageLinks,
		FollowSitemapLinks:  f.followSitemapLinks,
		FollowFeedLinks:     f.followFeedLinks,
		MaxRequestedUrls:    f.maxRequestedUrls,
		MaxBackToBackErrors: f.maxBackToBackErrors,
		MaxDepth:            f.maxDepth,
		CrawlDelay:          f.crawlDelay,
		DomainConfig:        domainCfg,
		IncludePathPatterns: f.includePatterns,
		ExcludePathPatterns: f.excludePatterns,
		UserAgent:           f.userAgent,
		LargeScaleCrawl:     f.largeScaleCrawl,
		GroupReportMinPages: f.groupReportMinPages,
		Logger:              log,
	}

	pageSink, err := buildSink(f)
	if err != nil {
		return err
	}

	if f.noTUI {
		return runHeadless(ctx, cfg, pageSink, log)
	}
	return runInteractive(ctx, cfg, pageSink)
}

func buildDomainConfig(f flagConfig) (filter.DomainConfig, error) {
	var allowance filter.DomainAllowance
	switch f.domainAllowance {
	case "", "derive-from-seeds":
		allowance = filter.DeriveFromSeeds
	case "allow-all":
		allowance = filter.AllowAll
	case "explicit":
		allowance = filter.ExplicitAllow
	default:
		return filter.DomainConfig{}, fmt.Errorf("unknown --domain-allowance %q", f.domainAllowance)
	}
	return filter.DomainConfig{
		Forbidden: f.forbiddenDomains,
		Allowance: allowance,
		Allowed:   f.allowedDomains,
	}, nil
}

func buildSink(f flagConfig) (engine.Sink, error) {
	if f.outputDir == "" {
		return sink.NewMemory(), nil
	}
	return sink.NewFile(f.outputDir, f.downloadImages)
}

// runHeadless runs the engine without the Bubble Tea program attached,
// relying entirely on structured logging for progress (SPEC_FULL.md §1.1).
func runHeadless(ctx context.Context, cfg engine.Config, pageSink engine.Sink, log *logrus.Entry) error {
	eng, err := engine.New(cfg, nil, nil, pageSink)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	res, err := eng.Run(ctx)
	if err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}

	log.WithFields(logrus.Fields{
		"requested": res.Counters.Requested,
		"succeeded": res.Counters.Succeeded,
		"skipped":   res.Counters.Skipped,
		"errored":   res.Counters.Errored,
	}).Info("crawl complete")
	for _, group := range res.GroupReport.Groups {
		log.WithFields(logrus.Fields{"prefix": group.Prefix, "count": group.Count}).Info("path group")
	}
	return nil
}

// runInteractive runs the engine behind the teacher's Bubble Tea TUI,
// wired to engine.Event instead of the teacher's CrawlEvent.
func runInteractive(ctx context.Context, cfg engine.Config, pageSink engine.Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progressCh := make(chan engine.Event, 100)
	cfg.ProgressCh = progressCh

	eng, err := engine.New(cfg, nil, nil, pageSink)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	model := tui.NewModel(ctx, cancel, eng, progressCh)
	program := tea.NewProgram(model)

	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	if finalModel.(tui.Model).HasErrors() {
		os.Exit(1)
	}
	return nil
}
