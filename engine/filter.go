package engine

import "github.com/markhamlong/crawlctl/internal/filter"

// queueFilterer adapts the engine's two independently-configured path
// pattern lists (include/exclude, spec.md §6) plus the domain filter
// into the single queue.Filterer the Work Queue Manager needs.
type queueFilterer struct {
	domain  *filter.DomainFilter
	include *filter.PathFilter
	exclude *filter.PathFilter
}

func newQueueFilterer(cfg Config) *queueFilterer {
	return &queueFilterer{
		domain:  filter.NewDomainFilter(cfg.DomainConfig, cfg.SeedURLs),
		include: filter.NewPathFilter(cfg.IncludePathPatterns, true),
		exclude: filter.NewPathFilter(cfg.ExcludePathPatterns, false),
	}
}

func (f *queueFilterer) DomainAllowed(rawURL string) bool {
	return f.domain.Allowed(rawURL)
}

// PathAllowed implements spec.md §4.7 step 5: "exclude-matches or not
// include-passes" drops the item.
func (f *queueFilterer) PathAllowed(rawURL string) bool {
	if f.exclude.Passes(rawURL) {
		return false
	}
	return f.include.Passes(rawURL)
}
