// Package queue implements the engine's work queue: a priority-biased
// deque (spec.md §4.3), the visited-set-backed enqueue policy
// (spec.md §4.7), and the counters the engine uses to detect
// quiescence (spec.md §3 "CrawlCounters").
package queue

// Kind identifies the resource kind a WorkItem names.
type Kind int

const (
	HTML Kind = iota
	Sitemap
	Feed
	Terminal
)

func (k Kind) String() string {
	switch k {
	case HTML:
		return "html"
	case Sitemap:
		return "sitemap"
	case Feed:
		return "feed"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// HintMetadata is carried forward from a feed/sitemap entry into the
// resulting page record when the page itself does not supply a value
// (spec.md §3 "WorkItem.hintMetadata").
type HintMetadata struct {
	Title       string
	Description string
	PublishedAt string // RFC3339, empty if unknown
	ImageURL    string
}

// Item is the unit of queued work (spec.md §3 "WorkItem").
type Item struct {
	URL            string
	Hash           string
	Kind           Kind
	RemainingDepth int
	HighPriority   bool
	Hint           *HintMetadata
	SourcePage     string // page the item was discovered on, for reporting
	SkipCache      bool   // bypass Sink.LoadCached for this item (supplemented feature, SPEC_FULL.md §3.1)
}

// isPriority reports whether item belongs on the right (priority) side
// of the deque: terminal sentinels, sitemaps, feeds, and anything
// explicitly marked high-priority (spec.md §4.3).
func (it Item) isPriority() bool {
	return it.Kind == Sitemap || it.Kind == Feed || it.Kind == Terminal || it.HighPriority
}
