package engine

import "context"

// Sink receives every successfully fetched page (spec.md §6 "Sink
// interface"). onPage failures are fatal -- "best-effort but correct" --
// and terminate the engine (spec.md §7 "Callback failure").
type Sink interface {
	OnPage(ctx context.Context, page FetchedPage) error
}

// CacheLoader is the optional half of the Sink contract: a sink that
// can answer "have I already got this URL" skips a live fetch entirely.
// Implemented as a separate interface (rather than an optional method
// on Sink) so a Sink that doesn't support caching needs no stub method;
// the engine type-asserts for it.
type CacheLoader interface {
	LoadCached(ctx context.Context, canonicalURL string) (*FetchedPage, bool, error)
}

// PageFetcher retrieves the raw bytes of a URL (spec.md §6 "Fetcher
// interface"). The HTTP and headless-browser implementations live in
// internal/fetch.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (RawPage, error)
}

// PageExtractor turns an HTML body into outlinks, hints, and metadata
// (spec.md §6 "Parser interfaces"). The default implementation lives in
// internal/extract.
type PageExtractor interface {
	Extract(contentBytes []byte, baseURL string) (ExtractedPage, error)
}
