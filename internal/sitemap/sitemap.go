// Package sitemap parses XML sitemaps and sitemap indexes discovered
// during a crawl (spec.md §4.1 "Sitemap handling"), separating plain
// page URLs from nested sitemap references so the caller can re-enqueue
// each at the right Kind.
package sitemap

import (
	"bytes"
	"fmt"

	gpsitemap "github.com/oxffaa/gopher-parse-sitemap"
)

// Result is the outcome of parsing one sitemap document.
type Result struct {
	// PageURLs are <url><loc> entries: ordinary pages to enqueue as
	// Kind Sitemap-priority HTML work items.
	PageURLs []string
	// SitemapURLs are <sitemap><loc> entries from a sitemap index:
	// further sitemap documents to fetch and parse.
	SitemapURLs []string
}

// Parse parses a sitemap document body. isIndex selects between the
// two sitemap XML shapes: a plain <urlset> of pages, or a
// <sitemapindex> of further sitemap documents. A caller that does not
// know the shape uses ParseAny, which runs both.
func Parse(body []byte, isIndex bool) (Result, error) {
	var res Result

	if isIndex {
		err := gpsitemap.ParseIndex(bytes.NewReader(body), func(e gpsitemap.IndexEntry) error {
			if loc := e.GetLocation(); loc != "" {
				res.SitemapURLs = append(res.SitemapURLs, loc)
			}
			return nil
		})
		if err != nil {
			return Result{}, fmt.Errorf("parse sitemap index: %w", err)
		}
		return res, nil
	}

	err := gpsitemap.Parse(bytes.NewReader(body), func(e gpsitemap.Entry) error {
		if loc := e.GetLocation(); loc != "" {
			res.PageURLs = append(res.PageURLs, loc)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("parse sitemap: %w", err)
	}
	return res, nil
}

// ParseAny tries both sitemap document shapes against the same body,
// used when the caller has no prior signal (e.g. a Content-Type
// header) about which one applies. It is tolerant: a parse error in
// one shape is only fatal if the other shape also produced nothing.
func ParseAny(body []byte) (Result, error) {
	pages, pagesErr := Parse(body, false)
	index, indexErr := Parse(body, true)

	res := Result{
		PageURLs:    pages.PageURLs,
		SitemapURLs: index.SitemapURLs,
	}
	if len(res.PageURLs) == 0 && len(res.SitemapURLs) == 0 {
		if pagesErr != nil {
			return Result{}, pagesErr
		}
		return Result{}, indexErr
	}
	return res, nil
}
