// Package feed parses RSS/Atom/JSON feeds discovered during a crawl
// (spec.md §4.1 "Feed handling"), turning each feed item into hint
// metadata the queue attaches to the corresponding page's work item.
package feed

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is one entry in a parsed feed.
type Item struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// Parse parses a feed document body (RSS, Atom, or JSON Feed -- gofeed
// auto-detects) and returns its items in document order.
func Parse(body []byte) ([]Item, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		item := Item{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
		}
		switch {
		case it.PublishedParsed != nil:
			item.PublishedAt = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			item.PublishedAt = *it.UpdatedParsed
		}
		items = append(items, item)
	}
	return items, nil
}
