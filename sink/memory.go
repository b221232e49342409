// Package sink implements the engine's Sink interface: where fetched
// pages end up. It generalizes the teacher's result package (which only
// ever collected broken-link records in memory) into an in-memory
// store and a durable on-disk store, both of spec.md §6's shape
// ("onPage(page)", optionally "loadCached(url) → page?").
package sink

import (
	"context"
	"sync"

	"github.com/markhamlong/crawlctl/engine"
)

// Memory is an in-process Sink: every page is kept in a map keyed by
// its canonical URL, and LoadCached serves repeated fetches of the same
// URL within one process without re-fetching.
type Memory struct {
	mu    sync.RWMutex
	pages map[string]engine.FetchedPage
	order []string
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{pages: make(map[string]engine.FetchedPage)}
}

// OnPage implements engine.Sink.
func (m *Memory) OnPage(_ context.Context, page engine.FetchedPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pages[page.CanonicalURL]; !exists {
		m.order = append(m.order, page.CanonicalURL)
	}
	m.pages[page.CanonicalURL] = page
	return nil
}

// LoadCached implements engine.CacheLoader.
func (m *Memory) LoadCached(_ context.Context, canonicalURL string) (*engine.FetchedPage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[canonicalURL]
	if !ok {
		return nil, false, nil
	}
	return &page, true, nil
}

// Pages returns every stored page, in the order first received.
func (m *Memory) Pages() []engine.FetchedPage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pages := make([]engine.FetchedPage, 0, len(m.order))
	for _, url := range m.order {
		pages = append(pages, m.pages[url])
	}
	return pages
}

// Len reports how many distinct pages have been stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}
