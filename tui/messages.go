package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/markhamlong/crawlctl/engine"
)

// CrawlProgressMsg reports progress for a single processed URL.
type CrawlProgressMsg struct {
	Counters engine.Counters
	URL      string
}

// CrawlDoneMsg signals the crawl has completed.
type CrawlDoneMsg struct {
	Result *engine.Result
	Err    error
}

// waitForProgress returns a tea.Cmd that reads one event from the progress
// channel. When the channel closes, it returns a CrawlDoneMsg with nil Result
// (the actual result comes from startCrawl).
func waitForProgress(ch <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return CrawlDoneMsg{}
		}
		return CrawlProgressMsg{
			Counters: evt.Counters,
			URL:      evt.URL,
		}
	}
}
