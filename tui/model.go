// Package tui provides the Bubble Tea terminal UI for crawlctl,
// displaying live crawl progress and a styled summary of results.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/markhamlong/crawlctl/engine"
)

// Model is the Bubble Tea model for the crawl TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	eng        *engine.Engine
	spinner    spinner.Model
	progressCh <-chan engine.Event

	counters engine.Counters
	current  string
	quitting bool
	done     bool
	result   *engine.Result
	err      error
	width    int
}

// NewModel creates a TUI model wired to the given engine and progress channel.
func NewModel(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine, progressCh <-chan engine.Event) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		eng:        eng,
		spinner:    spin,
		progressCh: progressCh,
	}
}

// Init starts the spinner, crawl, and progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startCrawl(), waitForProgress(m.progressCh))
}

// startCrawl returns a tea.Cmd that runs the engine and sends CrawlDoneMsg.
func (m Model) startCrawl() tea.Cmd {
	return func() tea.Msg {
		res, err := m.eng.Run(m.ctx)
		if err != nil {
			return CrawlDoneMsg{Err: fmt.Errorf("crawl: %w", err)}
		}
		return CrawlDoneMsg{Result: &res}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case CrawlProgressMsg:
		m.counters = msg.Counters
		m.current = msg.URL
		return m, waitForProgress(m.progressCh)

	case CrawlDoneMsg:
		if msg.Result == nil && msg.Err == nil {
			// The progress channel closed; the real result arrives
			// from startCrawl.
			return m, nil
		}
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.result != nil {
		return RenderSummary(m.result)
	}
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	return fmt.Sprintf("%s Crawling... requested %d, succeeded %d, errored %d\n%s\n",
		m.spinner.View(), m.counters.Requested, m.counters.Succeeded, m.counters.Errored,
		dimStyle.Render("  "+m.current))
}

// HasErrors reports whether the crawl ended with any errored URLs.
func (m Model) HasErrors() bool {
	return m.result != nil && m.result.Counters.Errored > 0
}

// GetResult returns the crawl result for output formatting.
func (m Model) GetResult() *engine.Result {
	return m.result
}
