package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/markhamlong/crawlctl/engine"
	"github.com/markhamlong/crawlctl/sink"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Config{SeedURLs: []string{"https://example.com"}}, noopFetcher{}, nil, sink.NewMemory())
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	return eng
}

type noopFetcher struct{}

func (noopFetcher) Fetch(ctx context.Context, rawURL string) (engine.RawPage, error) {
	return engine.RawPage{StatusCode: 200, FinalURL: rawURL}, nil
}

func TestNewModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := newTestEngine(t)
	progressCh := make(chan engine.Event, 10)

	model := NewModel(ctx, cancel, eng, progressCh)

	if model.ctx != ctx {
		t.Error("expected ctx to be stored in model")
	}
	if model.cancel == nil {
		t.Error("expected cancel to be stored in model")
	}
	if model.eng != eng {
		t.Error("expected engine to be stored in model")
	}
	if model.progressCh == nil {
		t.Error("expected progressCh to be stored in model")
	}
	if model.counters != (engine.Counters{}) {
		t.Error("expected initial counters to be zero")
	}
	if model.done {
		t.Error("expected done to be false initially")
	}
}

func TestHasErrors(t *testing.T) {
	tests := []struct {
		name   string
		result *engine.Result
		want   bool
	}{
		{name: "nil result", result: nil, want: false},
		{name: "no errors", result: &engine.Result{Counters: engine.Counters{Succeeded: 5}}, want: false},
		{name: "has errors", result: &engine.Result{Counters: engine.Counters{Errored: 2}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := Model{result: tt.result}
			if got := model.HasErrors(); got != tt.want {
				t.Errorf("HasErrors() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetResult(t *testing.T) {
	res := &engine.Result{Counters: engine.Counters{Succeeded: 3}}
	model := Model{result: res}
	if got := model.GetResult(); got != res {
		t.Errorf("GetResult() = %v, want %v", got, res)
	}
}

func TestRenderSummary_NilResult(t *testing.T) {
	output := RenderSummary(nil)
	if output == "" {
		t.Error("expected non-empty output for nil result")
	}
}

func TestRenderSummary_NoGroups(t *testing.T) {
	res := &engine.Result{
		Counters:    engine.Counters{Requested: 10, Succeeded: 10},
		GroupReport: engine.GroupReport{MinPagesPerGroup: 5},
	}
	output := RenderSummary(res)
	if !containsSubstring(output, "Crawl complete") {
		t.Errorf("expected completion message, got: %s", output)
	}
	if !containsSubstring(output, "requested=10") {
		t.Errorf("expected counters in output, got: %s", output)
	}
}

func TestRenderSummary_WithGroups(t *testing.T) {
	res := &engine.Result{
		Counters: engine.Counters{Requested: 30, Succeeded: 28, Errored: 2},
		GroupReport: engine.GroupReport{
			MinPagesPerGroup: 5,
			Groups: []engine.GroupStat{
				{Prefix: "example.com/blog", Count: 12},
				{Prefix: "example.com/docs", Count: 6},
			},
		},
	}
	output := RenderSummary(res)
	if !containsSubstring(output, "example.com/blog") {
		t.Errorf("expected group prefix in output, got: %s", output)
	}
	if !containsSubstring(output, "12") {
		t.Errorf("expected group count in output, got: %s", output)
	}
}

func TestInit_ReturnsBatchCmd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := newTestEngine(t)
	progressCh := make(chan engine.Event, 10)
	model := NewModel(ctx, cancel, eng, progressCh)

	cmd := model.Init()
	if cmd == nil {
		t.Error("Init() should return a non-nil batch command")
	}
}

func TestUpdate_CrawlProgressMsg(t *testing.T) {
	model := Model{
		progressCh: make(chan engine.Event, 10),
	}

	msg := CrawlProgressMsg{Counters: engine.Counters{Requested: 5, Errored: 1}, URL: "https://example.com/page"}
	updatedModel, cmd := model.Update(msg)
	updated := updatedModel.(Model)

	if updated.counters.Requested != 5 {
		t.Errorf("expected requested=5, got %d", updated.counters.Requested)
	}
	if updated.counters.Errored != 1 {
		t.Errorf("expected errored=1, got %d", updated.counters.Errored)
	}
	if updated.current != "https://example.com/page" {
		t.Errorf("expected current URL to be set, got %s", updated.current)
	}
	if cmd == nil {
		t.Error("expected non-nil cmd to re-subscribe to progress channel")
	}
}

func TestUpdate_CrawlDoneMsg(t *testing.T) {
	model := Model{}
	res := &engine.Result{Counters: engine.Counters{Requested: 10, Succeeded: 9, Errored: 1}}

	updatedModel, _ := model.Update(CrawlDoneMsg{Result: res})
	updated := updatedModel.(Model)

	if !updated.done {
		t.Error("expected done=true after CrawlDoneMsg")
	}
	if updated.result != res {
		t.Error("expected result to be stored")
	}
}

func TestUpdate_SpinnerTickMsg(t *testing.T) {
	model := Model{}
	// Send a spinner tick -- should not panic and should still yield a Model.
	updatedModel, _ := model.Update(spinner.TickMsg{})
	_ = updatedModel.(Model) // should not panic
}

func TestUpdate_WindowSizeMsg(t *testing.T) {
	model := Model{}
	updatedModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := updatedModel.(Model)

	if updated.width != 120 {
		t.Errorf("expected width=120, got %d", updated.width)
	}
}

func TestView_InProgress(t *testing.T) {
	model := Model{
		counters: engine.Counters{Requested: 3, Errored: 1},
		current:  "https://example.com/checking",
	}
	output := model.View()
	if !strings.Contains(output, "Crawling") {
		t.Errorf("expected 'Crawling' in progress view, got: %s", output)
	}
	if !strings.Contains(output, "3") {
		t.Errorf("expected requested count in view, got: %s", output)
	}
}

func TestView_DoneWithResult(t *testing.T) {
	model := Model{
		done:   true,
		result: &engine.Result{Counters: engine.Counters{Requested: 5, Succeeded: 5}},
	}
	output := model.View()
	if !strings.Contains(output, "Crawl complete") {
		t.Errorf("expected completion message in done view, got: %s", output)
	}
}

func TestView_DoneWithError(t *testing.T) {
	model := Model{
		done: true,
		err:  context.Canceled,
	}
	output := model.View()
	if !strings.Contains(output, "Error") {
		t.Errorf("expected error message in done view, got: %s", output)
	}
}

// containsSubstring checks for a substring in a string that may contain ANSI codes.
func containsSubstring(haystack, needle string) bool {
	return len(haystack) > 0 && len(needle) > 0 &&
		strings.Contains(haystack, needle)
}
