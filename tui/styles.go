package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/markhamlong/crawlctl/engine"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	urlStyle     = lipgloss.NewStyle()
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// RenderSummary produces a Lip Gloss styled summary of a crawl result:
// the final counters, then the path-prefix group report (spec.md §6's
// "grouping by sub-path prefix"), if any groups survived
// GroupReportMinPages.
func RenderSummary(res *engine.Result) string {
	if res == nil {
		return errorStyle.Render("No results available.")
	}

	var builder strings.Builder

	builder.WriteString(successStyle.Render("Crawl complete"))
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf(
		"%s  %s  %s  %s\n",
		countStyle.Render(fmt.Sprintf("requested=%d", res.Counters.Requested)),
		countStyle.Render(fmt.Sprintf("succeeded=%d", res.Counters.Succeeded)),
		countStyle.Render(fmt.Sprintf("skipped=%d", res.Counters.Skipped)),
		countStyle.Render(fmt.Sprintf("errored=%d", res.Counters.Errored)),
	))

	if len(res.GroupReport.Groups) == 0 {
		builder.WriteString(dimStyle.Render(fmt.Sprintf(
			"No path-prefix group reached the minimum of %d pages.",
			res.GroupReport.MinPagesPerGroup,
		)))
		builder.WriteString("\n")
		return builder.String()
	}

	rows := make([][]string, 0, len(res.GroupReport.Groups))
	for _, g := range res.GroupReport.Groups {
		rows = append(rows, []string{g.Prefix, fmt.Sprintf("%d", g.Count)})
	}

	groupTable := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Prefix", "Pages").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return urlStyle
		}).
		Rows(rows...)

	builder.WriteString(titleStyle.Render(fmt.Sprintf("Path groups (≥%d pages)", res.GroupReport.MinPagesPerGroup)))
	builder.WriteString("\n")
	builder.WriteString(groupTable.Render())
	builder.WriteString("\n")

	return builder.String()
}
