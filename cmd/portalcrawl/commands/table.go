package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"
	"portalcrawl/lib/store"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderSummary(summary crawl.Summary, took time.Duration) {
	t := newTable()
	t.SetTitle("crawl summary")
	t.AppendHeader(table.Row{"Tabs", "Total", "Enriched", "Errors", "Documents", "Took"})
	t.AppendRow(table.Row{
		summary.Tabs,
		summary.Total,
		summary.Enriched,
		summary.Errors,
		summary.Documents,
		took.Round(time.Second),
	})
	t.Render()
}

// recordColumns picks the columns shown for a tab: title, the first few
// row columns, error.
func recordColumns(records []portal.EnrichedRecord, max int) []string {
	seen := map[string]bool{}
	var names []string
	for _, record := range records {
		for _, c := range record.Columns {
			if !seen[c.Name] && len(names) < max {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}
	// results read back from files carry no columns, show fields instead
	if len(names) == 0 {
		for _, record := range records {
			for name := range record.Fields {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
		sort.Strings(names)
		if len(names) > max {
			names = names[:max]
		}
	}
	return names
}

func valueOf(record portal.EnrichedRecord, name string) string {
	if v := record.Column(name); v != "" {
		return v
	}
	return record.Field(name)
}

func renderResult(result *crawl.Result, width int) {
	for _, tab := range result.Tabs() {
		records := result.Records(tab)
		names := recordColumns(records, 4)

		t := newTable()
		t.SetTitle(fmt.Sprintf("%s (%d)", tab, len(records)))
		header := table.Row{"#", "Title"}
		for _, name := range names {
			header = append(header, name)
		}
		header = append(header, "Documents", "Error")
		t.AppendHeader(header)

		for i, record := range records {
			row := table.Row{i + 1, record.Title}
			for _, name := range names {
				row = append(row, valueOf(record, name))
			}
			row = append(row, len(record.Documents), record.Error)
			t.AppendRow(row)
		}

		configs := []table.ColumnConfig{{Name: "Title", WidthMax: width, WidthMaxEnforcer: text.WrapSoft}}
		for _, name := range names {
			configs = append(configs, table.ColumnConfig{Name: name, WidthMax: width, WidthMaxEnforcer: text.Trim})
		}
		t.SetColumnConfigs(configs)
		t.Render()
	}
	renderSummary(result.Summary(), 0)
}

func renderRuns(runs []store.Run) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Site", "Started", "Took", "Records", "Errors"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.Site,
			humanize.Time(run.StartedAt),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
			run.Total,
			run.Errors,
		})
	}
	t.Render()
}
