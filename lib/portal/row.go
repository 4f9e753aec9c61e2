package portal

import (
	"context"
	"fmt"
	"strings"

	"portalcrawl/lib/browser"
	"portalcrawl/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Column is a named cell value of a row.
type Column struct {
	Name  string
	Value string
}

// RowSummary is what the table shows about an entry before its detail
// page is visited.
type RowSummary struct {
	Title string
	// Href is the detail link exactly as it appears in the table.
	Href    string
	Columns []Column
}

// Column returns the value of the named column, or "" if there is none.
func (r RowSummary) Column(name string) string {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// RowParser turns a table row into a RowSummary.
type RowParser struct {
	// LinkSelector finds the detail link inside a row, rows without one are
	// not data rows.
	LinkSelector string `json:"link_selector"`
	// MinCells is the minimum number of cells of a data row.
	MinCells int `json:"min_cells"`
	// Columns names cells by position, an empty name skips the cell.
	Columns []string `json:"columns"`
}

func cellText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(htmlutil.RenderText(sel.Nodes[0]))
}

// Parse returns false for rows that are not data rows: rows without a
// detail link and rows with fewer than MinCells cells.
func (p RowParser) Parse(row *goquery.Selection) (RowSummary, bool) {
	link := row.Find(p.LinkSelector).First()
	if link.Length() == 0 {
		return RowSummary{}, false
	}
	cells := row.Find("td")
	if cells.Length() < p.MinCells {
		return RowSummary{}, false
	}

	href, _ := link.Attr("href")
	summary := RowSummary{
		Title: cellText(link),
		Href:  strings.TrimSpace(href),
	}
	for i, name := range p.Columns {
		if name == "" {
			continue
		}
		value := ""
		if i < cells.Length() {
			value = cellText(cells.Eq(i))
		}
		summary.Columns = append(summary.Columns, Column{Name: name, Value: value})
	}
	return summary, true
}

// Lister snapshots the data rows of the current table view.
type Lister struct {
	Browser     browser.Context
	RowSelector string
	Parser      RowParser
}

// List fails only when the rows cannot be queried at all.
func (l Lister) List(ctx context.Context) ([]RowSummary, error) {
	ctx, span := tracer.Start(ctx, "Lister.List")
	defer span.End()

	rows, err := l.Browser.Query(ctx, l.RowSelector)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list rows: %w", err)
	}

	var out []RowSummary
	for _, row := range rows {
		summary, ok := l.Parser.Parse(row)
		if !ok {
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}
