// Package crawl drives a crawl over a portal's tabs: it enters each tab,
// snapshots its rows and visits every row's detail page, re-entering the
// tab after each visit since the table cannot be returned to by url.
package crawl

import (
	"context"
	"fmt"

	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/portal"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("portalcrawl/lib/crawl")
var meter = otel.Meter("portalcrawl/lib/crawl")
var recordCounter, _ = meter.Int64Counter("crawl_records")

const (
	report_crawler_run    = "crawler.run"
	report_crawler_verify = "crawler.verify-rows"
)

// State is a step of the per-tab crawl.
type State int

const (
	StateEnterTab State = iota
	StateListRows
	StateVisitDetail
	StateRestoreTab
	StateTabDone
)

func (s State) String() string {
	switch s {
	case StateEnterTab:
		return "ENTER_TAB"
	case StateListRows:
		return "LIST_ROWS"
	case StateVisitDetail:
		return "VISIT_DETAIL"
	case StateRestoreTab:
		return "RESTORE_TAB"
	case StateTabDone:
		return "TAB_DONE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type TabEnterer interface {
	Enter(ctx context.Context, tab portal.Tab) error
}

type RowLister interface {
	List(ctx context.Context) ([]portal.RowSummary, error)
}

// RecordFetcher enriches a row, failures are reported on the record.
type RecordFetcher interface {
	Fetch(ctx context.Context, tab portal.Tab, row portal.RowSummary) portal.EnrichedRecord
}

type SessionChecker interface {
	Check(ctx context.Context) error
}

// Crawler crawls tabs one after another on a single browsing context.
type Crawler struct {
	// Session is checked after every tab entry, it may be nil.
	Session   SessionChecker
	Navigator TabEnterer
	Lister    RowLister
	Fetcher   RecordFetcher
	Progress  Progress
	Telemetry telemetry.API
	// VerifyRows re-lists the rows after every restore and reports a warning
	// when their number changed. The snapshot taken at LIST_ROWS is still used.
	VerifyRows bool
}

func (c Crawler) progress() Progress {
	if c.Progress == nil {
		return NopProgress{}
	}
	return c.Progress
}

func (c Crawler) tel() telemetry.API {
	if c.Telemetry == nil {
		return telemetry.NopAPI{}
	}
	return c.Telemetry
}

// Run crawls tabs in order. A failure to enter a tab, list its rows or a
// lost session ends the run, the records gathered so far are returned along
// with the error. Detail failures never end the run.
func (c Crawler) Run(ctx context.Context, tabs []portal.Tab) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Crawler.Run")
	defer span.End()

	result := NewResult()
	for _, tab := range tabs {
		err := c.crawlTab(ctx, tab, result)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "crawl aborted")
			c.tel().ReportBroken(report_crawler_run, err, tab.Name)
			c.report(result)
			return result, err
		}
	}
	c.report(result)
	return result, nil
}

func (c Crawler) report(result *Result) {
	summary := result.Summary()
	c.tel().ReportCount("crawl.records", int64(summary.Total))
	c.tel().ReportCount("crawl.errors", int64(summary.Errors))
	c.tel().ReportCount("crawl.documents", int64(summary.Documents))
	c.progress().Done(summary)
}

func (c Crawler) enter(ctx context.Context, tab portal.Tab) error {
	err := c.Navigator.Enter(ctx, tab)
	if err != nil {
		return err
	}
	if c.Session != nil {
		return c.Session.Check(ctx)
	}
	return nil
}

func (c Crawler) crawlTab(ctx context.Context, tab portal.Tab, result *Result) error {
	ctx, span := tracer.Start(ctx, "Crawler.Tab")
	defer span.End()
	span.SetAttributes(attribute.String("tab", tab.Name))

	var rows []portal.RowSummary
	index := 0
	state := StateEnterTab

	for {
		c.progress().State(tab, state)

		switch state {
		case StateEnterTab:
			err := c.enter(ctx, tab)
			if err != nil {
				return fmt.Errorf("tab %q: %w", tab.Name, err)
			}
			state = StateListRows

		case StateListRows:
			var err error
			rows, err = c.Lister.List(ctx)
			if err != nil {
				return fmt.Errorf("tab %q: %w", tab.Name, err)
			}
			result.StartTab(tab.Name)
			c.progress().TabStarted(tab, len(rows))
			span.SetAttributes(attribute.Int("rows", len(rows)))

			state = StateVisitDetail
			if len(rows) == 0 {
				state = StateTabDone
			}

		case StateVisitDetail:
			record := c.visit(ctx, tab, index, rows)
			result.Add(tab.Name, record)
			state = StateRestoreTab

		case StateRestoreTab:
			err := c.enter(ctx, tab)
			if err != nil {
				return fmt.Errorf(
					"tab %q: restore after row %d (%s): %w",
					tab.Name, index+1, rows[index].Title, err,
				)
			}
			if c.VerifyRows {
				c.verifyRows(ctx, tab, len(rows))
			}

			index++
			state = StateVisitDetail
			if index >= len(rows) {
				state = StateTabDone
			}

		case StateTabDone:
			return nil
		}
	}
}

func (c Crawler) visit(ctx context.Context, tab portal.Tab, index int, rows []portal.RowSummary) portal.EnrichedRecord {
	row := rows[index]
	ctx, span := tracer.Start(ctx, "Crawler.Visit")
	defer span.End()
	span.SetAttributes(
		attribute.String("tab", tab.Name),
		attribute.String("title", row.Title),
	)

	c.progress().RowStarted(tab, index, len(rows), row)
	record := c.Fetcher.Fetch(ctx, tab, row)
	c.progress().RowFinished(tab, index, len(rows), record)

	outcome := "ok"
	if record.Failed() {
		outcome = "error"
		span.SetStatus(codes.Error, record.Error)
	}
	recordCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tab", tab.Name),
		attribute.String("outcome", outcome),
	))
	return record
}

func (c Crawler) verifyRows(ctx context.Context, tab portal.Tab, expected int) {
	rows, err := c.Lister.List(ctx)
	if err != nil {
		c.tel().ReportWarning(report_crawler_verify, tab.Name, err)
		return
	}
	if len(rows) != expected {
		c.tel().ReportWarning(
			report_crawler_verify,
			tab.Name,
			fmt.Sprintf("row count changed from %d to %d", expected, len(rows)),
		)
	}
}
