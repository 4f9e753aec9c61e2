package testutil

import (
	"database/sql"
	"strings"
	"sync"
	"testing"

	"portalcrawl/internal/telemetry"

	_ "modernc.org/sqlite"
)

// Report is a single call made to a TelemetryRecorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
	Count  int64
}

// TelemetryRecorder is a telemetry.API that keeps every report for assertions.
type TelemetryRecorder struct {
	mu      sync.Mutex
	reports []Report
}

var _ telemetry.API = (*TelemetryRecorder)(nil)

func (r *TelemetryRecorder) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *TelemetryRecorder) ReportBroken(id string, params ...any) {
	r.add(Report{Kind: "broken", ID: id, Params: params})
}

func (r *TelemetryRecorder) ReportWarning(id string, params ...any) {
	r.add(Report{Kind: "warning", ID: id, Params: params})
}

func (r *TelemetryRecorder) ReportDebug(msg string, params ...any) {
	r.add(Report{Kind: "debug", ID: msg, Params: params})
}

func (r *TelemetryRecorder) ReportCount(id string, count int64) {
	r.add(Report{Kind: "count", ID: id, Count: count})
}

// Of returns the reports of the given kind ("broken", "warning", "debug" or "count").
func (r *TelemetryRecorder) Of(kind string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, report := range r.reports {
		if report.Kind == kind {
			out = append(out, report)
		}
	}
	return out
}

// Count returns the last count reported under id, or -1.
func (r *TelemetryRecorder) Count(id string) int64 {
	counts := r.Of("count")
	for i := len(counts) - 1; i >= 0; i-- {
		if counts[i].ID == id {
			return counts[i].Count
		}
	}
	return -1
}

// OpenMemoryDB opens an in-memory sqlite database and applies schema to it,
// the database is closed when the test ends.
func OpenMemoryDB(t testing.TB, schema string) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
	})

	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
	}
	return db
}
