package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"
	"portalcrawl/lib/telemetry"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfig(filepath.Join(dir, "missing-portalcrawl.json5"))
	require.Nil(t, err)
	require.Equal(t, "descriptions", cfg.Site)
	require.Equal(t, "DATA/osgoode_descriptions.json", outputPath(cfg))
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portalcrawl.json5")
	require.Nil(t, os.WriteFile(path, []byte(`{
		site: "outlines",
		output: "out/outlines.yaml",
		timeouts: {login: "5m"},
	}`), 0644))

	cfg, err := loadConfig(path)
	require.Nil(t, err)
	require.Equal(t, "outlines", cfg.Site)
	require.Equal(t, "DATA", cfg.Documents)
	require.Equal(t, "out/outlines.yaml", outputPath(cfg))
	require.Equal(t, "5m0s", cfg.Timeouts.Login.String())
}

func TestRowLine(t *testing.T) {
	row := portal.RowSummary{
		Title:   "Torts",
		Columns: []portal.Column{{Name: "section", Value: "A"}},
	}
	require.Equal(t, "[1/12] Torts (A)", rowLine(0, 12, row))
	require.Equal(t, "[3/3] Tax", rowLine(2, 3, portal.RowSummary{Title: "Tax"}))
}

func TestRecordLine(t *testing.T) {
	cases := []struct {
		name      string
		record    portal.EnrichedRecord
		documents bool
		expected  string
	}{
		{name: "failed", record: portal.EnrichedRecord{Error: "timeout"}, expected: "    ✗ timeout"},
		{name: "enriched", record: portal.EnrichedRecord{}, expected: ""},
		{name: "no documents", record: portal.EnrichedRecord{Documents: []string{}}, documents: true, expected: "    ⚠ no document found"},
		{
			name:      "documents",
			record:    portal.EnrichedRecord{Documents: []string{"F25/a.pdf", "F25/b.pdf"}},
			documents: true,
			expected:  "    ✓ F25/a.pdf\n    ✓ F25/b.pdf",
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, recordLine(test.record, test.documents))
		})
	}
}

func TestRecordColumns(t *testing.T) {
	result := crawl.NewResult()
	result.Add("Fall", portal.EnrichedRecord{RowSummary: portal.RowSummary{
		Title:   "Torts",
		Columns: []portal.Column{{Name: "instructor"}, {Name: "section"}, {Name: "hours"}},
	}})
	require.Equal(t, []string{"instructor", "section"}, recordColumns(result.Records("Fall"), 2))

	loaded := []portal.EnrichedRecord{{Fields: map[string]string{"term": "F", "description": "x"}}}
	require.Equal(t, []string{"description", "term"}, recordColumns(loaded, 4))
}

func TestExecuteReturnsCommandErrors(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs([]string{}) })
	rootCmd.SetArgs([]string{
		"crawl", "nosuchsite",
		"--config", filepath.Join(t.TempDir(), "portalcrawl.json5"),
	})

	err := execute(context.Background())
	require.ErrorContains(t, err, `unknown site "nosuchsite"`)
}

// keptSpans keeps its spans when the provider shuts it down.
type keptSpans struct {
	*tracetest.InMemoryExporter
}

func (keptSpans) Shutdown(context.Context) error {
	return nil
}

func TestFlushTelemetry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(keptSpans{exporter}))

	previous := otel
	t.Cleanup(func() { otel = previous })
	otel = telemetry.Telemetry{TracerProvider: provider}

	_, span := provider.Tracer("portalcrawl-test").Start(context.Background(), "Crawler.Run")
	span.End()
	require.Empty(t, exporter.GetSpans())

	flushTelemetry()
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "Crawler.Run", spans[0].Name)
}
