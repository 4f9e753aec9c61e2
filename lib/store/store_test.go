package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"portalcrawl/internal/db"
	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"
	"portalcrawl/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleResult() *crawl.Result {
	result := crawl.NewResult()
	result.Add("Fall", portal.EnrichedRecord{
		RowSummary: portal.RowSummary{
			Title:   "Torts",
			Href:    "syldescription.xsp?id=1",
			Columns: []portal.Column{{Name: "section", Value: "A"}, {Name: "term", Value: "F"}},
		},
		Fields:    map[string]string{"description": "Duty & <b>care</b>", "evaluation": "Exam"},
		Documents: []string{"F25/torts.pdf"},
	})
	result.Add("Fall", portal.EnrichedRecord{
		RowSummary: portal.RowSummary{Title: "Tax", Href: "syldescription.xsp?id=2"},
		Error:      "navigate: context deadline exceeded",
	})
	result.StartTab("Winter")
	return result
}

func TestFormatOf(t *testing.T) {
	cases := []struct {
		path     string
		expected Format
	}{
		{path: "out/courses.json", expected: FormatJSON},
		{path: "out/courses.YAML", expected: FormatYAML},
		{path: "courses.yml", expected: FormatYAML},
		{path: "courses", expected: FormatJSON},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, FormatOf(test.path), test.path)
	}
}

func TestWriteFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "courses.json")
	require.Nil(t, WriteFile(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.Nil(t, err)
	expected := `{
  "Fall": [
    {
      "title": "Torts",
      "href": "syldescription.xsp?id=1",
      "section": "A",
      "term": "F",
      "description": "Duty & <b>care</b>",
      "evaluation": "Exam",
      "documents": [
        "F25/torts.pdf"
      ]
    },
    {
      "title": "Tax",
      "href": "syldescription.xsp?id=2",
      "error": "navigate: context deadline exceeded"
    }
  ],
  "Winter": []
}
`
	diff := cmp.Diff(expected, string(data))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"courses.json", "courses.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.Nil(t, WriteFile(path, sampleResult()))

			loaded, err := LoadFile(path)
			require.Nil(t, err)
			require.Equal(t, []string{"Fall", "Winter"}, loaded.Tabs())
			require.Equal(t, sampleResult().Summary(), loaded.Summary())

			records := loaded.Records("Fall")
			require.Equal(t, "Torts", records[0].Title)
			require.Equal(t, "Duty & <b>care</b>", records[0].Field("description"))
			// columns come back as fields
			require.Equal(t, "A", records[0].Field("section"))
			require.Equal(t, []string{"F25/torts.pdf"}, records[0].Documents)
			require.True(t, records[1].Failed())
		})
	}
}

func TestLoadFileRejectsNonObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.Nil(t, os.WriteFile(path, []byte(`[1, 2]`), 0644))
	_, err := LoadFile(path)
	require.ErrorContains(t, err, "expected an object of tabs")
}

func TestDocumentDir(t *testing.T) {
	root := t.TempDir()
	dir := DocumentDir{Root: root}

	path, err := dir.SaveDocument("F25", "Torts: Outline?.pdf", []byte("%PDF"))
	require.Nil(t, err)
	require.Equal(t, filepath.Join(root, "F25", "Torts_ Outline_.pdf"), path)

	data, err := os.ReadFile(path)
	require.Nil(t, err)
	require.Equal(t, "%PDF", string(data))

	path, err = dir.SaveDocument("F25", "Torts: Outline?.pdf", []byte("%PDF-2"))
	require.Nil(t, err)
	data, err = os.ReadFile(path)
	require.Nil(t, err)
	require.Equal(t, "%PDF-2", string(data))

	collector := portal.DocumentCollector{DefaultExtension: ".pdf"}
	name := collector.Filename("", strings.Repeat("Comparative Constitutional Law ", 10))
	path, err = dir.SaveDocument("F25", name, []byte("%PDF"))
	require.Nil(t, err)
	require.Equal(t, filepath.Join(root, "F25", name), path)
	require.Equal(t, ".pdf", filepath.Ext(path))
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, testutil.OpenMemoryDB(t, db.Schema), nil)
	require.Nil(t, err)

	started := time.UnixMilli(1_700_000_000_000)
	id, err := store.SaveRun(ctx, Run{
		Site:       "osgoode",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}, sampleResult())
	require.Nil(t, err)
	require.NotEmpty(t, id)

	run, loaded, err := store.LoadRun(ctx, id)
	require.Nil(t, err)
	require.Equal(t, "osgoode", run.Site)
	require.True(t, run.StartedAt.Equal(started))

	expected := sampleResult()
	require.Equal(t, expected.Tabs(), loaded.Tabs())
	diff := cmp.Diff(expected.Records("Fall"), loaded.Records("Fall"))
	if diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, loaded.Records("Winter"))

	runs, err := store.ListRuns(ctx)
	require.Nil(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, 2, runs[0].Total)
	require.Equal(t, 1, runs[0].Errors)
}

func TestStoreUnknownRun(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, testutil.OpenMemoryDB(t, db.Schema), nil)
	require.Nil(t, err)
	_, _, err = store.LoadRun(ctx, "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
