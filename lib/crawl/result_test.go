package crawl

import (
	"bytes"
	"encoding/json"
	"testing"

	"portalcrawl/lib/portal"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	result := NewResult()
	result.Add("Winter", portal.EnrichedRecord{
		RowSummary: portal.RowSummary{Title: "Tax", Href: "t"},
		Fields:     map[string]string{"description": "A & B"},
		Documents:  []string{"W26/tax.pdf", "W26/tax-2.pdf"},
	})
	result.Add("Winter", portal.EnrichedRecord{
		RowSummary: portal.RowSummary{Title: "Evidence", Href: "e"},
		Error:      "timeout",
	})
	result.StartTab("Fall")
	return result
}

func TestResultSummary(t *testing.T) {
	result := sampleResult()
	diff := cmp.Diff(Summary{
		Tabs:          2,
		Total:         2,
		Enriched:      1,
		Errors:        1,
		Documents:     2,
		WithDocuments: 1,
	}, result.Summary())
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, []string{"Winter", "Fall"}, result.Tabs())
	require.Empty(t, result.Records("Fall"))
}

func TestResultRecordsAreCopies(t *testing.T) {
	result := sampleResult()
	records := result.Records("Winter")
	records[0].Fields["description"] = "changed"
	records[0].Documents[0] = "changed"

	again := result.Records("Winter")
	require.Equal(t, "A & B", again[0].Field("description"))
	require.Equal(t, "W26/tax.pdf", again[0].Documents[0])
}

func TestResultJSON(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.Nil(t, enc.Encode(sampleResult()))

	require.Equal(t,
		`{"Winter":[{"title":"Tax","href":"t","description":"A & B","documents":["W26/tax.pdf","W26/tax-2.pdf"]},`+
			`{"title":"Evidence","href":"e","error":"timeout"}],"Fall":[]}`+"\n",
		buf.String(),
	)
}

func TestResultYAML(t *testing.T) {
	out, err := yaml.Marshal(sampleResult())
	require.Nil(t, err)

	var decoded yaml.Node
	require.Nil(t, yaml.Unmarshal(out, &decoded))
	root := decoded.Content[0]
	require.Equal(t, yaml.MappingNode, root.Kind)
	require.Len(t, root.Content, 4)
	require.Equal(t, "Winter", root.Content[0].Value)
	require.Equal(t, "Fall", root.Content[2].Value)
	require.Len(t, root.Content[1].Content, 2)
	require.Empty(t, root.Content[3].Content)
}
