package portal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func marshalRecord(t *testing.T, record EnrichedRecord) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.Nil(t, enc.Encode(record))
	return strings.TrimSuffix(buf.String(), "\n")
}

func TestRecordJSON(t *testing.T) {
	record := EnrichedRecord{
		RowSummary: RowSummary{
			Title: "Law & Society",
			Href:  "syldescription.xsp?id=1",
			Columns: []Column{
				{Name: "instructor", Value: "Smith"},
				{Name: "section", Value: "A"},
			},
		},
		Fields: map[string]string{
			"term":        "Fall",
			"description": "<none>",
		},
	}

	require.Equal(
		t,
		`{"title":"Law & Society","href":"syldescription.xsp?id=1","instructor":"Smith","section":"A","description":"<none>","term":"Fall"}`,
		marshalRecord(t, record),
	)

	failed := EnrichedRecord{
		RowSummary: RowSummary{Title: "Torts", Href: "x", Columns: []Column{{Name: "title", Value: "dup"}}},
		Documents:  []string{},
		Error:      "navigate x: timeout",
	}
	require.Equal(t, `{"title":"Torts","href":"x","documents":[],"error":"navigate x: timeout"}`, marshalRecord(t, failed))
}

func TestRecordYAML(t *testing.T) {
	record := EnrichedRecord{
		RowSummary: RowSummary{Title: "Torts", Href: "x", Columns: []Column{{Name: "section", Value: "A"}}},
		Fields:     map[string]string{"term": "Fall"},
		Documents:  []string{"F25/torts.pdf"},
	}
	encoded, err := yaml.Marshal(record)
	require.Nil(t, err)
	require.Equal(t, "title: Torts\nhref: x\nsection: A\nterm: Fall\ndocuments:\n    - F25/torts.pdf\n", string(encoded))
}

func TestRecordClone(t *testing.T) {
	record := EnrichedRecord{
		RowSummary: RowSummary{Title: "Torts", Columns: []Column{{Name: "section", Value: "A"}}},
		Fields:     map[string]string{"term": "Fall"},
		Documents:  []string{"a.pdf"},
	}
	clone := record.Clone()
	clone.Columns[0].Value = "B"
	clone.Fields["term"] = "Winter"
	clone.Documents[0] = "b.pdf"

	require.Equal(t, "A", record.Columns[0].Value)
	require.Equal(t, "Fall", record.Fields["term"])
	require.Equal(t, "a.pdf", record.Documents[0])
}
