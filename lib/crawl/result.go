package crawl

import (
	"bytes"
	"encoding/json"

	"portalcrawl/lib/portal"

	"gopkg.in/yaml.v3"
)

// Summary holds the running totals of a Result.
type Summary struct {
	Tabs     int
	Total    int
	Enriched int
	Errors   int
	// Documents counts saved documents, WithDocuments the records that have at least one.
	Documents     int
	WithDocuments int
}

// Result accumulates records per tab, in the order tabs were started and
// records were added. Only the crawler writes to it.
type Result struct {
	order   []string
	records map[string][]portal.EnrichedRecord
	summary Summary
}

func NewResult() *Result {
	return &Result{records: map[string][]portal.EnrichedRecord{}}
}

// StartTab registers a tab so that it appears in the result even without records.
func (r *Result) StartTab(tab string) {
	if _, ok := r.records[tab]; ok {
		return
	}
	r.order = append(r.order, tab)
	r.records[tab] = []portal.EnrichedRecord{}
	r.summary.Tabs++
}

func (r *Result) Add(tab string, record portal.EnrichedRecord) {
	r.StartTab(tab)
	r.records[tab] = append(r.records[tab], record.Clone())

	r.summary.Total++
	if record.Failed() {
		r.summary.Errors++
	} else {
		r.summary.Enriched++
	}
	r.summary.Documents += len(record.Documents)
	if len(record.Documents) > 0 {
		r.summary.WithDocuments++
	}
}

func (r *Result) Tabs() []string {
	return append([]string{}, r.order...)
}

// Records returns a copy of the records of tab.
func (r *Result) Records(tab string) []portal.EnrichedRecord {
	records := r.records[tab]
	out := make([]portal.EnrichedRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}

func (r *Result) Summary() Summary {
	return r.summary
}

// MarshalJSON encodes the result as an object of tab name to records with
// tabs in crawl order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, tab := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		err := enc.Encode(tab)
		if err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		err = enc.Encode(r.records[tab])
		if err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Result) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, tab := range r.order {
		records := &yaml.Node{}
		err := records.Encode(r.records[tab])
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: tab,
		}, records)
	}
	return node, nil
}
