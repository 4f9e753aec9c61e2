package portal

import (
	"bytes"
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"
)

// EnrichedRecord is a row summary plus whatever its detail page yielded.
// A non-empty Error means the detail visit was attempted and failed, in
// which case Fields is empty.
type EnrichedRecord struct {
	RowSummary
	Fields map[string]string
	// Documents holds the saved paths of downloaded attachments, it is nil
	// unless documents were collected.
	Documents []string
	Error     string
}

func (r EnrichedRecord) Failed() bool {
	return r.Error != ""
}

// Field returns the named field, or "" when absent.
func (r EnrichedRecord) Field(name string) string {
	return r.Fields[name]
}

// Clone returns a deep copy of r.
func (r EnrichedRecord) Clone() EnrichedRecord {
	out := r
	if r.Columns != nil {
		out.Columns = append([]Column(nil), r.Columns...)
	}
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	if r.Documents != nil {
		out.Documents = append([]string{}, r.Documents...)
	}
	return out
}

// Entry is one key of a record's flat serialized form.
type Entry struct {
	Key   string
	Value any
}

// Entries flattens the record in output order: title, href, columns in
// table order, fields sorted by name, documents, error. Keys that were
// already emitted are not repeated.
func (r EnrichedRecord) Entries() []Entry {
	seen := map[string]bool{}
	var out []Entry
	add := func(key string, value any) {
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Entry{Key: key, Value: value})
	}

	add("title", r.Title)
	add("href", r.Href)
	for _, c := range r.Columns {
		add(c.Name, c.Value)
	}

	fields := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		add(k, r.Fields[k])
	}

	if r.Documents != nil {
		add("documents", r.Documents)
	}
	if r.Error != "" {
		add("error", r.Error)
	}
	return out
}

func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		err := encodeJSON(&buf, e.Key)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		err = encodeJSON(&buf, e.Value)
		if err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeJSON writes v without html escaping, page text is full of '<' and '&'.
func encodeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return err
	}
	// Encode terminates every value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

func (r EnrichedRecord) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range r.Entries() {
		value := &yaml.Node{}
		err := value.Encode(e.Value)
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: e.Key,
		}, value)
	}
	return node, nil
}
