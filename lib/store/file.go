// Package store persists crawl results: as a json or yaml file, in a sqlite
// (or libsql) run store, and downloaded documents in a directory tree.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the file format from the extension of path, anything that
// is not .yaml or .yml is json.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes result to w, json is indented by two spaces.
func Encode(w io.Writer, format Format, result *crawl.Result) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err := enc.Encode(result)
		if err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteFile writes result to path in the format given by its extension,
// creating parent directories as needed.
func WriteFile(path string, result *crawl.Result) error {
	var buf bytes.Buffer
	err := Encode(&buf, FormatOf(path), result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadFile reads a result written by WriteFile. Columns and fields are
// indistinguishable in the flat record form, every key other than title,
// href, documents and error comes back as a field.
func LoadFile(path string) (*crawl.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result *crawl.Result
	switch FormatOf(path) {
	case FormatYAML:
		result, err = decodeYAML(data)
	default:
		result, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return result, nil
}

func decodeJSON(data []byte) (*crawl.Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object of tabs")
	}

	result := crawl.NewResult()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		tab, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a tab name, got %v", tok)
		}
		var raw []map[string]any
		err = dec.Decode(&raw)
		if err != nil {
			return nil, fmt.Errorf("tab %q: %w", tab, err)
		}
		addRecords(result, tab, raw)
	}
	return result, nil
}

func decodeYAML(data []byte) (*crawl.Result, error) {
	var doc yaml.Node
	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, err
	}
	result := crawl.NewResult()
	if len(doc.Content) == 0 {
		return result, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of tabs")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		tab := root.Content[i].Value
		var raw []map[string]any
		err = root.Content[i+1].Decode(&raw)
		if err != nil {
			return nil, fmt.Errorf("tab %q: %w", tab, err)
		}
		addRecords(result, tab, raw)
	}
	return result, nil
}

func addRecords(result *crawl.Result, tab string, raw []map[string]any) {
	result.StartTab(tab)
	for _, entries := range raw {
		result.Add(tab, recordFromEntries(entries))
	}
}

func recordFromEntries(entries map[string]any) portal.EnrichedRecord {
	var record portal.EnrichedRecord
	for key, value := range entries {
		switch key {
		case "title":
			record.Title = stringOf(value)
		case "href":
			record.Href = stringOf(value)
		case "error":
			record.Error = stringOf(value)
		case "documents":
			record.Documents = []string{}
			list, _ := value.([]any)
			for _, doc := range list {
				record.Documents = append(record.Documents, stringOf(doc))
			}
		default:
			if record.Fields == nil {
				record.Fields = map[string]string{}
			}
			record.Fields[key] = stringOf(value)
		}
	}
	return record
}

func stringOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
