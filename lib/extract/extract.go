// Package extract pulls named fields out of semi-structured html blobs using
// declarative rules. Extraction never fails: a field whose label is absent
// extracts to the empty string.
package extract

import (
	"strings"

	"portalcrawl/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Extractor is a compiled, immutable rule set. It is safe for concurrent use.
type Extractor struct {
	rules []compiledRule
}

// Compile validates and compiles rules, field names must be unique and non-empty.
func Compile(rules []Rule) (*Extractor, error) {
	seen := map[string]bool{}
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Field) == "" {
			return nil, invalid(r.Field, "empty field name")
		}
		if seen[r.Field] {
			return nil, invalid(r.Field, "duplicate field")
		}
		seen[r.Field] = true

		c, err := compileRule(r)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}
	return &Extractor{rules: compiled}, nil
}

// MustCompile is like Compile but panics on an invalid rule set.
func MustCompile(rules []Rule) *Extractor {
	e, err := Compile(rules)
	if err != nil {
		panic(err)
	}
	return e
}

// Fields returns the declared field names in declaration order.
func (e *Extractor) Fields() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.field
	}
	return out
}

// Extract applies every rule to blob. The result always has an entry for
// every declared field.
func (e *Extractor) Extract(blob string) map[string]string {
	out := make(map[string]string, len(e.rules))
	for _, r := range e.rules {
		out[r.field] = r.apply(blob)
	}
	return out
}

func (r compiledRule) apply(blob string) string {
	switch r.kind {
	case KindSpan:
		return r.span(blob)
	case KindBold, KindCapture:
		m := r.pattern.FindStringSubmatch(blob)
		if m == nil {
			return ""
		}
		return clean(m[r.group])
	}
	return ""
}

func (r compiledRule) span(blob string) string {
	loc := r.label.FindStringIndex(blob)
	if loc == nil {
		return ""
	}
	rest := blob[loc[1]:]

	end := -1
	for _, term := range r.terminators {
		m := term.FindStringIndex(rest)
		if m != nil && (end < 0 || m[0] < end) {
			end = m[0]
		}
	}
	if end < 0 {
		for _, term := range r.fallback {
			m := term.FindStringIndex(rest)
			if m != nil {
				end = m[0]
				break
			}
		}
	}
	if end < 0 {
		return ""
	}
	return clean(rest[:end])
}

func clean(fragment string) string {
	return strings.TrimSpace(htmlutil.StripTags(fragment))
}

// FullText renders blob as plain text with block elements on their own lines.
func FullText(blob string) string {
	if strings.TrimSpace(blob) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(blob))
	if err != nil {
		return clean(blob)
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return clean(blob)
	}
	return htmlutil.RenderText(body.Nodes[0])
}
