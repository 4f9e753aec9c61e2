package portal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/browser"
	"portalcrawl/lib/extract"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Region is one element of a detail page that fields are extracted from.
type Region struct {
	Name string
	// ElementID locates the region by id, it takes precedence over Selector.
	ElementID string
	Selector  string
	Rules     *extract.Extractor
	// FullTextField, if set, receives the region's rendered text.
	FullTextField string
	// Required regions fail the record when missing, optional ones are skipped.
	Required bool
}

// RegionSnapshot is what RegionScript evaluates to.
type RegionSnapshot struct {
	Found bool   `json:"found"`
	HTML  string `json:"html"`
	Text  string `json:"text"`
}

// Script returns the script snapshotting the region.
func (r Region) Script() string {
	lookup := fmt.Sprintf("document.querySelector(%s)", jsString(r.Selector))
	if r.ElementID != "" {
		lookup = fmt.Sprintf("document.getElementById(%s)", jsString(r.ElementID))
	}
	return RegionScript(lookup)
}

// RegionScript returns a script that evaluates to a RegionSnapshot of the
// element returned by the lookup expression.
func RegionScript(lookup string) string {
	return fmt.Sprintf(
		`(() => { const el = %s; return el ? {found: true, html: el.innerHTML, text: el.innerText || ""} : {found: false, html: "", text: ""}; })()`,
		lookup,
	)
}

func (r Region) declaredFields() []string {
	var out []string
	if r.Rules != nil {
		out = append(out, r.Rules.Fields()...)
	}
	if r.FullTextField != "" {
		out = append(out, r.FullTextField)
	}
	return out
}

// ResolveRef turns a detail link into an absolute url: absolute links are
// used as-is, links starting with '/' are rooted at base's host and anything
// else is appended to base as a path element.
func ResolveRef(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errors.New("empty link")
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href, nil
	}

	baseUrl, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	if !strings.HasPrefix(href, "/") && !strings.HasSuffix(baseUrl.Path, "/") {
		baseUrl.Path += "/"
		if baseUrl.RawPath != "" {
			baseUrl.RawPath += "/"
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", href, err)
	}
	return baseUrl.ResolveReference(ref).String(), nil
}

// DetailFetcher visits the detail page of a row and extracts its fields.
type DetailFetcher struct {
	Browser   browser.Context
	Base      string
	Policy    browser.Stabilization
	Regions   []Region
	Documents *DocumentCollector
	Telemetry telemetry.API
}

// Fetch never fails: any error or panic during the visit is captured on the
// returned record. The browser is left on the detail page.
func (d DetailFetcher) Fetch(ctx context.Context, tab Tab, row RowSummary) (record EnrichedRecord) {
	ctx, span := tracer.Start(ctx, "DetailFetcher.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("tab", tab.Name),
		attribute.String("title", row.Title),
	)

	record = EnrichedRecord{RowSummary: row}
	fail := func(err error) {
		record.Fields = nil
		record.Documents = nil
		record.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "detail failed")
		if d.Telemetry != nil {
			d.Telemetry.ReportWarning(report_detail_fetch, row.Title, row.Href, err)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("panic: %v", r))
		}
	}()

	fields, documents, err := d.visit(ctx, tab, row)
	if err != nil {
		fail(err)
		return record
	}
	record.Fields = fields
	record.Documents = documents
	return record
}

func (d DetailFetcher) visit(ctx context.Context, tab Tab, row RowSummary) (map[string]string, []string, error) {
	target, err := ResolveRef(d.Base, row.Href)
	if err != nil {
		return nil, nil, err
	}
	err = d.Browser.Navigate(ctx, target, d.Policy)
	if err != nil {
		return nil, nil, err
	}

	fields := map[string]string{}
	merge := func(key, value string) {
		existing, ok := fields[key]
		if !ok || existing == "" {
			fields[key] = value
		}
	}

	for _, region := range d.Regions {
		var snapshot RegionSnapshot
		err := d.Browser.Evaluate(ctx, region.Script(), &snapshot)
		if err != nil {
			return nil, nil, fmt.Errorf("region %q: %w", region.Name, err)
		}
		if !snapshot.Found {
			if region.Required {
				return nil, nil, fmt.Errorf("region %q not found on %s", region.Name, target)
			}
			for _, key := range region.declaredFields() {
				merge(key, "")
			}
			continue
		}

		if region.Rules != nil {
			for key, value := range region.Rules.Extract(snapshot.HTML) {
				merge(key, value)
			}
		}
		if region.FullTextField != "" {
			text := strings.TrimSpace(snapshot.Text)
			if text == "" {
				text = extract.FullText(snapshot.HTML)
			}
			merge(region.FullTextField, text)
		}
	}

	var documents []string
	if d.Documents != nil {
		documents, err = d.Documents.Collect(ctx, tab, row)
		if err != nil {
			return nil, nil, err
		}
	}
	return fields, documents, nil
}
