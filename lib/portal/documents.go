package portal

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/browser"
	"portalcrawl/lib/htmlutil"
	"portalcrawl/lib/textutil"

	"github.com/dustin/go-humanize"
)

// DocumentSink stores a downloaded document under a storage key and
// returns where it was saved.
type DocumentSink interface {
	SaveDocument(key, name string, body []byte) (string, error)
}

// DocumentCollector downloads the attachments linked from a detail page
// through the authenticated session.
type DocumentCollector struct {
	Browser      browser.Context
	LinkSelector string
	// Extensions are the extensions that make a link's text usable as a filename.
	Extensions []string
	// DefaultExtension is appended to the row title when the link text is
	// not a filename.
	DefaultExtension string
	Sink             DocumentSink
	Telemetry        telemetry.API
}

func (c DocumentCollector) report() telemetry.API {
	if c.Telemetry == nil {
		return telemetry.NopAPI{}
	}
	return c.Telemetry
}

// Filename picks the name a document is saved under.
func (c DocumentCollector) Filename(linkText, title string) string {
	if linkText != "" && textutil.HasExtension(linkText, c.Extensions...) {
		linkText = strings.TrimSpace(linkText)
		ext := path.Ext(linkText)
		return textutil.SanitizeFilenameExt(strings.TrimSuffix(linkText, ext), ext, textutil.DefaultFilenameLength)
	}
	return textutil.SanitizeFilenameExt(title, c.DefaultExtension, textutil.DefaultFilenameLength)
}

// Collect saves every unique attachment of the current page and returns the
// saved paths. A page without attachments is not an error, neither is a
// single attachment that fails to download or save.
func (c DocumentCollector) Collect(ctx context.Context, tab Tab, row RowSummary) ([]string, error) {
	ctx, span := tracer.Start(ctx, "DocumentCollector.Collect")
	defer span.End()

	links, err := c.Browser.Query(ctx, c.LinkSelector)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	page, err := browser.Location(ctx, c.Browser)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	pageUrl, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	seen := map[string]bool{}
	saved := []string{}
	for _, link := range links {
		for _, anchor := range htmlutil.GetAnchors(ctx, link) {
			if anchor.Href == "" || seen[anchor.Href] {
				continue
			}
			seen[anchor.Href] = true

			path, err := c.download(ctx, tab, row, pageUrl, anchor)
			if err != nil {
				c.report().ReportWarning(report_documents_collect, row.Title, anchor.Href, err)
				continue
			}
			saved = append(saved, path)
		}
	}
	return saved, nil
}

func (c DocumentCollector) download(ctx context.Context, tab Tab, row RowSummary, page *url.URL, anchor htmlutil.Anchor) (string, error) {
	ref, err := url.Parse(anchor.Href)
	if err != nil {
		return "", err
	}
	target := page.ResolveReference(ref).String()

	res, err := c.Browser.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", fmt.Errorf("fetch %s: http %d", target, res.Status)
	}

	name := c.Filename(anchor.Name, row.Title)
	path, err := c.Sink.SaveDocument(tab.StorageKey(), name, res.Body)
	if err != nil {
		return "", err
	}
	c.report().ReportDebug(
		"document saved",
		path,
		humanize.Bytes(uint64(len(res.Body))),
	)
	return path, nil
}
