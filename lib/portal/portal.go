// Package portal implements the pieces of a crawl that talk to the portal
// itself: entering tab views, reading table rows and visiting detail pages.
package portal

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("portalcrawl/lib/portal")

const (
	report_detail_fetch      = "detail.fetch"
	report_documents_collect = "documents.collect"
)
