package crawl

import "portalcrawl/lib/portal"

// Progress observes a crawl, it must not touch the browser.
type Progress interface {
	State(tab portal.Tab, state State)
	TabStarted(tab portal.Tab, rows int)
	// RowStarted and RowFinished receive the 0-based index of the row.
	RowStarted(tab portal.Tab, index, total int, row portal.RowSummary)
	RowFinished(tab portal.Tab, index, total int, record portal.EnrichedRecord)
	Done(summary Summary)
}

type NopProgress struct{}

func (NopProgress) State(portal.Tab, State)                                 {}
func (NopProgress) TabStarted(portal.Tab, int)                              {}
func (NopProgress) RowStarted(portal.Tab, int, int, portal.RowSummary)      {}
func (NopProgress) RowFinished(portal.Tab, int, int, portal.EnrichedRecord) {}
func (NopProgress) Done(Summary)                                            {}
