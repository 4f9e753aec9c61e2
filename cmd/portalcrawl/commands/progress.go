package commands

import (
	"fmt"
	"io"
	"time"

	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"

	"github.com/briandowns/spinner"
)

// spinnerProgress prints one line per tab and row, with a spinner showing
// what the crawler is waiting on.
type spinnerProgress struct {
	out       io.Writer
	spinner   *spinner.Spinner
	documents bool
	tab       string
}

func newSpinnerProgress(out io.Writer, documents bool) *spinnerProgress {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	return &spinnerProgress{out: out, spinner: s, documents: documents}
}

// println stops the spinner so the line is not interleaved with a frame.
func (p *spinnerProgress) println(format string, args ...any) {
	active := p.spinner.Active()
	if active {
		p.spinner.Stop()
	}
	fmt.Fprintf(p.out, format+"\n", args...)
	if active {
		p.spinner.Start()
	}
}

func (p *spinnerProgress) State(tab portal.Tab, state crawl.State) {
	p.spinner.Suffix = fmt.Sprintf(" %s: %s", tab.Name, stateLabel(state))
	if state == crawl.StateTabDone {
		p.spinner.Stop()
		return
	}
	if !p.spinner.Active() {
		p.spinner.Start()
	}
}

func stateLabel(state crawl.State) string {
	switch state {
	case crawl.StateEnterTab:
		return "opening tab"
	case crawl.StateListRows:
		return "reading rows"
	case crawl.StateVisitDetail:
		return "visiting detail page"
	case crawl.StateRestoreTab:
		return "returning to table"
	default:
		return state.String()
	}
}

func (p *spinnerProgress) TabStarted(tab portal.Tab, rows int) {
	p.println("\n%s: %d entries", tab.Name, rows)
}

func (p *spinnerProgress) RowStarted(tab portal.Tab, index, total int, row portal.RowSummary) {
	p.println("  %s", rowLine(index, total, row))
}

func (p *spinnerProgress) RowFinished(tab portal.Tab, index, total int, record portal.EnrichedRecord) {
	if line := recordLine(record, p.documents); line != "" {
		p.println("%s", line)
	}
}

func (p *spinnerProgress) Done(summary crawl.Summary) {
	p.spinner.Stop()
	if p.documents {
		p.println("\n%d/%d entries had documents downloaded", summary.WithDocuments, summary.Total)
	}
}

// rowLine is "[i/n] title (section)", the section is left out when the
// row has none.
func rowLine(index, total int, row portal.RowSummary) string {
	line := fmt.Sprintf("[%d/%d] %s", index+1, total, row.Title)
	if section := row.Column("section"); section != "" {
		line += fmt.Sprintf(" (%s)", section)
	}
	return line
}

func recordLine(record portal.EnrichedRecord, documents bool) string {
	switch {
	case record.Failed():
		return "    ✗ " + record.Error
	case documents && len(record.Documents) == 0:
		return "    ⚠ no document found"
	case documents:
		line := ""
		for i, doc := range record.Documents {
			if i > 0 {
				line += "\n"
			}
			line += "    ✓ " + doc
		}
		return line
	default:
		return ""
	}
}
