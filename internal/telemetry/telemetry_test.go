package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type report struct {
	kind string
	id   string
}

type recorder struct {
	reports []report
}

func (r *recorder) ReportBroken(id string, params ...any) {
	r.reports = append(r.reports, report{"broken", id})
}

func (r *recorder) ReportWarning(id string, params ...any) {
	r.reports = append(r.reports, report{"warning", id})
}

func (r *recorder) ReportDebug(msg string, params ...any) {
	r.reports = append(r.reports, report{"debug", msg})
}

func (r *recorder) ReportCount(id string, count int64) {
	r.reports = append(r.reports, report{"count", id})
}

func TestScopedAPI(t *testing.T) {
	rec := &recorder{}
	scoped := NewScopedAPI("browser", NewScopedAPI("crawl", rec))
	scoped.ReportBroken("chrome.close")
	scoped.ReportWarning("chrome.stabilize")
	scoped.ReportDebug("settled")
	scoped.ReportCount("records", 2)

	require.Equal(t, []report{
		{"broken", "crawl: browser: chrome.close"},
		{"warning", "crawl: browser: chrome.stabilize"},
		{"debug", "crawl: browser: settled"},
		{"count", "crawl: browser: records"},
	}, rec.reports)
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	rec := &recorder{}
	client := resty.New()
	InstrumentResty(client, rec)

	res, err := client.R().Get(server.URL + "/outline.pdf")
	require.Nil(t, err)
	require.Equal(t, "%PDF", res.String())
	require.Equal(t, []report{
		{"debug", report_resty_request},
		{"debug", report_resty_response},
	}, rec.reports)
}
