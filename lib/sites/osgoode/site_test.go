package osgoode

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"testing"

	"portalcrawl/lib/browser"
	"portalcrawl/lib/browser/browsertest"
	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSelectTabs(t *testing.T) {
	site := Descriptions()

	all, err := site.SelectTabs(nil)
	require.Nil(t, err)
	require.Len(t, all, 4)

	selected, err := site.SelectTabs([]string{"winter seminars", "FALL-COURSES"})
	require.Nil(t, err)
	require.Equal(t, []string{"Fall Courses", "Winter Seminars"}, []string{selected[0].Name, selected[1].Name})

	_, err = site.SelectTabs([]string{"Spring"})
	require.ErrorContains(t, err, "unknown tabs for descriptions: spring")
}

func TestLookup(t *testing.T) {
	site, err := Lookup("outlines")
	require.Nil(t, err)
	require.Equal(t, "F25", site.Tabs[0].Key)

	_, err = Lookup("moodle")
	require.ErrorContains(t, err, "unknown site")
}

func TestWithHost(t *testing.T) {
	site := Descriptions().WithHost("http://localhost:8080/")
	require.Equal(t, "http://localhost:8080/myosgoode.nsf/jdcourseseminars.xsp", site.Home)
	require.Equal(t, "http://localhost:8080/myosgoode.nsf", site.Base)
}

func TestDescriptionRules(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		expected map[string]string
	}{
		{
			name: "content preserving",
			html: `<strong>Description: </strong>Intro to <i>X</i>.<p><strong>Evaluation: </strong>Exam</p>`,
			expected: map[string]string{
				"description": "Intro to X.",
				"evaluation":  "Exam",
			},
		},
		{
			name: "unterminated description",
			html: `<strong>Description: </strong>Intro to X.<p>`,
			expected: map[string]string{
				"description": "Intro to X.",
				"evaluation":  "",
			},
		},
		{
			name: "bare labels run to the end",
			html: `<strong>Description: </strong>Text A<strong>Evaluation: </strong>Exam`,
			expected: map[string]string{
				"description": "Text A",
				"evaluation":  "Exam",
			},
		},
		{
			name:     "absent labels",
			html:     `<p>Course cancelled</p>`,
			expected: map[string]string{"description": "", "evaluation": ""},
		},
		{
			name: "both sections",
			html: `<p><strong>Description: </strong>Duty of <em>care</em>.</p>` +
				`<p><strong>Evaluation: </strong>100% exam</p>`,
			expected: map[string]string{
				"description": "Duty of care.",
				"evaluation":  "100% exam",
			},
		},
		{
			name: "evaluation fallback",
			html: `<strong>Description: </strong>Seminar on tax.<br><strong>Evaluation: </strong>Paper</span>`,
			expected: map[string]string{
				"description": "Seminar on tax.",
				"evaluation":  "Paper",
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			got := descriptionRules.Extract(test.html)
			diff := cmp.Diff(test.expected, got)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

const sidebarHTML = `<div>
<b>Winter</b><br>
Credits: <b>3</b><br>
Hours: <b>3</b><br>
Max. Enrollment: <b>25</b><br>
Prerequisite Courses: <b>Torts</b><br>
Presentation: <b>Yes</b><br>
Upper Year Research &amp; Writing Requirement: <b>Yes</b><br>
</div>`

func TestSidebarRules(t *testing.T) {
	got := sidebarRules.Extract(sidebarHTML)
	diff := cmp.Diff(map[string]string{
		"term":                 "Winter",
		"sidebar_credits":      "3",
		"sidebar_hours":        "3",
		"max_enrollment":       "25",
		"prerequisite_courses": "Torts",
		"preferred_courses":    "",
		"presentation":         "Yes",
		"upper_year_writing":   "Yes",
		"praxicum_detail":      "",
	}, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

func descriptionsRow(id int, title string) string {
	cells := []string{fmt.Sprintf(`<a href="syldescription.xsp?documentId=%d">%s</a>`, id, title)}
	for i := 1; i < 12; i++ {
		cells = append(cells, fmt.Sprintf("c%d", i))
	}
	return "<tr><td>" + strings.Join(cells, "</td><td>") + "</td></tr>"
}

func TestDescriptionsCrawl(t *testing.T) {
	site := Descriptions().WithHost("https://portal.test")
	fake := browsertest.New()
	fake.AddPage(site.Home, browsertest.Page{HTML: `<p>tabs</p>`})

	table := `<table class="slyTable"><thead><tr><th>Title</th></tr></thead><tbody>` +
		descriptionsRow(1, "Torts") +
		`<tr><td colspan="12">Section header</td></tr>` +
		`<tr><td><a href="syldescription.xsp?documentId=9">Short</a></td><td>x</td></tr>` +
		`</tbody></table>`
	fake.OnEvaluate(portal.ClickScript(site.Tabs[0].Switch), func(f *browsertest.Fake) (any, error) {
		f.SetContent(table)
		return true, nil
	})
	fake.AddPage(site.Base+"/syldescription.xsp?documentId=1", browsertest.Page{HTML: `
		<div id="view:_id1:_id2:_id53:computedField2"><p><strong>Description: </strong>Duty.</p><p><strong>Evaluation: </strong>Exam</p></div>
		<div id="view:_id1:_id2:_id56:computedField2">` + sidebarHTML + `</div>`,
	})
	for _, region := range site.Regions {
		fake.ServeElement(region.Script(), fmt.Sprintf(`[id="%s"]`, region.ElementID))
	}

	result, err := site.Crawler(fake, nil, nil).Run(context.Background(), site.Tabs[:1])
	require.Nil(t, err)

	records := result.Records("Fall Courses")
	require.Len(t, records, 1)
	record := records[0]
	require.False(t, record.Failed(), record.Error)
	require.Equal(t, "Torts", record.Title)
	require.Equal(t, "c1", record.Column("instructor"))
	require.Equal(t, "c11", record.Column("praxicum"))
	require.Equal(t, "Duty.", record.Field("description"))
	require.Equal(t, "Exam", record.Field("evaluation"))
	require.Equal(t, "Winter", record.Field("term"))
	require.Equal(t, "25", record.Field("max_enrollment"))
	require.Contains(t, record.Field("full_page_text"), "Description: Duty.")
	require.Nil(t, record.Documents)
}

type memorySink map[string][]byte

func (m memorySink) SaveDocument(key, name string, body []byte) (string, error) {
	p := path.Join(key, name)
	m[p] = body
	return p, nil
}

func TestOutlinesCrawl(t *testing.T) {
	site := Outlines().WithHost("https://outlines.test")
	fake := browsertest.New()
	fake.AddPage(site.Home, browsertest.Page{HTML: `<form name="_CourseViewTemplate"></form>`})

	table := `<table class="coursetable">
		<tr><th>Title</th><th>Number</th></tr>
		<tr><td><a href="/outlines2526.nsf/Courses/abc?OpenDocument">Torts</a></td><td>2010</td><td>A</td><td></td><td>F</td><td>Smith</td></tr>
		<tr><td><a href="/outlines2526.nsf/Courses/def?OpenDocument">Tax</a></td><td>3010</td><td>B</td><td></td><td>F</td><td>Jones</td></tr>
	</table>`
	fake.OnEvaluate(portal.FormScript("_CourseViewTemplate", "__Click", fallClick), func(f *browsertest.Fake) (any, error) {
		f.SetContent(table)
		return true, nil
	})
	fake.AddPage("https://outlines.test/outlines2526.nsf/Courses/abc?OpenDocument", browsertest.Page{HTML: `
		<a href="/outlines2526.nsf/Courses/abc/$File/outline.pdf">outline.pdf</a>
		<a href="/outlines2526.nsf/Courses/abc/$File/outline.pdf">again</a>
		<a href="/outlines2526.nsf/Courses/abc/$File/reading">Reading list</a>`,
	})
	fake.AddPage("https://outlines.test/outlines2526.nsf/Courses/def?OpenDocument", browsertest.Page{HTML: `<p>no outline yet</p>`})
	fake.AddFile("https://outlines.test/outlines2526.nsf/Courses/abc/$File/outline.pdf", browser.Response{
		Status: http.StatusOK,
		Body:   []byte("%PDF-1"),
	})
	fake.AddFile("https://outlines.test/outlines2526.nsf/Courses/abc/$File/reading", browser.Response{
		Status: http.StatusOK,
		Body:   []byte("%PDF-2"),
	})

	sink := memorySink{}
	result, err := site.Crawler(fake, sink, nil).Run(context.Background(), site.Tabs[:1])
	require.Nil(t, err)

	records := result.Records("Fall")
	require.Len(t, records, 2)
	require.Equal(t, []string{"F25/outline.pdf", "F25/Torts.pdf"}, records[0].Documents)
	require.Equal(t, "2010", records[0].Column("course_number"))
	require.Equal(t, "Smith", records[0].Column("professor"))
	require.Equal(t, []string{}, records[1].Documents)
	require.False(t, records[1].Failed())

	require.Equal(t, "%PDF-1", string(sink["F25/outline.pdf"]))
	require.Equal(t, crawl.Summary{
		Tabs:          1,
		Total:         2,
		Enriched:      2,
		Documents:     2,
		WithDocuments: 1,
	}, result.Summary())
}
