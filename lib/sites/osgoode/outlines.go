package osgoode

import (
	"time"

	"portalcrawl/lib/browser"
	"portalcrawl/lib/portal"
)

const (
	outlinesHost = "https://lwdomapp1.osgoode.yorku.ca"
	outlinesDB   = "/outlines2526.nsf"

	// __Click values of the Fall and Winter links on the outlines view.
	fallClick   = "85258CED005631DD.ff8cb09e5aa2b10a85256a1d005a7d4f/$Body/0.CDE"
	winterClick = "85258CED005631DD.ff8cb09e5aa2b10a85256a1d005a7d4f/$Body/0.E84"
)

// Outlines is the course outlines app: two terms switched by submitting the
// view form, one PDF outline (or more) attached to each course page.
func Outlines() Site {
	return Site{
		Name:         "outlines",
		Home:         outlinesHost + outlinesDB + "/CourseViewTemplate?OpenForm",
		Base:         outlinesHost,
		LoginPattern: loginPattern,
		Tabs: []portal.Tab{
			{Name: "Fall", Switch: fallClick, Key: "F25"},
			{Name: "Winter", Switch: winterClick, Key: "W26"},
		},
		Activator: portal.FormActivator{
			Form:  "_CourseViewTemplate",
			Field: "__Click",
		},
		RowSelector: "table.coursetable tr",
		Parser: portal.RowParser{
			LinkSelector: "a[href*='" + outlinesDB + "/Courses/']",
			Columns: []string{
				"",
				"course_number",
				"section",
				"title_variance",
				"term",
				"professor",
			},
		},
		Documents: &Documents{
			LinkSelector:     `a[href*="$File"]`,
			Extensions:       []string{".pdf", ".docx", ".doc"},
			DefaultExtension: ".pdf",
		},
		Table: browser.Stabilization{
			IdleTimeout: 30 * time.Second,
			Settle:      time.Second,
		},
		Return: returnPolicy,
		Detail: detailPolicy,
	}
}
