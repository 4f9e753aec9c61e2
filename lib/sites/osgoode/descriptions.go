package osgoode

import (
	"time"

	"portalcrawl/lib/browser"
	"portalcrawl/lib/extract"
	"portalcrawl/lib/portal"
)

const (
	descriptionsBase = "https://lwdomapp3.osgoode.yorku.ca/myosgoode.nsf"

	mainRegionID    = "view:_id1:_id2:_id53:computedField2"
	sidebarRegionID = "view:_id1:_id2:_id56:computedField2"
)

var descriptionRules = extract.MustCompile([]extract.Rule{
	{
		Field:       "description",
		Kind:        extract.KindSpan,
		Label:       `<strong>Description:\s*</strong>`,
		Terminators: []string{`<p><strong>`, `</p>\s*<p><strong>`},
		Fallback:    []string{`<strong>Evaluation`, `\z`},
	},
	{
		Field:       "evaluation",
		Kind:        extract.KindSpan,
		Label:       `<strong>Evaluation:\s*</strong>`,
		Terminators: []string{`</p>`, `</span>`},
		Fallback:    []string{`\z`},
	},
})

var sidebarRules = extract.MustCompile([]extract.Rule{
	{Field: "term", Kind: extract.KindCapture, Pattern: `<b>(Fall|Winter|Year)</b>`},
	{Field: "sidebar_credits", Kind: extract.KindBold, Label: `Credits`},
	{Field: "sidebar_hours", Kind: extract.KindBold, Label: `Hours`},
	{Field: "max_enrollment", Kind: extract.KindBold, Label: `Max\.? Enrollment`},
	{Field: "prerequisite_courses", Kind: extract.KindBold, Label: `Prerequisite Courses`},
	{Field: "preferred_courses", Kind: extract.KindBold, Label: `Preferred Courses`},
	{Field: "presentation", Kind: extract.KindBold, Label: `Presentation`},
	{Field: "upper_year_writing", Kind: extract.KindBold, Label: `Upper Year Research.*?Writing Requirement`},
	{Field: "praxicum_detail", Kind: extract.KindBold, Label: `Praxicum`},
})

// Descriptions is the MyOsgoode JD course and seminar descriptions table:
// four tabs switched by buttons, one detail page per course.
func Descriptions() Site {
	return Site{
		Name:         "descriptions",
		Home:         descriptionsBase + "/jdcourseseminars.xsp",
		Base:         descriptionsBase,
		LoginPattern: loginPattern,
		Tabs: []portal.Tab{
			{Name: "Fall Courses", Switch: "view:_id1:_id2:_id53:button1", Key: "fall-courses"},
			{Name: "Fall Seminars", Switch: "view:_id1:_id2:_id53:button2", Key: "fall-seminars"},
			{Name: "Winter Courses", Switch: "view:_id1:_id2:_id53:button3", Key: "winter-courses"},
			{Name: "Winter Seminars", Switch: "view:_id1:_id2:_id53:button4", Key: "winter-seminars"},
		},
		Activator:   portal.ClickActivator{},
		RowSelector: "table.slyTable tbody tr",
		Parser: portal.RowParser{
			LinkSelector: "td a[href*='syldescription.xsp']",
			MinCells:     12,
			Columns: []string{
				"",
				"instructor",
				"section",
				"hours",
				"catalogue",
				"number",
				"credits",
				"initial_demand",
				"max",
				"final",
				"writing_requirement",
				"praxicum",
			},
		},
		Regions: []portal.Region{
			{
				Name:          "main",
				ElementID:     mainRegionID,
				Rules:         descriptionRules,
				FullTextField: "full_page_text",
				Required:      true,
			},
			{
				Name:      "sidebar",
				ElementID: sidebarRegionID,
				Rules:     sidebarRules,
			},
		},
		Table: browser.Stabilization{
			IdleTimeout: 15 * time.Second,
			Settle:      time.Second,
		},
		Return: returnPolicy,
		Detail: detailPolicy,
	}
}
