package portal

import (
	"encoding/json"
	"fmt"
)

// Tab is one view of the portal's result table.
type Tab struct {
	// Name is the display name, results are grouped under it.
	Name string `json:"name"`
	// Switch identifies the view for the Activator: an element id or a
	// form click value.
	Switch string `json:"switch"`
	// Key is where the tab's documents are stored, ex. "F25".
	Key string `json:"key,omitempty"`
}

// StorageKey returns Key, or Name when no key was set.
func (t Tab) StorageKey() string {
	if t.Key != "" {
		return t.Key
	}
	return t.Name
}

// Activator produces the script that switches the table to a tab. The
// script runs as a single opaque operation and must evaluate to a value.
type Activator interface {
	Script(tab Tab) string
}

func jsString(s string) string {
	literal, _ := json.Marshal(s)
	return string(literal)
}

// ClickActivator clicks the element whose id is the tab's Switch value.
// getElementById is used because the ids of some portals contain ':' which
// would need escaping in a css selector.
type ClickActivator struct{}

func (ClickActivator) Script(tab Tab) string {
	return ClickScript(tab.Switch)
}

func ClickScript(elementID string) string {
	id := jsString(elementID)
	return fmt.Sprintf(
		`(() => { const el = document.getElementById(%s); if (!el) { throw new Error("tab control not found: " + %s); } el.click(); return true; })()`,
		id, id,
	)
}

// FormActivator switches tabs by setting a named form's click field to the
// tab's Switch value and submitting the form, like a Domino "__Click" form.
type FormActivator struct {
	Form  string `json:"form"`
	Field string `json:"field"`
}

func (a FormActivator) Script(tab Tab) string {
	return FormScript(a.Form, a.Field, tab.Switch)
}

func FormScript(form, field, value string) string {
	formName := jsString(form)
	return fmt.Sprintf(
		`(() => { const form = document.forms[%s]; if (!form) { throw new Error("form not found: " + %s); } form[%s].value = %s; form.submit(); return true; })()`,
		formName, formName, jsString(field), jsString(value),
	)
}
