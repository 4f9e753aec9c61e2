// Package osgoode holds the crawl configuration of the two Osgoode Hall
// portals: the MyOsgoode course and seminar descriptions and the course
// outlines app.
package osgoode

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/browser"
	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"
)

// Documents describes how attachments are found on a detail page.
type Documents struct {
	LinkSelector     string
	Extensions       []string
	DefaultExtension string
}

// Site is everything needed to crawl one portal.
type Site struct {
	Name string
	// Home is the table page, Base resolves relative detail links.
	Home         string
	Base         string
	LoginPattern *regexp.Regexp

	Tabs        []portal.Tab
	Activator   portal.Activator
	RowSelector string
	Parser      portal.RowParser
	Regions     []portal.Region
	// Documents is nil for sites without attachments.
	Documents *Documents

	// Table applies after activating a tab, Return to loading Home and
	// Detail to loading a detail page.
	Table  browser.Stabilization
	Return browser.Stabilization
	Detail browser.Stabilization
}

// SelectTabs returns the tabs named by names, matched case-insensitively
// against tab names and keys, in site order. No names selects every tab.
func (s Site) SelectTabs(names []string) ([]portal.Tab, error) {
	if len(names) == 0 {
		return append([]portal.Tab{}, s.Tabs...), nil
	}
	wanted := map[string]bool{}
	for _, name := range names {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var out []portal.Tab
	for _, tab := range s.Tabs {
		name := strings.ToLower(tab.Name)
		key := strings.ToLower(tab.Key)
		if wanted[name] || (key != "" && wanted[key]) {
			out = append(out, tab)
			delete(wanted, name)
			delete(wanted, key)
		}
	}
	if len(wanted) > 0 {
		var unknown []string
		for name := range wanted {
			unknown = append(unknown, name)
		}
		return nil, fmt.Errorf("unknown tabs for %s: %s", s.Name, strings.Join(unknown, ", "))
	}
	return out, nil
}

// Crawler wires the site's components to b. sink receives documents and is
// only used by sites with attachments.
func (s Site) Crawler(b browser.Context, sink portal.DocumentSink, tel telemetry.API) crawl.Crawler {
	var collector *portal.DocumentCollector
	if s.Documents != nil && sink != nil {
		collector = &portal.DocumentCollector{
			Browser:          b,
			LinkSelector:     s.Documents.LinkSelector,
			Extensions:       s.Documents.Extensions,
			DefaultExtension: s.Documents.DefaultExtension,
			Sink:             sink,
			Telemetry:        tel,
		}
	}
	return crawl.Crawler{
		Session: portal.NewSession(b, s.LoginPattern),
		Navigator: portal.Navigator{
			Browser:   b,
			Home:      s.Home,
			Activator: s.Activator,
			Return:    s.Return,
			Table:     s.Table,
		},
		Lister: portal.Lister{
			Browser:     b,
			RowSelector: s.RowSelector,
			Parser:      s.Parser,
		},
		Fetcher: portal.DetailFetcher{
			Browser:   b,
			Base:      s.Base,
			Policy:    s.Detail,
			Regions:   s.Regions,
			Documents: collector,
			Telemetry: tel,
		},
		Telemetry: tel,
	}
}

// WithHost returns a copy of s whose Home and Base point at another host,
// used to crawl a mirror or a local copy of the portal.
func (s Site) WithHost(host string) Site {
	host = strings.TrimRight(host, "/")
	replace := func(u string) string {
		i := strings.Index(u, "://")
		if i < 0 {
			return u
		}
		rest := u[i+3:]
		j := strings.Index(rest, "/")
		if j < 0 {
			return host
		}
		return host + rest[j:]
	}
	s.Home = replace(s.Home)
	s.Base = replace(s.Base)
	return s
}

// loginPattern matches the Passport York single sign-on pages and the
// Domino login form.
var loginPattern = regexp.MustCompile(`(?i)passportyork\.yorku\.ca|[?&]login\b|/names\.nsf`)

var (
	detailPolicy = browser.Stabilization{
		LoadTimeout: 30 * time.Second,
		IdleTimeout: 30 * time.Second,
		Settle:      500 * time.Millisecond,
	}
	returnPolicy = browser.Stabilization{
		LoadTimeout: 30 * time.Second,
		IdleTimeout: 30 * time.Second,
		Settle:      500 * time.Millisecond,
	}
)

// Presets lists the available sites by name.
func Presets() map[string]Site {
	return map[string]Site{
		"descriptions": Descriptions(),
		"outlines":     Outlines(),
	}
}

// Lookup returns the preset called name.
func Lookup(name string) (Site, error) {
	site, ok := Presets()[name]
	if !ok {
		return Site{}, fmt.Errorf("unknown site %q (known: descriptions, outlines)", name)
	}
	return site, nil
}
