// Package browsertest provides a scripted, in-memory browser.Context.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"portalcrawl/lib/browser"
	"portalcrawl/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Page is the canned result of navigating to a url.
type Page struct {
	HTML string
	// Err makes the navigation fail.
	Err error
	// RedirectTo makes the navigation end up at another registered page.
	RedirectTo string
}

// Call records one operation performed on the fake.
type Call struct {
	Op  string
	Arg string
}

type EvaluateFunc func(f *Fake) (any, error)

// Fake implements browser.Context over a set of canned pages. Scripts are
// answered by handlers registered for their exact text, window.location.href
// is answered natively.
type Fake struct {
	mu       sync.Mutex
	pages    map[string]Page
	files    map[string]browser.Response
	handlers map[string]EvaluateFunc

	location string
	content  string
	calls    []Call
}

func New() *Fake {
	return &Fake{
		pages:    map[string]Page{},
		files:    map[string]browser.Response{},
		handlers: map[string]EvaluateFunc{},
	}
}

func (f *Fake) AddPage(url string, page Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = page
}

func (f *Fake) AddFile(url string, res browser.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[url] = res
}

// OnEvaluate registers fn as the result of evaluating script.
func (f *Fake) OnEvaluate(script string, fn EvaluateFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[script] = fn
}

// ServeElement answers script with a snapshot {found, html, text} of the
// first element matching selector in the current content, html being its
// inner html and text its rendered text.
func (f *Fake) ServeElement(script, selector string) {
	f.OnEvaluate(script, func(f *Fake) (any, error) {
		sel := f.Document().Find(selector).First()
		if sel.Length() == 0 {
			return map[string]any{"found": false, "html": "", "text": ""}, nil
		}
		inner, err := sel.Html()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"found": true,
			"html":  inner,
			"text":  htmlutil.RenderText(sel.Nodes[0]),
		}, nil
	})
}

// SetContent replaces the current page content, like a script mutating the DOM.
func (f *Fake) SetContent(html string) {
	f.content = html
}

// SetLocation changes the current url without touching the content.
func (f *Fake) SetLocation(url string) {
	f.location = url
}

func (f *Fake) Location() string {
	return f.location
}

// Document parses the current content.
func (f *Fake) Document() *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.content))
	if err != nil {
		panic(err)
	}
	return doc
}

// Calls returns every recorded call, in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsOf returns the arguments of every call of the given op, in order.
func (f *Fake) CallsOf(op string) []string {
	var out []string
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c.Arg)
		}
	}
	return out
}

func (f *Fake) record(op, arg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Arg: arg})
}

func (f *Fake) Navigate(ctx context.Context, url string, policy browser.Stabilization) error {
	f.record("navigate", url)
	if err := ctx.Err(); err != nil {
		return err
	}

	seen := map[string]bool{}
	for {
		f.mu.Lock()
		page, ok := f.pages[url]
		f.mu.Unlock()
		if !ok {
			return fmt.Errorf("navigate %s: no such page", url)
		}
		if page.Err != nil {
			return fmt.Errorf("navigate %s: %w", url, page.Err)
		}
		if page.RedirectTo != "" && !seen[page.RedirectTo] {
			seen[url] = true
			url = page.RedirectTo
			continue
		}
		f.location = url
		f.content = page.HTML
		return nil
	}
}

func (f *Fake) Stabilize(ctx context.Context, policy browser.Stabilization) error {
	f.record("stabilize", "")
	return ctx.Err()
}

func (f *Fake) Evaluate(ctx context.Context, script string, out any) error {
	f.record("evaluate", script)
	if err := ctx.Err(); err != nil {
		return err
	}

	var result any
	if script == browser.LocationScript {
		result = f.location
	} else {
		f.mu.Lock()
		fn, ok := f.handlers[script]
		f.mu.Unlock()
		if !ok {
			return fmt.Errorf("evaluate: no handler for script %q", script)
		}
		var err error
		result, err = fn(f)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
	}

	if out == nil {
		return nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}

func (f *Fake) Query(ctx context.Context, selector string) ([]*goquery.Selection, error) {
	f.record("query", selector)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// goquery silently matches nothing on an invalid selector, a browser throws
	_, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	var out []*goquery.Selection
	f.Document().Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, sel)
	})
	return out, nil
}

func (f *Fake) Fetch(ctx context.Context, url string) (browser.Response, error) {
	f.record("fetch", url)
	if err := ctx.Err(); err != nil {
		return browser.Response{}, err
	}

	f.mu.Lock()
	res, ok := f.files[url]
	f.mu.Unlock()
	if !ok {
		return browser.Response{Status: http.StatusNotFound, Header: http.Header{}}, nil
	}
	return res, nil
}
