// Package browser defines the primitives the crawler needs from an
// authenticated browsing context and implements them on top of chromedp.
package browser

import (
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Stabilization describes how long to wait for a page to settle after it
// has been navigated or mutated.
type Stabilization struct {
	// LoadTimeout bounds the navigation itself, a navigation that exceeds it fails.
	LoadTimeout time.Duration
	// IdleTimeout bounds the wait for network idle, exceeding it is not an error.
	IdleTimeout time.Duration
	// Settle is a fixed delay after the network is idle, for late DOM mutations.
	Settle time.Duration
}

// Response is the result of fetching a resource with the browser's session.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether Status is a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Context is a single browsing context (one page) that carries an
// authenticated session. Implementations are not safe for concurrent use,
// there is exactly one page and every operation mutates or reads it.
type Context interface {
	// Navigate loads url and then waits according to policy.
	Navigate(ctx context.Context, url string, policy Stabilization) error
	// Stabilize waits for the current page according to policy, it is used
	// after scripts that mutate the page or trigger a navigation.
	Stabilize(ctx context.Context, policy Stabilization) error
	// Evaluate runs a script in the page and decodes its result into out,
	// out may be nil to discard the result.
	Evaluate(ctx context.Context, script string, out any) error
	// Query returns detached snapshots of every element matching selector.
	Query(ctx context.Context, selector string) ([]*goquery.Selection, error)
	// Fetch retrieves url with the cookies of the current session.
	Fetch(ctx context.Context, url string) (Response, error)
}

// LocationScript evaluates to the current page url.
const LocationScript = `window.location.href`

// Location returns the current page url of b.
func Location(ctx context.Context, b Context) (string, error) {
	var href string
	err := b.Evaluate(ctx, LocationScript, &href)
	return href, err
}
