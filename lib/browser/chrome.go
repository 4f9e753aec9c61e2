package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"portalcrawl/internal/assert"
	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/htmlutil"
	"portalcrawl/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("portalcrawl/lib/browser")

const (
	report_chrome_stabilize = "chrome.stabilize"
	report_chrome_close     = "chrome.close"
)

// quiet period after which a page without in-flight requests counts as idle
const networkQuietPeriod = 500 * time.Millisecond

type ChromeOptions struct {
	// Headless hides the browser window, interactive login needs it visible.
	Headless bool
	// UserDataDir persists the browser profile (and so the session) between runs.
	UserDataDir string
	// ExecPath overrides the chrome executable.
	ExecPath string
	// ScriptTimeout bounds Evaluate and Query, defaults to 30s.
	ScriptTimeout time.Duration
	// FetchTimeout bounds a single document fetch, defaults to 30s.
	FetchTimeout time.Duration
	// FetchOutput receives full http exchanges of document fetches when
	// debug logging is enabled, it may be nil.
	FetchOutput restyutil.InstrumentOutput
}

// Chrome is a Context backed by a single chrome tab driven through chromedp.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	tracker *idleTracker
	http    *resty.Client
	opts    ChromeOptions
	tel     telemetry.API

	uaOnce    sync.Once
	userAgent string
}

// NewChrome launches a browser and enables network tracking on its page.
func NewChrome(opts ChromeOptions, tel telemetry.API) (*Chrome, error) {
	assert.NotNil(tel, "telemetry")
	tel = telemetry.NewScopedAPI("browser", tel)

	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = 30 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	execOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 900),
	)
	if opts.UserDataDir != "" {
		execOpts = append(execOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		tracker:     newIdleTracker(networkQuietPeriod, nil),
		opts:        opts,
		tel:         tel,
	}
	c.http = newFetchClient(opts, tel)

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			c.tracker.started(string(ev.RequestID))
		case *network.EventLoadingFinished:
			c.tracker.finished(string(ev.RequestID))
		case *network.EventLoadingFailed:
			c.tracker.finished(string(ev.RequestID))
		}
	})

	// the first Run allocates the browser
	err := chromedp.Run(ctx, network.Enable())
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return c, nil
}

func newFetchClient(opts ChromeOptions, tel telemetry.API) *resty.Client {
	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(opts.FetchTimeout)

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)
	restyutil.InstrumentClient(client, tracer, opts.FetchOutput)
	return client
}

// Close shuts down the browser.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.tel.ReportWarning(report_chrome_close, err)
		return err
	}
	return nil
}

// run executes actions on the page, bounded by timeout and by the caller's ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := c.ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string, policy Stabilization) error {
	ctx, span := tracer.Start(ctx, "Navigate")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	c.tracker.reset()
	err := c.run(ctx, policy.LoadTimeout, chromedp.Navigate(url))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("navigate %s: timed out after %s: %w", url, policy.LoadTimeout, err)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return c.Stabilize(ctx, policy)
}

func (c *Chrome) Stabilize(ctx context.Context, policy Stabilization) error {
	_, span := tracer.Start(ctx, "Stabilize")
	defer span.End()

	c.tracker.touch()
	if policy.IdleTimeout > 0 {
		deadline := time.Now().Add(policy.IdleTimeout)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for !c.tracker.idle() {
			if time.Now().After(deadline) {
				// pages that long-poll never go idle, proceeding is the best we can do
				c.tel.ReportDebug(
					report_chrome_stabilize,
					"network idle timeout",
					policy.IdleTimeout.String(),
					c.tracker.pending(),
				)
				span.AddEvent("idle timeout")
				break
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if policy.Settle > 0 {
		timer := time.NewTimer(policy.Settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	err := c.run(ctx, c.opts.ScriptTimeout, chromedp.Evaluate(script, out))
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

type elementSnapshot struct {
	HTML   string `json:"html"`
	Parent string `json:"parent"`
}

// QueryScript returns a script that snapshots every element matching selector.
func QueryScript(selector string) string {
	literal, _ := json.Marshal(selector)
	return fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map((el) => ({html: el.outerHTML, parent: el.parentElement ? el.parentElement.tagName : ""}))`,
		literal,
	)
}

func (c *Chrome) Query(ctx context.Context, selector string) ([]*goquery.Selection, error) {
	var snapshots []elementSnapshot
	err := c.Evaluate(ctx, QueryScript(selector), &snapshots)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return parseSnapshots(snapshots)
}

func parseSnapshots(snapshots []elementSnapshot) ([]*goquery.Selection, error) {
	out := make([]*goquery.Selection, 0, len(snapshots))
	for _, s := range snapshots {
		sel, err := htmlutil.ParseFragment(s.HTML, s.Parent)
		if err != nil {
			return nil, err
		}
		if sel.Length() == 0 {
			continue
		}
		out = append(out, sel.First())
	}
	return out, nil
}

func (c *Chrome) getUserAgent(ctx context.Context) string {
	c.uaOnce.Do(func() {
		var ua string
		err := c.Evaluate(ctx, `navigator.userAgent`, &ua)
		if err == nil {
			c.userAgent = strings.Replace(ua, "HeadlessChrome", "Chrome", 1)
		}
	})
	return c.userAgent
}

func (c *Chrome) Fetch(ctx context.Context, url string) (Response, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	var cookies []*network.Cookie
	err := c.run(ctx, c.opts.ScriptTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithUrls([]string{url}).Do(ctx)
		return err
	}))
	if err != nil {
		return Response{}, fmt.Errorf("fetch %s: read cookies: %w", url, err)
	}

	req := c.http.R().SetContext(ctx)
	if ua := c.getUserAgent(ctx); ua != "" {
		req.SetHeader("User-Agent", ua)
	}
	if referer, err := Location(ctx, c); err == nil {
		req.SetHeader("Referer", referer)
	}
	for _, cookie := range cookies {
		req.SetCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	res, err := req.Get(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return Response{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	return Response{
		Status: res.StatusCode(),
		Header: res.Header(),
		Body:   res.Body(),
	}, nil
}
