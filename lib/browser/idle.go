package browser

import (
	"sync"
	"time"
)

// idleTracker follows in-flight network requests of a page. The page is idle
// once no request has been in flight for the quiet period.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	last     time.Time
	quiet    time.Duration
	now      func() time.Time
}

func newIdleTracker(quiet time.Duration, now func() time.Time) *idleTracker {
	if now == nil {
		now = time.Now
	}
	return &idleTracker{
		inflight: map[string]struct{}{},
		last:     now(),
		quiet:    quiet,
		now:      now,
	}
}

func (t *idleTracker) started(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.last = t.now()
}

func (t *idleTracker) finished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.last = t.now()
}

// touch restarts the quiet period, so a wait that begins right after a page
// mutation does not report idle before the page had a chance to send requests.
func (t *idleTracker) touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = t.now()
}

// reset forgets requests of a previous document that will never finish.
func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight = map[string]struct{}{}
	t.last = t.now()
}

func (t *idleTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.last) >= t.quiet
}

func (t *idleTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
