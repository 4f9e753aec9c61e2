package portal

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"portalcrawl/internal/assert"
	"portalcrawl/lib/browser"
)

// ErrSessionLost is returned once the portal has sent the browser back to
// its login page. The session is never refreshed, so this ends the crawl.
var ErrSessionLost = errors.New("session lost")

// Session is the authenticated browsing context established by a human
// before the crawl starts.
type Session struct {
	Browser browser.Context
	// LoginPattern matches the location of the portal's login page, a nil
	// pattern disables detection.
	LoginPattern *regexp.Regexp

	lost bool
}

func NewSession(b browser.Context, loginPattern *regexp.Regexp) *Session {
	assert.NotNil(b, "browser")
	return &Session{Browser: b, LoginPattern: loginPattern}
}

// Valid reports whether no login redirect has been observed yet.
func (s *Session) Valid() bool {
	return !s.lost
}

// Check inspects the current location and fails with ErrSessionLost if the
// browser has been redirected to the login page.
func (s *Session) Check(ctx context.Context) error {
	if s.lost {
		return ErrSessionLost
	}
	if s.LoginPattern == nil {
		return nil
	}
	href, err := browser.Location(ctx, s.Browser)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if s.LoginPattern.MatchString(href) {
		s.lost = true
		return fmt.Errorf("%w: redirected to %s", ErrSessionLost, href)
	}
	return nil
}
