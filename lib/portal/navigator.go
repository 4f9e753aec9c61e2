package portal

import (
	"context"
	"fmt"

	"portalcrawl/internal/assert"
	"portalcrawl/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Navigator brings the browser into a tab's table view. The table view is
// not addressable by url, so it is reached by loading the home page and
// replaying the tab activation.
type Navigator struct {
	Browser   browser.Context
	Home      string
	Activator Activator
	// Return is the policy for loading Home.
	Return browser.Stabilization
	// Table is the policy applied after the activation script.
	Table browser.Stabilization
}

// Enter loads the tab's table. Entering the active tab reloads the same view.
// A navigation or activation failure is returned, an idle timeout is not.
func (n Navigator) Enter(ctx context.Context, tab Tab) error {
	assert.NotNil(n.Browser, "navigator browser")
	assert.NotEmptyStr(n.Home, "navigator home")

	ctx, span := tracer.Start(ctx, "Navigator.Enter")
	defer span.End()
	span.SetAttributes(attribute.String("tab", tab.Name))

	err := n.Browser.Navigate(ctx, n.Home, n.Return)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load home")
		return fmt.Errorf("enter tab %q: %w", tab.Name, err)
	}

	if n.Activator != nil && tab.Switch != "" {
		var ok any
		err = n.Browser.Evaluate(ctx, n.Activator.Script(tab), &ok)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "activate")
			return fmt.Errorf("enter tab %q: activate: %w", tab.Name, err)
		}
	}

	err = n.Browser.Stabilize(ctx, n.Table)
	if err != nil {
		return fmt.Errorf("enter tab %q: %w", tab.Name, err)
	}
	return nil
}
