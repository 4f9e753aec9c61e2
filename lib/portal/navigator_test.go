package portal

import (
	"context"
	"errors"
	"testing"

	"portalcrawl/lib/browser"
	"portalcrawl/lib/browser/browsertest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const home = "https://portal/jdcourseseminars.xsp"

func TestNavigatorEnter(t *testing.T) {
	ctx := context.Background()
	fake := browsertest.New()
	fake.AddPage(home, browsertest.Page{HTML: `<p>default view</p>`})
	fake.OnEvaluate(ClickScript("winter"), func(f *browsertest.Fake) (any, error) {
		f.SetContent(`<p>winter view</p>`)
		return true, nil
	})

	nav := Navigator{Browser: fake, Home: home, Activator: ClickActivator{}}
	tab := Tab{Name: "Winter Courses", Switch: "winter"}

	require.Nil(t, nav.Enter(ctx, tab))
	require.Equal(t, "winter view", fake.Document().Find("p").Text())

	// entering the active tab again reloads the same view
	require.Nil(t, nav.Enter(ctx, tab))
	require.Equal(t, "winter view", fake.Document().Find("p").Text())

	diff := cmp.Diff([]browsertest.Call{
		{Op: "navigate", Arg: home},
		{Op: "evaluate", Arg: ClickScript("winter")},
		{Op: "stabilize"},
		{Op: "navigate", Arg: home},
		{Op: "evaluate", Arg: ClickScript("winter")},
		{Op: "stabilize"},
	}, fake.Calls())
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestNavigatorEnterFailures(t *testing.T) {
	ctx := context.Background()
	tab := Tab{Name: "Fall Courses", Switch: "fall"}

	unreachable := browsertest.New()
	unreachable.AddPage(home, browsertest.Page{Err: context.DeadlineExceeded})
	err := Navigator{Browser: unreachable, Home: home, Activator: ClickActivator{}}.Enter(ctx, tab)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Empty(t, unreachable.CallsOf("evaluate"))

	// no handler for the activation script, like a missing tab control
	missingControl := browsertest.New()
	missingControl.AddPage(home, browsertest.Page{HTML: `<p></p>`})
	err = Navigator{Browser: missingControl, Home: home, Activator: ClickActivator{}}.Enter(ctx, tab)
	require.NotNil(t, err)
	require.Contains(t, err.Error(), `enter tab "Fall Courses": activate`)
	require.Empty(t, missingControl.CallsOf("stabilize"))
}

func TestNavigatorWithoutActivation(t *testing.T) {
	fake := browsertest.New()
	fake.AddPage(home, browsertest.Page{HTML: `<p></p>`})

	nav := Navigator{Browser: fake, Home: home, Activator: ClickActivator{}, Table: browser.Stabilization{}}
	require.Nil(t, nav.Enter(context.Background(), Tab{Name: "All"}))
	require.Empty(t, fake.CallsOf("evaluate"))
}
