package main

import (
	"portalcrawl/cmd/portalcrawl/commands"
	"portalcrawl/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
