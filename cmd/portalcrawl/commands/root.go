package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"portalcrawl/lib/serviceutil"
	"portalcrawl/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool

	otel telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "portalcrawl",
	Short: "portalcrawl crawls the tabbed course tables of the Osgoode portals.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)
		var err error
		otel, err = telemetry.SetupFromEnv(cmd.Context(), "portalcrawl")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "portalcrawl.json5", "The config file, looked up from the working directory upwards.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
}

// ExecuteContext runs the command line and exits non-zero if the command
// failed. Telemetry is flushed either way.
func ExecuteContext(ctx context.Context) {
	err := execute(ctx)
	if err != nil {
		serviceutil.Fatal("portalcrawl failed", err)
	}
}

func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	flushTelemetry()
	return err
}

// flushTelemetry exports what the run recorded, the spans of a failed run
// included.
func flushTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := otel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}
