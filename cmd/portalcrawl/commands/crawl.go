package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/browser"
	"portalcrawl/lib/crawl"
	"portalcrawl/lib/portal"
	"portalcrawl/lib/restyutil"
	"portalcrawl/lib/serviceutil"
	"portalcrawl/lib/sites/osgoode"
	"portalcrawl/lib/store"
	libtelemetry "portalcrawl/lib/telemetry"

	"github.com/spf13/cobra"
)

const loginPrompt = `============================================================
Log in in the browser window (credentials and MFA).
Once the course table is visible, press ENTER here.
============================================================`

var crawlFlags struct {
	tabs       *[]string
	output     *string
	db         *string
	documents  *string
	host       *string
	headless   *bool
	verifyRows *bool
}

func init() {
	flags := crawlCmd.Flags()
	crawlFlags.tabs = flags.StringSlice("tabs", nil, "Only crawl these tabs (names or keys).")
	crawlFlags.output = flags.StringP("output", "o", "", "The .json or .yaml file to write the result to.")
	crawlFlags.db = flags.String("db", "", "Also store the run in this sqlite file or libsql url.")
	crawlFlags.documents = flags.String("documents", "", "The directory downloaded documents are saved under.")
	crawlFlags.host = flags.String("host", "", "Crawl another host than the preset's, e.g. a local mirror.")
	crawlFlags.headless = flags.Bool("headless", false, "Hide the browser window, only useful with a persisted profile.")
	crawlFlags.verifyRows = flags.Bool("verify-rows", false, "Warn when a tab's row count changes during the crawl.")
	rootCmd.AddCommand(crawlCmd)
}

func applyCrawlFlags(cmd *cobra.Command, cfg *Config, args []string) {
	if len(args) > 0 {
		cfg.Site = args[0]
	}
	changed := cmd.Flags().Changed
	if changed("tabs") {
		cfg.Tabs = *crawlFlags.tabs
	}
	if changed("output") {
		cfg.Output = *crawlFlags.output
	}
	if changed("db") {
		cfg.DB = *crawlFlags.db
	}
	if changed("documents") {
		cfg.Documents = *crawlFlags.documents
	}
	if changed("host") {
		cfg.Host = *crawlFlags.host
	}
	if changed("headless") {
		cfg.Headless = *crawlFlags.headless
	}
	if changed("verify-rows") {
		cfg.VerifyRows = *crawlFlags.verifyRows
	}
}

var crawlCmd = &cobra.Command{
	Use:       "crawl [descriptions|outlines]",
	Short:     "Crawls every tab of a portal after an interactive login and writes the records.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"descriptions", "outlines"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		applyCrawlFlags(cmd, &cfg, args)

		site, err := osgoode.Lookup(cfg.Site)
		if err != nil {
			return err
		}
		if cfg.Host != "" {
			site = site.WithHost(cfg.Host)
		}
		tabs, err := site.SelectTabs(cfg.Tabs)
		if err != nil {
			return err
		}

		tel := telemetry.SlogAPI{}
		chrome, err := browser.NewChrome(browser.ChromeOptions{
			Headless:      cfg.Headless,
			UserDataDir:   cfg.UserDataDir,
			ExecPath:      cfg.ChromePath,
			ScriptTimeout: cfg.Timeouts.Script.Std(),
			FetchTimeout:  cfg.Timeouts.Fetch.Std(),
			FetchOutput:   dumpOutput(cfg.DumpDir),
		}, tel)
		if err != nil {
			return fmt.Errorf("start chrome: %w", err)
		}
		defer chrome.Close()

		ctx := cmd.Context()
		err = login(ctx, chrome, site, cfg.Timeouts.Login.Or(2*time.Minute))
		if err != nil {
			return fmt.Errorf("log in: %w", err)
		}

		var sink portal.DocumentSink
		if site.Documents != nil {
			sink = store.DocumentDir{Root: cfg.Documents}
		}
		crawler := site.Crawler(chrome, sink, tel)
		crawler.VerifyRows = cfg.VerifyRows
		crawler.Progress = newSpinnerProgress(os.Stderr, site.Documents != nil)

		if otel.Enabled() {
			perfCtx, stop := context.WithCancel(ctx)
			defer stop()
			libtelemetry.InstrumentPerfStats(perfCtx, 30*time.Second)
		}

		started := time.Now()
		result, err := crawler.Run(ctx, tabs)
		finished := time.Now()
		renderSummary(result.Summary(), finished.Sub(started))
		if err != nil {
			// partial results are never persisted
			return fmt.Errorf("crawl aborted, nothing was written: %w", err)
		}

		err = persist(ctx, cfg, store.Run{
			Site:       site.Name,
			StartedAt:  started,
			FinishedAt: finished,
		}, result)
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		return nil
	},
}

func dumpOutput(dir string) restyutil.InstrumentOutput {
	if dir == "" {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput(dir)
	if err != nil {
		slog.Warn("http dumps disabled", "dir", dir, "err", err)
		return nil
	}
	return out
}

// login opens the portal, waits for the human to authenticate and brings
// the browser back to the table page.
func login(ctx context.Context, b browser.Context, site osgoode.Site, timeout time.Duration) error {
	// the portal redirects to its login page, which may never go idle
	err := b.Navigate(ctx, site.Home, browser.Stabilization{LoadTimeout: timeout})
	if err != nil {
		return err
	}
	err = serviceutil.WaitForEnter(ctx, os.Stdin, os.Stdout, loginPrompt)
	if err != nil {
		return err
	}

	policy := site.Return
	policy.Settle = 2 * time.Second
	err = b.Navigate(ctx, site.Home, policy)
	if err != nil {
		return err
	}
	return portal.NewSession(b, site.LoginPattern).Check(ctx)
}

func persist(ctx context.Context, cfg Config, run store.Run, result *crawl.Result) error {
	output := outputPath(cfg)
	err := store.WriteFile(output, result)
	if err != nil {
		return err
	}
	slog.Info("result written", "path", output)

	if cfg.DB == "" {
		return nil
	}
	sqlDB, err := store.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer sqlDB.Close()

	runs, err := store.NewStore(ctx, sqlDB, telemetry.SlogAPI{})
	if err != nil {
		return err
	}
	id, err := runs.SaveRun(ctx, run, result)
	if err != nil {
		return err
	}
	slog.Info("run stored", "db", cfg.DB, "id", id)
	return nil
}
