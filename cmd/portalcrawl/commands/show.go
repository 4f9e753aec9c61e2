package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"portalcrawl/internal/telemetry"
	"portalcrawl/lib/crawl"
	"portalcrawl/lib/store"

	"github.com/spf13/cobra"
)

var (
	showDb    *string
	showWidth *int
	runsDb    *string
)

func init() {
	showDb = showCmd.Flags().String("db", "", "Read the run with the given id from this database instead of a file.")
	showWidth = showCmd.Flags().Int("width", 40, "Maximum width of a table column.")
	runsDb = runsCmd.Flags().String("db", "", "The run database, defaults to the one in the config.")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(runsCmd)
}

func openStore(ctx context.Context, dsn string) (store.Store, func(), error) {
	if dsn == "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return store.Store{}, nil, err
		}
		dsn = cfg.DB
	}
	sqlDB, err := store.Open(dsn)
	if err != nil {
		return store.Store{}, nil, err
	}
	runs, err := store.NewStore(ctx, sqlDB, telemetry.SlogAPI{})
	if err != nil {
		sqlDB.Close()
		return store.Store{}, nil, err
	}
	return runs, func() { sqlDB.Close() }, nil
}

var showCmd = &cobra.Command{
	Use:   "show <result.json|result.yaml|run id>",
	Short: "Renders a saved crawl result as tables.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result *crawl.Result
		var err error
		if cmd.Flags().Changed("db") {
			result, err = loadRun(cmd.Context(), *showDb, args[0])
		} else {
			result, err = store.LoadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("load result: %w", err)
		}
		renderResult(result, *showWidth)
		return nil
	},
}

func loadRun(ctx context.Context, dsn, id string) (*crawl.Result, error) {
	runs, closeDB, err := openStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	_, result, err := runs.LoadRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no run %q", id)
	}
	return result, err
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists the runs stored in the run database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, closeDB, err := openStore(cmd.Context(), *runsDb)
		if err != nil {
			return fmt.Errorf("open run database: %w", err)
		}
		defer closeDB()

		list, err := runs.ListRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		renderRuns(list)
		return nil
	},
}
