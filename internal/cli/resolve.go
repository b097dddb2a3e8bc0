package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"RequisiteGraph/internal/app"
)

func newResolveCommand(root *rootOptions) *cobra.Command {
	var (
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve [DEPT...]",
		Short: "Resolve departments and store every reachable course",
		Long: `Resolve fetches each department's catalog page, stores all of its courses,
and follows cross-department prerequisites and corequisites until every
reachable course is stored. Without arguments the configured departments
are resolved.

Example:
  requisitegraph resolve CE
  requisitegraph resolve CSE MATH --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := root.load(cmd)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			application, err := app.New(ctx, cfg, logger, app.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer application.Close()

			summary := application.Run(ctx, args)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, summary)

			if dryRun {
				records, err := application.Store().List(ctx, "")
				if err != nil {
					return fmt.Errorf("list dry-run records: %w", err)
				}
				return printRecords(out, records)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep records in memory and print them instead of writing the database")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall run timeout (0 disables)")
	return cmd
}

func newScheduleCommand(root *rootOptions) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Refresh the configured departments on the cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := root.load(cmd)
			ctx := cmd.Context()

			application, err := app.New(ctx, cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			if runNow {
				logger.Info("initial refresh finished", "summary", application.Run(ctx, nil))
			}
			return application.Schedule(ctx)
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one refresh before waiting for the schedule")
	return cmd
}
