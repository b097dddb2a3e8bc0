package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"RequisiteGraph/internal/config"
	"RequisiteGraph/internal/logging"
)

// version is overridden at build time with -ldflags "-X RequisiteGraph/internal/cli.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "requisitegraph",
		Short: "Build a course requisite graph from a university catalog",
		Long: `requisitegraph scrapes department course catalogs, classifies the
prerequisites and corequisites named in each course description, and stores
every course reachable through cross-department requisites.

Nothing in a run is fatal: fetch failures, malformed titles and missing
references are logged and the run continues.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $REQUISITE_GRAPH_CONFIG)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newResolveCommand(opts),
		newScheduleCommand(opts),
		newCoursesCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// load reads configuration and builds a logger that writes to the command's stderr.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *slog.Logger) {
	cfg := config.Load(o.configPath)
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, logging.NewWithConfig(cfg.Logging, cmd.ErrOrStderr())
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "requisitegraph %s\n", version)
		},
	}
}
