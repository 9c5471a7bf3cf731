package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depot-build/depot/internal/engine"
	"github.com/depot-build/depot/pkg/commands"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/notifier"
	"github.com/depot-build/depot/pkg/process"
	"github.com/depot-build/depot/pkg/state"
)

func addBuildFlags(cmd *cobra.Command, args *commands.BuildArgs) {
	cmd.Flags().BoolVarP(&args.Release, "release", "r", false, "build for production")
	cmd.Flags().BoolVar(&args.Offline, "offline", false, "install dependencies from the local store only")
}

func (c *CLI) newBuildCmd() *cobra.Command {
	var args commands.BuildArgs

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Check and build packages",
		Long: `Run build.mjs if present, then vite (or asset copying for libraries), tsc and
biome for every package, dependencies first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), commands.NewBuildCommand(args, c.logger), true)
		},
	}

	addBuildFlags(cmd, &args)
	cmd.Flags().BoolVarP(&args.Watch, "watch", "w", false, "rebuild on change until interrupted")
	cmd.Flags().BoolVar(&args.LintFail, "lint-fail", false, "fail the build on biome issues")

	return cmd
}

func (c *CLI) newTestCmd() *cobra.Command {
	var args commands.TestArgs

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Build and run vitest in every package with tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), commands.NewTestCommand(args, c.logger), true)
		},
	}

	addBuildFlags(cmd, &args.Build)
	cmd.Flags().BoolVarP(&args.Update, "update", "u", false, "update snapshots")

	return cmd
}

func (c *CLI) newFixCmd() *cobra.Command {
	var args commands.FixArgs

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Fix biome issues where possible",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), commands.NewFixCommand(args, c.logger), true)
		},
	}

	cmd.Flags().StringVar(&args.BiomeArgs, "biome-args", "", "additional arguments for biome")

	return cmd
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove build output and depot state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// recording state would recreate the directory clean removes
			return c.run(cmd.Context(), commands.NewCleanCommand(c.logger), false)
		},
	}
}

func (c *CLI) newInitCmd() *cobra.Command {
	var args commands.InitArgs

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Install workspace dependencies with pnpm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), commands.NewInitCommand(args), true)
		},
	}

	cmd.Flags().BoolVar(&args.Offline, "offline", false, "install from the local store only")

	return cmd
}

func (c *CLI) newSetupCmd() *cobra.Command {
	var args commands.SetupArgs

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Set up depot for use on this machine",
		Long:  `Create the global depot directory ($DEPOT_HOME, default ~/.local) and download pnpm into its bin directory.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commands.NewSetupCommand(args, c.console, c.logger).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&args.ConfigDir, "config-dir", "c", "", "directory for global depot configuration")

	return cmd
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of depot",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(c.output, c.versionString())
		},
	}
}

// run executes command and the commands it depends on over the selected
// packages. Interrupts cancel the run and stop every tool.
func (c *CLI) run(ctx context.Context, command engine.Command, record bool) error {
	ws, err := c.loadWorkspace()
	if err != nil {
		return err
	}

	pm := process.NewManager(c.logger)
	ctx = pm.Start(ctx)
	defer pm.Stop()
	pm.RegisterShutdownHandler(func() {
		c.logger.Info(fmt.Sprintf("Stopping %d processes", len(ws.Processes())))
	})

	opts := []engine.Option{
		engine.WithJobs(c.settings.Jobs),
		engine.WithNotifier(notifier.New(notifier.Config{Enabled: c.settings.Notify, Sound: true}, c.logger)),
	}
	if record {
		opts = append(opts, engine.WithNotifier(state.NewManager(ws.StateDir, c.logger)))
	}

	c.logger.Debug("Starting run",
		logger.WithField("command", command.Name()),
		logger.WithField("packages", len(ws.Roots())),
		logger.WithField("jobs", c.settings.Jobs))

	reports, err := engine.NewRunner(engine.NewScheduler(ws, c.logger, opts...)).Run(ctx, command, nil)
	c.printReports(reports)
	return err
}
