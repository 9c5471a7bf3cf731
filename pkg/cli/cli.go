// Package cli provides the command-line interface for depot
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/depot-build/depot/internal/engine"
	"github.com/depot-build/depot/pkg/config"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/workspace"
)

// CLI holds everything one invocation needs, so that tests can run
// several side by side
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	settings *config.Settings
	logger   logger.Logger
	console  *logger.Console
	output   io.Writer
	errorOut io.Writer
}

// NewCLI creates a CLI writing to stdout and stderr
func NewCLI(cfg *Config) *CLI {
	return NewCLIWithOutput(cfg, os.Stdout, os.Stderr)
}

// NewCLIWithOutput creates a CLI with custom output writers
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}
	c := &CLI{
		config:   cfg,
		output:   output,
		errorOut: errorOut,
		console:  logger.NewConsole(output, errorOut),
		logger:   logger.NewNopLogger(),
	}
	c.setupCommands()
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support. Errors are printed
// before they are returned.
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	err := c.rootCmd.ExecuteContext(ctx)
	if err != nil {
		c.printFailure(err)
	}
	return err
}

// ExitCode maps an Execute error to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "depot",
		Short: "Build tool for TypeScript monorepos",
		Long: `📦 depot - runs pnpm, vite, tsc, biome and vitest across the packages of a
workspace, each package after the packages it depends on.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	c.rootCmd.SetOut(c.output)
	c.rootCmd.SetErr(c.errorOut)

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("📦 depot v{{.Version}}\n")

	c.rootCmd.AddCommand(
		c.newBuildCmd(),
		c.newTestCmd(),
		c.newFixCmd(),
		c.newCleanCmd(),
		c.newInitCmd(),
		c.newSetupCmd(),
		c.newListCmd(),
		c.newStatusCmd(),
		c.newValidateCmd(),
		c.newVersionCmd(),
	)
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "settings file (default: depot.{yaml,json} in the workspace root)")
	flags.StringVar(&c.config.Root, "root", ".", "directory to search for the workspace from")
	flags.StringVarP(&c.config.Package, "package", "p", "", "only run on this package and its dependencies")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")
	flags.IntVarP(&c.config.Jobs, "jobs", "j", 0, "maximum concurrent package tasks (0 = unlimited)")
	flags.BoolVar(&c.config.Notify, "notify", false, "send desktop notifications")
}

// initializeConfig merges flags, DEPOT_* env vars and the settings file of
// the workspace, then creates the logger
func (c *CLI) initializeConfig(cmd *cobra.Command, _ []string) error {
	mgr := config.NewManager(c.config.ConfigFile)
	v := mgr.Viper()
	flags := cmd.Flags()
	for key, flag := range map[string]string{
		config.KeyLogLevel: "verbosity",
		config.KeyJobs:     "jobs",
		config.KeyNotify:   "notify",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}

	root, err := filepath.Abs(c.config.Root)
	if err != nil {
		return err
	}
	if wsRoot, err := workspace.FindRoot(root); err == nil {
		root = wsRoot
	}

	settings, err := mgr.Load(root)
	if err != nil {
		return err
	}
	c.settings = settings

	if settings.LogFile != "" {
		c.logger = logger.CreateLogger(settings.LogFile, settings.LogLevel)
	} else {
		c.logger = logger.CreateLoggerWithOutput(settings.LogLevel, c.errorOut)
	}
	if used := mgr.ConfigFileUsed(); used != "" {
		c.logger.Debug("Using settings file", logger.WithField("file", used))
	}
	return nil
}

// loadWorkspace finds the workspace from --root, applies --package and
// locates pnpm. A missing pnpm only fails commands that run tools.
func (c *CLI) loadWorkspace() (*workspace.Workspace, error) {
	ws, err := workspace.Load(workspace.Options{
		Cwd:     c.config.Root,
		Package: c.config.Package,
		Version: c.config.Version,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, err
	}
	ws.StateDir = c.settings.StatePath(ws.Root)
	ws.Output = c.output

	pnpm, err := findPnpm()
	if err != nil {
		c.logger.Debug("pnpm not available", logger.WithError(err))
	}
	ws.PnpmPath = pnpm
	return ws, nil
}

func findPnpm() (string, error) {
	global, err := config.LoadGlobal()
	if err == nil {
		return global.PnpmPath, nil
	}
	if errors.Is(err, config.ErrHomeMissing) {
		return config.FindPnpm("")
	}
	return "", err
}

func (c *CLI) printReports(reports []*engine.Report) {
	for _, report := range reports {
		if !report.Success {
			continue
		}
		if len(report.Tasks) == 0 {
			c.console.Success("%s finished in %s", report.Command, report.Duration().Round(time.Millisecond))
			continue
		}
		c.console.Success("%s finished %d packages in %s",
			report.Command, len(report.Tasks), report.Duration().Round(time.Millisecond))
	}
}

func (c *CLI) printFailure(err error) {
	c.console.Error("%v", err)
}

// versionString is printed by the version command
func (c *CLI) versionString() string {
	return fmt.Sprintf("📦 depot v%s", c.config.Version)
}
