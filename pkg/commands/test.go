package commands

import (
	"context"

	"github.com/depot-build/depot/internal/engine"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/utils"
	"github.com/depot-build/depot/pkg/workspace"
)

var testFiles = utils.MustPatternMatcher(
	"src/**/*.{test,spec}.{ts,tsx}",
	"tests/**/*.{ts,tsx}",
)

// TestArgs configure a test run
type TestArgs struct {
	// Update rewrites snapshots
	Update bool
	// Build options for the build that runs first
	Build BuildArgs
}

// TestCommand runs vitest in every package that has tests
type TestCommand struct {
	Args   TestArgs
	Logger logger.Logger
}

// NewTestCommand creates a test command
func NewTestCommand(args TestArgs, log logger.Logger) *TestCommand {
	return &TestCommand{Args: args, Logger: orNop(log)}
}

func (c *TestCommand) Name() string { return "test" }

func (c *TestCommand) Runtime() types.CommandRuntime {
	return types.RuntimeRunImmediately
}

// Deps builds first
func (c *TestCommand) Deps() []engine.Command {
	build := c.Args.Build
	build.Watch = false
	return []engine.Command{NewBuildCommand(build, c.Logger)}
}

// RunPackage runs vitest once. Packages without test files pass.
func (c *TestCommand) RunPackage(ctx context.Context, pkg *workspace.Package) error {
	files, err := utils.CollectFiles(pkg.Dir, testFiles, nil)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		c.Logger.WithPackage(pkg.Name).Debug("No tests")
		return nil
	}

	args := []string{"run", "--passWithNoTests"}
	if c.Args.Update {
		args = append(args, "--update")
	}
	return pkg.Exec(ctx, "vitest", args...)
}
