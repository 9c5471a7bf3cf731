package commands

import (
	"context"
	"fmt"

	"github.com/google/shlex"

	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/workspace"
)

// FixArgs configure biome fixes
type FixArgs struct {
	// BiomeArgs are extra arguments for biome, split like a shell would
	BiomeArgs string
}

// FixCommand applies biome fixes where possible
type FixCommand struct {
	Args   FixArgs
	Logger logger.Logger
}

// NewFixCommand creates a fix command
func NewFixCommand(args FixArgs, log logger.Logger) *FixCommand {
	return &FixCommand{Args: args, Logger: orNop(log)}
}

func (c *FixCommand) Name() string { return "fix" }

func (c *FixCommand) Runtime() types.CommandRuntime {
	return types.RuntimeRunImmediately
}

// RunPackage runs biome check --fix. Issues biome cannot fix do not fail
// the package.
func (c *FixCommand) RunPackage(ctx context.Context, pkg *workspace.Package) error {
	extra, err := shlex.Split(c.Args.BiomeArgs)
	if err != nil {
		return fmt.Errorf("failed to parse biome args: %w", err)
	}
	sources, err := sourceArgs(pkg)
	if err != nil {
		return err
	}

	args := append([]string{"check", "--fix"}, sources...)
	args = append(args, extra...)

	if err := pkg.Exec(ctx, "biome", args...); err != nil {
		c.Logger.WithPackage(pkg.Name).Debug("biome reported unfixed issues", logger.WithError(err))
	}
	return nil
}
