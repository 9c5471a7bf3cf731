package commands

import (
	"context"

	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/utils"
	"github.com/depot-build/depot/pkg/workspace"
)

// CleanCommand removes build output and the workspace state directory
type CleanCommand struct {
	Logger logger.Logger
}

// NewCleanCommand creates a clean command
func NewCleanCommand(log logger.Logger) *CleanCommand {
	return &CleanCommand{Logger: orNop(log)}
}

func (c *CleanCommand) Name() string { return "clean" }

func (c *CleanCommand) Runtime() types.CommandRuntime {
	return types.RuntimeRunImmediately
}

// RunPackage removes dist
func (c *CleanCommand) RunPackage(_ context.Context, pkg *workspace.Package) error {
	c.Logger.WithPackage(pkg.Name).Debug("Removing build output")
	return utils.RemoveAll(pkg.Path("dist"))
}

// RunWorkspace removes the state directory once every package is clean
func (c *CleanCommand) RunWorkspace(_ context.Context, ws *workspace.Workspace) error {
	c.Logger.Debug("Removing state directory", logger.WithField("dir", ws.StateDir))
	return utils.RemoveAll(ws.StateDir)
}
