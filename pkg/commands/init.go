package commands

import (
	"context"

	"github.com/depot-build/depot/pkg/workspace"
)

// InitArgs configure dependency installation
type InitArgs struct {
	// Offline installs from the local store only
	Offline bool
}

// InitCommand installs workspace dependencies with pnpm
type InitCommand struct {
	Args InitArgs
}

// NewInitCommand creates an init command
func NewInitCommand(args InitArgs) *InitCommand {
	return &InitCommand{Args: args}
}

func (c *InitCommand) Name() string { return "init" }

// RunWorkspace runs pnpm install at the workspace root
func (c *InitCommand) RunWorkspace(ctx context.Context, ws *workspace.Workspace) error {
	args := []string{"install"}
	if c.Args.Offline {
		args = append(args, "--offline")
	}
	return ws.Exec(ctx, workspace.PnpmScript, workspace.ExecOptions{
		Args:   args,
		Prefix: "init",
		Key:    "init",
	})
}
