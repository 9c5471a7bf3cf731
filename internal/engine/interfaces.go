package engine

import (
	"context"

	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/workspace"
)

//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks github.com/depot-build/depot/internal/engine PackageCommand,WorkspaceCommand,Notifier

// Command is anything the engine can run. A command implements
// PackageCommand, WorkspaceCommand or both.
type Command interface {
	Name() string
}

// PackageCommand runs once per package
type PackageCommand interface {
	Command
	RunPackage(ctx context.Context, pkg *workspace.Package) error
	Runtime() types.CommandRuntime
}

// WorkspaceCommand runs once per workspace, after every package task of
// the same command succeeded
type WorkspaceCommand interface {
	Command
	RunWorkspace(ctx context.Context, ws *workspace.Workspace) error
}

// DependentCommand names commands that must run before it
type DependentCommand interface {
	Deps() []Command
}

// Notifier observes a run. Calls may come from several goroutines at
// once.
type Notifier interface {
	TaskStarted(ctx context.Context, command string, task TaskRecord)
	TaskFinished(ctx context.Context, command string, task TaskRecord)
	RunFinished(ctx context.Context, report *Report)
}
