// Package commands implements the depot commands that run JavaScript
// tooling (pnpm, vite, tsc, biome, vitest) across a workspace
package commands

import (
	"github.com/depot-build/depot/internal/engine"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/workspace"
)

var (
	_ engine.WorkspaceCommand = (*InitCommand)(nil)
	_ engine.PackageCommand   = (*BuildCommand)(nil)
	_ engine.DependentCommand = (*BuildCommand)(nil)
	_ engine.PackageCommand   = (*TestCommand)(nil)
	_ engine.DependentCommand = (*TestCommand)(nil)
	_ engine.PackageCommand   = (*FixCommand)(nil)
	_ engine.PackageCommand   = (*CleanCommand)(nil)
	_ engine.WorkspaceCommand = (*CleanCommand)(nil)
)

func sourceArgs(pkg *workspace.Package) ([]string, error) {
	return pkg.SourceFiles()
}

func orNop(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.NewNopLogger()
	}
	return log
}
