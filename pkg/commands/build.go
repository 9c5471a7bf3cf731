package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/depot-build/depot/internal/engine"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/utils"
	"github.com/depot-build/depot/pkg/watch"
	"github.com/depot-build/depot/pkg/workspace"
)

// BuildScript is an optional per-package script run before the tools
const BuildScript = "build.mjs"

// ErrLintFailed is returned when biome reports issues and lint failures
// are fatal
var ErrLintFailed = errors.New("biome failed")

// BuildArgs configure a build
type BuildArgs struct {
	// Release disables sourcemaps and development mode
	Release bool
	// Offline is passed on to init
	Offline bool
	// Watch rebuilds on change and never finishes
	Watch bool
	// LintFail makes biome issues fail the build
	LintFail bool
}

// BuildCommand checks and builds packages
type BuildCommand struct {
	Args   BuildArgs
	Logger logger.Logger
}

// NewBuildCommand creates a build command
func NewBuildCommand(args BuildArgs, log logger.Logger) *BuildCommand {
	return &BuildCommand{Args: args, Logger: orNop(log)}
}

func (c *BuildCommand) Name() string { return "build" }

// Runtime waits for dependencies unless watching, where every package
// runs forever and starts at once
func (c *BuildCommand) Runtime() types.CommandRuntime {
	if c.Args.Watch {
		return types.RuntimeRunForever
	}
	return types.RuntimeWaitForDependencies
}

// Deps installs dependencies first
func (c *BuildCommand) Deps() []engine.Command {
	return []engine.Command{NewInitCommand(InitArgs{Offline: c.Args.Offline})}
}

// RunPackage runs the build script if any, then bundling or asset
// copying, tsc and biome side by side
func (c *BuildCommand) RunPackage(ctx context.Context, pkg *workspace.Package) error {
	if utils.FileExists(pkg.Path(BuildScript)) {
		if err := c.buildScript(ctx, pkg); err != nil {
			return err
		}
	}

	g, gctx := engine.NewSafeGroup(ctx, c.Logger)
	if pkg.Target.IsLib() {
		g.Go(func() error { return c.copyAssets(gctx, pkg) })
	} else {
		g.Go(func() error { return c.vite(gctx, pkg) })
	}
	g.Go(func() error { return c.tsc(gctx, pkg) })
	g.Go(func() error { return c.biome(gctx, pkg) })

	return g.Wait()
}

func (c *BuildCommand) buildScript(ctx context.Context, pkg *workspace.Package) error {
	args := []string{"exec", "node", BuildScript}
	if c.Args.Watch {
		args = append(args, "--watch")
	}
	if c.Args.Release {
		args = append(args, "--release")
	}

	opts := pkg.ExecOptions("build-script", args...)
	return pkg.ExecWith(ctx, workspace.PnpmScript, opts)
}

func (c *BuildCommand) tsc(ctx context.Context, pkg *workspace.Package) error {
	args := []string{"--pretty"}
	if c.Args.Watch {
		args = append(args, "--watch")
	}
	if pkg.Target.IsLib() && !c.Args.Release {
		args = append(args, "--sourceMap")
	}
	return pkg.Exec(ctx, "tsc", args...)
}

func (c *BuildCommand) biome(ctx context.Context, pkg *workspace.Package) error {
	sources, err := sourceArgs(pkg)
	if err != nil {
		return err
	}

	args := append([]string{"check"}, sources...)
	args = append(args, "--colors=force")

	proc, err := pkg.StartProcess(ctx, "biome", pkg.ExecOptions("biome", args...))
	if err != nil {
		return err
	}
	code, err := proc.Wait()
	if err != nil {
		return err
	}
	if code != 0 && ctx.Err() != nil {
		return ctx.Err()
	}
	if code != 0 && c.Args.LintFail {
		return fmt.Errorf("%w with exit code %d", ErrLintFailed, code)
	}
	return nil
}

func (c *BuildCommand) vite(ctx context.Context, pkg *workspace.Package) error {
	var args []string
	if pkg.Target.IsSite() && c.Args.Watch && !pkg.Manifest.NoServer() {
		args = []string{"dev"}
	} else {
		args = []string{"build"}
		if c.Args.Watch {
			args = append(args, "--watch")
		}
		if !c.Args.Release {
			args = append(args, "--sourcemap", "true", "--minify", "false", "--mode", "development")
		}
	}

	opts := pkg.ExecOptions("vite", args...)
	opts.Env = []string{"FORCE_COLOR=1"}
	return pkg.ExecWith(ctx, "vite", opts)
}

// copyAssets mirrors non-TypeScript files from src into dist. In watch
// mode it keeps copying changed assets until ctx is canceled.
func (c *BuildCommand) copyAssets(ctx context.Context, pkg *workspace.Package) error {
	srcDir, dstDir := pkg.Path("src"), pkg.Path("dist")
	log := c.Logger.WithPackage(pkg.Name)

	assets, err := pkg.AssetFiles()
	if err != nil {
		return err
	}
	for _, rel := range assets {
		log.Debug("Copying asset", logger.WithField("path", rel))
	}
	if err := utils.CopyFiles(srcDir, dstDir, assets); err != nil {
		return err
	}

	if !c.Args.Watch || !utils.DirectoryExists(srcDir) {
		return nil
	}

	exclude, err := utils.NewExclusionMatcher(utils.DefaultExclusions())
	if err != nil {
		return err
	}
	w, err := watch.New(srcDir, log, watch.WithExclude(exclude))
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx, func(paths []string) error {
		var changed []string
		for _, path := range paths {
			rel, err := filepath.Rel(srcDir, path)
			if err != nil {
				return err
			}
			if isAsset(rel) {
				changed = append(changed, rel)
			}
		}
		if len(changed) > 0 {
			log.Debug("Copying changed assets", logger.WithField("count", len(changed)))
		}
		return utils.CopyFiles(srcDir, dstDir, changed)
	})
}

var typescriptSources = utils.MustPatternMatcher("**/*.{ts,tsx,mts,cts}")

func isAsset(rel string) bool {
	return !typescriptSources.Match(filepath.ToSlash(rel))
}
