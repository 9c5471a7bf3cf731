package workspace

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/depot-build/depot/pkg/manifest"
	"github.com/depot-build/depot/pkg/process"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/utils"
)

var (
	sourcePatterns = utils.MustPatternMatcher(
		"src/**/*.{ts,tsx,mts,cts}",
		"tests/**/*.{ts,tsx}",
		"package.json",
		"tsconfig.json",
		"vite.config.{ts,mts,js,mjs}",
		"vitest.config.{ts,mts}",
		"biome.json",
		"build.mjs",
		"index.html",
	)
	typescriptFiles = utils.MustPatternMatcher("**/*.{ts,tsx,mts,cts}")
	defaultExcludes = mustExclusions()
)

func mustExclusions() *utils.ExclusionMatcher {
	em, err := utils.NewExclusionMatcher(utils.DefaultExclusions())
	if err != nil {
		panic(err)
	}
	return em
}

// Package is a single package of a workspace. It is immutable after load.
type Package struct {
	Name     string
	Dir      string
	Manifest *manifest.Manifest
	Target   types.Target
	Platform types.Platform
	// Index is the position of the package in Workspace.Packages
	Index int

	deps []string
	ws   *Workspace
}

// NewPackage creates a package from a name, directory and declared
// dependency names, with a library target. It is meant for building
// workspaces that do not come from disk.
func NewPackage(name, dir string, deps ...string) *Package {
	return &Package{
		Name:     name,
		Dir:      dir,
		Manifest: &manifest.Manifest{Name: name, Depot: &manifest.DepotConfig{}},
		Target:   types.TargetLib,
		Platform: types.PlatformBrowser,
		deps:     deps,
	}
}

// LoadPackage reads the package in dir
func LoadPackage(dir string) (*Package, error) {
	m, err := manifest.Load(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}

	target, err := resolveTarget(dir, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}

	platform := types.PlatformBrowser
	if m.Depot.Platform != "" {
		platform, err = types.ParsePlatform(m.Depot.Platform)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
	}

	return &Package{
		Name:     m.Name,
		Dir:      dir,
		Manifest: m,
		Target:   target,
		Platform: platform,
		deps:     m.DependencyNames(),
	}, nil
}

func resolveTarget(dir string, m *manifest.Manifest) (types.Target, error) {
	if m.Depot.Target != "" {
		return types.ParseTarget(m.Depot.Target)
	}
	switch {
	case utils.FileExists(filepath.Join(dir, "index.html")):
		return types.TargetSite, nil
	case utils.FileExists(filepath.Join(dir, "src", "main.ts")),
		utils.FileExists(filepath.Join(dir, "src", "main.tsx")):
		return types.TargetScript, nil
	default:
		return types.TargetLib, nil
	}
}

// GetName returns the package name
func (p *Package) GetName() string {
	return p.Name
}

// GetDependencyNames returns every declared dependency name, including
// names outside the workspace
func (p *Package) GetDependencyNames() []string {
	return p.deps
}

// Workspace returns the workspace the package belongs to
func (p *Package) Workspace() *Workspace {
	return p.ws
}

// Path joins elements onto the package directory
func (p *Package) Path(elem ...string) string {
	return filepath.Join(append([]string{p.Dir}, elem...)...)
}

// SourceFiles returns the TypeScript sources and config files of the
// package, relative to its directory
func (p *Package) SourceFiles() ([]string, error) {
	return utils.CollectFiles(p.Dir, sourcePatterns, defaultExcludes)
}

// AssetFiles returns the non-TypeScript files under src, relative to src
func (p *Package) AssetFiles() ([]string, error) {
	files, err := utils.CollectFiles(p.Path("src"), nil, defaultExcludes)
	if err != nil {
		return nil, err
	}

	var assets []string
	for _, f := range files {
		if !typescriptFiles.Match(f) {
			assets = append(assets, f)
		}
	}
	return assets, nil
}

// ExecOptions returns options that run script in the package directory
// with output prefixed by the package name and logged under
// "<script>-<package>"
func (p *Package) ExecOptions(script string, args ...string) ExecOptions {
	return ExecOptions{
		Args:   args,
		Dir:    p.Dir,
		Prefix: p.Name,
		Key:    script + "-" + p.Name,
	}
}

// StartProcess starts a workspace tool for the package without waiting
func (p *Package) StartProcess(ctx context.Context, script string, opts ExecOptions) (*process.Process, error) {
	if p.ws == nil {
		return nil, fmt.Errorf("package %s does not belong to a workspace", p.Name)
	}
	return p.ws.StartProcess(ctx, script, opts)
}

// Exec runs a workspace tool in the package directory and waits for it
// to succeed
func (p *Package) Exec(ctx context.Context, script string, args ...string) error {
	return p.ExecWith(ctx, script, p.ExecOptions(script, args...))
}

// ExecWith is Exec with explicit options
func (p *Package) ExecWith(ctx context.Context, script string, opts ExecOptions) error {
	proc, err := p.StartProcess(ctx, script, opts)
	if err != nil {
		return err
	}
	return proc.WaitForSuccess()
}

func (p *Package) String() string {
	return p.Name
}
