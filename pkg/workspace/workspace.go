// Package workspace loads a depot workspace: its root, packages and the
// dependency graph between them.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/depot-build/depot/pkg/config"
	"github.com/depot-build/depot/pkg/git"
	"github.com/depot-build/depot/pkg/graph"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/manifest"
	"github.com/depot-build/depot/pkg/process"
	"github.com/depot-build/depot/pkg/utils"
)

// Workspace is a set of packages with a shared root. Packages, the graph
// and the selected roots are fixed after construction.
type Workspace struct {
	Root     string
	Packages []*Package
	Graph    *graph.Graph
	// Monorepo is true when packages live in subdirectories of the root
	Monorepo bool

	// StateDir holds logs and run records
	StateDir string
	// PnpmPath is the pnpm binary used by Exec
	PnpmPath string
	// Output receives tool output. Defaults to os.Stdout.
	Output io.Writer

	byName       map[string]*Package
	roots        []*Package
	displayOrder []*Package

	mu        sync.RWMutex
	processes []*process.Process
}

// New builds a workspace from packages that are already loaded. Every
// package is selected as a root. Package names must be unique.
func New(root string, pkgs []*Package) (*Workspace, error) {
	ws := &Workspace{
		Root:     root,
		Packages: pkgs,
		StateDir: filepath.Join(root, config.DefaultStateDir),
		byName:   make(map[string]*Package, len(pkgs)),
	}

	nodes := make([]graph.Node, len(pkgs))
	for i, pkg := range pkgs {
		if other, ok := ws.byName[pkg.Name]; ok {
			return nil, fmt.Errorf("%w: %s (%s and %s)", ErrDuplicatePackage, pkg.Name, other.Dir, pkg.Dir)
		}
		ws.byName[pkg.Name] = pkg
		pkg.Index = i
		pkg.ws = ws
		nodes[i] = pkg
	}

	ws.Graph = graph.Build(nodes)
	ws.roots = pkgs
	ws.displayOrder = ws.lookup(ws.Graph.Order(ws.Graph.Names()))
	ws.Monorepo = len(pkgs) > 1 || (len(pkgs) == 1 && filepath.Clean(pkgs[0].Dir) != filepath.Clean(root))

	return ws, nil
}

// Options control how a workspace is loaded from disk
type Options struct {
	// Cwd is where root discovery starts. Defaults to the process cwd.
	Cwd string
	// Package selects a single root package by name
	Package string
	// Version is the running depot version, compared against the
	// workspace manifest
	Version string
	// StateDir overrides <root>/.depot
	StateDir string
	PnpmPath string
	Logger   logger.Logger
}

// Load discovers the workspace containing opts.Cwd and loads its packages
func Load(opts Options) (*Workspace, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	cwd := opts.Cwd
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, err
	}

	root, err := FindRoot(cwd)
	if err != nil {
		return nil, err
	}
	log.Debug("Workspace root", logger.WithField("root", root))

	wsManifest, err := manifest.LoadWorkspace(filepath.Join(root, "package.json"))
	if err != nil {
		return nil, err
	}
	if created := wsManifest.DepotVersion(); created != "" && opts.Version != "" && created != opts.Version {
		log.Warn(fmt.Sprintf("Depot binary is v%s but workspace was created with v%s. "+
			"Double-check that this workspace is compatible and update depot.depot_version in package.json.",
			opts.Version, created))
	}

	dirs, monorepo, err := packageDirs(root)
	if err != nil {
		return nil, err
	}
	log.Debug("Workspace layout", logger.WithField("monorepo", monorepo), logger.WithField("packages", len(dirs)))

	pkgs := make([]*Package, 0, len(dirs))
	for _, dir := range dirs {
		pkg, err := LoadPackage(dir)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}

	ws, err := New(root, pkgs)
	if err != nil {
		return nil, err
	}
	ws.Monorepo = monorepo
	if opts.StateDir != "" {
		ws.StateDir = opts.StateDir
	}
	ws.PnpmPath = opts.PnpmPath

	if opts.Package != "" {
		if err := ws.SelectRoots(opts.Package); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

// FindRoot returns the first directory holding a package.json on the
// path from the git root of cwd (or the filesystem root outside git)
// down to cwd
func FindRoot(cwd string) (string, error) {
	top := git.RootOrEmpty(cwd)
	rel, err := filepath.Rel(top, cwd)
	if top == "" || err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		top = filesystemRoot(cwd)
		rel, err = filepath.Rel(top, cwd)
		if err != nil {
			return "", err
		}
	}

	candidate := top
	if utils.FileExists(filepath.Join(candidate, "package.json")) {
		return candidate, nil
	}
	if rel != "." {
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			candidate = filepath.Join(candidate, part)
			if utils.FileExists(filepath.Join(candidate, "package.json")) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w in working dir: %s", ErrRootNotFound, cwd)
}

func filesystemRoot(path string) string {
	return filepath.VolumeName(path) + string(filepath.Separator)
}

// packageDirs lists package directories. pnpm-workspace.yaml globs take
// precedence over a packages/ directory; without either the root is the
// only package.
func packageDirs(root string) ([]string, bool, error) {
	pnpmWs, err := config.LoadPnpmWorkspace(root)
	if err != nil {
		return nil, false, err
	}
	if pnpmWs != nil && len(pnpmWs.Includes()) > 0 {
		dirs, err := globPackageDirs(root, pnpmWs)
		return dirs, true, err
	}

	pkgDir := filepath.Join(root, "packages")
	if !utils.DirectoryExists(pkgDir) {
		return []string{root}, false, nil
	}

	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil, false, err
	}
	var dirs []string
	for _, entry := range entries {
		dir := filepath.Join(pkgDir, entry.Name())
		if entry.IsDir() && utils.FileExists(filepath.Join(dir, "package.json")) {
			dirs = append(dirs, dir)
		}
	}
	return dirs, true, nil
}

func globPackageDirs(root string, pnpmWs *config.PnpmWorkspace) ([]string, error) {
	include, err := utils.NewPatternMatcher(pnpmWs.Includes())
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.PnpmWorkspaceFile, err)
	}
	exclude, err := utils.NewExclusionMatcher(append(utils.DefaultExclusions(), pnpmWs.Excludes()...))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.PnpmWorkspaceFile, err)
	}

	rels, err := utils.CollectDirs(root, include, exclude)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, rel := range rels {
		dir := filepath.Join(root, filepath.FromSlash(rel))
		if utils.FileExists(filepath.Join(dir, "package.json")) {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// SelectRoots restricts the root packages to the named ones
func (w *Workspace) SelectRoots(names ...string) error {
	roots := make([]*Package, 0, len(names))
	for _, name := range names {
		pkg, ok := w.byName[name]
		if !ok {
			return fmt.Errorf("%w with name: %s", ErrPackageNotFound, name)
		}
		roots = append(roots, pkg)
	}
	w.roots = roots
	return nil
}

// Roots returns the packages selected to run commands on
func (w *Workspace) Roots() []*Package {
	return w.roots
}

// Package looks up a package by name
func (w *Workspace) Package(name string) (*Package, bool) {
	pkg, ok := w.byName[name]
	return pkg, ok
}

// Closure returns roots plus every package they depend on, sorted by name
func (w *Workspace) Closure(roots []*Package) []*Package {
	names := make([]string, len(roots))
	for i, pkg := range roots {
		names[i] = pkg.Name
	}
	return w.lookup(w.Graph.Closure(names))
}

// DisplayOrder returns all packages with dependencies before dependents
func (w *Workspace) DisplayOrder() []*Package {
	return w.displayOrder
}

// Names returns the names of packages, in the order given
func Names(pkgs []*Package) []string {
	names := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		names[i] = pkg.Name
	}
	return names
}

func (w *Workspace) lookup(names []string) []*Package {
	pkgs := make([]*Package, 0, len(names))
	for _, name := range names {
		if pkg, ok := w.byName[name]; ok {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}

// LogDir is where process output is recorded
func (w *Workspace) LogDir() string {
	return filepath.Join(w.StateDir, "logs")
}

// Processes returns the processes started through Exec
func (w *Workspace) Processes() []*process.Process {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*process.Process, len(w.processes))
	copy(out, w.processes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime().Before(out[j].StartTime())
	})
	return out
}
