package workspace_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depot-build/depot/pkg/config"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/workspace"
)

func diamond(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New("/ws", []*workspace.Package{
		workspace.NewPackage("d", "/ws/packages/d", "b", "c", "react"),
		workspace.NewPackage("c", "/ws/packages/c", "a"),
		workspace.NewPackage("b", "/ws/packages/b", "a"),
		workspace.NewPackage("a", "/ws/packages/a"),
	})
	require.NoError(t, err)
	return ws
}

func TestNew(t *testing.T) {
	ws := diamond(t)

	assert.True(t, ws.Monorepo)
	assert.Equal(t, []string{"a", "b", "c"}, ws.Graph.Dependencies("d"))
	assert.Equal(t, []string{"d", "c", "b", "a"}, workspace.Names(ws.Roots()))

	for i, pkg := range ws.Packages {
		assert.Equal(t, i, pkg.Index)
		assert.Same(t, ws, pkg.Workspace())
	}

	pkg, ok := ws.Package("c")
	require.True(t, ok)
	assert.Equal(t, "/ws/packages/c", pkg.Dir)

	_, ok = ws.Package("react")
	assert.False(t, ok)
}

func TestNew_DuplicatePackage(t *testing.T) {
	_, err := workspace.New("/ws", []*workspace.Package{
		workspace.NewPackage("ui", "/ws/packages/ui"),
		workspace.NewPackage("ui", "/ws/packages/ui-copy"),
	})
	assert.ErrorIs(t, err, workspace.ErrDuplicatePackage)
}

func TestClosureAndDisplayOrder(t *testing.T) {
	ws := diamond(t)

	b, _ := ws.Package("b")
	assert.Equal(t, []string{"a", "b"}, workspace.Names(ws.Closure([]*workspace.Package{b})))
	assert.Equal(t, []string{"a", "b", "c", "d"}, workspace.Names(ws.Closure(ws.Roots())))
	assert.Equal(t, []string{"a", "b", "c", "d"}, workspace.Names(ws.DisplayOrder()))
}

func TestSelectRoots(t *testing.T) {
	ws := diamond(t)

	require.NoError(t, ws.SelectRoots("c"))
	assert.Equal(t, []string{"c"}, workspace.Names(ws.Roots()))

	err := ws.SelectRoots("nope")
	assert.ErrorIs(t, err, workspace.ErrPackageNotFound)
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// isolate keeps git from discovering a repository above dir
func isolate(t *testing.T, dir string) {
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
}

func monorepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	isolate(t, root)

	writeJSON(t, filepath.Join(root, "package.json"), map[string]interface{}{
		"private": true,
		"depot":   map[string]string{"depot_version": "0.3.0"},
	})
	writeJSON(t, filepath.Join(root, "packages", "utils", "package.json"), map[string]interface{}{
		"name":         "utils",
		"dependencies": map[string]string{"lodash": "^4"},
	})
	writeJSON(t, filepath.Join(root, "packages", "ui", "package.json"), map[string]interface{}{
		"name":             "ui",
		"peerDependencies": map[string]string{"utils": "workspace:*"},
	})
	writeJSON(t, filepath.Join(root, "packages", "app", "package.json"), map[string]interface{}{
		"name":            "app",
		"dependencies":    map[string]string{"ui": "workspace:*"},
		"devDependencies": map[string]string{"vite": "^5"},
	})
	writeFile(t, filepath.Join(root, "packages", "app", "index.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "packages", "README.md"), "not a package")
	return root
}

func TestLoad_Monorepo(t *testing.T) {
	root := monorepo(t)

	ws, err := workspace.Load(workspace.Options{Cwd: filepath.Join(root, "packages", "ui"), Version: "0.3.0"})
	require.NoError(t, err)

	assert.Equal(t, root, ws.Root)
	assert.True(t, ws.Monorepo)
	assert.Len(t, ws.Packages, 3)
	assert.Equal(t, []string{"ui", "utils"}, ws.Graph.Dependencies("app"))
	assert.Equal(t, []string{"utils", "ui", "app"}, workspace.Names(ws.DisplayOrder()))
	assert.Equal(t, filepath.Join(root, ".depot"), ws.StateDir)

	app, _ := ws.Package("app")
	assert.Equal(t, types.TargetSite, app.Target)
	utils, _ := ws.Package("utils")
	assert.Equal(t, types.TargetLib, utils.Target)
	assert.Equal(t, types.PlatformBrowser, utils.Platform)
}

func TestLoad_SelectPackage(t *testing.T) {
	root := monorepo(t)

	ws, err := workspace.Load(workspace.Options{Cwd: root, Package: "ui"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ui"}, workspace.Names(ws.Roots()))
	assert.Equal(t, []string{"ui", "utils"}, workspace.Names(ws.Closure(ws.Roots())))

	_, err = workspace.Load(workspace.Options{Cwd: root, Package: "missing"})
	assert.ErrorIs(t, err, workspace.ErrPackageNotFound)
}

func TestLoad_VersionMismatchWarns(t *testing.T) {
	root := monorepo(t)

	var out bytes.Buffer
	_, err := workspace.Load(workspace.Options{
		Cwd:     root,
		Version: "0.4.0",
		Logger:  logger.CreateLoggerWithOutput("info", &out),
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Depot binary is v0.4.0 but workspace was created with v0.3.0")
}

func TestLoad_DuplicateNames(t *testing.T) {
	root := monorepo(t)
	writeJSON(t, filepath.Join(root, "packages", "ui-fork", "package.json"), map[string]string{"name": "ui"})

	_, err := workspace.Load(workspace.Options{Cwd: root})
	assert.ErrorIs(t, err, workspace.ErrDuplicatePackage)
}

func TestLoad_SinglePackage(t *testing.T) {
	root := t.TempDir()
	isolate(t, root)
	writeJSON(t, filepath.Join(root, "package.json"), map[string]interface{}{
		"name":  "cli",
		"depot": map[string]string{"platform": "node"},
	})
	writeFile(t, filepath.Join(root, "src", "main.ts"), "console.log('hi')")

	ws, err := workspace.Load(workspace.Options{Cwd: filepath.Join(root, "src")})
	require.NoError(t, err)

	assert.False(t, ws.Monorepo)
	require.Len(t, ws.Packages, 1)
	pkg := ws.Packages[0]
	assert.Equal(t, root, pkg.Dir)
	assert.Equal(t, types.TargetScript, pkg.Target)
	assert.Equal(t, types.PlatformNode, pkg.Platform)
}

func TestLoad_PnpmWorkspace(t *testing.T) {
	root := t.TempDir()
	isolate(t, root)
	writeJSON(t, filepath.Join(root, "package.json"), map[string]string{"name": "root"})
	writeFile(t, filepath.Join(root, config.PnpmWorkspaceFile), "packages:\n  - 'apps/*'\n  - 'libs/*'\n  - '!libs/legacy'\n")
	writeJSON(t, filepath.Join(root, "apps", "web", "package.json"), map[string]interface{}{
		"name":         "web",
		"dependencies": map[string]string{"core": "workspace:*"},
	})
	writeJSON(t, filepath.Join(root, "libs", "core", "package.json"), map[string]string{"name": "core"})
	writeJSON(t, filepath.Join(root, "libs", "legacy", "package.json"), map[string]string{"name": "legacy"})

	ws, err := workspace.Load(workspace.Options{Cwd: root})
	require.NoError(t, err)

	assert.True(t, ws.Monorepo)
	assert.ElementsMatch(t, []string{"web", "core"}, workspace.Names(ws.Packages))
	assert.True(t, ws.Graph.IsDependentOn("web", "core"))
}

func TestLoad_InvalidManifest(t *testing.T) {
	root := monorepo(t)
	writeFile(t, filepath.Join(root, "packages", "broken", "package.json"), "{not json")

	_, err := workspace.Load(workspace.Options{Cwd: root})
	assert.Error(t, err)
}

func TestFindRoot_NotFound(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)

	_, err := workspace.FindRoot(dir)
	assert.True(t, errors.Is(err, workspace.ErrRootNotFound), "got %v", err)
}

func TestPackageFiles(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "package.json"), map[string]string{"name": "ui"})
	writeFile(t, filepath.Join(dir, "tsconfig.json"), "{}")
	writeFile(t, filepath.Join(dir, "src", "index.ts"), "")
	writeFile(t, filepath.Join(dir, "src", "button.tsx"), "")
	writeFile(t, filepath.Join(dir, "src", "styles", "button.css"), "")
	writeFile(t, filepath.Join(dir, "src", "logo.svg"), "")
	writeFile(t, filepath.Join(dir, "dist", "index.js"), "")
	writeFile(t, filepath.Join(dir, "node_modules", "x", "index.ts"), "")

	pkg, err := workspace.LoadPackage(dir)
	require.NoError(t, err)

	sources, err := pkg.SourceFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"package.json", "src/button.tsx", "src/index.ts", "tsconfig.json"}, sources)

	assets, err := pkg.AssetFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"logo.svg", "styles/button.css"}, assets)
}

func TestExec(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	root := t.TempDir()
	pnpm := filepath.Join(root, "pnpm")
	writeFile(t, pnpm, "#!/bin/sh\necho \"$@ $NODE_PATH\"\n")
	require.NoError(t, os.Chmod(pnpm, 0o755))

	ws, err := workspace.New(root, []*workspace.Package{workspace.NewPackage("ui", root)})
	require.NoError(t, err)
	ws.PnpmPath = pnpm

	var out bytes.Buffer
	err = ws.Exec(context.Background(), "tsc", workspace.ExecOptions{
		Args:   []string{"--noEmit"},
		Key:    "tsc-ui",
		Output: &out,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "exec tsc --noEmit "+filepath.Join(root, "node_modules"))
	assert.FileExists(t, filepath.Join(ws.LogDir(), "tsc-ui.log"))
	assert.Len(t, ws.Processes(), 1)

	out.Reset()
	require.NoError(t, ws.Exec(context.Background(), workspace.PnpmScript, workspace.ExecOptions{
		Args:   []string{"install"},
		Output: &out,
	}))
	assert.Contains(t, out.String(), "install ")
	assert.NotContains(t, out.String(), "exec")
}

func TestExec_NoPnpm(t *testing.T) {
	ws := diamond(t)
	pkg, _ := ws.Package("a")

	err := pkg.Exec(context.Background(), "tsc")
	assert.ErrorIs(t, err, config.ErrPnpmNotFound)
}
