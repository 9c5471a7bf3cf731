package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depot-build/depot/internal/engine"
	"github.com/depot-build/depot/pkg/cli"
	"github.com/depot-build/depot/pkg/workspace"
)

const fakePnpm = `#!/bin/sh
echo "$(basename "$PWD") $*" >> "$DEPOT_FAKE_CALLS"
if [ -n "$DEPOT_FAKE_FAIL" ]; then
  case "$*" in *"$DEPOT_FAKE_FAIL"*) exit 3;; esac
fi
exit 0
`

// syncBuffer is written to by several tool processes at once
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type env struct {
	root  string
	calls string
}

// newEnv creates a workspace with packages "app" -> "core" and a depot
// home holding the fake pnpm
func newEnv(t *testing.T) *env {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "repo")
	home := filepath.Join(base, "home")

	writeFile(t, filepath.Join(root, "package.json"), `{"name": "repo", "private": true}`)
	writeFile(t, filepath.Join(root, "packages", "core", "package.json"), `{"name": "core"}`)
	writeFile(t, filepath.Join(root, "packages", "core", "src", "index.ts"), "export const x = 1\n")
	writeFile(t, filepath.Join(root, "packages", "app", "package.json"),
		`{"name": "app", "dependencies": {"core": "workspace:*", "react": "^18"}}`)
	writeFile(t, filepath.Join(root, "packages", "app", "src", "index.ts"), "export {}\n")

	pnpm := filepath.Join(home, "bin", "pnpm")
	writeFile(t, pnpm, fakePnpm)
	require.NoError(t, os.Chmod(pnpm, 0o755))

	calls := filepath.Join(base, "calls.txt")
	t.Setenv("GIT_CEILING_DIRECTORIES", base)
	t.Setenv("DEPOT_HOME", home)
	t.Setenv("DEPOT_FAKE_CALLS", calls)
	t.Setenv("DEPOT_FAKE_FAIL", "")

	return &env{root: root, calls: calls}
}

func (e *env) Calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.calls)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func (e *env) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut syncBuffer
	cfg := cli.NewConfig()
	cfg.Version = "1.2.3"

	c := cli.NewCLIWithOutput(cfg, &out, &errOut)
	err := c.ExecuteContext(context.Background(), append([]string{"--root", e.root}, args...))
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, _, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "depot v1.2.3")
}

func TestList(t *testing.T) {
	e := newEnv(t)
	out, _, err := e.run(t, "list")
	require.NoError(t, err)

	core := strings.Index(out, "core ")
	app := strings.Index(out, "app ")
	require.NotEqual(t, -1, core, out)
	require.NotEqual(t, -1, app, out)
	assert.Less(t, core, app, "dependencies are listed first")
	assert.Contains(t, out, filepath.Join("packages", "app"))
	assert.NotContains(t, out, "react", "only workspace dependencies are shown")
}

func TestBuild(t *testing.T) {
	e := newEnv(t)
	out, _, err := e.run(t, "build")
	require.NoError(t, err)

	assert.Contains(t, out, "init finished")
	assert.Contains(t, out, "build finished 2 packages")

	calls := e.Calls(t)
	require.NotEmpty(t, calls)
	assert.Equal(t, "repo install", calls[0])
	assert.Contains(t, calls, "core exec tsc --pretty --sourceMap")
	assert.Contains(t, calls, "app exec tsc --pretty --sourceMap")

	status, _, err := e.run(t, "status", "build")
	require.NoError(t, err)
	assert.Contains(t, status, "build succeeded")
	assert.Contains(t, status, "core")
	assert.Contains(t, status, "finished")
}

func TestBuild_SelectedPackage(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run(t, "-p", "core", "build")
	require.NoError(t, err)

	for _, call := range e.Calls(t) {
		assert.False(t, strings.HasPrefix(call, "app "), "app is not a dependency of core: %s", call)
	}
}

func TestBuild_UnknownPackage(t *testing.T) {
	e := newEnv(t)
	_, errOut, err := e.run(t, "-p", "missing", "build")
	assert.ErrorIs(t, err, workspace.ErrPackageNotFound)
	assert.Contains(t, errOut, "missing")
}

func TestBuild_Failure(t *testing.T) {
	e := newEnv(t)
	t.Setenv("DEPOT_FAKE_FAIL", "tsc")

	_, errOut, err := e.run(t, "build")
	require.ErrorIs(t, err, engine.ErrRunFailed)
	assert.Equal(t, 1, cli.ExitCode(err))
	assert.Contains(t, errOut, "build failed on core")

	for _, call := range e.Calls(t) {
		assert.False(t, strings.HasPrefix(call, "app "), "app must not start after core failed: %s", call)
	}

	status, _, err := e.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, status, "failed on core")
}

func TestFix_IgnoresBiomeFailures(t *testing.T) {
	e := newEnv(t)
	t.Setenv("DEPOT_FAKE_FAIL", "biome")

	_, _, err := e.run(t, "fix", "--biome-args", "--unsafe")
	require.NoError(t, err)
	assert.Contains(t, e.Calls(t), "core exec biome check --fix package.json src/index.ts --unsafe")
}

func TestClean(t *testing.T) {
	e := newEnv(t)
	writeFile(t, filepath.Join(e.root, "packages", "core", "dist", "index.js"), "")
	writeFile(t, filepath.Join(e.root, ".depot", "logs", "tsc-core.log"), "")

	_, _, err := e.run(t, "clean")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(e.root, "packages", "core", "dist"))
	assert.NoDirExists(t, filepath.Join(e.root, ".depot"))
}

func TestStatus_NoRuns(t *testing.T) {
	e := newEnv(t)
	out, _, err := e.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet")
}

func TestSettingsFile(t *testing.T) {
	e := newEnv(t)
	writeFile(t, filepath.Join(e.root, "depot.yaml"), "jobs: -1\n")

	_, _, err := e.run(t, "list")
	assert.ErrorContains(t, err, "jobs must not be negative")

	writeFile(t, filepath.Join(e.root, "depot.yaml"), "jobs: 1\nstate_dir: .cache/depot\n")
	_, _, err = e.run(t, "build")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(e.root, ".cache", "depot", "state"))
}

func TestSettingsFromEnvironment(t *testing.T) {
	e := newEnv(t)
	t.Setenv("DEPOT_LOG_LEVEL", "loud")

	_, _, err := e.run(t, "list")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestExplicitConfigMustExist(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run(t, "--config", filepath.Join(e.root, "nope.yaml"), "list")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, cli.ExitCode(nil))
	assert.Equal(t, 1, cli.ExitCode(errors.New("boom")))
	assert.Equal(t, 130, cli.ExitCode(context.Canceled))
}

func TestValidate(t *testing.T) {
	e := newEnv(t)
	out, _, err := e.run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "2 packages valid")
	assert.Contains(t, out, "no tsconfig.json")

	writeFile(t, filepath.Join(e.root, "packages", "web", "package.json"),
		`{"name": "web", "depot": {"target": "site"}}`)
	_, errOut, err := e.run(t, "validate")
	assert.ErrorIs(t, err, cli.ErrInvalidWorkspace)
	assert.Contains(t, errOut, "site packages need an index.html")
}

func TestStatus_PrunesRemovedPackages(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run(t, "build")
	require.NoError(t, err)

	record := filepath.Join(e.root, ".depot", "state", "packages", "build", "app.json")
	require.FileExists(t, record)
	require.NoError(t, os.RemoveAll(filepath.Join(e.root, "packages", "app")))

	out, _, err := e.run(t, "status", "build")
	require.NoError(t, err)
	assert.Contains(t, out, "core")
	assert.NotContains(t, out, "app ")
	assert.NoFileExists(t, record)
}
