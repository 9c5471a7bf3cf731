package workspace

import (
	"context"
	"io"
	"path/filepath"

	"github.com/depot-build/depot/pkg/config"
	"github.com/depot-build/depot/pkg/process"
)

// PnpmScript runs pnpm itself instead of a tool through "pnpm exec"
const PnpmScript = "pnpm"

// ExecOptions configure a tool started by Workspace.Exec
type ExecOptions struct {
	Args []string
	// Dir defaults to the workspace root
	Dir string
	// Prefix labels output lines, usually with a package name
	Prefix string
	// Key names the log file under LogDir. Empty disables the log file.
	Key    string
	Env    []string
	Output io.Writer
}

// StartProcess starts script through "pnpm exec" with NODE_PATH pointing
// at the workspace node_modules. The process is tracked by the workspace.
func (w *Workspace) StartProcess(ctx context.Context, script string, opts ExecOptions) (*process.Process, error) {
	if w.PnpmPath == "" {
		return nil, config.ErrPnpmNotFound
	}

	args := opts.Args
	if script != PnpmScript {
		args = append([]string{"exec", script}, opts.Args...)
	}

	dir := opts.Dir
	if dir == "" {
		dir = w.Root
	}

	cfg := process.Config{
		Name:   script,
		Path:   w.PnpmPath,
		Args:   args,
		Dir:    dir,
		Env:    append([]string{"NODE_PATH=" + filepath.Join(w.Root, "node_modules")}, opts.Env...),
		Prefix: opts.Prefix,
		Output: opts.Output,
	}
	if cfg.Output == nil {
		cfg.Output = w.Output
	}
	if opts.Key != "" {
		cfg.LogPath = filepath.Join(w.LogDir(), opts.Key+".log")
	}

	p, err := process.Start(ctx, cfg)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.processes = append(w.processes, p)
	w.mu.Unlock()

	return p, nil
}

// Exec starts script and waits for it to exit successfully
func (w *Workspace) Exec(ctx context.Context, script string, opts ExecOptions) error {
	p, err := w.StartProcess(ctx, script, opts)
	if err != nil {
		return err
	}
	return p.WaitForSuccess()
}
