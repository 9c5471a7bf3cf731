package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/depot-build/depot/pkg/logger"
)

// ExitError reports a process that exited unsuccessfully
type ExitError struct {
	Name string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Config describes a process to start
type Config struct {
	// Name identifies the process in errors, usually the tool name
	Name string
	Path string
	Args []string
	Dir  string
	// Env is appended to the current environment
	Env []string

	// Prefix is printed, colored, before each output line. Empty disables
	// prefixing.
	Prefix string
	// Output receives prefixed stdout and stderr. Defaults to os.Stdout.
	Output io.Writer
	// LogPath, when set, receives the raw output
	LogPath string
}

// waitDelay bounds how long Wait keeps reading output once the process
// has exited or was killed. Children that outlive the process group and
// hold its pipes are cut off after it.
const waitDelay = 2 * time.Second

// Process is a running external command whose output is streamed line by
// line
type Process struct {
	name    string
	ctx     context.Context
	cmd     *exec.Cmd
	logFile *os.File
	started time.Time

	outMu  sync.Mutex
	out    io.Writer
	prefix string
	stdout *lineWriter
	stderr *lineWriter

	waitOnce sync.Once
	code     int
	err      error
}

// Start launches the process in its own process group. Canceling ctx
// kills the whole group.
func Start(ctx context.Context, cfg Config) (*Process, error) {
	name := cfg.Name
	if name == "" {
		name = filepath.Base(cfg.Path)
	}

	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	p := &Process{
		name: name,
		ctx:  ctx,
		cmd:  cmd,
		out:  cfg.Output,
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if cfg.Prefix != "" {
		p.prefix = logger.PackageColor(cfg.Prefix).Sprintf("[%s] ", cfg.Prefix)
	}
	p.stdout = &lineWriter{p: p}
	p.stderr = &lineWriter{p: p}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.Create(cfg.LogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		p.logFile = f
	}

	if err := cmd.Start(); err != nil {
		p.closeLog()
		return nil, &ExitError{Name: name, Code: -1, Err: err}
	}
	p.started = time.Now()

	return p, nil
}

func (p *Process) writeLine(line []byte) {
	p.outMu.Lock()
	defer p.outMu.Unlock()

	fmt.Fprintf(p.out, "%s%s\n", p.prefix, line)
	if p.logFile != nil {
		p.logFile.Write(line)
		p.logFile.Write([]byte{'\n'})
	}
}

// lineWriter splits one output stream into lines. Lines have no length
// limit; an unterminated last line is written by flush.
type lineWriter struct {
	p   *Process
	buf []byte
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.p.writeLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(b), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.p.writeLine(w.buf)
		w.buf = nil
	}
}

func (p *Process) closeLog() {
	if p.logFile != nil {
		p.logFile.Close()
	}
}

// Name returns the process name
func (p *Process) Name() string {
	return p.name
}

// PID returns the operating system process id
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// StartTime returns when the process was started
func (p *Process) StartTime() time.Time {
	return p.started
}

// Wait blocks until the process exits and returns its exit code. The
// error is non-nil only when the process could not be waited on.
// Subsequent calls return the same result.
func (p *Process) Wait() (int, error) {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		p.stdout.flush()
		p.stderr.flush()
		p.closeLog()

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			p.code = 0
		case errors.As(err, &exitErr):
			p.code = exitErr.ExitCode()
		case errors.Is(err, exec.ErrWaitDelay):
			// exited, but a leftover child kept the output open
			p.code = p.cmd.ProcessState.ExitCode()
		default:
			p.code = -1
			p.err = err
		}
	})
	return p.code, p.err
}

// WaitForSuccess waits for the process and returns an *ExitError unless it
// exited with code 0
func (p *Process) WaitForSuccess() error {
	code, err := p.Wait()
	if err != nil {
		return &ExitError{Name: p.name, Code: -1, Err: err}
	}
	if code != 0 {
		// a process killed by cancellation reports the context error
		return &ExitError{Name: p.name, Code: code, Err: p.ctx.Err()}
	}
	return nil
}

// Run starts a process and waits for it to succeed
func Run(ctx context.Context, cfg Config) error {
	p, err := Start(ctx, cfg)
	if err != nil {
		return err
	}
	return p.WaitForSuccess()
}
