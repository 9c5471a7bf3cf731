// Package state persists the outcome of package tasks so that later
// invocations can report on them
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/depot-build/depot/internal/engine"
	depotctx "github.com/depot-build/depot/pkg/context"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/utils"
)

// PackageState is the last known task of one command on one package
type PackageState struct {
	Package      string           `json:"package"`
	Command      string           `json:"command"`
	RunID        string           `json:"runId"`
	Status       types.TaskStatus `json:"status"`
	Start        time.Time        `json:"start"`
	Duration     time.Duration    `json:"duration,omitempty"`
	LastError    string           `json:"lastError,omitempty"`
	RunCount     int              `json:"runCount"`
	FailureCount int              `json:"failureCount"`
	ProcessID    int              `json:"processId"`
}

// Interrupted reports whether the task was left running by a depot
// process that no longer exists
func (s *PackageState) Interrupted() bool {
	if s.Status != types.TaskRunning || s.ProcessID == os.Getpid() {
		return false
	}
	return !processAlive(s.ProcessID)
}

// RunState summarizes the last run of a command
type RunState struct {
	Command  string        `json:"command"`
	RunID    string        `json:"runId"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Failed   string        `json:"failed,omitempty"`
	Error    string        `json:"error,omitempty"`
	Finished int           `json:"finished"`
	Total    int           `json:"total"`
}

// Manager stores state files under <stateDir>/state. Write failures are
// logged and never fail a run.
type Manager struct {
	dir    string
	logger logger.Logger

	mu     sync.Mutex
	states map[string]*PackageState
}

var _ engine.Notifier = (*Manager)(nil)

// NewManager creates a manager rooted at a workspace state directory
func NewManager(stateDir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		dir:    filepath.Join(stateDir, "state"),
		logger: log,
		states: make(map[string]*PackageState),
	}
}

// Dir returns the directory holding state files
func (m *Manager) Dir() string {
	return m.dir
}

// TaskStarted records a running task, keeping counters from earlier runs
func (m *Manager) TaskStarted(ctx context.Context, command string, task engine.TaskRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.load(command, task.Package)
	s.RunID = depotctx.GetRunID(ctx)
	s.Status = types.TaskRunning
	s.Start = task.Start
	s.Duration = 0
	s.LastError = ""
	s.ProcessID = os.Getpid()

	m.save(s)
}

// TaskFinished records the outcome of a task
func (m *Manager) TaskFinished(ctx context.Context, command string, task engine.TaskRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.load(command, task.Package)
	s.RunID = depotctx.GetRunID(ctx)
	s.Status = task.Status
	s.Start = task.Start
	s.Duration = task.Duration()
	s.RunCount++
	if task.Err != nil {
		s.LastError = task.Err.Error()
		s.FailureCount++
	}

	m.save(s)
}

// RunFinished records the run summary
func (m *Manager) RunFinished(_ context.Context, report *engine.Report) {
	run := &RunState{
		Command:  report.Command,
		RunID:    report.RunID,
		Start:    report.Start,
		Duration: report.Duration(),
		Success:  report.Success,
		Failed:   report.Failed,
		Finished: report.Count(types.TaskFinished),
		Total:    len(report.Tasks),
	}
	if report.Err != nil {
		run.Error = report.Err.Error()
	}

	if err := m.write(m.runPath(report.Command), run); err != nil {
		m.logger.Warn("Failed to save run state",
			logger.WithField("command", report.Command), logger.WithError(err))
	}
}

// ReadState returns the stored state of command on pkg
func (m *Manager) ReadState(command, pkg string) (*PackageState, error) {
	var s PackageState
	if err := m.read(m.packagePath(command, pkg), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LastRun returns the summary of the last run of command
func (m *Manager) LastRun(command string) (*RunState, error) {
	var run RunState
	if err := m.read(m.runPath(command), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Commands lists the commands with a recorded run, sorted
func (m *Manager) Commands() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.dir, "runs"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var commands []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok && !e.IsDir() {
			commands = append(commands, name)
		}
	}
	sort.Strings(commands)
	return commands, nil
}

// DiscoverStates returns every package state stored for command, sorted
// by package name. Unreadable files are skipped with a warning.
func (m *Manager) DiscoverStates(command string) ([]*PackageState, error) {
	dir := filepath.Join(m.dir, "packages", command)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var states []*PackageState
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var s PackageState
		if err := m.read(filepath.Join(dir, e.Name()), &s); err != nil {
			m.logger.Warn("Failed to load state file",
				logger.WithField("file", e.Name()), logger.WithError(err))
			continue
		}
		states = append(states, &s)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Package < states[j].Package })
	return states, nil
}

// RemoveState deletes the stored state of command on pkg
func (m *Manager) RemoveState(command, pkg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key(command, pkg))
	if err := os.Remove(m.packagePath(command, pkg)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

func key(command, pkg string) string {
	return command + "\x00" + pkg
}

// load returns the cached state, falling back to the file and then to a
// fresh record. Callers hold m.mu.
func (m *Manager) load(command, pkg string) *PackageState {
	k := key(command, pkg)
	if s, ok := m.states[k]; ok {
		return s
	}

	s, err := m.ReadState(command, pkg)
	if err != nil {
		s = &PackageState{Package: pkg, Command: command}
	}
	m.states[k] = s
	return s
}

func (m *Manager) save(s *PackageState) {
	if err := m.write(m.packagePath(s.Command, s.Package), s); err != nil {
		m.logger.Warn("Failed to save package state",
			logger.WithField("package", s.Package), logger.WithError(err))
	}
}

func (m *Manager) write(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return utils.WriteFileAtomic(path, data)
}

func (m *Manager) read(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	return nil
}

func (m *Manager) packagePath(command, pkg string) string {
	return filepath.Join(m.dir, "packages", command, fileName(pkg)+".json")
}

func (m *Manager) runPath(command string) string {
	return filepath.Join(m.dir, "runs", command+".json")
}

// fileName flattens scoped package names such as @scope/name
func fileName(pkg string) string {
	return strings.NewReplacer("/", "__", "\\", "__").Replace(pkg)
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
