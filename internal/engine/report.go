package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/depot-build/depot/pkg/types"
)

// TaskRecord is the per-run state of one package task
type TaskRecord struct {
	Package string
	Status  types.TaskStatus
	Start   time.Time
	End     time.Time
	Err     error
}

// Duration is zero until the task has ended
func (t TaskRecord) Duration() time.Duration {
	if t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

// Report is the result of running one command
type Report struct {
	Command string
	RunID   string
	Runtime types.CommandRuntime
	Start   time.Time
	End     time.Time

	Success bool
	// Failed names the first package whose task failed. It is empty when
	// the workspace step failed.
	Failed string
	Err    error

	// Tasks holds a record per package in the run. After a failed ordered
	// run, tasks that were still in flight stay running.
	Tasks map[string]*TaskRecord
}

func newReport(command, runID string) *Report {
	return &Report{
		Command: command,
		RunID:   runID,
		Start:   time.Now(),
		Success: true,
		Tasks:   make(map[string]*TaskRecord),
	}
}

func (r *Report) fail(pkg string, err error) {
	if !r.Success {
		return
	}
	r.Success = false
	r.Failed = pkg
	r.Err = err
}

// Task returns the record for a package
func (r *Report) Task(name string) (TaskRecord, bool) {
	rec, ok := r.Tasks[name]
	if !ok {
		return TaskRecord{}, false
	}
	return *rec, true
}

// Packages returns the packages of the run sorted by start time, with
// packages that never started last
func (r *Report) Packages() []string {
	names := make([]string, 0, len(r.Tasks))
	for name := range r.Tasks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := r.Tasks[names[i]], r.Tasks[names[j]]
		switch {
		case a.Start.IsZero() != b.Start.IsZero():
			return b.Start.IsZero()
		case !a.Start.Equal(b.Start):
			return a.Start.Before(b.Start)
		default:
			return names[i] < names[j]
		}
	})
	return names
}

// Count returns how many tasks have the given status
func (r *Report) Count(status types.TaskStatus) int {
	n := 0
	for _, rec := range r.Tasks {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// Duration of the whole run
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Failure converts an unsuccessful report into an ErrRunFailed error
func (r *Report) Failure() error {
	if r.Success {
		return nil
	}
	if r.Failed != "" {
		return fmt.Errorf("%w: %s failed on %s: %v", ErrRunFailed, r.Command, r.Failed, r.Err)
	}
	return fmt.Errorf("%w: %s: %v", ErrRunFailed, r.Command, r.Err)
}
