package state_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depot-build/depot/internal/engine"
	depotctx "github.com/depot-build/depot/pkg/context"
	"github.com/depot-build/depot/pkg/state"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/workspace"
)

func runCtx(runID string) context.Context {
	return depotctx.WithRunID(context.Background(), runID)
}

func TestManager_TaskLifecycle(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)
	start := time.Now()
	ctx := runCtx("run-1")

	sm.TaskStarted(ctx, "build", engine.TaskRecord{Package: "a", Status: types.TaskRunning, Start: start})

	s, err := sm.ReadState("build", "a")
	require.NoError(t, err)
	assert.Equal(t, types.TaskRunning, s.Status)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, os.Getpid(), s.ProcessID)
	assert.False(t, s.Interrupted())

	sm.TaskFinished(ctx, "build", engine.TaskRecord{
		Package: "a",
		Status:  types.TaskFinished,
		Start:   start,
		End:     start.Add(2 * time.Second),
	})

	s, err = sm.ReadState("build", "a")
	require.NoError(t, err)
	assert.Equal(t, types.TaskFinished, s.Status)
	assert.Equal(t, 2*time.Second, s.Duration)
	assert.Equal(t, 1, s.RunCount)
	assert.Zero(t, s.FailureCount)
	assert.Empty(t, s.LastError)
}

func TestManager_CountersSurviveRestarts(t *testing.T) {
	dir := t.TempDir()
	failed := engine.TaskRecord{Package: "a", Status: types.TaskFailed, Err: errors.New("tsc exited with code 2")}

	first := state.NewManager(dir, nil)
	first.TaskStarted(runCtx("1"), "build", engine.TaskRecord{Package: "a"})
	first.TaskFinished(runCtx("1"), "build", failed)

	second := state.NewManager(dir, nil)
	second.TaskStarted(runCtx("2"), "build", engine.TaskRecord{Package: "a"})

	s, err := second.ReadState("build", "a")
	require.NoError(t, err)
	assert.Empty(t, s.LastError, "a new run clears the previous error")
	assert.Equal(t, 1, s.FailureCount)

	second.TaskFinished(runCtx("2"), "build", engine.TaskRecord{Package: "a", Status: types.TaskFinished})

	s, err = second.ReadState("build", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, s.RunCount)
	assert.Equal(t, 1, s.FailureCount)
	assert.Equal(t, "2", s.RunID)
}

func TestManager_FailureRecorded(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)
	sm.TaskFinished(runCtx("r"), "test", engine.TaskRecord{
		Package: "b",
		Status:  types.TaskFailed,
		Err:     errors.New("vitest exited with code 1"),
	})

	s, err := sm.ReadState("test", "b")
	require.NoError(t, err)
	assert.Equal(t, types.TaskFailed, s.Status)
	assert.Equal(t, "vitest exited with code 1", s.LastError)
	assert.Equal(t, 1, s.FailureCount)
}

func TestManager_ScopedPackageNames(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)
	sm.TaskFinished(runCtx("r"), "build", engine.TaskRecord{Package: "@acme/ui", Status: types.TaskFinished})

	assert.FileExists(t, filepath.Join(sm.Dir(), "packages", "build", "@acme__ui.json"))

	states, err := sm.DiscoverStates("build")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "@acme/ui", states[0].Package)
}

func TestManager_DiscoverStates(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)
	for _, name := range []string{"c", "a", "b"} {
		sm.TaskFinished(runCtx("r"), "build", engine.TaskRecord{Package: name, Status: types.TaskFinished})
	}
	sm.TaskFinished(runCtx("r"), "test", engine.TaskRecord{Package: "z", Status: types.TaskFinished})

	require.NoError(t, os.WriteFile(filepath.Join(sm.Dir(), "packages", "build", "broken.json"), []byte("{"), 0o644))

	states, err := sm.DiscoverStates("build")
	require.NoError(t, err)

	names := make([]string, len(states))
	for i, s := range states {
		names[i] = s.Package
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	none, err := sm.DiscoverStates("fix")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestManager_RemoveState(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)
	sm.TaskFinished(runCtx("r"), "build", engine.TaskRecord{Package: "a", Status: types.TaskFinished})

	require.NoError(t, sm.RemoveState("build", "a"))
	_, err := sm.ReadState("build", "a")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.NoError(t, sm.RemoveState("build", "a"))
}

func TestPackageState_Interrupted(t *testing.T) {
	s := &state.PackageState{Status: types.TaskRunning, ProcessID: os.Getpid()}
	assert.False(t, s.Interrupted(), "own process")

	s.ProcessID = 0
	assert.True(t, s.Interrupted())

	s.Status = types.TaskFinished
	assert.False(t, s.Interrupted())
}

type recordingCommand struct {
	fail string
}

func (c *recordingCommand) Name() string                 { return "build" }
func (c *recordingCommand) Runtime() types.CommandRuntime { return types.RuntimeWaitForDependencies }
func (c *recordingCommand) RunPackage(_ context.Context, pkg *workspace.Package) error {
	if pkg.Name == c.fail {
		return errors.New("boom")
	}
	return nil
}

func TestManager_AsSchedulerNotifier(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), []*workspace.Package{
		workspace.NewPackage("a", ""),
		workspace.NewPackage("b", "", "a"),
		workspace.NewPackage("c", "", "b"),
	})
	require.NoError(t, err)

	sm := state.NewManager(ws.StateDir, nil)
	report, err := engine.NewScheduler(ws, nil, engine.WithNotifier(sm)).
		Run(context.Background(), &recordingCommand{fail: "b"}, nil)
	require.NoError(t, err)
	require.False(t, report.Success)

	a, err := sm.ReadState("build", "a")
	require.NoError(t, err)
	assert.Equal(t, types.TaskFinished, a.Status)
	assert.Equal(t, report.RunID, a.RunID)

	b, err := sm.ReadState("build", "b")
	require.NoError(t, err)
	assert.Equal(t, types.TaskFailed, b.Status)
	assert.Equal(t, "boom", b.LastError)

	_, err = sm.ReadState("build", "c")
	assert.ErrorIs(t, err, os.ErrNotExist, "c never started")

	run, err := sm.LastRun("build")
	require.NoError(t, err)
	assert.False(t, run.Success)
	assert.Equal(t, "b", run.Failed)
	assert.Equal(t, 1, run.Finished)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, report.RunID, run.RunID)

	commands, err := sm.Commands()
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, commands)
}

func TestManager_ConcurrentWrites(t *testing.T) {
	sm := state.NewManager(t.TempDir(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.TaskStarted(runCtx("r"), "build", engine.TaskRecord{Package: "shared"})
			sm.TaskFinished(runCtx("r"), "build", engine.TaskRecord{Package: "shared", Status: types.TaskFinished})
		}()
	}
	wg.Wait()

	s, err := sm.ReadState("build", "shared")
	require.NoError(t, err)
	assert.Equal(t, 20, s.RunCount)
}
