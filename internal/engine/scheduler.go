package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	depotctx "github.com/depot-build/depot/pkg/context"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/workspace"
)

// Scheduler runs commands over the packages of a workspace
type Scheduler struct {
	ws        *workspace.Workspace
	logger    logger.Logger
	jobs      int
	notifiers []Notifier
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithJobs caps how many package tasks run at once. 0 means no cap.
func WithJobs(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.jobs = n
		}
	}
}

// WithNotifier registers an observer of task and run events
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// NewScheduler creates a scheduler for ws
func NewScheduler(ws *workspace.Workspace, log logger.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Scheduler{ws: ws, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workspace returns the workspace the scheduler runs commands on
func (s *Scheduler) Workspace() *workspace.Workspace {
	return s.ws
}

// Run executes cmd over roots and every package they depend on, then the
// command's workspace step if all package tasks succeeded. A nil roots
// slice selects the workspace roots.
//
// A failing task does not make Run return an error: the report has
// Success set to false. Run returns an error when the run could not be
// scheduled (for example a dependency cycle in an ordered command) or ctx
// was canceled.
func (s *Scheduler) Run(ctx context.Context, cmd Command, roots []*workspace.Package) (*Report, error) {
	pkgCmd, isPkg := cmd.(PackageCommand)
	wsCmd, isWs := cmd.(WorkspaceCommand)
	if !isPkg && !isWs {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, cmd.Name())
	}

	ctx = depotctx.EnrichContext(ctx, cmd.Name())
	ctx = depotctx.WithStartTime(ctx, time.Now())
	report := newReport(cmd.Name(), depotctx.GetRunID(ctx))

	if isPkg {
		if roots == nil {
			roots = s.ws.Roots()
		}
		pkgs := s.ws.Closure(roots)
		report.Runtime = pkgCmd.Runtime()
		for _, pkg := range pkgs {
			report.Tasks[pkg.Name] = &TaskRecord{Package: pkg.Name, Status: types.TaskQueued}
		}

		log := logger.WithContext(ctx, s.logger)
		log.Debug("Running command",
			logger.WithField("runtime", pkgCmd.Runtime().String()),
			logger.WithField("packages", len(pkgs)))

		var err error
		if pkgCmd.Runtime().Ordered() {
			if err = s.ws.Graph.Cycles(workspace.Names(pkgs)); err != nil {
				return nil, err
			}
			err = s.runOrdered(ctx, pkgCmd, pkgs, report)
		} else {
			err = s.runUnordered(ctx, pkgCmd, pkgs, report)
		}
		if err != nil {
			report.fail("", err)
			s.finish(ctx, report)
			return report, err
		}
	}

	if report.Success && isWs {
		if err := s.runWorkspace(ctx, wsCmd); err != nil {
			report.fail("", err)
		}
	}

	s.finish(ctx, report)
	return report, nil
}

type completion struct {
	name string
	end  time.Time
	err  error
}

// runOrdered starts each package once every package it depends on within
// the run has finished. The loop is the only reader and writer of task
// state. On the first failure it returns without waiting for tasks still
// in flight; their completions land in the buffered channel unread.
func (s *Scheduler) runOrdered(ctx context.Context, cmd PackageCommand, pkgs []*workspace.Package, report *Report) error {
	done := make(chan completion, len(pkgs))
	running, finished := 0, 0

	order := s.ws.Graph.Order(workspace.Names(pkgs))
	byName := make(map[string]*workspace.Package, len(pkgs))
	for _, pkg := range pkgs {
		byName[pkg.Name] = pkg
	}

	for finished < len(pkgs) {
		for _, name := range order {
			if s.jobs > 0 && running >= s.jobs {
				break
			}
			if report.Tasks[name].Status != types.TaskQueued || !s.eligible(name, report) {
				continue
			}
			s.start(ctx, cmd, byName[name], report, done)
			running++
		}

		if running == 0 {
			return fmt.Errorf("%w: %d of %d finished", ErrStalled, finished, len(pkgs))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-done:
			running--
			rec := report.Tasks[c.name]
			rec.End = c.end
			rec.Err = c.err
			if c.err != nil {
				rec.Status = types.TaskFailed
				s.taskFinished(ctx, cmd, *rec)
				if err := ctx.Err(); err != nil {
					return err
				}
				report.fail(c.name, c.err)
				return nil
			}
			rec.Status = types.TaskFinished
			finished++
			s.taskFinished(ctx, cmd, *rec)
		}
	}
	return nil
}

// eligible reports whether every dependency of name that is part of the
// run has finished
func (s *Scheduler) eligible(name string, report *Report) bool {
	for _, dep := range s.ws.Graph.Dependencies(name) {
		rec, inRun := report.Tasks[dep]
		if inRun && rec.Status != types.TaskFinished {
			return false
		}
	}
	return true
}

func (s *Scheduler) start(ctx context.Context, cmd PackageCommand, pkg *workspace.Package, report *Report, done chan<- completion) {
	rec := report.Tasks[pkg.Name]
	rec.Status = types.TaskRunning
	rec.Start = time.Now()
	s.taskStarted(ctx, cmd, *rec)

	go func() {
		err := s.runTask(ctx, cmd, pkg)
		done <- completion{name: pkg.Name, end: time.Now(), err: err}
	}()
}

// runUnordered starts every package at once and waits for all of them.
// Each goroutine owns its task record until Wait returns. Run-forever
// tasks only end on cancellation, so the jobs cap does not apply to them.
func (s *Scheduler) runUnordered(ctx context.Context, cmd PackageCommand, pkgs []*workspace.Package, report *Report) error {
	forever := cmd.Runtime() == types.RuntimeRunForever

	// tasks get ctx, not the group context, so one failure does not
	// cancel the others
	g, _ := NewSafeGroup(ctx, s.logger)
	if !forever {
		g.SetLimit(s.jobs)
	}

	for _, pkg := range pkgs {
		if ctx.Err() != nil {
			break
		}
		pkg := pkg
		rec := report.Tasks[pkg.Name]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec.Status = types.TaskRunning
			rec.Start = time.Now()
			s.taskStarted(ctx, cmd, *rec)

			rec.Err = s.runTask(ctx, cmd, pkg)
			rec.End = time.Now()
			if forever && stoppedByCancel(ctx, rec.Err) {
				rec.Err = nil
			}
			rec.Status = types.TaskFinished
			if rec.Err != nil {
				rec.Status = types.TaskFailed
			}
			s.taskFinished(ctx, cmd, *rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, pkg := range pkgs {
		if rec := report.Tasks[pkg.Name]; rec.Err != nil {
			report.fail(pkg.Name, rec.Err)
			break
		}
	}
	return ctx.Err()
}

// stoppedByCancel reports whether err is the task ending because ctx was
// canceled
func stoppedByCancel(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// runTask runs one package task, converting a panic into an error
func (s *Scheduler) runTask(ctx context.Context, cmd PackageCommand, pkg *workspace.Package) (err error) {
	log := logger.WithContext(ctx, s.logger).WithPackage(pkg.Name)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Task panic recovered",
				logger.WithField("panic", r),
				logger.WithField("stack_trace", string(debug.Stack())))
			err = fmt.Errorf("task panic: %v", r)
		}
	}()

	log.Debug("Starting " + cmd.Name())
	err = cmd.RunPackage(depotctx.WithPackage(ctx, pkg.Name), pkg)
	if err != nil {
		log.Error(cmd.Name()+" failed", logger.WithError(err))
		return err
	}
	log.Debug("Finished " + cmd.Name())
	return nil
}

func (s *Scheduler) runWorkspace(ctx context.Context, cmd WorkspaceCommand) (err error) {
	log := logger.WithContext(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workspace step panic: %v", r)
		}
	}()

	log.Debug("Running workspace step")
	if err = cmd.RunWorkspace(ctx, s.ws); err != nil {
		log.Error(cmd.Name()+" failed", logger.WithError(err))
	}
	return err
}

func (s *Scheduler) taskStarted(ctx context.Context, cmd Command, rec TaskRecord) {
	for _, n := range s.notifiers {
		n.TaskStarted(ctx, cmd.Name(), rec)
	}
}

func (s *Scheduler) taskFinished(ctx context.Context, cmd Command, rec TaskRecord) {
	for _, n := range s.notifiers {
		n.TaskFinished(ctx, cmd.Name(), rec)
	}
}

func (s *Scheduler) finish(ctx context.Context, report *Report) {
	report.End = time.Now()
	for _, n := range s.notifiers {
		n.RunFinished(ctx, report)
	}
}
