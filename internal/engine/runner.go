package engine

import (
	"context"
	"fmt"

	depotctx "github.com/depot-build/depot/pkg/context"
	"github.com/depot-build/depot/pkg/graph"
	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/workspace"
)

type commandNode struct {
	cmd  Command
	deps []string
}

func (n commandNode) GetName() string { return n.cmd.Name() }
func (n commandNode) GetDependencyNames() []string { return n.deps }

// Plan lists the commands to run for root, dependencies first. Commands
// are identified by name, so a command reached along several paths runs
// once.
func Plan(root Command) ([]Command, error) {
	byName := make(map[string]Command)
	var nodes []graph.Node

	var visit func(cmd Command)
	visit = func(cmd Command) {
		if _, seen := byName[cmd.Name()]; seen {
			return
		}
		byName[cmd.Name()] = cmd

		var deps []Command
		if dc, ok := cmd.(DependentCommand); ok {
			deps = dc.Deps()
		}
		node := commandNode{cmd: cmd}
		for _, dep := range deps {
			node.deps = append(node.deps, dep.Name())
		}
		nodes = append(nodes, node)

		for _, dep := range deps {
			visit(dep)
		}
	}
	visit(root)

	g := graph.Build(nodes)
	if err := g.Cycles(nil); err != nil {
		return nil, fmt.Errorf("command dependencies: %w", err)
	}

	names := g.Order(g.Names())
	plan := make([]Command, len(names))
	for i, name := range names {
		plan[i] = byName[name]
	}
	return plan, nil
}

// Runner runs a command after the commands it depends on
type Runner struct {
	scheduler *Scheduler
	logger    logger.Logger
}

// NewRunner creates a runner on top of a scheduler
func NewRunner(s *Scheduler) *Runner {
	return &Runner{scheduler: s, logger: s.logger}
}

// Run executes every command of Plan(cmd) over roots, in order, sharing
// one run id. It stops at the first unsuccessful command and returns an
// error wrapping ErrRunFailed. The reports of the commands that ran are
// returned either way.
func (r *Runner) Run(ctx context.Context, cmd Command, roots []*workspace.Package) ([]*Report, error) {
	plan, err := Plan(cmd)
	if err != nil {
		return nil, err
	}

	if !depotctx.HasRunID(ctx) {
		ctx = depotctx.WithRunID(ctx, depotctx.GenerateRunID())
	}

	reports := make([]*Report, 0, len(plan))
	for _, c := range plan {
		r.logger.Debug("Running command", logger.WithField("command", c.Name()),
			logger.WithField("run_id", depotctx.GetRunID(ctx)))

		report, err := r.scheduler.Run(ctx, c, roots)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
		if !report.Success {
			return reports, report.Failure()
		}
	}
	return reports, nil
}
