package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/state"
	"github.com/depot-build/depot/pkg/types"
	"github.com/depot-build/depot/pkg/validation"
	"github.com/depot-build/depot/pkg/workspace"
)

// ErrInvalidWorkspace is returned by validate when a package has errors
var ErrInvalidWorkspace = errors.New("workspace is invalid")

func (c *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspace packages, dependencies first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := c.loadWorkspace()
			if err != nil {
				return err
			}
			return c.runList(ws)
		},
	}
}

func (c *CLI) runList(ws *workspace.Workspace) error {
	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTARGET\tPLATFORM\tDIR\tDEPENDS ON")

	for _, pkg := range ws.DisplayOrder() {
		var deps []string
		for _, dep := range pkg.GetDependencyNames() {
			if _, ok := ws.Package(dep); ok {
				deps = append(deps, dep)
			}
		}
		dir, err := filepath.Rel(ws.Root, pkg.Dir)
		if err != nil {
			dir = pkg.Dir
		}
		depList := "-"
		if len(deps) > 0 {
			depList = strings.Join(deps, ", ")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", pkg.Name, pkg.Target, pkg.Platform, dir, depList)
	}

	return w.Flush()
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [command...]",
		Short: "Show the outcome of the last runs",
		Long:  `Display the last recorded task of each package, for every command or the named ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.loadWorkspace()
			if err != nil {
				return err
			}
			return c.runStatus(ws, state.NewManager(ws.StateDir, c.logger), args)
		},
	}
}

func (c *CLI) runStatus(ws *workspace.Workspace, sm *state.Manager, names []string) error {
	if len(names) == 0 {
		var err error
		if names, err = sm.Commands(); err != nil {
			return fmt.Errorf("failed to discover runs: %w", err)
		}
	}
	if len(names) == 0 {
		c.console.Info("No runs recorded yet")
		return nil
	}

	for i, name := range names {
		if i > 0 {
			c.console.Println()
		}
		if run, err := sm.LastRun(name); err == nil {
			c.console.Println(runSummary(run))
		} else {
			c.console.Println(color.New(color.Bold).Sprint(name))
		}

		states, err := sm.DiscoverStates(name)
		if err != nil {
			return fmt.Errorf("failed to discover states: %w", err)
		}
		if err := c.printStates(c.pruneStates(ws, sm, states)); err != nil {
			return err
		}
	}
	return nil
}

// pruneStates drops and deletes the records of packages that are no
// longer part of the workspace
func (c *CLI) pruneStates(ws *workspace.Workspace, sm *state.Manager, states []*state.PackageState) []*state.PackageState {
	kept := states[:0]
	for _, s := range states {
		if _, ok := ws.Package(s.Package); ok {
			kept = append(kept, s)
			continue
		}
		if err := sm.RemoveState(s.Command, s.Package); err != nil {
			c.logger.Warn("Failed to remove stale state", logger.WithField("package", s.Package), logger.WithError(err))
			continue
		}
		c.logger.Debug("Removed state of deleted package", logger.WithField("package", s.Package))
	}
	return kept
}

func runSummary(run *state.RunState) string {
	outcome := color.GreenString("succeeded")
	switch {
	case run.Success:
	case run.Failed != "":
		outcome = color.RedString("failed on %s", run.Failed)
	default:
		outcome = color.RedString("failed")
	}
	return fmt.Sprintf("%s %s at %s in %s (%d/%d packages)",
		color.New(color.Bold).Sprint(run.Command), outcome,
		run.Start.Format("2006-01-02 15:04:05"), run.Duration.Round(time.Millisecond),
		run.Finished, run.Total)
}

func (c *CLI) printStates(states []*state.PackageState) error {
	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tSTATUS\tLAST RUN\tDURATION\tRUNS\tFAILURES")

	for _, s := range states {
		status := string(s.Status)
		statusColor := color.WhiteString(status)
		switch {
		case s.Interrupted():
			statusColor = color.YellowString("interrupted")
		case s.Status == types.TaskFinished:
			statusColor = color.GreenString(status)
		case s.Status == types.TaskFailed:
			statusColor = color.RedString(status)
		case s.Status == types.TaskRunning:
			statusColor = color.YellowString(status)
		}

		lastRun, duration := "-", "-"
		if !s.Start.IsZero() {
			lastRun = s.Start.Format("15:04:05")
		}
		if s.Duration > 0 {
			duration = s.Duration.Round(time.Millisecond).String()
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.Package, statusColor, lastRun, duration, s.RunCount, s.FailureCount)
	}

	return w.Flush()
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check package names, entry points and workspace dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := c.loadWorkspace()
			if err != nil {
				return err
			}
			return c.runValidate(ws)
		},
	}
}

func (c *CLI) runValidate(ws *workspace.Workspace) error {
	result := validation.ValidateWorkspace(ws)
	for _, e := range result.Errors {
		if e.Level == validation.ValidationLevelError {
			c.console.Error("%s", e.Error())
		} else {
			c.console.Warn("%s", e.Error())
		}
	}

	errs, warnings := result.Count(validation.ValidationLevelError), result.Count(validation.ValidationLevelWarning)
	if !result.Valid {
		return fmt.Errorf("%w: %d errors, %d warnings", ErrInvalidWorkspace, errs, warnings)
	}
	c.console.Success("%d packages valid (%d warnings)", len(ws.Packages), warnings)
	return nil
}
