// Package context carries run-scoped tracing values through a context.Context
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Unexported struct pointers prevent key collisions.
var (
	runIDKey     = &struct{}{}
	commandKey   = &struct{}{}
	packageKey   = &struct{}{}
	startTimeKey = &struct{}{}
)

const (
	unknownRun     = "unknown-run"
	unknownCommand = "unknown-command"
)

// WithRunID tags the context with a run ID, generating one when empty
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id
	}
	return unknownRun
}

// HasRunID reports whether a run ID was set
func HasRunID(ctx context.Context) bool {
	return GetRunID(ctx) != unknownRun
}

// WithCommand tags the context with the command being run
func WithCommand(parent context.Context, command string) context.Context {
	return context.WithValue(parent, commandKey, command)
}

// GetCommand retrieves the command name from context
func GetCommand(ctx context.Context) string {
	if cmd, ok := ctx.Value(commandKey).(string); ok && cmd != "" {
		return cmd
	}
	return unknownCommand
}

// WithPackage tags the context with the package a task operates on
func WithPackage(parent context.Context, name string) context.Context {
	return context.WithValue(parent, packageKey, name)
}

// GetPackage retrieves the package name from context, or ""
func GetPackage(ctx context.Context) string {
	name, _ := ctx.Value(packageKey).(string)
	return name
}

// WithStartTime records when the operation started
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the start time, or the zero time when unset
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration returns the time elapsed since the recorded start, or 0
func GetDuration(ctx context.Context) time.Duration {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// EnrichContext prepares a context for a new run of command
func EnrichContext(parent context.Context, command string) context.Context {
	ctx := parent
	if !HasRunID(ctx) {
		ctx = WithRunID(ctx, "")
	}
	ctx = WithCommand(ctx, command)
	return WithStartTime(ctx, time.Now())
}

// TracingFields returns the tracing values for structured logging
func TracingFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{
		"run_id":  GetRunID(ctx),
		"command": GetCommand(ctx),
	}
	if name := GetPackage(ctx); name != "" {
		fields["package"] = name
	}
	if d := GetDuration(ctx); d > 0 {
		fields["duration_ms"] = d.Milliseconds()
	}
	return fields
}
