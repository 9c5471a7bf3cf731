// Package types provides core types shared across depot packages
package types

import (
	"fmt"
	"strings"
)

// Target represents what kind of artifact a package produces
type Target string

const (
	TargetLib    Target = "lib"
	TargetSite   Target = "site"
	TargetScript Target = "script"
)

// IsLib reports whether the package is a library
func (t Target) IsLib() bool { return t == TargetLib }

// IsSite reports whether the package is a website
func (t Target) IsSite() bool { return t == TargetSite }

// IsScript reports whether the package is a bundled script
func (t Target) IsScript() bool { return t == TargetScript }

// ParseTarget parses a target name as written in a manifest
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetLib, TargetSite, TargetScript:
		return t, nil
	default:
		return "", fmt.Errorf("unknown target: %q", s)
	}
}

// Platform represents where a package's code runs
type Platform string

const (
	PlatformBrowser Platform = "browser"
	PlatformNode    Platform = "node"
)

// ParsePlatform parses a platform name as written in a manifest
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformBrowser, PlatformNode:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform: %q", s)
	}
}

// CommandRuntime selects how the scheduler runs a per-package command
type CommandRuntime int

const (
	// RuntimeWaitForDependencies starts a package only after every package
	// it depends on has finished.
	RuntimeWaitForDependencies CommandRuntime = iota
	// RuntimeRunImmediately starts every package at once.
	RuntimeRunImmediately
	// RuntimeRunForever starts every package at once; tasks are expected to
	// run until their context is canceled (watch mode).
	RuntimeRunForever
)

// Ordered reports whether the runtime respects the dependency graph
func (r CommandRuntime) Ordered() bool {
	return r == RuntimeWaitForDependencies
}

func (r CommandRuntime) String() string {
	switch r {
	case RuntimeWaitForDependencies:
		return "wait-for-dependencies"
	case RuntimeRunImmediately:
		return "run-immediately"
	case RuntimeRunForever:
		return "run-forever"
	default:
		return fmt.Sprintf("runtime(%d)", int(r))
	}
}

// TaskStatus is the per-run state of a package task
type TaskStatus string

const (
	TaskQueued   TaskStatus = "queued"
	TaskRunning  TaskStatus = "running"
	TaskFinished TaskStatus = "finished"
	TaskFailed   TaskStatus = "failed"
)

// IsTerminal reports whether the task can no longer change state
func (s TaskStatus) IsTerminal() bool {
	return s == TaskFinished || s == TaskFailed
}

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
