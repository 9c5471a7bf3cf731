// Package engine runs depot commands across the packages of a workspace.
//
// A Scheduler runs one command over a set of root packages and everything
// they depend on. Ordered commands start a package only once every package
// it depends on has finished; unordered commands start all packages at
// once. A Runner resolves the commands a command depends on and runs each
// of them once, dependencies first.
package engine

// The implementation is split across files:
// - interfaces.go: command and notifier interfaces
// - scheduler.go: ordered and unordered package scheduling
// - report.go: per-run results
// - runner.go: the command dependency graph
// - safegroup.go: panic-safe concurrency utilities
