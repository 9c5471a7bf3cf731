package engine

import "errors"

var (
	// ErrRunFailed indicates a package task or workspace step failed
	ErrRunFailed = errors.New("run failed")

	// ErrInvalidCommand indicates a command that is neither a package nor
	// a workspace command
	ErrInvalidCommand = errors.New("command has nothing to run")

	// ErrStalled indicates queued packages that can never become eligible
	ErrStalled = errors.New("scheduler stalled with queued packages")
)
