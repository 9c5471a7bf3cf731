package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle indicates that nodes depend on each other in a loop.
var ErrCycle = errors.New("dependency cycle detected")

// CycleError names the members of a dependency cycle.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	if e == nil || len(e.Members) == 0 {
		return ErrCycle.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(e.Members, " <-> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }
