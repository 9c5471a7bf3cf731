package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/depot-build/depot/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// SafeGroup wraps errgroup.Group so that a panicking goroutine becomes an
// error instead of crashing depot
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a SafeGroup. The returned context is canceled when
// any goroutine returns an error.
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{
		group:  g,
		logger: log,
	}, ctx
}

// Go runs fn in a new goroutine with panic recovery
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() error {
		return sg.protect(fn)
	})
}

// SetLimit caps the number of goroutines running at once. n <= 0 means
// no cap.
func (sg *SafeGroup) SetLimit(n int) {
	if n <= 0 {
		n = -1
	}
	sg.group.SetLimit(n)
}

// Wait blocks until all goroutines have returned and yields the first
// error
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}

func (sg *SafeGroup) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			sg.logger.Error("Goroutine panic recovered",
				logger.WithField("panic", r),
				logger.WithField("stack_trace", string(debug.Stack())))
			err = fmt.Errorf("goroutine panic: %v", r)
		}
	}()
	return fn()
}
