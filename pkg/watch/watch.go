// Package watch reports file changes under a directory tree using
// fsnotify
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/depot-build/depot/pkg/logger"
	"github.com/depot-build/depot/pkg/utils"
)

// DefaultSettleDelay is how long the watcher waits for a burst of events
// to end before reporting it
const DefaultSettleDelay = time.Second

// Handler receives the sorted, deduplicated paths that changed in one
// burst. Returning an error stops Run.
type Handler func(paths []string) error

// Watcher watches a directory tree recursively. New directories are
// picked up as they appear.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   logger.Logger
	root     string
	exclude  *utils.ExclusionMatcher
	include  *utils.PatternMatcher
	settling time.Duration
}

// Option configures a Watcher
type Option func(*Watcher)

// WithSettleDelay overrides DefaultSettleDelay
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) { w.settling = d }
}

// WithInclude reports only paths, relative to the root, matching m
func WithInclude(m *utils.PatternMatcher) Option {
	return func(w *Watcher) { w.include = m }
}

// WithExclude skips paths, relative to the root, excluded by m
func WithExclude(m *utils.ExclusionMatcher) Option {
	return func(w *Watcher) { w.exclude = m }
}

// New starts watching root
func New(root string, log logger.Logger, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsw,
		logger:   log,
		root:     root,
		settling: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return w, nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Debug("Watching directory", logger.WithField("path", path))
		return nil
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) excluded(path string) bool {
	return w.exclude != nil && w.exclude.IsExcluded(w.rel(path))
}

func (w *Watcher) wanted(path string) bool {
	if w.excluded(path) {
		return false
	}
	return w.include == nil || w.include.Match(w.rel(path))
}

// Run delivers batches of changed files to handler until ctx is canceled,
// handler fails or the watcher is closed. Removed files are not reported.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.settling)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				// gone again before we looked
				continue
			}
			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 && !w.excluded(event.Name) {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory",
							logger.WithField("path", event.Name), logger.WithError(err))
					}
				}
				continue
			}
			if !w.wanted(event.Name) {
				continue
			}

			pending[event.Name] = struct{}{}
			timer.Reset(w.settling)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})

			if err := handler(paths); err != nil {
				return err
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("File watcher overflowed, some changes may be missed")
				continue
			}
			return fmt.Errorf("file watcher error: %w", err)
		}
	}
}
