// ABOUTME: Hot-reloading template matcher backed by fsnotify
// ABOUTME: Swaps the whole template set on file change and keeps the old set on bad edits
package templates

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay lets editors finish writing before the file is read.
const reloadDelay = 100 * time.Millisecond

// Watcher serves template scoring from a file that may change at runtime.
type Watcher struct {
	path    string
	logger  *zap.Logger
	current atomic.Pointer[Matcher]
	fsw     *fsnotify.Watcher
}

// NewWatcher loads path and starts watching its directory. Call Run to
// process change events and Close to release the watch.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	set, err := LoadTemplateSet(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory so atomic-rename saves are seen.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch templates directory: %w", err)
	}

	w := &Watcher{path: filepath.Clean(path), logger: logger, fsw: fsw}
	w.current.Store(NewMatcher(set))
	logger.Info("template watcher initialized", zap.String("path", path), zap.Ints("stages", set.Stages()))
	return w, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reloadDelay):
			}
			w.Reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

// Reload re-reads the file. A file that fails to parse leaves the current
// set in place.
func (w *Watcher) Reload() bool {
	set, err := LoadTemplateSet(w.path)
	if err != nil {
		w.logger.Error("template reload failed, keeping previous set", zap.String("path", w.path), zap.Error(err))
		return false
	}
	w.current.Store(NewMatcher(set))
	w.logger.Info("templates reloaded", zap.String("path", w.path), zap.Ints("stages", set.Stages()))
	return true
}

// Close stops watching the file.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Matcher returns the matcher for the currently loaded set.
func (w *Watcher) Matcher() *Matcher {
	return w.current.Load()
}

func (w *Watcher) ScoreStage(text string, stage int) int {
	return w.Matcher().ScoreStage(text, stage)
}

func (w *Watcher) DetectStage(text string) (int, bool) {
	return w.Matcher().DetectStage(text)
}

func (w *Watcher) ValidateForStage(text string, stage int) Validation {
	return w.Matcher().ValidateForStage(text, stage)
}
