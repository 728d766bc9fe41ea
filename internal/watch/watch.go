// Package watch reruns generation when source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/cvbuilder/internal/logfields"
)

// DefaultDebounce collapses bursts of editor writes into one run.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc regenerates outputs. Errors are logged; watching continues.
type RunFunc func(ctx context.Context) error

// Watcher monitors source files and directories and debounces change events
// into calls of a RunFunc. Runs never overlap.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dirs     map[string]bool
	files    map[string]bool
	run      RunFunc
	debounce time.Duration
	logger   *slog.Logger
}

// New watches every path in paths. Directories are watched for changes to
// their entries, files through their parent directory. Paths that do not
// exist yet are watched through their nearest existing parent.
func New(paths []string, run RunFunc, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if run == nil {
		return nil, errors.New("watch: run func is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		dirs:     make(map[string]bool),
		files:    make(map[string]bool),
		run:      run,
		debounce: debounce,
		logger:   logger,
	}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve watch path: %w", err)
	}
	fi, err := os.Stat(abs)
	switch {
	case err == nil && fi.IsDir():
		w.dirs[abs] = true
		return w.watchDir(abs)
	case err == nil || errors.Is(err, fs.ErrNotExist):
		w.files[abs] = true
		dir := filepath.Dir(abs)
		for {
			if _, statErr := os.Stat(dir); statErr == nil {
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
		return w.watchDir(dir)
	default:
		return fmt.Errorf("failed to stat watch path %s: %w", abs, err)
	}
}

func (w *Watcher) watchDir(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

// rewatch re-adds pending paths at or below a newly created directory so the
// nearest existing ancestor moves down toward them.
func (w *Watcher) rewatch(dir string) {
	prefix := dir + string(filepath.Separator)
	for f := range w.files {
		if f != dir && !strings.HasPrefix(f, prefix) {
			continue
		}
		if err := w.add(f); err != nil {
			w.logger.Warn("Failed to rewatch path", logfields.SourcePath(f), logfields.Error(err))
		}
	}
}

// Paths lists the watched directories and files.
func (w *Watcher) Paths() []string {
	out := make([]string, 0, len(w.dirs)+len(w.files))
	for d := range w.dirs {
		out = append(out, d)
	}
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// relevant reports whether an event path affects generation.
func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if w.files[name] || w.dirs[name] {
		return true
	}
	return w.dirs[filepath.Dir(name)]
}

// Run blocks until ctx is done, calling the RunFunc once per debounced burst
// of relevant events. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					w.rewatch(event.Name)
				}
			}
			if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
				continue
			}
			w.logger.Debug("Source change detected",
				logfields.SourcePath(event.Name),
				slog.String("op", event.Op.String()))
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true
		case <-timer.C:
			pending = false
			w.logger.Info("Regenerating after source change")
			if err := w.run(ctx); err != nil {
				w.logger.Error("Regeneration failed", logfields.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}
