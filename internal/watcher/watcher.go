// Package watcher turns filesystem events under open projects into
// debounced change notifications.
package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/symindex/internal/logging"
	"github.com/dshills/symindex/pkg/types"
)

const logTopic = "watcher"

// ErrClosed is returned when watching after Close
var ErrClosed = errors.New("watcher closed")

// ChangeHandler is called once per quiet period for a project with changes
type ChangeHandler func(root string)

// Config contains watcher configuration
type Config struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMs int  `mapstructure:"debounce_ms"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 500,
	}
}

// projectWatch is the watch state of one project
type projectWatch struct {
	root string
	dirs map[string]struct{}
}

// Watcher watches the directories of open projects
type Watcher struct {
	logger   *logging.Logger
	fs       *fsnotify.Watcher
	debounce *rootDebouncer

	mu       sync.Mutex
	projects map[string]*projectWatch
	owners   map[string]map[string]struct{} // watched dir -> project roots
	closed   bool

	wg sync.WaitGroup
}

// New creates a watcher and starts its event loop
func New(config Config, logger *logging.Logger, handler ChangeHandler) (*Watcher, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if config.DebounceMs <= 0 {
		config.DebounceMs = DefaultConfig().DebounceMs
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		logger:   logger,
		fs:       fsw,
		debounce: newRootDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, handler),
		projects: make(map[string]*projectWatch),
		owners:   make(map[string]map[string]struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Watch starts watching the root and extra directories of p. Watching a
// project again replaces its directory set.
func (w *Watcher) Watch(p types.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	root := filepath.Clean(p.Root)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if existing, ok := w.projects[root]; ok {
		w.unwatchLocked(existing)
	}

	pw := &projectWatch{
		root: root,
		dirs: make(map[string]struct{}),
	}
	w.projects[root] = pw

	for _, dir := range p.ScanDirs() {
		w.addRecursiveLocked(pw, dir)
	}

	w.logger.Logf(logTopic, "Watching %s (%d directories)", root, len(pw.dirs))
	return nil
}

// Unwatch stops watching root and drops any pending notification for it
func (w *Watcher) Unwatch(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pw, ok := w.projects[filepath.Clean(root)]; ok {
		w.unwatchLocked(pw)
	}
}

// Watching returns the roots currently watched, sorted
func (w *Watcher) Watching() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	roots := make([]string, 0, len(w.projects))
	for root := range w.projects {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Close stops the event loop and every pending notification
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.debounce.stop()
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) unwatchLocked(pw *projectWatch) {
	w.debounce.drop(pw.root)
	for dir := range pw.dirs {
		roots := w.owners[dir]
		delete(roots, pw.root)
		if len(roots) == 0 {
			delete(w.owners, dir)
			_ = w.fs.Remove(dir)
		}
	}
	delete(w.projects, pw.root)
}

// addRecursiveLocked watches dir and every non-hidden directory below it.
// A symlinked dir is followed; watches are keyed by the path as given.
func (w *Watcher) addRecursiveLocked(pw *projectWatch, dir string) {
	dir = filepath.Clean(dir)
	_ = types.WalkScanDir(dir, func(path, _ string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debugf(logTopic, "Skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if _, ok := w.owners[path]; !ok {
			if err := w.fs.Add(path); err != nil {
				// Non-fatal, continue
				w.logger.Warnf(logTopic, "Failed to watch %s: %v", path, err)
				return nil
			}
			w.owners[path] = make(map[string]struct{})
		}
		w.owners[path][pw.root] = struct{}{}
		pw.dirs[path] = struct{}{}
		return nil
	})
}

// forgetDirLocked drops a watched directory that no longer exists.
// fsnotify has already removed the watch itself.
func (w *Watcher) forgetDirLocked(dir string) {
	roots, ok := w.owners[dir]
	if !ok {
		return
	}
	for root := range roots {
		if pw := w.projects[root]; pw != nil {
			delete(pw.dirs, dir)
		}
	}
	delete(w.owners, dir)
}

// processEvents processes file system events
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warnf(logTopic, "Watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	roots := w.owners[filepath.Dir(event.Name)]
	if len(roots) == 0 {
		return
	}

	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		w.forgetDirLocked(event.Name)
	}

	isNewDir := false
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			isNewDir = true
		}
	}

	for root := range roots {
		pw := w.projects[root]
		if pw == nil {
			continue
		}
		if isNewDir {
			w.addRecursiveLocked(pw, event.Name)
		}
		w.debounce.touch(root)
	}
}
