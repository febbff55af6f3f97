// Package watch marks a script reload as pending when module files change.
//
// The watcher goroutine only records changes. The host thread asks for
// them with Pending, so reloads always run where every other guest call
// runs.
package watch

import (
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Target is a directory and the file names in it that count.
type Target struct {
	Dir     string
	Pattern *regexp.Regexp
}

// Watcher watches module directories.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	targets  []Target
	debounce time.Duration
	logger   *zap.Logger
	now      func() time.Time

	changed map[string]bool
	last    time.Time

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long changes must settle before Pending reports
// them.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New starts watching every target directory. A directory that cannot be
// watched is logged and skipped.
func New(targets []Target, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: 500 * time.Millisecond,
		logger:   zap.NewNop(),
		now:      time.Now,
		changed:  make(map[string]bool),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, t := range targets {
		dir, err := filepath.Abs(t.Dir)
		if err != nil {
			dir = t.Dir
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("not watching plugin directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.targets = append(w.targets, Target{Dir: dir, Pattern: t.Pattern})
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string {
	dirs := make([]string, len(w.targets))
	for i, t := range w.targets {
		dirs[i] = t.Dir
	}
	return dirs
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
				ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				w.note(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// note records a change to path if a target claims it.
func (w *Watcher) note(path string) {
	dir, name := filepath.Split(path)
	dir = filepath.Clean(dir)
	for _, t := range w.targets {
		if t.Dir != dir || !t.Pattern.MatchString(name) {
			continue
		}
		w.mu.Lock()
		w.changed[path] = true
		w.last = w.now()
		w.mu.Unlock()
		w.logger.Debug("module file changed", zap.String("file", path))
		return
	}
}

// Pending returns the changed files once no change has been seen for the
// debounce period, and forgets them. It returns nil while changes are
// still settling or when nothing changed.
func (w *Watcher) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.changed) == 0 || w.now().Sub(w.last) < w.debounce {
		return nil
	}
	files := make([]string, 0, len(w.changed))
	for f := range w.changed {
		files = append(files, f)
	}
	sort.Strings(files)
	w.changed = make(map[string]bool)
	return files
}

// Close stops watching. Close is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}
