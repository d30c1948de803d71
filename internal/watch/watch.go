// Package watch enqueues job files as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/discovery"
	"github.com/five82/avsbatch/internal/logging"
)

// DefaultDebounce is how long a job file must stay quiet before it is loaded.
const DefaultDebounce = 500 * time.Millisecond

// Handler receives the jobs defined by a newly seen job file.
type Handler func(path string, specs []config.JobSpec) error

// Watcher loads every job file created in a directory and hands its jobs to
// a Handler. Each file is handed over once; a file that fails to load is
// retried on its next write.
type Watcher struct {
	dir      string
	handle   Handler
	debounce time.Duration
	existing bool
	log      *logging.RunLogger
	seen     map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a changed file is loaded.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithExisting also loads the job files already in the directory at start.
func WithExisting() Option {
	return func(w *Watcher) { w.existing = true }
}

// WithRunLogger sets the per-run log file.
func WithRunLogger(log *logging.RunLogger) Option {
	return func(w *Watcher) { w.log = log }
}

// New creates a watcher for dir.
func New(dir string, handle Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		handle:   handle,
		debounce: DefaultDebounce,
		seen:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", w.dir, err)
	}
	w.log.Info("Watching %s for job files", w.dir)

	if w.existing {
		files, err := discovery.FindJobFiles(w.dir)
		if err != nil {
			return err
		}
		for _, path := range files {
			w.load(path)
		}
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !discovery.IsJobFile(filepath.Base(event.Name)) || w.seen[event.Name] {
				continue
			}
			logging.Debug("job file changed", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			clear(pending)
			sort.Strings(paths)
			for _, path := range paths {
				w.load(path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("job file watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) load(path string) {
	if w.seen[path] {
		return
	}
	specs, err := config.LoadJobFile(path)
	if err != nil {
		w.log.Warn("Skipping job file %s: %v", path, err)
		logging.Warn("cannot load job file", "path", path, "error", err)
		return
	}
	w.seen[path] = true
	if err := w.handle(path, specs); err != nil {
		w.log.Error("Cannot queue jobs from %s: %v", path, err)
		return
	}
	w.log.Info("Queued %d job(s) from %s", len(specs), path)
}
