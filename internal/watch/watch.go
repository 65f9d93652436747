// Package watch re-runs an action when the platform's directories change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/logging"
)

// PathsFunc returns the directories to watch. It is called on start and
// after every run so that new sites are picked up.
type PathsFunc func() ([]string, error)

// Func is the action run after changes settle.
type Func func(ctx context.Context) error

// Watcher debounces filesystem events into runs of a Func.
type Watcher struct {
	paths    PathsFunc
	debounce time.Duration
	ignore   []string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to stop.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore drops events for the given paths, for anything beneath them
// and for siblings sharing their name plus a "-" suffix, such as SQLite's
// -wal and -shm files. Empty paths are skipped.
func WithIgnore(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			w.ignore = append(w.ignore, absPath(p))
		}
	}
}

// New returns a watcher over the directories reported by paths.
func New(paths PathsFunc, opts ...Option) *Watcher {
	w := &Watcher{paths: paths, debounce: constants.WatchDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done, calling fn once per burst of changes.
// Errors from fn are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	logger := logging.FromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	watched := map[string]bool{}
	w.sync(ctx, fsw, watched)

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

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || w.ignored(event.Name) {
				continue
			}
			logger.Debug().
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("Platform change detected")
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Filesystem watcher error")

		case <-timer.C:
			pending = false
			if err := fn(ctx); err != nil {
				logger.Error().Err(err).Msg("Run after platform change failed")
			}
			w.sync(ctx, fsw, watched)
		}
	}
}

// sync adds new paths and drops ones no longer reported.
func (w *Watcher) sync(ctx context.Context, fsw *fsnotify.Watcher, watched map[string]bool) {
	logger := logging.FromContext(ctx)

	paths, err := w.paths()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list watch paths")
		return
	}

	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}

	var stale []string
	for p := range watched {
		if !want[p] {
			stale = append(stale, p)
		}
	}
	sort.Strings(stale)
	for _, p := range stale {
		_ = fsw.Remove(p)
		delete(watched, p)
	}

	for _, p := range paths {
		if watched[p] {
			continue
		}
		if err := fsw.Add(p); err != nil {
			logger.Debug().Err(err).Str("path", p).Msg("Failed to watch path")
			continue
		}
		watched[p] = true
		logger.Debug().Str("path", p).Msg("Watching directory")
	}
}

// ignored reports whether name is one of the ignored paths or belongs to one.
func (w *Watcher) ignored(name string) bool {
	if len(w.ignore) == 0 {
		return false
	}
	name = absPath(name)
	for _, p := range w.ignore {
		if name == p {
			return true
		}
		if rest, ok := strings.CutPrefix(name, p); ok && (rest[0] == os.PathSeparator || rest[0] == '-') {
			return true
		}
	}
	return false
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
