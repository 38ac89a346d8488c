// Package watch triggers debounced rebuilds when files under a content root
// change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// DefaultDebounce is the quiet period after the last change before a
// rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a directory tree.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   []string
	fsw      *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore drops events for the given paths, everything below them and
// their temporary siblings ("<path>.<suffix>"), such as an output directory
// or metrics file inside the content root.
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if d == "" {
				continue
			}
			if abs, err := filepath.Abs(d); err == nil {
				w.ignore = append(w.ignore, abs)
			}
		}
	}
}

// New starts watching root and every directory below it.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	w := &Watcher{root: abs, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w.fsw = fsw
	if err := w.addDirsRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fsw.Close() }

// Run calls rebuild after each burst of changes until ctx is done. Rebuilds
// never overlap; changes arriving during a rebuild queue exactly one more.
func (w *Watcher) Run(ctx context.Context, rebuild func(context.Context)) error {
	rebuildReq, trigger, stop := newDebouncer(w.debounce)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				slog.Info("Change detected; rebuilding site")
				rebuild(ctx)
			}
		}
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev, trigger)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// newDebouncer returns a request channel with room for one pending rebuild,
// a trigger that (re)arms the timer, and a stop function.
func newDebouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return rebuildReq, trigger, stop
}

func (w *Watcher) handleEvent(ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) || w.ignored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func (w *Watcher) ignored(p string) bool {
	for _, dir := range w.ignore {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) || strings.HasPrefix(p, dir+".") {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(p)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			slog.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent reports whether an event is for a hidden, swap or
// editor backup file.
func shouldIgnoreEvent(p string) bool {
	base := filepath.Base(p)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}
