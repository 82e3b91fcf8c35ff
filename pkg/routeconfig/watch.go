package routeconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/navkit/pkg/router"
)

// Watcher reloads a local route file whenever it changes. Events within
// the debounce window are coalesced into one reload.
type Watcher struct {
	path     string
	opts     []Option
	logger   *slog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher
	started  atomic.Bool
}

// NewWatcher watches the file at path. The parent directory is watched
// so that editors which save by renaming are still observed.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("routeconfig: resolve %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("routeconfig: create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close() //nolint:errcheck
		return nil, fmt.Errorf("routeconfig: watch %s: %w", filepath.Dir(abs), err)
	}

	o := buildOptions(opts)
	return &Watcher{
		path:     abs,
		opts:     opts,
		logger:   o.logger.With("file", abs),
		debounce: o.debounce,
		fsw:      fsw,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run blocks until ctx is cancelled, calling onChange with every
// successfully decoded reload. Files that fail to decode are logged and
// skipped, so the last good routes stay in effect. Run may be called once.
func (w *Watcher) Run(ctx context.Context, onChange func([]router.RouteDefinition)) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("routeconfig: Run called more than once")
	}

	var (
		mu     sync.Mutex
		timer  *time.Timer
		reload sync.Mutex
	)

	fire := func() {
		reload.Lock()
		defer reload.Unlock()
		if ctx.Err() != nil {
			return
		}
		defs, err := Load(ctx, FileSource{Path: w.path}, w.opts...)
		if err != nil {
			w.logger.Warn("route file reload failed", "error", err)
			return
		}
		w.logger.Info("route file reloaded", "routes", len(router.Flatten(defs)))
		onChange(defs)
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing file watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("routeconfig: watcher event channel closed")
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}

			mu.Lock()
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("routeconfig: watcher error channel closed")
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}
