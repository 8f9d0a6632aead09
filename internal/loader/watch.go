package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultWatchDebounce absorbs the burst of events editors emit per save.
const defaultWatchDebounce = 200 * time.Millisecond

// Watch loads the module at path, passes the result to fn, then reloads it
// and calls fn again every time the file is written, created or renamed
// into place. It blocks until ctx is done and returns nil, or returns an
// error if the watcher cannot be set up. Watching requires the module to
// live on the OS filesystem.
func (l *Loader) Watch(ctx context.Context, path string, fn func(*Module, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("loader: resolve watch path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("loader: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors commonly replace the file via rename,
	// which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("loader: watch %s: %w", filepath.Dir(abs), err)
	}

	fn(l.Load(abs))

	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(l.watchDebounce)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			l.logger.Debug("module changed, reloading", "path", abs)
			fn(l.Load(abs))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("module watcher error", "path", abs, "error", err.Error())
		}
	}
}
