// Package watch re-runs a check when sources of a project change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before the
// callback runs.
const DefaultDebounce = 500 * time.Millisecond

// skipDirs are never descended into: build output and VCS metadata change
// on every run.
var skipDirs = map[string]struct{}{
	"target": {},
	".git":   {},
	".hg":    {},
}

// Watcher watches a project tree for changes to Rust sources and manifests.
type Watcher struct {
	root     string
	debounce time.Duration
	callback func(context.Context) error
	watcher  *fsnotify.Watcher
	errs     func(error)
}

// NewWatcher creates a watcher for every directory below root. callback is
// invoked once per burst of changes; errs receives watch and callback
// errors and may be nil.
func NewWatcher(root string, debounce time.Duration, callback func(context.Context) error, errs func(error)) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if errs == nil {
		errs = func(error) {}
	}
	w := &Watcher{root: absRoot, debounce: debounce, callback: callback, watcher: fw, errs: errs}
	if err := w.addTree(absRoot); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// каталог успели удалить
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skipDirs[d.Name()]; skip && path != dir {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Relevant reports whether a change to path should trigger a new check.
func Relevant(path string) bool {
	base := filepath.Base(path)
	switch base {
	case "Cargo.toml", "Cargo.lock", "owlsight.toml":
		return true
	}
	return strings.HasSuffix(base, ".rs")
}

// Run delivers debounced callbacks until ctx is done. The watcher is closed
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, skip := skipDirs[filepath.Base(event.Name)]; !skip {
						if err := w.addTree(event.Name); err != nil {
							w.errs(err)
						}
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if Relevant(event.Name) {
				debounceTimer.Reset(w.debounce)
				debounceCh = debounceTimer.C
			}

		case <-debounceCh:
			debounceCh = nil
			if err := w.callback(ctx); err != nil {
				w.errs(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.errs(err)

		case <-ctx.Done():
			debounceTimer.Stop()
			return ctx.Err()
		}
	}
}
