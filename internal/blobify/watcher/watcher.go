// Package watcher re-validates .blobify files as they change on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

// Watcher monitors a directory tree and keeps a workspace Index current.
// Creating or writing a matching file re-analyzes it; removing or renaming
// it drops it from the index.
type Watcher struct {
	watcher *fsnotify.Watcher
	index   *workspace.Index
	logger  *slog.Logger

	// OnChange, if set, is called with the path of every file that was
	// re-analyzed or removed.
	OnChange func(path string)
}

// New creates a Watcher for root. Every directory under root is watched
// except the configured excluded ones.
func New(root string, idx *workspace.Index, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	w := &Watcher{
		watcher: fw,
		index:   idx,
		logger:  logger,
	}

	if err := w.addRecursive(root, false); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if !w.isExcluded(event.Name) {
				if err := w.addRecursive(event.Name, true); err != nil {
					w.logger.Warn("failed to watch directory", "path", event.Name, "error", err)
				}
			}
			return
		}
		w.analyzeFile(event.Name)
	case event.Has(fsnotify.Write):
		w.analyzeFile(event.Name)
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if _, ok := w.index.Get(event.Name); ok {
			w.index.Remove(event.Name)
			w.logger.Debug("removed", "path", event.Name)
			w.notify(event.Name)
		}
	}
}

func (w *Watcher) analyzeFile(path string) {
	if !w.index.Config().MatchesExtension(path) {
		return
	}
	e, err := w.index.UpdateFile(path)
	if err != nil {
		w.logger.Warn("failed to analyze file", "path", path, "error", err)
		return
	}
	w.logger.Debug("analyzed", "path", path, "diagnostics", len(e.Diagnostics))
	w.notify(path)
}

func (w *Watcher) notify(path string) {
	if w.OnChange != nil {
		w.OnChange(path)
	}
}

// addRecursive watches path and the directories below it. With analyze set,
// files found on the way are analyzed too: inside a new directory their
// Create events may have fired before the watch existed.
func (w *Watcher) addRecursive(path string, analyze bool) error {
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && w.isExcluded(p) {
				return filepath.SkipDir
			}
			return w.watcher.Add(p)
		}
		if analyze {
			w.analyzeFile(p)
		}
		return nil
	})
}

func (w *Watcher) isExcluded(path string) bool {
	return w.index.Config().IsExcludedDir(filepath.Base(path))
}
