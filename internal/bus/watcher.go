package bus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher turns changes to <key>.json files in the store directory into
// OpExternal events, so a second process (another admin, site-cli migrate)
// is noticed without waiting for the next poll. Our own writes are reported
// too; subscribers treat that as a redundant refresh.
type FileWatcher struct {
	dir    string
	bus    *Bus
	logger *slog.Logger
}

// NewFileWatcher prepares a watcher for dir. Nothing is watched until Run.
func NewFileWatcher(dir string, b *Bus, logger *slog.Logger) *FileWatcher {
	if logger == nil {
		logger = b.logger
	}
	return &FileWatcher{dir: dir, bus: b, logger: logger}
}

// Run watches until ctx is cancelled.
func (fw *FileWatcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(fw.dir); err != nil {
		return fmt.Errorf("watching %s: %w", fw.dir, err)
	}
	fw.logger.Info("Watching store directory for external changes", "path", fw.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key, ok := keyFromPath(ev.Name)
			if !ok {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) {
				fw.bus.Publish(Event{Key: key, Op: OpExternal})
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("File watcher error", "error", err)
		}
	}
}

// keyFromPath maps "<dir>/blog_posts.json" to "blog_posts". Hidden temp files are skipped.
func keyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}
