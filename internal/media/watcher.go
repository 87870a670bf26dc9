package media

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for out-of-band media changes.
// kind is "media.added" or "media.removed".
type EventCallback func(kind, name string)

// Watch observes the media directory until ctx is cancelled and calls cb
// for files added or removed outside the API, so connected clients see
// attachment changes regardless of how they happened.
func Watch(ctx context.Context, store *Store, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(store.Root()); err != nil {
		return err
	}
	logger.Info("media: watcher started", slog.String("root", store.Root()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("media: watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				logger.Debug("media: added", slog.String("name", name))
				if cb != nil {
					cb("media.added", name)
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("media: removed", slog.String("name", name))
				if cb != nil {
					cb("media.removed", name)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("media: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
