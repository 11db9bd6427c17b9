package push

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ManifestWatcher reloads a manifest file when it changes on disk
type ManifestWatcher struct {
	path     string
	apply    func(context.Context, *Manifest)
	debounce time.Duration
	logger   *zap.Logger
}

// NewManifestWatcher creates a watcher calling apply with each valid reload
func NewManifestWatcher(path string, apply func(context.Context, *Manifest), logger *zap.Logger) *ManifestWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManifestWatcher{
		path:     filepath.Clean(path),
		apply:    apply,
		debounce: 200 * time.Millisecond,
		logger:   logger,
	}
}

// Run watches until ctx is done. The parent directory is watched so editors
// that replace the file by rename are still seen.
func (w *ManifestWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("manifest watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("manifest watcher: %w", err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("manifest watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			m, err := LoadManifest(w.path)
			if err != nil {
				w.logger.Warn("manifest reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.apply(ctx, m)
		}
	}
}
