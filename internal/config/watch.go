package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"water-quality-platform/pkg/logging"
)

// Watch monitors path and calls onChange with each successfully reloaded
// and validated Config. It runs until ctx is cancelled.
//
// A reload that fails to parse or validate is logged and skipped; the
// previous config stays active.
func Watch(ctx context.Context, path string, logger *logging.StructuredLogger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	logger = logger.With(logging.Fields{"path": path})
	logger.Info(ctx, "[CONFIG_WATCH] Watching configuration file", logging.Fields{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				logger.Error(ctx, "[CONFIG_RELOAD_ERROR] Reload failed, keeping previous configuration", logging.Fields{}, err)
				continue
			}

			logger.Info(ctx, "[CONFIG_RELOAD] Configuration reloaded", logging.Fields{
				"stations": len(cfg.Generator.Stations),
			})
			onChange(cfg)

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(ctx, "[CONFIG_WATCH_ERROR] Watcher error", logging.Fields{}, err)
		}
	}
}
