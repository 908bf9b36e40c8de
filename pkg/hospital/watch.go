package hospital

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/vitalink/platform/pkg/common/logger"
)

// Watch monitors the hospital config file and calls onChange with the newly
// loaded configuration each time the file is written. It runs until ctx is
// cancelled. A reload that fails validation is logged and the previous
// configuration stays active.
func Watch(ctx context.Context, path string, onChange func(*AppConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	logger.Log.WithField("path", path).Info("Watching hospital config for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so catch Create as well as Write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logger.Log.WithError(err).WithField("path", path).
					Error("Hospital config reload failed, keeping previous config")
				continue
			}

			logger.Log.WithField("hospital_id", cfg.Hospital.HospitalID).Info("Hospital config reloaded")
			onChange(cfg)

			// An atomic save may have replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.WithError(err).Error("Hospital config watcher error")
		}
	}
}
