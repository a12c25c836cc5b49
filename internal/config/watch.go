package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logger() zerolog.Logger {
	return log.With().Str("component", "config").Logger()
}

// Watch reloads the config file at path whenever it is written and passes
// the result to onChange. It returns once the watcher is installed; the
// watch ends when ctx is cancelled. Invalid files are logged and skipped.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("no config file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// editors replace files by rename, so watch the directory
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		l := logger()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				cfg, err := LoadFrom(path)
				if err != nil {
					l.Warn().Err(err).Str("path", path).Msg("ignoring invalid config change")
					continue
				}
				l.Info().Str("path", path).Msg("config reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return nil
}
