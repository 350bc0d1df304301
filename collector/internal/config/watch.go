package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long the config file must stay quiet before a change
// is reloaded.
const DefaultSettle = 100 * time.Millisecond

// errEmptyFile rejects a reload that caught the file between truncate and
// write. Load would otherwise accept it and return pure defaults.
var errEmptyFile = errors.New("config: file is empty")

// Watch monitors path and calls onChange with the reloaded Config once the
// file has been quiet for DefaultSettle. It runs until ctx is cancelled.
//
// A reload that fails (invalid YAML, failed validation, an empty file) is
// logged and the previous config remains active; onChange is not called.
//
// The parent directory is watched rather than the file itself, so editors
// and deploy tools that replace the file by rename are picked up too.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return watch(ctx, path, DefaultSettle, onChange)
}

func watch(ctx context.Context, path string, settle time.Duration, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(path), err)
	}
	target := filepath.Clean(path)

	slog.Info("config: watching for changes", "path", path, "settle", settle)

	// A stopped timer whose channel is drained; reset on every relevant event.
	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(settle)

		case <-timer.C:
			cfg, err := reload(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}
			slog.Info("config: reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// reload is Load for a file that is known to exist and must not be empty.
func reload(path string) (*Config, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: stat: %w", err)
	}
	if fi.Size() == 0 {
		return nil, errEmptyFile
	}
	return Load(path)
}
