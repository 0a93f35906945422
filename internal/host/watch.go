package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"millisched/internal/sched"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads path whenever it changes and applies it to h. It watches the
// parent directory so editors that replace the file atomically are seen.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, h *Host) error {
	dir, file := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch init: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("config watch %s: %w", dir, err)
	}
	h.log.Debug().Str("dir", dir).Str("file", file).Msg("config watcher started")

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	debounce := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			select {
			case reload <- struct{}{}:
			default:
			}
		})
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Compare by basename (more robust across absolute/relative paths).
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			h.log.Warn().Err(err).Str("dir", dir).Msg("config watch error")
		case <-reload:
			if _, err := os.Stat(path); err != nil {
				h.log.Warn().Err(err).Msg("config file unavailable; keeping current tasks")
				continue
			}
			cfg, err := sched.Load(path)
			if err != nil {
				h.log.Warn().Err(err).Msg("config reload failed; keeping current tasks")
				continue
			}
			if err := h.Apply(ctx, cfg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				h.log.Warn().Err(err).Msg("config applied with errors")
				continue
			}
			h.log.Info().Int("tasks", len(cfg.Tasks)).Msg("config reloaded")
		}
	}
}
