package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce collapses the burst of events editors emit for one save.
const reloadDebounce = 100 * time.Millisecond

// Watch reloads reg from dir whenever a behavior file in dir changes, until ctx is done.
//
// Precondition: reg must not be nil.
// Postcondition: a failed reload is logged and the previous definitions are kept.
// Returns an error only if the watcher cannot be started.
func Watch(ctx context.Context, dir string, reg *Registry, logger *zap.Logger) error {
	if reg == nil {
		return fmt.Errorf("behavior.Watch: registry must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("behavior.Watch: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("behavior.Watch: watching %q: %w", dir, err)
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 || !IsSourceFile(ev.Name) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				Reload(dir, reg, logger)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("behavior watcher error", zap.String("dir", dir), zap.Error(err))
			}
		}
	}()
	return nil
}

// Reload replaces reg's contents with dir's definitions.
//
// Postcondition: returns false and keeps the previous definitions on any failure.
func Reload(dir string, reg *Registry, logger *zap.Logger) bool {
	defs, err := LoadDir(dir)
	if err == nil {
		err = reg.Replace(defs)
	}
	if err != nil {
		logger.Warn("behavior reload failed; keeping previous definitions", zap.String("dir", dir), zap.Error(err))
		return false
	}
	logger.Info("behavior definitions reloaded", zap.String("dir", dir), zap.Int("count", reg.Len()))
	return true
}
