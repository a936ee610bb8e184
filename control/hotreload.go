// File: control/hotreload.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// File watcher driving configuration hot reload.

package control

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchInterval is used by WatchFile when interval <= 0.
const DefaultWatchInterval = 2 * time.Second

// WatchFile calls reload whenever the modification time or size of path
// changes, until ctx is done. Reload errors are logged and the previous
// configuration stays in effect.
//
// Changes are picked up from filesystem notifications on the parent
// directory, so a file replaced by rename is seen too. The file is also
// rechecked every interval in case notifications are lost or unavailable.
func WatchFile(ctx context.Context, path string, interval time.Duration, log *slog.Logger, reload func() error) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	path = filepath.Clean(path)
	last, _ := stamp(path)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(filepath.Dir(path))
	}
	switch {
	case err != nil:
		log.Warn("config watch falls back to polling", "path", path, "err", err)
		if w != nil {
			_ = w.Close()
		}
	default:
		defer w.Close()
		events, errs = w.Events, w.Errors
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Lost events are covered by the stamp check below.
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn("config watch error", "path", path, "err", err)
			}
		case <-t.C:
		}
		cur, err := stamp(path)
		if err != nil {
			// Replaced files are briefly absent.
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn("config watch stat failed", "path", path, "err", err)
			}
			continue
		}
		if cur == last {
			continue
		}
		last = cur
		if err := reload(); err != nil {
			log.Error("config reload failed", "path", path, "err", err)
			continue
		}
		log.Info("config reloaded", "path", path)
	}
}

type fileStamp struct {
	mod  time.Time
	size int64
}

func stamp(path string) (fileStamp, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{mod: fi.ModTime(), size: fi.Size()}, nil
}
