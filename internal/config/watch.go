package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Config from disk whenever its backing file
// changes and hands it to the caller's onLoad callback (generalizes the
// teacher's security.tls.auto_reload knob, SPEC_FULL.md §1.3).
// cmd/registry-server does not start a Watcher.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	log     *slog.Logger
	onLoad  func(*Config)
}

// Watch starts watching path for changes, invoking onLoad with the
// freshly parsed configuration on every write/create event. The
// returned Watcher must be closed by the caller.
func Watch(path string, logger *slog.Logger, onLoad func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fsw, log: logger, onLoad: onLoad}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Error("config reload failed", "path", w.path, "error", err)
				continue
			}
			w.log.Info("config reloaded", "path", w.path)
			w.onLoad(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
