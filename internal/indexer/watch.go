package indexer

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"photo-map/internal/logging"
	"photo-map/internal/mediatypes"
	"photo-map/internal/metrics"
)

// DefaultWatchDebounce is how long the photos directory must stay quiet
// before a change starts a run.
const DefaultWatchDebounce = 2 * time.Second

// Watcher starts a full run after photos are added, changed or removed.
// Only the top level of the directory is watched, so writes into a
// thumbnail directory below it are never seen.
type Watcher struct {
	dir      string
	debounce time.Duration
	trigger  func() error

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches dir and calls trigger once events settle. A trigger
// that returns ErrRunInProgress is retried after another debounce period.
func NewWatcher(dir string, debounce time.Duration, trigger func() error) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		trigger:  trigger,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start processes events in the background until Stop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
	logging.Debug("Watching %s for photo changes", w.dir)
}

// Stop ends event processing and releases the watch.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		if err := w.watcher.Close(); err != nil {
			logging.Warn("failed to close photo watcher: %v", err)
		}
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			metrics.WatcherEventsTotal.WithLabelValues(eventOp(event.Op)).Inc()
			logging.Debug("Photo change: %s %s", eventOp(event.Op), filepath.Base(event.Name))
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Photo watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-timer.C:
			if !pending {
				continue
			}
			err := w.trigger()
			switch {
			case errors.Is(err, ErrRunInProgress):
				// The running pass may have listed the directory before
				// the change landed.
				timer.Reset(w.debounce)
			case err != nil:
				logging.Error("Photo watcher failed to start run: %v", err)
				pending = false
			default:
				pending = false
			}
		}
	}
}

// relevant reports whether event concerns a photo. Chmod-only events and
// hidden temporaries never start a run.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return mediatypes.IsPhotoFile(event.Name)
}

func eventOp(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return "chmod"
	}
}
