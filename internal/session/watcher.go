package session

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/seekerlabs/indexscope/internal/bus"
)

// defaultWatchDebounce coalesces the burst of filesystem events a single
// index merge produces into one IndexChanged notification.
const defaultWatchDebounce = 500 * time.Millisecond

// changeWatcher watches an open index directory and publishes
// IndexChanged on the bus when files inside it mutate.
type changeWatcher struct {
	fw       *fsnotify.Watcher
	path     string
	bus      *bus.Bus
	log      *slog.Logger
	debounce time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

func newChangeWatcher(path string, b *bus.Bus, log *slog.Logger, debounce time.Duration) (*changeWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	w := &changeWatcher{
		fw:       fw,
		path:     path,
		bus:      b,
		log:      log,
		debounce: debounce,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *changeWatcher) run() {
	defer close(w.stopped)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.log.Debug("index changed on disk", "path", w.path)
			bus.Publish(w.bus, IndexChanged{Path: w.path})

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("index watcher error", "path", w.path, "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *changeWatcher) stop() {
	close(w.done)
	w.fw.Close()
	<-w.stopped
}
