// Package watcher keeps stored configuration in sync with a central
// settings tree on disk. It is development tooling layered on top of the
// engine: it only calls the public import operation and never reaches
// into merge or validation logic.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/varlet-dev/varlet/internal/engine"
	"github.com/varlet-dev/varlet/internal/event"
)

// debounceDelay coalesces bursts of filesystem events into one rescan.
const debounceDelay = 500 * time.Millisecond

// Watcher rescans and re-imports a central settings tree whenever its
// files change.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
	eng     *engine.Engine
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// New creates a watcher for the given settings root. Returns nil when
// the root does not exist; watching is a convenience, not a requirement.
func New(root string, eng *engine.Engine) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		log.Debug().Str("root", root).Msg("settings root not present, watcher disabled")
		return nil, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// fsnotify does not recurse: watch the root and its immediate
	// service directories, which is exactly the depth the naming
	// conventions use.
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		w.Close()
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.Add(filepath.Join(root, entry.Name())); err != nil {
				log.Warn().Err(err).Str("dir", entry.Name()).Msg("failed to watch service directory")
			}
		}
	}

	log.Info().Str("root", root).Msg("settings watcher initialized")
	return &Watcher{
		watcher: w,
		root:    root,
		eng:     eng,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// A new service directory must be added to the watch set.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(ev.Name); err != nil {
						log.Warn().Err(err).Str("dir", ev.Name).Msg("failed to watch new directory")
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerCh = timer.C
			} else {
				timer.Reset(debounceDelay)
			}
		case <-timerCh:
			w.rescan()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("settings watcher error")
		}
	}
}

// rescan re-imports the tree, retrying briefly: editors and build tools
// produce transient states (half-written files, directories mid-rename)
// that resolve within moments.
func (w *Watcher) rescan() {
	w.eng.Bus().PublishSync(event.Event{
		Type: event.SettingsChanged,
		Data: event.SettingsChangedData{Root: w.root},
	})

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	err := backoff.Retry(func() error {
		_, err := w.eng.ImportDiscovered(context.Background(), w.root)
		return err
	}, policy)
	if err != nil {
		log.Error().Err(err).Str("root", w.root).Msg("settings rescan failed")
		return
	}
	log.Info().Str("root", w.root).Msg("settings tree re-imported")
}

// Stop stops the watcher and waits for the run loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
