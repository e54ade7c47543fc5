package snapshot

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/foldertalk/foldertalk/internal/logger"
)

// Watcher surfaces hints that a folder's file set may have drifted from the
// stored snapshot while a session is open. It only signals; staleness is
// still decided by Tracker.Evaluate at the caller's pace.
type Watcher struct {
	fsw   *fsnotify.Watcher
	hints chan struct{}
	done  chan struct{}
}

// NewWatcher starts watching the given folder.
func NewWatcher(folder string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(folder); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", folder, err)
	}

	w := &Watcher{
		fsw:   fsw,
		hints: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Hints delivers at most one pending change hint; coalesced, never blocking
// the event loop.
func (w *Watcher) Hints() <-chan struct{} {
	return w.hints
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.hints <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnf("folder watcher error: %v", err)
		}
	}
}
