package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/briarlane/duscape/internal/fsiface"
)

// FSNotifyStream implements fsiface.ChangeStream over a recursive
// fsnotify.Watcher: fsnotify only watches the directories it's told
// about, so this registers every directory under root up front and adds
// new ones as they appear, mirroring how a real-time watcher has to work
// on platforms without native recursive watches.
type FSNotifyStream struct {
	// BufferSize bounds the per-root notification channel; on overflow
	// (a full channel on a burst of changes) sendOrOverflow swaps the
	// event for ActionOverflow on the event's own path, which the core
	// re-enumerates (§5 Backpressure, §6.2 Overflow).
	BufferSize int
}

func (s *FSNotifyStream) Watch(ctx context.Context, root string) (<-chan fsiface.ChangeEvent, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := addRecursive(w, root); err != nil {
		w.Close()
		return nil, err
	}

	bufSize := s.BufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	out := make(chan fsiface.ChangeEvent, bufSize)

	go func() {
		defer w.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				s.handleRaw(w, root, ev, out)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
				// Surfaced as an overflow against the root; the core
				// re-enumerates, which is always safe even if the error
				// wasn't actually an overflow.
				sendOrOverflow(out, fsiface.ChangeEvent{Path: root, Action: fsiface.ActionOverflow})
			}
		}
	}()

	return out, nil
}

func (s *FSNotifyStream) handleRaw(w *fsnotify.Watcher, root string, ev fsnotify.Event, out chan<- fsiface.ChangeEvent) {
	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = addRecursive(w, ev.Name)
		}
		sendOrOverflow(out, fsiface.ChangeEvent{Path: ev.Name, Action: fsiface.ActionAdded})
	case ev.Op&fsnotify.Remove != 0:
		_ = w.Remove(ev.Name)
		sendOrOverflow(out, fsiface.ChangeEvent{Path: ev.Name, Action: fsiface.ActionRemoved})
	case ev.Op&fsnotify.Rename != 0:
		_ = w.Remove(ev.Name)
		sendOrOverflow(out, fsiface.ChangeEvent{Path: ev.Name, Action: fsiface.ActionRemoved})
	case ev.Op&fsnotify.Write != 0:
		sendOrOverflow(out, fsiface.ChangeEvent{Path: ev.Name, Action: fsiface.ActionModified})
	}
}

// sendOrOverflow drops the event and instead reports an overflow against
// its own path when the channel is full, rather than blocking the
// fsnotify dispatch goroutine (§5 Backpressure).
func sendOrOverflow(out chan<- fsiface.ChangeEvent, ev fsiface.ChangeEvent) {
	select {
	case out <- ev:
	default:
		select {
		case out <- fsiface.ChangeEvent{Path: ev.Path, Action: fsiface.ActionOverflow}:
		default:
		}
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	var mu sync.Mutex
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // per-entry failures are local; keep walking
		}
		if !info.IsDir() {
			return nil
		}
		mu.Lock()
		addErr := w.Add(path)
		mu.Unlock()
		return addErr
	})
}
