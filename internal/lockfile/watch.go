package lockfile

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports when a held lock marker is removed or renamed by
// someone other than its owner.
type Watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// Watch starts watching the marker of l.  onGone runs at most once,
// from the watcher's goroutine, with the fsnotify operation that took
// the marker away.  onErr receives watcher errors; it may be nil.
func (l *Lock) Watch(onGone func(op string), onErr func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: events on a removed file stop at the removal.
	if err := fw.Add(filepath.Dir(l.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}

	w := &Watcher{w: fw, done: make(chan struct{})}
	target := filepath.Clean(l.path)
	var fired sync.Once

	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					fired.Do(func() { onGone(ev.Op.String()) })
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				if onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.w.Close()
		<-w.done
	})
	return err
}
