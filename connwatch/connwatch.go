// Package connwatch watches a Jupyter connection description file for
// removal or rewriting, so a long-lived client can notice a kernel
// restart (which rewrites the file with fresh ports and a fresh key) or
// a kernel shutdown (which removes it).
//
// A fsnotify.Watcher feeds a select loop that filters raw filesystem
// events down to the two changes a client cares about and reports them
// through a small typed channel.
package connwatch

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// EventKind distinguishes the two changes this watcher reports.
type EventKind int

const (
	// Rewritten means the file was written to or created — typically a
	// kernel restart publishing new ports and a new key.
	Rewritten EventKind = iota
	// Removed means the file was removed or renamed away — typically a
	// kernel shutdown.
	Removed
)

// Event is one change observed on the watched connection file.
type Event struct {
	Kind EventKind
	Path string
}

// Watcher reports Rewritten/Removed events for a single connection file.
type Watcher struct {
	path      string
	fsw       *fsnotify.Watcher
	events    chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts watching path. The returned Watcher's Events channel is
// closed after Close is called or the underlying watcher fails.
func New(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrapf(err, "connwatch.New(%q): creating filesystem watcher", path)
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, "connwatch.New(%q): watching file", path)
	}

	w := &Watcher{
		path:   path,
		fsw:    fsw,
		events: make(chan Event, 4),
		done:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Events yields Rewritten/Removed notifications until Close is called.
func (w *Watcher) Events() <-chan Event { return w.events }

func (w *Watcher) run() {
	defer w.wg.Done()
	defer close(w.events)
	klog.V(2).Infof("connwatch: watching %q", w.path)
	defer klog.V(2).Infof("connwatch: stopped watching %q", w.path)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			var kind EventKind
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				kind = Rewritten
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = Removed
			default:
				continue
			}
			klog.V(2).Infof("connwatch: %q: %v", w.path, event.Op)
			select {
			case w.events <- Event{Kind: kind, Path: w.path}:
			case <-w.done:
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			klog.V(1).Infof("connwatch: watcher error for %q: %v", w.path, err)
		}
	}
}

// Close stops the watcher and releases the underlying OS resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}
