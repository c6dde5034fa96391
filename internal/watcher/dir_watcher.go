// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"expvar"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	errorCount = expvar.NewInt("program_watcher_error_count")
)

type watch struct {
	ps    []Processor
	mtime map[string]time.Time // last seen modification time of each file, for polling
}

// DirWatcher implements a Watcher for program files and directories on a
// real filesystem.  Events are delivered to the processors observing the
// path itself, or the directory that contains it.
type DirWatcher struct {
	ctx context.Context

	watcher    *fsnotify.Watcher
	pollTicker *time.Ticker

	watchedMu sync.RWMutex // protects `watched'
	watched   map[string]*watch

	stopTicks  chan struct{} // Channel to notify ticker to stop.
	ticksDone  chan struct{} // Channel to notify when the ticks handler is done.
	eventsDone chan struct{} // Channel to notify when the events handler is done.

	closeOnce sync.Once
}

// NewDirWatcher returns a new DirWatcher.  If pollInterval is non-zero the
// watched paths are also scanned for changes on that interval, which serves
// filesystems that do not deliver fsnotify events.
func NewDirWatcher(ctx context.Context, pollInterval time.Duration) (*DirWatcher, error) {
	f, err := fsnotify.NewWatcher()
	if err != nil {
		if pollInterval == 0 {
			return nil, errors.Wrap(err, "fsnotify unavailable and polling disabled")
		}
		glog.Warning(err)
		f = nil
	}
	w := &DirWatcher{
		ctx:     ctx,
		watcher: f,
		watched: make(map[string]*watch),
	}
	if pollInterval > 0 {
		w.pollTicker = time.NewTicker(pollInterval)
		w.stopTicks = make(chan struct{})
		w.ticksDone = make(chan struct{})
		go w.runTicks()
	}
	if f != nil {
		w.eventsDone = make(chan struct{})
		go w.runEvents()
	}
	return w, nil
}

func (w *DirWatcher) sendEvent(e Event) {
	w.watchedMu.RLock()
	watched, ok := w.watched[e.Pathname]
	if !ok {
		watched, ok = w.watched[filepath.Dir(e.Pathname)]
	}
	var ps []Processor
	if ok {
		ps = append(ps, watched.ps...)
	}
	w.watchedMu.RUnlock()
	if !ok {
		glog.V(2).Infof("No watch for path %q", e.Pathname)
		return
	}
	for _, p := range ps {
		p.ProcessFileEvent(w.ctx, e)
	}
}

func (w *DirWatcher) runTicks() {
	defer close(w.ticksDone)
	for {
		select {
		case <-w.pollTicker.C:
			w.Poll()
		case <-w.stopTicks:
			w.pollTicker.Stop()
			return
		}
	}
}

// Poll scans every watched path for files created, changed, or removed
// since the last scan, and sends the corresponding events.
func (w *DirWatcher) Poll() {
	w.watchedMu.RLock()
	paths := make([]string, 0, len(w.watched))
	for p := range w.watched {
		paths = append(paths, p)
	}
	w.watchedMu.RUnlock()
	for _, p := range paths {
		for _, e := range w.scan(p) {
			glog.V(2).Infof("poll found %s %s", e.Op, e.Pathname)
			w.sendEvent(e)
		}
	}
}

// scan compares the current state of pathname with the state recorded at the
// last scan, and returns the differences as events.
func (w *DirWatcher) scan(pathname string) []Event {
	current := make(map[string]time.Time)
	fi, err := os.Stat(pathname)
	switch {
	case err != nil:
		glog.V(1).Info(err)
	case fi.IsDir():
		dirents, err := os.ReadDir(pathname)
		if err != nil {
			glog.V(1).Info(err)
			return nil
		}
		for _, d := range dirents {
			if d.IsDir() {
				continue
			}
			info, err := d.Info()
			if err != nil {
				continue
			}
			current[filepath.Join(pathname, d.Name())] = info.ModTime()
		}
	default:
		current[pathname] = fi.ModTime()
	}

	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	watched, ok := w.watched[pathname]
	if !ok {
		return nil
	}
	var events []Event
	if watched.mtime != nil {
		for name, mtime := range current {
			prev, seen := watched.mtime[name]
			switch {
			case !seen:
				events = append(events, Event{Create, name})
			case mtime.After(prev):
				events = append(events, Event{Update, name})
			}
		}
		for name := range watched.mtime {
			if _, ok := current[name]; !ok {
				events = append(events, Event{Delete, name})
			}
		}
	}
	watched.mtime = current
	return events
}

// runEvents assumes that w.watcher is not nil
func (w *DirWatcher) runEvents() {
	defer close(w.eventsDone)

	go func() {
		for err := range w.watcher.Errors {
			errorCount.Add(1)
			glog.Errorf("fsnotify error: %s\n", err)
		}
	}()

	for e := range w.watcher.Events {
		glog.V(2).Infof("watcher event %v", e)
		switch {
		case e.Op&fsnotify.Create == fsnotify.Create:
			w.sendEvent(Event{Create, e.Name})
		case e.Op&fsnotify.Write == fsnotify.Write,
			e.Op&fsnotify.Chmod == fsnotify.Chmod:
			w.sendEvent(Event{Update, e.Name})
		case e.Op&fsnotify.Remove == fsnotify.Remove,
			e.Op&fsnotify.Rename == fsnotify.Rename:
			// Rename is only issued on the original file path; the new name receives a Create event
			w.sendEvent(Event{Delete, e.Name})
		default:
			glog.V(1).Infof("ignoring event %v", e)
		}
	}
	glog.Infof("Shutting down program watcher.")
}

// Close shuts down the DirWatcher.  It is safe to call this from multiple clients.
func (w *DirWatcher) Close() (err error) {
	w.closeOnce.Do(func() {
		if w.watcher != nil {
			err = w.watcher.Close()
			<-w.eventsDone
		}
		if w.pollTicker != nil {
			close(w.stopTicks)
			<-w.ticksDone
		}
	})
	return
}

// Observe adds a path to the list of watched items.  Events for the path, or
// for files directly inside it when it is a directory, are sent to processor.
func (w *DirWatcher) Observe(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to lookup absolutepath of %q", path)
	}
	if w.watcher != nil {
		if err := w.watcher.Add(absPath); err != nil {
			return errors.Wrapf(err, "Failed to create a new watch on %q", absPath)
		}
	}
	w.watchedMu.Lock()
	watched, ok := w.watched[absPath]
	if !ok {
		w.watched[absPath] = &watch{ps: []Processor{processor}}
		w.watchedMu.Unlock()
		glog.V(1).Infof("Watching %s", absPath)
		// Record the initial state so the first poll only reports changes.
		w.scan(absPath)
		return nil
	}
	defer w.watchedMu.Unlock()
	for _, p := range watched.ps {
		if p == processor {
			return nil
		}
	}
	watched.ps = append(watched.ps, processor)
	return nil
}

// Unobserve removes processor from the observers of path.  The path is no
// longer watched once its last observer is removed.
func (w *DirWatcher) Unobserve(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to lookup absolutepath of %q", path)
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	watched, ok := w.watched[absPath]
	if !ok {
		return nil
	}
	for i, p := range watched.ps {
		if p == processor {
			watched.ps = append(watched.ps[:i], watched.ps[i+1:]...)
			break
		}
	}
	if len(watched.ps) > 0 {
		return nil
	}
	delete(w.watched, absPath)
	if w.watcher != nil {
		return w.watcher.Remove(absPath)
	}
	return nil
}

// IsWatching indicates if the path is being watched.
func (w *DirWatcher) IsWatching(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		glog.V(2).Infof("Couldn't resolve path %q: %s", path, err)
		return false
	}
	w.watchedMu.RLock()
	_, ok := w.watched[absPath]
	w.watchedMu.RUnlock()
	return ok
}
