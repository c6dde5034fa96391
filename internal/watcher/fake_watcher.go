// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
)

// FakeWatcher implements an in-memory Watcher.  Tests inject events with
// InjectCreate, InjectUpdate, and InjectDelete.
type FakeWatcher struct {
	watchesMu sync.RWMutex
	watches   map[string]map[Processor]struct{}
	isClosed  bool
}

// NewFakeWatcher returns a fake Watcher for use in tests.
func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{
		watches: make(map[string]map[Processor]struct{})}
}

// Observe implements the Watcher interface.
func (w *FakeWatcher) Observe(name string, p Processor) error {
	w.watchesMu.Lock()
	defer w.watchesMu.Unlock()
	if _, ok := w.watches[name]; !ok {
		w.watches[name] = make(map[Processor]struct{})
	}
	w.watches[name][p] = struct{}{}
	return nil
}

// Close closes down the FakeWatcher
func (w *FakeWatcher) Close() error {
	w.watchesMu.Lock()
	w.isClosed = true
	w.watchesMu.Unlock()
	return nil
}

// IsClosed reports whether Close has been called.
func (w *FakeWatcher) IsClosed() bool {
	w.watchesMu.RLock()
	defer w.watchesMu.RUnlock()
	return w.isClosed
}

// Unobserve removes an observer from the FakeWatcher.  If it's the last
// observer for a name, the name is no longer watched.
func (w *FakeWatcher) Unobserve(name string, p Processor) error {
	w.watchesMu.Lock()
	defer w.watchesMu.Unlock()
	if _, ok := w.watches[name]; !ok {
		return nil
	}
	delete(w.watches[name], p)
	if len(w.watches[name]) == 0 {
		delete(w.watches, name)
	}
	return nil
}

// SendEvent delivers e to the observers of its path, or of its directory.
func (w *FakeWatcher) SendEvent(e Event) {
	w.watchesMu.RLock()
	watches, ok := w.watches[e.Pathname]
	if !ok {
		watches, ok = w.watches[filepath.Dir(e.Pathname)]
	}
	ps := make([]Processor, 0, len(watches))
	for p := range watches {
		ps = append(ps, p)
	}
	w.watchesMu.RUnlock()
	if !ok {
		glog.Infof("Didn't find %s in watched list", e.Pathname)
		return
	}
	for _, p := range ps {
		p.ProcessFileEvent(context.Background(), e)
	}
}

// InjectCreate lets a test inject a fake creation event.
func (w *FakeWatcher) InjectCreate(name string) {
	w.SendEvent(Event{Create, name})
}

// InjectUpdate lets a test inject a fake update event.
func (w *FakeWatcher) InjectUpdate(name string) {
	w.SendEvent(Event{Update, name})
}

// InjectDelete lets a test inject a fake deletion event.
func (w *FakeWatcher) InjectDelete(name string) {
	w.SendEvent(Event{Delete, name})
}
