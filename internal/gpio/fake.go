package gpio

import (
	"errors"
	"sync"
)

// FakeWatcher is a test double that replays scripted edges.
type FakeWatcher struct {
	mu sync.Mutex

	// Edges are delivered in order by Replay.
	Edges []Edge

	// Closed tracks if Close was called.
	Closed bool

	// WatchError, if set, is returned by Watch.
	WatchError error

	// ReadError, if set, is returned by Pressed.
	ReadError error

	handler func(Edge)
	pressed bool
}

// NewFakeWatcher creates a FakeWatcher with the given edges.
func NewFakeWatcher(edges []Edge) *FakeWatcher {
	return &FakeWatcher{Edges: edges}
}

func (f *FakeWatcher) Watch(fn func(Edge)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WatchError != nil {
		return f.WatchError
	}
	if f.handler != nil {
		return errors.New("gpio: already watching")
	}
	f.handler = fn
	return nil
}

// Replay delivers all scripted edges on the caller's goroutine and returns
// how many were delivered.
func (f *FakeWatcher) Replay() int {
	f.mu.Lock()
	edges := append([]Edge(nil), f.Edges...)
	f.mu.Unlock()

	for _, e := range edges {
		f.Emit(e)
	}
	return len(edges)
}

// Emit delivers one edge. It is dropped if Watch has not been called or
// the watcher is closed.
func (f *FakeWatcher) Emit(e Edge) {
	f.mu.Lock()
	fn := f.handler
	if f.Closed {
		fn = nil
	}
	f.pressed = e.Pressed
	f.mu.Unlock()

	if fn != nil {
		fn(e)
	}
}

// Pressed returns the state of the last emitted edge.
func (f *FakeWatcher) Pressed() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.pressed, nil
}

// Close marks the watcher as closed.
func (f *FakeWatcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
