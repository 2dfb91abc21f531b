// Package dedup drops immediate radio-layer repeats of a received event.
//
// The filter remembers only the most recently accepted receipt. A repeat
// interleaved with another sender's traffic is not recognized.
package dedup

import (
	"sync"
	"time"
)

// DefaultWindow is how long an identical receipt is treated as a repeat.
const DefaultWindow = 600 * time.Millisecond

// Record identifies a received event. Key distinguishes payloads, and
// should differ between kinds even when the raw values match.
type Record struct {
	DeviceID byte
	Kind     byte
	Key      string
}

// Filter is a single-slot recent-receipt memory.
type Filter struct {
	window time.Duration

	mu       sync.Mutex
	last     Record
	lastSeen time.Time
	seen     bool
}

// New creates a Filter with the given repeat window.
func New(window time.Duration) *Filter {
	return &Filter{window: window}
}

// ShouldAccept reports whether rec is new. An identical record within the
// window of the last accepted one is rejected and does not refresh the
// slot; anything else is accepted and replaces it.
func (f *Filter) ShouldAccept(rec Record, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen && rec == f.last && now.Sub(f.lastSeen) < f.window {
		return false
	}
	f.last = rec
	f.lastSeen = now
	f.seen = true
	return true
}
