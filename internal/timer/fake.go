package timer

import (
	"sync"
	"time"
)

// Fake is a manually fired Timer for tests.
type Fake struct {
	mu    sync.Mutex
	armed bool
	d     time.Duration
	fn    func()

	// Arms counts calls to Arm.
	Arms int

	// Cancels counts calls to Cancel.
	Cancels int
}

// NewFake creates an idle Fake timer.
func NewFake() *Fake {
	return &Fake{}
}

// Arm records the duration and callback, replacing any pending one.
func (f *Fake) Arm(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = true
	f.d = d
	f.fn = fn
	f.Arms++
}

// Cancel drops the pending callback.
func (f *Fake) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = false
	f.fn = nil
	f.Cancels++
}

// Active reports whether a callback is pending.
func (f *Fake) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed
}

// Duration returns the duration of the most recent Arm.
func (f *Fake) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.d
}

// Fire runs the pending callback as if the timer expired.
// Returns false if nothing was armed.
func (f *Fake) Fire() bool {
	f.mu.Lock()
	if !f.armed {
		f.mu.Unlock()
		return false
	}
	fn := f.fn
	f.armed = false
	f.fn = nil
	f.mu.Unlock()

	fn()
	return true
}
