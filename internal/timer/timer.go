// Package timer provides one-shot timers with a single owner each.
// Arming a timer replaces any pending expiry; there is never more than
// one outstanding callback per timer.
package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNoChannel = errors.New("timer: no such channel")
	ErrInUse     = errors.New("timer: channel already in use")
)

// Timer is a one-shot timer that can be re-armed.
type Timer interface {
	// Arm schedules fn to run once after d, cancelling any pending expiry.
	Arm(d time.Duration, fn func())

	// Cancel stops a pending expiry. Safe to call when nothing is armed.
	Cancel()

	// Active reports whether an expiry is pending.
	Active() bool
}

// realTimer wraps time.AfterFunc. The generation counter makes a callback
// that already left the runtime's timer heap a no-op once Arm or Cancel
// has been called again.
type realTimer struct {
	mu  sync.Mutex
	t   *time.Timer
	gen uint64
}

// New returns a Timer backed by the Go runtime.
func New() Timer {
	return &realTimer{}
}

func (r *realTimer) Arm(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.t != nil {
		r.t.Stop()
	}
	r.gen++
	gen := r.gen
	r.t = time.AfterFunc(d, func() {
		r.mu.Lock()
		live := r.gen == gen
		if live {
			r.t = nil
		}
		r.mu.Unlock()

		if live {
			fn()
		}
	})
}

func (r *realTimer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.t != nil {
		r.t.Stop()
		r.t = nil
	}
	r.gen++
}

func (r *realTimer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t != nil
}

// Pool is a fixed set of timer channels. Each channel can be held by one
// owner at a time, mirroring hardware with a small number of timer units.
type Pool struct {
	mu     sync.Mutex
	slots  []Timer
	owners []string
}

// NewPool creates a pool with n runtime-backed channels.
func NewPool(n int) *Pool {
	return NewPoolWith(n, New)
}

// NewPoolWith creates a pool whose channels are built by newTimer.
func NewPoolWith(n int, newTimer func() Timer) *Pool {
	p := &Pool{
		slots:  make([]Timer, n),
		owners: make([]string, n),
	}
	for i := range p.slots {
		p.slots[i] = newTimer()
	}
	return p
}

// Acquire claims channel ch for owner.
func (p *Pool) Acquire(ch int, owner string) (Timer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch < 0 || ch >= len(p.slots) {
		return nil, fmt.Errorf("%w: %d", ErrNoChannel, ch)
	}
	if p.owners[ch] != "" {
		return nil, fmt.Errorf("%w: %d held by %s", ErrInUse, ch, p.owners[ch])
	}
	p.owners[ch] = owner
	return p.slots[ch], nil
}

// Release cancels channel ch and makes it available again.
func (p *Pool) Release(ch int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch < 0 || ch >= len(p.slots) {
		return
	}
	p.slots[ch].Cancel()
	p.owners[ch] = ""
}
