// Package dispatch runs callbacks raised from edge, timer, and radio
// goroutines on the main loop instead, preserving the order they were
// scheduled in.
//
// Schedule never blocks: producers hand off a (callback, argument) pair
// and return. The main loop calls Drain once per iteration.
package dispatch

import (
	"errors"
	"log"
	"sync/atomic"
)

// ErrQueueFull is returned by Schedule when the queue has no free slot.
var ErrQueueFull = errors.New("dispatch: queue full")

// DefaultQueueSize is the queue capacity used by cmd/scout-messenger.
const DefaultQueueSize = 32

type job struct {
	fn  func(any)
	arg any
}

// Dispatcher is a bounded FIFO of deferred callbacks.
// Any number of goroutines may Schedule; only one goroutine may Drain.
type Dispatcher struct {
	queue       chan job
	synchronous bool
	dropped     atomic.Uint64
	reported    uint64 // drops already logged; touched only by Drain
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// Synchronous makes Schedule run the callback inline on the caller's
// goroutine. This is a degraded mode for targets without a main loop:
// callbacks then run in edge/timer/radio context and must be short and
// safe to call concurrently.
func Synchronous() Option {
	return func(d *Dispatcher) {
		d.synchronous = true
	}
}

// New creates a Dispatcher holding at most size pending callbacks.
func New(size int, opts ...Option) *Dispatcher {
	if size < 1 {
		size = 1
	}
	d := &Dispatcher{queue: make(chan job, size)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Schedule queues fn(arg) for the next Drain. It returns ErrQueueFull
// without blocking when the queue is at capacity.
func (d *Dispatcher) Schedule(fn func(any), arg any) error {
	if fn == nil {
		return nil
	}
	if d.synchronous {
		run(job{fn: fn, arg: arg})
		return nil
	}
	select {
	case d.queue <- job{fn: fn, arg: arg}:
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Drain runs the callbacks queued at the time of the call, oldest first,
// and returns how many ran. Callbacks scheduled while draining wait for
// the next Drain. A panicking callback is logged and does not stop the
// remaining ones.
func (d *Dispatcher) Drain() int {
	if dropped := d.dropped.Load(); dropped != d.reported {
		log.Printf("dispatch: queue full (%d slots), dropped %d callbacks", cap(d.queue), dropped-d.reported)
		d.reported = dropped
	}

	n := len(d.queue)
	for i := 0; i < n; i++ {
		run(<-d.queue)
	}
	return n
}

// Pending returns the number of queued callbacks.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Dropped returns the number of callbacks rejected because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func run(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatch: callback panic: %v", r)
		}
	}()
	j.fn(j.arg)
}
