package gesture

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/scout-messenger/internal/timer"
)

// Recognizer is the per-button gesture state machine.
//
// HandleEdge and the double-click timer run on their own goroutines; both
// only update state under mu and hand completed gestures to the Scheduler.
// Handlers run later, on whichever goroutine drains the Scheduler.
type Recognizer struct {
	cfg   Config
	timer timer.Timer
	sched Scheduler

	mu           sync.Mutex
	pressed      bool
	downAt       time.Duration
	lastAccepted time.Duration
	seenEdge     bool
	clickPending bool
	gen          uint64 // bumped whenever the pending click is armed or abandoned
	counts       Counts

	hmu      sync.Mutex
	handlers []Handlers // stack; last entry is active
}

// New creates a Recognizer. t must not be shared with any other owner.
func New(cfg Config, t timer.Timer, sched Scheduler) *Recognizer {
	return &Recognizer{
		cfg:      cfg,
		timer:    t,
		sched:    sched,
		handlers: []Handlers{{}},
	}
}

// HandleEdge feeds one edge into the state machine.
func (r *Recognizer) HandleEdge(e Edge) {
	r.mu.Lock()
	kind := r.edge(e)
	r.mu.Unlock()

	r.emit(kind)
}

// edge must be called with mu held. It returns the completed gesture, or ""
// if none.
func (r *Recognizer) edge(e Edge) Kind {
	// Debounce against the last accepted edge, whichever direction it was.
	// Out-of-order timestamps land here too and are dropped.
	if r.seenEdge && e.At-r.lastAccepted < r.cfg.Debounce {
		return ""
	}
	r.seenEdge = true
	r.lastAccepted = e.At

	if e.Pressed {
		return r.press(e)
	}
	return r.release(e)
}

func (r *Recognizer) press(e Edge) Kind {
	if r.clickPending {
		// Second tap: resolved on the press edge. Its release finds
		// pressed == false and is ignored.
		r.timer.Cancel()
		r.gen++
		r.clickPending = false
		r.pressed = false
		return r.complete(DoubleClick)
	}
	if r.pressed {
		return ""
	}
	r.pressed = true
	r.downAt = e.At
	return ""
}

func (r *Recognizer) release(e Edge) Kind {
	if !r.pressed {
		return ""
	}
	r.pressed = false

	held := e.At - r.downAt
	if held >= r.cfg.LongPress {
		r.timer.Cancel()
		r.gen++
		r.clickPending = false
		return r.complete(LongPress)
	}

	r.clickPending = true
	r.gen++
	gen := r.gen
	r.timer.Arm(r.cfg.DoubleClick, func() { r.expire(gen) })
	return ""
}

// expire runs on the timer goroutine.
func (r *Recognizer) expire(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || !r.clickPending {
		r.mu.Unlock()
		return
	}
	r.clickPending = false
	kind := r.complete(Click)
	r.mu.Unlock()

	r.emit(kind)
}

// complete counts kind and returns it. It must be called with mu held.
func (r *Recognizer) complete(kind Kind) Kind {
	switch kind {
	case Click:
		r.counts.Click++
	case DoubleClick:
		r.counts.DoubleClick++
	case LongPress:
		r.counts.LongPress++
	}
	return kind
}

// emit hands a completed gesture to the scheduler. It must be called
// without mu held: a synchronous scheduler runs the handler inline.
func (r *Recognizer) emit(kind Kind) {
	if kind == "" {
		return
	}
	if err := r.sched.Schedule(r.deliver, kind); err != nil {
		log.Printf("gesture: dropped %s: %v", kind, err)
	}
}

// deliver runs on the main loop. Handlers are looked up now, not when the
// gesture completed, so a Push in between reroutes the gesture.
func (r *Recognizer) deliver(arg any) {
	kind, ok := arg.(Kind)
	if !ok {
		return
	}
	h := r.active()

	var fn func()
	switch kind {
	case Click:
		fn = h.OnClick
	case DoubleClick:
		fn = h.OnDoubleClick
	case LongPress:
		fn = h.OnLongPress
	}
	if fn != nil {
		fn()
	}
}

// State returns where the state machine currently is.
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.pressed:
		return StatePressed
	case r.clickPending:
		return StateAwaiting
	default:
		return StateIdle
	}
}

// Counts returns a copy of the gesture counters.
func (r *Recognizer) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}
