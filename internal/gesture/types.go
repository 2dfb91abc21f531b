// Package gesture turns button edges into click, double-click and long-press
// gestures. Edge timing always comes from the edge timestamps; the only
// clock the recognizer owns is the double-click timer.
package gesture

import "time"

// Kind identifies a completed gesture.
type Kind string

const (
	Click       Kind = "CLICK"
	DoubleClick Kind = "DOUBLE_CLICK"
	LongPress   Kind = "LONG_PRESS"
)

// State is the recognizer's position in the press/release cycle.
type State string

const (
	StateIdle     State = "IDLE"
	StatePressed  State = "PRESSED"
	StateAwaiting State = "AWAITING_DOUBLE"
)

// Edge is a single transition of the input line.
type Edge struct {
	Pressed bool          // true = press (line went active)
	At      time.Duration // monotonic timestamp
}

// Config holds the gesture timing thresholds.
type Config struct {
	// Debounce is the minimum spacing between accepted edges.
	Debounce time.Duration
	// LongPress is the hold time at or above which a release is a long press.
	LongPress time.Duration
	// DoubleClick is how long a short release waits for a second press.
	DoubleClick time.Duration
}

// DefaultConfig returns the thresholds the device firmware shipped with.
func DefaultConfig() Config {
	return Config{
		Debounce:    80 * time.Millisecond,
		LongPress:   500 * time.Millisecond,
		DoubleClick: 500 * time.Millisecond,
	}
}

// Handlers is one set of gesture callbacks. Nil slots are skipped.
type Handlers struct {
	OnClick       func()
	OnDoubleClick func()
	OnLongPress   func()
}

// Counts tracks the number of each gesture since startup.
type Counts struct {
	Click       int
	DoubleClick int
	LongPress   int
}

// Scheduler defers a callback to the main loop.
type Scheduler interface {
	Schedule(fn func(any), arg any) error
}
