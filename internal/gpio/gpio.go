// Package gpio watches a push button on a GPIO line and reports every edge
// with its kernel timestamp.
// The real implementation uses the Linux GPIO character device.
// The fake implementation replays scripted edges for tests.
package gpio

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by the real watcher off Linux.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Defaults for the board button.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 9
)

// Edge is one transition of the button line.
type Edge struct {
	Pressed bool          // true on the press edge
	At      time.Duration // monotonic timestamp
}

// Config selects the button line.
type Config struct {
	Chip string
	Pin  int

	// ActiveLow means the button pulls the line to ground when pressed.
	// The line is biased with a pull-up in that case.
	ActiveLow bool
}

// DefaultConfig returns the board button: pin 9, active low.
func DefaultConfig() Config {
	return Config{Chip: DefaultChip, Pin: DefaultPin, ActiveLow: true}
}

// Watcher delivers button edges.
type Watcher interface {
	// Watch starts delivering edges to fn on a watcher-owned goroutine.
	// It may be called once.
	Watch(fn func(Edge)) error

	// Pressed reads the current logical state of the line.
	Pressed() (bool, error)

	// Close stops delivery and releases the line.
	Close() error
}
