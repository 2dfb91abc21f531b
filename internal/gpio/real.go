//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealWatcher reads the button through the Linux GPIO character device.
type RealWatcher struct {
	cfg Config

	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewRealWatcher checks that the chip exists. The line is requested by Watch.
func NewRealWatcher(cfg Config) (*RealWatcher, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}
	chip.Close()
	return &RealWatcher{cfg: cfg}, nil
}

func (w *RealWatcher) options(fn func(Edge)) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if w.cfg.ActiveLow {
		// Edge types are reported in the logical sense, so rising is a press.
		opts = append(opts, gpiocdev.AsActiveLow, gpiocdev.WithPullUp)
	} else {
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if fn != nil {
		opts = append(opts,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				fn(Edge{
					Pressed: evt.Type == gpiocdev.LineEventRisingEdge,
					At:      evt.Timestamp,
				})
			}),
		)
	}
	return opts
}

// Watch requests the line with edge detection on both edges. The kernel's
// event timestamps are passed through; debouncing is left to the caller.
func (w *RealWatcher) Watch(fn func(Edge)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.line != nil {
		return errors.New("gpio: already watching")
	}
	line, err := gpiocdev.RequestLine(w.cfg.Chip, w.cfg.Pin, w.options(fn)...)
	if err != nil {
		return fmt.Errorf("request pin %d: %w", w.cfg.Pin, err)
	}
	w.line = line
	return nil
}

// Pressed reads the line, requesting it briefly if Watch has not run.
func (w *RealWatcher) Pressed() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	line := w.line
	if line == nil {
		l, err := gpiocdev.RequestLine(w.cfg.Chip, w.cfg.Pin, w.options(nil)...)
		if err != nil {
			return false, fmt.Errorf("request pin %d: %w", w.cfg.Pin, err)
		}
		defer l.Close()
		line = l
	}

	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", w.cfg.Pin, err)
	}
	return v == 1, nil
}

// Close releases the line.
// The line is reconfigured as a plain input first so it is left the way
// the board boots.
func (w *RealWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.line == nil {
		return nil
	}
	var errs []error
	if err := w.line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", w.cfg.Pin, err))
	}
	if err := w.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", w.cfg.Pin, err))
	}
	w.line = nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
