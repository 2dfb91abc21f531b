// Package radio time-multiplexes the single BLE radio between scanning and
// short advertising bursts. The radio is never asked to scan and advertise
// at once; every burst ends by resuming the configured scan.
package radio

import (
	"errors"
	"time"
)

var (
	ErrUnsupported = errors.New("radio: not supported on this platform (requires Linux)")
	ErrNotActive   = errors.New("radio: mode not active")
	ErrBusy        = errors.New("radio: mode already active")
)

// Timing defaults from the device firmware.
const (
	DefaultScanInterval      = 30 * time.Millisecond
	DefaultScanWindow        = 30 * time.Millisecond
	DefaultAdvertiseInterval = 20 * time.Millisecond
)

// Mode is what the radio is currently doing.
type Mode string

const (
	ModeIdle        Mode = "IDLE"
	ModeScanning    Mode = "SCANNING"
	ModeAdvertising Mode = "ADVERTISING"
)

// ScanParams configures continuous discovery.
type ScanParams struct {
	Interval time.Duration
	Window   time.Duration // <= Interval
	Active   bool          // request scan responses
}

// DefaultScanParams returns a 30ms/30ms active scan.
func DefaultScanParams() ScanParams {
	return ScanParams{
		Interval: DefaultScanInterval,
		Window:   DefaultScanWindow,
		Active:   true,
	}
}

// Result is one advertisement heard while scanning.
type Result struct {
	Address string
	RSSI    int16
	Data    []byte // raw advertising data (AD structures)
}

// Driver is the radio hardware interface.
//
// StartScan must deliver results on a goroutine other than the caller's;
// fn is never called from inside StartScan. Stop calls return ErrNotActive
// when the mode was not running.
type Driver interface {
	StartScan(p ScanParams, fn func(Result)) error
	StopScan() error
	StartAdvertise(interval time.Duration, adv []byte) error
	StopAdvertise() error
}
