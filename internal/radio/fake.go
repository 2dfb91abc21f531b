package radio

import (
	"sync"
	"time"
)

// FakeDriver records radio calls for test assertions.
type FakeDriver struct {
	mu sync.Mutex

	// Calls is the ordered log: "scan:start", "scan:stop", "adv:start", "adv:stop".
	Calls []string

	// Advertised holds the payload of every StartAdvertise call.
	Advertised [][]byte

	// Intervals holds the interval of every StartAdvertise call.
	Intervals []time.Duration

	// LastScan is the parameter set of the most recent StartScan.
	LastScan ScanParams

	// Overlap is set if the radio was ever asked to scan and advertise at once.
	Overlap bool

	// StartScanError and StartAdvertiseError, if set, are returned by the
	// matching start call.
	StartScanError      error
	StartAdvertiseError error

	scanning    bool
	advertising bool
	handler     func(Result)
}

// NewFakeDriver creates an idle FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

func (f *FakeDriver) StartScan(p ScanParams, fn func(Result)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StartScanError != nil {
		return f.StartScanError
	}
	if f.advertising {
		f.Overlap = true
	}
	f.Calls = append(f.Calls, "scan:start")
	f.LastScan = p
	f.scanning = true
	f.handler = fn
	return nil
}

func (f *FakeDriver) StopScan() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.scanning {
		return ErrNotActive
	}
	f.Calls = append(f.Calls, "scan:stop")
	f.scanning = false
	return nil
}

func (f *FakeDriver) StartAdvertise(interval time.Duration, adv []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StartAdvertiseError != nil {
		return f.StartAdvertiseError
	}
	if f.scanning {
		f.Overlap = true
	}
	f.Calls = append(f.Calls, "adv:start")
	f.Advertised = append(f.Advertised, append([]byte(nil), adv...))
	f.Intervals = append(f.Intervals, interval)
	f.advertising = true
	return nil
}

func (f *FakeDriver) StopAdvertise() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.advertising {
		return ErrNotActive
	}
	f.Calls = append(f.Calls, "adv:stop")
	f.advertising = false
	return nil
}

// InjectResult delivers r to the scan handler as if it was heard on air.
// It is dropped unless the fake is scanning.
func (f *FakeDriver) InjectResult(r Result) bool {
	f.mu.Lock()
	fn := f.handler
	ok := f.scanning && fn != nil
	f.mu.Unlock()

	if ok {
		fn(r)
	}
	return ok
}

// Scanning reports whether a scan is running.
func (f *FakeDriver) Scanning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanning
}

// Advertising reports whether an advertisement is running.
func (f *FakeDriver) Advertising() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advertising
}

// CallLog returns a copy of Calls.
func (f *FakeDriver) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// Reset clears the call log and recorded payloads.
func (f *FakeDriver) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
	f.Advertised = nil
	f.Intervals = nil
	f.Overlap = false
}
