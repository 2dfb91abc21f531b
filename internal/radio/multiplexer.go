package radio

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/scout-messenger/internal/timer"
)

// Multiplexer owns the radio Driver and serializes mode changes.
type Multiplexer struct {
	driver      Driver
	timer       timer.Timer
	advInterval time.Duration

	mu             sync.Mutex
	mode           Mode
	scan           ScanParams
	scanConfigured bool
	burst          uint64 // sequence of the burst whose expiry is live

	rmu      sync.RWMutex
	onResult func(Result)
}

// New creates a Multiplexer. t is the burst-expiry timer and must not be
// shared with any other owner.
func New(d Driver, t timer.Timer, advInterval time.Duration) *Multiplexer {
	return &Multiplexer{
		driver:      d,
		timer:       t,
		advInterval: advInterval,
		mode:        ModeIdle,
	}
}

// OnResult sets the scan result handler. It runs on the driver's goroutine.
func (m *Multiplexer) OnResult(fn func(Result)) {
	m.rmu.Lock()
	m.onResult = fn
	m.rmu.Unlock()
}

func (m *Multiplexer) handleResult(r Result) {
	m.rmu.RLock()
	fn := m.onResult
	m.rmu.RUnlock()
	if fn != nil {
		fn(r)
	}
}

// StartScanning begins continuous discovery with p, restarting the scan if
// one is running. During a burst the parameters are only recorded; the
// scan starts when the burst ends.
func (m *Multiplexer) StartScanning(p ScanParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scan = p
	m.scanConfigured = true

	switch m.mode {
	case ModeAdvertising:
		return nil
	case ModeScanning:
		m.stopScan()
	}

	if err := m.driver.StartScan(p, m.handleResult); err != nil {
		return fmt.Errorf("start scan: %w", err)
	}
	m.mode = ModeScanning
	return nil
}

// BurstAdvertise stops scanning and advertises adv for d, after which the
// configured scan resumes. A burst started while another is running
// replaces it, and only the newest burst's expiry counts.
func (m *Multiplexer) BurstAdvertise(adv []byte, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.mode {
	case ModeScanning:
		m.stopScan()
	case ModeAdvertising:
		m.stopAdvertise()
	}

	m.burst++
	seq := m.burst

	if err := m.driver.StartAdvertise(m.advInterval, adv); err != nil {
		m.timer.Cancel()
		m.resumeScan()
		return fmt.Errorf("start advertise: %w", err)
	}
	m.mode = ModeAdvertising
	m.timer.Arm(d, func() { m.endBurst(seq) })
	return nil
}

// endBurst runs on the timer goroutine.
func (m *Multiplexer) endBurst(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.burst || m.mode != ModeAdvertising {
		return
	}
	m.stopAdvertise()
	m.resumeScan()
}

// Stop cancels any burst and leaves the radio idle. Scan parameters are
// forgotten.
func (m *Multiplexer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timer.Cancel()
	m.burst++
	switch m.mode {
	case ModeScanning:
		m.stopScan()
	case ModeAdvertising:
		m.stopAdvertise()
	}
	m.scanConfigured = false
}

// Mode returns what the radio is doing now.
func (m *Multiplexer) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// resumeScan must be called with mu held and the radio idle.
func (m *Multiplexer) resumeScan() {
	if !m.scanConfigured {
		return
	}
	if err := m.driver.StartScan(m.scan, m.handleResult); err != nil {
		log.Printf("radio: resume scan: %v", err)
		return
	}
	m.mode = ModeScanning
}

// Stop errors mean the mode was already inactive and are ignored.
func (m *Multiplexer) stopScan() {
	_ = m.driver.StopScan()
	m.mode = ModeIdle
}

func (m *Multiplexer) stopAdvertise() {
	_ = m.driver.StopAdvertise()
	m.mode = ModeIdle
}
