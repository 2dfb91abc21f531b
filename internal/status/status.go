// Package status provides a thread-safe status tracker for the messenger
// daemon. It is read by the HTTP status page and by lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/scout-messenger/internal/gesture"
	"github.com/sweeney/scout-messenger/internal/messenger"
	"github.com/sweeney/scout-messenger/internal/radio"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	DeviceID      byte
	Name          string
	Session       string
	DebounceMs    int64
	LongPressMs   int64
	DoubleClickMs int64
	BurstMs       int64
	DedupMs       int64
	Broker        string
	PayloadFormat string
	HTTPPort      string
}

// Message is the last thing shown to the user.
type Message struct {
	Text string
	From string // device id or username
	At   time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	Username      string
	Peers         []string
	Phrase        string
	Mode          string // "menu" or "peer-select"
	Gestures      gesture.Counts
	Messages      messenger.Stats
	Radio         radio.Mode
	QueueDropped  uint64
	LastMessage   *Message
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Radio:     radio.ModeIdle,
			Config:    cfg,
		},
	}
}

// Update sets gesture and traffic counters and the radio mode.
// Called from runLoop on every tick.
func (t *Tracker) Update(gestures gesture.Counts, msgs messenger.Stats, mode radio.Mode, queueDropped uint64) {
	t.mu.Lock()
	t.snap.Gestures = gestures
	t.snap.Messages = msgs
	t.snap.Radio = mode
	t.snap.QueueDropped = queueDropped
	t.mu.Unlock()
}

// SetDirectory sets the username and known peers.
func (t *Tracker) SetDirectory(username string, peers []string) {
	p := append([]string(nil), peers...)
	t.mu.Lock()
	t.snap.Username = username
	t.snap.Peers = p
	t.mu.Unlock()
}

// SetMenu records the selected phrase and the active button mode.
func (t *Tracker) SetMenu(phrase, mode string) {
	t.mu.Lock()
	t.snap.Phrase = phrase
	t.snap.Mode = mode
	t.mu.Unlock()
}

// SetLastMessage records the most recently displayed message.
func (t *Tracker) SetLastMessage(m Message) {
	t.mu.Lock()
	t.snap.LastMessage = &m
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
