// Package messenger sends and receives short broadcast events over the
// shared radio: presence announcements, phrase indexes and short text.
//
// Delivery is best-effort: each send is one advertising burst with no
// acknowledgement or retry, and receivers may hear it several times.
package messenger

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/scout-messenger/internal/dedup"
	"github.com/sweeney/scout-messenger/internal/packet"
	"github.com/sweeney/scout-messenger/internal/radio"
)

// DefaultBurstDuration is how long each send advertises for.
const DefaultBurstDuration = 300 * time.Millisecond

// DefaultName is the advertised device name.
const DefaultName = "SM"

// Config holds messenger settings.
type Config struct {
	DeviceID      byte
	Name          string // advertised local name, dropped when space is short
	BurstDuration time.Duration
	DedupWindow   time.Duration
}

// DefaultConfig returns the firmware defaults for device dev.
func DefaultConfig(dev byte) Config {
	return Config{
		DeviceID:      dev,
		Name:          DefaultName,
		BurstDuration: DefaultBurstDuration,
		DedupWindow:   dedup.DefaultWindow,
	}
}

// Radio is the part of radio.Multiplexer the messenger uses.
type Radio interface {
	BurstAdvertise(adv []byte, d time.Duration) error
	OnResult(fn func(radio.Result))
}

// Scheduler defers a callback to the main loop.
type Scheduler interface {
	Schedule(fn func(any), arg any) error
}

// Stats counts messenger traffic since startup.
type Stats struct {
	Sent         uint64
	Received     uint64 // accepted and dispatched
	Duplicates   uint64 // dropped by the repeat filter
	Unrecognized uint64 // advertisements that were not ours
}

// Messenger ties the packet codec, repeat filter and radio together.
type Messenger struct {
	cfg    Config
	radio  Radio
	sched  Scheduler
	filter *dedup.Filter
	now    func() time.Time

	mu         sync.RWMutex
	onIndex    func(byte)
	onText     func(string)
	onPresence func(byte)
	onMessage  func(any)
	onReceive  func(packet.Envelope)

	sent         atomic.Uint64
	received     atomic.Uint64
	duplicates   atomic.Uint64
	unrecognized atomic.Uint64
}

// New creates a Messenger and registers it for the radio's scan results.
func New(cfg Config, r Radio, sched Scheduler) *Messenger {
	m := &Messenger{
		cfg:    cfg,
		radio:  r,
		sched:  sched,
		filter: dedup.New(cfg.DedupWindow),
		now:    time.Now,
	}
	r.OnResult(m.handleResult)
	return m
}

// DeviceID returns the id this messenger sends as.
func (m *Messenger) DeviceID() byte {
	return m.cfg.DeviceID
}

// SendPresence announces this device.
func (m *Messenger) SendPresence() error {
	return m.send(packet.Presence(m.cfg.DeviceID))
}

// SendIndex broadcasts a phrase index.
func (m *Messenger) SendIndex(value byte) error {
	return m.send(packet.Index(m.cfg.DeviceID, value))
}

// SendText broadcasts text. Text longer than packet.MaxDeliverableTextLen
// bytes is still sent, but cut short, and receivers drop it.
func (m *Messenger) SendText(text string) error {
	return m.send(packet.Text(m.cfg.DeviceID, text))
}

func (m *Messenger) send(env packet.Envelope) error {
	mfg := packet.Encode(env)
	if len(mfg) > packet.MaxAdvertisingDataLen-packet.FlagsSize {
		log.Printf("messenger: %s of %d bytes truncated, receivers will drop it", env.Kind, len(mfg))
	}
	adv := packet.Pack(m.cfg.Name, mfg)
	if err := m.radio.BurstAdvertise(adv, m.cfg.BurstDuration); err != nil {
		return fmt.Errorf("send %s: %w", env.Kind, err)
	}
	m.sent.Add(1)
	return nil
}

// OnIndex sets the handler for received indexes.
func (m *Messenger) OnIndex(fn func(byte)) {
	m.mu.Lock()
	m.onIndex = fn
	m.mu.Unlock()
}

// OnText sets the handler for received text.
func (m *Messenger) OnText(fn func(string)) {
	m.mu.Lock()
	m.onText = fn
	m.mu.Unlock()
}

// OnPresence sets the handler for presence announcements; it receives the
// announcing device id.
func (m *Messenger) OnPresence(fn func(byte)) {
	m.mu.Lock()
	m.onPresence = fn
	m.mu.Unlock()
}

// OnMessage sets a fallback handler for indexes (byte) and text (string)
// that have no specific handler.
func (m *Messenger) OnMessage(fn func(any)) {
	m.mu.Lock()
	m.onMessage = fn
	m.mu.Unlock()
}

// OnReceive sets an observer that sees every accepted envelope before
// the kind-specific handler runs.
func (m *Messenger) OnReceive(fn func(packet.Envelope)) {
	m.mu.Lock()
	m.onReceive = fn
	m.mu.Unlock()
}

// handleResult runs on the radio driver's goroutine.
func (m *Messenger) handleResult(r radio.Result) {
	env, ok := packet.Decode(r.Data)
	if !ok {
		m.unrecognized.Add(1)
		return
	}

	rec := dedup.Record{
		DeviceID: env.DeviceID,
		Kind:     byte(env.Kind),
		Key:      payloadKey(env),
	}
	if !m.filter.ShouldAccept(rec, m.now()) {
		m.duplicates.Add(1)
		return
	}
	m.received.Add(1)

	if err := m.sched.Schedule(m.deliver, env); err != nil {
		log.Printf("messenger: dropped %s from %d: %v", env.Kind, env.DeviceID, err)
	}
}

// payloadKey keeps index 65 and text "A" from comparing equal.
func payloadKey(env packet.Envelope) string {
	switch env.Kind {
	case packet.KindIndex:
		return "I" + strconv.Itoa(int(env.Index))
	case packet.KindText:
		return "T" + env.Text
	default:
		return ""
	}
}

// deliver runs on the main loop.
func (m *Messenger) deliver(arg any) {
	env, ok := arg.(packet.Envelope)
	if !ok {
		return
	}

	m.mu.RLock()
	onIndex, onText, onPresence, onMessage := m.onIndex, m.onText, m.onPresence, m.onMessage
	onReceive := m.onReceive
	m.mu.RUnlock()

	if onReceive != nil {
		onReceive(env)
	}

	switch env.Kind {
	case packet.KindIndex:
		if onIndex != nil {
			onIndex(env.Index)
		} else if onMessage != nil {
			onMessage(env.Index)
		}
	case packet.KindText:
		if onText != nil {
			onText(env.Text)
		} else if onMessage != nil {
			onMessage(env.Text)
		}
	case packet.KindPresence:
		if onPresence != nil {
			onPresence(env.DeviceID)
		}
	}
}

// Stats returns a snapshot of the traffic counters.
func (m *Messenger) Stats() Stats {
	return Stats{
		Sent:         m.sent.Load(),
		Received:     m.received.Load(),
		Duplicates:   m.duplicates.Load(),
		Unrecognized: m.unrecognized.Load(),
	}
}
