package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// DefaultBufferSize is how many messages are kept while the broker is unreachable.
const DefaultBufferSize = 100

// Config configures a RealPublisher.
type Config struct {
	Broker     string
	ClientID   string // empty picks "scout-messenger-<random>"
	Session    string // stamped on the will message
	Format     Format
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed, oldest first,
// when it comes back.
type RealPublisher struct {
	client paho.Client
	format Format

	mu        sync.Mutex
	buffer    *ringBuffer
	connected bool // has connected at least once
	session   string
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It does not wait for the broker.
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "scout-messenger-" + uuid.NewString()[:8]
	}

	will, err := cfg.Format.System(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
		Session:   cfg.Session,
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	p := &RealPublisher{
		format:  cfg.Format,
		buffer:  newRingBuffer(cfg.BufferSize),
		session: cfg.Session,
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected, replaying %d buffered messages", len(pending))
		payload, err := p.format.System(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED", Session: p.session})
		if err == nil {
			c.Publish(TopicSystem, 1, false, payload)
		}
	} else {
		log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	}

	for _, m := range pending {
		// Don't wait; this runs on paho's connection goroutine.
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// Publish sends a messenger event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := p.format.Event(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	if event.Session == "" {
		event.Session = p.session
	}
	payload, err := p.format.System(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(m)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		p.mu.Lock()
		p.buffer.push(m)
		p.mu.Unlock()
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Buffered returns how many messages are waiting for the broker.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
