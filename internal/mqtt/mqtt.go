// Package mqtt bridges messenger activity to an MQTT broker so other
// systems can follow button gestures and radio traffic.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topic is the MQTT topic for gesture and message events.
const Topic = "scout/messenger/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "scout/messenger/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a messenger event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EventType classifies a messenger event.
type EventType string

const (
	EventGesture  EventType = "GESTURE"
	EventSent     EventType = "SENT"
	EventReceived EventType = "RECEIVED"
	EventChat     EventType = "CHAT" // directory message addressed to us
)

// Event is one thing that happened on the device.
type Event struct {
	Timestamp time.Time
	Type      EventType
	DeviceID  byte   // sender for RECEIVED, this device otherwise
	Gesture   string // GESTURE only: CLICK, DOUBLE_CLICK, LONG_PRESS
	Kind      string // SENT/RECEIVED: PRESENCE, INDEX, TEXT
	Index     int    // INDEX only
	Text      string // TEXT and CHAT
	From      string // CHAT only: sender username
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Session    string // random id per process run
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Messenger EventPayload `json:"messenger"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Device    int    `json:"device"`
	Gesture   string `json:"gesture,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Index     *int   `json:"index,omitempty"`
	Text      string `json:"text,omitempty"`
	From      string `json:"from,omitempty"`
}

// FormatPayload creates the JSON payload for a messenger event.
func FormatPayload(event Event) ([]byte, error) {
	inner := EventPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Device:    int(event.DeviceID),
		Gesture:   event.Gesture,
		Kind:      event.Kind,
		Text:      event.Text,
		From:      event.From,
	}
	if event.Kind == "INDEX" {
		idx := event.Index
		inner.Index = &idx
	}
	return json.Marshal(Payload{Messenger: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Session   string `json:"session,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Session:   event.Session,
		},
	}
	return json.Marshal(payload)
}

// Format selects the wire encoding of published payloads.
type Format string

const (
	FormatJSON  Format = "json"
	FormatProto Format = "proto"
)

// ParseFormat validates a --payload-format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatProto:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown payload format %q (want json or proto)", s)
}

// Event encodes a messenger event in format f.
func (f Format) Event(event Event) ([]byte, error) {
	if f == FormatProto {
		return FormatProtoPayload(event)
	}
	return FormatPayload(event)
}

// System encodes a system event in format f.
func (f Format) System(event SystemEvent) ([]byte, error) {
	if f == FormatProto {
		return FormatProtoSystemPayload(event)
	}
	return FormatSystemPayload(event)
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error             { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
