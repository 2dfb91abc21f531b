// Package packet encodes and decodes messenger events carried in the
// manufacturer-specific field of a BLE advertisement.
//
// Manufacturer data layout (little-endian):
//
//	CompanyID(2) | Magic(4) | DeviceID(1) | Kind(1) | Payload(1-21)
//
// Payload is one reserved byte for Presence, the value for Index, and a
// length byte followed by at most 20 ASCII bytes for Text.
package packet

import "fmt"

// Kind is the event carried by an envelope.
type Kind byte

const (
	KindPresence Kind = 1
	KindIndex    Kind = 2
	KindText     Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindPresence:
		return "PRESENCE"
	case KindIndex:
		return "INDEX"
	case KindText:
		return "TEXT"
	default:
		return fmt.Sprintf("KIND(%d)", byte(k))
	}
}

// Envelope is one decoded messenger event.
type Envelope struct {
	DeviceID byte
	Kind     Kind
	Index    byte   // KindIndex only
	Text     string // KindText only
}

// Presence builds a presence envelope.
func Presence(dev byte) Envelope {
	return Envelope{DeviceID: dev, Kind: KindPresence}
}

// Index builds an index envelope.
func Index(dev, value byte) Envelope {
	return Envelope{DeviceID: dev, Kind: KindIndex, Index: value}
}

// Text builds a text envelope. Encoding clamps the text to MaxTextLen.
func Text(dev byte, s string) Envelope {
	return Envelope{DeviceID: dev, Kind: KindText, Text: s}
}
