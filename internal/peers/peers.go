// Package peers builds a username directory on top of the messenger's text
// channel. Each text payload is "sender|target|kind|payload" where kind is
// D (discover), I (identity) or M (message) and target is "*" or a username.
package peers

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sweeney/scout-messenger/internal/packet"
	"github.com/sweeney/scout-messenger/internal/registry"
)

// UsernameKey is the registry key holding this device's username.
const UsernameKey = "msg.username"

// Broadcast is the target that addresses every peer.
const Broadcast = "*"

// Kind is the directory packet type.
type Kind byte

const (
	KindDiscover Kind = 'D'
	KindIdentity Kind = 'I'
	KindMessage  Kind = 'M'
)

// Packet is one parsed directory packet.
type Packet struct {
	Sender  string
	Target  string
	Kind    Kind
	Payload string
}

// String renders p in wire form.
func (p Packet) String() string {
	return p.Sender + "|" + p.Target + "|" + string(rune(p.Kind)) + "|" + p.Payload
}

// Parse splits a text payload. Anything without three separators, an empty
// sender or target, or an unknown kind is rejected. The payload may itself
// contain '|'.
func Parse(text string) (Packet, bool) {
	parts := strings.SplitN(text, "|", 4)
	if len(parts) != 4 || parts[0] == "" || parts[1] == "" || len(parts[2]) != 1 {
		return Packet{}, false
	}
	k := Kind(parts[2][0])
	switch k {
	case KindDiscover, KindIdentity, KindMessage:
	default:
		return Packet{}, false
	}
	return Packet{Sender: parts[0], Target: parts[1], Kind: k, Payload: parts[3]}, true
}

// Sender sends one text payload.
type Sender interface {
	SendText(text string) error
}

// Directory tracks known peers and this device's username. Peers are
// never expired.
type Directory struct {
	sender Sender
	store  registry.Store

	mu        sync.Mutex
	username  string
	known     map[string]struct{}
	onMessage func(from, text string)
}

// New creates a Directory. Call Start once the radio is scanning.
func New(s Sender, store registry.Store) *Directory {
	return &Directory{
		sender: s,
		store:  store,
		known:  make(map[string]struct{}),
	}
}

// OnMessage sets the handler for M packets addressed to "*" or to us.
func (d *Directory) OnMessage(fn func(from, text string)) {
	d.mu.Lock()
	d.onMessage = fn
	d.mu.Unlock()
}

// Username returns the current username, or "" before EnsureUsername.
func (d *Directory) Username() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.username
}

// EnsureUsername returns the persisted username, assigning and persisting
// the smallest positive integer not used by a known peer if there is none.
// A persistence failure is returned alongside the assigned name, which is
// still used for this run.
func (d *Directory) EnsureUsername() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.username != "" {
		return d.username, nil
	}
	if v, ok := d.store.Get(UsernameKey); ok && v != "" {
		d.username = v
		return v, nil
	}

	name := ""
	for n := 1; ; n++ {
		name = strconv.Itoa(n)
		if _, taken := d.known[name]; !taken {
			break
		}
	}
	d.username = name
	if err := d.store.Set(UsernameKey, name); err != nil {
		return name, fmt.Errorf("persist username: %w", err)
	}
	return name, nil
}

// Start ensures a username and broadcasts a discover packet.
func (d *Directory) Start() error {
	name, err := d.EnsureUsername()
	if err != nil {
		log.Printf("peers: %v", err)
	}
	log.Printf("peers: username=%s", name)
	return d.send(Packet{Sender: name, Target: Broadcast, Kind: KindDiscover})
}

// Send sends text to target ("*" for everyone). The whole packet must fit
// packet.MaxDeliverableTextLen, so text is cut to what is left after the
// names.
func (d *Directory) Send(target, text string) error {
	name := d.Username()
	if name == "" {
		return fmt.Errorf("peers: no username")
	}
	p := Packet{Sender: name, Target: target, Kind: KindMessage}
	room := packet.MaxDeliverableTextLen - len(p.String())
	if room < 0 {
		return fmt.Errorf("peers: names %s and %s leave no room for text", name, target)
	}
	if len(text) > room {
		log.Printf("peers: message to %s cut to %d bytes", target, room)
		text = text[:room]
	}
	p.Payload = text
	return d.send(p)
}

func (d *Directory) send(p Packet) error {
	if err := d.sender.SendText(p.String()); err != nil {
		return fmt.Errorf("peers: send %c: %w", p.Kind, err)
	}
	return nil
}

// HandleText processes a received text payload. It runs on the main loop.
func (d *Directory) HandleText(text string) {
	p, ok := Parse(text)
	if !ok {
		return
	}

	d.mu.Lock()
	self := d.username
	if p.Sender == self {
		d.mu.Unlock()
		return
	}
	if _, seen := d.known[p.Sender]; !seen {
		d.known[p.Sender] = struct{}{}
		log.Printf("peers: discovered %s", p.Sender)
	}
	onMessage := d.onMessage
	d.mu.Unlock()

	switch p.Kind {
	case KindDiscover:
		if self == "" {
			return
		}
		reply := Packet{Sender: self, Target: p.Sender, Kind: KindIdentity}
		if err := d.send(reply); err != nil {
			log.Printf("peers: identity reply to %s: %v", p.Sender, err)
		}
	case KindMessage:
		if p.Target != Broadcast && p.Target != self {
			return
		}
		if onMessage != nil {
			onMessage(p.Sender, p.Payload)
		}
	}
}

// Peers returns the known usernames, sorted.
func (d *Directory) Peers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, len(d.known))
	for name := range d.known {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
