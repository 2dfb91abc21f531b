package main

import (
	"log"
	"strconv"
	"time"

	"github.com/sweeney/scout-messenger/internal/gesture"
	"github.com/sweeney/scout-messenger/internal/messenger"
	"github.com/sweeney/scout-messenger/internal/mqtt"
	"github.com/sweeney/scout-messenger/internal/packet"
	"github.com/sweeney/scout-messenger/internal/peers"
	"github.com/sweeney/scout-messenger/internal/status"
)

// defaultPhrases is the menu. A phrase's position is what SendIndex carries,
// so every device must use the same list. Phrases stay within 11 bytes so a
// direct message between single-digit usernames arrives whole.
var defaultPhrases = []string{
	"Hello",
	"Yes",
	"No",
	"Bye",
	"Maybe",
	"Thank you",
	"Great!",
	"Where r u?",
	"On my way",
	"I'm ready",
}

const (
	modeMenu       = "menu"
	modePeerSelect = "peer-select"
)

// app is the phrase menu driven by the button.
//
// Menu mode: click selects the next phrase, long press broadcasts its index,
// double click enters peer selection. Peer selection: click selects the next
// peer, long press sends the phrase to that peer, double click cancels.
// With no known peers a double click sends the phrase to everyone.
//
// All methods run on the main loop.
type app struct {
	phrases  []string
	deviceID byte
	button   *gesture.Recognizer
	msgr     *messenger.Messenger
	dir      *peers.Directory
	pub      mqtt.Publisher
	tracker  *status.Tracker
	now      func() time.Time

	current    int
	mode       string
	peerList   []string
	peerIdx    int
	lastSender byte
}

func newApp(phrases []string, button *gesture.Recognizer, msgr *messenger.Messenger, dir *peers.Directory, pub mqtt.Publisher, tracker *status.Tracker, now func() time.Time) *app {
	return &app{
		phrases:  phrases,
		deviceID: msgr.DeviceID(),
		button:   button,
		msgr:     msgr,
		dir:      dir,
		pub:      pub,
		tracker:  tracker,
		now:      now,
	}
}

// install registers all button and radio handlers.
func (a *app) install() {
	a.button.SetHandlers(gesture.Handlers{
		OnClick:       a.gesture(gesture.Click, a.nextPhrase),
		OnLongPress:   a.gesture(gesture.LongPress, a.sendPhraseIndex),
		OnDoubleClick: a.gesture(gesture.DoubleClick, a.enterPeerSelect),
	})
	a.msgr.OnReceive(a.received)
	a.msgr.OnIndex(a.showIndex)
	a.msgr.OnText(a.handleText)
	a.msgr.OnPresence(a.notePresence)
	a.dir.OnMessage(a.showChat)
	a.setMode(modeMenu)
}

// gesture wraps fn so every gesture is also published.
func (a *app) gesture(kind gesture.Kind, fn func()) func() {
	return func() {
		a.publish(mqtt.Event{Type: mqtt.EventGesture, DeviceID: a.deviceID, Gesture: string(kind)})
		fn()
	}
}

func (a *app) phrase() string {
	return a.phrases[a.current]
}

func (a *app) setMode(mode string) {
	a.mode = mode
	if a.tracker != nil {
		a.tracker.SetMenu(a.phrase(), mode)
	}
}

func (a *app) nextPhrase() {
	a.current = (a.current + 1) % len(a.phrases)
	log.Printf("menu: phrase %d %q", a.current, a.phrase())
	a.setMode(a.mode)
}

func (a *app) sendPhraseIndex() {
	if err := a.msgr.SendIndex(byte(a.current)); err != nil {
		log.Printf("menu: send index %d: %v", a.current, err)
		return
	}
	log.Printf("menu: sent index %d %q", a.current, a.phrase())
	a.publish(mqtt.Event{Type: mqtt.EventSent, DeviceID: a.deviceID, Kind: packet.KindIndex.String(), Index: a.current})
}

func (a *app) enterPeerSelect() {
	a.peerList = a.dir.Peers()
	if len(a.peerList) == 0 {
		a.sendChat(peers.Broadcast)
		return
	}
	a.peerIdx = 0
	a.button.Push(gesture.Handlers{
		OnClick:       a.gesture(gesture.Click, a.nextPeer),
		OnLongPress:   a.gesture(gesture.LongPress, a.sendToPeer),
		OnDoubleClick: a.gesture(gesture.DoubleClick, a.leavePeerSelect),
	})
	a.setMode(modePeerSelect)
	log.Printf("menu: select peer, %s of %d", a.peerList[0], len(a.peerList))
}

func (a *app) nextPeer() {
	a.peerIdx = (a.peerIdx + 1) % len(a.peerList)
	log.Printf("menu: peer %s", a.peerList[a.peerIdx])
}

func (a *app) sendToPeer() {
	a.sendChat(a.peerList[a.peerIdx])
	a.leavePeerSelect()
}

func (a *app) leavePeerSelect() {
	a.button.Pop()
	a.setMode(modeMenu)
}

func (a *app) sendChat(target string) {
	if err := a.dir.Send(target, a.phrase()); err != nil {
		log.Printf("menu: send to %s: %v", target, err)
		return
	}
	log.Printf("menu: sent %q to %s", a.phrase(), target)
	a.publish(mqtt.Event{Type: mqtt.EventSent, DeviceID: a.deviceID, Kind: packet.KindText.String(), Text: a.phrase()})
}

// received runs before the kind-specific handlers.
func (a *app) received(env packet.Envelope) {
	a.lastSender = env.DeviceID
	e := mqtt.Event{Type: mqtt.EventReceived, DeviceID: env.DeviceID, Kind: env.Kind.String()}
	switch env.Kind {
	case packet.KindIndex:
		e.Index = int(env.Index)
	case packet.KindText:
		e.Text = env.Text
	}
	a.publish(e)
}

func (a *app) showIndex(v byte) {
	text := "Msg #" + strconv.Itoa(int(v))
	if int(v) < len(a.phrases) {
		text = "Msg " + a.phrases[v]
	}
	a.show(text, strconv.Itoa(int(a.lastSender)))
}

// handleText routes directory packets to the directory and shows the rest.
func (a *app) handleText(text string) {
	if _, ok := peers.Parse(text); ok {
		a.dir.HandleText(text)
		return
	}
	a.show("RX: "+text, strconv.Itoa(int(a.lastSender)))
}

func (a *app) showChat(from, text string) {
	a.show("RX: "+text, from)
	a.publish(mqtt.Event{Type: mqtt.EventChat, DeviceID: a.lastSender, Text: text, From: from})
}

func (a *app) notePresence(dev byte) {
	log.Printf("messenger: presence from device %d", dev)
}

func (a *app) show(text, from string) {
	log.Printf("display: %s (from %s)", text, from)
	if a.tracker != nil {
		a.tracker.SetLastMessage(status.Message{Text: text, From: from, At: a.now()})
	}
}

func (a *app) publish(e mqtt.Event) {
	e.Timestamp = a.now()
	if err := a.pub.Publish(e); err != nil {
		log.Printf("publish error: %v", err)
	}
}
