package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/scout-messenger/internal/dispatch"
	"github.com/sweeney/scout-messenger/internal/gesture"
	"github.com/sweeney/scout-messenger/internal/gpio"
	"github.com/sweeney/scout-messenger/internal/messenger"
	"github.com/sweeney/scout-messenger/internal/mqtt"
	"github.com/sweeney/scout-messenger/internal/packet"
	"github.com/sweeney/scout-messenger/internal/peers"
	"github.com/sweeney/scout-messenger/internal/radio"
	"github.com/sweeney/scout-messenger/internal/registry"
	"github.com/sweeney/scout-messenger/internal/status"
	"github.com/sweeney/scout-messenger/internal/timer"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}

	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "Scouts")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	if info.Type != "wifi" || info.IP != "192.168.1.100" || info.SSID != "Scouts" || info.Gateway != "" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestResolveDeviceID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machine-id")
	if err := os.WriteFile(path, []byte("4c4c4544003510528059b4c04f4b32ab\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if id, src := resolveDeviceID(17, path); id != 17 || src != "flag" {
		t.Errorf("flag: got %d/%s", id, src)
	}
	if id, src := resolveDeviceID(-1, path); id != 0xab || src != "machine-id" {
		t.Errorf("machine-id: got %#x/%s", id, src)
	}
	if _, src := resolveDeviceID(-1, filepath.Join(dir, "missing")); src != "random" {
		t.Errorf("missing file: got source %s, want random", src)
	}
	if _, src := resolveDeviceID(300, filepath.Join(dir, "missing")); src != "random" {
		t.Errorf("out of range flag should be ignored, got source %s", src)
	}
}

func TestMachineIDByteInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine-id")
	for _, content := range []string{"", "a", "zz"} {
		os.WriteFile(path, []byte(content), 0o644)
		if _, err := machineIDByte(path); err == nil {
			t.Errorf("%q: expected error", content)
		}
	}
}

func TestButtonState(t *testing.T) {
	if buttonState(true) != "PRESSED" || buttonState(false) != "RELEASED" {
		t.Error("unexpected button state strings")
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// harness wires the real components to fakes at the hardware edges: the
// radio driver, both timers, the button line, the broker and the registry.
type harness struct {
	t        *testing.T
	driver   *radio.FakeDriver
	mux      *radio.Multiplexer
	burst    *timer.Fake
	press    *timer.Fake
	buttonIn *gpio.FakeWatcher
	button   *gesture.Recognizer
	msgr     *messenger.Messenger
	dir      *peers.Directory
	store    *registry.MemStore
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
	app      *app
	deps     loopDeps

	tick  chan time.Time
	sig   chan os.Signal
	errCh chan error
}

func newHarness(t *testing.T, configure func(*loopDeps)) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		driver:   radio.NewFakeDriver(),
		burst:    timer.NewFake(),
		press:    timer.NewFake(),
		buttonIn: gpio.NewFakeWatcher(nil),
		store:    registry.NewMemStore(),
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(epoch, status.Config{DeviceID: 5}),
	}
	d := dispatch.New(dispatch.DefaultQueueSize)
	h.mux = radio.New(h.driver, h.burst, radio.DefaultAdvertiseInterval)
	h.msgr = messenger.New(messenger.DefaultConfig(5), h.mux, d)
	h.dir = peers.New(h.msgr, h.store)
	h.button = gesture.New(gesture.DefaultConfig(), h.press, d)
	h.buttonIn.Watch(func(e gpio.Edge) {
		h.button.HandleEdge(gesture.Edge{Pressed: e.Pressed, At: e.At})
	})
	h.app = newApp(defaultPhrases, h.button, h.msgr, h.dir, h.pub, h.tracker, func() time.Time { return epoch })
	h.app.install()

	if err := h.mux.StartScanning(radio.DefaultScanParams()); err != nil {
		t.Fatal(err)
	}

	h.deps = loopDeps{
		app:           h.app,
		dispatcher:    d,
		radio:         h.mux,
		publisher:     h.pub,
		mqttStatus:    h.pub,
		tracker:       h.tracker,
		session:       "test-session",
		discoverAfter: time.Hour,
		now:           fakeClock(epoch, 100*time.Millisecond),
	}
	if configure != nil {
		configure(&h.deps)
	}
	return h
}

func (h *harness) start() {
	h.tick = make(chan time.Time)
	h.sig = make(chan os.Signal, 1)
	h.errCh = make(chan error, 1)
	go func() {
		h.errCh <- runLoop(h.deps, h.tick, h.sig)
	}()
}

// step runs one loop iteration to completion. The second send only
// succeeds once the loop is back in its select.
func (h *harness) step() {
	h.tick <- time.Time{}
	h.tick <- time.Time{}
}

func (h *harness) stop(s os.Signal) {
	h.t.Helper()
	h.sig <- s
	if err := <-h.errCh; err != nil {
		h.t.Fatalf("runLoop returned error: %v", err)
	}
}

// tap presses and releases the button, both in milliseconds.
func (h *harness) tap(downMs, upMs int) {
	h.buttonIn.Emit(gpio.Edge{Pressed: true, At: time.Duration(downMs) * time.Millisecond})
	h.buttonIn.Emit(gpio.Edge{Pressed: false, At: time.Duration(upMs) * time.Millisecond})
}

// endBurst lets the current advertising burst expire so scanning resumes.
func (h *harness) endBurst() {
	h.t.Helper()
	if !h.burst.Fire() {
		h.t.Fatal("no burst pending")
	}
}

func (h *harness) hear(env packet.Envelope) {
	h.t.Helper()
	adv := packet.Pack(messenger.DefaultName, packet.Encode(env))
	if !h.driver.InjectResult(radio.Result{Address: "aa:bb:cc:dd:ee:ff", Data: adv}) {
		h.t.Fatal("radio not scanning")
	}
}

func (h *harness) lastAdvertised() packet.Envelope {
	h.t.Helper()
	if len(h.driver.Advertised) == 0 {
		h.t.Fatal("nothing advertised")
	}
	env, ok := packet.Decode(h.driver.Advertised[len(h.driver.Advertised)-1])
	if !ok {
		h.t.Fatal("advertised packet does not decode")
	}
	return env
}

func (h *harness) eventsOf(typ mqtt.EventType) []mqtt.Event {
	var out []mqtt.Event
	for _, e := range h.pub.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestRunLoopLongPressSendsPhraseIndex(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.tap(1000, 1600)
	h.step()
	h.stop(syscall.SIGTERM)

	env := h.lastAdvertised()
	if env.Kind != packet.KindIndex || env.Index != 0 || env.DeviceID != 5 {
		t.Errorf("advertised %+v, want index 0 from device 5", env)
	}
	if g := h.eventsOf(mqtt.EventGesture); len(g) != 1 || g[0].Gesture != "LONG_PRESS" {
		t.Errorf("gesture events: %+v", g)
	}
	if s := h.eventsOf(mqtt.EventSent); len(s) != 1 || s[0].Kind != "INDEX" || s[0].Index != 0 {
		t.Errorf("sent events: %+v", s)
	}
}

func TestRunLoopClickAdvancesPhrase(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.tap(1000, 1100)
	if !h.press.Fire() {
		t.Fatal("double-click window not armed")
	}
	h.tap(3000, 3700)
	h.step()
	h.stop(syscall.SIGTERM)

	env := h.lastAdvertised()
	if env.Kind != packet.KindIndex || env.Index != 1 {
		t.Errorf("advertised %+v, want index 1", env)
	}
	snap := h.tracker.Snapshot()
	if snap.Phrase != "Yes" || snap.Mode != modeMenu {
		t.Errorf("menu: %q/%q", snap.Phrase, snap.Mode)
	}
	if snap.Gestures.Click != 1 || snap.Gestures.LongPress != 1 {
		t.Errorf("counts: %+v", snap.Gestures)
	}
}

func TestRunLoopReceivedIndexShown(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.hear(packet.Index(9, 1))
	h.hear(packet.Index(9, 1)) // radio-layer repeat
	h.step()
	h.stop(syscall.SIGTERM)

	snap := h.tracker.Snapshot()
	if snap.LastMessage == nil || snap.LastMessage.Text != "Msg Yes" || snap.LastMessage.From != "9" {
		t.Errorf("last message: %+v", snap.LastMessage)
	}
	rx := h.eventsOf(mqtt.EventReceived)
	if len(rx) != 1 || rx[0].DeviceID != 9 || rx[0].Index != 1 {
		t.Errorf("received events: %+v", rx)
	}
	if snap.Messages.Duplicates != 1 {
		t.Errorf("duplicates: got %d, want 1", snap.Messages.Duplicates)
	}
}

func TestRunLoopUnknownIndexShownByNumber(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.hear(packet.Index(9, 200))
	h.step()
	h.stop(syscall.SIGTERM)

	if m := h.tracker.Snapshot().LastMessage; m == nil || m.Text != "Msg #200" {
		t.Errorf("last message: %+v", m)
	}
}

func TestRunLoopDiscoverAndIdentityReply(t *testing.T) {
	h := newHarness(t, func(d *loopDeps) { d.discoverAfter = 0 })
	h.start()

	h.step()
	if env := h.lastAdvertised(); env.Kind != packet.KindText || env.Text != "1|*|D|" {
		t.Fatalf("discover: advertised %+v", env)
	}
	h.endBurst()

	h.hear(packet.Text(7, "2|*|D|"))
	h.step()
	h.stop(syscall.SIGTERM)

	if env := h.lastAdvertised(); env.Text != "1|2|I|" {
		t.Errorf("identity reply: advertised %q", env.Text)
	}
	snap := h.tracker.Snapshot()
	if snap.Username != "1" || len(snap.Peers) != 1 || snap.Peers[0] != "2" {
		t.Errorf("directory: %q %v", snap.Username, snap.Peers)
	}
	if v, _ := h.store.Get(peers.UsernameKey); v != "1" {
		t.Errorf("username not persisted: %q", v)
	}
}

func TestRunLoopDoubleClickWithoutPeersBroadcasts(t *testing.T) {
	h := newHarness(t, func(d *loopDeps) { d.discoverAfter = 0 })
	h.start()
	h.step()
	h.endBurst()

	h.tap(1000, 1100)
	h.buttonIn.Emit(gpio.Edge{Pressed: true, At: 1300 * time.Millisecond})
	h.step()
	h.stop(syscall.SIGTERM)

	if env := h.lastAdvertised(); env.Text != "1|*|M|Hello" {
		t.Errorf("advertised %q", env.Text)
	}
	if h.button.Depth() != 1 {
		t.Errorf("no peer mode expected without peers, depth %d", h.button.Depth())
	}
}

func TestRunLoopPeerSelectSendsDirect(t *testing.T) {
	h := newHarness(t, func(d *loopDeps) { d.discoverAfter = 0 })
	h.start()
	h.step()
	h.endBurst()

	h.hear(packet.Text(7, "2|*|I|"))
	h.hear(packet.Text(8, "3|*|I|"))
	h.step()

	// Double click enters peer selection
	h.tap(1000, 1100)
	h.buttonIn.Emit(gpio.Edge{Pressed: true, At: 1300 * time.Millisecond})
	h.buttonIn.Emit(gpio.Edge{Pressed: false, At: 1400 * time.Millisecond})
	h.step()
	if got := h.tracker.Snapshot().Mode; got != modePeerSelect {
		t.Fatalf("mode: got %q, want %q", got, modePeerSelect)
	}

	// Click selects the second peer, long press sends to it
	h.tap(3000, 3100)
	h.press.Fire()
	h.tap(5000, 5800)
	h.step()
	h.stop(syscall.SIGTERM)

	if env := h.lastAdvertised(); env.Text != "1|3|M|Hello" {
		t.Errorf("advertised %q, want direct message to 3", env.Text)
	}
	if h.button.Depth() != 1 {
		t.Errorf("peer mode not left, depth %d", h.button.Depth())
	}
	if got := h.tracker.Snapshot().Mode; got != modeMenu {
		t.Errorf("mode: got %q, want menu", got)
	}
}

func TestRunLoopPeerSelectCancel(t *testing.T) {
	h := newHarness(t, func(d *loopDeps) { d.discoverAfter = 0 })
	h.start()
	h.step()
	h.endBurst()

	h.hear(packet.Text(7, "2|*|I|"))
	h.step()

	h.tap(1000, 1100)
	h.buttonIn.Emit(gpio.Edge{Pressed: true, At: 1300 * time.Millisecond})
	h.buttonIn.Emit(gpio.Edge{Pressed: false, At: 1400 * time.Millisecond})
	h.step()

	sent := len(h.driver.Advertised)
	h.tap(3000, 3100)
	h.buttonIn.Emit(gpio.Edge{Pressed: true, At: 3300 * time.Millisecond})
	h.step()
	h.stop(syscall.SIGTERM)

	if len(h.driver.Advertised) != sent {
		t.Error("cancel must not send")
	}
	if h.button.Depth() != 1 {
		t.Errorf("depth %d after cancel", h.button.Depth())
	}
}

func TestRunLoopChatShown(t *testing.T) {
	h := newHarness(t, func(d *loopDeps) { d.discoverAfter = 0 })
	h.start()
	h.step()
	h.endBurst()

	h.hear(packet.Text(7, "2|*|M|Hi all"))
	h.hear(packet.Text(7, "2|1|M|Hi you"))
	h.hear(packet.Text(7, "2|4|M|Not me"))
	h.step()
	h.stop(syscall.SIGTERM)

	chats := h.eventsOf(mqtt.EventChat)
	if len(chats) != 2 || chats[0].Text != "Hi all" || chats[1].Text != "Hi you" || chats[1].From != "2" {
		t.Errorf("chat events: %+v", chats)
	}
	if m := h.tracker.Snapshot().LastMessage; m == nil || m.Text != "RX: Hi you" {
		t.Errorf("last message: %+v", m)
	}
}

func TestRunLoopPlainTextShown(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.hear(packet.Text(7, "HELLO"))
	h.step()
	h.stop(syscall.SIGTERM)

	if m := h.tracker.Snapshot().LastMessage; m == nil || m.Text != "RX: HELLO" || m.From != "7" {
		t.Errorf("last message: %+v", m)
	}
}

func TestRunLoopPresenceReannounce(t *testing.T) {
	// Clock advances 100ms per call; 2 calls per step.
	h := newHarness(t, func(d *loopDeps) { d.presence = time.Second })
	h.start()

	for i := 0; i < 6; i++ {
		h.step()
		if h.burst.Active() {
			h.endBurst()
		}
	}
	h.stop(syscall.SIGTERM)

	n := 0
	for _, adv := range h.driver.Advertised {
		if env, ok := packet.Decode(adv); ok && env.Kind == packet.KindPresence {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected 1 presence in 1.2s of ticks, got %d", n)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	h := newHarness(t, func(d *loopDeps) { d.heartbeat = 500 * time.Millisecond })
	h.start()

	for i := 0; i < 5; i++ {
		h.step()
	}
	h.stop(syscall.SIGTERM)

	var beats int
	for _, e := range h.pub.SystemEvents {
		if e.Event == "HEARTBEAT" {
			beats++
			if !strings.Contains(string(e.RawPayload), `"event":"HEARTBEAT"`) {
				t.Errorf("heartbeat payload missing status: %s", e.RawPayload)
			}
		}
	}
	if beats != 2 {
		t.Errorf("expected 2 heartbeats over 1s, got %d", beats)
	}
}

func TestRunLoopShutdownSignals(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			h := newHarness(t, nil)
			h.start()
			h.step()
			h.stop(tt.sig)

			last := h.pub.SystemEvents[len(h.pub.SystemEvents)-1]
			if last.Event != "SHUTDOWN" || last.Reason != tt.want || !last.Retained {
				t.Errorf("shutdown event: %+v", last)
			}
			payload := string(last.RawPayload)
			if !strings.Contains(payload, `"reason":"`+tt.want+`"`) {
				t.Errorf("shutdown payload: %s", payload)
			}
		})
	}
}

func TestRunLoopShutdownDrainsPending(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.tap(1000, 1600)
	h.stop(syscall.SIGTERM)

	if len(h.eventsOf(mqtt.EventGesture)) != 1 {
		t.Error("gesture queued before shutdown was not delivered")
	}
}

func TestRunLoopPublishErrorKeepsRunning(t *testing.T) {
	h := newHarness(t, nil)
	h.pub.PublishError = errors.New("broker down")
	h.pub.PublishSystemError = errors.New("broker down")
	h.start()

	h.tap(1000, 1600)
	h.step()
	h.stop(syscall.SIGTERM)

	if env := h.lastAdvertised(); env.Kind != packet.KindIndex {
		t.Errorf("send should not depend on the broker, advertised %+v", env)
	}
}

func TestRunLoopTrackerReflectsRadio(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.tap(1000, 1600)
	h.step()
	if got := h.tracker.Snapshot().Radio; got != radio.ModeAdvertising {
		t.Errorf("during burst: got %s", got)
	}
	h.endBurst()
	h.step()
	h.stop(syscall.SIGTERM)

	if got := h.tracker.Snapshot().Radio; got != radio.ModeScanning {
		t.Errorf("after burst: got %s", got)
	}
	if got := h.tracker.Snapshot().Messages.Sent; got != 1 {
		t.Errorf("sent: got %d", got)
	}
}

func TestDefaultPhrasesDeliveredWhole(t *testing.T) {
	a := newHarness(t, nil)
	b := newHarness(t, nil)
	if _, err := a.dir.EnsureUsername(); err != nil {
		t.Fatal(err)
	}
	b.store.Set(peers.UsernameKey, "2")
	if _, err := b.dir.EnsureUsername(); err != nil {
		t.Fatal(err)
	}

	var want []string
	for _, target := range []string{"2", peers.Broadcast} {
		for _, phrase := range defaultPhrases {
			if err := a.dir.Send(target, phrase); err != nil {
				t.Fatalf("send %q: %v", phrase, err)
			}
			adv := a.driver.Advertised[len(a.driver.Advertised)-1]
			a.endBurst()
			if !b.driver.InjectResult(radio.Result{Address: "aa:bb:cc:dd:ee:ff", Data: adv}) {
				t.Fatal("receiver not scanning")
			}
			b.deps.dispatcher.Drain()
			want = append(want, phrase)
		}
	}

	chats := b.eventsOf(mqtt.EventChat)
	if len(chats) != len(want) {
		t.Fatalf("delivered %d of %d phrases", len(chats), len(want))
	}
	for i, c := range chats {
		if c.Text != want[i] || c.From != "1" {
			t.Errorf("chat %d: got %q from %s, want %q", i, c.Text, c.From, want[i])
		}
	}
}
