package gesture

import (
	"testing"
	"time"

	"github.com/sweeney/scout-messenger/internal/dispatch"
	"github.com/sweeney/scout-messenger/internal/timer"
)

var testConfig = Config{
	Debounce:    80 * time.Millisecond,
	LongPress:   500 * time.Millisecond,
	DoubleClick: 500 * time.Millisecond,
}

type harness struct {
	r   *Recognizer
	tm  *timer.Fake
	d   *dispatch.Dispatcher
	got []Kind
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tm: timer.NewFake(),
		d:  dispatch.New(16),
	}
	h.r = New(testConfig, h.tm, h.d)
	h.r.SetHandlers(Handlers{
		OnClick:       func() { h.got = append(h.got, Click) },
		OnDoubleClick: func() { h.got = append(h.got, DoubleClick) },
		OnLongPress:   func() { h.got = append(h.got, LongPress) },
	})
	return h
}

func (h *harness) press(ms int) {
	h.r.HandleEdge(Edge{Pressed: true, At: time.Duration(ms) * time.Millisecond})
}

func (h *harness) release(ms int) {
	h.r.HandleEdge(Edge{Pressed: false, At: time.Duration(ms) * time.Millisecond})
}

func (h *harness) drain() []Kind {
	h.d.Drain()
	return h.got
}

func TestLongPress(t *testing.T) {
	for _, held := range []int{500, 501, 2000} {
		h := newHarness(t)
		h.press(1000)
		h.release(1000 + held)

		got := h.drain()
		if len(got) != 1 || got[0] != LongPress {
			t.Errorf("held %dms: expected [LONG_PRESS], got %v", held, got)
		}
		if h.tm.Active() {
			t.Errorf("held %dms: double-click timer should not be armed", held)
		}
		if h.tm.Fire() {
			t.Errorf("held %dms: nothing should be pending", held)
		}
		if got := h.drain(); len(got) != 1 {
			t.Errorf("held %dms: expected no further gestures, got %v", held, got)
		}
		if h.r.State() != StateIdle {
			t.Errorf("held %dms: expected IDLE, got %s", held, h.r.State())
		}
	}
}

func TestClickAfterDoubleClickWindow(t *testing.T) {
	h := newHarness(t)
	h.press(1000)
	h.release(1100)

	if got := h.drain(); len(got) != 0 {
		t.Fatalf("click must wait for the double-click window, got %v", got)
	}
	if h.r.State() != StateAwaiting {
		t.Errorf("expected AWAITING_DOUBLE, got %s", h.r.State())
	}
	if !h.tm.Active() {
		t.Fatal("expected double-click timer armed")
	}
	if h.tm.Duration() != testConfig.DoubleClick {
		t.Errorf("timer duration: got %v, want %v", h.tm.Duration(), testConfig.DoubleClick)
	}

	h.tm.Fire()
	got := h.drain()
	if len(got) != 1 || got[0] != Click {
		t.Errorf("expected [CLICK], got %v", got)
	}
	if h.r.State() != StateIdle {
		t.Errorf("expected IDLE, got %s", h.r.State())
	}
}

func TestDoubleClickOnSecondPress(t *testing.T) {
	h := newHarness(t)
	h.press(1000)
	h.release(1100)
	h.press(1300)

	got := h.drain()
	if len(got) != 1 || got[0] != DoubleClick {
		t.Fatalf("expected [DOUBLE_CLICK] on second press, got %v", got)
	}
	if h.tm.Active() {
		t.Error("double-click should cancel the pending click timer")
	}
	if h.r.State() != StateIdle {
		t.Errorf("second press must not enter PRESSED, got %s", h.r.State())
	}

	// Second tap's release is ignored, even if held long.
	h.release(2000)
	h.tm.Fire()
	if got := h.drain(); len(got) != 1 {
		t.Errorf("expected no further gestures, got %v", got)
	}

	c := h.r.Counts()
	if c.DoubleClick != 1 || c.Click != 0 || c.LongPress != 0 {
		t.Errorf("unexpected counts: %+v", c)
	}
}

func TestStaleTimerExpiryIgnored(t *testing.T) {
	h := newHarness(t)
	h.press(1000)
	h.release(1100) // arms generation 1
	h.press(1300)   // double click, abandons generation 1
	h.drain()

	h.r.expire(1)
	if got := h.drain(); len(got) != 1 {
		t.Errorf("stale expiry produced a gesture: %v", got)
	}
}

func TestDebounceIgnoresBounces(t *testing.T) {
	h := newHarness(t)
	h.press(1000)
	h.release(1030) // bounce: 30ms after accepted press
	if h.r.State() != StatePressed {
		t.Fatalf("bounce release changed state to %s", h.r.State())
	}

	h.release(1100)
	if h.r.State() != StateAwaiting {
		t.Fatalf("expected AWAITING_DOUBLE, got %s", h.r.State())
	}

	h.press(1120) // bounce: 20ms after accepted release
	if h.r.State() != StateAwaiting {
		t.Fatalf("bounce press changed state to %s", h.r.State())
	}
	if got := h.drain(); len(got) != 0 {
		t.Errorf("bounce produced a gesture: %v", got)
	}

	h.tm.Fire()
	if got := h.drain(); len(got) != 1 || got[0] != Click {
		t.Errorf("expected [CLICK], got %v", got)
	}
}

func TestDebounceBoundary(t *testing.T) {
	h := newHarness(t)
	h.press(1000)
	h.release(1079)
	if h.r.State() != StatePressed {
		t.Errorf("edge 79ms after accepted edge should be dropped, state %s", h.r.State())
	}
	h.release(1080)
	if h.r.State() != StateAwaiting {
		t.Errorf("edge exactly one debounce window later should be accepted, state %s", h.r.State())
	}
}

func TestStrayAndOutOfOrderEdges(t *testing.T) {
	h := newHarness(t)

	// Release with no press
	h.release(1000)
	if h.r.State() != StateIdle {
		t.Errorf("stray release changed state to %s", h.r.State())
	}

	// Two presses with no release: the second is ignored, down time kept
	h.press(2000)
	h.press(2200)
	h.release(2550)
	got := h.drain()
	if len(got) != 1 || got[0] != LongPress {
		t.Errorf("expected [LONG_PRESS] measured from first press, got %v", got)
	}

	// Timestamp going backwards is dropped
	h.press(1500)
	if h.r.State() != StateIdle {
		t.Errorf("backwards edge changed state to %s", h.r.State())
	}
}

func TestNilHandlersAreSkipped(t *testing.T) {
	tm := timer.NewFake()
	d := dispatch.New(4)
	r := New(testConfig, tm, d)

	r.HandleEdge(Edge{Pressed: true, At: time.Second})
	r.HandleEdge(Edge{Pressed: false, At: 2 * time.Second})

	if n := d.Drain(); n != 1 {
		t.Errorf("expected 1 deferred gesture, got %d", n)
	}
	if r.Counts().LongPress != 1 {
		t.Errorf("expected LongPress count 1, got %d", r.Counts().LongPress)
	}
}

func TestHandlerStack(t *testing.T) {
	h := newHarness(t)
	var overlay []Kind

	h.r.Push(Handlers{
		OnClick: func() { overlay = append(overlay, Click) },
	})
	if h.r.Depth() != 2 {
		t.Errorf("Depth: got %d, want 2", h.r.Depth())
	}

	h.press(1000)
	h.release(1100)
	h.tm.Fire()
	h.drain()

	if len(overlay) != 1 || len(h.got) != 0 {
		t.Fatalf("expected click routed to pushed set, overlay=%v base=%v", overlay, h.got)
	}

	if !h.r.Pop() {
		t.Fatal("Pop should succeed")
	}
	if h.r.Pop() {
		t.Error("popping the base set should fail")
	}

	h.press(3000)
	h.release(3100)
	h.tm.Fire()
	h.drain()
	if len(h.got) != 1 || h.got[0] != Click {
		t.Errorf("expected click on restored base set, got %v", h.got)
	}
}

func TestHandlersResolvedAtDelivery(t *testing.T) {
	h := newHarness(t)
	var overlay []Kind

	h.press(1000)
	h.release(1700) // long press queued

	h.r.Push(Handlers{OnLongPress: func() { overlay = append(overlay, LongPress) }})
	h.drain()

	if len(overlay) != 1 || len(h.got) != 0 {
		t.Errorf("expected gesture delivered to set active at drain time, overlay=%v base=%v", overlay, h.got)
	}
}

func TestSlotSetters(t *testing.T) {
	tm := timer.NewFake()
	d := dispatch.New(4)
	r := New(testConfig, tm, d)

	var got []Kind
	r.OnClick(func() { got = append(got, Click) })
	r.OnDoubleClick(func() { got = append(got, DoubleClick) })
	r.OnLongPress(func() { got = append(got, LongPress) })

	r.HandleEdge(Edge{Pressed: true, At: time.Second})
	r.HandleEdge(Edge{Pressed: false, At: time.Second + 100*time.Millisecond})
	r.HandleEdge(Edge{Pressed: true, At: time.Second + 300*time.Millisecond})
	d.Drain()

	if len(got) != 1 || got[0] != DoubleClick {
		t.Errorf("expected [DOUBLE_CLICK], got %v", got)
	}
}

func TestClickWithRealTimer(t *testing.T) {
	cfg := Config{Debounce: 5 * time.Millisecond, LongPress: time.Second, DoubleClick: 20 * time.Millisecond}
	d := dispatch.New(4)
	r := New(cfg, timer.New(), d)

	clicks := 0
	r.OnClick(func() { clicks++ })

	r.HandleEdge(Edge{Pressed: true, At: 0})
	r.HandleEdge(Edge{Pressed: false, At: 50 * time.Millisecond})

	deadline := time.Now().Add(time.Second)
	for clicks == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		d.Drain()
	}
	if clicks != 1 {
		t.Errorf("expected 1 click, got %d", clicks)
	}
}

func TestSynchronousHandlersCanQueryRecognizer(t *testing.T) {
	tm := timer.NewFake()
	r := New(testConfig, tm, dispatch.New(1, dispatch.Synchronous()))

	var seen []Counts
	var states []State
	r.OnLongPress(func() {
		seen = append(seen, r.Counts())
		states = append(states, r.State())
	})
	r.OnClick(func() { seen = append(seen, r.Counts()) })
	r.OnDoubleClick(func() {
		// Feeding an edge from a handler must not block either
		r.HandleEdge(Edge{Pressed: false, At: 5 * time.Second})
		seen = append(seen, r.Counts())
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.HandleEdge(Edge{Pressed: true, At: time.Second})
		r.HandleEdge(Edge{Pressed: false, At: 2 * time.Second})

		r.HandleEdge(Edge{Pressed: true, At: 3 * time.Second})
		r.HandleEdge(Edge{Pressed: false, At: 3100 * time.Millisecond})
		tm.Fire()

		r.HandleEdge(Edge{Pressed: true, At: 4 * time.Second})
		r.HandleEdge(Edge{Pressed: false, At: 4100 * time.Millisecond})
		r.HandleEdge(Edge{Pressed: true, At: 4300 * time.Millisecond})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler blocked on the recognizer")
	}

	want := []Counts{
		{LongPress: 1},
		{LongPress: 1, Click: 1},
		{LongPress: 1, Click: 1, DoubleClick: 1},
	}
	if len(seen) != len(want) {
		t.Fatalf("handlers saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("call %d: got %+v, want %+v", i, seen[i], want[i])
		}
	}
	if len(states) != 1 || states[0] != StateIdle {
		t.Errorf("state during long press handler: %v", states)
	}
}
