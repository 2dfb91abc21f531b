// Command scout-messenger turns a one-button board into a broadcast
// messenger: button gestures pick and send phrases over BLE advertising,
// and phrases heard from nearby devices are shown and bridged to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/scout-messenger/internal/dedup"
	"github.com/sweeney/scout-messenger/internal/dispatch"
	"github.com/sweeney/scout-messenger/internal/gesture"
	"github.com/sweeney/scout-messenger/internal/gpio"
	"github.com/sweeney/scout-messenger/internal/messenger"
	"github.com/sweeney/scout-messenger/internal/mqtt"
	"github.com/sweeney/scout-messenger/internal/peers"
	"github.com/sweeney/scout-messenger/internal/radio"
	"github.com/sweeney/scout-messenger/internal/registry"
	"github.com/sweeney/scout-messenger/internal/status"
	"github.com/sweeney/scout-messenger/internal/timer"
	"github.com/sweeney/scout-messenger/internal/web"
)

// Timer pool channels.
const (
	timerGesture = 0
	timerBurst   = 1
)

type options struct {
	gesture      gesture.Config
	scan         radio.ScanParams
	advInterval  time.Duration
	burst        time.Duration
	dedup        time.Duration
	name         string
	deviceID     int
	adapter      string
	gpio         gpio.Config
	tick         time.Duration
	queue        int
	registryPath string
	broker       string
	format       string
	httpAddr     string
	heartbeat    time.Duration
	presence     time.Duration
	printState   bool
}

func main() {
	var o options
	o.gesture = gesture.DefaultConfig()
	o.scan = radio.DefaultScanParams()
	o.gpio = gpio.DefaultConfig()
	passive := false

	flag.DurationVar(&o.gesture.Debounce, "debounce", o.gesture.Debounce, "Minimum spacing between accepted button edges")
	flag.DurationVar(&o.gesture.LongPress, "long-press", o.gesture.LongPress, "Hold time for a long press")
	flag.DurationVar(&o.gesture.DoubleClick, "double-click", o.gesture.DoubleClick, "Window for the second press of a double click")
	flag.DurationVar(&o.scan.Interval, "scan-interval", o.scan.Interval, "BLE scan interval")
	flag.DurationVar(&o.scan.Window, "scan-window", o.scan.Window, "BLE scan window")
	flag.BoolVar(&passive, "scan-passive", false, "Passive scan (no scan requests)")
	flag.DurationVar(&o.advInterval, "adv-interval", radio.DefaultAdvertiseInterval, "Advertising interval during a burst")
	flag.DurationVar(&o.burst, "burst", messenger.DefaultBurstDuration, "Advertising burst duration per send")
	flag.DurationVar(&o.dedup, "dedup", dedup.DefaultWindow, "Window in which a repeated packet is dropped")
	flag.StringVar(&o.name, "name", messenger.DefaultName, "Advertised device name (dropped when space is short)")
	flag.IntVar(&o.deviceID, "device-id", -1, "Device id 0-255 (-1 derives it from /etc/machine-id)")
	flag.StringVar(&o.adapter, "adapter", "hci0", "Bluetooth adapter (only hci0 can be driven)")
	flag.StringVar(&o.gpio.Chip, "chip", o.gpio.Chip, "GPIO chip")
	flag.IntVar(&o.gpio.Pin, "pin", o.gpio.Pin, "GPIO line of the button")
	flag.BoolVar(&o.gpio.ActiveLow, "active-low", o.gpio.ActiveLow, "Button pulls the line low when pressed")
	flag.DurationVar(&o.tick, "tick", 10*time.Millisecond, "Main loop interval")
	flag.IntVar(&o.queue, "queue", dispatch.DefaultQueueSize, "Deferred callback queue size")
	flag.StringVar(&o.registryPath, "registry", "/var/lib/scout-messenger/registry.json", "Settings file")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&o.format, "payload-format", "json", "MQTT payload format: json or proto")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.DurationVar(&o.presence, "presence-interval", 0, "Presence re-announcement interval (0 to disable)")
	flag.BoolVar(&o.printState, "print-state", false, "Print current button state and exit")

	flag.Parse()
	o.scan.Active = !passive

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	format, err := mqtt.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if o.scan.Window > o.scan.Interval {
		return fmt.Errorf("scan window %v exceeds interval %v", o.scan.Window, o.scan.Interval)
	}

	// Initialize GPIO
	watcher, err := gpio.NewRealWatcher(o.gpio)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer watcher.Close()

	// Print state mode
	if o.printState {
		pressed, err := watcher.Pressed()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("button: %s\n", buttonState(pressed))
		return nil
	}

	dev, source := resolveDeviceID(o.deviceID, machineIDPath)
	session := uuid.NewString()

	store, err := registry.Open(o.registryPath)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}

	timers := timer.NewPool(2)
	gestureTimer, err := timers.Acquire(timerGesture, "gesture")
	if err != nil {
		return err
	}
	burstTimer, err := timers.Acquire(timerBurst, "burst")
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(o.queue)

	driver, err := radio.NewBLEDriver(o.adapter)
	if err != nil {
		return fmt.Errorf("init radio: %w", err)
	}
	mux := radio.New(driver, burstTimer, o.advInterval)
	defer mux.Stop()

	msgr := messenger.New(messenger.Config{
		DeviceID:      dev,
		Name:          o.name,
		BurstDuration: o.burst,
		DedupWindow:   o.dedup,
	}, mux, dispatcher)
	dir := peers.New(msgr, store)
	button := gesture.New(o.gesture, gestureTimer, dispatcher)

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if o.broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Config{Broker: o.broker, Session: session, Format: format})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		DeviceID:      dev,
		Name:          o.name,
		Session:       session,
		DebounceMs:    o.gesture.Debounce.Milliseconds(),
		LongPressMs:   o.gesture.LongPress.Milliseconds(),
		DoubleClickMs: o.gesture.DoubleClick.Milliseconds(),
		BurstMs:       o.burst.Milliseconds(),
		DedupMs:       o.dedup.Milliseconds(),
		Broker:        o.broker,
		PayloadFormat: string(format),
		HTTPPort:      o.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	a := newApp(defaultPhrases, button, msgr, dir, publisher, tracker, time.Now)
	a.install()

	if err := mux.StartScanning(o.scan); err != nil {
		return fmt.Errorf("start scan: %w", err)
	}
	if err := watcher.Watch(func(e gpio.Edge) {
		button.HandleEdge(gesture.Edge{Pressed: e.Pressed, At: e.At})
	}); err != nil {
		return fmt.Errorf("watch button: %w", err)
	}
	if err := msgr.SendPresence(); err != nil {
		log.Printf("presence: %v", err)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Session:    session,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: device=%d (%s) session=%s burst=%v dedup=%v broker=%q", dev, source, session, o.burst, o.dedup, o.broker)

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		app:        a,
		dispatcher: dispatcher,
		radio:      mux,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		session:    session,
		heartbeat:  o.heartbeat,
		presence:   o.presence,
		// The directory's discover burst would cut the startup presence
		// burst short.
		discoverAfter: o.burst,
		now:           time.Now,
	}, ticker.C, sigCh)
}

type loopDeps struct {
	app        *app
	dispatcher *dispatch.Dispatcher
	radio      *radio.Multiplexer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	session    string

	heartbeat     time.Duration
	presence      time.Duration
	discoverAfter time.Duration
	now           func() time.Time
}

// runLoop is the single consumer of deferred callbacks. Every gesture and
// radio handler runs here, one tick at a time.
func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := d.now()
	lastHeartbeat := startTime
	lastPresence := startTime
	discovered := false

	refresh := func() {
		if d.tracker == nil {
			return
		}
		d.tracker.Update(d.app.button.Counts(), d.app.msgr.Stats(), d.radio.Mode(), d.dispatcher.Dropped())
		d.tracker.SetDirectory(d.app.dir.Username(), d.app.dir.Peers())
		if d.mqttStatus != nil {
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.dispatcher.Drain()

			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Session:   d.session,
				Retained:  true,
			}
			if d.tracker != nil {
				refresh()
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := d.now()
			d.dispatcher.Drain()

			if !discovered && t.Sub(startTime) >= d.discoverAfter {
				discovered = true
				if err := d.app.dir.Start(); err != nil {
					log.Printf("discover: %v", err)
				}
			}

			if d.presence > 0 && t.Sub(lastPresence) >= d.presence {
				lastPresence = t
				if err := d.app.msgr.SendPresence(); err != nil {
					log.Printf("presence: %v", err)
				}
			}

			refresh()

			if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = t
				s := d.app.msgr.Stats()
				log.Printf("heartbeat: uptime=%v sent=%d received=%d duplicates=%d peers=%d",
					t.Sub(startTime).Truncate(time.Second), s.Sent, s.Received, s.Duplicates, len(d.app.dir.Peers()))

				hbEvent := mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT", Session: d.session}
				if d.tracker != nil {
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func buttonState(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
