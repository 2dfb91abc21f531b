package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Session       string       `json:"session,omitempty"`
	DeviceID      int          `json:"device_id"`
	Username      string       `json:"username"`
	Peers         []string     `json:"peers"`
	Phrase        string       `json:"phrase,omitempty"`
	Mode          string       `json:"mode,omitempty"`
	Radio         string       `json:"radio"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Gestures      GesturesJSON `json:"gestures"`
	Messages      MessagesJSON `json:"messages"`
	LastMessage   *MessageJSON `json:"last_message,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// GesturesJSON counts recognized gestures.
type GesturesJSON struct {
	Click       int `json:"click"`
	DoubleClick int `json:"double_click"`
	LongPress   int `json:"long_press"`
}

// MessagesJSON counts radio traffic.
type MessagesJSON struct {
	Sent         uint64 `json:"sent"`
	Received     uint64 `json:"received"`
	Duplicates   uint64 `json:"duplicates"`
	Unrecognized uint64 `json:"unrecognized"`
	QueueDropped uint64 `json:"queue_dropped"`
}

// MessageJSON is the last displayed message.
type MessageJSON struct {
	Text string `json:"text"`
	From string `json:"from"`
	At   string `json:"at"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Name          string `json:"name"`
	DebounceMs    int64  `json:"debounce_ms"`
	LongPressMs   int64  `json:"long_press_ms"`
	DoubleClickMs int64  `json:"double_click_ms"`
	BurstMs       int64  `json:"burst_ms"`
	DedupMs       int64  `json:"dedup_ms"`
	Broker        string `json:"broker"`
	PayloadFormat string `json:"payload_format,omitempty"`
	HTTPPort      string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	radio := string(snap.Radio)
	if radio == "" {
		radio = "UNKNOWN"
	}
	peers := snap.Peers
	if peers == nil {
		peers = []string{}
	}

	inner := StatusInner{
		Session:       snap.Config.Session,
		DeviceID:      int(snap.Config.DeviceID),
		Username:      snap.Username,
		Peers:         peers,
		Phrase:        snap.Phrase,
		Mode:          snap.Mode,
		Radio:         radio,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Gestures: GesturesJSON{
			Click:       snap.Gestures.Click,
			DoubleClick: snap.Gestures.DoubleClick,
			LongPress:   snap.Gestures.LongPress,
		},
		Messages: MessagesJSON{
			Sent:         snap.Messages.Sent,
			Received:     snap.Messages.Received,
			Duplicates:   snap.Messages.Duplicates,
			Unrecognized: snap.Messages.Unrecognized,
			QueueDropped: snap.QueueDropped,
		},
		Config: ConfigJSON{
			Name:          snap.Config.Name,
			DebounceMs:    snap.Config.DebounceMs,
			LongPressMs:   snap.Config.LongPressMs,
			DoubleClickMs: snap.Config.DoubleClickMs,
			BurstMs:       snap.Config.BurstMs,
			DedupMs:       snap.Config.DedupMs,
			Broker:        snap.Config.Broker,
			PayloadFormat: snap.Config.PayloadFormat,
			HTTPPort:      snap.Config.HTTPPort,
		},
	}
	if m := snap.LastMessage; m != nil {
		inner.LastMessage = &MessageJSON{Text: m.Text, From: m.From, At: m.At.UTC().Format(time.RFC3339)}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
