package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/scout-messenger/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"orNone": func(s string) string {
		if s == "" {
			return "(none)"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Scout Messenger</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.scanning { color: green; font-weight: bold; }
.advertising { color: #06c; font-weight: bold; }
.idle { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Scout Messenger</h1>

<h2>Device</h2>
<table>
<tr><th>Device ID</th><td>{{.Config.DeviceID}}</td></tr>
<tr><th>Username</th><td id="username">{{orNone .Username}}</td></tr>
<tr><th>Radio</th><td id="radio" class="{{if eq (printf "%s" .Radio) "SCANNING"}}scanning{{else if eq (printf "%s" .Radio) "ADVERTISING"}}advertising{{else}}idle{{end}}">{{.Radio}}</td></tr>
<tr><th>Phrase</th><td>{{orNone .Phrase}}{{if .Mode}} ({{.Mode}}){{end}}</td></tr>
{{if .LastMessage}}<tr><th>Last message</th><td id="last-message">{{.LastMessage.Text}} from {{.LastMessage.From}}</td></tr>{{end}}
</table>

<h2>Peers</h2>
<table>
{{range .Peers}}<tr><td>{{.}}</td></tr>
{{else}}<tr><td>none discovered</td></tr>
{{end}}</table>

<h2>Traffic</h2>
<table>
<tr><th>Sent</th><td>{{.Messages.Sent}}</td></tr>
<tr><th>Received</th><td>{{.Messages.Received}}</td></tr>
<tr><th>Duplicates</th><td>{{.Messages.Duplicates}}</td></tr>
<tr><th>Other adverts</th><td>{{.Messages.Unrecognized}}</td></tr>
<tr><th>Queue drops</th><td>{{.QueueDropped}}</td></tr>
</table>

<h2>Gestures</h2>
<table>
<tr><th>Click</th><td>{{.Gestures.Click}}</td></tr>
<tr><th>Double click</th><td>{{.Gestures.DoubleClick}}</td></tr>
<tr><th>Long press</th><td>{{.Gestures.LongPress}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{orNone .Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Long press</th><td>{{.Config.LongPressMs}}ms</td></tr>
<tr><th>Double click</th><td>{{.Config.DoubleClickMs}}ms</td></tr>
<tr><th>Burst</th><td>{{.Config.BurstMs}}ms</td></tr>
<tr><th>Dedup</th><td>{{.Config.DedupMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/peers.json">Peers</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render: %v", err)
	}
}
