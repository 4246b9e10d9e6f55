package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/timekeeper/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"utc": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Timekeeper</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.pending { color: orange; }
.err { color: red; }
</style>
</head>
<body>
<h1>Timekeeper</h1>

<h2>Clock</h2>
<table>
<tr><th>Device time</th><td>{{utc .DeviceTime}}</td></tr>
<tr><th>Sync</th><td id="sync-state" class="{{if .SyncComplete}}ok{{else if eq (stateOrUnknown .Sync) "TIMEOUT_ERROR"}}err{{else}}pending{{end}}">{{stateOrUnknown .Sync}}</td></tr>
<tr><th>Last sync</th><td>{{utc .LastSync}}</td></tr>
<tr><th>Successful syncs</th><td>{{.SyncAttempts}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>WiFi</th><td id="wifi-state" class="{{if eq (stateOrUnknown .Wifi) "CONNECTED"}}ok{{else if eq (stateOrUnknown .Wifi) "ERROR_TIMEOUT"}}err{{else}}pending{{end}}">{{stateOrUnknown .Wifi}}</td></tr>
{{if .Network}}<tr><th>Interface</th><td>{{.Network.Interface}}{{if .Network.SSID}} ({{.Network.SSID}}){{end}}</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}err{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Minutes</th><td>{{.Counts.Minutes}}</td></tr>
<tr><th>Hours</th><td>{{.Counts.Hours}}</td></tr>
<tr><th>Days</th><td>{{.Counts.Days}}</td></tr>
<tr><th>WiFi connects</th><td>{{.Counts.WifiConnects}}</td></tr>
<tr><th>WiFi drops</th><td>{{.Counts.WifiDrops}}</td></tr>
<tr><th>WiFi timeouts</th><td>{{.Counts.WifiTimeouts}}</td></tr>
<tr><th>Sync timeouts</th><td>{{.Counts.SyncTimeouts}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>Clock mode</th><td>{{.Config.ClockMode}}</td></tr>
<tr><th>NTP server</th><td>{{.Config.NTPServer}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
