package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/home-sentinel/internal/status"
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
	"stamp": func(t time.Time) string {
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
<title>Home Sentinel</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Home Sentinel: {{.Config.NodeID}}</h1>

<h2>Sensors</h2>
<table>
<tr><th>Sensor</th><th>Kind</th><th>State</th><th>Value</th><th>Alerts</th><th>Last sample</th></tr>
{{range .Sensors}}<tr>
<td>{{.ID}}</td>
<td>{{.Kind}}</td>
<td class="{{if .Enabled}}on{{else}}off{{end}}">{{if .Enabled}}enabled{{else}}disabled{{end}}{{with .Door}}{{if .Open}}, open{{else}}, closed{{end}}{{if .Locked}}, locked{{end}}{{end}}</td>
<td>{{if .HasValue}}{{printf "%.1f" .Value}}{{else}}-{{end}}</td>
<td>{{.Alerts}}</td>
<td>{{stamp .LastSample}}</td>
</tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Store</th><td class="{{if .Link.Connected}}connected{{else}}disconnected{{end}}">{{if .Link.Connected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Last attempt</th><td>{{stamp .Link.LastAttempt}}</td></tr>
<tr><th>Clock</th><td>{{if .Clock.Synced}}synced ({{.Clock.Offset}}){{else}}unsynced{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{stamp .StartTime}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Reconnect</th><td>{{.Config.ReconnectMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
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
	indexTmpl.Execute(w, data)
}
