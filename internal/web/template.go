package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/irrigation-controller/internal/status"
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
	"lower": func(s string) string {
		if s == "ON" {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Irrigation Controller</title>
<link rel="stylesheet" href="/style.css">
</head>
<body>
<h1>Irrigation Controller<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<p>Pump state: <strong id="state" class="{{lower .State}}">{{.State}}</strong></p>
<p>
<a href="/on"><button class="button">ON</button></a>
<a href="/off"><button class="button button2">OFF</button></a>
</p>

<h2>Pumps</h2>
<table>
<tr><th>Active pump</th><td id="active-pump">{{.Report.ActivePumpID}}</td></tr>
<tr><th>Last action</th><td id="action">{{if .Report.Action}}{{.Report.Action}}{{else}}OFF{{end}}</td></tr>
<tr><th>Intensity</th><td id="intensity">{{.Report.Intensity}}%</td></tr>
<tr><th>Duty</th><td id="duty">{{.Report.Duty}}/{{.Config.MaxDuty}}</td></tr>
{{range .Report.Channels}}<tr><th>Pump {{.ID}} (pin {{.Pin}})</th><td class="{{lower (printf "%s" .State)}}">{{.State}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td id="mqtt" class="{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}">{{.MQTT.State}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .MQTT.ClientID}}<tr><th>Client ID</th><td>{{.MQTT.ClientID}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Commands</h2>
<table>
<tr><th>Received</th><td>{{.Commands.Received}}</td></tr>
<tr><th>Applied</th><td>{{.Commands.Applied}}</td></tr>
<tr><th>Ignored</th><td>{{.Commands.Ignored}}</td></tr>
<tr><th>Dropped</th><td>{{.Commands.Dropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Pulse</th><td>{{.Config.PulseMs}}ms</td></tr>
<tr><th>Reconnect</th><td>{{.Config.ReconnectMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .Config.HistoryEnabled}} | <a href="/history.json">History</a>{{end}}</p>

<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) { dot.className = "live-dot " + cls; dot.title = title; }
  function text(id, v) { var el = document.getElementById(id); if (el) el.textContent = v; }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() { setDot("err", "offline"); setTimeout(connect, 5000); };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        var st = document.getElementById("state");
        st.textContent = s.state;
        st.className = s.state === "ON" ? "on" : "off";
        text("active-pump", s.active_pump);
        text("action", s.action);
        text("intensity", s.intensity + "%");
        text("duty", s.duty + "/" + s.config.max_duty);
        var m = document.getElementById("mqtt");
        m.textContent = s.mqtt.state;
        m.className = s.mqtt.connected ? "connected" : "disconnected";
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

const styleCSS = `html { font-family: Helvetica; display: inline-block; margin: 0 auto; text-align: center; }
body { max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { color: #0F3376; font-size: 1.6em; }
h2 { font-size: 1.1em; margin-top: 1.5em; }
p { font-size: 1.2rem; }
table { border-collapse: collapse; width: 100%; margin: 0.5em 0; font-family: monospace; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 45%; }
.button { display: inline-block; background-color: #008CBA; border: none; border-radius: 4px; color: white; padding: 16px 40px; text-decoration: none; font-size: 30px; margin: 2px; cursor: pointer; }
.button2 { background-color: #f44336; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and StateToken() methods; the template needs fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		State  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		State:    snap.StateToken(),
	}
	indexTmpl.Execute(w, data)
}
