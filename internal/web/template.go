package web

import (
	"html/template"
	"io"
	"log"
	"strings"
	"time"

	"github.com/toblum/McGarager/internal/config"
	"github.com/toblum/McGarager/internal/status"
)

var funcs = template.FuncMap{
	"uptime": status.FormatUptime,
	"mask": func(s string) string {
		return strings.Repeat("*", len(s))
	},
	"timeOrNever": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}

var indexTmpl = template.Must(template.New("index").Funcs(funcs).Parse(indexHTML))

var configTmpl = template.Must(template.New("config").Funcs(funcs).Parse(configHTML))

const styleHTML = `<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
input { width: 100%; box-sizing: border-box; }
.open { color: orange; font-weight: bold; }
.closed { color: green; font-weight: bold; }
.unknown { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
.saved { color: green; }
</style>`

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1, user-scalable=no">
<title>{{.Settings.ThingName}}</title>
` + styleHTML + `
</head>
<body>
<h1>{{.Settings.ThingName}}</h1>

<h2>Door</h2>
<table>
<tr><th>State</th><td class="{{if not .Snap.DoorKnown}}unknown{{else if .Snap.Door.Closed}}closed{{else}}open{{end}}">{{if .Snap.DoorKnown}}{{.Snap.Door}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Relay pulses</th><td>{{.Snap.Pulses}}</td></tr>
<tr><th>Last pulse</th><td>{{timeOrNever .Snap.LastPulse}}</td></tr>
</table>

<h2>MQTT</h2>
<table>
<tr><th>Session</th><td class="{{if .Snap.MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Snap.MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>MQTT hostname</th><td>{{.Settings.MQTT.Host}}</td></tr>
<tr><th>MQTT port</th><td>{{.Settings.MQTT.Port}}</td></tr>
<tr><th>MQTT username</th><td>{{.Settings.MQTT.Username}}</td></tr>
<tr><th>MQTT password</th><td>{{mask .Settings.MQTT.Password}}</td></tr>
<tr><th>MQTT topic</th><td>{{.Settings.MQTT.Topic}}</td></tr>
<tr><th>Status messages</th><td>{{.Snap.Publishes}}</td></tr>
<tr><th>Last status</th><td>{{timeOrNever .Snap.LastPublish}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Free memory</th><td>{{.Snap.Host.Memory}} Bytes</td></tr>
<tr><th>Signal</th><td>{{.Snap.Host.RSSI}} dBm</td></tr>
<tr><th>GPIO driver</th><td>{{.Snap.Config.GPIODriver}}</td></tr>
</table>

<p>Go to <a href="/config">configure page</a> to change values.</p>
<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

const configHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1, user-scalable=no">
<title>{{.ThingName}} - Configuration</title>
` + styleHTML + `
</head>
<body>
<h1>{{.ThingName}} - Configuration</h1>
{{if .Saved}}<p class="saved">Configuration saved. Broker changes apply after restart.</p>{{end}}
{{if .Failure}}<p class="error">{{.Failure}}</p>{{end}}
<form method="post" action="/config">
<fieldset>
<legend>MQTT</legend>
<table>
<tr><th><label for="mqttHost">MQTT hostname</label></th><td><input id="mqttHost" name="mqttHost" value="{{.Host}}" placeholder="somehost.fritz.box">{{with index .Errors "mqttHost"}}<div class="error">{{.}}</div>{{end}}</td></tr>
<tr><th><label for="mqttPort">MQTT port</label></th><td><input id="mqttPort" name="mqttPort" type="number" value="{{.Port}}" placeholder="1883">{{with index .Errors "mqttPort"}}<div class="error">{{.}}</div>{{end}}</td></tr>
<tr><th><label for="mqttUser">MQTT username</label></th><td><input id="mqttUser" name="mqttUser" value="{{.User}}">{{with index .Errors "mqttUser"}}<div class="error">{{.}}</div>{{end}}</td></tr>
<tr><th><label for="mqttPass">MQTT password</label></th><td><input id="mqttPass" name="mqttPass" type="password" placeholder="unchanged">{{with index .Errors "mqttPass"}}<div class="error">{{.}}</div>{{end}}</td></tr>
<tr><th><label for="mqttTopic">MQTT topic</label></th><td><input id="mqttTopic" name="mqttTopic" value="{{.Topic}}" placeholder="mc_garager">{{with index .Errors "mqttTopic"}}<div class="error">{{.}}</div>{{end}}</td></tr>
</table>
</fieldset>
<fieldset>
<legend>System</legend>
<table>
<tr><th><label for="adminPass">Admin password</label></th><td><input id="adminPass" name="adminPass" type="password" placeholder="unchanged"></td></tr>
</table>
</fieldset>
<p><button type="submit">Apply</button></p>
</form>
<p><a href="/">Back</a></p>
</body>
</html>
`

func renderIndex(w io.Writer, snap status.Snapshot, settings config.Settings) {
	data := struct {
		Snap     status.Snapshot
		Settings config.Settings
		Uptime   time.Duration
	}{
		Snap:     snap,
		Settings: settings,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func renderConfig(w io.Writer, form configForm) {
	if err := configTmpl.Execute(w, form); err != nil {
		log.Printf("web: render config: %v", err)
	}
}
