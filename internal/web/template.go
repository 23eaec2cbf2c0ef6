package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/solard/internal/logic"
	"github.com/sweeney/solard/internal/status"
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
	"temp": func(v float64) string {
		return fmt.Sprintf("%.1f °C", v)
	},
	"wh": func(v float64) string {
		return fmt.Sprintf("%.1f Wh", v)
	},
}).Parse(indexHTML))

type sensorRow struct {
	Name   string
	Temp   float64
	Errors uint16
}

type actuatorRow struct {
	Name   string
	On     bool
	Cycles uint32
}

type indexView struct {
	status.Snapshot
	Sensors   []sensorRow
	Actuators []actuatorRow
	Night     bool
	DailyWh   float64
}

func newIndexView(snap status.Snapshot) indexView {
	cs := snap.Controller
	v := indexView{
		Snapshot: snap,
		Night:    cs.Schedule.Night(),
		DailyWh:  cs.Counters.DailyWh(),
	}
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		v.Sensors = append(v.Sensors, sensorRow{Name: ch.String(), Temp: cs.Sensors[ch].Current, Errors: cs.Sensors[ch].Errors})
	}
	for a := logic.Actuator(0); a < logic.NumActuators; a++ {
		v.Actuators = append(v.Actuators, actuatorRow{Name: a.String(), On: cs.Actuators[a].On, Cycles: cs.Actuators[a].Cycles})
	}
	return v
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>solard</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alarm { color: red; font-weight: bold; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>solard</h1>

{{if .Controller.Critical}}<p class="alarm">CRITICAL TEMPERATURE: dumping heat</p>{{end}}
{{if .Controller.OnBattery}}<p class="warn">Running on battery</p>{{end}}

<h2>Temperatures</h2>
<table>
{{range .Sensors}}<tr><th>{{.Name}}</th><td>{{if .Errors}}<span class="warn">{{temp .Temp}} ({{.Errors}} errors)</span>{{else}}{{temp .Temp}}{{end}}</td></tr>
{{end}}</table>

<h2>Outputs</h2>
<table>
<tr><th>Mode</th><td>{{.Controller.Settings.Mode}}</td></tr>
<tr><th>Selected</th><td>{{.Controller.Mode}} ({{.Controller.Mode.Bits}})</td></tr>
{{range .Actuators}}<tr><th>{{.Name}}</th><td class="{{if .On}}on{{else}}off{{end}}">{{if .On}}ON{{else}}OFF{{end}} ({{.Cycles}})</td></tr>
{{end}}<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Power</h2>
<table>
<tr><th>Source</th><td>{{if .Controller.OnBattery}}battery{{else}}mains{{end}}</td></tr>
<tr><th>Night tariff</th><td>{{if .Night}}yes{{else}}no{{end}} ({{printf "%02d" .Controller.Schedule.NightStart}}:00-{{printf "%02d" .Controller.Schedule.NightStop}}:59)</td></tr>
<tr><th>Total</th><td>{{wh .Controller.Counters.TotalWh}}</td></tr>
<tr><th>Night</th><td>{{wh .Controller.Counters.NightlyWh}}</td></tr>
<tr><th>Day</th><td>{{wh .DailyWh}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Version</th><td>{{.Config.Version}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycles</th><td>{{.Controller.Cycles}}</td></tr>
<tr><th>Settings</th><td>{{.Config.SettingsFile}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	return indexTmpl.Execute(w, newIndexView(snap))
}
