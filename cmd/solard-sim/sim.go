package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sweeney/solard/internal/config"
	"github.com/sweeney/solard/internal/logic"
)

const helpText = `commands:
  temp <channel> <°C>     set a sensor value (furnace, collector, boiler_high, boiler_low)
  fail <channel>          toggle a read failure on a sensor
  battery on|off          switch the power source
  time <YYYY-MM-DDTHH:MM> set the clock
  mode <0-8>              set the operating mode
  wanted <°C>             set the wanted boiler temperature
  set <key> <value>       set any settings key, e.g. "set night_boost true"
  load <file>             load settings from a YAML file
  step [n]                run n cycles (default 1), 10 s apart
  show                    print the controller state
  help                    this text
  quit                    leave`

// Sim feeds hand-set temperatures into a controller. It never touches
// hardware.
type Sim struct {
	controller *logic.Controller
	out        io.Writer
	now        time.Time
	temps      [logic.NumChannels]float64
	failed     [logic.NumChannels]bool
	battery    bool
	fatal      bool
}

// NewSim creates a simulator starting at now with plausible temperatures.
func NewSim(out io.Writer, settings logic.Settings, now time.Time) *Sim {
	return &Sim{
		controller: logic.NewController(settings, logic.PowerCounters{}),
		out:        out,
		now:        now,
		temps: [logic.NumChannels]float64{
			logic.Furnace:    20,
			logic.Collector:  15,
			logic.BoilerHigh: 45,
			logic.BoilerLow:  40,
		},
	}
}

// Exec runs one command line. It reports whether the user asked to quit.
func (s *Sim) Exec(line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	args := parts[1:]

	switch parts[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "temp":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: temp <channel> <°C>")
		}
		ch, err := parseChannel(args[0])
		if err != nil {
			return false, err
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return false, fmt.Errorf("temp: %w", err)
		}
		s.temps[ch] = v
	case "fail":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: fail <channel>")
		}
		ch, err := parseChannel(args[0])
		if err != nil {
			return false, err
		}
		s.failed[ch] = !s.failed[ch]
		fmt.Fprintf(s.out, "%s failing: %t\n", ch, s.failed[ch])
	case "battery":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return false, fmt.Errorf("usage: battery on|off")
		}
		s.battery = args[0] == "on"
	case "time":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: time <YYYY-MM-DDTHH:MM>")
		}
		t, err := time.ParseInLocation("2006-01-02T15:04", args[0], time.Local)
		if err != nil {
			return false, fmt.Errorf("time: %w", err)
		}
		s.now = t
	case "mode":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: mode <0-8>")
		}
		return false, s.set("mode", args[0])
	case "wanted":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: wanted <°C>")
		}
		return false, s.set("wanted_temp", args[0])
	case "set":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: set <key> <value>")
		}
		return false, s.set(args[0], args[1])
	case "load":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: load <file>")
		}
		st, err := config.LoadSettings(args[0])
		if err != nil {
			return false, err
		}
		s.controller.SetSettings(st)
	case "step":
		n := 1
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return false, fmt.Errorf("step: bad count %q", args[0])
			}
			n = v
		}
		for i := 0; i < n && !s.fatal; i++ {
			s.step()
		}
	case "show":
		s.show()
	default:
		return false, fmt.Errorf("unknown command: %s (try 'help')", parts[0])
	}
	return false, nil
}

// set changes one settings key through the same YAML parsing and clamping
// as the settings file.
func (s *Sim) set(key, value string) error {
	st, err := config.ApplySetting(s.controller.Settings(), key, value)
	if err != nil {
		return err
	}
	s.controller.SetSettings(st)
	return nil
}

func (s *Sim) step() {
	var in logic.Input
	in.Now = s.now
	in.OnBattery = s.battery
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		in.Readings[ch] = logic.Reading{Temp: s.temps[ch], OK: !s.failed[ch]}
	}

	res := s.controller.Step(in)
	for _, ev := range res.Events {
		entry := logrus.WithTime(ev.Timestamp)
		switch ev.Severity {
		case logic.SeverityAlarm:
			entry.Error("ALARM: " + ev.Message)
		case logic.SeverityWarning:
			entry.Warn(ev.Message)
		default:
			entry.Info(ev.Message)
		}
	}

	if res.Fatal {
		s.fatal = true
		fmt.Fprintf(s.out, "%s  sensor fault on %s: the daemon would disable outputs and exit\n",
			s.now.Format("15:04:05"), res.FatalChannel)
		return
	}

	changed := ""
	if res.WriteOutputs {
		changed = " *"
	}
	fmt.Fprintf(s.out, "%s  mode=%-16s %s%s\n", s.now.Format("15:04:05"), res.Mode, formatOutputs(res.Outputs), changed)
	s.now = s.now.Add(10 * time.Second)
}

func (s *Sim) show() {
	snap := s.controller.Snapshot()
	fmt.Fprintf(s.out, "time      %s (cycle %d)\n", s.now.Format("2006-01-02 15:04:05"), snap.Cycles)
	fmt.Fprintf(s.out, "settings  mode=%s wanted=%d abs_max=%d\n", snap.Settings.Mode, snap.Settings.WantedTemp, snap.Settings.AbsMaxTemp)
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		c := snap.Sensors[ch]
		fmt.Fprintf(s.out, "%-10s%7.2f (input %.2f, errors %d)\n", ch, c.Current, s.temps[ch], c.Errors)
	}
	for a := logic.Actuator(0); a < logic.NumActuators; a++ {
		st := snap.Actuators[a]
		fmt.Fprintf(s.out, "%-10s%-4s %d cycles\n", a, onOff(st.On), st.Cycles)
	}
	fmt.Fprintf(s.out, "night     %t (%02d:00-%02d:59)\n", snap.Schedule.Night(), snap.Schedule.NightStart, snap.Schedule.NightStop)
	fmt.Fprintf(s.out, "power     %s total=%.2fWh nightly=%.2fWh\n", source(snap.OnBattery), snap.Counters.TotalWh, snap.Counters.NightlyWh)
	if snap.Critical {
		fmt.Fprintln(s.out, "CRITICAL  dumping heat")
	}
}

func parseChannel(name string) (logic.Channel, error) {
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		if ch.String() == name {
			return ch, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

func formatOutputs(o logic.Outputs) string {
	return fmt.Sprintf("pump1=%s pump2=%s valve=%s heater=%s", onOff(o.Pump1), onOff(o.Pump2), onOff(o.Valve), onOff(o.Heater))
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "off"
}

func source(battery bool) string {
	if battery {
		return "battery"
	}
	return "mains"
}
