// Package logic contains the pure decision engine for the solar/furnace water heater.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"strings"
	"time"
)

// Channel identifies one of the four temperature sensors.
type Channel int

const (
	Furnace Channel = iota
	Collector
	BoilerHigh
	BoilerLow
	NumChannels
)

var channelNames = [NumChannels]string{"furnace", "collector", "boiler_high", "boiler_low"}

func (c Channel) String() string {
	if c < 0 || c >= NumChannels {
		return "unknown"
	}
	return channelNames[c]
}

// Severity classifies an Event for the event log.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityAlarm   Severity = "ALARM"
)

// Event is a single line for the event log.
type Event struct {
	Timestamp time.Time
	Severity  Severity
	Message   string
}

func newEvent(now time.Time, sev Severity, msg string) Event {
	return Event{Timestamp: now, Severity: sev, Message: msg}
}

// Mode is the operator-selected operating mode.
type Mode int

const (
	ModeAllOff Mode = iota
	ModeAuto
	ModeAutoPlusHouseHeat
	ModeManualPump1
	ModeManualPump2
	ModeManualHeater
	ModeManualPump1Heater
	ModeAutoElectricScheduled
	ModeAutoElectricUnscheduled
)

var modeNames = []string{
	"all_off",
	"auto",
	"auto_house_heat",
	"manual_pump1",
	"manual_pump2",
	"manual_heater",
	"manual_pump1_heater",
	"auto_electric_scheduled",
	"auto_electric_unscheduled",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Automatic reports whether m runs the automatic selector, the only modes
// that check for critical temperatures.
func (m Mode) Automatic() bool {
	return m == ModeAuto || m == ModeAutoPlusHouseHeat
}

// HeatMode is the desired actuator state produced by the mode selector.
// Idle carries no actuator meaning; it marks that the idle branch was taken.
type HeatMode struct {
	Pump1       bool
	Pump2       bool
	Valve       bool
	HeatRequest bool
	HeatForce   bool
	Idle        bool
}

// Bits renders the mode as the bitmask used in data logs:
// pump1=1 pump2=2 valve=4 heat request=8 heat force=16 idle=32.
func (m HeatMode) Bits() int {
	b := 0
	for i, on := range []bool{m.Pump1, m.Pump2, m.Valve, m.HeatRequest, m.HeatForce, m.Idle} {
		if on {
			b |= 1 << i
		}
	}
	return b
}

func (m HeatMode) String() string {
	var parts []string
	if m.Pump1 {
		parts = append(parts, "P1")
	}
	if m.Pump2 {
		parts = append(parts, "P2")
	}
	if m.Valve {
		parts = append(parts, "V")
	}
	if m.HeatRequest {
		parts = append(parts, "HEAT")
	}
	if m.HeatForce {
		parts = append(parts, "HEAT!")
	}
	if m.Idle {
		parts = append(parts, "IDLE")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Reading is one raw sample from a temperature sensor.
// OK is false when the sensor could not be read.
type Reading struct {
	Temp float64
	OK   bool
}

// Settings are the operator-tunable parameters. They are reloaded at runtime.
type Settings struct {
	Mode                    Mode `yaml:"mode"`
	WantedTemp              int  `yaml:"wanted_temp"`
	AbsMaxTemp              int  `yaml:"abs_max_temp"`
	UseElectricHeaterDay    bool `yaml:"use_electric_heater_day"`
	UseElectricHeaterNight  bool `yaml:"use_electric_heater_night"`
	ElectricStartHour       int  `yaml:"electric_start_hour"`
	ElectricStopHour        int  `yaml:"electric_stop_hour"`
	Pump1AlwaysOn           bool `yaml:"pump1_always_on"`
	UsePump1                bool `yaml:"use_pump1"`
	UsePump2                bool `yaml:"use_pump2"`
	NightBoost              bool `yaml:"night_boost"`
	DayToResetPowerCounters int  `yaml:"day_to_reset_power_counters"`
}

// DefaultSettings returns the settings used when no settings file is available.
func DefaultSettings() Settings {
	return Settings{
		Mode:                    ModeAuto,
		WantedTemp:              40,
		AbsMaxTemp:              60,
		UseElectricHeaterDay:    false,
		UseElectricHeaterNight:  true,
		ElectricStartHour:       11,
		ElectricStopHour:        15,
		Pump1AlwaysOn:           false,
		UsePump1:                true,
		UsePump2:                true,
		NightBoost:              false,
		DayToResetPowerCounters: 7,
	}
}

// Outputs is the composite relay state written to hardware.
type Outputs struct {
	Pump1  bool
	Pump2  bool
	Valve  bool
	Heater bool
}
