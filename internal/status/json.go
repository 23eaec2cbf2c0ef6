package status

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/solard/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string                  `json:"event,omitempty"`
	Reason        string                  `json:"reason,omitempty"`
	Ready         bool                    `json:"ready"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	StartTime     string                  `json:"start_time"`
	Timestamp     string                  `json:"timestamp"`
	Cycles        uint64                  `json:"cycles"`
	Mode          ModeJSON                `json:"mode"`
	Critical      bool                    `json:"critical"`
	Sensors       map[string]SensorJSON   `json:"sensors"`
	Actuators     map[string]ActuatorJSON `json:"actuators"`
	Power         PowerJSON               `json:"power"`
	Schedule      ScheduleJSON            `json:"schedule"`
	Settings      SettingsJSON            `json:"settings"`
	MQTT          MQTTStatus              `json:"mqtt"`
	Network       *NetworkJSON            `json:"network,omitempty"`
	Config        ConfigJSON              `json:"config"`
}

// ModeJSON reports the configured mode and the last selected heat mode.
type ModeJSON struct {
	Setting string `json:"setting"`
	Active  string `json:"active"`
	Bits    int    `json:"bits"`
}

// SensorJSON is one validated temperature channel.
type SensorJSON struct {
	Temp     float64 `json:"temp"`
	Previous float64 `json:"previous"`
	Errors   uint16  `json:"errors"`
}

// ActuatorJSON is one relay output with its dwell counter.
type ActuatorJSON struct {
	On     bool   `json:"on"`
	Cycles uint32 `json:"cycles"`
}

// PowerJSON reports the power source and energy counters.
type PowerJSON struct {
	OnBattery bool    `json:"on_battery"`
	TotalWh   float64 `json:"total_wh"`
	NightlyWh float64 `json:"nightly_wh"`
	DailyWh   float64 `json:"daily_wh"`
}

// ScheduleJSON reports the clock context.
type ScheduleJSON struct {
	Hour       int  `json:"hour"`
	Night      bool `json:"night"`
	NightStart int  `json:"night_start"`
	NightStop  int  `json:"night_stop"`
	Winter     bool `json:"winter"`
}

// SettingsJSON mirrors the reloadable settings.
type SettingsJSON struct {
	Mode                    int  `json:"mode"`
	WantedTemp              int  `json:"wanted_temp"`
	AbsMaxTemp              int  `json:"abs_max_temp"`
	UseElectricHeaterDay    bool `json:"use_electric_heater_day"`
	UseElectricHeaterNight  bool `json:"use_electric_heater_night"`
	ElectricStartHour       int  `json:"electric_start_hour"`
	ElectricStopHour        int  `json:"electric_stop_hour"`
	Pump1AlwaysOn           bool `json:"pump1_always_on"`
	UsePump1                bool `json:"use_pump1"`
	UsePump2                bool `json:"use_pump2"`
	NightBoost              bool `json:"night_boost"`
	DayToResetPowerCounters int  `json:"day_to_reset_power_counters"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
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
	Version        string `json:"version"`
	Broker         string `json:"broker"`
	EmbeddedBroker string `json:"embedded_broker,omitempty"`
	HTTPPort       string `json:"http_port"`
	SettingsFile   string `json:"settings_file"`
}

// round3 keeps telemetry readable; sensors resolve to 1/16 °C.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func buildInner(snap Snapshot) StatusInner {
	cs := snap.Controller
	st := cs.Settings

	sensors := make(map[string]SensorJSON, logic.NumChannels)
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		s := cs.Sensors[ch]
		sensors[ch.String()] = SensorJSON{Temp: round3(s.Current), Previous: round3(s.Previous), Errors: s.Errors}
	}
	actuators := make(map[string]ActuatorJSON, logic.NumActuators)
	for a := logic.Actuator(0); a < logic.NumActuators; a++ {
		actuators[a.String()] = ActuatorJSON{On: cs.Actuators[a].On, Cycles: cs.Actuators[a].Cycles}
	}

	return StatusInner{
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Cycles:        cs.Cycles,
		Mode: ModeJSON{
			Setting: st.Mode.String(),
			Active:  cs.Mode.String(),
			Bits:    cs.Mode.Bits(),
		},
		Critical:  cs.Critical,
		Sensors:   sensors,
		Actuators: actuators,
		Power: PowerJSON{
			OnBattery: cs.OnBattery,
			TotalWh:   round3(cs.Counters.TotalWh),
			NightlyWh: round3(cs.Counters.NightlyWh),
			DailyWh:   round3(cs.Counters.DailyWh()),
		},
		Schedule: ScheduleJSON{
			Hour:       cs.Schedule.Hour,
			Night:      cs.Schedule.Night(),
			NightStart: cs.Schedule.NightStart,
			NightStop:  cs.Schedule.NightStop,
			Winter:     cs.Schedule.Winter,
		},
		Settings: SettingsJSON{
			Mode:                    int(st.Mode),
			WantedTemp:              st.WantedTemp,
			AbsMaxTemp:              st.AbsMaxTemp,
			UseElectricHeaterDay:    st.UseElectricHeaterDay,
			UseElectricHeaterNight:  st.UseElectricHeaterNight,
			ElectricStartHour:       st.ElectricStartHour,
			ElectricStopHour:        st.ElectricStopHour,
			Pump1AlwaysOn:           st.Pump1AlwaysOn,
			UsePump1:                st.UsePump1,
			UsePump2:                st.UsePump2,
			NightBoost:              st.NightBoost,
			DayToResetPowerCounters: st.DayToResetPowerCounters,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Version:        snap.Config.Version,
			Broker:         snap.Config.Broker,
			EmbeddedBroker: snap.Config.EmbeddedBroker,
			HTTPPort:       snap.Config.HTTPPort,
			SettingsFile:   snap.Config.SettingsFile,
		},
	}
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

// FormatJSON returns the indented JSON status for the web endpoint and the
// snapshot file (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatCompact returns the single-line JSON status published every cycle.
func FormatCompact(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
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
