package logic

import (
	"fmt"
	"time"
)

const (
	// ScheduleInterval is the number of cycles between schedule refreshes.
	ScheduleInterval = 30
	// SaveEverySchedules is how many schedule refreshes pass between counter saves.
	SaveEverySchedules = 2
)

// Input is one cycle's worth of raw observations.
type Input struct {
	Now       time.Time
	Readings  [NumChannels]Reading
	OnBattery bool
	// BatteryErr is set when the power-source input could not be read; the
	// previous power source is kept.
	BatteryErr bool
}

// Result is what the run loop must do after a cycle.
type Result struct {
	Mode    HeatMode
	Outputs Outputs
	// WriteOutputs is set when the composite output state changed.
	WriteOutputs bool
	// SaveCounters is set every SaveEverySchedules schedule refreshes.
	SaveCounters bool
	// Fatal is set when a sensor exceeded its error budget. No decision was
	// made; the run loop must shut down.
	Fatal        bool
	FatalChannel Channel
	Events       []Event
}

// Snapshot is a point-in-time view of the controller for telemetry.
// It is a value type.
type Snapshot struct {
	Time      time.Time
	Cycles    uint64
	Sensors   [NumChannels]SensorChannel
	Actuators [NumActuators]ActuatorState
	Mode      HeatMode
	OnBattery bool
	Critical  bool
	Counters  PowerCounters
	Settings  Settings
	Schedule  Schedule
}

// Controller holds all controller state and runs one decision cycle at a time.
// It is owned by a single goroutine.
type Controller struct {
	settings  Settings
	sensors   *SensorStore
	actuators *Actuators
	schedule  Schedule
	counters  PowerCounters
	battery   BatteryGuard
	critical  AlarmLatch

	cycles        uint64
	scheduleTicks uint64
	justStarted   bool
	forceSchedule bool
	mode          HeatMode
	lastTime      time.Time
}

// NewController creates a controller with the given settings and persisted
// power counters.
func NewController(settings Settings, counters PowerCounters) *Controller {
	return &Controller{
		settings:      settings,
		sensors:       NewSensorStore(),
		actuators:     NewActuators(),
		counters:      counters,
		justStarted:   true,
		forceSchedule: true,
	}
}

// SetSettings replaces the settings. The next cycle re-seeds the sensors and
// recomputes the schedule.
func (c *Controller) SetSettings(s Settings) {
	c.settings = s
	c.justStarted = true
	c.forceSchedule = true
}

// Settings returns the active settings.
func (c *Controller) Settings() Settings {
	return c.settings
}

// Counters returns the power counters.
func (c *Controller) Counters() PowerCounters {
	return c.counters
}

// Cycles returns the number of completed cycles.
func (c *Controller) Cycles() uint64 {
	return c.cycles
}

// Step runs one control cycle: schedule, sensor validation, mode selection,
// battery override, actuator transitions and energy accounting.
func (c *Controller) Step(in Input) Result {
	var res Result
	now := in.Now
	c.lastTime = now

	if c.cycles%ScheduleInterval == 0 || c.forceSchedule {
		res.Events = append(res.Events, c.refreshSchedule(now)...)
		c.scheduleTicks++
		res.SaveCounters = c.scheduleTicks%SaveEverySchedules == 0
	}

	for ch := Channel(0); ch < NumChannels; ch++ {
		_, evs := c.sensors.Validate(ch, in.Readings[ch], c.justStarted, now)
		res.Events = append(res.Events, evs...)
	}
	if ch, fatal := c.sensors.Fatal(); fatal {
		res.Fatal = true
		res.FatalChannel = ch
		res.Events = append(res.Events, newEvent(now, SeverityAlarm,
			fmt.Sprintf("sensor %s: %d consecutive errors, shutting down", ch, c.sensors.Errors(ch))))
		res.Outputs = c.actuators.Outputs()
		return res
	}

	if in.BatteryErr {
		res.Events = append(res.Events, newEvent(now, SeverityWarning, "power: source unreadable, keeping last value"))
	} else {
		res.Events = append(res.Events, c.battery.Update(in.OnBattery, now)...)
	}

	var mode HeatMode
	if ch, unseeded := c.sensors.Unseeded(); unseeded {
		// No decision without a valid reading on every channel.
		res.Events = append(res.Events, newEvent(now, SeverityWarning,
			fmt.Sprintf("sensor %s: no valid reading yet, outputs held off", ch)))
	} else {
		var critical bool
		mode, critical = SelectMode(c.selectorInput())
		if c.settings.Mode.Automatic() {
			res.Events = append(res.Events, c.updateCritical(critical, now)...)
		}
	}

	mode = c.battery.Adjust(mode, c.actuators)
	c.mode = mode

	res.WriteOutputs = c.actuators.Apply(mode, c.settings)
	res.Outputs = c.actuators.Outputs()
	c.counters.Account(res.Outputs, c.schedule.Night())

	res.Mode = mode
	c.cycles++
	c.justStarted = false
	return res
}

// updateCritical moves the critical latch. Only the automatic modes evaluate
// critical temperatures, so other modes leave the latch as it is.
func (c *Controller) updateCritical(critical bool, now time.Time) []Event {
	if critical {
		if c.critical.Raise() {
			return []Event{newEvent(now, SeverityAlarm, fmt.Sprintf(
				"critical temperature: furnace=%.1f boiler_high=%.1f, dumping heat",
				c.sensors.Current(Furnace), c.sensors.Current(BoilerHigh)))}
		}
		return nil
	}
	if c.critical.Clear() {
		return []Event{newEvent(now, SeverityInfo, "critical temperature cleared")}
	}
	return nil
}

func (c *Controller) refreshSchedule(now time.Time) []Event {
	daily, events := c.schedule.refresh(now, c.forceSchedule)
	c.forceSchedule = false

	if daily && c.schedule.Day == c.settings.DayToResetPowerCounters {
		events = append(events, newEvent(now, SeverityInfo, fmt.Sprintf(
			"power: period totals daily=%.1fWh nightly=%.1fWh total=%.1fWh, counters reset",
			c.counters.DailyWh(), c.counters.NightlyWh, c.counters.TotalWh)))
		c.counters.Reset()
	}
	return events
}

func (c *Controller) selectorInput() SelectorInput {
	return SelectorInput{
		Sensors:   c.sensors.Channels(),
		Actuators: c.actuators.States(),
		Settings:  c.settings,
		Schedule:  c.schedule,
	}
}

// Snapshot returns the state after the last completed cycle.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Time:      c.lastTime,
		Cycles:    c.cycles,
		Sensors:   c.sensors.Channels(),
		Actuators: c.actuators.States(),
		Mode:      c.mode,
		OnBattery: c.battery.OnBattery(),
		Critical:  c.critical.Active(),
		Counters:  c.counters,
		Settings:  c.settings,
		Schedule:  c.schedule,
	}
}
