package logic

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readings(furnace, collector, high, low float64) [NumChannels]Reading {
	return [NumChannels]Reading{
		Furnace:    {Temp: furnace, OK: true},
		Collector:  {Temp: collector, OK: true},
		BoilerHigh: {Temp: high, OK: true},
		BoilerLow:  {Temp: low, OK: true},
	}
}

func hasEvent(events []Event, sev Severity, substr string) bool {
	for _, e := range events {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestControllerFirstStep(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{TotalWh: 100})

	res := c.Step(Input{Now: t0, Readings: readings(20, 20, 45, 42)})
	require.False(t, res.Fatal)
	assert.True(t, hasEvent(res.Events, SeverityInfo, "night window"))
	assert.False(t, res.SaveCounters)

	snap := c.Snapshot()
	assert.Equal(t, 20.0, snap.Sensors[Furnace].Current)
	assert.Equal(t, 42.0, snap.Sensors[BoilerLow].Previous)
	assert.Equal(t, uint64(1), snap.Cycles)
	assert.Equal(t, 23, snap.Schedule.NightStart)
	assert.Greater(t, snap.Counters.TotalWh, 100.0)
}

func TestControllerSensorFault(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{})
	now := t0
	for i := 0; i < 5; i++ {
		res := c.Step(Input{Now: now, Readings: readings(20, 20, 45, 42)})
		require.False(t, res.Fatal)
		now = now.Add(10 * time.Second)
	}

	bad := readings(20, 20, 45, 42)
	bad[Collector] = Reading{}
	for i := 0; i < MaxSensorErrors; i++ {
		res := c.Step(Input{Now: now, Readings: bad})
		require.False(t, res.Fatal, "error %d", i+1)
		now = now.Add(10 * time.Second)
	}

	cycles := c.Cycles()
	res := c.Step(Input{Now: now, Readings: bad})
	assert.True(t, res.Fatal)
	assert.Equal(t, Collector, res.FatalChannel)
	assert.True(t, hasEvent(res.Events, SeverityAlarm, "collector"))
	assert.Equal(t, cycles, c.Cycles(), "no decision is made on a fatal cycle")
}

func TestControllerCriticalLatch(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{})
	now := t0

	// Walk the furnace up within the per-cycle delta limit.
	var alarms, clears int
	temps := []float64{60, 64, 68, 72, 75, 75, 75, 71, 68, 68}
	var last Result
	for _, f := range temps {
		last = c.Step(Input{Now: now, Readings: readings(f, 20, 50, 48)})
		for _, e := range last.Events {
			if e.Severity == SeverityAlarm && strings.Contains(e.Message, "critical") {
				alarms++
			}
			if strings.Contains(e.Message, "critical temperature cleared") {
				clears++
			}
		}
		if f >= CriticalFurnaceTemp {
			assert.True(t, last.Mode.Pump1 && last.Mode.Pump2 && last.Mode.Valve, "furnace %.0f", f)
			assert.True(t, c.Snapshot().Critical)
		}
		now = now.Add(10 * time.Second)
	}
	assert.Equal(t, 1, alarms)
	assert.Equal(t, 1, clears)
	assert.False(t, c.Snapshot().Critical)
}

func TestControllerHoldsOutputsUntilEveryChannelSeeded(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{})
	night := time.Date(2026, 6, 15, 23, 0, 0, 0, time.UTC)

	first := readings(30, 20, 45, 42)
	first[BoilerLow] = Reading{}
	res := c.Step(Input{Now: night, Readings: first})
	require.False(t, res.Fatal)
	assert.Equal(t, Outputs{}, res.Outputs)
	assert.False(t, res.WriteOutputs)
	assert.Equal(t, HeatMode{}, res.Mode)
	assert.True(t, hasEvent(res.Events, SeverityWarning, "boiler_low: no valid reading yet"))

	// boiler is above target once it reads; the heater must never come on
	for i := 1; i < 20; i++ {
		res = c.Step(Input{Now: night.Add(time.Duration(i) * 10 * time.Second), Readings: readings(30, 20, 45, 42)})
		require.False(t, res.Fatal)
		assert.False(t, res.Outputs.Heater, "cycle %d", i)
	}
	assert.Equal(t, 42.0, c.Snapshot().Sensors[BoilerLow].Current)
}

func TestControllerManualModeKeepsCriticalLatch(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{})
	now := t0

	res := c.Step(Input{Now: now, Readings: readings(80, 20, 50, 48)})
	require.True(t, hasEvent(res.Events, SeverityAlarm, "critical temperature"))

	manual := DefaultSettings()
	manual.Mode = ModeManualPump1
	c.SetSettings(manual)
	for i := 0; i < 3; i++ {
		now = now.Add(10 * time.Second)
		res = c.Step(Input{Now: now, Readings: readings(80, 20, 50, 48)})
		assert.False(t, hasEvent(res.Events, SeverityInfo, "critical temperature cleared"))
		assert.True(t, c.Snapshot().Critical)
	}

	c.SetSettings(DefaultSettings())
	now = now.Add(10 * time.Second)
	res = c.Step(Input{Now: now, Readings: readings(80, 20, 50, 48)})
	assert.False(t, hasEvent(res.Events, SeverityAlarm, "critical temperature"), "same episode, no second alarm")
	assert.True(t, c.Snapshot().Critical)

	now = now.Add(10 * time.Second)
	res = c.Step(Input{Now: now, Readings: readings(76, 20, 50, 48)})
	assert.True(t, c.Snapshot().Critical)
	now = now.Add(10 * time.Second)
	res = c.Step(Input{Now: now, Readings: readings(71, 20, 50, 48)})
	assert.True(t, hasEvent(res.Events, SeverityInfo, "critical temperature cleared"))
}

func TestControllerBatteryOverride(t *testing.T) {
	s := DefaultSettings()
	s.Mode = ModeManualHeater
	c := NewController(s, PowerCounters{})

	res := c.Step(Input{Now: t0, Readings: readings(20, 20, 45, 42)})
	require.True(t, res.Outputs.Heater)
	require.True(t, res.WriteOutputs)

	res = c.Step(Input{Now: t0.Add(10 * time.Second), Readings: readings(20, 20, 45, 42), OnBattery: true})
	assert.False(t, res.Outputs.Heater)
	assert.True(t, res.WriteOutputs)
	assert.False(t, res.Mode.HeatForce)
	assert.True(t, hasEvent(res.Events, SeverityWarning, "battery"))

	for i := 2; i < 40; i++ {
		res = c.Step(Input{Now: t0.Add(time.Duration(i) * 10 * time.Second), Readings: readings(20, 20, 45, 42), OnBattery: true})
		assert.False(t, res.Outputs.Heater)
	}

	res = c.Step(Input{Now: t0.Add(400 * time.Second), Readings: readings(20, 20, 45, 42)})
	assert.True(t, res.Outputs.Heater)
	assert.True(t, hasEvent(res.Events, SeverityInfo, "mains restored"))
}

func TestControllerBatteryReadError(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{})
	c.Step(Input{Now: t0, Readings: readings(20, 20, 45, 42), OnBattery: true})
	require.True(t, c.Snapshot().OnBattery)

	res := c.Step(Input{Now: t0.Add(10 * time.Second), Readings: readings(20, 20, 45, 42), BatteryErr: true})
	assert.True(t, c.Snapshot().OnBattery)
	assert.True(t, hasEvent(res.Events, SeverityWarning, "unreadable"))
}

func TestControllerCounterReset(t *testing.T) {
	s := DefaultSettings()
	s.DayToResetPowerCounters = 7
	c := NewController(s, PowerCounters{TotalWh: 5000, NightlyWh: 2000})

	now := time.Date(2026, 5, 7, 7, 59, 0, 0, time.Local)
	var reset bool
	for i := 0; i < 31; i++ {
		res := c.Step(Input{Now: now, Readings: readings(20, 20, 45, 42)})
		if hasEvent(res.Events, SeverityInfo, "counters reset") {
			reset = true
			assert.Equal(t, 30, i)
			assert.True(t, hasEvent(res.Events, SeverityInfo, "total=5"))
		}
		now = now.Add(10 * time.Second)
	}
	assert.True(t, reset)
	assert.Less(t, c.Counters().TotalWh, 10.0)
}

func TestControllerNoResetOnOtherDays(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{TotalWh: 5000})
	now := time.Date(2026, 5, 8, 7, 59, 0, 0, time.Local)
	for i := 0; i < 31; i++ {
		c.Step(Input{Now: now, Readings: readings(20, 20, 45, 42)})
		now = now.Add(10 * time.Second)
	}
	assert.Greater(t, c.Counters().TotalWh, 5000.0)
}

func TestControllerSaveCadence(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{})
	now := t0
	var saves []int
	for i := 0; i < 4*ScheduleInterval; i++ {
		res := c.Step(Input{Now: now, Readings: readings(20, 20, 45, 42)})
		if res.SaveCounters {
			saves = append(saves, i)
		}
		now = now.Add(10 * time.Second)
	}
	assert.Equal(t, []int{ScheduleInterval, 3 * ScheduleInterval}, saves)
}

func TestControllerSetSettingsReseeds(t *testing.T) {
	c := NewController(DefaultSettings(), PowerCounters{})
	c.Step(Input{Now: t0, Readings: readings(20, 20, 45, 42)})

	res := c.Step(Input{Now: t0.Add(10 * time.Second), Readings: readings(40, 20, 45, 42)})
	assert.True(t, hasEvent(res.Events, SeverityWarning, "furnace"))
	assert.Equal(t, 20.0, c.Snapshot().Sensors[Furnace].Current)

	s := DefaultSettings()
	s.WantedTemp = 45
	c.SetSettings(s)
	c.Step(Input{Now: t0.Add(20 * time.Second), Readings: readings(40, 20, 45, 42)})
	snap := c.Snapshot()
	assert.Equal(t, 40.0, snap.Sensors[Furnace].Current)
	assert.Equal(t, 45, snap.Settings.WantedTemp)
}

func TestControllerEnergyMonotonic(t *testing.T) {
	s := DefaultSettings()
	s.Mode = ModeManualPump1Heater
	c := NewController(s, PowerCounters{})
	now := time.Date(2026, 1, 10, 20, 0, 0, 0, time.Local)

	prev := c.Counters()
	for i := 0; i < 2000; i++ {
		c.Step(Input{Now: now, Readings: readings(20, 20, 45, 42), OnBattery: i%300 < 50})
		cur := c.Counters()
		assert.Greater(t, cur.TotalWh, prev.TotalWh)
		assert.GreaterOrEqual(t, cur.NightlyWh, prev.NightlyWh)
		prev = cur
		now = now.Add(10 * time.Second)
	}
	assert.Greater(t, prev.NightlyWh, 0.0)
}
