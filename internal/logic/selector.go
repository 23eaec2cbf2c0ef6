package logic

import (
	"math"
	"time"
)

const (
	CriticalFurnaceTemp    = 72.0
	CriticalBoilerHighTemp = 70.0

	FreezeTemp             = 8.9
	FurnaceDumpTemp        = 52.0
	CollectorOverheatTemp  = 85.0
	SolarStartDiff         = 14.9
	SolarKeepDiff          = 5.0
	FurnaceExcessDiff      = 9.9
	HouseHeatMargin        = 5.0
	NightBoostMargin       = 5.0
	AntiSeizeCycles        = 6 * 60 * 48
	DailyCirculationCycles = 6 * 60

	valveSettleCycles       = 9
	valveSettleCyclesHeat   = 13
	valveClosedBeforeHeater = 15
)

// furnaceRise lists furnace temperatures above which Pump1 runs when the
// furnace is rising faster than the given amount per cycle.
var furnaceRise = []struct {
	above, rise float64
}{
	{44.9, 0.06},
	{35.9, 0.12},
	{21.9, 0.18},
}

// solarNoonHour is the hour, per month, for the daily solar loop circulation.
var solarNoonHour = [12]int{12, 12, 13, 14, 14, 14, 14, 14, 13, 13, 12, 12}

// SelectorInput is everything the mode selector reads. It is a copy; the
// selector never mutates controller state.
type SelectorInput struct {
	Sensors   [NumChannels]SensorChannel
	Actuators [NumActuators]ActuatorState
	Settings  Settings
	Schedule  Schedule
}

func (in SelectorInput) temp(ch Channel) float64 { return in.Sensors[ch].Current }
func (in SelectorInput) prev(ch Channel) float64 { return in.Sensors[ch].Previous }
func (in SelectorInput) wanted() float64 { return float64(in.Settings.WantedTemp) }

// SelectMode computes the desired heat mode for this cycle from scratch.
// The second result reports whether the critical override is active.
func SelectMode(in SelectorInput) (HeatMode, bool) {
	switch in.Settings.Mode {
	case ModeAuto, ModeAutoPlusHouseHeat:
		if CriticalTempsFound(in) {
			return HeatMode{Pump1: true, Pump2: true, Valve: true}, true
		}
		if BoilerHeatingNeeded(in) {
			return SelectHeatingMode(in), false
		}
		m := SelectIdleMode(in)
		m.Idle = true
		return m, false
	case ModeManualPump1:
		return HeatMode{Pump1: true}, false
	case ModeManualPump2:
		return HeatMode{Pump2: true}, false
	case ModeManualHeater:
		return HeatMode{HeatForce: true}, false
	case ModeManualPump1Heater:
		return HeatMode{Pump1: true, HeatForce: true}, false
	case ModeAutoElectricScheduled:
		if BoilerHeatingNeeded(in) {
			return HeatMode{HeatRequest: ElectricHeatAllowed(in)}, false
		}
		return HeatMode{Idle: true}, false
	case ModeAutoElectricUnscheduled:
		if BoilerHeatingNeeded(in) {
			return HeatMode{HeatForce: true}, false
		}
		return HeatMode{Idle: true}, false
	}
	return HeatMode{}, false
}

// CriticalTempsFound reports whether the furnace or the top of the boiler is
// hot enough that heat must be dumped everywhere.
func CriticalTempsFound(in SelectorInput) bool {
	return in.temp(Furnace) >= CriticalFurnaceTemp || in.temp(BoilerHigh) >= CriticalBoilerHighTemp
}

// BoilerHeatingNeeded reports whether the boiler is below its target.
func BoilerHeatingNeeded(in SelectorInput) bool {
	wanted := in.wanted()
	low := in.temp(BoilerLow)
	high := in.temp(BoilerHigh)
	highPrev := in.prev(BoilerHigh)

	switch {
	case low < wanted-8:
		return true
	case low > wanted:
		return false
	case high < wanted-1:
		return true
	case high < highPrev && highPrev < wanted:
		return true
	}
	return false
}

// SelectIdleMode decides what to run while the boiler needs no heating:
// freeze protection, heat harvesting, anti-seize runs and night tariff use.
func SelectIdleMode(in SelectorInput) HeatMode {
	var m HeatMode

	furnace := in.temp(Furnace)
	collector := in.temp(Collector)
	high := in.temp(BoilerHigh)
	low := in.temp(BoilerLow)
	wanted := in.wanted()
	p1 := in.Actuators[Pump1]
	p2 := in.Actuators[Pump2]
	v := in.Actuators[Valve]
	valveSettled := v.On && v.Cycles > valveSettleCycles

	if furnace < FreezeTemp && (p1.On || p1.Cycles > Dwells[Pump1].MinOff) {
		m.Pump1 = true
	}
	if collector < FreezeTemp && (p2.On || p2.Cycles > Dwells[Pump2].MinOff) {
		m.Pump2 = true
	}

	if furnace > FurnaceDumpTemp {
		m.Pump1 = true
	}
	rise := furnace - in.prev(Furnace)
	for _, fr := range furnaceRise {
		if furnace > fr.above && rise > fr.rise {
			m.Pump1 = true
		}
	}

	if collector > low+SolarStartDiff && high < float64(in.Settings.AbsMaxTemp) {
		m.Pump2 = true
	}
	if p2.On && collector >= low+SolarKeepDiff {
		m.Pump2 = true
	}

	if !m.Pump2 && high > wanted && furnace > high+FurnaceExcessDiff {
		m.Valve = true
		if valveSettled {
			m.Pump1 = true
		}
	}

	if in.Settings.Mode == ModeAutoPlusHouseHeat && high > wanted+HouseHeatMargin && low > furnace {
		m.Valve = true
		if valveSettled {
			m.Pump1 = true
		}
	}

	if !p1.On && p1.Cycles > AntiSeizeCycles {
		m.Pump1 = true
	}
	if !p2.On && p2.Cycles > AntiSeizeCycles {
		m.Pump2 = true
	}
	if !p2.On && p2.Cycles > DailyCirculationCycles && in.Schedule.Hour == SolarNoonHour(in.Schedule.Month) {
		m.Pump2 = true
	}

	if collector > CollectorOverheatTemp {
		m.Valve = true
		if valveSettled {
			m.Pump1 = true
			m.Pump2 = true
		}
	}

	if in.Schedule.Night() && !p2.On && !v.On && !m.Pump2 && !m.Valve {
		if low < wanted && ElectricHeatAllowed(in) {
			m.HeatRequest = true
		}
		boostTo := math.Min(wanted+NightBoostMargin, float64(in.Settings.AbsMaxTemp))
		if in.Settings.NightBoost && in.Schedule.LastNightHours() && low < boostTo && ElectricHeatAllowed(in) {
			m.HeatRequest = true
		}
	}

	if in.Settings.Pump1AlwaysOn {
		m.Pump1 = true
	}

	return m
}

// SelectHeatingMode decides how to heat the boiler: solar first, then furnace
// excess, then electric heat.
func SelectHeatingMode(in SelectorInput) HeatMode {
	m := SelectIdleMode(in)

	furnace := in.temp(Furnace)
	collector := in.temp(Collector)
	high := in.temp(BoilerHigh)
	low := in.temp(BoilerLow)
	p2 := in.Actuators[Pump2]
	v := in.Actuators[Valve]

	switch {
	case collector > low+SolarStartDiff && collector > furnace:
		m.Pump2 = true
	case furnace > high+FurnaceExcessDiff:
		m.Valve = true
		if v.On && v.Cycles > valveSettleCyclesHeat {
			m.Pump1 = true
		}
	case !v.On && v.Cycles > valveClosedBeforeHeater && !p2.On:
		if ElectricHeatAllowed(in) {
			m.HeatRequest = true
		}
	}
	return m
}

// ElectricHeatAllowed applies the day/night gate for the electric heater.
// Inside the night window the night flag decides; otherwise the day flag and
// the configured electric hours do.
func ElectricHeatAllowed(in SelectorInput) bool {
	if in.Schedule.Night() {
		return in.Settings.UseElectricHeaterNight
	}
	w := HourWindow{Start: in.Settings.ElectricStartHour, Stop: in.Settings.ElectricStopHour}
	return in.Settings.UseElectricHeaterDay && w.Contains(in.Schedule.Hour)
}

// SolarNoonHour returns the hour of the daily solar loop circulation.
func SolarNoonHour(month time.Month) int {
	if month < time.January || month > time.December {
		return 12
	}
	return solarNoonHour[month-1]
}
