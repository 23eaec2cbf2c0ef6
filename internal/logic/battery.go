package logic

import "time"

// BatteryGuard tracks the mains/battery power source and keeps the heater off
// while running from battery.
type BatteryGuard struct {
	onBattery bool
}

// OnBattery reports the last known power source.
func (g *BatteryGuard) OnBattery() bool {
	return g.onBattery
}

// Update records a new power-source sample and returns an event on change.
func (g *BatteryGuard) Update(onBattery bool, now time.Time) []Event {
	if onBattery == g.onBattery {
		return nil
	}
	g.onBattery = onBattery
	if onBattery {
		return []Event{newEvent(now, SeverityWarning, "power: running on battery, electric heat disabled")}
	}
	return []Event{newEvent(now, SeverityInfo, "power: mains restored")}
}

// Adjust removes any electric heat from m while on battery and lets a running
// heater switch off in this cycle.
func (g *BatteryGuard) Adjust(m HeatMode, a *Actuators) HeatMode {
	if !g.onBattery {
		return m
	}
	m.HeatRequest = false
	m.HeatForce = false
	a.HastenHeaterOff()
	return m
}
