package logic

// Energy drawn per 10 s cycle, in Wh.
const (
	HeaterWhPerCycle = 8.34
	PumpWhPerCycle   = 0.14
	ValveWhPerCycle  = 0.006
	SelfWhPerCycle   = 0.022
)

// PowerCounters accumulate electricity use for the current billing period.
type PowerCounters struct {
	TotalWh   float64 `yaml:"total_wh" json:"total_wh"`
	NightlyWh float64 `yaml:"nightly_wh" json:"nightly_wh"`
}

// DailyWh returns the energy used outside the night window.
func (p PowerCounters) DailyWh() float64 {
	return p.TotalWh - p.NightlyWh
}

// CycleWh returns the energy the given outputs draw in one cycle.
func CycleWh(o Outputs) float64 {
	wh := SelfWhPerCycle
	if o.Heater {
		wh += HeaterWhPerCycle
	}
	if o.Pump1 {
		wh += PumpWhPerCycle
	}
	if o.Pump2 {
		wh += PumpWhPerCycle
	}
	if o.Valve {
		wh += ValveWhPerCycle
	}
	return wh
}

// Account adds one cycle of consumption. Nightly is also credited when night
// is true.
func (p *PowerCounters) Account(o Outputs, night bool) {
	wh := CycleWh(o)
	p.TotalWh += wh
	if night {
		p.NightlyWh += wh
	}
}

// Reset zeroes both counters at the start of a billing period.
func (p *PowerCounters) Reset() {
	p.TotalWh = 0
	p.NightlyWh = 0
}
