package logic

// Actuator identifies one relay-driven output.
type Actuator int

const (
	Pump1 Actuator = iota
	Pump2
	Valve
	Heater
	NumActuators
)

var actuatorNames = [NumActuators]string{"pump1", "pump2", "valve", "heater"}

func (a Actuator) String() string {
	if a < 0 || a >= NumActuators {
		return "unknown"
	}
	return actuatorNames[a]
}

// ActuatorState is the on/off state of an actuator and the number of cycles
// since it last changed.
type ActuatorState struct {
	On     bool
	Cycles uint32
}

// Dwell holds the minimum number of cycles an actuator must spend in a state
// before it may leave it. A transition requires Cycles strictly greater.
type Dwell struct {
	MinOff uint32 // cycles off before switching on
	MinOn  uint32 // cycles on before switching off
}

// Dwells per actuator. The valve must stay open at least twice as long as it
// must stay closed.
var Dwells = [NumActuators]Dwell{
	Pump1:  {MinOff: 0, MinOn: 5},
	Pump2:  {MinOff: 2, MinOn: 2},
	Valve:  {MinOff: 5, MinOn: 23},
	Heater: {MinOff: 29, MinOn: 11},
}

const (
	initialPumpCycles  = 150000
	initialOtherCycles = 2200
)

// Actuators is the anti-chatter state machine for the four outputs.
// It is the only place that flips an actuator.
type Actuators struct {
	st [NumActuators]ActuatorState
}

// NewActuators returns all actuators off with dwell counters high enough that
// any of them may switch on the first cycle.
func NewActuators() *Actuators {
	a := &Actuators{}
	a.st[Pump1].Cycles = initialPumpCycles
	a.st[Pump2].Cycles = initialPumpCycles
	a.st[Valve].Cycles = initialOtherCycles
	a.st[Heater].Cycles = initialOtherCycles
	return a
}

// State returns the state of one actuator.
func (a *Actuators) State(act Actuator) ActuatorState {
	return a.st[act]
}

// States returns a copy of all actuator states.
func (a *Actuators) States() [NumActuators]ActuatorState {
	return a.st
}

// Outputs returns the composite relay state.
func (a *Actuators) Outputs() Outputs {
	return Outputs{
		Pump1:  a.st[Pump1].On,
		Pump2:  a.st[Pump2].On,
		Valve:  a.st[Valve].On,
		Heater: a.st[Heater].On,
	}
}

// TurnOn switches act on if its guard allows. It reports whether it flipped.
func (a *Actuators) TurnOn(act Actuator, s Settings) bool {
	st := &a.st[act]
	if st.On || st.Cycles <= Dwells[act].MinOff {
		return false
	}
	switch act {
	case Pump1:
		if !s.UsePump1 {
			return false
		}
	case Pump2:
		if !s.UsePump2 {
			return false
		}
	}
	st.On = true
	st.Cycles = 0
	return true
}

// TurnOff switches act off if its guard allows. It reports whether it flipped.
// Pump1 stays on while the valve is open or has only just closed, so furnace
// water always has somewhere to go.
func (a *Actuators) TurnOff(act Actuator) bool {
	st := &a.st[act]
	if !st.On || st.Cycles <= Dwells[act].MinOn {
		return false
	}
	if act == Pump1 {
		v := a.st[Valve]
		if v.On || v.Cycles <= Dwells[Valve].MinOff {
			return false
		}
	}
	st.On = false
	st.Cycles = 0
	return true
}

// HastenHeaterOff raises the heater's dwell counter so that it may be
// switched off in the current cycle.
func (a *Actuators) HastenHeaterOff() {
	h := &a.st[Heater]
	if h.On && h.Cycles <= Dwells[Heater].MinOn {
		h.Cycles = Dwells[Heater].MinOn + 1
	}
}

// Apply drives every actuator towards the requested mode, then advances all
// dwell counters by one cycle. It reports whether the composite output state
// changed, i.e. whether hardware needs to be written.
func (a *Actuators) Apply(m HeatMode, s Settings) bool {
	before := a.Outputs()

	a.drive(Pump1, m.Pump1, s)
	a.drive(Pump2, m.Pump2, s)
	a.drive(Valve, m.Valve, s)
	a.drive(Heater, m.HeatRequest || m.HeatForce, s)

	for i := range a.st {
		a.st[i].Cycles++
	}

	return a.Outputs() != before
}

func (a *Actuators) drive(act Actuator, want bool, s Settings) {
	if want {
		a.TurnOn(act, s)
	} else {
		a.TurnOff(act)
	}
}
