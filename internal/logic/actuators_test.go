package logic

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modeFor(act Actuator, on bool) HeatMode {
	var m HeatMode
	switch act {
	case Pump1:
		m.Pump1 = on
	case Pump2:
		m.Pump2 = on
	case Valve:
		m.Valve = on
	case Heater:
		m.HeatForce = on
	}
	return m
}

func TestApplyIsIdempotent(t *testing.T) {
	a := NewActuators()
	s := DefaultSettings()
	m := HeatMode{Pump1: true, Pump2: true, Valve: true, HeatRequest: true}

	changes := 0
	for i := 0; i < 50; i++ {
		if a.Apply(m, s) {
			changes++
		}
	}
	assert.Equal(t, 1, changes)
	assert.Equal(t, Outputs{Pump1: true, Pump2: true, Valve: true, Heater: true}, a.Outputs())
	assert.Equal(t, uint32(50), a.State(Heater).Cycles)
}

func TestMinimumOnDwell(t *testing.T) {
	s := DefaultSettings()
	for act := Actuator(0); act < NumActuators; act++ {
		t.Run(act.String(), func(t *testing.T) {
			a := NewActuators()
			require.True(t, a.Apply(modeFor(act, true), s))
			require.True(t, a.State(act).On)

			stays := 0
			for a.State(act).On {
				a.Apply(modeFor(act, false), s)
				if a.State(act).On {
					stays++
				}
				require.Less(t, stays, 1000)
			}
			assert.Equal(t, int(Dwells[act].MinOn), stays)
		})
	}
}

func TestMinimumOffDwell(t *testing.T) {
	s := DefaultSettings()
	for act := Actuator(0); act < NumActuators; act++ {
		t.Run(act.String(), func(t *testing.T) {
			a := NewActuators()
			a.Apply(modeFor(act, true), s)
			for a.State(act).On {
				a.Apply(modeFor(act, false), s)
			}

			stays := 0
			for !a.State(act).On {
				a.Apply(modeFor(act, true), s)
				if !a.State(act).On {
					stays++
				}
				require.Less(t, stays, 1000)
			}
			assert.Equal(t, int(Dwells[act].MinOff), stays)
		})
	}
}

func TestPump1HeldWhileValveOpen(t *testing.T) {
	a := NewActuators()
	s := DefaultSettings()

	a.Apply(HeatMode{Pump1: true, Valve: true}, s)
	for i := 0; i < 100; i++ {
		a.Apply(HeatMode{Valve: true}, s)
	}
	assert.True(t, a.State(Pump1).On, "pump1 must run while the valve is open")

	cycles := 0
	for a.State(Pump1).On {
		a.Apply(HeatMode{}, s)
		cycles++
		require.Less(t, cycles, 100)
	}
	assert.False(t, a.State(Valve).On)
	assert.Equal(t, uint32(1), a.State(Pump1).Cycles)
	assert.Greater(t, a.State(Valve).Cycles, Dwells[Valve].MinOff)
}

func TestUsePumpFlags(t *testing.T) {
	s := DefaultSettings()
	s.UsePump1 = false
	s.UsePump2 = false

	a := NewActuators()
	assert.False(t, a.Apply(HeatMode{Pump1: true, Pump2: true}, s))
	assert.Equal(t, Outputs{}, a.Outputs())
}

func TestHeatRequestAndForceDriveHeater(t *testing.T) {
	s := DefaultSettings()

	a := NewActuators()
	a.Apply(HeatMode{HeatRequest: true}, s)
	assert.True(t, a.State(Heater).On)

	a = NewActuators()
	a.Apply(HeatMode{HeatForce: true}, s)
	assert.True(t, a.State(Heater).On)
}

func TestFlipsRespectDwell(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := NewActuators()
	s := DefaultSettings()

	for i := 0; i < 20000; i++ {
		m := HeatMode{
			Pump1:     rng.Intn(3) == 0,
			Pump2:     rng.Intn(2) == 0,
			Valve:     rng.Intn(4) == 0,
			HeatForce: rng.Intn(2) == 0,
		}
		before := a.States()
		a.Apply(m, s)
		after := a.States()

		for act := Actuator(0); act < NumActuators; act++ {
			if before[act].On == after[act].On {
				assert.Equal(t, before[act].Cycles+1, after[act].Cycles)
				continue
			}
			min := Dwells[act].MinOff
			if before[act].On {
				min = Dwells[act].MinOn
			}
			assert.Greater(t, before[act].Cycles, min, "%s flipped too early at %d", act, i)
			assert.Equal(t, uint32(1), after[act].Cycles)
		}
	}
}

func TestHastenHeaterOff(t *testing.T) {
	a := NewActuators()
	s := DefaultSettings()
	a.Apply(HeatMode{HeatForce: true}, s)
	require.Equal(t, uint32(1), a.State(Heater).Cycles)

	a.HastenHeaterOff()
	assert.Equal(t, Dwells[Heater].MinOn+1, a.State(Heater).Cycles)

	assert.True(t, a.Apply(HeatMode{}, s))
	assert.False(t, a.State(Heater).On)
}
