package logic

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func seededStore(t *testing.T, temp float64) *SensorStore {
	t.Helper()
	s := NewSensorStore()
	for ch := Channel(0); ch < NumChannels; ch++ {
		v, _ := s.Validate(ch, Reading{Temp: temp, OK: true}, true, t0)
		require.Equal(t, temp, v)
	}
	return s
}

func TestValidateSeedsOnStart(t *testing.T) {
	s := NewSensorStore()
	assert.Equal(t, uint16(InitialSensorErrors), s.Errors(Furnace))

	v, events := s.Validate(Furnace, Reading{Temp: 63.5, OK: true}, true, t0)
	assert.Equal(t, 63.5, v)
	assert.Empty(t, events)
	assert.Equal(t, 63.5, s.Current(Furnace))
	assert.Equal(t, 63.5, s.Previous(Furnace))
	assert.Equal(t, uint16(InitialSensorErrors-1), s.Errors(Furnace))
}

func TestValidateSeedsChannelThatFailedAtStart(t *testing.T) {
	s := NewSensorStore()
	s.Validate(BoilerLow, Reading{OK: false}, true, t0)
	assert.Equal(t, unseededTemp, s.Current(BoilerLow))

	v, events := s.Validate(BoilerLow, Reading{Temp: 42, OK: true}, false, t0)
	assert.Equal(t, 42.0, v)
	assert.Empty(t, events)
	assert.Equal(t, 42.0, s.Previous(BoilerLow))
}

func TestUnseeded(t *testing.T) {
	s := NewSensorStore()
	for ch := Channel(0); ch < NumChannels; ch++ {
		r := Reading{Temp: 20, OK: ch != Collector}
		s.Validate(ch, r, true, t0)
	}
	ch, unseeded := s.Unseeded()
	assert.True(t, unseeded)
	assert.Equal(t, Collector, ch)

	s.Validate(Collector, Reading{Temp: 18, OK: true}, false, t0)
	_, unseeded = s.Unseeded()
	assert.False(t, unseeded)
}

func TestValidateClamp(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want float64
		warn bool
	}{
		{name: "small rise accepted", raw: 22, want: 22},
		{name: "exactly max delta accepted", raw: 25, want: 25},
		{name: "rise clamped", raw: 27.5, want: 25, warn: true},
		{name: "fall clamped", raw: 13, want: 15, warn: true},
		{name: "rise at twice max delta clamped", raw: 30, want: 25, warn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seededStore(t, 20)
			v, events := s.Validate(BoilerLow, Reading{Temp: tt.raw, OK: true}, false, t0)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.want, s.Current(BoilerLow))
			assert.Equal(t, 20.0, s.Previous(BoilerLow))
			if tt.warn {
				require.Len(t, events, 1)
				assert.Equal(t, SeverityWarning, events[0].Severity)
			} else {
				assert.Empty(t, events)
			}
		})
	}
}

func TestValidateOutlierKeepsHistory(t *testing.T) {
	s := seededStore(t, 20)
	before := s.Errors(Collector)

	v, events := s.Validate(Collector, Reading{Temp: 85, OK: true}, false, t0)
	assert.Equal(t, 20.0, v)
	assert.Equal(t, 20.0, s.Current(Collector))
	assert.Equal(t, 20.0, s.Previous(Collector))
	assert.Equal(t, before+1, s.Errors(Collector))
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Message, "rejected")
}

func TestValidateReadErrorKeepsValue(t *testing.T) {
	s := seededStore(t, 30)
	before := s.Errors(BoilerHigh)

	v, events := s.Validate(BoilerHigh, Reading{OK: false}, false, t0)
	assert.Equal(t, 30.0, v)
	assert.Equal(t, before+1, s.Errors(BoilerHigh))
	require.Len(t, events, 1)
	assert.Equal(t, SeverityWarning, events[0].Severity)
}

func TestErrorsDecayToZero(t *testing.T) {
	s := seededStore(t, 30)
	for i := 0; i < 10; i++ {
		s.Validate(Furnace, Reading{Temp: 30, OK: true}, false, t0)
	}
	assert.Equal(t, uint16(0), s.Errors(Furnace))
}

func TestFatalThreshold(t *testing.T) {
	s := seededStore(t, 30)
	for i := 0; i < 10; i++ {
		s.Validate(BoilerLow, Reading{Temp: 30, OK: true}, false, t0)
	}

	for i := 0; i < MaxSensorErrors; i++ {
		s.Validate(BoilerLow, Reading{OK: false}, false, t0)
		_, fatal := s.Fatal()
		assert.False(t, fatal, "error %d should be tolerated", i+1)
	}

	s.Validate(BoilerLow, Reading{OK: false}, false, t0)
	ch, fatal := s.Fatal()
	assert.True(t, fatal)
	assert.Equal(t, BoilerLow, ch)
}

func TestFatalThresholdResetByGoodReading(t *testing.T) {
	s := seededStore(t, 30)
	for i := 0; i < 10; i++ {
		s.Validate(Furnace, Reading{Temp: 30, OK: true}, false, t0)
	}

	for i := 0; i < 20; i++ {
		s.Validate(Furnace, Reading{OK: false}, false, t0)
		s.Validate(Furnace, Reading{OK: false}, false, t0)
		s.Validate(Furnace, Reading{Temp: 30, OK: true}, false, t0)
		s.Validate(Furnace, Reading{Temp: 30, OK: true}, false, t0)
	}
	_, fatal := s.Fatal()
	assert.False(t, fatal)
}

func TestFatalAtStartupIsQuick(t *testing.T) {
	s := NewSensorStore()
	s.Validate(Collector, Reading{OK: false}, true, t0)
	_, fatal := s.Fatal()
	assert.False(t, fatal)

	s.Validate(Collector, Reading{OK: false}, true, t0)
	_, fatal = s.Fatal()
	assert.True(t, fatal)
}

func TestValidateNeverExceedsMaxDelta(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := seededStore(t, 40)

	for i := 0; i < 5000; i++ {
		raw := 40 + rng.Float64()*60 - 30
		ok := rng.Intn(20) != 0
		s.Validate(Collector, Reading{Temp: raw, OK: ok}, false, t0)

		c := s.Channels()[Collector]
		assert.LessOrEqual(t, math.Abs(c.Current-c.Previous), MaxDelta+1e-9, "iteration %d", i)
	}
}
