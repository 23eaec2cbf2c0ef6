package logic

import (
	"fmt"
	"math"
	"time"
)

const (
	// MaxDelta is the largest change in °C accepted between two consecutive readings.
	MaxDelta = 5.0
	// MaxSensorErrors is the number of consecutive errors a channel tolerates.
	// One more is fatal: about a minute of failures at the 10 s cadence.
	MaxSensorErrors = 5
	// InitialSensorErrors makes faults present at startup trip quickly.
	InitialSensorErrors = 4

	unseededTemp = -200.0
)

// SensorChannel holds the validated history of one sensor.
type SensorChannel struct {
	Current  float64
	Previous float64
	Errors   uint16
}

// SensorStore holds the validated readings for all channels.
// Validate is its only writer.
type SensorStore struct {
	ch [NumChannels]SensorChannel
}

// NewSensorStore creates a store with unseeded values and startup error counts.
func NewSensorStore() *SensorStore {
	s := &SensorStore{}
	for i := range s.ch {
		s.ch[i] = SensorChannel{
			Current:  unseededTemp,
			Previous: unseededTemp,
			Errors:   InitialSensorErrors,
		}
	}
	return s
}

// Validate folds one raw reading into the channel's history and returns the
// value the controller should use this cycle.
//
// When seed is true, or the channel has never produced a reading, the value
// is accepted as both current and previous without any delta check.
// Otherwise a reading more than 2*MaxDelta away from the last accepted value
// is rejected as an outlier, and one more than MaxDelta away is clamped to
// last ± MaxDelta.
func (s *SensorStore) Validate(ch Channel, r Reading, seed bool, now time.Time) (float64, []Event) {
	c := &s.ch[ch]

	if !r.OK {
		c.Errors++
		return c.Current, []Event{newEvent(now, SeverityWarning,
			fmt.Sprintf("sensor %s: read failed (errors=%d)", ch, c.Errors))}
	}

	if seed || c.Current == unseededTemp {
		c.Previous = r.Temp
		c.Current = r.Temp
		c.decay()
		return c.Current, nil
	}

	var events []Event
	last := c.Current
	accepted := r.Temp
	delta := r.Temp - last

	switch {
	case math.Abs(delta) > 2*MaxDelta:
		c.Errors++
		return c.Current, []Event{newEvent(now, SeverityWarning,
			fmt.Sprintf("sensor %s: rejected %.3f, last %.3f (errors=%d)", ch, r.Temp, last, c.Errors))}
	case delta > MaxDelta:
		accepted = last + MaxDelta
		events = append(events, newEvent(now, SeverityWarning,
			fmt.Sprintf("sensor %s: clamped %.3f to %.3f", ch, r.Temp, accepted)))
	case delta < -MaxDelta:
		accepted = last - MaxDelta
		events = append(events, newEvent(now, SeverityWarning,
			fmt.Sprintf("sensor %s: clamped %.3f to %.3f", ch, r.Temp, accepted)))
	}

	c.Previous = last
	c.Current = accepted
	c.decay()
	return accepted, events
}

func (c *SensorChannel) decay() {
	if c.Errors > 0 {
		c.Errors--
	}
}

// Current returns the last accepted value for the channel.
func (s *SensorStore) Current(ch Channel) float64 {
	return s.ch[ch].Current
}

// Previous returns the value accepted before Current.
func (s *SensorStore) Previous(ch Channel) float64 {
	return s.ch[ch].Previous
}

// Errors returns the consecutive-error counter for the channel.
func (s *SensorStore) Errors(ch Channel) uint16 {
	return s.ch[ch].Errors
}

// Fatal reports the first channel whose error counter exceeds MaxSensorErrors.
func (s *SensorStore) Fatal() (Channel, bool) {
	for i := range s.ch {
		if s.ch[i].Errors > MaxSensorErrors {
			return Channel(i), true
		}
	}
	return 0, false
}

// Unseeded reports the first channel that has not produced a valid reading
// since startup.
func (s *SensorStore) Unseeded() (Channel, bool) {
	for i := range s.ch {
		if s.ch[i].Current == unseededTemp {
			return Channel(i), true
		}
	}
	return 0, false
}

// Channels returns a copy of all channel histories.
func (s *SensorStore) Channels() [NumChannels]SensorChannel {
	return s.ch
}
