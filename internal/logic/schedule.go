package logic

import (
	"fmt"
	"time"
)

const (
	// DailyRecomputeHour is the hour in which the night window is recomputed
	// and the power counters may be reset.
	DailyRecomputeHour = 8

	summerNightStart = 23
	summerNightStop  = 6
	winterNightStart = 22
	winterNightStop  = 7
)

// HourWindow is a half-open range of hours [Start, Stop).
// A window with Start > Stop wraps past midnight.
type HourWindow struct {
	Start int
	Stop  int
}

// Contains reports whether hour falls inside the window.
func (w HourWindow) Contains(hour int) bool {
	if w.Start > w.Stop {
		return hour >= w.Start || hour < w.Stop
	}
	return hour >= w.Start && hour < w.Stop
}

// Schedule is the clock context shared by the selector and the accountant.
type Schedule struct {
	Hour  int
	Month time.Month
	Day   int

	// Night tariff window: [NightStart, 24) and [0, NightStop], both inclusive.
	NightStart int
	NightStop  int
	Winter     bool

	lastDaily time.Time
}

// NightWindowFor returns the low-tariff window for the month.
// Winter (November to March) starts one hour earlier and ends one hour later.
func NightWindowFor(month time.Month) (start, stop int, winter bool) {
	if month >= time.April && month <= time.October {
		return summerNightStart, summerNightStop, false
	}
	return winterNightStart, winterNightStop, true
}

// InNightWindow reports whether hour is inside the night tariff window.
func (s Schedule) InNightWindow(hour int) bool {
	return hour >= s.NightStart || hour <= s.NightStop
}

// Night reports whether the current hour is inside the night window.
func (s Schedule) Night() bool {
	return s.InNightWindow(s.Hour)
}

// LastNightHours reports whether the current hour is one of the final two
// hours of the night window.
func (s Schedule) LastNightHours() bool {
	return s.Hour == s.NightStop || s.Hour == (s.NightStop+23)%24
}

// refresh updates the clock fields. When force is true, or once a day in
// DailyRecomputeHour, the night window is recomputed too; daily reports the
// latter case.
func (s *Schedule) refresh(now time.Time, force bool) (daily bool, events []Event) {
	s.Hour = now.Hour()
	s.Month = now.Month()
	s.Day = now.Day()

	if s.Hour == DailyRecomputeHour && !sameDay(s.lastDaily, now) {
		daily = true
		s.lastDaily = now
	}
	if !force && !daily {
		return daily, nil
	}

	start, stop, winter := NightWindowFor(s.Month)
	if start != s.NightStart || stop != s.NightStop || winter != s.Winter {
		events = append(events, newEvent(now, SeverityInfo,
			fmt.Sprintf("schedule: night window %02d:00-%02d:59 winter=%t", start, stop, winter)))
	}
	s.NightStart, s.NightStop, s.Winter = start, stop, winter
	return daily, events
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
