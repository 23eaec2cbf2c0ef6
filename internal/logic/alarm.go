package logic

// AlarmLatch tracks whether an alarm condition is active so that it is
// reported once when it starts and once when it ends.
type AlarmLatch struct {
	active bool
}

// Raise marks the alarm active. It returns true only if it was not already.
func (a *AlarmLatch) Raise() bool {
	if a.active {
		return false
	}
	a.active = true
	return true
}

// Clear marks the alarm inactive. It returns true if it was active.
func (a *AlarmLatch) Clear() bool {
	was := a.active
	a.active = false
	return was
}

// Active reports whether the alarm is currently raised.
func (a *AlarmLatch) Active() bool {
	return a.active
}
