package gpio

import "github.com/sweeney/solard/internal/logic"

// FakeLines is a test double that records relay writes and returns scripted
// power-source samples.
type FakeLines struct {
	// Writes contains every successful Write in order.
	Writes []logic.Outputs

	// Battery contains scripted PoweredByBattery values. Each call consumes
	// the next one; the last repeats. Empty means mains.
	Battery []bool

	// WriteError, if set, is returned by Write.
	WriteError error

	// BatteryError, if set, is returned by PoweredByBattery.
	BatteryError error

	// DisableError, if set, is returned by Disable.
	DisableError error

	// Disabled tracks if Disable was called, DisableCalls how often.
	Disabled     bool
	DisableCalls int

	index int
}

// NewFakeLines creates FakeLines with the given battery samples.
func NewFakeLines(battery ...bool) *FakeLines {
	return &FakeLines{Battery: battery}
}

// Write records o.
func (f *FakeLines) Write(o logic.Outputs) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, o)
	return nil
}

// PoweredByBattery returns the next scripted sample.
func (f *FakeLines) PoweredByBattery() (bool, error) {
	if f.BatteryError != nil {
		return false, f.BatteryError
	}
	if len(f.Battery) == 0 {
		return false, nil
	}
	v := f.Battery[f.index]
	if f.index < len(f.Battery)-1 {
		f.index++
	}
	return v, nil
}

// Disable records the call and, like the hardware, switches everything off.
func (f *FakeLines) Disable() error {
	f.Disabled = true
	f.DisableCalls++
	if f.DisableError != nil {
		return f.DisableError
	}
	f.Writes = append(f.Writes, logic.Outputs{})
	return nil
}

// Last returns the most recent write, or all-off if there was none.
func (f *FakeLines) Last() logic.Outputs {
	if len(f.Writes) == 0 {
		return logic.Outputs{}
	}
	return f.Writes[len(f.Writes)-1]
}
