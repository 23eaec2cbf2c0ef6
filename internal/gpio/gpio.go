// Package gpio drives the relay outputs and reads the power-source input.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/solard/internal/logic"

// Lines is the digital I/O used by the controller.
type Lines interface {
	// Write sets all four relays in a single operation.
	Write(o logic.Outputs) error

	// PoweredByBattery reports whether the installation runs from battery.
	PoweredByBattery() (bool, error)

	// Disable switches every relay off and releases the lines.
	Disable() error
}

// Pins holds BCM line offsets.
type Pins struct {
	Pump1   int
	Pump2   int
	Valve   int
	Heater  int
	Battery int
}

// outputValues orders o the way the output lines are requested.
func outputValues(o logic.Outputs) []int {
	return []int{b2i(o.Pump1), b2i(o.Pump2), b2i(o.Valve), b2i(o.Heater)}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
