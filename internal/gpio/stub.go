//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/solard/internal/logic"
)

// RealLines is not available on non-Linux platforms.
type RealLines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines(chipName string, pins Pins, activeLow bool) (*RealLines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Write is not implemented on non-Linux platforms.
func (r *RealLines) Write(o logic.Outputs) error {
	return errors.New("gpio: not supported")
}

// PoweredByBattery is not implemented on non-Linux platforms.
func (r *RealLines) PoweredByBattery() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Disable is not implemented on non-Linux platforms.
func (r *RealLines) Disable() error {
	return nil
}
