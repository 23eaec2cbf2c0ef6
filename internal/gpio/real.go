//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/solard/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

const consumer = "solard"

// RealLines drives relays through the Linux GPIO character device.
type RealLines struct {
	chip    *gpiocdev.Chip
	outputs *gpiocdev.Lines
	battery *gpiocdev.Line
}

// NewRealLines requests the relay outputs, all off, and the battery input.
// activeLow is set for relay boards that energise on a low level.
func NewRealLines(chipName string, pins Pins, activeLow bool) (*RealLines, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0, 0, 0, 0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	outputs, err := chip.RequestLines([]int{pins.Pump1, pins.Pump2, pins.Valve, pins.Heater}, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pins: %w", err)
	}

	battery, err := chip.RequestLine(pins.Battery, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		outputs.Close()
		chip.Close()
		return nil, fmt.Errorf("request battery pin %d: %w", pins.Battery, err)
	}

	return &RealLines{
		chip:    chip,
		outputs: outputs,
		battery: battery,
	}, nil
}

// Write sets all relays with one SetValues call.
func (r *RealLines) Write(o logic.Outputs) error {
	if err := r.outputs.SetValues(outputValues(o)); err != nil {
		return fmt.Errorf("write relays: %w", err)
	}
	return nil
}

// PoweredByBattery reads the power-source input. High means battery.
func (r *RealLines) PoweredByBattery() (bool, error) {
	v, err := r.battery.Value()
	if err != nil {
		return false, fmt.Errorf("read battery pin: %w", err)
	}
	return v == 1, nil
}

// Disable switches every relay off, then reconfigures all pins to input with
// pull-down (matching Pi boot defaults) and releases them.
func (r *RealLines) Disable() error {
	var errs []error

	if r.outputs != nil {
		if err := r.outputs.SetValues([]int{0, 0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("switch relays off: %w", err))
		}
		if err := r.outputs.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure relay pins: %w", err))
		}
		if err := r.outputs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pins: %w", err))
		}
		r.outputs = nil
	}
	if r.battery != nil {
		if err := r.battery.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close battery pin: %w", err))
		}
		r.battery = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("disable errors: %v", errs)
	}
	return nil
}
