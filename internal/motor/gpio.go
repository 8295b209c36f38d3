// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motor

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIODriver is the real hardware Driver: a DIR pin and a STEP pin
// driven directly through periph.io/x/conn/v3, the same layer the
// teacher's own device driver sits on.
type GPIODriver struct {
	stopToken
	dirPin  gpio.PinIO
	stepPin gpio.PinIO
}

// NewGPIODriver opens the DIR and STEP GPIO pins by name.
func NewGPIODriver(dirPinName, stepPinName string) (*GPIODriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("motor: periph host init: %w", err)
	}

	dir := gpioreg.ByName(dirPinName)
	if dir == nil {
		return nil, fmt.Errorf("motor: DIR pin %q not found", dirPinName)
	}
	if err := dir.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("motor: configure DIR pin: %w", err)
	}

	step := gpioreg.ByName(stepPinName)
	if step == nil {
		return nil, fmt.Errorf("motor: STEP pin %q not found", stepPinName)
	}
	if err := step.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("motor: configure STEP pin: %w", err)
	}

	return &GPIODriver{dirPin: dir, stepPin: step}, nil
}

// SetDirection drives the DIR pin high for clockwise, low otherwise.
func (g *GPIODriver) SetDirection(clockwise bool) error {
	level := gpio.Low
	if clockwise {
		level = gpio.High
	}
	return g.dirPin.Out(level)
}

// Step pulses STEP high then low, each held for delayUS/2.
func (g *GPIODriver) Step(delayUS int) error {
	if err := g.stepPin.Out(gpio.High); err != nil {
		return err
	}
	sleepUS(delayUS / 2)
	if err := g.stepPin.Out(gpio.Low); err != nil {
		return err
	}
	sleepUS(delayUS / 2)
	return nil
}

var _ Driver = (*GPIODriver)(nil)
