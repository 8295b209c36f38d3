// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motor

import "sync"

// SimulatedDriver models a stepper motor in software: each Step call
// advances a virtual position by one step in the configured direction,
// without touching any hardware. Used for bench testing and the
// encoder-less development workflow.
type SimulatedDriver struct {
	stopToken

	mu                     sync.Mutex
	stepsPerDomeRevolution int
	clockwise              bool
	PositionDeg            float64
	StepCount              int
}

// NewSimulatedDriver creates a simulated driver for a dome with the
// given steps-per-revolution.
func NewSimulatedDriver(stepsPerDomeRevolution int) *SimulatedDriver {
	return &SimulatedDriver{stepsPerDomeRevolution: stepsPerDomeRevolution}
}

// SetDirection records the direction of the next Step calls.
func (s *SimulatedDriver) SetDirection(clockwise bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clockwise = clockwise
	return nil
}

// Step advances the simulated position by one mechanical step and
// sleeps delayUS to behave like real hardware under timing tests.
func (s *SimulatedDriver) Step(delayUS int) error {
	s.mu.Lock()
	stepDeg := 360.0 / float64(s.stepsPerDomeRevolution)
	if s.clockwise {
		s.PositionDeg += stepDeg
	} else {
		s.PositionDeg -= stepDeg
	}
	s.StepCount++
	s.mu.Unlock()
	sleepUS(delayUS)
	return nil
}

var _ Driver = (*SimulatedDriver)(nil)
