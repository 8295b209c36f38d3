// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motor

import (
	"sync/atomic"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/angle"
)

// stopCheckInterval is how often, in steps, a long rotation polls the
// shared stop token (spec.md §4.B/§5: "every 500 steps").
const stopCheckInterval = 500

// Driver is the motor hardware abstraction: a real GPIO-backed driver
// and a simulated one share this interface (spec.md §9's redesign
// note), so the rest of the system never branches on hardware
// presence.
type Driver interface {
	SetDirection(clockwise bool) error
	Step(delayUS int) error
	RequestStop()
	ClearStopRequest()
	StopRequested() bool
}

// minStepDelayUS is the hardware-enforced floor below which the driver
// refuses to sleep less, regardless of the caller's requested delay
// (spec.md §4.B/§8 invariant #4).
const minStepDelayUS = 10

func clampDelay(delayUS int) int {
	if delayUS < minStepDelayUS {
		return minStepDelayUS
	}
	return delayUS
}

// Rotate drives delta degrees (signed, shortest-path convention
// already resolved by the caller) at the given base delay. When
// useRamp is true the per-step delay follows an S-curve acceleration
// profile; rotation checks the stop token every stopCheckInterval
// steps and returns early (with the steps actually taken) if stopped.
func Rotate(d Driver, stepsPerDomeRevolution int, deltaDeg float64, baseDelayUS int, useRamp bool, rampCfg RampConfig) int {
	steps := angle.StepsForRotation(deltaDeg, stepsPerDomeRevolution)
	if steps == 0 {
		return 0
	}

	d.SetDirection(deltaDeg > 0)

	var ramp *AccelerationRamp
	if useRamp {
		ramp = NewAccelerationRamp(steps, float64(clampDelay(baseDelayUS)), rampCfg)
	}

	taken := 0
	for i := 0; i < steps; i++ {
		if i%stopCheckInterval == 0 && d.StopRequested() {
			return taken
		}
		delay := baseDelayUS
		if ramp != nil {
			delay = int(ramp.GetDelay(i))
		}
		if err := d.Step(clampDelay(delay)); err != nil {
			return taken
		}
		taken++
	}
	return taken
}

// RotateAbsolute rotates to targetDeg from currentDeg along the
// shortest path.
func RotateAbsolute(d Driver, stepsPerDomeRevolution int, currentDeg, targetDeg float64, baseDelayUS int, useRamp bool, rampCfg RampConfig) int {
	delta := angle.ShortestDistance(currentDeg, targetDeg)
	return Rotate(d, stepsPerDomeRevolution, delta, baseDelayUS, useRamp, rampCfg)
}

// stopToken is the single cooperative cancellation flag shared by a
// driver and everything built on top of it (feedback controller,
// session), replacing the original's multiple independent
// stop_requested flags (spec.md §9's redesign note).
type stopToken struct {
	requested atomic.Bool
}

func (s *stopToken) RequestStop()        { s.requested.Store(true) }
func (s *stopToken) ClearStopRequest()   { s.requested.Store(false) }
func (s *stopToken) StopRequested() bool { return s.requested.Load() }

// sleepUS sleeps for the given number of microseconds.
func sleepUS(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
