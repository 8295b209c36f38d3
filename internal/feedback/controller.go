// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback implements the closed-loop correction controller:
// read the encoder, compute the remaining error, take a capped
// correction step, repeat until within tolerance, stagnant, out of
// time, or out of iterations.
package feedback

import (
	"math"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/angle"
	"github.com/relabs-tech/dome-tracker/internal/encoder"
	"github.com/relabs-tech/dome-tracker/internal/motor"
)

const (
	defaultProtectionThresholdDeg = 20.0
	maxStagnantCorrections        = 3
	minMovementThresholdDeg       = 0.1
)

// Params configures one RotateWithFeedback call.
type Params struct {
	TargetDeg                 float64
	NominalDelayUS             int
	ToleranceDeg               float64
	MaxIterations              int
	MaxCorrectionPerIterationDeg float64
	AllowLargeMovement         bool
	MaxDuration                time.Duration
	ProtectionThresholdDeg     float64
	UseRamp                    bool
	RampConfig                 motor.RampConfig
}

// Correction records one iteration's measured error and applied step,
// mirroring the original's per-iteration result dict.
type Correction struct {
	Iteration     int
	MeasuredAngle float64
	ErrorDeg      float64
	CorrectionDeg float64
	Direction     int
	Steps         int
}

// Result is the outcome of a RotateWithFeedback call.
type Result struct {
	Success         bool
	Mode            string // "feedback" or "open_loop"
	FinalErrorDeg   float64
	Iterations      []Correction
	TimeoutReached  bool
	EncoderFrozen   bool
	InitialPos      float64
	FinalPos        float64
	Elapsed         time.Duration
}

// Controller runs the closed-loop correction algorithm against a motor
// Driver and an encoder Reader passed in explicitly by the caller
// (spec.md §9: no package-level singleton hardware context).
type Controller struct {
	driver                 motor.Driver
	reader                 *encoder.Reader
	stepsPerDomeRevolution int
}

// NewController builds a Controller over the given driver, encoder
// reader and dome mechanical step count.
func NewController(driver motor.Driver, reader *encoder.Reader, stepsPerDomeRevolution int) *Controller {
	return &Controller{driver: driver, reader: reader, stepsPerDomeRevolution: stepsPerDomeRevolution}
}

// calculateCorrection caps the magnitude of a raw error to
// maxCorrection, and returns it alongside the signed direction and the
// motor step count that magnitude corresponds to.
func calculateCorrection(errorDeg, maxCorrection float64, stepsPerDomeRevolution int) (float64, int, int) {
	correctionDeg := math.Min(math.Abs(errorDeg), maxCorrection)
	direction := 1
	if errorDeg < 0 {
		direction = -1
	}
	steps := angle.StepsForRotation(correctionDeg, stepsPerDomeRevolution)
	return correctionDeg, direction, steps
}

// RotateWithFeedback iterates closed-loop corrections toward
// p.TargetDeg. If the encoder is unavailable at the outset it falls
// back to a single open-loop rotation of the delta implied by the
// reader's last-known position (mode "open_loop").
func (c *Controller) RotateWithFeedback(p Params) Result {
	if p.MaxIterations <= 0 {
		p.MaxIterations = 10
	}
	if p.ToleranceDeg <= 0 {
		p.ToleranceDeg = 0.5
	}
	if p.ProtectionThresholdDeg <= 0 {
		p.ProtectionThresholdDeg = defaultProtectionThresholdDeg
	}
	if p.MaxDuration <= 0 {
		p.MaxDuration = 60 * time.Second
	}
	if p.MaxCorrectionPerIterationDeg <= 0 {
		p.MaxCorrectionPerIterationDeg = 180.0
	}

	start := time.Now()

	if !c.reader.IsAvailable() {
		current, err := c.reader.ReadStable(1, 10, 0)
		if err != nil {
			current = 0
		}
		delta := angle.ShortestDistance(current, p.TargetDeg)
		motor.Rotate(c.driver, c.stepsPerDomeRevolution, delta, p.NominalDelayUS, p.UseRamp, p.RampConfig)
		finalPos := angle.Normalize360(current + delta)
		return Result{
			Mode:          "open_loop",
			FinalErrorDeg: 0,
			InitialPos:    current,
			FinalPos:      finalPos,
			Elapsed:       time.Since(start),
		}
	}

	initialPos, err := c.reader.ReadStable(1, 10, 0)
	if err != nil {
		initialPos = 0
	}

	var corrections []Correction
	var lastMeasured float64
	haveLast := false
	stagnant := 0
	encoderFrozen := false
	timeoutReached := false
	finalError := 0.0
	finalPos := initialPos

	for iter := 1; iter <= p.MaxIterations; iter++ {
		if time.Since(start) > p.MaxDuration {
			timeoutReached = true
			break
		}

		reading := c.reader.Read()
		if reading.Outcome == encoder.OutcomeFrozen {
			encoderFrozen = true
			break
		}

		measured, err := c.reader.ReadStable(3, 10, 50)
		if err != nil {
			encoderFrozen = true
			break
		}
		finalPos = measured

		errDeg := angle.ShortestDistance(measured, p.TargetDeg)
		finalError = errDeg

		if math.Abs(errDeg) < p.ToleranceDeg {
			return Result{
				Success:       true,
				Mode:          "feedback",
				FinalErrorDeg: errDeg,
				Iterations:    corrections,
				InitialPos:    initialPos,
				FinalPos:      finalPos,
				Elapsed:       time.Since(start),
			}
		}

		if math.Abs(errDeg) > p.ProtectionThresholdDeg && !p.AllowLargeMovement {
			break
		}

		if haveLast {
			movement := math.Abs(angle.ShortestDistance(lastMeasured, measured))
			if movement < minMovementThresholdDeg {
				stagnant++
				if stagnant >= maxStagnantCorrections {
					encoderFrozen = true
					break
				}
			} else {
				stagnant = 0
			}
		}
		lastMeasured = measured
		haveLast = true

		correctionDeg, direction, steps := calculateCorrection(errDeg, p.MaxCorrectionPerIterationDeg, c.stepsPerDomeRevolution)
		signedCorrection := correctionDeg * float64(direction)
		motor.Rotate(c.driver, c.stepsPerDomeRevolution, signedCorrection, p.NominalDelayUS, p.UseRamp, p.RampConfig)

		corrections = append(corrections, Correction{
			Iteration:     iter,
			MeasuredAngle: measured,
			ErrorDeg:      errDeg,
			CorrectionDeg: correctionDeg,
			Direction:     direction,
			Steps:         steps,
		})

		time.Sleep(50 * time.Millisecond)
	}

	// Exhausting the iteration budget without converging, or aborting on
	// the protection threshold, is the same "gave up" outcome as a
	// time-based timeout from the caller's perspective. A frozen encoder
	// is reported only through EncoderFrozen, not as a timeout.
	if !encoderFrozen && math.Abs(finalError) >= p.ToleranceDeg {
		timeoutReached = true
	}

	success := math.Abs(finalError) < p.ToleranceDeg && !timeoutReached && !encoderFrozen
	return Result{
		Success:        success,
		Mode:           "feedback",
		FinalErrorDeg:  finalError,
		Iterations:     corrections,
		TimeoutReached: timeoutReached,
		EncoderFrozen:  encoderFrozen,
		InitialPos:     initialPos,
		FinalPos:       finalPos,
		Elapsed:        time.Since(start),
	}
}

// RotateRelativeWithFeedback is RotateWithFeedback expressed as a
// delta from the current stabilized reading rather than an absolute
// target.
func (c *Controller) RotateRelativeWithFeedback(deltaDeg float64, p Params) Result {
	current, err := c.reader.ReadStable(3, 10, 50)
	if err != nil {
		current = 0
	}
	p.TargetDeg = angle.Normalize360(current + deltaDeg)
	return c.RotateWithFeedback(p)
}
