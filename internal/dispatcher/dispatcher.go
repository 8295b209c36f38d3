// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dispatcher translates IPC commands into actions against a
// tracking session and the motor hardware, de-duplicating commands by
// id so a command file re-read after a restart is never re-applied.
package dispatcher

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/angle"
	"github.com/relabs-tech/dome-tracker/internal/encoder"
	"github.com/relabs-tech/dome-tracker/internal/feedback"
	"github.com/relabs-tech/dome-tracker/internal/motor"
	"github.com/relabs-tech/dome-tracker/internal/regime"
	"github.com/relabs-tech/dome-tracker/internal/session"
	"github.com/relabs-tech/dome-tracker/internal/status"
)

// Dispatcher applies status.Command documents to a Session and the
// underlying motor/feedback hardware, explicitly constructed by the
// caller (spec.md §9: no package-level singleton context).
type Dispatcher struct {
	mu sync.Mutex

	sess       *session.Session
	controller *feedback.Controller
	driver     motor.Driver
	reader     *encoder.Reader
	regimeMgr  *regime.Manager

	stepsPerDomeRevolution int
	correctionThresholdDeg float64
	feedbackMinDeg         float64

	lastCommandID string
	continuousOn  bool
	continuousDir bool
}

// Config bundles the collaborators a Dispatcher needs.
type Config struct {
	Session                *session.Session
	Controller             *feedback.Controller
	Driver                 motor.Driver
	Reader                 *encoder.Reader
	RegimeManager          *regime.Manager
	StepsPerDomeRevolution int
	CorrectionThresholdDeg float64
	// FeedbackMinDeg is the shortest-path delta above which a GOTO
	// takes an open-loop rotation first, refining with feedback only
	// afterward; below it, GOTO goes straight to closed-loop.
	FeedbackMinDeg float64
}

// New builds a Dispatcher.
func New(c Config) *Dispatcher {
	if c.FeedbackMinDeg <= 0 {
		c.FeedbackMinDeg = 3.0
	}
	return &Dispatcher{
		sess:                   c.Session,
		controller:             c.Controller,
		driver:                 c.Driver,
		reader:                 c.Reader,
		regimeMgr:              c.RegimeManager,
		stepsPerDomeRevolution: c.StepsPerDomeRevolution,
		correctionThresholdDeg: c.CorrectionThresholdDeg,
		feedbackMinDeg:         c.FeedbackMinDeg,
	}
}

// Outcome is the result of dispatching one command, used to populate
// the published status document.
type Outcome struct {
	CommandID string
	Applied   bool
	Error     string
}

// Dispatch applies cmd, skipping it entirely (Applied=false, no error)
// if its id matches the last command already processed.
func (d *Dispatcher) Dispatch(cmd status.Command) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cmd.ID != "" && cmd.ID == d.lastCommandID {
		return Outcome{CommandID: cmd.ID, Applied: false}
	}

	var err error
	switch cmd.Action {
	case status.ActionGoto:
		err = d.handleGoto(cmd)
	case status.ActionJog:
		err = d.handleJog(cmd)
	case status.ActionStop:
		err = d.handleStop()
	case status.ActionContinuous:
		err = d.handleContinuous(cmd)
	case status.ActionTrackingStart:
		err = d.handleTrackingStart(cmd)
	case status.ActionTrackingStop:
		err = d.handleTrackingStop()
	case status.ActionStatus:
		// No-op: the status document is already published continuously;
		// this action exists for clients that poll the command channel
		// for a request/response round trip instead.
	default:
		err = fmt.Errorf("dispatcher: unknown action %q", cmd.Action)
	}

	d.lastCommandID = cmd.ID
	if err != nil {
		log.Printf("dispatcher: command %s (%s) failed: %v", cmd.ID, cmd.Action, err)
		return Outcome{CommandID: cmd.ID, Applied: false, Error: err.Error()}
	}
	return Outcome{CommandID: cmd.ID, Applied: true}
}

// handleGoto rotates to an absolute target. A short move goes straight
// to closed-loop feedback; a move whose shortest-path delta exceeds
// feedbackMinDeg takes a fast open-loop rotation first and only then
// refines with feedback, so the motor isn't limited to feedback-loop
// speed for large slews.
func (d *Dispatcher) handleGoto(cmd status.Command) error {
	if cmd.TargetDeg == nil {
		return fmt.Errorf("goto requires angle")
	}
	d.continuousOn = false
	target := angle.Normalize360(*cmd.TargetDeg)
	delayUS := speedDelayUS(cmd.SpeedSec, d.regimeMgr.GetContinuousMotorDelay())

	if d.reader.IsAvailable() {
		current, err := d.reader.ReadStable(1, 10, 0)
		if err == nil {
			delta := angle.ShortestDistance(current, target)
			if absF(delta) > d.feedbackMinDeg {
				motor.Rotate(d.driver, d.stepsPerDomeRevolution, delta, delayUS, true, motor.DefaultRampConfig())
			}
		}
	}

	result := d.controller.RotateWithFeedback(feedback.Params{
		TargetDeg:          target,
		ToleranceDeg:       d.correctionThresholdDeg,
		NominalDelayUS:     delayUS,
		AllowLargeMovement: true,
	})
	if !result.Success && !result.TimeoutReached {
		return fmt.Errorf("goto aborted (final error %.2f deg)", result.FinalErrorDeg)
	}
	return nil
}

// speedDelayUS converts an optional seconds/step speed into the
// microsecond per-step delay RotateWithFeedback/motor.Rotate expect,
// falling back when the caller didn't request a specific speed.
func speedDelayUS(speedSec *float64, fallbackUS int) int {
	if speedSec == nil || *speedSec <= 0 {
		return fallbackUS
	}
	return int(*speedSec * 1_000_000)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (d *Dispatcher) handleJog(cmd status.Command) error {
	if cmd.DeltaDeg == nil {
		return fmt.Errorf("jog requires delta")
	}
	d.continuousOn = false
	result := d.controller.RotateRelativeWithFeedback(*cmd.DeltaDeg, feedback.Params{
		ToleranceDeg:       d.correctionThresholdDeg,
		NominalDelayUS:     speedDelayUS(cmd.SpeedSec, d.regimeMgr.GetContinuousMotorDelay()),
		AllowLargeMovement: true,
	})
	if !result.Success && !result.TimeoutReached {
		return fmt.Errorf("jog aborted (final error %.2f deg)", result.FinalErrorDeg)
	}
	return nil
}

func (d *Dispatcher) handleStop() error {
	d.continuousOn = false
	d.driver.RequestStop()
	if d.sess.Active() {
		d.sess.Stop()
	}
	// Give any in-flight Rotate loop a chance to observe the stop
	// token before the next command clears it.
	time.Sleep(10 * time.Millisecond)
	d.driver.ClearStopRequest()
	return nil
}

func (d *Dispatcher) handleContinuous(cmd status.Command) error {
	switch cmd.Direction {
	case status.DirectionCW:
		d.continuousDir = true
	case status.DirectionCCW:
		d.continuousDir = false
	default:
		return fmt.Errorf("continuous requires direction %q or %q", status.DirectionCW, status.DirectionCCW)
	}
	d.continuousOn = true
	return nil
}

func (d *Dispatcher) handleTrackingStart(cmd status.Command) error {
	if cmd.ObjectName == "" {
		return fmt.Errorf("tracking_start requires object")
	}
	d.continuousOn = false
	return d.sess.Start(cmd.ObjectName, d.correctionThresholdDeg, cmd.SkipGoto)
}

func (d *Dispatcher) handleTrackingStop() error {
	if d.sess.Active() {
		d.sess.Stop()
	}
	return nil
}

// continuousStepDeg is the per-tick rotation unit for continuous mode:
// one degree of open-loop rotation every tick, the tick itself driven
// by the caller at a 100ms cadence.
const continuousStepDeg = 1.0

// RunContinuousStep rotates the dome by continuousStepDeg in the
// current continuous direction if continuous mode is engaged, intended
// to be called every 100ms alongside the command-poll loop.
func (d *Dispatcher) RunContinuousStep() {
	d.mu.Lock()
	on := d.continuousOn
	cw := d.continuousDir
	d.mu.Unlock()
	if !on {
		return
	}
	deltaDeg := continuousStepDeg
	if !cw {
		deltaDeg = -continuousStepDeg
	}
	motor.Rotate(d.driver, d.stepsPerDomeRevolution, deltaDeg, d.regimeMgr.GetContinuousMotorDelay(), false, motor.RampConfig{})
}

// TrackingTick drives the active session's periodic correction, a
// no-op when no session is active.
func (d *Dispatcher) TrackingTick() {
	if d.sess.Active() {
		d.sess.Tick()
	}
}
