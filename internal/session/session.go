// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session implements the tracking-session lifecycle: resolve
// an object, perform the initial GOTO if needed, then periodically
// correct the dome's position as the object moves, adapting the
// correction cadence through the regime manager.
package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/abaque"
	"github.com/relabs-tech/dome-tracker/internal/angle"
	"github.com/relabs-tech/dome-tracker/internal/astro"
	"github.com/relabs-tech/dome-tracker/internal/catalog"
	"github.com/relabs-tech/dome-tracker/internal/encoder"
	"github.com/relabs-tech/dome-tracker/internal/feedback"
	"github.com/relabs-tech/dome-tracker/internal/motor"
	"github.com/relabs-tech/dome-tracker/internal/regime"
)

// CorrectionLogEntry records one applied (or skipped) correction tick.
type CorrectionLogEntry struct {
	At         time.Time   `json:"at"`
	Mode       regime.Mode `json:"mode"`
	DeltaDeg   float64     `json:"delta_deg"`
	Applied    bool        `json:"applied"`
	Feedback   bool        `json:"feedback"`
}

// Bilan is the end-of-session summary persisted to disk.
type Bilan struct {
	ObjectName       string             `json:"object_name"`
	StartedAt        time.Time          `json:"started_at"`
	EndedAt          time.Time          `json:"ended_at"`
	DurationSec      float64            `json:"duration_sec"`
	TotalCorrections int                `json:"total_corrections"`
	TotalMovementDeg float64            `json:"total_movement_deg"`
	ModeTimeSec      map[string]float64 `json:"mode_time_sec"`
	EncoderAvailable bool               `json:"encoder_available"`
}

// Session ties together an object to track, a dome-azimuth lookup
// table, the adaptive regime manager, and the motor/feedback hardware
// layer, all constructed explicitly by the caller (spec.md §9: no
// package-level singleton context).
type Session struct {
	resolver   catalog.Resolver
	ephemeris  astro.Ephemeris
	abaqueTbl  *abaque.Table
	regimeMgr  *regime.Manager
	controller *feedback.Controller
	driver     motor.Driver
	reader     *encoder.Reader
	smoother   *angle.Smoother

	stepsPerDomeRevolution int
	largeMovementThresholdDeg   float64
	acceptableErrorThresholdDeg float64
	maxFailedFeedback           int
	historyDir                  string
	historyMaxKept              int

	objectName          string
	encoderOffsetDeg    float64
	positionRelativeDeg float64
	encoderAvailable    bool
	degradedNotified    bool
	failedFeedbackCount int

	active             bool
	startTime          time.Time
	nextCorrectionTime time.Time
	totalCorrections   int
	totalMovementDeg   float64
	modeTimeSec        map[regime.Mode]float64
	lastModeEvalTime   time.Time
	lastMode           regime.Mode
	history            []CorrectionLogEntry
}

// Config bundles the collaborators and thresholds a Session needs.
type Config struct {
	Resolver                    catalog.Resolver
	Ephemeris                   astro.Ephemeris
	AbaqueTable                 *abaque.Table
	RegimeManager               *regime.Manager
	Controller                  *feedback.Controller
	Driver                      motor.Driver
	Reader                      *encoder.Reader
	StepsPerDomeRevolution      int
	LargeMovementThresholdDeg   float64
	AcceptableErrorThresholdDeg float64
	MaxFailedFeedback           int
	HistoryDir                  string
	HistoryMaxKept              int
}

// New constructs an idle Session.
func New(c Config) *Session {
	return &Session{
		resolver:                    c.Resolver,
		ephemeris:                   c.Ephemeris,
		abaqueTbl:                   c.AbaqueTable,
		regimeMgr:                   c.RegimeManager,
		controller:                  c.Controller,
		driver:                      c.Driver,
		reader:                      c.Reader,
		smoother:                    angle.NewSmoother(5),
		stepsPerDomeRevolution:      c.StepsPerDomeRevolution,
		largeMovementThresholdDeg:   c.LargeMovementThresholdDeg,
		acceptableErrorThresholdDeg: c.AcceptableErrorThresholdDeg,
		maxFailedFeedback:           c.MaxFailedFeedback,
		historyDir:                  c.HistoryDir,
		historyMaxKept:              c.HistoryMaxKept,
		modeTimeSec:                 make(map[regime.Mode]float64),
	}
}

// Active reports whether a tracking session is currently running.
func (s *Session) Active() bool { return s.active }

// Start resolves objectName, computes its current horizontal position,
// looks up the required dome azimuth in the abaque table, and performs
// an initial GOTO if the dome isn't already close enough, the caller
// didn't request skipGoto, and the encoder is calibrated (has seen a
// reference-switch hit since startup). If the encoder is unavailable,
// frozen, or merely readable but not yet calibrated, the GOTO is
// skipped and the session starts in degraded (open-loop) mode on the
// assumption the trappe has been mechanically pre-centred.
func (s *Session) Start(objectName string, correctionThresholdDeg float64, skipGoto bool) error {
	obj, err := s.resolver.Resolve(objectName)
	if err != nil {
		return fmt.Errorf("session: resolve %q: %w", objectName, err)
	}

	pos, err := s.ephemeris.HorizontalCoordinates(obj.RADeg, obj.DecDeg, time.Now())
	if err != nil {
		return fmt.Errorf("session: ephemeris: %w", err)
	}

	domeTarget := s.abaqueTbl.GetDomePosition(pos.AltitudeDeg, pos.AzimuthDeg).DomeAzimuthDeg

	s.objectName = objectName
	s.encoderAvailable = s.reader.IsAvailable()
	s.degradedNotified = false
	s.failedFeedbackCount = 0
	s.totalCorrections = 0
	s.totalMovementDeg = 0
	s.modeTimeSec = make(map[regime.Mode]float64)
	s.history = nil
	s.lastMode = ""
	s.encoderOffsetDeg = 0
	s.smoother.Reset()
	s.driver.ClearStopRequest()

	if skipGoto {
		log.Printf("session: skip_goto requested, assuming the trappe is already pre-centred")
		s.positionRelativeDeg = domeTarget
		s.startSessionClock()
		return nil
	}

	if !s.encoderAvailable {
		log.Printf("session: encoder unavailable at start, skipping initial GOTO, starting in degraded mode")
		s.positionRelativeDeg = domeTarget
		s.startSessionClock()
		return nil
	}

	reading := s.reader.Read()
	if reading.Outcome == encoder.OutcomeFrozen {
		log.Printf("session: encoder reports frozen at start, skipping initial GOTO")
		s.positionRelativeDeg = domeTarget
		s.startSessionClock()
		return nil
	}

	if !reading.Sample.Calibrated {
		log.Printf("session: encoder not yet calibrated, assuming the trappe has been mechanically pre-centred, skipping initial GOTO")
		s.positionRelativeDeg = domeTarget
		s.startSessionClock()
		return nil
	}

	realPosition := reading.AngleDeg
	delta, _ := regime.ShortestPath(realPosition, domeTarget)

	if angle.AreClose(realPosition, domeTarget, correctionThresholdDeg) {
		s.positionRelativeDeg = domeTarget
		s.startSessionClock()
		return nil
	}

	allowLarge := delta > s.largeMovementThresholdDeg || delta < -s.largeMovementThresholdDeg
	result := s.controller.RotateWithFeedback(feedback.Params{
		TargetDeg:          angle.Normalize360(realPosition + delta),
		ToleranceDeg:       0.5,
		MaxIterations:      10,
		AllowLargeMovement: allowLarge,
	})
	if !result.Success {
		log.Printf("session: initial GOTO did not fully converge (final error %.2f deg)", result.FinalErrorDeg)
	}

	s.positionRelativeDeg = domeTarget
	encoderAfter := angle.Normalize360(realPosition + delta)
	if result.Success {
		encoderAfter = result.FinalPos
	}
	s.encoderOffsetDeg = angle.ShortestDistance(encoderAfter, s.positionRelativeDeg)
	s.startSessionClock()
	return nil
}

func (s *Session) startSessionClock() {
	s.active = true
	s.startTime = time.Now()
	s.lastModeEvalTime = s.startTime
	s.nextCorrectionTime = s.startTime
}

// Tick runs one correction-loop iteration if due, and is a no-op
// otherwise. Callers invoke this at a cadence at least as fast as the
// fastest regime's check interval (continuous mode: every 5s).
func (s *Session) Tick() {
	if !s.active || time.Now().Before(s.nextCorrectionTime) {
		return
	}

	obj, err := s.resolver.Resolve(s.objectName)
	if err != nil {
		log.Printf("session: re-resolve %q failed: %v", s.objectName, err)
		return
	}
	pos, err := s.ephemeris.HorizontalCoordinates(obj.RADeg, obj.DecDeg, time.Now())
	if err != nil {
		log.Printf("session: ephemeris failed: %v", err)
		return
	}

	rawTarget := s.abaqueTbl.GetDomePosition(pos.AltitudeDeg, pos.AzimuthDeg).DomeAzimuthDeg
	smoothedTarget := s.smoother.Push(rawTarget)

	delta, _ := regime.ShortestPath(s.positionRelativeDeg, smoothedTarget)
	params := s.regimeMgr.Evaluate(pos.AltitudeDeg, pos.AzimuthDeg, delta)
	s.accumulateModeTime(params.Mode)

	if delta > -params.CorrectionThresholdDeg && delta < params.CorrectionThresholdDeg {
		s.nextCorrectionTime = time.Now().Add(time.Duration(params.CheckIntervalSec) * time.Second)
		return
	}

	s.applyCorrection(delta, params)
	s.nextCorrectionTime = time.Now().Add(time.Duration(params.CheckIntervalSec) * time.Second)
}

func (s *Session) accumulateModeTime(mode regime.Mode) {
	now := time.Now()
	s.modeTimeSec[mode] += now.Sub(s.lastModeEvalTime).Seconds()
	s.lastModeEvalTime = now
	s.lastMode = mode
}

func (s *Session) applyCorrection(deltaDeg float64, params regime.Parameters) {
	allowLarge := deltaDeg > s.largeMovementThresholdDeg || deltaDeg < -s.largeMovementThresholdDeg
	entry := CorrectionLogEntry{At: time.Now(), Mode: params.Mode, DeltaDeg: deltaDeg, Applied: true}

	if s.encoderAvailable {
		logicalTarget := angle.Normalize360(s.positionRelativeDeg + deltaDeg)
		encoderTarget := angle.Normalize360(logicalTarget - s.encoderOffsetDeg)

		result := s.controller.RotateWithFeedback(feedback.Params{
			TargetDeg:          encoderTarget,
			ToleranceDeg:       0.5,
			MaxIterations:      10,
			NominalDelayUS:     params.MotorDelayUS,
			AllowLargeMovement: allowLarge,
		})
		entry.Feedback = true

		switch {
		case result.Success:
			s.failedFeedbackCount = 0
		case result.TimeoutReached && absF(result.FinalErrorDeg) < s.acceptableErrorThresholdDeg:
			log.Printf("session: correction timed out but within acceptable error (%.2f deg), not counted as failure", result.FinalErrorDeg)
		default:
			s.failedFeedbackCount++
			log.Printf("session: feedback correction failed (%d/%d)", s.failedFeedbackCount, s.maxFailedFeedback)
			if s.failedFeedbackCount >= s.maxFailedFeedback {
				log.Printf("session: too many consecutive feedback failures, stopping session")
				s.Stop()
				return
			}
		}

		if result.EncoderFrozen && !s.degradedNotified {
			log.Printf("session: encoder frozen, falling back to degraded notifications")
			s.degradedNotified = true
		}

		s.positionRelativeDeg = logicalTarget
	} else {
		if !s.degradedNotified {
			log.Printf("session: correcting without encoder feedback (open loop)")
			s.degradedNotified = true
		}
		motor.Rotate(s.driver, s.stepsPerDomeRevolution, deltaDeg, params.MotorDelayUS, true, motor.DefaultRampConfig())
		s.positionRelativeDeg = angle.Normalize360(s.positionRelativeDeg + deltaDeg)
	}

	s.totalCorrections++
	s.totalMovementDeg += absF(deltaDeg)
	s.history = append(s.history, entry)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Stop ends the session, requests the motor/feedback layer to halt any
// in-flight rotation, and persists a bilan summary to disk.
func (s *Session) Stop() {
	if !s.active {
		return
	}
	s.driver.RequestStop()
	s.accumulateModeTime(s.currentMode())

	bilan := Bilan{
		ObjectName:       s.objectName,
		StartedAt:        s.startTime,
		EndedAt:          time.Now(),
		DurationSec:      time.Since(s.startTime).Seconds(),
		TotalCorrections: s.totalCorrections,
		TotalMovementDeg: s.totalMovementDeg,
		ModeTimeSec:      make(map[string]float64, len(s.modeTimeSec)),
		EncoderAvailable: s.encoderAvailable,
	}
	for mode, sec := range s.modeTimeSec {
		bilan.ModeTimeSec[string(mode)] = sec
	}

	if s.historyDir != "" {
		if err := persistBilan(s.historyDir, s.historyMaxKept, bilan); err != nil {
			log.Printf("session: failed to persist bilan: %v", err)
		}
	}

	s.active = false
	s.objectName = ""
	s.driver.ClearStopRequest()
}

func (s *Session) currentMode() regime.Mode {
	if s.lastMode == "" {
		return regime.ModeNormal
	}
	return s.lastMode
}

// PositionDeg returns the session's current logical dome position.
func (s *Session) PositionDeg() float64 { return s.positionRelativeDeg }

// TotalCorrections returns how many corrections have been applied.
func (s *Session) TotalCorrections() int { return s.totalCorrections }

// TotalMovementDeg returns the cumulative absolute correction angle
// applied so far this session.
func (s *Session) TotalMovementDeg() float64 { return s.totalMovementDeg }

// Mode returns the regime last evaluated by Tick, "" if the session
// has never ticked yet.
func (s *Session) Mode() regime.Mode { return s.lastMode }

// ObjectName returns the name of the object currently being tracked,
// or "" if no session is active.
func (s *Session) ObjectName() string { return s.objectName }

// persistBilan writes a timestamped bilan file into dir, then trims
// the directory down to the maxKept most recent files.
func persistBilan(dir string, maxKept int, bilan Bilan) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	filename := fmt.Sprintf("session_%s.json", bilan.EndedAt.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(bilan, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	if maxKept <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	if len(entries) > maxKept {
		toRemove := entries[:len(entries)-maxKept]
		for _, e := range toRemove {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
	return nil
}
