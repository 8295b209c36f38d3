// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package regime implements the adaptive tracking-mode classifier: it
// decides how aggressively the dome should correct its position based
// on the object's altitude and the size of the pending correction.
package regime

import (
	"math"

	"github.com/relabs-tech/dome-tracker/internal/angle"
)

// Mode names the tracking regime.
type Mode string

const (
	ModeNormal     Mode = "normal"
	ModeCritical   Mode = "critical"
	ModeContinuous Mode = "continuous"
)

// Parameters are the per-mode tracking knobs.
type Parameters struct {
	Mode               Mode
	CheckIntervalSec   int
	CorrectionThresholdDeg float64
	MotorDelayUS       int
	Description        string
}

// CriticalZone is a rectangle in (altitude, azimuth) space where the
// tracker switches to critical mode, matching a known problem area of
// the mount. An extreme movement, or a zenith altitude with a movement
// above the continuous minimum, still selects continuous mode first.
type CriticalZone struct {
	AltMin, AltMax float64
	AzMin, AzMax   float64
	Name           string
	Enabled        bool
}

// Thresholds holds the numeric boundaries the manager classifies
// altitude and movement against.
type Thresholds struct {
	AltitudeCritical     float64
	AltitudeZenith       float64
	MovementCritical     float64
	MovementExtreme      float64
	MovementMinContinuous float64
	CriticalZone         CriticalZone
}

// DefaultModeParams returns the field-tuned per-mode defaults, for
// callers (tests, simple CLIs) that don't load them from a config file.
func DefaultModeParams(baseIntervalSec int, baseThresholdDeg float64) ModeParams {
	return ModeParams{
		NormalCheckIntervalSec:     baseIntervalSec,
		NormalThresholdDeg:         baseThresholdDeg,
		NormalMotorDelayUS:         2000,
		CriticalCheckIntervalSec:   15,
		CriticalThresholdDeg:       baseThresholdDeg * 0.5,
		CriticalMotorDelayUS:       1000,
		ContinuousCheckIntervalSec: 5,
		ContinuousThresholdDeg:     0.1,
		ContinuousMotorDelayUS:     150,
	}
}

// DefaultThresholds returns the field-tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AltitudeCritical:      68.0,
		AltitudeZenith:        75.0,
		MovementCritical:      30.0,
		MovementExtreme:       50.0,
		MovementMinContinuous: 1.0,
	}
}

// ModeParams holds the per-mode tuning the Manager sources its
// Parameters from, normally populated straight from config.Config so
// none of the three regimes' numbers are baked into this package.
type ModeParams struct {
	NormalCheckIntervalSec   int
	NormalThresholdDeg       float64
	NormalMotorDelayUS       int
	CriticalCheckIntervalSec int
	CriticalThresholdDeg     float64
	CriticalMotorDelayUS     int
	ContinuousCheckIntervalSec int
	ContinuousThresholdDeg     float64
	ContinuousMotorDelayUS     int
}

// Manager evaluates which tracking mode applies and remembers the last
// decision for diagnostics.
type Manager struct {
	modeParams ModeParams
	thresholds Thresholds

	currentMode   Mode
	currentParams Parameters
}

// NewManager builds a Manager with the given per-mode parameters and
// classification thresholds.
func NewManager(modeParams ModeParams, thresholds Thresholds) *Manager {
	return &Manager{
		modeParams: modeParams,
		thresholds: thresholds,
		currentMode: ModeNormal,
	}
}

func (m *Manager) paramsFor(mode Mode) Parameters {
	switch mode {
	case ModeCritical:
		return Parameters{
			Mode:                   ModeCritical,
			CheckIntervalSec:       m.modeParams.CriticalCheckIntervalSec,
			CorrectionThresholdDeg: m.modeParams.CriticalThresholdDeg,
			MotorDelayUS:           m.modeParams.CriticalMotorDelayUS,
			Description:            "critical altitude or movement zone",
		}
	case ModeContinuous:
		return Parameters{
			Mode:                   ModeContinuous,
			CheckIntervalSec:       m.modeParams.ContinuousCheckIntervalSec,
			CorrectionThresholdDeg: m.modeParams.ContinuousThresholdDeg,
			MotorDelayUS:           m.modeParams.ContinuousMotorDelayUS,
			Description:            "continuous fast tracking",
		}
	default:
		return Parameters{
			Mode:                   ModeNormal,
			CheckIntervalSec:       m.modeParams.NormalCheckIntervalSec,
			CorrectionThresholdDeg: m.modeParams.NormalThresholdDeg,
			MotorDelayUS:           m.modeParams.NormalMotorDelayUS,
			Description:            "normal tracking",
		}
	}
}

// GetContinuousMotorDelay returns the motor delay used for fast GOTOs
// in continuous mode, without requiring a full Evaluate call.
func (m *Manager) GetContinuousMotorDelay() int {
	return m.paramsFor(ModeContinuous).MotorDelayUS
}

func (m *Manager) altitudeLevel(altitude float64) string {
	switch {
	case altitude >= m.thresholds.AltitudeZenith:
		return "zenith"
	case altitude >= m.thresholds.AltitudeCritical:
		return "critical"
	default:
		return "normal"
	}
}

func (m *Manager) movementLevel(movement float64) string {
	switch {
	case movement >= m.thresholds.MovementExtreme:
		return "extreme"
	case movement >= m.thresholds.MovementCritical:
		return "critical"
	default:
		return "normal"
	}
}

func (m *Manager) inCriticalZone(altitude, azimuth float64) bool {
	z := m.thresholds.CriticalZone
	if !z.Enabled {
		return false
	}
	az := angle.Normalize360(azimuth)
	return altitude >= z.AltMin && altitude <= z.AltMax && az >= z.AzMin && az <= z.AzMax
}

// decideMode applies the priority-ordered decision table: extreme
// movement always wins, then zenith-with-movement, then critical zone,
// then high altitude alone, then critical movement, else normal.
func (m *Manager) decideMode(altitude, azimuth, deltaRequired float64) Mode {
	movementLevel := m.movementLevel(math.Abs(deltaRequired))
	altitudeLevel := m.altitudeLevel(altitude)

	switch {
	case movementLevel == "extreme":
		return ModeContinuous
	case altitudeLevel == "zenith" && math.Abs(deltaRequired) >= m.thresholds.MovementMinContinuous:
		return ModeContinuous
	case m.inCriticalZone(altitude, azimuth):
		return ModeCritical
	case altitudeLevel == "critical" || altitudeLevel == "zenith":
		return ModeCritical
	case movementLevel == "critical":
		return ModeCritical
	default:
		return ModeNormal
	}
}

// Evaluate classifies the current tracking situation and returns the
// parameters to use for the next correction cycle.
func (m *Manager) Evaluate(altitude, azimuth, deltaRequired float64) Parameters {
	mode := m.decideMode(altitude, azimuth, deltaRequired)
	params := m.paramsFor(mode)
	m.currentMode = mode
	m.currentParams = params
	return params
}

// ShortestPath picks whichever rotation direction is mechanically
// shorter between currentPosition and targetPosition, returning the
// signed angle and a human-readable description of which path won.
func ShortestPath(currentPosition, targetPosition float64) (float64, string) {
	current := angle.Normalize360(currentPosition)
	target := angle.Normalize360(targetPosition)
	deltaDirect := target - current

	magnitudeDirect := math.Abs(deltaDirect)
	magnitudeComplement := 360.0 - magnitudeDirect

	if magnitudeComplement < magnitudeDirect {
		if deltaDirect >= 0 {
			return -magnitudeComplement, "counter-clockwise (wrap)"
		}
		return magnitudeComplement, "clockwise (wrap)"
	}

	if deltaDirect >= 0 {
		return magnitudeDirect, "clockwise (direct)"
	}
	return -magnitudeDirect, "counter-clockwise (direct)"
}

// DiagnosticInfo is a snapshot of the manager's current decision,
// exposed for the diagnostics websocket.
type DiagnosticInfo struct {
	Mode              Mode    `json:"mode"`
	Description       string  `json:"description"`
	CheckIntervalSec  int     `json:"check_interval_sec"`
	ThresholdDeg      float64 `json:"threshold_deg"`
	MotorDelayUS      int     `json:"motor_delay_us"`
	InCriticalZone    bool    `json:"in_critical_zone"`
	IsHighAltitude    bool    `json:"is_high_altitude"`
	IsLargeMovement   bool    `json:"is_large_movement"`
	AltitudeLevel     string  `json:"altitude_level"`
	MovementLevel     string  `json:"movement_level"`
}

// GetDiagnosticInfo returns a diagnostic snapshot for the given
// situation without mutating the manager's remembered state.
func (m *Manager) GetDiagnosticInfo(altitude, azimuth, delta float64) DiagnosticInfo {
	altitudeLevel := m.altitudeLevel(altitude)
	movementLevel := m.movementLevel(math.Abs(delta))
	return DiagnosticInfo{
		Mode:             m.currentMode,
		Description:      m.currentParams.Description,
		CheckIntervalSec: m.currentParams.CheckIntervalSec,
		ThresholdDeg:     m.currentParams.CorrectionThresholdDeg,
		MotorDelayUS:     m.currentParams.MotorDelayUS,
		InCriticalZone:   m.inCriticalZone(altitude, azimuth),
		IsHighAltitude:   altitudeLevel == "critical" || altitudeLevel == "zenith",
		IsLargeMovement:  movementLevel == "critical" || movementLevel == "extreme",
		AltitudeLevel:    altitudeLevel,
		MovementLevel:    movementLevel,
	}
}
