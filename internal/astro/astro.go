// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package astro declares the narrow boundary between the dome tracker
// and an astronomy/ephemeris engine: computing apparent horizontal
// coordinates for a target is explicitly out of scope (spec.md's
// Non-goals), so this package holds only the interface a session
// depends on, mirroring the teacher's single-method black-box
// "Source" idiom (internal/orientation/orientation.go).
package astro

import "time"

// HorizontalPosition is an object's apparent position in the local
// horizontal coordinate system.
type HorizontalPosition struct {
	AltitudeDeg float64
	AzimuthDeg  float64
}

// Ephemeris computes an object's current horizontal position. Real
// implementations wrap an external ephemeris engine; this package
// ships only the interface and a static implementation useful for
// tests.
type Ephemeris interface {
	HorizontalCoordinates(raDeg, decDeg float64, at time.Time) (HorizontalPosition, error)
}

// Static is a fixed-position Ephemeris for tests and simulation runs
// where the object does not actually move.
type Static struct {
	Position HorizontalPosition
}

func (s Static) HorizontalCoordinates(raDeg, decDeg float64, at time.Time) (HorizontalPosition, error) {
	return s.Position, nil
}

var _ Ephemeris = Static{}
