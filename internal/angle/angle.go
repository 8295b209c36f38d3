// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package angle implements the circular-angle arithmetic shared by the
// encoder, motor, feedback and regime packages: normalization, shortest
// angular distance, rotation direction and a circular moving-average
// smoother.
package angle

import "math"

// Normalize360 folds an angle in degrees into [0, 360).
func Normalize360(deg float64) float64 {
	result := math.Mod(deg, 360.0)
	if result < 0 {
		result += 360.0
	}
	return result
}

// Normalize180 folds an angle in degrees into [-180, 180).
func Normalize180(deg float64) float64 {
	result := math.Mod(deg+180.0, 360.0)
	if result < 0 {
		result += 360.0
	}
	return result - 180.0
}

// ShortestDistance returns the signed shortest angular distance from
// current to target, in [-180, 180]. A positive result means target is
// reached by rotating clockwise (increasing angle).
func ShortestDistance(current, target float64) float64 {
	delta := Normalize360(target) - Normalize360(current)
	if delta > 180.0 {
		delta -= 360.0
	} else if delta < -180.0 {
		delta += 360.0
	}
	return delta
}

// AreClose reports whether two angles are within tolerance degrees of
// each other along the shortest path.
func AreClose(a, b, tolerance float64) bool {
	return math.Abs(ShortestDistance(a, b)) <= tolerance
}

// RotationDirection returns +1 for clockwise, -1 for counter-clockwise,
// or 0 when current and target are already the same angle (within a
// 0.001 degree epsilon).
func RotationDirection(current, target float64) int {
	delta := ShortestDistance(current, target)
	if math.Abs(delta) < 0.001 {
		return 0
	}
	if delta > 0 {
		return 1
	}
	return -1
}

// StepsForRotation converts a rotation magnitude in degrees into a
// motor step count for a drive with the given steps-per-revolution.
func StepsForRotation(deltaDeg float64, stepsPerRevolution int) int {
	return int(math.Abs(deltaDeg) / (360.0 / float64(stepsPerRevolution)))
}
