// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package encoder

import (
	"sort"

	"github.com/relabs-tech/dome-tracker/internal/angle"
)

// CountsAccumulator tracks the raw 10-bit wheel reading across
// wraparounds, keeping a running total_counts value. A single read
// jumping by more than half the counts range (512 of 1024) is
// interpreted as a wraparound, not a real physical jump, and folded
// into the running total rather than discarded.
type CountsAccumulator struct {
	countsPerRev int
	total        int
	lastRaw      int
	initialized  bool
}

// NewCountsAccumulator creates an accumulator for a wheel with the
// given counts-per-revolution (1024 for a 10-bit EMS22A).
func NewCountsAccumulator(countsPerRev int) *CountsAccumulator {
	return &CountsAccumulator{countsPerRev: countsPerRev}
}

// Update folds a new raw reading into the running total and returns it.
func (c *CountsAccumulator) Update(raw int) int {
	if !c.initialized {
		c.total = raw
		c.lastRaw = raw
		c.initialized = true
		return c.total
	}

	diff := raw - c.lastRaw
	half := c.countsPerRev / 2
	if diff > half {
		diff -= c.countsPerRev
	} else if diff < -half {
		diff += c.countsPerRev
	}

	c.total += diff
	c.lastRaw = raw
	return c.total
}

// Total returns the current accumulated count without modifying it.
func (c *CountsAccumulator) Total() int {
	return c.total
}

// Recalibrate overwrites total_counts outright so that, given the
// current raw reading, the next computed calibrated angle equals
// targetAngleDeg to within one encoder count: the count value is
// truncated to an integer, so the fractional part of a count is not
// kept. The reference microswitch fires once per
// revolution at a known dome angle, and on every hit total_counts is
// reset to that angle's count value rather than folded in: any drift
// accumulated since the last switch hit (including a miscounted wrap)
// is discarded, not carried forward.
func (c *CountsAccumulator) Recalibrate(targetAngleDeg float64, calibrationFactor float64, rotationSign int, raw int) {
	// angle = ((total/countsPerRev)*360*factor*sign) mod 360
	// => total = targetAngle / (360*factor*sign) * countsPerRev
	wheelDegrees := targetAngleDeg / (calibrationFactor * float64(rotationSign))
	c.total = int(wheelDegrees / 360.0 * float64(c.countsPerRev))
	c.lastRaw = raw
}

// AntiSpikeFilter rejects readings that jump by more than a threshold
// (in degrees, along the shortest circular path) from the last
// accepted value. The first sample is always accepted.
type AntiSpikeFilter struct {
	thresholdDeg float64
	lastValid    float64
	hasValue     bool
}

// NewAntiSpikeFilter creates a filter with the given jump threshold.
func NewAntiSpikeFilter(thresholdDeg float64) *AntiSpikeFilter {
	return &AntiSpikeFilter{thresholdDeg: thresholdDeg}
}

// Accept reports whether sample should be accepted, and if so records
// it as the new last-valid reference.
func (f *AntiSpikeFilter) Accept(sample float64) bool {
	if !f.hasValue {
		f.lastValid = sample
		f.hasValue = true
		return true
	}
	if jump := angle.ShortestDistance(f.lastValid, sample); jump > f.thresholdDeg || jump < -f.thresholdDeg {
		return false
	}
	f.lastValid = sample
	return true
}

// MedianFilter is a fixed-size FIFO of recent angle samples that
// publishes the median once it holds at least minSamples readings,
// smoothing out single-sample SPI noise without lagging like a mean
// filter would on a genuine step change.
type MedianFilter struct {
	window     int
	minSamples int
	buf        []float64
}

// NewMedianFilter creates a median filter over the given window,
// publishing once minSamples values have been collected.
func NewMedianFilter(window, minSamples int) *MedianFilter {
	if window <= 0 {
		window = 5
	}
	if minSamples <= 0 {
		minSamples = 3
	}
	return &MedianFilter{window: window, minSamples: minSamples}
}

// Push adds a sample and returns (median, true) once enough samples
// have accumulated, or (0, false) while still warming up.
func (m *MedianFilter) Push(sample float64) (float64, bool) {
	m.buf = append(m.buf, sample)
	if len(m.buf) > m.window {
		m.buf = m.buf[1:]
	}
	if len(m.buf) < m.minSamples {
		return 0, false
	}

	sorted := append([]float64(nil), m.buf...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2.0, true
}
