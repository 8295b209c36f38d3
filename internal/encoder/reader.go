// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package encoder

import (
	"fmt"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
)

// ReadOutcome tags the result of a Reader read: instead of the
// original's StaleDataError/FrozenEncoderError exceptions, callers
// switch on this value (spec.md §9's sum-type redesign note).
type ReadOutcome int

const (
	OutcomeOK ReadOutcome = iota
	OutcomeStale
	OutcomeFrozen
	OutcomeDegraded
	OutcomeUnavailable
)

func (o ReadOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeStale:
		return "stale"
	case OutcomeFrozen:
		return "frozen"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unavailable"
	}
}

// Reading is the result of a single Reader.Read call.
type Reading struct {
	AngleDeg float64
	Outcome  ReadOutcome
	Sample   Sample
}

// Reader is the client-side consumer of the encoder daemon's published
// IPC file: the motor service and feedback controller read through
// this, never the file directly.
type Reader struct {
	path      string
	maxAgeMS  int
}

// NewReader creates a Reader against the encoder IPC file at path,
// rejecting samples older than maxAgeMS milliseconds.
func NewReader(path string, maxAgeMS int) *Reader {
	if maxAgeMS <= 0 {
		maxAgeMS = 500
	}
	return &Reader{path: path, maxAgeMS: maxAgeMS}
}

// IsAvailable reports whether the encoder IPC file currently holds a
// readable sample, without enforcing freshness.
func (r *Reader) IsAvailable() bool {
	var s Sample
	return ipcfile.ReadJSON(r.path, &s) == nil
}

// Read fetches the latest published sample and classifies it:
//   - OutcomeUnavailable: the file doesn't exist or can't be parsed.
//   - OutcomeStale: the sample is older than maxAgeMS.
//   - OutcomeFrozen: the daemon reports the encoder hasn't moved for
//     too long.
//   - OutcomeDegraded: the daemon reports an SPI hiccup but is still
//     publishing its last-good angle.
//   - OutcomeOK: a fresh, healthy sample.
func (r *Reader) Read() Reading {
	var s Sample
	if err := ipcfile.ReadJSON(r.path, &s); err != nil {
		return Reading{Outcome: OutcomeUnavailable}
	}

	ageMS := (float64(time.Now().UnixNano())/1e9 - s.TimestampUnix) * 1000
	if ageMS > float64(r.maxAgeMS) {
		return Reading{AngleDeg: s.AngleDeg, Outcome: OutcomeStale, Sample: s}
	}

	switch s.Status {
	case StatusFrozen:
		return Reading{AngleDeg: s.AngleDeg, Outcome: OutcomeFrozen, Sample: s}
	case StatusSPI:
		return Reading{AngleDeg: s.AngleDeg, Outcome: OutcomeDegraded, Sample: s}
	default:
		return Reading{AngleDeg: s.AngleDeg, Outcome: OutcomeOK, Sample: s}
	}
}

// ReadStable settles briefly, then averages numSamples consecutive
// angle readings delayMS apart, returning the arithmetic mean. Mirrors
// the original reader's read_stable contract: a good reading that
// arrives before every sample has been collected is returned rather
// than discarded.
func (r *Reader) ReadStable(numSamples int, delayMS, stabilizationMS int) (float64, error) {
	time.Sleep(time.Duration(stabilizationMS) * time.Millisecond)

	var sum float64
	var count int
	for i := 0; i < numSamples; i++ {
		reading := r.Read()
		if reading.Outcome == OutcomeOK || reading.Outcome == OutcomeDegraded {
			sum += reading.AngleDeg
			count++
		}
		if i < numSamples-1 {
			time.Sleep(time.Duration(delayMS) * time.Millisecond)
		}
	}

	if count == 0 {
		return 0, fmt.Errorf("encoder: no valid samples collected in read_stable")
	}
	return sum / float64(count), nil
}
