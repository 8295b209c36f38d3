// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package encoder

import (
	"testing"

	"github.com/relabs-tech/dome-tracker/internal/config"
)

func testConfig() *config.Config {
	cfg, _ := config.Load("/dev/null")
	// config.Load rejects an empty file (its required keys are missing);
	// build a minimal Config by hand instead so the daemon tests don't
	// depend on the loader.
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.EncoderCountsPerRev = 1024
	cfg.EncoderCalibrationFactor = 0.010851
	cfg.EncoderRotationSign = -1
	cfg.EncoderAntiSpikeThresholdDeg = 30
	cfg.EncoderMedianWindow = 5
	cfg.EncoderSwitchCalibAngle = 45
	cfg.EncoderSwitchDebounceSec = 2.0
	cfg.EncoderFreezeTimeoutMS = 2000
	cfg.EncoderMaxSPIErrors = 5
	return cfg
}

func TestDaemonTickWarmupThenPublishes(t *testing.T) {
	reader := NewSimulatedReader()
	reader.SetRaw(100)
	d := NewDaemon(testConfig(), reader)

	for i := 0; i < 2; i++ {
		_, ready, err := d.tick()
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if ready {
			t.Fatalf("tick %d should not be ready before the median filter warms up", i)
		}
	}

	sample, ready, err := d.tick()
	if err != nil {
		t.Fatalf("tick 3: %v", err)
	}
	if !ready {
		t.Fatal("tick 3 should be ready once the median filter has 3 samples")
	}
	if sample.Status != StatusOK {
		t.Fatalf("status = %v, want OK", sample.Status)
	}
}

func TestDaemonSwitchRecalibrates(t *testing.T) {
	reader := NewSimulatedReader()
	reader.SetRaw(500)
	d := NewDaemon(testConfig(), reader)

	reader.SetSwitchClosed(true)
	d.tick()

	if !d.calibrated {
		t.Fatal("expected calibrated=true after switch trigger")
	}

	got := d.calibratedAngle()
	if got < 44.9 || got > 45.1 {
		t.Fatalf("calibratedAngle after switch trigger = %v, want ~45.0", got)
	}
}

// TestDaemonSwitchRecalibratesAfterMultipleTurns exercises the switch
// hit once the wheel has accumulated several full revolutions of
// drifted counts, making sure the reset lands on the reference angle
// (to within one encoder count) rather than only correcting the
// within-revolution remainder.
func TestDaemonSwitchRecalibratesAfterMultipleTurns(t *testing.T) {
	reader := NewSimulatedReader()
	d := NewDaemon(testConfig(), reader)

	// Walk the raw reading through several wraparounds before the
	// switch fires, so total_counts accumulates wraps != 0.
	for _, raw := range []int{0, 800, 600, 400, 200, 900} {
		reader.SetRaw(raw)
		d.tick()
	}

	reader.SetSwitchClosed(true)
	d.tick()

	if !d.calibrated {
		t.Fatal("expected calibrated=true after switch trigger")
	}

	got := d.calibratedAngle()
	if got < 44.9 || got > 45.1 {
		t.Fatalf("calibratedAngle after switch trigger with accumulated wraps = %v, want ~45.0", got)
	}
}
