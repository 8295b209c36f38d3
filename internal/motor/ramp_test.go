// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motor

import "testing"

func noWarmupConfig() RampConfig {
	cfg := DefaultRampConfig()
	cfg.WarmupEnabled = false
	return cfg
}

func TestRampDisabledBelowMinSteps(t *testing.T) {
	cfg := noWarmupConfig()
	r := NewAccelerationRamp(50, 1000, cfg)
	if r.RampEnabled() {
		t.Fatal("expected ramp disabled for a move shorter than MinStepsForRamp")
	}
	for _, i := range []int{0, 10, 49} {
		if got := r.GetDelay(i); got != 1000 {
			t.Errorf("GetDelay(%d) = %v, want flat 1000 (target delay)", i, got)
		}
	}
}

func TestRampLongMoveAccelDecel(t *testing.T) {
	cfg := noWarmupConfig()
	r := NewAccelerationRamp(10000, 1000, cfg)
	if !r.RampEnabled() {
		t.Fatal("expected ramp enabled for a long move")
	}
	if r.AccelEnd() != cfg.RampSteps {
		t.Errorf("AccelEnd = %d, want %d", r.AccelEnd(), cfg.RampSteps)
	}
	if r.DecelStart() != 10000-cfg.RampSteps {
		t.Errorf("DecelStart = %d, want %d", r.DecelStart(), 10000-cfg.RampSteps)
	}

	if got := r.GetDelay(0); got < float64(cfg.RampStartDelayUS)*0.99 {
		t.Errorf("GetDelay(0) = %v, want close to RampStartDelayUS %d", got, cfg.RampStartDelayUS)
	}

	// Cruise phase holds the target delay constant.
	if got := r.GetDelay(r.AccelEnd() + 10); got != 1000 {
		t.Errorf("cruise GetDelay = %v, want 1000", got)
	}

	// Monotonic non-increasing acceleration.
	prev := r.GetDelay(0)
	for i := 10; i < r.AccelEnd(); i += 10 {
		cur := r.GetDelay(i)
		if cur > prev+1e-9 {
			t.Fatalf("acceleration phase not monotonic at step %d: %v > %v", i, cur, prev)
		}
		prev = cur
	}
}

func TestRampShortMoveProportional(t *testing.T) {
	cfg := noWarmupConfig()
	r := NewAccelerationRamp(600, 1000, cfg)
	if r.AccelEnd() != 150 {
		t.Errorf("AccelEnd for 600-step move = %d, want 150", r.AccelEnd())
	}
	if r.DecelStart() != 450 {
		t.Errorf("DecelStart for 600-step move = %d, want 450", r.DecelStart())
	}
}

func TestSCurveEndpoints(t *testing.T) {
	if sCurve(0) != 0 {
		t.Errorf("sCurve(0) = %v, want 0", sCurve(0))
	}
	if sCurve(1) != 1 {
		t.Errorf("sCurve(1) = %v, want 1", sCurve(1))
	}
}

func TestRampWarmup(t *testing.T) {
	cfg := DefaultRampConfig()
	r := NewAccelerationRamp(10000, 1000, cfg)
	for i := 0; i < cfg.WarmupSteps; i++ {
		if got := r.GetDelay(i); got != float64(cfg.WarmupDelayUS) {
			t.Errorf("GetDelay(%d) during warmup = %v, want %d", i, got, cfg.WarmupDelayUS)
		}
	}
}

// TestRampWarmupWithRampPhasesCorrect makes sure the acceleration phase
// starts right when warm-up ends (accelEnd offset by WarmupSteps) and
// that the ramp curve reaches RampStartDelayUS at that boundary, rather
// than being squeezed into the warm-up window.
func TestRampWarmupWithRampPhasesCorrect(t *testing.T) {
	cfg := DefaultRampConfig()
	r := NewAccelerationRamp(10000, 1000, cfg)

	if want := cfg.WarmupSteps + cfg.RampSteps; r.AccelEnd() != want {
		t.Fatalf("AccelEnd = %d, want %d (WarmupSteps + RampSteps)", r.AccelEnd(), want)
	}

	if got := r.GetDelay(cfg.WarmupSteps); got < float64(cfg.RampStartDelayUS)*0.99 {
		t.Errorf("GetDelay at warm-up boundary = %v, want close to RampStartDelayUS %d", got, cfg.RampStartDelayUS)
	}

	prev := r.GetDelay(cfg.WarmupSteps)
	for i := cfg.WarmupSteps + 10; i < r.AccelEnd(); i += 10 {
		cur := r.GetDelay(i)
		if cur > prev+1e-9 {
			t.Fatalf("acceleration phase not monotonic at step %d: %v > %v", i, cur, prev)
		}
		prev = cur
	}

	if got := r.GetDelay(r.AccelEnd()); got != 1000 {
		t.Errorf("cruise GetDelay right after accel phase = %v, want 1000", got)
	}
}
