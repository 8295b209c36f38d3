// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package regime

import "testing"

func newTestManager() *Manager {
	return NewManager(DefaultModeParams(60, 0.5), DefaultThresholds())
}

func TestDecideModeSeedScenarios(t *testing.T) {
	cases := []struct {
		name               string
		altitude, azimuth, delta float64
		want               Mode
	}{
		{"low altitude small delta", 45, 120, 0.3, ModeNormal},
		{"critical altitude small delta", 69, 60, 2.0, ModeCritical},
		{"just-above-critical mid delta", 70.5, 58, 31, ModeCritical},
		{"extreme movement large delta", 71, 58, 70, ModeContinuous},
		{"zenith small delta above continuous minimum", 76, 180, 5, ModeContinuous},
		{"zenith tiny delta", 76, 180, 0.5, ModeCritical},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := newTestManager()
			got := m.decideMode(c.altitude, c.azimuth, c.delta)
			if got != c.want {
				t.Errorf("decideMode(%v, %v, %v) = %v, want %v", c.altitude, c.azimuth, c.delta, got, c.want)
			}
		})
	}
}

func TestShortestPathPicksSmallerArc(t *testing.T) {
	angle, desc := ShortestPath(350, 10)
	if angle != 20 {
		t.Errorf("ShortestPath(350, 10) angle = %v, want 20", angle)
	}
	if desc == "" {
		t.Error("expected a non-empty description")
	}
}

func TestShortestPathDirectWhenShorter(t *testing.T) {
	angle, _ := ShortestPath(10, 20)
	if angle != 10 {
		t.Errorf("ShortestPath(10, 20) angle = %v, want 10", angle)
	}
}

func TestEvaluateUpdatesCurrentParams(t *testing.T) {
	m := newTestManager()
	params := m.Evaluate(76, 180, 5)
	if params.Mode != ModeContinuous {
		t.Fatalf("expected continuous mode, got %v", params.Mode)
	}
	if params.CorrectionThresholdDeg != 0.1 {
		t.Errorf("continuous threshold = %v, want 0.1", params.CorrectionThresholdDeg)
	}
}

func TestCriticalZoneForcesCritical(t *testing.T) {
	thresholds := DefaultThresholds()
	thresholds.CriticalZone = CriticalZone{AltMin: 40, AltMax: 50, AzMin: 100, AzMax: 140, Enabled: true}
	m := NewManager(DefaultModeParams(60, 0.5), thresholds)
	// Low altitude, small delta would normally be "normal", but the
	// critical zone rectangle overrides it.
	got := m.decideMode(45, 120, 0.3)
	if got != ModeCritical {
		t.Errorf("expected critical zone override, got %v", got)
	}
}
