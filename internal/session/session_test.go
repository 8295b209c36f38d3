// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/abaque"
	"github.com/relabs-tech/dome-tracker/internal/angle"
	"github.com/relabs-tech/dome-tracker/internal/astro"
	"github.com/relabs-tech/dome-tracker/internal/catalog"
	"github.com/relabs-tech/dome-tracker/internal/encoder"
	"github.com/relabs-tech/dome-tracker/internal/feedback"
	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
	"github.com/relabs-tech/dome-tracker/internal/motor"
	"github.com/relabs-tech/dome-tracker/internal/regime"
)

func writeAbaqueFixture(t *testing.T, path string) {
	t.Helper()
	doc := map[string]any{
		"rows": []map[string]any{
			{
				"altitude": 30.0,
				"points": []map[string]any{
					{"object_azimuth": 0.0, "dome_azimuth": 0.0},
					{"object_azimuth": 90.0, "dome_azimuth": 90.0},
					{"object_azimuth": 180.0, "dome_azimuth": 180.0},
					{"object_azimuth": 270.0, "dome_azimuth": 270.0},
				},
			},
			{
				"altitude": 60.0,
				"points": []map[string]any{
					{"object_azimuth": 0.0, "dome_azimuth": 0.0},
					{"object_azimuth": 90.0, "dome_azimuth": 90.0},
					{"object_azimuth": 180.0, "dome_azimuth": 180.0},
					{"object_azimuth": 270.0, "dome_azimuth": 270.0},
				},
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func newTestSession(t *testing.T, encoderPath string) *Session {
	t.Helper()

	abaquePath := filepath.Join(t.TempDir(), "abaque.json")
	writeAbaqueFixture(t, abaquePath)
	tbl, err := abaque.Load(abaquePath)
	if err != nil {
		t.Fatalf("abaque.Load: %v", err)
	}

	resolver := catalog.NewStatic([]catalog.Object{
		{Name: "Vega", RADeg: 279.23, DecDeg: 38.78},
	})
	ephemeris := astro.Static{Position: astro.HorizontalPosition{AltitudeDeg: 30, AzimuthDeg: 90}}

	driver := motor.NewSimulatedDriver(1000)
	reader := encoder.NewReader(encoderPath, 500)
	ctrl := feedback.NewController(driver, reader, 1000)
	mgr := regime.NewManager(regime.DefaultModeParams(60, 0.5), regime.DefaultThresholds())

	return New(Config{
		Resolver:                    resolver,
		Ephemeris:                   ephemeris,
		AbaqueTable:                 tbl,
		RegimeManager:               mgr,
		Controller:                  ctrl,
		Driver:                      driver,
		Reader:                      reader,
		StepsPerDomeRevolution:      1000,
		LargeMovementThresholdDeg:   30.0,
		AcceptableErrorThresholdDeg: 2.0,
		MaxFailedFeedback:           3,
		HistoryDir:                  filepath.Join(t.TempDir(), "sessions"),
		HistoryMaxKept:              5,
	})
}

func writeEncoderSample(t *testing.T, path string, angleDeg float64, status encoder.Status) {
	t.Helper()
	err := ipcfile.WriteJSON(path, encoder.Sample{
		TimestampUnix: float64(time.Now().UnixNano()) / 1e9,
		AngleDeg:      angleDeg,
		Status:        status,
		Calibrated:    true,
	})
	if err != nil {
		t.Fatalf("writeEncoderSample: %v", err)
	}
}

func TestStartSkipsGotoWhenAlreadyOnTarget(t *testing.T) {
	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json")
	writeEncoderSample(t, encoderPath, 90.0, encoder.StatusOK)

	s := newTestSession(t, encoderPath)
	if err := s.Start("Vega", 2.0, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatal("expected session to be active after Start")
	}
	if !angle.AreClose(s.PositionDeg(), 90.0, 0.5) {
		t.Errorf("PositionDeg = %v, want close to 90", s.PositionDeg())
	}
}

func TestStartSkipGotoAssumesPreCentred(t *testing.T) {
	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json")
	// Encoder reads far from the abaque target; without skip_goto this
	// would trigger an initial GOTO.
	writeEncoderSample(t, encoderPath, 0.0, encoder.StatusOK)

	s := newTestSession(t, encoderPath)
	if err := s.Start("Vega", 2.0, true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatal("expected session to be active after Start")
	}
	if !angle.AreClose(s.PositionDeg(), 90.0, 0.5) {
		t.Errorf("PositionDeg = %v, want the abaque target 90 (skip_goto should not move the dome)", s.PositionDeg())
	}
}

func TestStartSkipsGotoWhenEncoderNotCalibrated(t *testing.T) {
	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json")
	err := ipcfile.WriteJSON(encoderPath, encoder.Sample{
		TimestampUnix: float64(time.Now().UnixNano()) / 1e9,
		AngleDeg:      0.0,
		Status:        encoder.StatusOK,
		Calibrated:    false,
	})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	s := newTestSession(t, encoderPath)
	if err := s.Start("Vega", 2.0, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatal("expected session to be active after Start")
	}
	if !angle.AreClose(s.PositionDeg(), 90.0, 0.5) {
		t.Errorf("PositionDeg = %v, want the abaque target 90 (uncalibrated encoder should skip GOTO, not move the dome)", s.PositionDeg())
	}
}

func TestStartDegradedWhenEncoderUnavailable(t *testing.T) {
	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json") // never written

	s := newTestSession(t, encoderPath)
	if err := s.Start("Vega", 2.0, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatal("expected session to be active even in degraded mode")
	}
	if s.encoderAvailable {
		t.Error("expected encoderAvailable=false when encoder file was never published")
	}
}

func TestStartUnknownObjectFails(t *testing.T) {
	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json")
	writeEncoderSample(t, encoderPath, 90.0, encoder.StatusOK)

	s := newTestSession(t, encoderPath)
	if err := s.Start("Nonexistent", 2.0, false); err == nil {
		t.Fatal("expected an error resolving an unknown object")
	}
	if s.Active() {
		t.Error("session should not become active when Start fails")
	}
}

func TestStopPersistsBilan(t *testing.T) {
	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json")
	writeEncoderSample(t, encoderPath, 90.0, encoder.StatusOK)

	s := newTestSession(t, encoderPath)
	if err := s.Start("Vega", 2.0, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()

	if s.Active() {
		t.Error("expected session inactive after Stop")
	}

	entries, err := os.ReadDir(s.historyDir)
	if err != nil {
		t.Fatalf("ReadDir history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one persisted bilan file, got %d", len(entries))
	}
}

func TestTickNoOpBeforeNextCorrectionTime(t *testing.T) {
	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json")
	writeEncoderSample(t, encoderPath, 90.0, encoder.StatusOK)

	s := newTestSession(t, encoderPath)
	if err := s.Start("Vega", 2.0, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.nextCorrectionTime = time.Now().Add(time.Hour)

	before := s.TotalCorrections()
	s.Tick()
	if s.TotalCorrections() != before {
		t.Errorf("Tick fired early: corrections went from %d to %d", before, s.TotalCorrections())
	}
}
