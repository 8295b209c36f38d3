// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dispatcher

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/abaque"
	"github.com/relabs-tech/dome-tracker/internal/astro"
	"github.com/relabs-tech/dome-tracker/internal/catalog"
	"github.com/relabs-tech/dome-tracker/internal/encoder"
	"github.com/relabs-tech/dome-tracker/internal/feedback"
	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
	"github.com/relabs-tech/dome-tracker/internal/motor"
	"github.com/relabs-tech/dome-tracker/internal/regime"
	"github.com/relabs-tech/dome-tracker/internal/session"
	"github.com/relabs-tech/dome-tracker/internal/status"
)

func writeAbaqueFixture(t *testing.T) *abaque.Table {
	t.Helper()
	doc := map[string]any{
		"rows": []map[string]any{
			{
				"altitude": 30.0,
				"points": []map[string]any{
					{"object_azimuth": 0.0, "dome_azimuth": 0.0},
					{"object_azimuth": 180.0, "dome_azimuth": 180.0},
				},
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "abaque.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	tbl, err := abaque.Load(path)
	if err != nil {
		t.Fatalf("abaque.Load: %v", err)
	}
	return tbl
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

func newTestDispatcher(t *testing.T) (*Dispatcher, motor.Driver) {
	t.Helper()

	encoderPath := filepath.Join(t.TempDir(), "ems22_position.json")
	writeEncoderSample(t, encoderPath, 90.0, encoder.StatusOK)

	driver := motor.NewSimulatedDriver(1000)
	reader := encoder.NewReader(encoderPath, 500)
	ctrl := feedback.NewController(driver, reader, 1000)
	mgr := regime.NewManager(regime.DefaultModeParams(60, 0.5), regime.DefaultThresholds())

	resolver := catalog.NewStatic([]catalog.Object{{Name: "Vega", RADeg: 279.23, DecDeg: 38.78}})
	ephemeris := astro.Static{Position: astro.HorizontalPosition{AltitudeDeg: 30, AzimuthDeg: 90}}

	sess := session.New(session.Config{
		Resolver:                    resolver,
		Ephemeris:                   ephemeris,
		AbaqueTable:                 writeAbaqueFixture(t),
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

	d := New(Config{
		Session:                sess,
		Controller:             ctrl,
		Driver:                 driver,
		Reader:                 reader,
		RegimeManager:          mgr,
		StepsPerDomeRevolution: 1000,
		CorrectionThresholdDeg: 0.5,
	})
	return d, driver
}

func floatPtr(v float64) *float64 { return &v }

func TestDispatchGotoRotatesToTarget(t *testing.T) {
	d, _ := newTestDispatcher(t)
	outcome := d.Dispatch(status.Command{ID: "1", Action: status.ActionGoto, TargetDeg: floatPtr(90.2)})
	if !outcome.Applied {
		t.Fatalf("expected goto within tolerance to apply cleanly, got %+v", outcome)
	}
}

func TestDispatchGotoLargeMoveTakesOpenLoopFirst(t *testing.T) {
	d, driver := newTestDispatcher(t)
	before := driver.(*motor.SimulatedDriver).StepCount
	// Starting position is 90deg; this target is well past feedbackMinDeg (3deg default),
	// so the open-loop pre-rotation should take real steps before feedback refines.
	outcome := d.Dispatch(status.Command{ID: "1", Action: status.ActionGoto, TargetDeg: floatPtr(180.0)})
	if !outcome.Applied {
		t.Fatalf("expected large goto to apply, got %+v", outcome)
	}
	if driver.(*motor.SimulatedDriver).StepCount == before {
		t.Error("expected the open-loop pre-rotation to take steps for a large goto")
	}
}

func TestDispatchDeduplicatesByCommandID(t *testing.T) {
	d, _ := newTestDispatcher(t)
	first := d.Dispatch(status.Command{ID: "dup-1", Action: status.ActionGoto, TargetDeg: floatPtr(90.2)})
	second := d.Dispatch(status.Command{ID: "dup-1", Action: status.ActionGoto, TargetDeg: floatPtr(90.2)})
	if !first.Applied {
		t.Fatalf("expected first command to apply, got %+v", first)
	}
	if second.Applied {
		t.Fatalf("expected duplicate command id to be skipped, got %+v", second)
	}
}

func TestDispatchUnknownActionReportsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	outcome := d.Dispatch(status.Command{ID: "1", Action: "bogus"})
	if outcome.Applied || outcome.Error == "" {
		t.Fatalf("expected unknown action to report an error, got %+v", outcome)
	}
}

func TestDispatchContinuousThenStopClearsDriverState(t *testing.T) {
	d, driver := newTestDispatcher(t)
	outcome := d.Dispatch(status.Command{ID: "1", Action: status.ActionContinuous, Direction: status.DirectionCW})
	if !outcome.Applied {
		t.Fatalf("expected continuous command to apply, got %+v", outcome)
	}
	d.RunContinuousStep()

	stopOutcome := d.Dispatch(status.Command{ID: "2", Action: status.ActionStop})
	if !stopOutcome.Applied {
		t.Fatalf("expected stop command to apply, got %+v", stopOutcome)
	}
	if driver.StopRequested() {
		t.Error("expected stop token to be cleared after handling the stop command")
	}

	before := driver.(*motor.SimulatedDriver).StepCount
	d.RunContinuousStep()
	if driver.(*motor.SimulatedDriver).StepCount != before {
		t.Error("expected continuous stepping to be disengaged after stop")
	}
}

func TestDispatchTrackingStartUnknownObjectReportsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	outcome := d.Dispatch(status.Command{ID: "1", Action: status.ActionTrackingStart, ObjectName: "Nonexistent"})
	if outcome.Applied || outcome.Error == "" {
		t.Fatalf("expected unknown object to report an error, got %+v", outcome)
	}
}
