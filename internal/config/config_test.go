// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, extra string) string {
	t.Helper()
	content := "MOTOR_DIR_PIN=GPIO20\n" +
		"MOTOR_STEP_PIN=GPIO21\n" +
		"MOTOR_STEPS_PER_REV=200\n" +
		"MOTOR_MICROSTEPS=8\n" +
		"MOTOR_GEAR_RATIO=60\n" +
		"ENCODER_SWITCH_PIN=GPIO17\n" +
		extra

	path := filepath.Join(t.TempDir(), "dome_config.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadParsesRequiredFieldsAndAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MotorDirPin != "GPIO20" || cfg.MotorStepPin != "GPIO21" {
		t.Errorf("pins not parsed: %+v", cfg)
	}
	if cfg.EncoderCalibrationFactor != 0.010851 {
		t.Errorf("EncoderCalibrationFactor = %v, want default 0.010851", cfg.EncoderCalibrationFactor)
	}
	if cfg.MotorStepsCorrection != 1.0 {
		t.Errorf("MotorStepsCorrection = %v, want default 1.0", cfg.MotorStepsCorrection)
	}
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dome_config.txt")
	if err := os.WriteFile(path, []byte("ENCODER_SPI_BUS=/dev/spidev0.0\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a config missing MOTOR_DIR_PIN etc.")
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	path := writeConfigFile(t, "ENCODER_SPI_DEVICE=not-a-number\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a malformed numeric field")
	}
}

func TestStepsPerDomeRevolution(t *testing.T) {
	path := writeConfigFile(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := 200 * 8 * 60
	if got := cfg.StepsPerDomeRevolution(); got != want {
		t.Errorf("StepsPerDomeRevolution = %d, want %d", got, want)
	}
}
