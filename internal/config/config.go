// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package config loads the dome tracker's KEY=VALUE configuration file
// and exposes a process-wide, lazily-initialized snapshot of it.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds every tunable of the dome tracker.
type Config struct {
	// SPI encoder bus
	EncoderSPIBus      string
	EncoderSPIDevice   int
	EncoderSPISpeedHz  int64
	EncoderSwitchPin   string
	EncoderPollHz      int
	EncoderTCPPort     int
	EncoderCountsPerRev int
	EncoderCalibrationFactor float64
	EncoderRotationSign      int
	EncoderSwitchCalibAngle  float64
	EncoderSwitchDebounceSec float64
	EncoderMaxSPIErrors      int
	EncoderMedianWindow      int
	EncoderAntiSpikeThresholdDeg float64
	EncoderFreshnessMaxAgeMS     int
	EncoderFreezeTimeoutMS       int

	// Motor GPIO
	MotorDirPin           string
	MotorStepPin          string
	MotorStepsPerRev      int
	MotorMicrosteps       int
	MotorGearRatio        float64
	MotorStepsCorrection  float64
	MotorMinStepDelayUS   int
	MotorRampStartDelayUS int
	MotorRampSteps        int
	MotorMinStepsForRamp  int
	MotorWarmupSteps      int
	MotorWarmupDelayUS    int

	// Adaptive regime thresholds
	RegimeBaseIntervalSec     int
	RegimeBaseThresholdDeg    float64
	RegimeAltitudeCritical    float64
	RegimeAltitudeZenith      float64
	RegimeMovementCritical    float64
	RegimeMovementExtreme     float64
	RegimeMovementMinContinuous float64
	RegimeCriticalZoneAltMin float64
	RegimeCriticalZoneAltMax float64
	RegimeCriticalZoneAzMin  float64
	RegimeCriticalZoneAzMax  float64

	// Per-mode regime parameters (normal mode reuses the base
	// interval/threshold above)
	RegimeNormalMotorDelayUS         int
	RegimeCriticalCheckIntervalSec   int
	RegimeCriticalThresholdDeg       float64
	RegimeCriticalMotorDelayUS       int
	RegimeContinuousCheckIntervalSec int
	RegimeContinuousThresholdDeg     float64
	RegimeContinuousMotorDelayUS     int

	// Abaque (alt/az -> dome azimuth) lookup table
	AbaquePath string

	// Site
	SiteLatitudeDeg  float64
	SiteLongitudeDeg float64
	SiteTimezone     string

	// IPC
	IPCDir                string
	IPCCommandFile        string
	IPCStatusFile         string
	IPCEncoderFile        string
	SessionHistoryDir     string
	SessionHistoryMaxKept int

	// Correction / feedback thresholds
	LargeMovementThresholdDeg    float64
	AcceptableErrorThresholdDeg  float64
	ProtectionThresholdDeg       float64
	MaxFailedFeedback            int
	FeedbackMaxIterations        int
	FeedbackMaxDurationSec       float64
	FeedbackToleranceDeg         float64
	FeedbackMinDeg               float64

	// Watchdog
	WatchdogHeartbeatSec      int
	WatchdogErrorRecoverySec  int

	// Diagnostics websocket
	DiagWSPort int
}

// Package-level unexported variables for singleton pattern: a command
// process (domeencoderd, domemotord, domectl) calls InitGlobal exactly
// once at startup and every other package reads through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns the parameter values the original system hardcodes
// when no override is present in the config file.
func defaults() *Config {
	return &Config{
		EncoderSPIBus:                "/dev/spidev0.0",
		EncoderSPISpeedHz:            500000,
		EncoderPollHz:                50,
		EncoderTCPPort:               5556,
		EncoderCountsPerRev:          1024,
		EncoderCalibrationFactor:     0.010851,
		EncoderRotationSign:          -1,
		EncoderSwitchCalibAngle:      45.0,
		EncoderSwitchDebounceSec:     2.0,
		EncoderMaxSPIErrors:          5,
		EncoderMedianWindow:          5,
		EncoderAntiSpikeThresholdDeg: 30.0,
		EncoderFreshnessMaxAgeMS:     500,
		EncoderFreezeTimeoutMS:       2000,

		MotorStepsCorrection:  1.0,
		MotorMinStepDelayUS:   10,
		MotorRampStartDelayUS: 3000,
		MotorRampSteps:        500,
		MotorMinStepsForRamp:  200,
		MotorWarmupSteps:      10,
		MotorWarmupDelayUS:    10000,

		RegimeBaseIntervalSec:       60,
		RegimeBaseThresholdDeg:      0.5,
		RegimeAltitudeCritical:      68.0,
		RegimeAltitudeZenith:        75.0,
		RegimeMovementCritical:      30.0,
		RegimeMovementExtreme:       50.0,
		RegimeMovementMinContinuous: 1.0,

		RegimeNormalMotorDelayUS:         2000,
		RegimeCriticalCheckIntervalSec:   15,
		RegimeCriticalThresholdDeg:       0.25,
		RegimeCriticalMotorDelayUS:       1000,
		RegimeContinuousCheckIntervalSec: 5,
		RegimeContinuousThresholdDeg:     0.1,
		RegimeContinuousMotorDelayUS:     150,

		SessionHistoryMaxKept: 100,

		LargeMovementThresholdDeg:   30.0,
		AcceptableErrorThresholdDeg: 2.0,
		FeedbackMinDeg:              3.0,
		ProtectionThresholdDeg:      20.0,
		MaxFailedFeedback:           3,
		FeedbackMaxIterations:       10,
		FeedbackMaxDurationSec:      60.0,
		FeedbackToleranceDeg:        0.5,

		WatchdogHeartbeatSec:     5,
		WatchdogErrorRecoverySec: 10,

		IPCDir:            "/dev/shm",
		IPCCommandFile:    "motor_command.json",
		IPCStatusFile:     "motor_status.json",
		IPCEncoderFile:    "ems22_position.json",
		SessionHistoryDir: "data/sessions",
		AbaquePath:        "data/dome_abaque.json",

		DiagWSPort: 8765,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "ENCODER_SPI_BUS":
		c.EncoderSPIBus = value
	case "ENCODER_SPI_DEVICE":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_SPI_DEVICE %q: %w", value, err)
		}
		c.EncoderSPIDevice = v
	case "ENCODER_SPI_SPEED_HZ":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_SPI_SPEED_HZ %q: %w", value, err)
		}
		c.EncoderSPISpeedHz = v
	case "ENCODER_SWITCH_PIN":
		c.EncoderSwitchPin = value
	case "ENCODER_POLL_HZ":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_POLL_HZ %q: %w", value, err)
		}
		c.EncoderPollHz = v
	case "ENCODER_TCP_PORT":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_TCP_PORT %q: %w", value, err)
		}
		c.EncoderTCPPort = v
	case "ENCODER_COUNTS_PER_REV":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_COUNTS_PER_REV %q: %w", value, err)
		}
		c.EncoderCountsPerRev = v
	case "ENCODER_CALIBRATION_FACTOR":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_CALIBRATION_FACTOR %q: %w", value, err)
		}
		c.EncoderCalibrationFactor = v
	case "ENCODER_ROTATION_SIGN":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_ROTATION_SIGN %q: %w", value, err)
		}
		if v != 1 && v != -1 {
			return fmt.Errorf("ENCODER_ROTATION_SIGN must be 1 or -1, got %d", v)
		}
		c.EncoderRotationSign = v
	case "ENCODER_SWITCH_CALIB_ANGLE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_SWITCH_CALIB_ANGLE %q: %w", value, err)
		}
		c.EncoderSwitchCalibAngle = v
	case "ENCODER_SWITCH_DEBOUNCE_SEC":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_SWITCH_DEBOUNCE_SEC %q: %w", value, err)
		}
		c.EncoderSwitchDebounceSec = v
	case "ENCODER_MAX_SPI_ERRORS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_MAX_SPI_ERRORS %q: %w", value, err)
		}
		c.EncoderMaxSPIErrors = v
	case "ENCODER_MEDIAN_WINDOW":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_MEDIAN_WINDOW %q: %w", value, err)
		}
		c.EncoderMedianWindow = v
	case "ENCODER_ANTI_SPIKE_THRESHOLD_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_ANTI_SPIKE_THRESHOLD_DEG %q: %w", value, err)
		}
		c.EncoderAntiSpikeThresholdDeg = v
	case "ENCODER_FRESHNESS_MAX_AGE_MS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_FRESHNESS_MAX_AGE_MS %q: %w", value, err)
		}
		c.EncoderFreshnessMaxAgeMS = v
	case "ENCODER_FREEZE_TIMEOUT_MS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_FREEZE_TIMEOUT_MS %q: %w", value, err)
		}
		c.EncoderFreezeTimeoutMS = v

	case "MOTOR_DIR_PIN":
		c.MotorDirPin = value
	case "MOTOR_STEP_PIN":
		c.MotorStepPin = value
	case "MOTOR_STEPS_PER_REV":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_STEPS_PER_REV %q: %w", value, err)
		}
		c.MotorStepsPerRev = v
	case "MOTOR_MICROSTEPS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_MICROSTEPS %q: %w", value, err)
		}
		c.MotorMicrosteps = v
	case "MOTOR_GEAR_RATIO":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_GEAR_RATIO %q: %w", value, err)
		}
		c.MotorGearRatio = v
	case "MOTOR_STEPS_CORRECTION_FACTOR":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_STEPS_CORRECTION_FACTOR %q: %w", value, err)
		}
		c.MotorStepsCorrection = v
	case "MOTOR_MIN_STEP_DELAY_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_MIN_STEP_DELAY_US %q: %w", value, err)
		}
		c.MotorMinStepDelayUS = v
	case "MOTOR_RAMP_START_DELAY_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_RAMP_START_DELAY_US %q: %w", value, err)
		}
		c.MotorRampStartDelayUS = v
	case "MOTOR_RAMP_STEPS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_RAMP_STEPS %q: %w", value, err)
		}
		c.MotorRampSteps = v
	case "MOTOR_MIN_STEPS_FOR_RAMP":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_MIN_STEPS_FOR_RAMP %q: %w", value, err)
		}
		c.MotorMinStepsForRamp = v
	case "MOTOR_WARMUP_STEPS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_WARMUP_STEPS %q: %w", value, err)
		}
		c.MotorWarmupSteps = v
	case "MOTOR_WARMUP_DELAY_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_WARMUP_DELAY_US %q: %w", value, err)
		}
		c.MotorWarmupDelayUS = v

	case "REGIME_BASE_INTERVAL_SEC":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGIME_BASE_INTERVAL_SEC %q: %w", value, err)
		}
		c.RegimeBaseIntervalSec = v
	case "REGIME_BASE_THRESHOLD_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_BASE_THRESHOLD_DEG %q: %w", value, err)
		}
		c.RegimeBaseThresholdDeg = v
	case "REGIME_ALTITUDE_CRITICAL":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_ALTITUDE_CRITICAL %q: %w", value, err)
		}
		c.RegimeAltitudeCritical = v
	case "REGIME_ALTITUDE_ZENITH":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_ALTITUDE_ZENITH %q: %w", value, err)
		}
		c.RegimeAltitudeZenith = v
	case "REGIME_MOVEMENT_CRITICAL":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_MOVEMENT_CRITICAL %q: %w", value, err)
		}
		c.RegimeMovementCritical = v
	case "REGIME_MOVEMENT_EXTREME":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_MOVEMENT_EXTREME %q: %w", value, err)
		}
		c.RegimeMovementExtreme = v
	case "REGIME_MOVEMENT_MIN_CONTINUOUS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_MOVEMENT_MIN_CONTINUOUS %q: %w", value, err)
		}
		c.RegimeMovementMinContinuous = v
	case "REGIME_CRITICAL_ZONE_ALT_MIN":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CRITICAL_ZONE_ALT_MIN %q: %w", value, err)
		}
		c.RegimeCriticalZoneAltMin = v
	case "REGIME_CRITICAL_ZONE_ALT_MAX":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CRITICAL_ZONE_ALT_MAX %q: %w", value, err)
		}
		c.RegimeCriticalZoneAltMax = v
	case "REGIME_CRITICAL_ZONE_AZ_MIN":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CRITICAL_ZONE_AZ_MIN %q: %w", value, err)
		}
		c.RegimeCriticalZoneAzMin = v
	case "REGIME_CRITICAL_ZONE_AZ_MAX":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CRITICAL_ZONE_AZ_MAX %q: %w", value, err)
		}
		c.RegimeCriticalZoneAzMax = v
	case "REGIME_NORMAL_MOTOR_DELAY_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGIME_NORMAL_MOTOR_DELAY_US %q: %w", value, err)
		}
		c.RegimeNormalMotorDelayUS = v
	case "REGIME_CRITICAL_CHECK_INTERVAL_SEC":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CRITICAL_CHECK_INTERVAL_SEC %q: %w", value, err)
		}
		c.RegimeCriticalCheckIntervalSec = v
	case "REGIME_CRITICAL_THRESHOLD_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CRITICAL_THRESHOLD_DEG %q: %w", value, err)
		}
		c.RegimeCriticalThresholdDeg = v
	case "REGIME_CRITICAL_MOTOR_DELAY_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CRITICAL_MOTOR_DELAY_US %q: %w", value, err)
		}
		c.RegimeCriticalMotorDelayUS = v
	case "REGIME_CONTINUOUS_CHECK_INTERVAL_SEC":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CONTINUOUS_CHECK_INTERVAL_SEC %q: %w", value, err)
		}
		c.RegimeContinuousCheckIntervalSec = v
	case "REGIME_CONTINUOUS_THRESHOLD_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CONTINUOUS_THRESHOLD_DEG %q: %w", value, err)
		}
		c.RegimeContinuousThresholdDeg = v
	case "REGIME_CONTINUOUS_MOTOR_DELAY_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGIME_CONTINUOUS_MOTOR_DELAY_US %q: %w", value, err)
		}
		c.RegimeContinuousMotorDelayUS = v

	case "ABAQUE_PATH":
		c.AbaquePath = value

	case "SITE_LATITUDE_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SITE_LATITUDE_DEG %q: %w", value, err)
		}
		c.SiteLatitudeDeg = v
	case "SITE_LONGITUDE_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SITE_LONGITUDE_DEG %q: %w", value, err)
		}
		c.SiteLongitudeDeg = v
	case "SITE_TIMEZONE":
		c.SiteTimezone = value

	case "IPC_DIR":
		c.IPCDir = value
	case "IPC_COMMAND_FILE":
		c.IPCCommandFile = value
	case "IPC_STATUS_FILE":
		c.IPCStatusFile = value
	case "IPC_ENCODER_FILE":
		c.IPCEncoderFile = value
	case "SESSION_HISTORY_DIR":
		c.SessionHistoryDir = value
	case "SESSION_HISTORY_MAX_KEPT":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SESSION_HISTORY_MAX_KEPT %q: %w", value, err)
		}
		c.SessionHistoryMaxKept = v

	case "LARGE_MOVEMENT_THRESHOLD_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid LARGE_MOVEMENT_THRESHOLD_DEG %q: %w", value, err)
		}
		c.LargeMovementThresholdDeg = v
	case "ACCEPTABLE_ERROR_THRESHOLD_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ACCEPTABLE_ERROR_THRESHOLD_DEG %q: %w", value, err)
		}
		c.AcceptableErrorThresholdDeg = v
	case "PROTECTION_THRESHOLD_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid PROTECTION_THRESHOLD_DEG %q: %w", value, err)
		}
		c.ProtectionThresholdDeg = v
	case "MAX_FAILED_FEEDBACK":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MAX_FAILED_FEEDBACK %q: %w", value, err)
		}
		c.MaxFailedFeedback = v
	case "FEEDBACK_MAX_ITERATIONS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FEEDBACK_MAX_ITERATIONS %q: %w", value, err)
		}
		c.FeedbackMaxIterations = v
	case "FEEDBACK_MAX_DURATION_SEC":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FEEDBACK_MAX_DURATION_SEC %q: %w", value, err)
		}
		c.FeedbackMaxDurationSec = v
	case "FEEDBACK_TOLERANCE_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FEEDBACK_TOLERANCE_DEG %q: %w", value, err)
		}
		c.FeedbackToleranceDeg = v
	case "FEEDBACK_MIN_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FEEDBACK_MIN_DEG %q: %w", value, err)
		}
		c.FeedbackMinDeg = v

	case "WATCHDOG_HEARTBEAT_SEC":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WATCHDOG_HEARTBEAT_SEC %q: %w", value, err)
		}
		c.WatchdogHeartbeatSec = v
	case "WATCHDOG_ERROR_RECOVERY_SEC":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WATCHDOG_ERROR_RECOVERY_SEC %q: %w", value, err)
		}
		c.WatchdogErrorRecoverySec = v

	case "DIAG_WS_PORT":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DIAG_WS_PORT %q: %w", value, err)
		}
		c.DiagWSPort = v

	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// validate checks required fields and warns about risky values.
func (c *Config) validate() error {
	if c.MotorDirPin == "" {
		return fmt.Errorf("MOTOR_DIR_PIN is required")
	}
	if c.MotorStepPin == "" {
		return fmt.Errorf("MOTOR_STEP_PIN is required")
	}
	if c.MotorStepsPerRev == 0 {
		return fmt.Errorf("MOTOR_STEPS_PER_REV is required")
	}
	if c.MotorMicrosteps == 0 {
		return fmt.Errorf("MOTOR_MICROSTEPS is required")
	}
	if c.MotorGearRatio == 0 {
		return fmt.Errorf("MOTOR_GEAR_RATIO is required")
	}
	if c.EncoderSwitchPin == "" {
		return fmt.Errorf("ENCODER_SWITCH_PIN is required")
	}
	if c.SiteLatitudeDeg == 0 && c.SiteLongitudeDeg == 0 {
		fmt.Println("WARNING: SITE_LATITUDE_DEG/SITE_LONGITUDE_DEG are both 0.0, is the site really on the equator at the prime meridian?")
	}

	if c.MotorMinStepDelayUS < 10 {
		return fmt.Errorf("MOTOR_MIN_STEP_DELAY_US must be >= 10 (hardware step-pulse floor), got %d", c.MotorMinStepDelayUS)
	}
	if c.MotorMinStepDelayUS > 50 {
		fmt.Printf("WARNING: MOTOR_MIN_STEP_DELAY_US=%dus is well above the 10us floor, movements will be slow\n", c.MotorMinStepDelayUS)
	}

	return nil
}

// StepsPerDomeRevolution derives the integer step count for one full
// 360-degree dome rotation from the motor's mechanical parameters.
func (c *Config) StepsPerDomeRevolution() int {
	return int(float64(c.MotorStepsPerRev*c.MotorMicrosteps) * c.MotorGearRatio * c.MotorStepsCorrection)
}

// InitGlobal loads the configuration file once and stores it globally.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the globally initialized configuration. Callers must have
// called InitGlobal first; Get panics otherwise, mirroring the teacher's
// fail-fast startup contract.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	if globalConfig == nil {
		panic("config: Get called before InitGlobal")
	}
	return globalConfig
}
