// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package status defines the motor service's IPC command and status
// document shapes and a small helper to publish status atomically.
package status

import (
	"sync"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
)

// Command is the JSON document a controller (domectl, an external
// supervisor) writes to request an action from the motor service.
type Command struct {
	ID        string   `json:"id"`
	Action    string   `json:"command"` // goto | jog | stop | continuous | tracking_start | tracking_stop | status
	TargetDeg *float64 `json:"angle,omitempty"`
	DeltaDeg  *float64 `json:"delta,omitempty"`
	SpeedSec  *float64 `json:"speed,omitempty"` // seconds/step, goto and jog only
	Direction string   `json:"direction,omitempty"` // "cw" | "ccw", continuous only
	ObjectName string  `json:"object,omitempty"`
	SkipGoto  bool     `json:"skip_goto,omitempty"`
}

const (
	ActionGoto          = "goto"
	ActionJog           = "jog"
	ActionStop          = "stop"
	ActionContinuous    = "continuous"
	ActionTrackingStart = "tracking_start"
	ActionTrackingStop  = "tracking_stop"
	ActionStatus        = "status"

	DirectionCW  = "cw"
	DirectionCCW = "ccw"
)

const (
	StateIdle         = "idle"
	StateMoving       = "moving"
	StateTracking     = "tracking"
	StateError        = "error"
	StateInitializing = "initializing"
	StateStopped      = "stopped"
)

// LogEntry is one bounded tracking-log line carried in a Status
// document, newest last.
type LogEntry struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// TrackingInfo carries the session-specific fields shown while a
// tracking session is active; zero value omits the whole object.
type TrackingInfo struct {
	ObjectName       string  `json:"object_name"`
	TotalCorrections int     `json:"total_corrections"`
	TotalMovementDeg float64 `json:"total_movement_deg"`
	EncoderAvailable bool    `json:"encoder_available"`
}

// Status is the JSON document the motor service publishes describing
// its current state.
type Status struct {
	State           string        `json:"status"` // idle|moving|tracking|error|initializing|stopped
	PositionDeg     float64       `json:"position"`
	TargetDeg       *float64      `json:"target"`
	Progress        int           `json:"progress"`
	Mode            string        `json:"mode"` // idle|normal|critical|continuous
	TrackingObject  *string       `json:"tracking_object"`
	Simulation      bool          `json:"simulation"`
	Error           *string       `json:"error"`
	LastUpdate      string        `json:"last_update"`
	TrackingLogs    []LogEntry    `json:"tracking_logs"`
	TrackingInfo    *TrackingInfo `json:"tracking_info,omitempty"`
	LastCommandID   string        `json:"last_command_id,omitempty"`
}

const maxTrackingLogs = 10

// Writer publishes Status documents to the motor status IPC file,
// keeping a bounded ring of the most recent tracking log lines that
// gets attached to every published document.
type Writer struct {
	mu   sync.Mutex
	path string
	logs []LogEntry
}

// NewWriter creates a status Writer for the given IPC file path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Log appends a tracking-log line, keeping only the most recent
// maxTrackingLogs entries.
func (w *Writer) Log(kind, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logs = append(w.logs, LogEntry{
		Time:    time.Now().Format(time.RFC3339),
		Message: message,
		Type:    kind,
	})
	if len(w.logs) > maxTrackingLogs {
		w.logs = w.logs[len(w.logs)-maxTrackingLogs:]
	}
}

// Write stamps the current time, attaches the bounded tracking-log
// ring, and publishes s atomically.
func (w *Writer) Write(s Status) error {
	w.mu.Lock()
	s.TrackingLogs = append([]LogEntry(nil), w.logs...)
	w.mu.Unlock()

	s.LastUpdate = time.Now().Format(time.RFC3339)
	return ipcfile.WriteJSON(w.path, s)
}
