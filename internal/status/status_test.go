// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"path/filepath"
	"testing"

	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
)

func TestWriterWriteStampsLastUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motor_status.json")
	w := NewWriter(path)

	if err := w.Write(Status{PositionDeg: 45.5, Mode: "normal"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got Status
	if err := ipcfile.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.PositionDeg != 45.5 {
		t.Errorf("PositionDeg = %v, want 45.5", got.PositionDeg)
	}
	if got.LastUpdate == "" {
		t.Error("expected LastUpdate to be stamped")
	}
}

func TestCommandRoundTripsThroughIPC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motor_command.json")
	target := 120.0
	cmd := Command{ID: "abc123", Action: ActionGoto, TargetDeg: &target}

	if err := ipcfile.WriteJSON(path, cmd); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got Command
	if err := ipcfile.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.ID != "abc123" || got.Action != ActionGoto || got.TargetDeg == nil || *got.TargetDeg != 120.0 {
		t.Errorf("round-tripped command mismatch: %+v", got)
	}
}
