// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ipcfile implements the atomic-write / advisory-locked-read
// primitives the dome tracker's JSON IPC documents (encoder position,
// motor command, motor status) are built on. Every document has a
// single writer; readers take a non-blocking shared flock and skip a
// tick rather than wait when the writer is mid-update.
package ipcfile

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by Read when the file is exclusively locked by
// a concurrent writer; callers should treat this as "no new data this
// tick", not as a fatal error.
var ErrLocked = fmt.Errorf("ipcfile: file locked by writer")

// WriteJSON marshals v and publishes it to path atomically: it writes
// to path+".tmp" under an exclusive lock, fsyncs, then renames over
// path. A partially written file is never observable at path.
func WriteJSON(path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ipcfile: marshal: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("ipcfile: open temp file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return fmt.Errorf("ipcfile: lock temp file: %w", err)
	}

	_, writeErr := f.Write(content)
	syncErr := f.Sync()
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("ipcfile: write: %w", writeErr)
	}
	if syncErr != nil {
		return fmt.Errorf("ipcfile: sync: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("ipcfile: close: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("ipcfile: rename: %w", err)
	}
	return nil
}

// ReadJSON reads path under a non-blocking shared lock and unmarshals
// it into v. Returns ErrLocked if a writer currently holds the
// exclusive lock, os.ErrNotExist if the file does not exist yet, or an
// unmarshal error if the content is corrupt or empty.
func ReadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		if err == unix.EWOULDBLOCK {
			return ErrLocked
		}
		return fmt.Errorf("ipcfile: lock: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ipcfile: read: %w", err)
	}
	if len(content) == 0 {
		return fmt.Errorf("ipcfile: %s is empty", path)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("ipcfile: unmarshal %s: %w", path, err)
	}
	return nil
}

// Clear truncates path under an exclusive lock, used after a command
// has been consumed so it is not reprocessed.
func Clear(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("ipcfile: open for clear: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("ipcfile: lock for clear: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return f.Truncate(0)
}
