// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package watchdog implements a heartbeat ticker and a persisted error
// state that auto-clears after a recovery timeout, so a transient
// fault doesn't keep the service reporting unhealthy forever.
package watchdog

import (
	"sync"
	"time"
)

// Watchdog tracks the last heartbeat time and the most recently
// reported error, clearing the error automatically once it is older
// than errorRecovery.
type Watchdog struct {
	mu sync.Mutex

	heartbeatEvery time.Duration
	errorRecovery  time.Duration

	lastBeat  time.Time
	lastErr   error
	errSetAt  time.Time
}

// New builds a Watchdog with the given heartbeat cadence and error
// auto-recovery timeout.
func New(heartbeatEvery, errorRecovery time.Duration) *Watchdog {
	return &Watchdog{
		heartbeatEvery: heartbeatEvery,
		errorRecovery:  errorRecovery,
		lastBeat:       time.Now(),
	}
}

// Beat records a heartbeat.
func (w *Watchdog) Beat() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastBeat = time.Now()
}

// ReportError records a fault, which clears itself automatically after
// errorRecovery has elapsed without a new error being reported.
func (w *Watchdog) ReportError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
	w.errSetAt = time.Now()
}

// ClearError clears any persisted error immediately.
func (w *Watchdog) ClearError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = nil
}

// Healthy reports whether a recent heartbeat has been seen and no
// unrecovered error is outstanding.
func (w *Watchdog) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if time.Since(w.lastBeat) > 3*w.heartbeatEvery {
		return false
	}
	if w.lastErr != nil && time.Since(w.errSetAt) < w.errorRecovery {
		return false
	}
	return true
}

// LastError returns the currently outstanding error, or nil if none is
// set or it has auto-recovered.
func (w *Watchdog) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastErr != nil && time.Since(w.errSetAt) >= w.errorRecovery {
		w.lastErr = nil
	}
	return w.lastErr
}

// Run ticks at the configured heartbeat cadence calling beat on every
// tick, until stop is closed.
func (w *Watchdog) Run(stop <-chan struct{}, beat func()) {
	ticker := time.NewTicker(w.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.Beat()
			if beat != nil {
				beat()
			}
		}
	}
}
