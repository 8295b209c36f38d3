// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package encoder implements both sides of the EMS22A absolute SPI
// encoder pipeline: the daemon that polls the encoder and publishes a
// filtered angle to the shared IPC document, and the client Reader the
// motor service uses to consume it.
package encoder

// Status is the published health tag of an encoder sample.
type Status string

const (
	StatusOK     Status = "OK"
	StatusSPI    Status = "SPI_ERROR"
	StatusFrozen Status = "FROZEN"
)

// Sample is the JSON document published to the encoder IPC file.
type Sample struct {
	TimestampUnix float64 `json:"ts"`
	AngleDeg      float64 `json:"angle"`
	Raw           int     `json:"raw"`
	Status        Status  `json:"status"`
	Calibrated    bool    `json:"calibrated"`
	FrozenForSec  float64 `json:"frozen_duration,omitempty"`
}
