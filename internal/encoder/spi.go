// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package encoder

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// RawReader yields the raw 10-bit wheel position from the absolute
// encoder, and reports whether the reference microswitch is currently
// closed. Two implementations exist: SPIReader drives real hardware
// through periph.io, SimulatedReader drives a synthetic wheel for
// tests and hardware-less development (spec's "one interface for real
// and simulated encoder" redesign note).
type RawReader interface {
	ReadRaw() (int, error)
	SwitchClosed() (bool, error)
	Close() error
}

// SPIReader talks to an EMS22A-class encoder over SPI mode 1, reading
// two bytes and reconstructing the 10-bit angle the same way the
// original daemon does: ((b0 & 0x3F) << 4) | (b1 >> 4).
type SPIReader struct {
	port   spi.PortCloser
	conn   spi.Conn
	switchPin gpio.PinIO
}

// NewSPIReader opens the SPI bus and the reference-switch GPIO pin.
func NewSPIReader(busName string, speedHz int64, switchPinName string) (*SPIReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("encoder: periph host init: %w", err)
	}

	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("encoder: open SPI bus %s: %w", busName, err)
	}

	conn, err := port.Connect(physic.Frequency(speedHz)*physic.Hertz, spi.Mode1, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("encoder: connect SPI: %w", err)
	}

	sw := gpioreg.ByName(switchPinName)
	if sw == nil {
		port.Close()
		return nil, fmt.Errorf("encoder: switch pin %q not found", switchPinName)
	}
	if err := sw.In(gpio.PullUp, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("encoder: configure switch pin: %w", err)
	}

	return &SPIReader{port: port, conn: conn, switchPin: sw}, nil
}

// ReadRaw reads the 10-bit wheel angle.
func (r *SPIReader) ReadRaw() (int, error) {
	write := []byte{0x00, 0x00}
	read := make([]byte, 2)
	if err := r.conn.Tx(write, read); err != nil {
		return 0, fmt.Errorf("encoder: SPI transfer: %w", err)
	}
	raw := (int(read[0]&0x3F) << 4) | (int(read[1]) >> 4)
	return raw, nil
}

// SwitchClosed reports whether the reference microswitch is currently
// active (active-low, pulled up, so a Low reading means closed).
func (r *SPIReader) SwitchClosed() (bool, error) {
	return r.switchPin.Read() == gpio.Low, nil
}

// Close releases the SPI bus.
func (r *SPIReader) Close() error {
	return r.port.Close()
}

// SimulatedReader drives a synthetic wheel useful for bench testing
// without an attached encoder: it holds an injectable raw value and a
// switch state a test (or a command-line simulator tool) can set.
type SimulatedReader struct {
	raw          int
	switchClosed bool
}

// NewSimulatedReader creates a simulated reader starting at raw=0.
func NewSimulatedReader() *SimulatedReader {
	return &SimulatedReader{}
}

// SetRaw sets the next raw reading the simulator returns.
func (s *SimulatedReader) SetRaw(raw int) { s.raw = raw }

// SetSwitchClosed sets the reference switch state the simulator reports.
func (s *SimulatedReader) SetSwitchClosed(closed bool) { s.switchClosed = closed }

func (s *SimulatedReader) ReadRaw() (int, error)       { return s.raw, nil }
func (s *SimulatedReader) SwitchClosed() (bool, error) { return s.switchClosed, nil }
func (s *SimulatedReader) Close() error                { return nil }

var _ RawReader = (*SPIReader)(nil)
var _ RawReader = (*SimulatedReader)(nil)

// now exists so daemon.go's timestamps can be stubbed out in tests.
var now = time.Now
