// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package encoder

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/angle"
	"github.com/relabs-tech/dome-tracker/internal/config"
	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
)

// Daemon polls a RawReader, filters and calibrates its readings, and
// publishes the result to the encoder IPC file (and, optionally, a
// bare TCP query port). It owns no package-level state: a caller
// constructs one Daemon per process, per spec.md §9's redesign note
// against singleton hardware managers.
type Daemon struct {
	cfg    *config.Config
	reader RawReader

	counts      *CountsAccumulator
	antiSpike   *AntiSpikeFilter
	median      *MedianFilter
	calibrated  bool
	lastSwitchLow     bool
	lastSwitchTrigger time.Time

	lastPublished     float64
	lastChangeTime    time.Time
	frozenSince       time.Time
	consecutiveErrors int
}

// NewDaemon constructs a Daemon against the given raw reader, using
// the encoder-relevant fields of cfg.
func NewDaemon(cfg *config.Config, reader RawReader) *Daemon {
	return &Daemon{
		cfg:            cfg,
		reader:         reader,
		counts:         NewCountsAccumulator(cfg.EncoderCountsPerRev),
		antiSpike:      NewAntiSpikeFilter(cfg.EncoderAntiSpikeThresholdDeg),
		median:         NewMedianFilter(cfg.EncoderMedianWindow, 3),
		lastChangeTime: now(),
	}
}

// calibratedAngle converts the accumulated counts into a [0,360) dome
// angle using the configured calibration factor and rotation sign.
func (d *Daemon) calibratedAngle() float64 {
	total := d.counts.Total()
	wheelDegrees := float64(total) / float64(d.cfg.EncoderCountsPerRev) * 360.0
	ring := wheelDegrees * d.cfg.EncoderCalibrationFactor * float64(d.cfg.EncoderRotationSign)
	return angle.Normalize360(ring)
}

// processSwitch implements the debounced reference recalibration: a
// high-to-low active-low edge, accepted only when at least
// EncoderSwitchDebounceSec have passed since the last accepted
// trigger, recalibrates total_counts so the next computed angle equals
// the configured reference angle to within one encoder count.
func (d *Daemon) processSwitch(raw int) {
	closed, err := d.reader.SwitchClosed()
	if err != nil {
		return
	}

	if closed && !d.lastSwitchLow {
		if now().Sub(d.lastSwitchTrigger).Seconds() >= d.cfg.EncoderSwitchDebounceSec {
			d.counts.Recalibrate(d.cfg.EncoderSwitchCalibAngle, d.cfg.EncoderCalibrationFactor, d.cfg.EncoderRotationSign, raw)
			d.median = NewMedianFilter(d.cfg.EncoderMedianWindow, 3)
			d.calibrated = true
			d.lastSwitchTrigger = now()
			log.Printf("encoder: reference switch triggered, recalibrated to %.2f deg", d.cfg.EncoderSwitchCalibAngle)
		}
	}
	d.lastSwitchLow = closed
}

// tick performs one poll cycle: read raw, accumulate counts, check the
// switch, filter and return a Sample ready to publish. The second
// return value is false when the sample should not be published yet
// (still warming up the median filter).
func (d *Daemon) tick() (Sample, bool, error) {
	raw, err := d.reader.ReadRaw()
	if err != nil {
		return Sample{}, false, err
	}

	d.counts.Update(raw)
	d.processSwitch(raw)

	calibratedAngle := d.calibratedAngle()

	if !d.antiSpike.Accept(calibratedAngle) {
		// Reject spike: keep publishing the last valid filtered value.
		return Sample{
			TimestampUnix: float64(now().UnixNano()) / 1e9,
			AngleDeg:      d.lastPublished,
			Raw:           raw,
			Status:        StatusOK,
			Calibrated:    d.calibrated,
		}, true, nil
	}

	medianAngle, ready := d.median.Push(calibratedAngle)
	if !ready {
		return Sample{}, false, nil
	}

	status := StatusOK
	frozenFor := 0.0
	if angle.AreClose(medianAngle, d.lastPublished, 0.001) {
		if d.frozenSince.IsZero() {
			d.frozenSince = now()
		}
		frozenFor = now().Sub(d.frozenSince).Seconds()
		if frozenFor*1000 >= float64(d.cfg.EncoderFreezeTimeoutMS) {
			status = StatusFrozen
		}
	} else {
		d.frozenSince = time.Time{}
	}

	d.lastPublished = medianAngle

	return Sample{
		TimestampUnix: float64(now().UnixNano()) / 1e9,
		AngleDeg:      medianAngle,
		Raw:           raw,
		Status:        status,
		Calibrated:    d.calibrated,
		FrozenForSec:  frozenFor,
	}, true, nil
}

// Run polls the encoder at cfg.EncoderPollHz until stop is closed,
// publishing each accepted sample to the IPC file. On repeated SPI
// failures it closes and reopens the reader after
// EncoderMaxSPIErrors consecutive errors, publishing a degraded
// SPI_ERROR status in the meantime rather than going silent.
func (d *Daemon) Run(stop <-chan struct{}) error {
	period := time.Second / time.Duration(d.cfg.EncoderPollHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	encoderPath := fmt.Sprintf("%s/%s", d.cfg.IPCDir, d.cfg.IPCEncoderFile)

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			sample, ready, err := d.tick()
			if err != nil {
				d.consecutiveErrors++
				log.Printf("encoder: SPI read error (%d/%d): %v", d.consecutiveErrors, d.cfg.EncoderMaxSPIErrors, err)
				_ = ipcfile.WriteJSON(encoderPath, Sample{
					TimestampUnix: float64(now().UnixNano()) / 1e9,
					AngleDeg:      d.lastPublished,
					Status:        StatusSPI,
					Calibrated:    d.calibrated,
				})
				if d.consecutiveErrors >= d.cfg.EncoderMaxSPIErrors {
					log.Printf("encoder: too many consecutive SPI errors, reopening reader")
					d.reader.Close()
					if _, isSPI := d.reader.(*SPIReader); isSPI {
						r, err := NewSPIReader(d.cfg.EncoderSPIBus, d.cfg.EncoderSPISpeedHz, d.cfg.EncoderSwitchPin)
						if err != nil {
							log.Printf("encoder: reopen failed: %v", err)
						} else {
							d.reader = r
						}
					}
					d.consecutiveErrors = 0
				}
				continue
			}
			d.consecutiveErrors = 0
			if !ready {
				continue
			}
			if err := ipcfile.WriteJSON(encoderPath, sample); err != nil {
				log.Printf("encoder: publish failed: %v", err)
			}
		}
	}
}

// ServeTCP runs a one-connection-at-a-time "GET\n" -> angle text query
// server on 127.0.0.1:port. If the port cannot be bound, it logs and
// returns nil rather than propagating the error: the daemon keeps
// running in file-only mode, per spec.md §4.A's fall-back requirement.
func (d *Daemon) ServeTCP(stop <-chan struct{}, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("encoder: TCP query port %s unavailable (%v), continuing file-only", addr, err)
		return nil
	}
	defer listener.Close()

	go func() {
		<-stop
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
				log.Printf("encoder: TCP accept error: %v", err)
				continue
			}
		}
		d.handleTCPConn(conn)
	}
}

func (d *Daemon) handleTCPConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch line {
		case "GET\n":
			fmt.Fprintf(conn, "%.4f\n", d.lastPublished)
		default:
			fmt.Fprint(conn, "OK\n")
		}
	}
}
