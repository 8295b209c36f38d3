// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/dome-tracker/internal/abaque"
	"github.com/relabs-tech/dome-tracker/internal/astro"
	"github.com/relabs-tech/dome-tracker/internal/catalog"
	"github.com/relabs-tech/dome-tracker/internal/config"
	"github.com/relabs-tech/dome-tracker/internal/diagws"
	"github.com/relabs-tech/dome-tracker/internal/dispatcher"
	"github.com/relabs-tech/dome-tracker/internal/encoder"
	"github.com/relabs-tech/dome-tracker/internal/feedback"
	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
	"github.com/relabs-tech/dome-tracker/internal/motor"
	"github.com/relabs-tech/dome-tracker/internal/regime"
	"github.com/relabs-tech/dome-tracker/internal/session"
	"github.com/relabs-tech/dome-tracker/internal/status"
	"github.com/relabs-tech/dome-tracker/internal/watchdog"
)

func main() {
	configPath := flag.String("config", "./dome_config.txt", "path to configuration file")
	catalogPath := flag.String("catalog", "./dome_catalog.txt", "path to the object catalog file")
	simulate := flag.Bool("simulate", false, "use simulated motor/encoder hardware")
	flag.Parse()

	log.Println("starting domemotord (dome rotation control)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	objects, err := catalog.LoadFile(*catalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	resolver := catalog.NewStatic(objects)

	abaqueTbl, err := abaque.Load(cfg.AbaquePath)
	if err != nil {
		log.Fatalf("failed to load abaque table: %v", err)
	}

	var driver motor.Driver
	if *simulate {
		log.Println("domemotord: running with a simulated motor driver")
		driver = motor.NewSimulatedDriver(cfg.StepsPerDomeRevolution())
	} else {
		d, err := motor.NewGPIODriver(cfg.MotorDirPin, cfg.MotorStepPin)
		if err != nil {
			log.Fatalf("failed to open motor GPIO: %v", err)
		}
		driver = d
	}

	encoderPath := fmt.Sprintf("%s/%s", cfg.IPCDir, cfg.IPCEncoderFile)
	reader := encoder.NewReader(encoderPath, cfg.EncoderFreshnessMaxAgeMS)

	controller := feedback.NewController(driver, reader, cfg.StepsPerDomeRevolution())

	regimeMgr := regime.NewManager(regime.ModeParams{
		NormalCheckIntervalSec:     cfg.RegimeBaseIntervalSec,
		NormalThresholdDeg:         cfg.RegimeBaseThresholdDeg,
		NormalMotorDelayUS:         cfg.RegimeNormalMotorDelayUS,
		CriticalCheckIntervalSec:   cfg.RegimeCriticalCheckIntervalSec,
		CriticalThresholdDeg:       cfg.RegimeCriticalThresholdDeg,
		CriticalMotorDelayUS:       cfg.RegimeCriticalMotorDelayUS,
		ContinuousCheckIntervalSec: cfg.RegimeContinuousCheckIntervalSec,
		ContinuousThresholdDeg:     cfg.RegimeContinuousThresholdDeg,
		ContinuousMotorDelayUS:     cfg.RegimeContinuousMotorDelayUS,
	}, regime.Thresholds{
		AltitudeCritical:      cfg.RegimeAltitudeCritical,
		AltitudeZenith:        cfg.RegimeAltitudeZenith,
		MovementCritical:      cfg.RegimeMovementCritical,
		MovementExtreme:       cfg.RegimeMovementExtreme,
		MovementMinContinuous: cfg.RegimeMovementMinContinuous,
		CriticalZone: regime.CriticalZone{
			AltMin:  cfg.RegimeCriticalZoneAltMin,
			AltMax:  cfg.RegimeCriticalZoneAltMax,
			AzMin:   cfg.RegimeCriticalZoneAzMin,
			AzMax:   cfg.RegimeCriticalZoneAzMax,
			Enabled: cfg.RegimeCriticalZoneAltMax > cfg.RegimeCriticalZoneAltMin,
		},
	})

	sess := session.New(session.Config{
		Resolver:                    resolver,
		Ephemeris:                   astro.Static{}, // TODO: wire a real ephemeris engine; out of scope for now
		AbaqueTable:                 abaqueTbl,
		RegimeManager:               regimeMgr,
		Controller:                  controller,
		Driver:                      driver,
		Reader:                      reader,
		StepsPerDomeRevolution:      cfg.StepsPerDomeRevolution(),
		LargeMovementThresholdDeg:   cfg.LargeMovementThresholdDeg,
		AcceptableErrorThresholdDeg: cfg.AcceptableErrorThresholdDeg,
		MaxFailedFeedback:           cfg.MaxFailedFeedback,
		HistoryDir:                  cfg.SessionHistoryDir,
		HistoryMaxKept:              cfg.SessionHistoryMaxKept,
	})

	disp := dispatcher.New(dispatcher.Config{
		Session:                sess,
		Controller:             controller,
		Driver:                 driver,
		Reader:                 reader,
		RegimeManager:          regimeMgr,
		StepsPerDomeRevolution: cfg.StepsPerDomeRevolution(),
		CorrectionThresholdDeg: cfg.RegimeBaseThresholdDeg,
		FeedbackMinDeg:         cfg.FeedbackMinDeg,
	})

	statusWriter := status.NewWriter(fmt.Sprintf("%s/%s", cfg.IPCDir, cfg.IPCStatusFile))
	commandPath := fmt.Sprintf("%s/%s", cfg.IPCDir, cfg.IPCCommandFile)

	wd := watchdog.New(
		time.Duration(cfg.WatchdogHeartbeatSec)*time.Second,
		time.Duration(cfg.WatchdogErrorRecoverySec)*time.Second,
	)

	hub := diagws.NewHub()
	if cfg.DiagWSPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/diagnostics", hub)
		go func() {
			addr := fmt.Sprintf("127.0.0.1:%d", cfg.DiagWSPort)
			log.Printf("domemotord: diagnostics websocket listening on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("domemotord: diagnostics websocket server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("domemotord: shutting down")
		driver.RequestStop()
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runCommandLoop(gctx, commandPath, disp, statusWriter, sess, reader, regimeMgr, wd, *simulate)
	})

	g.Go(func() error {
		return runContinuousLoop(gctx, disp)
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		log.Fatalf("domemotord: fatal: %v", err)
	}
}

// runCommandLoop polls the IPC command file, dispatches new commands,
// drives the active tracking session's periodic correction, publishes
// status and beats the watchdog.
func runCommandLoop(
	ctx context.Context,
	commandPath string,
	disp *dispatcher.Dispatcher,
	statusWriter *status.Writer,
	sess *session.Session,
	reader *encoder.Reader,
	regimeMgr *regime.Manager,
	wd *watchdog.Watchdog,
	simulate bool,
) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastAppliedID string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var cmd status.Command
			if err := ipcfile.ReadJSON(commandPath, &cmd); err == nil && cmd.ID != "" && cmd.ID != lastAppliedID {
				outcome := disp.Dispatch(cmd)
				if outcome.Applied {
					lastAppliedID = outcome.CommandID
					statusWriter.Log("command", fmt.Sprintf("applied %s", cmd.Action))
				}
				if outcome.Error != "" {
					wd.ReportError(fmt.Errorf("%s", outcome.Error))
					statusWriter.Log("error", outcome.Error)
				}
			}

			disp.TrackingTick()
			wd.Beat()

			var errPtr *string
			state := status.StateIdle
			mode := "idle"
			var trackingObj *string
			var trackingInfo *status.TrackingInfo

			if err := wd.LastError(); err != nil {
				msg := err.Error()
				errPtr = &msg
				state = status.StateError
			} else if sess.Active() {
				state = status.StateTracking
				mode = string(sess.Mode())
				name := sess.ObjectName()
				trackingObj = &name
				trackingInfo = &status.TrackingInfo{
					ObjectName:       name,
					TotalCorrections: sess.TotalCorrections(),
					TotalMovementDeg: sess.TotalMovementDeg(),
					EncoderAvailable: reader.IsAvailable(),
				}
			}

			_ = statusWriter.Write(status.Status{
				State:          state,
				PositionDeg:    sess.PositionDeg(),
				Mode:           mode,
				TrackingObject: trackingObj,
				Simulation:     simulate,
				Error:          errPtr,
				TrackingInfo:   trackingInfo,
				LastCommandID:  lastAppliedID,
			})
		}
	}
}

// runContinuousLoop rotates the dome one degree every 100ms whenever a
// CONTINUOUS command is in effect.
func runContinuousLoop(ctx context.Context, disp *dispatcher.Dispatcher) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			disp.RunContinuousStep()
		}
	}
}
