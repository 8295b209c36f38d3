// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/dome-tracker/internal/config"
	"github.com/relabs-tech/dome-tracker/internal/encoder"
)

func main() {
	configPath := flag.String("config", "./dome_config.txt", "path to configuration file")
	simulate := flag.Bool("simulate", false, "use a simulated encoder instead of the SPI-attached EMS22")
	flag.Parse()

	log.Println("starting domeencoderd (dome slit encoder reader)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	var reader encoder.RawReader
	if *simulate {
		log.Println("domeencoderd: running with a simulated encoder reader")
		reader = encoder.NewSimulatedReader()
	} else {
		r, err := encoder.NewSPIReader(cfg.EncoderSPIBus, cfg.EncoderSPISpeedHz, cfg.EncoderSwitchPin)
		if err != nil {
			log.Fatalf("failed to open SPI encoder: %v", err)
		}
		reader = r
	}
	defer reader.Close()

	daemon := encoder.NewDaemon(cfg, reader)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("domeencoderd: shutting down")
		cancel()
	}()

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return daemon.Run(stop) })
	g.Go(func() error { return daemon.ServeTCP(stop, cfg.EncoderTCPPort) })

	if err := g.Wait(); err != nil {
		log.Fatalf("domeencoderd: fatal: %v", err)
	}
}
