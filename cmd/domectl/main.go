// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command domectl is a thin CLI for issuing commands to a running
// domemotord and polling its published status: it only reads and
// writes the IPC files, never touches hardware directly.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/relabs-tech/dome-tracker/internal/config"
	"github.com/relabs-tech/dome-tracker/internal/ipcfile"
	"github.com/relabs-tech/dome-tracker/internal/status"
)

func main() {
	configPath := flag.String("config", "./dome_config.txt", "path to configuration file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-config path] <goto DEG|jog DELTA|stop|continuous cw|ccw|track OBJECT|track-stop|status>\n", os.Args[0])
	}
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	commandPath := fmt.Sprintf("%s/%s", cfg.IPCDir, cfg.IPCCommandFile)
	statusPath := fmt.Sprintf("%s/%s", cfg.IPCDir, cfg.IPCStatusFile)

	switch args[0] {
	case "goto":
		requireArgs(args, 2)
		deg := parseFloat(args[1])
		send(commandPath, status.Command{ID: newCommandID(), Action: status.ActionGoto, TargetDeg: &deg})
	case "jog":
		requireArgs(args, 2)
		delta := parseFloat(args[1])
		send(commandPath, status.Command{ID: newCommandID(), Action: status.ActionJog, DeltaDeg: &delta})
	case "stop":
		send(commandPath, status.Command{ID: newCommandID(), Action: status.ActionStop})
	case "continuous":
		requireArgs(args, 2)
		dir := args[1]
		if dir != status.DirectionCW && dir != status.DirectionCCW {
			log.Fatalf("continuous direction must be %q or %q, got %q", status.DirectionCW, status.DirectionCCW, dir)
		}
		send(commandPath, status.Command{ID: newCommandID(), Action: status.ActionContinuous, Direction: dir})
	case "track":
		requireArgs(args, 2)
		send(commandPath, status.Command{ID: newCommandID(), Action: status.ActionTrackingStart, ObjectName: args[1]})
	case "track-stop":
		send(commandPath, status.Command{ID: newCommandID(), Action: status.ActionTrackingStop})
	case "status":
		printStatus(statusPath)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func requireArgs(args []string, n int) {
	if len(args) < n {
		flag.Usage()
		os.Exit(2)
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Fatalf("invalid numeric argument %q: %v", s, err)
	}
	return v
}

func newCommandID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func send(path string, cmd status.Command) {
	if err := ipcfile.WriteJSON(path, cmd); err != nil {
		log.Fatalf("failed to publish command: %v", err)
	}
	fmt.Printf("command %s (%s) sent\n", cmd.ID, cmd.Action)
}

func printStatus(path string) {
	var s status.Status
	if err := ipcfile.ReadJSON(path, &s); err != nil {
		log.Fatalf("failed to read status: %v", err)
	}
	fmt.Printf("status=%s position=%.2f mode=%s simulation=%v\n", s.State, s.PositionDeg, s.Mode, s.Simulation)
	if s.TrackingInfo != nil {
		fmt.Printf("tracking: object=%s corrections=%d total_movement=%.2f encoder_available=%v\n",
			s.TrackingInfo.ObjectName, s.TrackingInfo.TotalCorrections, s.TrackingInfo.TotalMovementDeg, s.TrackingInfo.EncoderAvailable)
	}
	for _, line := range s.TrackingLogs {
		fmt.Printf("[%s] %s: %s\n", line.Time, line.Type, line.Message)
	}
	if s.Error != nil {
		fmt.Printf("error: %s\n", *s.Error)
	}
}
