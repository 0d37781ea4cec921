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
	"time"

	"github.com/relabs-tech/avoidance_rover/internal/app"
	"github.com/relabs-tech/avoidance_rover/internal/config"
	"github.com/relabs-tech/avoidance_rover/internal/sensors"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults built in)")
	every := flag.Duration("every", 100*time.Millisecond, "print interval")
	flag.Parse()

	log.Println("starting IMU check (calibration + attitude readout)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	src, err := sensors.NewIMU(cfg)
	if err != nil {
		log.Fatalf("failed to initialize IMU: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunIMUCheck(ctx, cfg, src, os.Stdout, *every); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
