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
	"github.com/relabs-tech/avoidance_rover/internal/control"
	"github.com/relabs-tech/avoidance_rover/internal/imu"
	"github.com/relabs-tech/avoidance_rover/internal/orientation"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults built in)")
	wall := flag.Float64("wall", 120, "distance between simulated walls in cm")
	flag.Parse()

	log.Println("starting avoidance rover (simulated bench)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := orientation.NewSimSource(imu.Sample{Ax: 0.02, Gz: 0.3})
	world := app.NewSimWorld(src, *wall, time.Now)

	// Calibration runs first, so the script starts once the loop is up.
	calib := 2 * time.Duration(cfg.CalibrationSamples) * cfg.CalibrationInterval
	btns := app.NewSimButtons(len(cfg.ButtonPins), time.Now().Add(calib), time.Now,
		app.SimPress{Index: control.ButtonDisplay, At: time.Second, Hold: 100 * time.Millisecond},
		app.SimPress{Index: control.ButtonMotor, At: 2 * time.Second, Hold: 100 * time.Millisecond},
	)

	hw := app.Hardware{
		IMU:     src,
		Buttons: btns,
		Range:   world,
		Motors:  world,
		Display: app.Console{W: os.Stdout},
		Restart: app.ExecRestart,
	}
	if err := app.RunRover(ctx, cfg, hw); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
