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
	"github.com/relabs-tech/avoidance_rover/internal/display"
	"github.com/relabs-tech/avoidance_rover/internal/sensors"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults built in)")
	flag.Parse()

	log.Println("starting avoidance rover")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	if cfg.LogSerialPort != "" {
		port, err := app.MirrorLogToSerial(cfg.LogSerialPort, cfg.LogSerialBaud)
		if err != nil {
			log.Printf("WARNING: %v", err)
		} else {
			defer port.Close()
		}
	}

	imuSrc, err := sensors.NewIMU(cfg)
	if err != nil {
		log.Fatalf("failed to initialize IMU: %v", err)
	}

	motors, err := sensors.NewMotorDriver(cfg)
	if err != nil {
		log.Fatalf("failed to initialize motors: %v", err)
	}
	defer motors.Close()

	var rng app.RangeSensor = app.NoRange{}
	if r, err := sensors.NewRanger(cfg); err != nil {
		log.Printf("WARNING: range sensor unavailable, avoidance disabled: %v", err)
	} else {
		rng = r
	}

	panel, err := sensors.NewButtonPanel(cfg.ButtonPins)
	if err != nil {
		motors.Close()
		log.Fatalf("failed to initialize buttons: %v", err)
	}

	var screen display.Renderer = display.Nop{}
	if oled, err := display.NewSSD1306(cfg.DisplayI2CBus); err != nil {
		log.Printf("WARNING: display unavailable: %v", err)
	} else {
		defer oled.Close()
		if err := oled.Banner("Avoidance Rover", "Calibrating...", "Keep still"); err != nil {
			log.Printf("display: banner: %v", err)
		}
		screen = oled
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hw := app.Hardware{
		IMU:     imuSrc,
		Buttons: panel,
		Range:   rng,
		Motors:  motors,
		Display: screen,
		Restart: app.ExecRestart,
		Now:     time.Now,
		Sleep:   time.Sleep,
	}
	if err := app.RunRover(ctx, cfg, hw); err != nil {
		log.Printf("fatal: %v", err)
		motors.Close()
		os.Exit(1)
	}
}
