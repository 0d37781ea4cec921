// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/avoidance_rover/internal/buttons"
	"github.com/relabs-tech/avoidance_rover/internal/config"
	"github.com/relabs-tech/avoidance_rover/internal/control"
	"github.com/relabs-tech/avoidance_rover/internal/display"
	"github.com/relabs-tech/avoidance_rover/internal/imu"
	"github.com/relabs-tech/avoidance_rover/internal/orientation"
)

// RangeSensor returns a distance in centimeters, or a negative value when
// there was no echo.
type RangeSensor interface {
	Sample() float64
}

// ButtonReader returns the electrical level of each button; true is
// released.
type ButtonReader interface {
	Levels() []bool
}

// NoRange stands in for a ranger that failed to initialize.
type NoRange struct{}

func (NoRange) Sample() float64 { return -1 }

// Hardware is the set of devices the control loop drives.
type Hardware struct {
	IMU     imu.Source
	Buttons ButtonReader
	Range   RangeSensor
	Motors  control.Motor
	Display display.Renderer

	// Restart replaces the running process. It does not return on success.
	Restart func() error

	Now   func() time.Time
	Sleep func(time.Duration)
}

func (hw Hardware) withDefaults() Hardware {
	if hw.Range == nil {
		hw.Range = NoRange{}
	}
	if hw.Display == nil {
		hw.Display = display.Nop{}
	}
	if hw.Now == nil {
		hw.Now = time.Now
	}
	if hw.Sleep == nil {
		hw.Sleep = time.Sleep
	}
	return hw
}

// Status is a read-only view of the rover for telemetry and tests.
type Status struct {
	Control      control.Snapshot
	Attitude     orientation.Attitude
	TravelledM   float64
	DistanceCm   float64
	HaveDistance bool
}

// Rover composes the estimator, debouncer and controller into one tick.
type Rover struct {
	cfg *config.Config
	hw  Hardware

	est  *orientation.Estimator
	odo  orientation.Odometer
	deb  *buttons.Debouncer
	ctrl *control.Controller

	lastTick    time.Time
	lastRange   time.Time
	lastDisplay time.Time

	distance     float64
	haveDistance bool
}

// NewRover builds a rover from calibrated IMU offsets. start is the power-on
// time used for the button settle period.
func NewRover(cfg *config.Config, hw Hardware, off orientation.Offsets, start time.Time) *Rover {
	hw = hw.withDefaults()
	r := &Rover{
		cfg:  cfg,
		hw:   hw,
		est:  orientation.NewEstimator(FilterFromConfig(cfg), off),
		deb:  buttons.NewDebouncer(len(cfg.ButtonPins), TimingFromConfig(cfg), start),
		ctrl: control.NewController(TuningFromConfig(cfg), hw.Motors),
	}
	if hw.Buttons != nil {
		r.deb.Prime(hw.Buttons.Levels())
	}
	return r
}

// FilterFromConfig returns the estimator constants from the configuration.
func FilterFromConfig(cfg *config.Config) orientation.Filter {
	f := orientation.DefaultFilter()
	f.GyroWeight = cfg.GyroWeight
	f.YawZeroThreshold = cfg.YawZeroThreshold
	f.YawZeroHold = cfg.YawZeroHold
	f.AccelDeadband = cfg.AccelDeadband
	f.VelocityDecay = cfg.VelocityDecay
	return f
}

// TimingFromConfig returns the debounce timing from the configuration.
func TimingFromConfig(cfg *config.Config) buttons.Timing {
	return buttons.Timing{
		PollInterval: cfg.ButtonPollInterval,
		Debounce:     cfg.ButtonDebounce,
		LongPress:    cfg.ButtonLongPress,
		ShortWindow:  cfg.ButtonShortWindow,
		Settle:       cfg.ButtonSettle,
	}
}

// TuningFromConfig returns the avoidance tuning from the configuration.
func TuningFromConfig(cfg *config.Config) control.Tuning {
	return control.Tuning{
		BaseSpeed:       cfg.BaseSpeed,
		StopDistanceCm:  cfg.StopDistanceCm,
		SteerDistanceCm: cfg.SteerDistanceCm,
		SteerRatio:      cfg.SteerRatio,
		ReverseDuration: cfg.ReverseDuration,
		PauseDuration:   cfg.PauseDuration,
		TargetYawChange: cfg.TargetYawChange,
	}
}

// Tick runs one control iteration: estimator, buttons, range, avoidance,
// display.
func (r *Rover) Tick(now time.Time) {
	dt := r.cfg.LoopInterval.Seconds()
	if !r.lastTick.IsZero() {
		dt = now.Sub(r.lastTick).Seconds()
	}
	r.lastTick = now

	att := r.est.State()
	if s, err := r.hw.IMU.Read(); err != nil {
		log.Printf("rover: IMU read error: %v", err)
	} else {
		att = r.est.Update(s, dt, now)
	}
	r.odo.Add(att.PlanarSpeed(), dt)

	if r.hw.Buttons != nil {
		for _, ev := range r.deb.Poll(r.hw.Buttons.Levels(), now) {
			r.apply(r.ctrl.HandleButton(ev))
		}
	}

	r.ctrl.Step(now, r.sampleRange(now), att.Yaw)

	if r.ctrl.Mode().DisplayEnabled && now.Sub(r.lastDisplay) >= r.cfg.DisplayInterval {
		r.lastDisplay = now
		if err := r.hw.Display.Render(r.telemetry()); err != nil {
			log.Printf("rover: display render: %v", err)
		}
	}
}

func (r *Rover) sampleRange(now time.Time) control.RangeReading {
	if !r.lastRange.IsZero() && now.Sub(r.lastRange) < r.cfg.RangeInterval {
		return control.RangeReading{}
	}
	r.lastRange = now

	d := r.hw.Range.Sample()
	if d < 0 {
		return control.RangeReading{}
	}
	r.distance, r.haveDistance = d, true
	return control.RangeReading{DistanceCm: d, Fresh: true}
}

func (r *Rover) apply(e control.Effect) {
	switch e {
	case control.EffectClearDisplay:
		if err := r.hw.Display.Clear(); err != nil {
			log.Printf("rover: display clear: %v", err)
		}
		r.lastDisplay = time.Time{}
	case control.EffectRestart:
		r.restart()
	}
}

func (r *Rover) restart() {
	r.Stop()
	r.hw.Sleep(r.cfg.RestartDelay)
	if r.hw.Restart == nil {
		log.Println("rover: restart not supported on this hardware")
		return
	}
	log.Println("rover: restarting")
	if err := r.hw.Restart(); err != nil {
		log.Printf("rover: restart failed: %v", err)
	}
}

// Stop brakes both motors.
func (r *Rover) Stop() {
	if err := r.hw.Motors.SetSpeeds(0, 0); err != nil {
		log.Printf("rover: brake: %v", err)
	}
}

// Status returns the current rover state.
func (r *Rover) Status() Status {
	return Status{
		Control:      r.ctrl.Snapshot(),
		Attitude:     r.est.State(),
		TravelledM:   r.odo.Meters(),
		DistanceCm:   r.distance,
		HaveDistance: r.haveDistance,
	}
}

func (r *Rover) telemetry() display.Telemetry {
	s := r.Status()
	return display.Telemetry{
		DistanceCm:   s.DistanceCm,
		HaveDistance: s.HaveDistance,
		PlanarSpeed:  s.Attitude.PlanarSpeed(),
		Yaw:          s.Attitude.Yaw,
		TravelledM:   s.TravelledM,
		MotorEnabled: s.Control.Mode.MotorEnabled,
		MotorForward: s.Control.Mode.MotorForward,
		Obstacle:     s.Control.Mode.ObstacleDetected,
	}
}

// RunRover calibrates the IMU and runs the control loop until ctx is done.
// The motors are braked on return.
func RunRover(ctx context.Context, cfg *config.Config, hw Hardware) error {
	hw = hw.withDefaults()

	log.Printf("rover: calibrating IMU, keep the vehicle still (%d samples)", cfg.CalibrationSamples)
	off, err := orientation.Calibrate(ctx, hw.IMU, cfg.CalibrationSamples, cfg.CalibrationInterval)
	if err != nil {
		return fmt.Errorf("rover: %w", err)
	}
	log.Printf("rover: gyro offsets %.3f %.3f %.3f deg/s", off.Gx, off.Gy, off.Gz)

	r := NewRover(cfg, hw, off, hw.Now())
	defer r.Stop()

	ticker := time.NewTicker(cfg.LoopInterval)
	defer ticker.Stop()

	log.Printf("rover: control loop started (%s)", cfg.LoopInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("rover: stopping, motors braked")
			return nil
		case <-ticker.C:
			r.Tick(hw.Now())
		}
	}
}
