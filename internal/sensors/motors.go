// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"github.com/relabs-tech/avoidance_rover/internal/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// MaxSpeed is the largest accepted speed magnitude.
const MaxSpeed = 255

// MotorChannel is one H-bridge of the TB6612FNG.
type MotorChannel struct {
	In1 gpio.PinOut
	In2 gpio.PinOut
	PWM gpio.PinOut
}

// TB6612 drives two DC motors through a TB6612FNG dual H-bridge.
type TB6612 struct {
	a, b MotorChannel
	stby gpio.PinOut
	freq physic.Frequency
}

// NewMotorDriver opens the motor pins named in the configuration and takes
// the driver out of standby with both motors braked.
func NewMotorDriver(cfg *config.Config) (*TB6612, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("motors: periph host init: %w", err)
	}

	names := []string{cfg.MotorAIn1, cfg.MotorAIn2, cfg.MotorAPWM, cfg.MotorBIn1, cfg.MotorBIn2, cfg.MotorBPWM, cfg.MotorSTBY}
	pins := make([]gpio.PinOut, len(names))
	for i, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("motors: pin %q not found", n)
		}
		pins[i] = p
	}

	a := MotorChannel{In1: pins[0], In2: pins[1], PWM: pins[2]}
	b := MotorChannel{In1: pins[3], In2: pins[4], PWM: pins[5]}
	if cfg.MotorInvert {
		a, b = b, a
	}
	return NewTB6612(a, b, pins[6], physic.Frequency(cfg.MotorPWMHz)*physic.Hertz)
}

// NewTB6612 wires a driver from already opened pins. stby may be nil when
// the standby line is tied high.
func NewTB6612(a, b MotorChannel, stby gpio.PinOut, freq physic.Frequency) (*TB6612, error) {
	d := &TB6612{a: a, b: b, stby: stby, freq: freq}
	if err := d.SetSpeeds(0, 0); err != nil {
		return nil, err
	}
	if stby != nil {
		if err := stby.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("motors: STBY high: %w", err)
		}
	}
	log.Printf("motors: TB6612FNG ready (pwm %s)", freq)
	return d, nil
}

// SetSpeeds commands both motors. Speeds are clamped to ±MaxSpeed; the
// sign selects direction and zero brakes.
func (d *TB6612) SetSpeeds(a, b int) error {
	if err := d.set(d.a, a); err != nil {
		return fmt.Errorf("motors: channel A: %w", err)
	}
	if err := d.set(d.b, b); err != nil {
		return fmt.Errorf("motors: channel B: %w", err)
	}
	return nil
}

// Close brakes both motors and puts the driver in standby.
func (d *TB6612) Close() error {
	err := d.SetSpeeds(0, 0)
	if d.stby != nil {
		if serr := d.stby.Out(gpio.Low); serr != nil && err == nil {
			err = fmt.Errorf("motors: STBY low: %w", serr)
		}
	}
	return err
}

func (d *TB6612) set(ch MotorChannel, speed int) error {
	speed = clampSpeed(speed)

	in1, in2 := gpio.High, gpio.High // short brake
	switch {
	case speed > 0:
		in1, in2 = gpio.High, gpio.Low
	case speed < 0:
		in1, in2 = gpio.Low, gpio.High
		speed = -speed
	}

	if err := ch.In1.Out(in1); err != nil {
		return err
	}
	if err := ch.In2.Out(in2); err != nil {
		return err
	}
	return ch.PWM.PWM(speedDuty(speed), d.freq)
}

func clampSpeed(s int) int {
	if s > MaxSpeed {
		return MaxSpeed
	}
	if s < -MaxSpeed {
		return -MaxSpeed
	}
	return s
}

// speedDuty maps 0..MaxSpeed onto the full periph duty range.
func speedDuty(s int) gpio.Duty {
	return gpio.Duty(int64(gpio.DutyMax) * int64(s) / MaxSpeed)
}
