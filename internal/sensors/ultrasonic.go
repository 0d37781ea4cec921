// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/avoidance_rover/internal/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// NoEcho is returned by Sample when no echo arrived before the timeout.
const NoEcho = -1.0

const triggerPulse = 10 * time.Microsecond

// HCSR04 is an HC-SR04 ultrasonic ranger on two GPIO lines.
type HCSR04 struct {
	trig    gpio.PinOut
	echo    gpio.PinIn
	timeout time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRanger opens the trigger and echo pins named in the configuration.
func NewRanger(cfg *config.Config) (*HCSR04, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ranger: periph host init: %w", err)
	}
	trig := gpioreg.ByName(cfg.RangeTrigPin)
	if trig == nil {
		return nil, fmt.Errorf("ranger: trigger pin %q not found", cfg.RangeTrigPin)
	}
	echo := gpioreg.ByName(cfg.RangeEchoPin)
	if echo == nil {
		return nil, fmt.Errorf("ranger: echo pin %q not found", cfg.RangeEchoPin)
	}
	return NewHCSR04(trig, echo, cfg.RangeEchoTimeout)
}

// NewHCSR04 configures already opened pins. timeout bounds the wait for
// each echo level: the rising edge, then the falling edge.
func NewHCSR04(trig gpio.PinOut, echo gpio.PinIn, timeout time.Duration) (*HCSR04, error) {
	if err := trig.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("ranger: trigger low: %w", err)
	}
	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("ranger: echo input: %w", err)
	}
	return &HCSR04{
		trig:    trig,
		echo:    echo,
		timeout: timeout,
		now:     time.Now,
		sleep:   time.Sleep,
	}, nil
}

// Sample fires one ping and returns the distance in whole centimeters, or
// NoEcho.
func (r *HCSR04) Sample() float64 {
	if err := r.trig.Out(gpio.High); err != nil {
		log.Printf("ranger: trigger: %v", err)
		return NoEcho
	}
	r.sleep(triggerPulse)
	if err := r.trig.Out(gpio.Low); err != nil {
		log.Printf("ranger: trigger: %v", err)
		return NoEcho
	}

	if !r.waitLevel(gpio.High) {
		return NoEcho
	}
	start := r.now()
	if !r.waitLevel(gpio.Low) {
		return NoEcho
	}
	return echoCentimeters(r.now().Sub(start))
}

// waitLevel waits for the echo line to reach l. Glitch edges do not extend
// the wait past the timeout.
func (r *HCSR04) waitLevel(l gpio.Level) bool {
	deadline := r.now().Add(r.timeout)
	for r.echo.Read() != l {
		remaining := deadline.Sub(r.now())
		if remaining <= 0 || !r.echo.WaitForEdge(remaining) {
			return false
		}
	}
	return true
}

// echoCentimeters converts a round-trip echo width at 340 m/s.
func echoCentimeters(width time.Duration) float64 {
	us := width.Microseconds()
	return float64(us * 17 / 1000)
}
