// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package control arbitrates between the operator's buttons and the
// obstacle-avoidance maneuver, and is the only writer of motor commands.
package control

import (
	"fmt"
	"log"
	"math"
	"time"
)

// Motor is the two-channel motor driver. Speeds are signed duty cycles in
// [-255, 255]; zero brakes.
type Motor interface {
	SetSpeeds(a, b int) error
}

// State is the avoidance maneuver phase.
type State int

const (
	Idle State = iota
	Reversing
	PauseAfterReverse
	Rotating
	PauseAfterRotate
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reversing:
		return "reversing"
	case PauseAfterReverse:
		return "pause-after-reverse"
	case Rotating:
		return "rotating"
	case PauseAfterRotate:
		return "pause-after-rotate"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode is the operator-visible vehicle mode.
type Mode struct {
	MotorEnabled     bool `json:"motor_enabled"`
	MotorForward     bool `json:"motor_forward"`
	DisplayEnabled   bool `json:"display_enabled"`
	ObstacleDetected bool `json:"obstacle_detected"`
}

// RangeReading is the range input for one tick. Fresh is false between
// samples and when the sensor reported no echo.
type RangeReading struct {
	DistanceCm float64
	Fresh      bool
}

// Tuning holds the maneuver constants. The distances and steer ratio are
// empirical.
type Tuning struct {
	BaseSpeed       int
	StopDistanceCm  float64 // closer than this starts the maneuver
	SteerDistanceCm float64 // closer than this (but not stopping) arcs away
	SteerRatio      float64 // inner wheel speed as a fraction of BaseSpeed
	ReverseDuration time.Duration
	PauseDuration   time.Duration
	TargetYawChange float64 // degrees of rotation before resuming
}

// DefaultTuning returns the constants used on the reference vehicle.
func DefaultTuning() Tuning {
	return Tuning{
		BaseSpeed:       200,
		StopDistanceCm:  8,
		SteerDistanceCm: 15,
		SteerRatio:      0.5,
		ReverseDuration: 3000 * time.Millisecond,
		PauseDuration:   2000 * time.Millisecond,
		TargetYawChange: 45,
	}
}

// Snapshot is a copy of the controller state for telemetry.
type Snapshot struct {
	Mode   Mode
	State  State
	SpeedA int
	SpeedB int
}

// Controller owns the vehicle mode and the avoidance state machine.
// It is driven from the single control loop and is not safe for
// concurrent use.
type Controller struct {
	tuning Tuning
	motor  Motor

	mode      Mode
	state     State
	enteredAt time.Time
	yawRef    float64

	speedA, speedB int
}

// NewController creates a controller in Idle with the motors disabled,
// direction forward and the display off.
func NewController(t Tuning, m Motor) *Controller {
	return &Controller{
		tuning: t,
		motor:  m,
		mode:   Mode{MotorForward: true},
	}
}

// Mode returns the current vehicle mode.
func (c *Controller) Mode() Mode { return c.mode }

// State returns the current maneuver phase.
func (c *Controller) State() State { return c.state }

// Snapshot returns mode, phase and the last commanded speeds.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{Mode: c.mode, State: c.state, SpeedA: c.speedA, SpeedB: c.speedB}
}

// Step runs one tick of the state machine.
func (c *Controller) Step(now time.Time, r RangeReading, yaw float64) {
	if !c.mode.MotorEnabled && c.state != Idle {
		c.abort()
		return
	}

	switch c.state {
	case Idle:
		c.stepIdle(now, r)

	case Reversing:
		if now.Sub(c.enteredAt) >= c.tuning.ReverseDuration {
			c.stop()
			c.enter(PauseAfterReverse, now)
			return
		}
		c.drive(-c.tuning.BaseSpeed, -c.tuning.BaseSpeed)

	case PauseAfterReverse:
		if now.Sub(c.enteredAt) >= c.tuning.PauseDuration {
			c.yawRef = yaw
			c.enter(Rotating, now)
			c.rotate()
		}

	case Rotating:
		if math.Abs(yaw-c.yawRef) >= c.tuning.TargetYawChange {
			c.stop()
			c.enter(PauseAfterRotate, now)
			return
		}
		c.rotate()

	case PauseAfterRotate:
		if now.Sub(c.enteredAt) >= c.tuning.PauseDuration {
			c.mode.ObstacleDetected = false
			c.enter(Idle, now)
			c.applyCommanded()
		}
	}
}

func (c *Controller) stepIdle(now time.Time, r RangeReading) {
	if !r.Fresh {
		return
	}
	d := r.DistanceCm

	if c.mode.MotorEnabled && d > 0 && d < c.tuning.StopDistanceCm {
		log.Printf("control: obstacle at %.1f cm, reversing", d)
		c.mode.ObstacleDetected = true
		c.stop()
		c.drive(-c.tuning.BaseSpeed, -c.tuning.BaseSpeed)
		c.enter(Reversing, now)
		return
	}

	if d < c.tuning.StopDistanceCm {
		return
	}

	cleared := false
	if c.mode.ObstacleDetected {
		log.Printf("control: obstacle cleared at %.1f cm", d)
		c.mode.ObstacleDetected = false
		cleared = true
	}

	if !c.mode.MotorEnabled {
		if cleared {
			c.applyCommanded()
		}
		return
	}
	if d < c.tuning.SteerDistanceCm {
		c.steer()
		return
	}
	c.applyCommanded()
}

// toggleMotor flips MotorEnabled and re-applies the commanded motion.
// Disabling during a maneuver aborts it immediately.
func (c *Controller) toggleMotor() {
	c.mode.MotorEnabled = !c.mode.MotorEnabled
	if c.state != Idle {
		if !c.mode.MotorEnabled {
			c.abort()
		}
		return
	}
	c.applyCommanded()
}

func (c *Controller) toggleDirection() {
	c.mode.MotorForward = !c.mode.MotorForward
	if c.state == Idle {
		c.applyCommanded()
	}
}

// abort stops the motors and drops any maneuver in progress. The obstacle
// flag stays set until a clear reading arrives.
func (c *Controller) abort() {
	log.Printf("control: maneuver aborted in %s, motors disabled", c.state)
	c.stop()
	c.state = Idle
}

func (c *Controller) enter(s State, now time.Time) {
	c.state = s
	c.enteredAt = now
}

// applyCommanded drives straight in the selected direction, or brakes when
// the motors are disabled.
func (c *Controller) applyCommanded() {
	if !c.mode.MotorEnabled {
		c.stop()
		return
	}
	speed := c.tuning.BaseSpeed
	if !c.mode.MotorForward {
		speed = -speed
	}
	c.drive(speed, speed)
}

func (c *Controller) steer() {
	outer := c.tuning.BaseSpeed
	inner := int(math.Round(float64(c.tuning.BaseSpeed) * c.tuning.SteerRatio))
	if !c.mode.MotorForward {
		outer, inner = -outer, -inner
	}
	c.drive(outer, inner)
}

func (c *Controller) rotate() {
	c.drive(c.tuning.BaseSpeed, -c.tuning.BaseSpeed)
}

func (c *Controller) stop() {
	c.drive(0, 0)
}

func (c *Controller) drive(a, b int) {
	c.speedA, c.speedB = a, b
	if err := c.motor.SetSpeeds(a, b); err != nil {
		log.Printf("control: motor command (%d, %d) failed: %v", a, b, err)
	}
}
