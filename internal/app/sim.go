// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"math"
	"time"

	"github.com/relabs-tech/avoidance_rover/internal/orientation"
)

// Simulated drivetrain constants.
const (
	simCmPerSecPerUnit  = 0.1  // forward speed at duty 1
	simDegPerSecPerUnit = 0.5  // yaw rate per unit of wheel difference
	simMaxRangeCm       = 400  // HC-SR04 limit, beyond it there is no echo
	simTurnToClear      = 40.0 // degrees of turning that point the rover at open space
)

// SimWorld is a one-dimensional bench: the rover drives toward a wall that
// moves away once the rover has turned far enough. It implements both the
// motor and range interfaces and feeds the simulated IMU's yaw rate.
type SimWorld struct {
	imu *orientation.SimSource
	now func() time.Time

	last    time.Time
	a, b    int
	ahead   float64 // cm to the wall
	spacing float64
	turned  float64 // degrees since the wall was placed
	heading float64
}

// NewSimWorld places a wall spacingCm ahead of the rover.
func NewSimWorld(src *orientation.SimSource, spacingCm float64, now func() time.Time) *SimWorld {
	return &SimWorld{
		imu:     src,
		now:     now,
		ahead:   spacingCm,
		spacing: spacingCm,
	}
}

// SetSpeeds implements control.Motor.
func (w *SimWorld) SetSpeeds(a, b int) error {
	w.advance()
	w.a, w.b = a, b
	w.imu.SetYawRate(float64(a-b) / 2 * simDegPerSecPerUnit)
	return nil
}

// Sample implements RangeSensor.
func (w *SimWorld) Sample() float64 {
	w.advance()
	if w.ahead > simMaxRangeCm {
		return -1
	}
	return math.Trunc(w.ahead)
}

// Heading returns the true accumulated heading in degrees.
func (w *SimWorld) Heading() float64 {
	w.advance()
	return w.heading
}

func (w *SimWorld) advance() {
	now := w.now()
	if w.last.IsZero() {
		w.last = now
		return
	}
	dt := now.Sub(w.last).Seconds()
	w.last = now

	w.ahead -= float64(w.a+w.b) / 2 * simCmPerSecPerUnit * dt
	if w.ahead < 1 {
		w.ahead = 1
	}

	turn := float64(w.a-w.b) / 2 * simDegPerSecPerUnit * dt
	w.heading += turn
	w.turned += math.Abs(turn)
	if w.turned >= simTurnToClear {
		w.turned = 0
		w.ahead = w.spacing
	}
}

// SimPress is one scripted button press.
type SimPress struct {
	Index int
	At    time.Duration // since the script started
	Hold  time.Duration
}

// SimButtons replays scripted presses as active-low levels.
type SimButtons struct {
	n       int
	start   time.Time
	presses []SimPress
	now     func() time.Time
}

// NewSimButtons creates n released buttons that follow the script.
func NewSimButtons(n int, start time.Time, now func() time.Time, presses ...SimPress) *SimButtons {
	return &SimButtons{n: n, start: start, presses: presses, now: now}
}

func (s *SimButtons) Levels() []bool {
	levels := make([]bool, s.n)
	for i := range levels {
		levels[i] = true
	}
	t := s.now().Sub(s.start)
	for _, p := range s.presses {
		if p.Index < s.n && t >= p.At && t < p.At+p.Hold {
			levels[p.Index] = false
		}
	}
	return levels
}
