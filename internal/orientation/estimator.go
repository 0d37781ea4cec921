// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/avoidance_rover/internal/imu"
)

// ErrNoSamples is returned when calibration is asked for zero samples.
var ErrNoSamples = errors.New("orientation: calibration needs at least one sample")

// Filter holds the tuning constants of the complementary filter and the
// velocity integrator. Deadband and decay are empirical.
type Filter struct {
	GyroWeight       float64       // weight of the integrated gyro term, accel gets 1-GyroWeight
	YawZeroThreshold float64       // deg/s below which the vehicle counts as not turning
	YawZeroHold      time.Duration // how long it must stay below threshold before yaw resets
	AccelDeadband    float64       // m/s², linear accel below this is treated as zero
	VelocityDecay    float64       // per-tick multiplicative leak on velocity
	Gravity          float64       // m/s²
}

// DefaultFilter returns the tuning used on the reference vehicle.
func DefaultFilter() Filter {
	return Filter{
		GyroWeight:       0.98,
		YawZeroThreshold: 0.1,
		YawZeroHold:      2000 * time.Millisecond,
		AccelDeadband:    0.05,
		VelocityDecay:    0.99,
		Gravity:          StandardGravity,
	}
}

// Offsets are the per-axis biases subtracted from every sample.
type Offsets struct {
	Ax, Ay, Az float64
	Gx, Gy, Gz float64
}

// Calibrate averages gyro and then accelerometer readings while the vehicle
// stands still and level. The Z accel bias is taken relative to gravity, so
// the body Z axis must be vertical while this runs.
//
// Blocks for roughly 2*samples*interval.
func Calibrate(ctx context.Context, src imu.Source, samples int, interval time.Duration) (Offsets, error) {
	if samples <= 0 {
		return Offsets{}, ErrNoSamples
	}

	var off Offsets
	n := float64(samples)

	log.Println("orientation: calibrating gyro, keep the vehicle still...")
	var gx, gy, gz float64
	for i := 0; i < samples; i++ {
		s, err := src.Read()
		if err != nil {
			return Offsets{}, fmt.Errorf("orientation: gyro calibration sample %d: %w", i, err)
		}
		gx += s.Gx
		gy += s.Gy
		gz += s.Gz
		if err := wait(ctx, interval); err != nil {
			return Offsets{}, err
		}
	}
	off.Gx, off.Gy, off.Gz = gx/n, gy/n, gz/n
	log.Printf("orientation: gyro bias X=%.3f Y=%.3f Z=%.3f deg/s", off.Gx, off.Gy, off.Gz)

	log.Println("orientation: calibrating accelerometer, keep the vehicle still and level...")
	var ax, ay, az float64
	for i := 0; i < samples; i++ {
		s, err := src.Read()
		if err != nil {
			return Offsets{}, fmt.Errorf("orientation: accel calibration sample %d: %w", i, err)
		}
		ax += s.Ax
		ay += s.Ay
		az += s.Az
		if err := wait(ctx, interval); err != nil {
			return Offsets{}, err
		}
	}
	off.Ax, off.Ay, off.Az = ax/n, ay/n, az/n-StandardGravity
	log.Printf("orientation: accel bias X=%.3f Y=%.3f Z=%.3f m/s²", off.Ax, off.Ay, off.Az)

	return off, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("orientation: calibration interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// Estimator fuses IMU samples into an Attitude. It is not safe for
// concurrent use; the control loop owns it.
type Estimator struct {
	filter  Filter
	offsets Offsets
	state   Attitude

	yawIdle      bool
	yawIdleSince time.Time
}

// NewEstimator creates an estimator starting from a level, stationary attitude.
func NewEstimator(f Filter, off Offsets) *Estimator {
	return &Estimator{filter: f, offsets: off}
}

// State returns the latest estimate.
func (e *Estimator) State() Attitude {
	return e.state
}

// Offsets returns the calibration offsets in use.
func (e *Estimator) Offsets() Offsets {
	return e.offsets
}

// Update advances the estimate by one tick of dt seconds.
func (e *Estimator) Update(s imu.Sample, dt float64, now time.Time) Attitude {
	f := e.filter

	ax := s.Ax - e.offsets.Ax
	ay := s.Ay - e.offsets.Ay
	az := s.Az - e.offsets.Az
	gx := s.Gx - e.offsets.Gx
	gy := s.Gy - e.offsets.Gy
	gz := s.Gz - e.offsets.Gz

	accelRoll, accelPitch := ComputePoseFromAccel(ax, ay, az)

	st := &e.state
	st.Roll = f.GyroWeight*(st.Roll+gx*dt) + (1-f.GyroWeight)*accelRoll
	st.Pitch = f.GyroWeight*(st.Pitch+gy*dt) + (1-f.GyroWeight)*accelPitch
	st.Yaw += gz * dt

	e.autoZeroYaw(gz, now)

	sinRoll := math.Sin(degToRad(st.Roll))
	sinPitch := math.Sin(degToRad(st.Pitch))
	cosPitch := math.Cos(degToRad(st.Pitch))

	gravityX := -sinPitch * f.Gravity
	gravityY := sinRoll * cosPitch * f.Gravity

	linX := ax - gravityX
	linY := ay - gravityY
	if math.Abs(linX) < f.AccelDeadband {
		linX = 0
	}
	if math.Abs(linY) < f.AccelDeadband {
		linY = 0
	}

	st.VelocityX = (st.VelocityX + linX*dt) * f.VelocityDecay
	st.VelocityY = (st.VelocityY + linY*dt) * f.VelocityDecay

	return e.state
}

// autoZeroYaw resets yaw once the rate has stayed under threshold for the hold time.
func (e *Estimator) autoZeroYaw(gz float64, now time.Time) {
	if math.Abs(gz) >= e.filter.YawZeroThreshold {
		e.yawIdle = false
		return
	}
	if !e.yawIdle {
		e.yawIdle = true
		e.yawIdleSince = now
		return
	}
	if now.Sub(e.yawIdleSince) >= e.filter.YawZeroHold {
		if e.state.Yaw != 0 {
			log.Printf("orientation: yaw auto-zeroed (was %.2f)", e.state.Yaw)
		}
		e.state.Yaw = 0
		e.yawIdleSince = now
	}
}
