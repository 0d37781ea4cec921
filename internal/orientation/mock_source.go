// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"github.com/relabs-tech/avoidance_rover/internal/imu"
)

// SimSource is a simulated IMU for a level vehicle. It reports gravity on Z,
// a configurable yaw rate, and a small fixed bias so calibration has
// something to remove.
type SimSource struct {
	yawRate float64 // deg/s
	accelX  float64 // m/s², forward acceleration
	bias    imu.Sample
}

// NewSimSource creates a simulated IMU with the given constant sensor bias.
func NewSimSource(bias imu.Sample) *SimSource {
	return &SimSource{bias: bias}
}

// SetYawRate sets the true body yaw rate in deg/s.
func (m *SimSource) SetYawRate(r float64) {
	m.yawRate = r
}

// SetForwardAccel sets the true forward acceleration in m/s².
func (m *SimSource) SetForwardAccel(a float64) {
	m.accelX = a
}

func (m *SimSource) Read() (imu.Sample, error) {
	return imu.Sample{
		Ax: m.accelX + m.bias.Ax,
		Ay: m.bias.Ay,
		Az: StandardGravity + m.bias.Az,
		Gx: m.bias.Gx,
		Gy: m.bias.Gy,
		Gz: m.yawRate + m.bias.Gz,
	}, nil
}
