// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"github.com/relabs-tech/avoidance_rover/internal/config"
	"github.com/relabs-tech/avoidance_rover/internal/imu"
	"github.com/relabs-tech/avoidance_rover/internal/orientation"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

var (
	accelRangeG   = []int{2, 4, 8, 16}
	gyroRangeDegS = []int{250, 500, 1000, 2000}
)

// IMU reads the MPU9250 over SPI and converts counts to m/s² and deg/s.
type IMU struct {
	dev        *mpu9250.MPU9250
	accelScale float64 // m/s² per count
	gyroScale  float64 // deg/s per count
}

// NewIMU initializes the MPU9250 named in the configuration.
func NewIMU(cfg *config.Config) (*IMU, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", cfg.IMUCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", cfg.IMUSPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(cfg.IMUAccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", cfg.IMUAccelRange, accelRangeG[cfg.IMUAccelRange])

	if err := dev.SetGyroRange(cfg.IMUGyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: gyroscope range set to %d (±%d°/s)", cfg.IMUGyroRange, gyroRangeDegS[cfg.IMUGyroRange])

	return &IMU{
		dev:        dev,
		accelScale: AccelScale(cfg.IMUAccelRange),
		gyroScale:  GyroScale(cfg.IMUGyroRange),
	}, nil
}

// AccelScale returns m/s² per count for an ACCEL_FS_SEL value.
func AccelScale(fsSel byte) float64 {
	lsbPerG := float64(int(16384) >> fsSel)
	return orientation.StandardGravity / lsbPerG
}

// GyroScale returns deg/s per count for a GYRO_FS_SEL value.
func GyroScale(fsSel byte) float64 {
	lsbPerDegS := 131.0 / float64(int(1)<<fsSel)
	return 1 / lsbPerDegS
}

// Read returns one accelerometer and gyroscope sample.
func (m *IMU) Read() (imu.Sample, error) {
	ax, err := m.dev.GetAccelerationX()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := m.dev.GetAccelerationY()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := m.dev.GetAccelerationZ()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := m.dev.GetRotationX()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := m.dev.GetRotationY()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := m.dev.GetRotationZ()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return m.convert(ax, ay, az, gx, gy, gz), nil
}

func (m *IMU) convert(ax, ay, az, gx, gy, gz int16) imu.Sample {
	return imu.Sample{
		Ax: float64(ax) * m.accelScale,
		Ay: float64(ay) * m.accelScale,
		Az: float64(az) * m.accelScale,
		Gx: float64(gx) * m.gyroScale,
		Gy: float64(gy) * m.gyroScale,
		Gz: float64(gz) * m.gyroScale,
	}
}
