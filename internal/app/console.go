// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/relabs-tech/avoidance_rover/internal/config"
	"github.com/relabs-tech/avoidance_rover/internal/display"
	"github.com/relabs-tech/avoidance_rover/internal/imu"
	"github.com/relabs-tech/avoidance_rover/internal/orientation"
)

// Console renders telemetry frames as text lines, for benches without an
// OLED attached.
type Console struct {
	W io.Writer
}

func (c Console) Render(t display.Telemetry) error {
	_, err := fmt.Fprintf(c.W, "[ROVER] %s\n", strings.Join(display.Lines(t), " | "))
	return err
}

func (c Console) Clear() error {
	_, err := fmt.Fprintln(c.W, "[ROVER] display off")
	return err
}

// RunIMUCheck calibrates src and prints the estimated attitude every
// printEvery until ctx is done.
func RunIMUCheck(ctx context.Context, cfg *config.Config, src imu.Source, w io.Writer, printEvery time.Duration) error {
	fmt.Fprintf(w, "calibrating, keep the IMU still (%d samples)\n", cfg.CalibrationSamples)
	off, err := orientation.Calibrate(ctx, src, cfg.CalibrationSamples, cfg.CalibrationInterval)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "offsets: accel %.3f %.3f %.3f m/s²  gyro %.3f %.3f %.3f deg/s\n",
		off.Ax, off.Ay, off.Az, off.Gx, off.Gy, off.Gz)

	est := orientation.NewEstimator(FilterFromConfig(cfg), off)

	ticker := time.NewTicker(cfg.LoopInterval)
	defer ticker.Stop()

	var last, lastPrint time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := cfg.LoopInterval.Seconds()
			if !last.IsZero() {
				dt = now.Sub(last).Seconds()
			}
			last = now

			s, err := src.Read()
			if err != nil {
				fmt.Fprintf(w, "read error: %v\n", err)
				continue
			}
			att := est.Update(s, dt, now)

			if now.Sub(lastPrint) < printEvery {
				continue
			}
			lastPrint = now
			fmt.Fprintf(w,
				"ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f  VX=%5.2f  VY=%5.2f\n",
				att.Roll, att.Pitch, att.Yaw, att.VelocityX, att.VelocityY,
			)
		}
	}
}
