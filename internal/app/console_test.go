package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/avoidance_rover/internal/config"
	"github.com/relabs-tech/avoidance_rover/internal/display"
	"github.com/relabs-tech/avoidance_rover/internal/imu"
	"github.com/relabs-tech/avoidance_rover/internal/orientation"
)

func TestConsoleRenderer(t *testing.T) {
	var buf bytes.Buffer
	c := Console{W: &buf}
	require.NoError(t, c.Render(display.Telemetry{MotorForward: true}))
	require.NoError(t, c.Clear())
	assert.Equal(t,
		"[ROVER] D:  --.-cm | Vt: 0.00 Y:   0.0 | Trip:  0.00m | Motor:OFF FWD\n[ROVER] display off\n",
		buf.String())
}

func TestRunIMUCheck(t *testing.T) {
	cfg := config.Default()
	cfg.CalibrationSamples = 2
	cfg.CalibrationInterval = time.Millisecond
	cfg.LoopInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	src := orientation.NewSimSource(imu.Sample{Gx: 1.5})
	require.NoError(t, RunIMUCheck(ctx, cfg, src, &buf, 10*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "gyro 1.500 0.000 0.000 deg/s")
	assert.Contains(t, out, "ROLL=  0.00  PITCH=  0.00  YAW=  0.00")
}

func TestRunIMUCheckCalibrationError(t *testing.T) {
	cfg := config.Default()
	cfg.CalibrationInterval = time.Millisecond
	err := RunIMUCheck(context.Background(), cfg, failingIMU{}, &bytes.Buffer{}, time.Second)
	assert.Error(t, err)
}
