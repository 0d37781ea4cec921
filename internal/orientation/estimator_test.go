package orientation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/avoidance_rover/internal/imu"
)

const tick = 5 * time.Millisecond

type failingSource struct {
	after int
	n     int
}

var errBus = errors.New("spi: bus error")

func (f *failingSource) Read() (imu.Sample, error) {
	f.n++
	if f.n > f.after {
		return imu.Sample{}, errBus
	}
	return imu.Sample{Az: StandardGravity}, nil
}

func levelSample(gz float64) imu.Sample {
	return imu.Sample{Az: StandardGravity, Gz: gz}
}

func TestComputePoseFromAccel(t *testing.T) {
	roll, pitch := ComputePoseFromAccel(0, 0, StandardGravity)
	assert.InDelta(t, 0, roll, 1e-12)
	assert.InDelta(t, 0, pitch, 1e-12)

	a := degToRad(30)
	roll, pitch = ComputePoseFromAccel(0, StandardGravity*math.Sin(a), StandardGravity*math.Cos(a))
	assert.InDelta(t, 30, roll, 1e-9)
	assert.InDelta(t, 0, pitch, 1e-9)

	roll, pitch = ComputePoseFromAccel(-StandardGravity*math.Sin(a), 0, StandardGravity*math.Cos(a))
	assert.InDelta(t, 0, roll, 1e-9)
	assert.InDelta(t, 30, pitch, 1e-9)
}

func TestCalibrate(t *testing.T) {
	bias := imu.Sample{Ax: 0.12, Ay: -0.3, Az: 0.25, Gx: 1.5, Gy: -0.7, Gz: 0.4}
	src := NewSimSource(bias)

	off, err := Calibrate(context.Background(), src, 1000, 0)
	require.NoError(t, err)

	assert.InDelta(t, bias.Ax, off.Ax, 1e-9)
	assert.InDelta(t, bias.Ay, off.Ay, 1e-9)
	assert.InDelta(t, bias.Az, off.Az, 1e-9, "Z bias is relative to gravity")
	assert.InDelta(t, bias.Gx, off.Gx, 1e-9)
	assert.InDelta(t, bias.Gy, off.Gy, 1e-9)
	assert.InDelta(t, bias.Gz, off.Gz, 1e-9)
}

func TestCalibrateErrors(t *testing.T) {
	t.Run("zero samples", func(t *testing.T) {
		_, err := Calibrate(context.Background(), NewSimSource(imu.Sample{}), 0, 0)
		assert.ErrorIs(t, err, ErrNoSamples)
	})

	t.Run("read failure during gyro phase", func(t *testing.T) {
		_, err := Calibrate(context.Background(), &failingSource{after: 10}, 100, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, errBus)
		assert.Contains(t, err.Error(), "gyro")
	})

	t.Run("read failure during accel phase", func(t *testing.T) {
		_, err := Calibrate(context.Background(), &failingSource{after: 150}, 100, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, errBus)
		assert.Contains(t, err.Error(), "accel")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Calibrate(ctx, NewSimSource(imu.Sample{}), 1000, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEstimatorRemovesOffsets(t *testing.T) {
	bias := imu.Sample{Ax: 0.2, Ay: 0.1, Az: -0.3, Gx: 2, Gy: -1, Gz: 3}
	src := NewSimSource(bias)
	off, err := Calibrate(context.Background(), src, 10, 0)
	require.NoError(t, err)

	e := NewEstimator(DefaultFilter(), off)
	now := time.Unix(0, 0)
	for i := 0; i < 200; i++ {
		s, _ := src.Read()
		now = now.Add(tick)
		e.Update(s, tick.Seconds(), now)
	}

	st := e.State()
	assert.InDelta(t, 0, st.Roll, 1e-6)
	assert.InDelta(t, 0, st.Pitch, 1e-6)
	assert.InDelta(t, 0, st.Yaw, 1e-6)
	assert.InDelta(t, 0, st.VelocityX, 1e-9)
	assert.InDelta(t, 0, st.VelocityY, 1e-9)
}

func TestComplementaryFilterConvergesToAccelTilt(t *testing.T) {
	e := NewEstimator(DefaultFilter(), Offsets{})
	a := degToRad(10)
	s := imu.Sample{Ay: StandardGravity * math.Sin(a), Az: StandardGravity * math.Cos(a)}

	now := time.Unix(0, 0)
	prev := 0.0
	for i := 0; i < 600; i++ {
		now = now.Add(tick)
		st := e.Update(s, tick.Seconds(), now)
		require.Greater(t, st.Roll, prev, "roll approaches accel tilt monotonically")
		prev = st.Roll
	}
	assert.InDelta(t, 10, e.State().Roll, 0.01)
	assert.InDelta(t, 0, e.State().Pitch, 1e-9)
}

func TestGyroIntegratesYaw(t *testing.T) {
	e := NewEstimator(DefaultFilter(), Offsets{})
	now := time.Unix(0, 0)
	for i := 0; i < 200; i++ {
		now = now.Add(tick)
		e.Update(levelSample(45), tick.Seconds(), now)
	}
	assert.InDelta(t, 45, e.State().Yaw, 1e-9)
}

func TestYawAutoZero(t *testing.T) {
	e := NewEstimator(DefaultFilter(), Offsets{})
	now := time.Unix(0, 0)

	for i := 0; i < 100; i++ {
		now = now.Add(tick)
		e.Update(levelSample(10), tick.Seconds(), now)
	}
	require.InDelta(t, 5, e.State().Yaw, 1e-9)

	idleStart := now.Add(tick)
	for k := 0; ; k++ {
		now = idleStart.Add(time.Duration(k) * tick)
		st := e.Update(levelSample(0.05), tick.Seconds(), now)
		if now.Sub(idleStart) < 2000*time.Millisecond {
			require.NotZero(t, st.Yaw, "yaw must hold until the idle period elapses (k=%d)", k)
			continue
		}
		assert.Equal(t, 0.0, st.Yaw, "yaw resets exactly at the 2000 ms boundary")
		break
	}
}

func TestYawAutoZeroCancelledByRotation(t *testing.T) {
	e := NewEstimator(DefaultFilter(), Offsets{})
	now := time.Unix(0, 0)

	e.Update(levelSample(100), 0.1, now) // yaw = 10
	for i := 0; i < 300; i++ {           // 1500 ms idle
		now = now.Add(tick)
		e.Update(levelSample(0), tick.Seconds(), now)
	}
	now = now.Add(tick)
	e.Update(levelSample(-0.2), tick.Seconds(), now) // excursion
	for i := 0; i < 300; i++ {
		now = now.Add(tick)
		e.Update(levelSample(0), tick.Seconds(), now)
	}
	assert.InDelta(t, 10-0.001, e.State().Yaw, 1e-9, "excursion restarts the idle timer")

	for i := 0; i < 101; i++ {
		now = now.Add(tick)
		e.Update(levelSample(0), tick.Seconds(), now)
	}
	assert.Equal(t, 0.0, e.State().Yaw)
}

func TestVelocityDecay(t *testing.T) {
	e := NewEstimator(DefaultFilter(), Offsets{})
	e.state.VelocityX = 1.0
	e.state.VelocityY = -0.5

	now := time.Unix(0, 0)
	prev := e.State().PlanarSpeed()
	for i := 0; i < 500; i++ {
		now = now.Add(tick)
		st := e.Update(levelSample(0), tick.Seconds(), now)
		speed := st.PlanarSpeed()
		require.Less(t, speed, prev)
		require.InDelta(t, prev*0.99, speed, 1e-12)
		require.Greater(t, speed, 0.0)
		prev = speed
	}
}

func TestVelocityDeadband(t *testing.T) {
	e := NewEstimator(DefaultFilter(), Offsets{})
	s := imu.Sample{Ax: 0.04, Az: StandardGravity}

	now := time.Unix(0, 0)
	for i := 0; i < 500; i++ {
		now = now.Add(tick)
		e.Update(s, tick.Seconds(), now)
	}
	assert.Equal(t, 0.0, e.State().VelocityX)
	assert.Equal(t, 0.0, e.State().VelocityY)
}

func TestVelocityIntegratesForwardAccel(t *testing.T) {
	e := NewEstimator(DefaultFilter(), Offsets{})
	src := NewSimSource(imu.Sample{})
	src.SetForwardAccel(1.0)

	now := time.Unix(0, 0)
	s, _ := src.Read()
	st := e.Update(s, 0.01, now)
	assert.Greater(t, st.VelocityX, 0.0)
	assert.Less(t, st.VelocityX, 0.01*0.99+1e-12)
	assert.Equal(t, 0.0, st.VelocityY)
}

func TestOdometer(t *testing.T) {
	var o Odometer
	o.Add(0.5, 2)
	o.Add(-1, 1)
	o.Add(1, 0)
	assert.InDelta(t, 1.0, o.Meters(), 1e-12)
	o.Reset()
	assert.Equal(t, 0.0, o.Meters())
}
