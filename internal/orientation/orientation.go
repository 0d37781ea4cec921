package orientation

import (
	"math"
)

// StandardGravity is the gravity magnitude assumed along the body Z axis at calibration time.
const StandardGravity = 9.80665

// Attitude is the fused orientation and planar velocity estimate.
// Angles are degrees and never normalised; velocities are m/s in the body frame.
type Attitude struct {
	Roll      float64 `json:"roll"`
	Pitch     float64 `json:"pitch"`
	Yaw       float64 `json:"yaw"`
	VelocityX float64 `json:"vx"`
	VelocityY float64 `json:"vy"`
}

// PlanarSpeed returns the magnitude of the planar velocity.
func (a Attitude) PlanarSpeed() float64 {
	return math.Hypot(a.VelocityX, a.VelocityY)
}

// ComputePoseFromAccel computes roll and pitch in degrees from accelerometer data only.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) (roll, pitch float64) {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
	return rollRad * 180.0 / math.Pi, pitchRad * 180.0 / math.Pi
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }
