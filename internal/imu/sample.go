package imu

// Sample is one IMU reading in physical units.
type Sample struct {
	Ax float64 `json:"ax"` // accel, m/s²
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`
	Gx float64 `json:"gx"` // gyro, deg/s
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
}

// Source is anything that can produce IMU samples on demand.
type Source interface {
	Read() (Sample, error)
}
