package orientation

// Odometer accumulates travelled distance from the planar speed estimate.
type Odometer struct {
	meters float64
}

// Add integrates speed (m/s) over dt seconds. Negative inputs are ignored.
func (o *Odometer) Add(speed, dt float64) {
	if speed <= 0 || dt <= 0 {
		return
	}
	o.meters += speed * dt
}

// Meters returns the distance travelled so far.
func (o *Odometer) Meters() float64 {
	return o.meters
}

// Reset zeroes the odometer.
func (o *Odometer) Reset() {
	o.meters = 0
}
