package fractal

import "github.com/chewxy/math32"

// wowRate is the angular speed of the oscillation. One period spans about
// 9 units of simulation time.
const wowRate = 0.7

// WowRange is the interval the fourth coordinate sweeps.
type WowRange struct {
	Min, Max float32
}

// DefaultWowRange returns [-0.8, 0.8].
func DefaultWowRange() WowRange {
	return WowRange{Min: -0.8, Max: 0.8}
}

// At returns the wow value for simulation time t. The result always lies
// in [Min, Max].
func (r WowRange) At(t float32) float32 {
	s := (math32.Sin(t*wowRate) + 1) / 2
	w := s*(r.Max-r.Min) + r.Min
	// Rounding can push the endpoints out by one ulp.
	return math32.Max(r.Min, math32.Min(r.Max, w))
}
