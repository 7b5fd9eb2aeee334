package control

import "math"

const twoPi = 2 * math.Pi

// Wrap maps x onto (-π, π]. Values already in range are returned as is.
// NaN and ±Inf yield NaN.
func Wrap(x float64) float64 {
	if x > -math.Pi && x <= math.Pi {
		return x
	}
	r := math.Mod(x+math.Pi, twoPi)
	if r < 0 {
		r += twoPi
	}
	w := r - math.Pi
	if w <= -math.Pi {
		return math.Pi
	}
	return w
}

// InDegreeDomain reports whether deg lies in [0, 360).
func InDegreeDomain(deg int) bool {
	return deg >= 0 && deg < 360
}

// DegreesToRadiansSigned converts a heading-style degree value to a signed
// angle: [0, 180] maps to [0, π] and (180, 360) maps to (-π, 0).
// Values outside [0, 360) are reduced modulo 360 first.
func DegreesToRadiansSigned(deg int) float64 {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	if deg > 180 {
		deg -= 360
	}
	return float64(deg) * math.Pi / 180
}

// RadiansToDegrees is used for display only.
func RadiansToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
