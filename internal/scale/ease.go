package scale

import "math"

// EaseFunc maps a normalized time t in [0, 1] to an eased progress.
type EaseFunc func(t float64) float64

// DefaultPolyExponent is the exponent used by PolyOut when none is given.
const DefaultPolyExponent = 3

// PolyOut returns a polynomial ease-out curve with the given exponent.
func PolyOut(exponent float64) EaseFunc {
	return func(t float64) float64 {
		return 1 - math.Pow(1-t, exponent)
	}
}

// PolyInOut returns a symmetric polynomial ease-in-out curve
// with the given exponent.
func PolyInOut(exponent float64) EaseFunc {
	return func(t float64) float64 {
		t *= 2
		if t <= 1 {
			return math.Pow(t, exponent) / 2
		}

		return (2 - math.Pow(2-t, exponent)) / 2
	}
}

// EasePolyOut is the cubic ease-out curve used for entry/exit phases.
var EasePolyOut = PolyOut(DefaultPolyExponent)
