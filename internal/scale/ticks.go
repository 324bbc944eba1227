package scale

import "math"

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Ticks returns approximately count human-friendly values
// spaced evenly within [start, stop].
// The values are multiples of 1, 2 or 5 times a power of ten.
func Ticks(start, stop float64, count int) []float64 {
	if count <= 0 || math.IsNaN(start) || math.IsNaN(stop) {
		return []float64{}
	}

	if start == stop {
		return []float64{start}
	}

	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	step := TickIncrement(start, stop, count)
	if step == 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return []float64{}
	}

	var ticks []float64

	if step > 0 {
		r0 := math.Round(start / step)
		r1 := math.Round(stop / step)

		if r0*step < start {
			r0++
		}
		if r1*step > stop {
			r1--
		}

		for r := r0; r <= r1; r++ {
			ticks = append(ticks, r*step)
		}
	} else {
		step = -step

		r0 := math.Round(start * step)
		r1 := math.Round(stop * step)

		if r0/step < start {
			r0++
		}
		if r1/step > stop {
			r1--
		}

		for r := r0; r <= r1; r++ {
			ticks = append(ticks, r/step)
		}
	}

	if reverse {
		for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}

	return ticks
}

// TickIncrement returns the tick step for the given extent.
// A negative value -n means a step of 1/n, which avoids
// floating point error for fractional steps.
func TickIncrement(start, stop float64, count int) float64 {
	step := (stop - start) / math.Max(0, float64(count))
	power := math.Floor(math.Log10(step))
	err := step / math.Pow(10, power)

	factor := 1.0
	switch {
	case err >= e10:
		factor = 10
	case err >= e5:
		factor = 5
	case err >= e2:
		factor = 2
	}

	if power >= 0 {
		return factor * math.Pow(10, power)
	}

	return -math.Pow(10, -power) / factor
}
