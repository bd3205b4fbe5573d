package dsp

import "math"

// HannWindow computes the symmetric Hann window table of the given size,
// period size-1, exactly as spec §4.4 defines it:
// w[s] = 0.5 * (1 - cos(2*pi*s / (size-1))).
//
// Computed once at plan time, per spec §4.4.
func HannWindow(size int) []float64 {
	w := make([]float64, size)
	if size < 2 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	denom := float64(size - 1)
	for s := 0; s < size; s++ {
		w[s] = 0.5 * (1 - math.Cos(2*math.Pi*float64(s)/denom))
	}
	return w
}
