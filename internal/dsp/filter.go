// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"github.com/RyanBlaney/sonido-sonar/algorithms/filters"
)

// polePosition places the single pole of a first-order section so that
// its -3 dB point sits at cutoff: R = exp(-2π·cutoff/sampleRate).
func polePosition(cutoff float64, sampleRate int) float64 {
	return math.Exp(-2 * math.Pi * cutoff / float64(sampleRate))
}

// HighPass applies a first-order high-pass (a DC blocker with its pole at
// the cutoff) and returns a new slice:
//
//	y[n] = x[n] - x[n-1] + R·y[n-1]
func HighPass(samples []float64, cutoff float64, sampleRate int) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}
	return filters.NewDCRemovalWithPole(polePosition(cutoff, sampleRate)).ProcessBuffer(samples)
}

// LowPass applies the first-order low-pass complementary to HighPass at the
// same cutoff and returns a new slice:
//
//	y[n] = x[n] - hp[n] = (1-R)·x[n-1] + R·y[n-1]
//
// Its DC gain is 1 and it adds one sample of delay.
func LowPass(samples []float64, cutoff float64, sampleRate int) []float64 {
	out := HighPass(samples, cutoff, sampleRate)
	for i, x := range samples {
		out[i] = x - out[i]
	}
	return out
}
