// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RMS returns the root-mean-square amplitude of samples, 0 for an empty
// slice.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs that
// change sign.
func ZeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// AmplitudeToDB converts a linear amplitude to dBFS, floored at -120 dB.
func AmplitudeToDB(amplitude float64) float64 {
	const floor = -120.0
	if amplitude <= 0 {
		return floor
	}
	return math.Max(floor, 20*math.Log10(amplitude))
}

// SpectralCentroid returns Σ(mag·freq)/Σmag, or 0 when the spectrum has no
// energy.
func SpectralCentroid(magnitudes, frequencies []float64) float64 {
	total := floats.Sum(magnitudes)
	if total == 0 {
		return 0
	}
	return floats.Dot(magnitudes, frequencies[:len(magnitudes)]) / total
}

// SpectralFlatness returns the ratio of geometric to arithmetic mean over
// the nonzero bins, or 0 if every bin is zero.
func SpectralFlatness(magnitudes []float64) float64 {
	var logSum, sum float64
	n := 0
	for _, m := range magnitudes {
		if m > 0 {
			logSum += math.Log(m)
			sum += m
			n++
		}
	}
	if n == 0 {
		return 0
	}
	arithmetic := sum / float64(n)
	geometric := math.Exp(logSum / float64(n))
	return geometric / arithmetic
}

// SpectralEntropy returns -Σp·log2(p)/log2(binCount) with p = mag/Σmag,
// a value in [0,1]. A spectrum without energy, or with fewer than two
// bins, has entropy 0.
func SpectralEntropy(magnitudes []float64) float64 {
	if len(magnitudes) < 2 {
		return 0
	}
	total := floats.Sum(magnitudes)
	if total == 0 {
		return 0
	}
	var h float64
	for _, m := range magnitudes {
		if m <= 0 {
			continue
		}
		p := m / total
		h -= p * math.Log2(p)
	}
	return h / math.Log2(float64(len(magnitudes)))
}

// BandEnergy sums the magnitudes whose bin frequency lies in [lowHz,
// highHz) and reports how many bins contributed.
func BandEnergy(magnitudes, frequencies []float64, lowHz, highHz float64) (energy float64, bins int) {
	for k, m := range magnitudes {
		f := frequencies[k]
		if f >= lowHz && f < highHz {
			energy += m
			bins++
		}
	}
	return energy, bins
}

// PeakBin returns the index of the largest magnitude, preferring the lowest
// index on ties, or -1 for an empty slice.
func PeakBin(magnitudes []float64) int {
	if len(magnitudes) == 0 {
		return -1
	}
	return floats.MaxIdx(magnitudes)
}

// MovingAverage returns a centered moving average of x with the given odd
// width. Edges average over the samples that exist.
func MovingAverage(x []float64, width int) []float64 {
	out := make([]float64, len(x))
	if width < 1 {
		width = 1
	}
	half := width / 2
	for i := range x {
		lo := max(0, i-half)
		hi := min(len(x), i+half+1)
		out[i] = floats.Sum(x[lo:hi]) / float64(hi-lo)
	}
	return out
}
