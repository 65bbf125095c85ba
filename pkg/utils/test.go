// SPDX-License-Identifier: MIT

// Package utils holds deterministic signal generators and spectrum helpers
// shared by tests and the synth command.
package utils

import (
	"math"
	"math/rand"
)

// GenerateSineWave returns n samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(n int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with its second and
// third harmonics, peaking below 1.0.
func GenerateComplexWave(n int, sampleRate float64) []float64 {
	buffer := make([]float64, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return buffer
}

// GenerateNoise returns uniform noise in [-amplitude, amplitude). The seed
// makes the sequence reproducible.
func GenerateNoise(n int, amplitude float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	buffer := make([]float64, n)
	for i := range buffer {
		buffer[i] = amplitude * (2*rng.Float64() - 1)
	}
	return buffer
}

// GenerateTones concatenates one sine segment per frequency, each lasting
// segmentSeconds. A frequency of 0 produces silence for that segment.
func GenerateTones(sampleRate int, segmentSeconds, amplitude float64, frequencies ...float64) []float64 {
	n := int(segmentSeconds * float64(sampleRate))
	out := make([]float64, 0, n*len(frequencies))
	for _, f := range frequencies {
		if f <= 0 {
			out = append(out, make([]float64, n)...)
			continue
		}
		out = append(out, GenerateSineWave(n, float64(sampleRate), f, amplitude)...)
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude within
// [startBin, endBin]. Out-of-range bounds are clamped.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}
	if startBin > endBin {
		return startBin
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
