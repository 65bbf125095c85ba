// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math/cmplx"

	"soundlab/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Pre-allocated buffers for one analyzer. An analyzer is owned by a single
// analysis call and is not safe for concurrent use.
type fftWorkspace struct {
	input     []float64    // Windowed frame.
	fftOutput []complex128 // N/2+1 coefficients from the real FFT.
}

// SpectralAnalyzer computes windowed magnitude spectra with a real FFT.
// Bin k covers frequency k·sampleRate/fftSize and only the fftSize/2 bins
// below Nyquist are reported.
type SpectralAnalyzer struct {
	fft         *fourier.FFT
	fftSize     int
	sampleRate  float64
	window      []float64
	frequencies []float64
	workspace   fftWorkspace
}

// NewSpectralAnalyzer builds an FFT plan and window table for fftSize
// points.
func NewSpectralAnalyzer(fftSize int, sampleRate float64, windowType WindowFunc) (*SpectralAnalyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	bins := fftSize / 2
	frequencies := make([]float64, bins)
	for k := range frequencies {
		frequencies[k] = float64(k) * sampleRate / float64(fftSize)
	}

	return &SpectralAnalyzer{
		fft:         fourier.NewFFT(fftSize),
		fftSize:     fftSize,
		sampleRate:  sampleRate,
		window:      Coefficients(windowType, fftSize),
		frequencies: frequencies,
		workspace: fftWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, fftSize/2+1),
		},
	}, nil
}

// Magnitudes windows frame, runs the FFT and writes fftSize/2 magnitudes
// into dst, which is allocated when nil or too short. Frames shorter than
// fftSize are zero-padded.
func (a *SpectralAnalyzer) Magnitudes(dst, frame []float64) []float64 {
	bins := a.fftSize / 2
	if cap(dst) < bins {
		dst = make([]float64, bins)
	}
	dst = dst[:bins]

	for i := range a.fftSize {
		if i < len(frame) {
			a.workspace.input[i] = frame[i] * a.window[i]
		} else {
			a.workspace.input[i] = 0
		}
	}

	a.fft.Coefficients(a.workspace.fftOutput, a.workspace.input)
	for k := range bins {
		dst[k] = cmplx.Abs(a.workspace.fftOutput[k])
	}
	return dst
}

// Window returns the window table. Callers must not modify it.
func (a *SpectralAnalyzer) Window() []float64 { return a.window }

// Frequencies returns the per-bin frequency table. Callers must not modify
// it.
func (a *SpectralAnalyzer) Frequencies() []float64 { return a.frequencies }

// BinFrequency returns the frequency of bin k, or 0 if k is out of range.
func (a *SpectralAnalyzer) BinFrequency(k int) float64 {
	if k < 0 || k >= len(a.frequencies) {
		return 0
	}
	return a.frequencies[k]
}

// BinForFrequency returns the nearest bin to f, clamped to the valid range.
func (a *SpectralAnalyzer) BinForFrequency(f float64) int {
	k := int(f*float64(a.fftSize)/a.sampleRate + 0.5)
	if k < 0 {
		return 0
	}
	if k >= len(a.frequencies) {
		return len(a.frequencies) - 1
	}
	return k
}

// FFTSize returns the configured FFT size.
func (a *SpectralAnalyzer) FFTSize() int { return a.fftSize }

// SampleRate returns the configured sample rate in Hz.
func (a *SpectralAnalyzer) SampleRate() float64 { return a.sampleRate }
