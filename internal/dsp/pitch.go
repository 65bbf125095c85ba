// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"

	"soundlab/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// PitchEstimate is the result of one autocorrelation search.
type PitchEstimate struct {
	Frequency          float64 // sampleRate / bestLag, in Hz.
	Lag                int     // Best lag in samples.
	Correlation        float64 // r(bestLag).
	ZeroLagCorrelation float64 // r(0), the frame energy.
}

// Confidence returns min(1, r(bestLag)/r(0)), or 0 for a silent frame.
func (e PitchEstimate) Confidence() float64 {
	if e.ZeroLagCorrelation <= 0 {
		return 0
	}
	return math.Min(1, e.Correlation/e.ZeroLagCorrelation)
}

// PitchEstimator finds the fundamental frequency of a frame from the lag of
// maximum autocorrelation inside [sampleRate/maxFreq, sampleRate/minFreq].
//
// The autocorrelation r(lag) = Σ x[i]·x[i+lag] is evaluated through a
// zero-padded FFT of at least twice the frame length, which yields the
// linear (not circular) correlation for every lag at once.
type PitchEstimator struct {
	sampleRate float64
	frameSize  int
	minLag     int
	maxLag     int
	threshold  float64

	fft    *fourier.FFT
	padded []float64
	coeffs []complex128
	acf    []float64
}

// NewPitchEstimator prepares an estimator for frames of frameSize samples.
// threshold is the minimum r(bestLag)/r(0) ratio for a voiced estimate.
func NewPitchEstimator(sampleRate, frameSize int, minFreq, maxFreq, threshold float64) (*PitchEstimator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if minFreq <= 0 || minFreq >= maxFreq {
		return nil, fmt.Errorf("invalid pitch range [%g, %g] Hz", minFreq, maxFreq)
	}

	minLag := int(math.Floor(float64(sampleRate) / maxFreq))
	maxLag := int(math.Floor(float64(sampleRate) / minFreq))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag > frameSize-1 {
		maxLag = frameSize - 1
	}
	if minLag > maxLag {
		return nil, fmt.Errorf("frame of %d samples cannot resolve %g-%g Hz at %d Hz", frameSize, minFreq, maxFreq, sampleRate)
	}

	padSize := bitint.NextPowerOfTwo(2 * frameSize)
	return &PitchEstimator{
		sampleRate: float64(sampleRate),
		frameSize:  frameSize,
		minLag:     minLag,
		maxLag:     maxLag,
		threshold:  threshold,
		fft:        fourier.NewFFT(padSize),
		padded:     make([]float64, padSize),
		coeffs:     make([]complex128, padSize/2+1),
		acf:        make([]float64, padSize),
	}, nil
}

// LagRange returns the inclusive lag search range.
func (p *PitchEstimator) LagRange() (minLag, maxLag int) { return p.minLag, p.maxLag }

// Autocorrelation returns r(0..maxLag) for frame. The slice is reused by the
// next call.
func (p *PitchEstimator) Autocorrelation(frame []float64) []float64 {
	n := min(len(frame), p.frameSize)
	clear(p.padded)
	copy(p.padded, frame[:n])

	p.fft.Coefficients(p.coeffs, p.padded)
	for i, c := range p.coeffs {
		p.coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	p.fft.Sequence(p.acf, p.coeffs)

	// Rescale so that r(0) is exactly the frame energy, independent of the
	// transform's normalization convention.
	energy := floats.Dot(frame[:n], frame[:n])
	if p.acf[0] != 0 {
		floats.Scale(energy/p.acf[0], p.acf[:p.maxLag+1])
	} else {
		clear(p.acf[:p.maxLag+1])
	}
	p.acf[0] = energy
	return p.acf[:p.maxLag+1]
}

// Estimate returns the pitch of frame and true, or false when the frame is
// silent, has no positively correlated lag, or its best correlation falls
// below threshold·r(0).
func (p *PitchEstimator) Estimate(frame []float64) (PitchEstimate, bool) {
	r := p.Autocorrelation(frame)

	bestLag := 0
	bestCorr := 0.0
	for lag := p.minLag; lag <= p.maxLag; lag++ {
		if r[lag] > bestCorr {
			bestCorr = r[lag]
			bestLag = lag
		}
	}

	est := PitchEstimate{
		Lag:                bestLag,
		Correlation:        bestCorr,
		ZeroLagCorrelation: r[0],
	}
	if bestLag == 0 || bestCorr < r[0]*p.threshold {
		return est, false
	}
	est.Frequency = p.sampleRate / float64(bestLag)
	return est, true
}

// DirectAutocorrelation evaluates r(lag) = Σ x[i]·x[i+lag] for lags
// 0..maxLag by summation. It is the O(n·lags) reference for the FFT path.
func DirectAutocorrelation(frame []float64, maxLag int) []float64 {
	r := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag && lag < len(frame); lag++ {
		r[lag] = floats.Dot(frame[:len(frame)-lag], frame[lag:])
	}
	return r
}
