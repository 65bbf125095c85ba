// SPDX-License-Identifier: MIT

// Package dsp holds the signal-processing primitives shared by every
// analysis mode: framing, windowing, FFT magnitude spectra, autocorrelation
// pitch estimation, spectral features and first-order filters.
package dsp

import "fmt"

// Frame is a view into the source buffer. Samples aliases the caller's
// slice and must not be modified.
type Frame struct {
	Samples []float64
	Offset  int     // Index of the first sample in the source buffer.
	Time    float64 // Offset / sampleRate, in seconds.
}

// FrameSource slices a mono buffer into overlapping frames of size
// samples, advancing by hop. A final frame that would run past the end of
// the buffer is dropped. FrameSource is random access and therefore
// restartable: At(i) can be called in any order, any number of times.
type FrameSource struct {
	samples    []float64
	sampleRate int
	size       int
	hop        int
	count      int
}

// NewFrameSource validates the framing parameters and precomputes the frame
// count.
func NewFrameSource(samples []float64, sampleRate, size, hop int) (*FrameSource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if size <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", size)
	}
	if hop <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hop)
	}

	count := 0
	if len(samples) >= size {
		count = (len(samples)-size)/hop + 1
	}

	return &FrameSource{
		samples:    samples,
		sampleRate: sampleRate,
		size:       size,
		hop:        hop,
		count:      count,
	}, nil
}

// Count returns the number of complete frames.
func (s *FrameSource) Count() int { return s.count }

// Size returns the frame length in samples.
func (s *FrameSource) Size() int { return s.size }

// Hop returns the distance between frame starts in samples.
func (s *FrameSource) Hop() int { return s.hop }

// HopSeconds returns the hop expressed in seconds.
func (s *FrameSource) HopSeconds() float64 {
	return float64(s.hop) / float64(s.sampleRate)
}

// At returns frame i. It panics if i is out of range, like a slice index.
func (s *FrameSource) At(i int) Frame {
	if i < 0 || i >= s.count {
		panic(fmt.Sprintf("dsp: frame index %d out of range [0,%d)", i, s.count))
	}
	offset := i * s.hop
	return Frame{
		Samples: s.samples[offset : offset+s.size : offset+s.size],
		Offset:  offset,
		Time:    float64(offset) / float64(s.sampleRate),
	}
}
