// SPDX-License-Identifier: MIT
package analysis

import (
	"context"

	"soundlab/internal/audio"
	"soundlab/internal/dsp"
	"soundlab/internal/log"
)

// Spectrogram is one magnitude slice per frame plus the shared per-bin
// frequency table and frame start times.
type Spectrogram struct {
	Magnitudes  [][]float64 `json:"magnitudes" yaml:"magnitudes"`
	Frequencies []float64   `json:"frequencies" yaml:"frequencies"`
	Times       []float64   `json:"times" yaml:"times"`
	FFTSize     int         `json:"fftSize" yaml:"fftSize"`
	SampleRate  int         `json:"sampleRate" yaml:"sampleRate"`
}

// SoundscapeResult is the output of AnalyzeSoundscape.
type SoundscapeResult struct {
	Indices           AcousticIndices `json:"indices" yaml:"indices"`
	FrequencyBands    []BandShare     `json:"frequencyBands" yaml:"frequencyBands"`
	TemporalVariation []float64       `json:"temporalVariation" yaml:"temporalVariation"`
	Spectrogram       *Spectrogram    `json:"spectrogram,omitempty" yaml:"spectrogram,omitempty"`
}

// AnalyzeSoundscape computes the full spectrogram of a signal and the
// acoustic indices derived from it.
func AnalyzeSoundscape(ctx context.Context, sig audio.Signal, opts Options) (*SoundscapeResult, error) {
	s, in, err := begin(sig, opts)
	if err != nil {
		return nil, err
	}

	frames, err := dsp.NewFrameSource(in.samples, in.sampleRate, s.FFTSize, s.hop)
	if err != nil {
		return nil, err
	}
	spectral, err := dsp.NewSpectralAnalyzer(s.FFTSize, float64(in.sampleRate), s.window)
	if err != nil {
		return nil, err
	}

	log.Debugf("Analysis: soundscape over %d frames (fft %d, hop %d)", frames.Count(), s.FFTSize, s.hop)

	spec := &Spectrogram{
		Magnitudes:  make([][]float64, frames.Count()),
		Frequencies: spectral.Frequencies(),
		Times:       make([]float64, frames.Count()),
		FFTSize:     s.FFTSize,
		SampleRate:  in.sampleRate,
	}

	loop := newFrameLoop(ctx, ModeSoundscape, s.Progress)
	if err := loop.run("spectrogram", frames.Count(), func(i int) {
		frame := frames.At(i)
		spec.Magnitudes[i] = spectral.Magnitudes(nil, frame.Samples)
		spec.Times[i] = frame.Time
	}); err != nil {
		return nil, err
	}

	res := &SoundscapeResult{
		Indices:           ComputeIndices(spec.Magnitudes, spec.Frequencies),
		FrequencyBands:    BandShares(spec.Magnitudes, spec.Frequencies, SoundscapeBands),
		TemporalVariation: TemporalVariation(in.raw, in.sampleRate),
		Spectrogram:       spec,
	}

	log.Debugf("Analysis: soundscape ACI %.4f NDSI %.4f entropy %.4f",
		res.Indices.ACI, res.Indices.NDSI, res.Indices.Entropy)
	return res, nil
}
