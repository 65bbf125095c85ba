// SPDX-License-Identifier: MIT

// Package analysis is the audio analysis engine. Each Analyze function is a
// pure, synchronous function of a decoded signal and an Options value:
// nothing is retained between calls, so independent calls may run
// concurrently on independent goroutines.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"soundlab/internal/audio"
	"soundlab/internal/dsp"
	"soundlab/internal/log"
)

// Mode names an analysis entry point.
type Mode string

const (
	ModeTranscription Mode = "transcription"
	ModeSoundscape    Mode = "soundscape"
	ModeMicrotonal    Mode = "microtonal"
	ModeLinguistics   Mode = "linguistics"
)

// Analyzer is the mode-independent form of an Analyze function, used by the
// command line and the websocket server to dispatch by name.
type Analyzer interface {
	Mode() Mode
	Analyze(ctx context.Context, sig audio.Signal, opts Options) (any, error)
}

type analyzerFunc[R any] struct {
	mode Mode
	fn   func(context.Context, audio.Signal, Options) (*R, error)
}

func (a analyzerFunc[R]) Mode() Mode { return a.mode }

func (a analyzerFunc[R]) Analyze(ctx context.Context, sig audio.Signal, opts Options) (any, error) {
	res, err := a.fn(ctx, sig, opts)
	if err != nil {
		return nil, err
	}
	return res, nil
}

var registry = map[Mode]Analyzer{
	ModeTranscription: analyzerFunc[TranscriptionResult]{ModeTranscription, AnalyzeTranscription},
	ModeSoundscape:    analyzerFunc[SoundscapeResult]{ModeSoundscape, AnalyzeSoundscape},
	ModeMicrotonal:    analyzerFunc[MicrotonalResult]{ModeMicrotonal, AnalyzeMicrotonal},
	ModeLinguistics:   analyzerFunc[LinguisticsResult]{ModeLinguistics, AnalyzeLinguistics},
}

// Lookup returns the analyzer for mode (case-insensitive).
func Lookup(mode string) (Analyzer, error) {
	a, ok := registry[Mode(strings.ToLower(strings.TrimSpace(mode)))]
	if !ok {
		return nil, fmt.Errorf("unknown analysis mode: '%s'", mode)
	}
	return a, nil
}

// Modes returns every registered mode in sorted order.
func Modes() []Mode {
	modes := make([]Mode, 0, len(registry))
	for m := range registry {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// input is the mono analysis buffer after channel selection, truncation
// and filtering. raw is the same buffer before filtering.
type input struct {
	samples    []float64
	raw        []float64
	sampleRate int
	duration   float64
	truncated  bool
}

// prepare validates sig and turns it into the buffer every mode frames.
// The caller's slices are never written.
func prepare(sig audio.Signal, s settings) (input, error) {
	if sig.SampleRate <= 0 {
		return input{}, inputError(CodeInvalidSampleRate, "sample rate must be positive, got %d", sig.SampleRate)
	}
	if sig.NumChannels() == 0 || sig.Frames() == 0 {
		return input{}, inputError(CodeEmptySignal, "signal has no samples")
	}

	samples := sig.Mono(s.channel)
	if len(samples) == 0 {
		return input{}, inputError(CodeEmptySignal, "selected channel %s has no samples", s.channel)
	}

	in := input{sampleRate: sig.SampleRate}
	if s.MaxProcessingDuration > 0 {
		limit := int(s.MaxProcessingDuration * float64(sig.SampleRate))
		if limit < len(samples) {
			samples = samples[:limit]
			in.truncated = true
		}
	}
	if len(samples) < s.FFTSize {
		return input{}, inputError(CodeSignalTooShort, "signal has %d samples, fftSize needs %d", len(samples), s.FFTSize)
	}

	in.raw = samples
	if s.EnableHighPassFilter {
		samples = dsp.HighPass(samples, s.HighPassFrequency, sig.SampleRate)
	}
	if s.EnableLowPassFilter {
		samples = dsp.LowPass(samples, s.LowPassFrequency, sig.SampleRate)
	}

	in.samples = samples
	in.duration = float64(len(samples)) / float64(sig.SampleRate)

	log.Debugf("Analysis: prepared %d samples at %d Hz (channel %s, truncated %v)",
		len(samples), sig.SampleRate, s.channel, in.truncated)
	return in, nil
}

// begin resolves options and prepares the signal, in that order.
func begin(sig audio.Signal, opts Options) (settings, input, error) {
	s, err := opts.resolve()
	if err != nil {
		return s, input{}, err
	}
	in, err := prepare(sig, s)
	if err != nil {
		return s, input{}, err
	}
	return s, in, nil
}

// newPitchEstimator builds an estimator and reports a band the frame cannot
// resolve as a configuration error.
func newPitchEstimator(in input, frameSize int, minFreq, maxFreq, threshold float64) (*dsp.PitchEstimator, error) {
	p, err := dsp.NewPitchEstimator(in.sampleRate, frameSize, minFreq, maxFreq, threshold)
	if err != nil {
		e := configError(CodeInvalidRange, "frequencyMin", "pitch band cannot be searched")
		e.Cause = err
		return nil, e
	}
	return p, nil
}
