// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"math"

	"soundlab/internal/audio"
	"soundlab/internal/dsp"
	"soundlab/internal/log"
)

// LinguisticsResult is the output of AnalyzeLinguistics.
type LinguisticsResult struct {
	Prosody       Prosody       `json:"prosody" yaml:"prosody"`
	Rhythm        Rhythm        `json:"rhythm" yaml:"rhythm"`
	VoiceActivity VoiceActivity `json:"voiceActivity" yaml:"voiceActivity"`
	VowelSpace    VowelSpace    `json:"vowelSpace" yaml:"vowelSpace"`
}

// Speech pitch band, Hz. Options narrow it further.
const (
	speechPitchMin = 60.0
	speechPitchMax = 500.0
)

// AnalyzeLinguistics computes speech prosody, rhythm, voice activity and
// vowel space statistics.
func AnalyzeLinguistics(ctx context.Context, sig audio.Signal, opts Options) (*LinguisticsResult, error) {
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

	minFreq := math.Max(s.FrequencyMin, speechPitchMin)
	maxFreq := math.Min(s.FrequencyMax, speechPitchMax)
	if minFreq >= maxFreq {
		return nil, configError(CodeInvalidRange, "frequencyMin",
			"no overlap with the speech pitch band [%g, %g] Hz", speechPitchMin, speechPitchMax)
	}
	pitch, err := newPitchEstimator(in, s.FFTSize, minFreq, maxFreq, s.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	n := frames.Count()
	levels := make([]float64, n)
	times := make([]float64, n)
	loop := newFrameLoop(ctx, ModeLinguistics, s.Progress)

	// --- 1. Levels and voice activity ---
	if err := loop.run("activity", n, func(i int) {
		frame := frames.At(i)
		levels[i] = dsp.RMS(frame.Samples)
		times[i] = frame.Time
	}); err != nil {
		return nil, err
	}
	va := DetectVoiceActivity(levels, times, frames.HopSeconds(), s.Threshold, s.MinNoteDuration, in.duration)

	// --- 2. Pitch and formants over active frames ---
	var (
		voiced      []voicedFrame
		intensities []float64
		formants    []FormantPoint
		windowed    = make([]float64, s.FFTSize)
		mags        []float64
	)
	if err := loop.run("voicing", n, func(i int) {
		if !inSegment(times[i], va.Segments) {
			return
		}
		frame := frames.At(i)
		intensities = append(intensities, dsp.AmplitudeToDB(levels[i]))

		est, ok := pitch.Estimate(dsp.ApplyWindow(windowed, frame.Samples, spectral.Window()))
		if !ok {
			return
		}
		voiced = append(voiced, voicedFrame{time: frame.Time, frequency: est.Frequency, amplitude: levels[i]})

		mags = spectral.Magnitudes(mags, frame.Samples)
		if f1, f2, ok := EstimateFormants(mags, spectral.Frequencies()); ok {
			formants = append(formants, FormantPoint{Time: frame.Time, F1: f1, F2: f2})
		}
	}); err != nil {
		return nil, err
	}

	// --- 3. Rhythm ---
	nuclei := SyllableNuclei(levels, times, va.Segments)

	res := &LinguisticsResult{
		Prosody:       measureProsody(voiced, intensities),
		Rhythm:        MeasureRhythm(nuclei, va, in.duration),
		VoiceActivity: va,
		VowelSpace:    measureVowelSpace(formants),
	}

	log.Debugf("Analysis: linguistics found %d segments, %d voiced frames, %d syllables",
		len(va.Segments), len(voiced), len(nuclei))
	return res, nil
}
