// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"math"

	"soundlab/internal/audio"
	"soundlab/internal/dsp"
	"soundlab/internal/log"
	"soundlab/internal/tuning"
)

// MicrotonalResult is the output of AnalyzeMicrotonal.
type MicrotonalResult struct {
	PitchHistogram        []PitchHistogramEntry `json:"pitchHistogram" yaml:"pitchHistogram"`
	DominantPitches       []PitchHistogramEntry `json:"dominantPitches" yaml:"dominantPitches"`
	ScaleAnalysis         *ScaleMatch           `json:"scaleAnalysis,omitempty" yaml:"scaleAnalysis,omitempty"`
	MicrotonalContent     float64               `json:"microtonalContent" yaml:"microtonalContent"`         // % of frames off the 12-TET grid by more than 10 cents.
	AverageCentsDeviation float64               `json:"averageCentsDeviation" yaml:"averageCentsDeviation"` // Mean |cents|.
	TotalNotes            int                   `json:"totalNotes" yaml:"totalNotes"`                       // Accepted frames.
}

// Frames deviating by more than this many cents count as microtonal.
const microtonalCents = 10.0

// AnalyzeMicrotonal estimates the pitch of every frame without merging
// frames into notes, builds a pitch histogram and matches its dominant
// pitches against the scale templates.
func AnalyzeMicrotonal(ctx context.Context, sig audio.Signal, opts Options) (*MicrotonalResult, error) {
	s, in, err := begin(sig, opts)
	if err != nil {
		return nil, err
	}

	frames, err := dsp.NewFrameSource(in.samples, in.sampleRate, s.FFTSize, s.hop)
	if err != nil {
		return nil, err
	}
	pitch, err := newPitchEstimator(in, s.FFTSize, s.FrequencyMin, s.FrequencyMax, s.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}
	window := dsp.Coefficients(s.window, s.FFTSize)
	windowed := make([]float64, s.FFTSize)

	var (
		detected   []float64
		centsTotal float64
		offGrid    int
	)

	loop := newFrameLoop(ctx, ModeMicrotonal, s.Progress)
	if err := loop.run("pitch", frames.Count(), func(i int) {
		frame := frames.At(i)
		if dsp.RMS(frame.Samples) < s.Threshold {
			return
		}
		est, ok := pitch.Estimate(dsp.ApplyWindow(windowed, frame.Samples, window))
		if !ok || est.Frequency < s.FrequencyMin || est.Frequency > s.FrequencyMax {
			return
		}

		detected = append(detected, est.Frequency)
		cents := math.Abs(tuning.Cents(est.Frequency, s.ReferenceFrequency))
		centsTotal += cents
		if cents > microtonalCents {
			offGrid++
		}
	}); err != nil {
		return nil, err
	}

	res := &MicrotonalResult{
		PitchHistogram:  []PitchHistogramEntry{},
		DominantPitches: []PitchHistogramEntry{},
		TotalNotes:      len(detected),
	}
	if len(detected) == 0 {
		log.Debugf("Analysis: microtonal found no pitched frames in %d", frames.Count())
		return res, nil
	}

	res.PitchHistogram = BuildHistogram(detected, s.ReferenceFrequency, s.system)
	res.DominantPitches = DominantPitches(res.PitchHistogram)
	res.MicrotonalContent = float64(offGrid) / float64(len(detected)) * 100
	res.AverageCentsDeviation = centsTotal / float64(len(detected))

	dominant := make([]float64, len(res.DominantPitches))
	for i, e := range res.DominantPitches {
		dominant[i] = e.Frequency
	}
	if match, ok := DetectScale(dominant, tuning.Templates()); ok {
		res.ScaleAnalysis = match
	}

	log.Debugf("Analysis: microtonal histogram of %d pitches from %d frames", len(res.PitchHistogram), len(detected))
	return res, nil
}
