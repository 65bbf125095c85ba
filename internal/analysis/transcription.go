// SPDX-License-Identifier: MIT
package analysis

import (
	"context"

	"soundlab/internal/audio"
	"soundlab/internal/dsp"
	"soundlab/internal/log"
)

// TranscriptionResult is the output of AnalyzeTranscription.
type TranscriptionResult struct {
	Notes      []NoteEvent `json:"notes" yaml:"notes"`
	Duration   float64     `json:"duration" yaml:"duration"` // Seconds analysed.
	SampleRate int         `json:"sampleRate" yaml:"sampleRate"`
	Confidence float64     `json:"confidence" yaml:"confidence"`

	DetectedTempo         *float64 `json:"detectedTempo,omitempty" yaml:"detectedTempo,omitempty"`
	DetectedTimeSignature string   `json:"detectedTimeSignature,omitempty" yaml:"detectedTimeSignature,omitempty"`
}

// AnalyzeTranscription converts a signal into note events.
//
// Each frame is windowed for pitch estimation while its amplitude is the
// RMS of the raw frame. The NoteSegmenter decides onsets and offsets.
func AnalyzeTranscription(ctx context.Context, sig audio.Signal, opts Options) (*TranscriptionResult, error) {
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
	pitch, err := newPitchEstimator(in, s.FFTSize, s.FrequencyMin, s.FrequencyMax, s.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	log.Debugf("Analysis: transcription of %d frames (fft %d, hop %d, window %s)",
		frames.Count(), s.FFTSize, s.hop, s.window)

	loop := newFrameLoop(ctx, ModeTranscription, s.Progress)

	// --- 1. Frame amplitudes (and gate calibration) ---
	amplitudes := make([]float64, frames.Count())
	if err := loop.run("amplitude", frames.Count(), func(i int) {
		amplitudes[i] = dsp.RMS(frames.At(i).Samples)
	}); err != nil {
		return nil, err
	}

	var gate *audio.Gate
	if s.EnableNoiseGate {
		threshold := s.NoiseGateThreshold
		if threshold == 0 {
			threshold = audio.CalibrateThreshold(amplitudes)
			log.Debugf("Analysis: calibrated noise gate threshold %.4f", threshold)
		}
		gate = audio.NewGate(threshold)
	}

	// --- 2. Pitch and segmentation ---
	segmenter := NewNoteSegmenter(segmenterConfig(s))
	octave := s.EnableOctaveCorrection && !s.EnableFastMode

	windowed := make([]float64, s.FFTSize)
	var mags []float64

	err = loop.run("pitch", frames.Count(), func(i int) {
		frame := frames.At(i)
		obs := FrameObservation{Time: frame.Time, Amplitude: amplitudes[i]}

		if gate != nil && !gate.Process(obs.Amplitude) {
			obs.Gated = true
			segmenter.Step(obs)
			return
		}

		est, ok := pitch.Estimate(dsp.ApplyWindow(windowed, frame.Samples, spectral.Window()))
		obs.Voiced = ok
		obs.Frequency = est.Frequency
		obs.Confidence = est.Confidence()

		if ok && octave {
			mags = spectral.Magnitudes(mags, frame.Samples)
			obs.Frequency = correctOctave(obs.Frequency, mags, spectral, s.FrequencyMin)
		}
		segmenter.Step(obs)
	})
	if err != nil {
		return nil, err
	}

	notes := segmenter.Flush()
	if notes == nil {
		notes = []NoteEvent{}
	}

	res := &TranscriptionResult{
		Notes:      notes,
		Duration:   in.duration,
		SampleRate: in.sampleRate,
		Confidence: segmenter.Confidence(),
	}

	// --- 3. Tempo ---
	if s.EnableTempoDetection {
		onsets := make([]float64, len(notes))
		for i, n := range notes {
			onsets[i] = n.StartTime
		}
		if bpm, ok := DetectTempo(onsets); ok {
			res.DetectedTempo = &bpm
			res.DetectedTimeSignature = TimeSignature(notes, bpm)
		}
	}

	if gate != nil {
		log.Debugf("Analysis: noise gate closed %d of %d frames", gate.Closed(), frames.Count())
	}
	log.Debugf("Analysis: transcription found %d notes from %d accepted frames (confidence %.3f)",
		len(notes), segmenter.Accepted(), res.Confidence)
	return res, nil
}

func segmenterConfig(s settings) SegmenterConfig {
	cfg := SegmenterConfig{
		Threshold:       s.Threshold,
		MinNoteDuration: s.MinNoteDuration,
		FrequencyMin:    s.FrequencyMin,
		FrequencyMax:    s.FrequencyMax,
		MidiMin:         s.MidiMinNote,
		MidiMax:         s.MidiMaxNote,
		Reference:       s.ReferenceFrequency,
		System:          s.system,
		ScaleRoot:       s.ScaleRoot,
		Quantizer:       Quantizer{Grid: s.grid, Tempo: s.TargetTempo},
		VelocityScaling: s.EnableVelocityScaling,
		VelocityMin:     s.VelocityMin,
		VelocityMax:     s.VelocityMax,
	}
	if s.EnableScaleConstrain {
		scale := s.scale
		cfg.Scale = &scale
	}
	return cfg
}

// correctOctave halves f when the spectrum at f/2 is at least as strong as
// at f and f/2 is still inside the search band.
func correctOctave(f float64, mags []float64, spectral *dsp.SpectralAnalyzer, minFreq float64) float64 {
	half := f / 2
	if half < minFreq {
		return f
	}
	if mags[spectral.BinForFrequency(half)] >= mags[spectral.BinForFrequency(f)] {
		return half
	}
	return f
}
