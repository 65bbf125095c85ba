// SPDX-License-Identifier: MIT
package cmd

import (
	"soundlab/internal/analysis"

	"github.com/spf13/pflag"
)

// addAnalysisFlags registers one flag per engine option. Defaults come from
// o, which already holds the configuration file values.
func addAnalysisFlags(fs *pflag.FlagSet, o *analysis.Options) {
	// Detection
	fs.Float64Var(&o.Threshold, "threshold", o.Threshold,
		"Minimum frame RMS for a note")
	fs.Float64Var(&o.MinNoteDuration, "min-note-duration", o.MinNoteDuration,
		"Shortest note kept, seconds")
	fs.Float64Var(&o.Smoothing, "smoothing", o.Smoothing,
		"Smoothing factor in [0,1); validated, no stage uses it")
	fs.BoolVar(&o.EnableNoiseGate, "noise-gate", o.EnableNoiseGate,
		"Gate frames below the noise threshold")
	fs.Float64Var(&o.NoiseGateThreshold, "noise-gate-threshold", o.NoiseGateThreshold,
		"Noise gate level; 0 calibrates from the signal")

	// Pitch
	fs.Float64Var(&o.FrequencyMin, "frequency-min", o.FrequencyMin,
		"Lowest pitch searched, Hz")
	fs.Float64Var(&o.FrequencyMax, "frequency-max", o.FrequencyMax,
		"Highest pitch searched, Hz")
	fs.Float64Var(&o.ConfidenceThreshold, "confidence-threshold", o.ConfidenceThreshold,
		"Minimum pitch confidence in [0,1]")
	fs.BoolVar(&o.EnableOctaveCorrection, "octave-correction", o.EnableOctaveCorrection,
		"Prefer the sub-octave when its energy is comparable")

	// Framing
	fs.IntVar(&o.FFTSize, "fft-size", o.FFTSize,
		"Frame size: 1024, 2048, 4096 or 8192")
	fs.IntVar(&o.HopSize, "hop-size", o.HopSize,
		"Samples between frames; 0 means fft-size/4")
	fs.StringVar(&o.WindowType, "window", o.WindowType,
		"Window: hann, hamming, blackman, rectangular")
	fs.StringVar(&o.ChannelSelection, "channel", o.ChannelSelection,
		"Channel: left, right, mix, both")

	// Filters
	fs.BoolVar(&o.EnableHighPassFilter, "high-pass", o.EnableHighPassFilter,
		"Apply the high-pass filter")
	fs.Float64Var(&o.HighPassFrequency, "high-pass-frequency", o.HighPassFrequency,
		"High-pass cutoff, Hz")
	fs.BoolVar(&o.EnableLowPassFilter, "low-pass", o.EnableLowPassFilter,
		"Apply the low-pass filter")
	fs.Float64Var(&o.LowPassFrequency, "low-pass-frequency", o.LowPassFrequency,
		"Low-pass cutoff, Hz")

	// Notes
	fs.IntVar(&o.MidiMinNote, "midi-min", o.MidiMinNote,
		"Lowest MIDI note reported")
	fs.IntVar(&o.MidiMaxNote, "midi-max", o.MidiMaxNote,
		"Highest MIDI note reported")
	fs.StringVar(&o.Quantization, "quantization", o.Quantization,
		"Onset grid: none, quarter, eighth, sixteenth, thirty-second")
	fs.BoolVar(&o.EnableVelocityScaling, "velocity-scaling", o.EnableVelocityScaling,
		"Rescale velocities into [velocity-min, velocity-max]")
	fs.IntVar(&o.VelocityMin, "velocity-min", o.VelocityMin,
		"Lowest scaled velocity")
	fs.IntVar(&o.VelocityMax, "velocity-max", o.VelocityMax,
		"Highest scaled velocity")

	// Tempo
	fs.BoolVar(&o.EnableTempoDetection, "tempo-detection", o.EnableTempoDetection,
		"Estimate tempo and time signature")
	fs.Float64Var(&o.TargetTempo, "target-tempo", o.TargetTempo,
		"Tempo used by quantization, BPM")

	// Tuning
	fs.StringVar(&o.TuningSystem, "tuning-system", o.TuningSystem,
		"Tuning: equal, just, pythagorean, meantone, quarter_tone")
	fs.Float64Var(&o.ReferenceFrequency, "reference-frequency", o.ReferenceFrequency,
		"Frequency of A4, Hz")
	fs.BoolVar(&o.EnableScaleConstrain, "scale-constrain", o.EnableScaleConstrain,
		"Drop notes outside scale-type")
	fs.StringVar(&o.ScaleType, "scale-type", o.ScaleType,
		"Scale set (see 'scales')")
	fs.IntVar(&o.ScaleRoot, "scale-root", o.ScaleRoot,
		"MIDI note of the scale root")

	// Processing
	fs.Float64Var(&o.MaxProcessingDuration, "max-duration", o.MaxProcessingDuration,
		"Analyse at most this many seconds; 0 is unlimited")
	fs.BoolVar(&o.EnableFastMode, "fast", o.EnableFastMode,
		"Double the hop and skip octave correction")
}
