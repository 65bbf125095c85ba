// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"soundlab/internal/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		desc   string
		mutate func(*Options)
		field  string
		code   string
	}{
		{"Zero frequencyMin", func(o *Options) { o.FrequencyMin = 0 }, "frequencyMin", CodeInvalidRange},
		{"Inverted frequency range", func(o *Options) { o.FrequencyMin, o.FrequencyMax = 1000, 500 }, "frequencyMin", CodeInvalidRange},
		{"Unsupported fftSize", func(o *Options) { o.FFTSize = 1000 }, "fftSize", CodeUnsupportedValue},
		{"Negative hopSize", func(o *Options) { o.HopSize = -1 }, "hopSize", CodeInvalidRange},
		{"hopSize above fftSize", func(o *Options) { o.HopSize = 4096 }, "hopSize", CodeInvalidRange},
		{"Unknown window", func(o *Options) { o.WindowType = "kaiser" }, "windowType", CodeUnsupportedValue},
		{"Unknown channel", func(o *Options) { o.ChannelSelection = "center" }, "channelSelection", CodeUnsupportedValue},
		{"Unknown tuning", func(o *Options) { o.TuningSystem = "werckmeister" }, "tuningSystem", CodeUnsupportedValue},
		{"Unknown quantization", func(o *Options) { o.Quantization = "triplet" }, "quantization", CodeUnsupportedValue},
		{"Unknown scale", func(o *Options) { o.ScaleType = "bebop" }, "scaleType", CodeUnsupportedValue},
		{"Confidence above one", func(o *Options) { o.ConfidenceThreshold = 1.5 }, "confidenceThreshold", CodeInvalidRange},
		{"Smoothing of one", func(o *Options) { o.Smoothing = 1 }, "smoothing", CodeInvalidRange},
		{"Negative threshold", func(o *Options) { o.Threshold = -0.1 }, "threshold", CodeInvalidValue},
		{"Negative minNoteDuration", func(o *Options) { o.MinNoteDuration = -1 }, "minNoteDuration", CodeInvalidValue},
		{"Gate above one", func(o *Options) { o.NoiseGateThreshold = 2 }, "noiseGateThreshold", CodeInvalidRange},
		{"midiMinNote out of range", func(o *Options) { o.MidiMinNote = -1 }, "midiMinNote", CodeInvalidRange},
		{"midiMaxNote out of range", func(o *Options) { o.MidiMaxNote = 128 }, "midiMaxNote", CodeInvalidRange},
		{"Inverted MIDI range", func(o *Options) { o.MidiMinNote, o.MidiMaxNote = 80, 60 }, "midiMinNote", CodeInvalidRange},
		{"Inverted velocity range", func(o *Options) { o.VelocityMin, o.VelocityMax = 100, 10 }, "velocityMin", CodeInvalidRange},
		{"scaleRoot out of range", func(o *Options) { o.ScaleRoot = 200 }, "scaleRoot", CodeInvalidRange},
		{"Zero reference", func(o *Options) { o.ReferenceFrequency = 0 }, "referenceFrequency", CodeInvalidValue},
		{"Zero tempo", func(o *Options) { o.TargetTempo = 0 }, "targetTempo", CodeInvalidValue},
		{"Enabled high-pass without cutoff", func(o *Options) {
			o.EnableHighPassFilter = true
			o.HighPassFrequency = 0
		}, "highPassFrequency", CodeInvalidValue},
		{"Enabled low-pass without cutoff", func(o *Options) {
			o.EnableLowPassFilter = true
			o.LowPassFrequency = -5
		}, "lowPassFrequency", CodeInvalidValue},
		{"Negative processing limit", func(o *Options) { o.MaxProcessingDuration = -1 }, "maxProcessingDuration", CodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)

			var e *Error
			require.True(t, errors.As(err, &e), "err = %T", err)
			assert.Equal(t, ConfigurationError, e.Kind)
			assert.Equal(t, tt.field, e.Field)
			assert.Equal(t, tt.code, e.Code)
			assert.True(t, IsConfigurationError(err))
			assert.False(t, IsInputError(err))
		})
	}
}

func TestOptionsAcceptNamedAliases(t *testing.T) {
	opts := DefaultOptions()
	opts.WindowType = "Hamming"
	opts.ChannelSelection = "BOTH"
	opts.TuningSystem = "quarter_tone"
	opts.Quantization = "thirty_second"
	opts.ScaleType = "harmonic-minor"
	opts.HopSize = 0
	assert.NoError(t, opts.Validate())

	// Filter cutoffs are only checked when the filter is on.
	opts.HighPassFrequency = 0
	opts.LowPassFrequency = 0
	assert.NoError(t, opts.Validate())
}

func TestResolveHop(t *testing.T) {
	tests := []struct {
		hop, fft int
		fast     bool
		want     int
	}{
		{0, 2048, false, 512},
		{0, 4096, false, 1024},
		{256, 2048, false, 256},
		{512, 2048, true, 1024},
		{0, 1024, true, 512},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("hop=%d/fft=%d/fast=%v", tt.hop, tt.fft, tt.fast), func(t *testing.T) {
			opts := DefaultOptions()
			opts.HopSize, opts.FFTSize, opts.EnableFastMode = tt.hop, tt.fft, tt.fast
			s, err := opts.resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.hop)
		})
	}
}

func TestOptionsCheckedBeforeSignal(t *testing.T) {
	opts := DefaultOptions()
	opts.FFTSize = 3000

	for _, mode := range Modes() {
		t.Run(string(mode), func(t *testing.T) {
			a, err := Lookup(string(mode))
			require.NoError(t, err)

			res, err := a.Analyze(context.Background(), audio.NewSignal(0), opts)
			assert.Nil(t, res)
			assert.True(t, IsConfigurationError(err), "err = %v", err)
			assert.Equal(t, CodeUnsupportedValue, ErrorCode(err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("lag range empty")
	e := configError(CodeInvalidRange, "frequencyMin", "pitch band cannot be searched")
	e.Cause = cause

	assert.Equal(t, "configuration error [INVALID_RANGE] frequencyMin: pitch band cannot be searched: lag range empty", e.Error())
	assert.ErrorIs(t, e, cause)

	in := inputError(CodeEmptySignal, "signal has no samples")
	assert.Equal(t, "input error [EMPTY_SIGNAL]: signal has no samples", in.Error())

	wrapped := fmt.Errorf("decode: %w", in)
	assert.True(t, IsInputError(wrapped))
	assert.Equal(t, CodeEmptySignal, ErrorCode(wrapped))
	assert.Empty(t, ErrorCode(errors.New("plain")))
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []Mode{ModeLinguistics, ModeMicrotonal, ModeSoundscape, ModeTranscription}, Modes())

	for _, name := range []string{"transcription", "Transcription", " SOUNDSCAPE "} {
		a, err := Lookup(name)
		require.NoError(t, err, name)
		assert.NotNil(t, a)
	}

	a, err := Lookup("microtonal")
	require.NoError(t, err)
	assert.Equal(t, ModeMicrotonal, a.Mode())

	_, err = Lookup("karaoke")
	assert.Error(t, err)
}

func TestAnalyzerReturnsTypedResult(t *testing.T) {
	a, err := Lookup("transcription")
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), sine(1, 440, 0.5), DefaultOptions())
	require.NoError(t, err)
	_, ok := res.(*TranscriptionResult)
	assert.True(t, ok, "result type %T", res)
}
