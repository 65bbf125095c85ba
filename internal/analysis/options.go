// SPDX-License-Identifier: MIT
package analysis

import (
	"soundlab/internal/audio"
	"soundlab/internal/dsp"
	"soundlab/internal/tuning"
)

// Options configures every analysis mode. Keys not used by a mode are
// ignored by it but still validated.
type Options struct {
	// Detection
	Threshold          float64 `yaml:"threshold" json:"threshold"`
	MinNoteDuration    float64 `yaml:"minNoteDuration" json:"minNoteDuration"`
	Smoothing          float64 `yaml:"smoothing" json:"smoothing"`
	EnableNoiseGate    bool    `yaml:"enableNoiseGate" json:"enableNoiseGate"`
	NoiseGateThreshold float64 `yaml:"noiseGateThreshold" json:"noiseGateThreshold"` // 0 calibrates from the signal.

	// Frequency
	FrequencyMin           float64 `yaml:"frequencyMin" json:"frequencyMin"`
	FrequencyMax           float64 `yaml:"frequencyMax" json:"frequencyMax"`
	ConfidenceThreshold    float64 `yaml:"confidenceThreshold" json:"confidenceThreshold"`
	EnableOctaveCorrection bool    `yaml:"enableOctaveCorrection" json:"enableOctaveCorrection"`

	// Transform
	FFTSize          int    `yaml:"fftSize" json:"fftSize"`
	HopSize          int    `yaml:"hopSize" json:"hopSize"` // 0 means FFTSize/4.
	WindowType       string `yaml:"windowType" json:"windowType"`
	ChannelSelection string `yaml:"channelSelection" json:"channelSelection"`

	// Filtering
	EnableHighPassFilter bool    `yaml:"enableHighPassFilter" json:"enableHighPassFilter"`
	HighPassFrequency    float64 `yaml:"highPassFrequency" json:"highPassFrequency"`
	EnableLowPassFilter  bool    `yaml:"enableLowPassFilter" json:"enableLowPassFilter"`
	LowPassFrequency     float64 `yaml:"lowPassFrequency" json:"lowPassFrequency"`

	// MIDI
	MidiMinNote           int    `yaml:"midiMinNote" json:"midiMinNote"`
	MidiMaxNote           int    `yaml:"midiMaxNote" json:"midiMaxNote"`
	Quantization          string `yaml:"quantization" json:"quantization"`
	EnableVelocityScaling bool   `yaml:"enableVelocityScaling" json:"enableVelocityScaling"`
	VelocityMin           int    `yaml:"velocityMin" json:"velocityMin"`
	VelocityMax           int    `yaml:"velocityMax" json:"velocityMax"`

	// Tempo
	EnableTempoDetection bool    `yaml:"enableTempoDetection" json:"enableTempoDetection"`
	TargetTempo          float64 `yaml:"targetTempo" json:"targetTempo"`

	// Tuning
	TuningSystem         string  `yaml:"tuningSystem" json:"tuningSystem"`
	ReferenceFrequency   float64 `yaml:"referenceFrequency" json:"referenceFrequency"`
	EnableScaleConstrain bool    `yaml:"enableScaleConstrain" json:"enableScaleConstrain"`
	ScaleType            string  `yaml:"scaleType" json:"scaleType"`
	ScaleRoot            int     `yaml:"scaleRoot" json:"scaleRoot"`

	// Performance
	MaxProcessingDuration float64 `yaml:"maxProcessingDuration" json:"maxProcessingDuration"` // Seconds, 0 = unlimited.
	EnableFastMode        bool    `yaml:"enableFastMode" json:"enableFastMode"`

	// Progress, when set, receives coarse milestones from the frame loops.
	Progress ProgressFunc `yaml:"-" json:"-"`
}

// Default option values.
const (
	DefaultThreshold             = 0.05
	DefaultMinNoteDuration       = 0.1
	DefaultSmoothing             = 0.8
	DefaultNoiseGateThreshold    = 0.01
	DefaultFrequencyMin          = 50.0
	DefaultFrequencyMax          = 2000.0
	DefaultConfidenceThreshold   = 0.7
	DefaultFFTSize               = 2048
	DefaultHopSize               = 512
	DefaultWindowType            = "hann"
	DefaultChannelSelection      = "mix"
	DefaultHighPassFrequency     = 80.0
	DefaultLowPassFrequency      = 8000.0
	DefaultQuantization          = "none"
	DefaultVelocityMin           = 1
	DefaultVelocityMax           = 127
	DefaultTargetTempo           = 120.0
	DefaultTuningSystem          = "equal"
	DefaultScaleType             = "chromatic"
	DefaultScaleRoot             = 60
	DefaultMaxProcessingDuration = 600.0
)

// SupportedFFTSizes lists the accepted fftSize values.
var SupportedFFTSizes = []int{1024, 2048, 4096, 8192}

// DefaultOptions returns the documented defaults. Every enable* flag is off.
func DefaultOptions() Options {
	return Options{
		Threshold:             DefaultThreshold,
		MinNoteDuration:       DefaultMinNoteDuration,
		Smoothing:             DefaultSmoothing,
		NoiseGateThreshold:    DefaultNoiseGateThreshold,
		FrequencyMin:          DefaultFrequencyMin,
		FrequencyMax:          DefaultFrequencyMax,
		ConfidenceThreshold:   DefaultConfidenceThreshold,
		FFTSize:               DefaultFFTSize,
		HopSize:               DefaultHopSize,
		WindowType:            DefaultWindowType,
		ChannelSelection:      DefaultChannelSelection,
		HighPassFrequency:     DefaultHighPassFrequency,
		LowPassFrequency:      DefaultLowPassFrequency,
		MidiMinNote:           tuning.MinMidi,
		MidiMaxNote:           tuning.MaxMidi,
		Quantization:          DefaultQuantization,
		VelocityMin:           DefaultVelocityMin,
		VelocityMax:           DefaultVelocityMax,
		TargetTempo:           DefaultTargetTempo,
		TuningSystem:          DefaultTuningSystem,
		ReferenceFrequency:    tuning.DefaultReferenceFrequency,
		ScaleType:             DefaultScaleType,
		ScaleRoot:             DefaultScaleRoot,
		MaxProcessingDuration: DefaultMaxProcessingDuration,
	}
}

// Validate checks every option and returns the first *Error found.
func (o Options) Validate() error {
	_, err := o.resolve()
	return err
}

// settings is Options with every name parsed and derived values filled in.
type settings struct {
	Options
	window  dsp.WindowFunc
	channel audio.ChannelSelection
	system  tuning.System
	grid    Grid
	scale   tuning.Scale
	hop     int // Effective hop, doubled in fast mode.
}

func (o Options) resolve() (settings, error) {
	s := settings{Options: o}

	// --- 1. Ranges ---
	if o.FrequencyMin <= 0 {
		return s, configError(CodeInvalidRange, "frequencyMin", "must be positive, got %g", o.FrequencyMin)
	}
	if o.FrequencyMin >= o.FrequencyMax {
		return s, configError(CodeInvalidRange, "frequencyMin", "must be below frequencyMax (%g >= %g)", o.FrequencyMin, o.FrequencyMax)
	}

	// --- 2. Transform ---
	supported := false
	for _, n := range SupportedFFTSizes {
		if o.FFTSize == n {
			supported = true
			break
		}
	}
	if !supported {
		return s, configError(CodeUnsupportedValue, "fftSize", "must be one of %v, got %d", SupportedFFTSizes, o.FFTSize)
	}

	s.hop = o.HopSize
	if s.hop == 0 {
		s.hop = o.FFTSize / 4
	}
	if s.hop < 0 || s.hop > o.FFTSize {
		return s, configError(CodeInvalidRange, "hopSize", "must be in (0, fftSize], got %d", o.HopSize)
	}
	if o.EnableFastMode {
		s.hop *= 2
	}

	var err error
	if s.window, err = dsp.ParseWindowFunc(o.WindowType); err != nil {
		return s, configError(CodeUnsupportedValue, "windowType", "%v", err)
	}
	if s.channel, err = audio.ParseChannelSelection(o.ChannelSelection); err != nil {
		return s, configError(CodeUnsupportedValue, "channelSelection", "%v", err)
	}
	if s.system, err = tuning.ParseSystem(o.TuningSystem); err != nil {
		return s, configError(CodeUnsupportedValue, "tuningSystem", "%v", err)
	}
	if s.grid, err = ParseGrid(o.Quantization); err != nil {
		return s, configError(CodeUnsupportedValue, "quantization", "%v", err)
	}
	if s.scale, err = tuning.LookupScale(o.ScaleType); err != nil {
		return s, configError(CodeUnsupportedValue, "scaleType", "%v", err)
	}

	// --- 3. Scalar values ---
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return s, configError(CodeInvalidRange, "confidenceThreshold", "must be in [0, 1], got %g", o.ConfidenceThreshold)
	}
	if o.Smoothing < 0 || o.Smoothing >= 1 {
		return s, configError(CodeInvalidRange, "smoothing", "must be in [0, 1), got %g", o.Smoothing)
	}
	if o.Threshold < 0 {
		return s, configError(CodeInvalidValue, "threshold", "must not be negative, got %g", o.Threshold)
	}
	if o.MinNoteDuration < 0 {
		return s, configError(CodeInvalidValue, "minNoteDuration", "must not be negative, got %g", o.MinNoteDuration)
	}
	if o.NoiseGateThreshold < 0 || o.NoiseGateThreshold > 1 {
		return s, configError(CodeInvalidRange, "noiseGateThreshold", "must be in [0, 1], got %g", o.NoiseGateThreshold)
	}

	// --- 4. MIDI and velocity ---
	if err := midiRange("midiMinNote", o.MidiMinNote, "midiMaxNote", o.MidiMaxNote); err != nil {
		return s, err
	}
	if err := midiRange("velocityMin", o.VelocityMin, "velocityMax", o.VelocityMax); err != nil {
		return s, err
	}
	if o.ScaleRoot < 0 || o.ScaleRoot > 127 {
		return s, configError(CodeInvalidRange, "scaleRoot", "must be in [0, 127], got %d", o.ScaleRoot)
	}

	// --- 5. Tuning, tempo, filters ---
	if o.ReferenceFrequency <= 0 {
		return s, configError(CodeInvalidValue, "referenceFrequency", "must be positive, got %g", o.ReferenceFrequency)
	}
	if o.TargetTempo <= 0 {
		return s, configError(CodeInvalidValue, "targetTempo", "must be positive, got %g", o.TargetTempo)
	}
	if o.EnableHighPassFilter && o.HighPassFrequency <= 0 {
		return s, configError(CodeInvalidValue, "highPassFrequency", "must be positive, got %g", o.HighPassFrequency)
	}
	if o.EnableLowPassFilter && o.LowPassFrequency <= 0 {
		return s, configError(CodeInvalidValue, "lowPassFrequency", "must be positive, got %g", o.LowPassFrequency)
	}
	if o.MaxProcessingDuration < 0 {
		return s, configError(CodeInvalidValue, "maxProcessingDuration", "must not be negative, got %g", o.MaxProcessingDuration)
	}

	return s, nil
}

func midiRange(loName string, lo int, hiName string, hi int) error {
	if lo < 0 || lo > 127 {
		return configError(CodeInvalidRange, loName, "must be in [0, 127], got %d", lo)
	}
	if hi < 0 || hi > 127 {
		return configError(CodeInvalidRange, hiName, "must be in [0, 127], got %d", hi)
	}
	if lo > hi {
		return configError(CodeInvalidRange, loName, "must not exceed %s (%d > %d)", hiName, lo, hi)
	}
	return nil
}
