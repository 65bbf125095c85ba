// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"

	"soundlab/internal/tuning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hop = 0.01

func testSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		Threshold:       0.05,
		MinNoteDuration: 0.1,
		FrequencyMin:    50,
		FrequencyMax:    2000,
		MidiMin:         tuning.MinMidi,
		MidiMax:         tuning.MaxMidi,
		Reference:       440,
		System:          tuning.Equal,
	}
}

// feed steps the segmenter through frames of the same frequency and
// amplitude starting at start, one every hop seconds. It returns the time
// after the last frame.
func feed(s *NoteSegmenter, start float64, frames int, freq, amp float64) float64 {
	t := start
	for range frames {
		s.Step(FrameObservation{
			Time:       t,
			Amplitude:  amp,
			Voiced:     freq > 0,
			Frequency:  freq,
			Confidence: 0.9,
		})
		t += hop
	}
	return t
}

func TestSegmenterSingleNote(t *testing.T) {
	s := NewNoteSegmenter(testSegmenterConfig())
	assert.Equal(t, StateIdle, s.State())

	feed(s, 0, 21, 440, 0.3)
	assert.Equal(t, StateActive, s.State())

	notes := s.Flush()
	require.Len(t, notes, 1)
	assert.Equal(t, StateIdle, s.State())

	n := notes[0]
	assert.Equal(t, 69, n.Midi)
	assert.Equal(t, "A4", n.PitchName)
	assert.Equal(t, 440.0, n.Frequency)
	assert.InDelta(t, 0.0, n.StartTime, 1e-12)
	assert.InDelta(t, 0.2, n.Duration, 1e-9)
	assert.Equal(t, 76, n.Velocity) // floor(0.3·254)
	assert.InDelta(t, 0.9, n.Confidence, 1e-12)
	assert.InDelta(t, 0.9, s.Confidence(), 1e-12)
}

func TestSegmenterDropsShortNotes(t *testing.T) {
	s := NewNoteSegmenter(testSegmenterConfig())
	next := feed(s, 0, 5, 440, 0.3) // 0.04 s
	next = feed(s, next, 3, 0, 0)
	feed(s, next, 20, 523.25, 0.3)

	notes := s.Flush()
	require.Len(t, notes, 1)
	assert.Equal(t, 72, notes[0].Midi)
}

func TestSegmenterPitchChangeSplitsNotes(t *testing.T) {
	s := NewNoteSegmenter(testSegmenterConfig())
	next := feed(s, 0, 20, 440, 0.3)
	feed(s, next, 20, 880, 0.3)

	notes := s.Flush()
	require.Len(t, notes, 2)
	assert.Equal(t, 69, notes[0].Midi)
	assert.Equal(t, 81, notes[1].Midi)
	assert.InDelta(t, 0.2, notes[1].StartTime, 1e-9)
	assert.InDelta(t, 0.19, notes[0].Duration, 1e-9)
}

func TestSegmenterVelocityKeepsMaximum(t *testing.T) {
	s := NewNoteSegmenter(testSegmenterConfig())
	next := feed(s, 0, 10, 440, 0.1)
	next = feed(s, next, 5, 440, 0.4)
	feed(s, next, 10, 440, 0.2)

	notes := s.Flush()
	require.Len(t, notes, 1)
	assert.Equal(t, 101, notes[0].Velocity) // floor(0.4·254)
}

func TestSegmenterVelocityClamp(t *testing.T) {
	tests := []struct {
		desc    string
		scaling bool
		amp     float64
		want    int
	}{
		{"Loud clamps to 127", false, 0.9, 127},
		{"Quiet unscaled", false, 0.05, 12},
		{"Scaled floor", true, 0.05, 40},
		{"Scaled ceiling", true, 0.9, 100},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := testSegmenterConfig()
			cfg.VelocityScaling = tt.scaling
			cfg.VelocityMin = 40
			cfg.VelocityMax = 100

			s := NewNoteSegmenter(cfg)
			feed(s, 0, 20, 440, tt.amp)
			notes := s.Flush()
			require.Len(t, notes, 1)
			assert.Equal(t, tt.want, notes[0].Velocity)
		})
	}
}

func TestSegmenterRejections(t *testing.T) {
	tests := []struct {
		desc   string
		mutate func(*SegmenterConfig)
		freq   float64
		amp    float64
	}{
		{"Below threshold", nil, 440, 0.01},
		{"Unvoiced", nil, 0, 0.3},
		{"Above frequency band", nil, 2500, 0.3},
		{"Below frequency band", nil, 45, 0.3},
		{"Outside MIDI band", func(c *SegmenterConfig) { c.MidiMax = 60 }, 440, 0.3},
		{"Out of scale", func(c *SegmenterConfig) {
			major, _ := tuning.LookupScale("major")
			c.Scale = &major
			c.ScaleRoot = 60
		}, 466.16, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := testSegmenterConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			s := NewNoteSegmenter(cfg)
			feed(s, 0, 30, tt.freq, tt.amp)

			assert.Empty(t, s.Flush())
			assert.Zero(t, s.Accepted())
			assert.Equal(t, defaultConfidence, s.Confidence())
		})
	}
}

func TestSegmenterGateClosesNote(t *testing.T) {
	s := NewNoteSegmenter(testSegmenterConfig())
	next := feed(s, 0, 20, 440, 0.3)
	s.Step(FrameObservation{Time: next, Amplitude: 0.3, Gated: true})
	assert.Equal(t, StateIdle, s.State())

	feed(s, next+hop, 20, 440, 0.3)
	notes := s.Flush()
	assert.Len(t, notes, 2, "a gated frame splits repeated notes")
}

func TestSegmenterQuantizesOnsets(t *testing.T) {
	cfg := testSegmenterConfig()
	cfg.Quantizer = Quantizer{Grid: GridSixteenth, Tempo: 120} // 0.125 s grid

	s := NewNoteSegmenter(cfg)
	next := feed(s, 0.03, 30, 440, 0.3)
	feed(s, next, 30, 880, 0.3)

	notes := s.Flush()
	require.Len(t, notes, 2)
	assert.InDelta(t, 0.0, notes[0].StartTime, 1e-9)
	assert.InDelta(t, 0.375, notes[1].StartTime, 1e-9)
}

func TestSegmenterFlushIsIdempotent(t *testing.T) {
	s := NewNoteSegmenter(testSegmenterConfig())
	feed(s, 0, 20, 440, 0.3)
	first := s.Flush()
	second := s.Flush()
	assert.Equal(t, first, second)
}

func TestQuantizerIdempotent(t *testing.T) {
	grids := []Grid{GridNone, GridQuarter, GridEighth, GridSixteenth, GridThirtySecond}
	tempos := []float64{60, 97, 120, 173.5}

	for _, g := range grids {
		for _, tempo := range tempos {
			q := Quantizer{Grid: g, Tempo: tempo}
			for t0 := 0.0; t0 < 10; t0 += 0.0137 {
				once := q.Quantize(t0)
				require.Equal(t, once, q.Quantize(once), "grid %s tempo %g t %g", g, tempo, t0)
			}
		}
	}
}

func TestParseGrid(t *testing.T) {
	tests := map[string]Grid{
		"none":          GridNone,
		"":              GridNone,
		"Quarter":       GridQuarter,
		"eighth":        GridEighth,
		"sixteenth":     GridSixteenth,
		"thirty-second": GridThirtySecond,
		"thirty_second": GridThirtySecond,
	}
	for name, want := range tests {
		got, err := ParseGrid(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseGrid("triplet")
	assert.Error(t, err)
	assert.Equal(t, 0.125, Quantizer{Grid: GridSixteenth, Tempo: 120}.Step())
}
