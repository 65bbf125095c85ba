// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"math"
	"testing"

	"soundlab/internal/audio"
	"soundlab/internal/tuning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// centsAbove returns the frequency the given number of cents above base.
func centsAbove(base float64, cents ...float64) []float64 {
	out := make([]float64, len(cents))
	for i, c := range cents {
		out[i] = base * math.Pow(2, c/1200)
	}
	return out
}

func TestBuildHistogram(t *testing.T) {
	freqs := []float64{440.2, 439.8, 441.4, 261.6, 440.1}
	h := BuildHistogram(freqs, 440, tuning.Equal)
	require.Len(t, h, 3)

	assert.Equal(t, 262.0, h[0].Frequency)
	assert.Equal(t, 60, h[0].MidiNote)
	assert.Equal(t, "C4", h[0].NoteName)
	assert.Equal(t, 1, h[0].Count)

	assert.Equal(t, 440.0, h[1].Frequency)
	assert.Equal(t, 3, h[1].Count)
	assert.InDelta(t, 60.0, h[1].Percentage, 1e-9)
	assert.InDelta(t, 0.0, h[1].Cents, 1e-9)

	assert.Equal(t, 441.0, h[2].Frequency)

	var total float64
	for _, e := range h {
		total += e.Percentage
	}
	assert.InDelta(t, 100, total, 1e-9)
}

func TestDominantPitches(t *testing.T) {
	var h []PitchHistogramEntry
	for i := range 60 {
		h = append(h, PitchHistogramEntry{Frequency: float64(100 + i), Count: 1 + i%7})
	}

	dom := DominantPitches(h)
	require.Len(t, dom, 6, "a tenth of 60 entries")
	for i := 1; i < len(dom); i++ {
		prev, cur := dom[i-1], dom[i]
		assert.True(t, prev.Count > cur.Count || (prev.Count == cur.Count && prev.Frequency < cur.Frequency))
	}
	assert.Equal(t, 7, dom[0].Count)
	assert.Equal(t, 106.0, dom[0].Frequency)

	assert.Len(t, DominantPitches(h[:12]), 5, "never fewer than five")
	assert.Len(t, DominantPitches(h[:3]), 3, "all when fewer than five")
	assert.Equal(t, 100.0, h[0].Frequency, "input order is kept")
}

func TestIntervalPattern(t *testing.T) {
	got := IntervalPattern([]float64{880, 440, 660})
	require.Len(t, got, 3)
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, 0, got[1], 1e-9, "the octave folds onto the root")
	assert.InDelta(t, 701.955, got[2], 1e-3)
	assert.Nil(t, IntervalPattern(nil))
}

func TestDetectScale(t *testing.T) {
	tests := []struct {
		desc  string
		freqs []float64
		want  string
		score float64
	}{
		{
			desc:  "C major",
			freqs: []float64{261.63, 293.66, 329.63, 349.23, 392.00, 440.00, 493.88},
			want:  "major",
			score: 1,
		},
		{
			// 4 of 7 major degrees lose to 3 of 5 pentatonic degrees.
			desc:  "Tetrachord",
			freqs: []float64{261.63, 293.66, 329.63, 349.23},
			want:  "pentatonic_major",
			score: 0.6,
		},
		{
			desc:  "Slendro",
			freqs: centsAbove(300, 0, 240, 480, 720, 960),
			want:  "slendro",
			score: 1,
		},
		{
			desc:  "Maqam rast",
			freqs: centsAbove(220, 0, 200, 350, 500, 700, 900, 1050),
			want:  "maqam_rast",
			score: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			match, ok := DetectScale(tt.freqs, tuning.Templates())
			require.True(t, ok)
			assert.Equal(t, tt.want, match.Name)
			assert.InDelta(t, tt.score, match.Score, 1e-9)
			assert.Len(t, match.Intervals, len(tt.freqs))
		})
	}
}

func TestDetectScaleNoMatch(t *testing.T) {
	tests := []struct {
		desc  string
		freqs []float64
	}{
		{"Empty", nil},
		{"Single pitch", []float64{440}},
		{"Quarter-tone pair", centsAbove(440, 0, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			match, ok := DetectScale(tt.freqs, tuning.Templates())
			assert.False(t, ok)
			assert.Nil(t, match)
		})
	}
}

func TestDetectScaleDoesNotWrapAtOctave(t *testing.T) {
	freqs := centsAbove(440, 0, 1185)
	require.Equal(t, 1185.0, math.Round(IntervalPattern(freqs)[1]))

	root := []tuning.Template{{Name: "root", Cents: []float64{0}}}
	match, ok := DetectScale(freqs, root)
	assert.False(t, ok, "1185 cents is not within tolerance of 0")
	assert.Nil(t, match)

	withOctave := []tuning.Template{{Name: "root+octave", Cents: []float64{0, 1200}}}
	match, ok = DetectScale(freqs, withOctave)
	require.True(t, ok)
	assert.Equal(t, 2, match.Matches)
}

func TestMicrotonalTunedTone(t *testing.T) {
	res, err := AnalyzeMicrotonal(context.Background(), sine(2, 440, 0.5), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.PitchHistogram, 1)
	assert.Equal(t, 441.0, res.PitchHistogram[0].Frequency)
	assert.Equal(t, 69, res.PitchHistogram[0].MidiNote)
	assert.InDelta(t, 100, res.PitchHistogram[0].Percentage, 1e-9)
	require.Len(t, res.DominantPitches, 1)

	assert.Greater(t, res.TotalNotes, 100)
	assert.Zero(t, res.MicrotonalContent)
	assert.InDelta(t, 3.93, res.AverageCentsDeviation, 0.01)
	assert.Nil(t, res.ScaleAnalysis)
}

func TestMicrotonalDetunedTone(t *testing.T) {
	res, err := AnalyzeMicrotonal(context.Background(), sine(2, 452.9, 0.5), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.MicrotonalContent)
	assert.Greater(t, res.AverageCentsDeviation, microtonalCents)
}

func TestMicrotonalSilence(t *testing.T) {
	sig := audio.NewSignal(testSampleRate, make([]float64, testSampleRate))
	res, err := AnalyzeMicrotonal(context.Background(), sig, DefaultOptions())
	require.NoError(t, err)

	assert.Zero(t, res.TotalNotes)
	assert.NotNil(t, res.PitchHistogram)
	assert.Empty(t, res.PitchHistogram)
	assert.Empty(t, res.DominantPitches)
	assert.Nil(t, res.ScaleAnalysis)
}

func TestMicrotonalProgress(t *testing.T) {
	var stages []string
	opts := DefaultOptions()
	opts.Progress = func(p Progress) {
		assert.Equal(t, ModeMicrotonal, p.Mode)
		if p.Fraction == 0 {
			stages = append(stages, p.Stage)
		}
	}
	_, err := AnalyzeMicrotonal(context.Background(), sine(1, 440, 0.5), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"pitch"}, stages)
}
