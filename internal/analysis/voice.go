// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"soundlab/internal/dsp"

	"gonum.org/v1/gonum/stat"
)

// Segment is a span of detected speech, in seconds.
type Segment struct {
	Start    float64 `json:"start" yaml:"start"`
	End      float64 `json:"end" yaml:"end"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// VoiceActivity is the voice activity detector output.
type VoiceActivity struct {
	Segments        []Segment `json:"segments" yaml:"segments"`
	SpeechDuration  float64   `json:"speechDuration" yaml:"speechDuration"`
	SilenceDuration float64   `json:"silenceDuration" yaml:"silenceDuration"`
	SpeechRatio     float64   `json:"speechRatio" yaml:"speechRatio"`
	ActiveFrames    int       `json:"activeFrames" yaml:"activeFrames"`
	TotalFrames     int       `json:"totalFrames" yaml:"totalFrames"`
}

// Rhythm describes syllable timing and pausing.
type Rhythm struct {
	SyllableCount      int       `json:"syllableCount" yaml:"syllableCount"`
	SyllableTimes      []float64 `json:"syllableTimes" yaml:"syllableTimes"`
	SpeechRate         float64   `json:"speechRate" yaml:"speechRate"`             // Syllables per second of signal.
	ArticulationRate   float64   `json:"articulationRate" yaml:"articulationRate"` // Syllables per second of speech.
	PauseCount         int       `json:"pauseCount" yaml:"pauseCount"`
	MeanPauseDuration  float64   `json:"meanPauseDuration" yaml:"meanPauseDuration"`
	TotalPauseDuration float64   `json:"totalPauseDuration" yaml:"totalPauseDuration"`
	NPVI               float64   `json:"npvi" yaml:"npvi"`
	IntervalCV         float64   `json:"intervalCV" yaml:"intervalCV"`
}

const (
	vadThresholdRatio = 0.5 // Of Options.Threshold.
	vadMergeGap       = 0.2 // Seconds.
	nucleusMinGap     = 0.1 // Seconds.
	nucleusLevelRatio = 0.5 // Of the active mean envelope.
	envelopeWidth     = 3   // Frames.
)

// DetectVoiceActivity marks frames whose RMS reaches half the threshold as
// active, joins active runs separated by less than 200 ms and drops
// segments shorter than minDuration. times holds frame start times and
// frameSeconds the span each frame stands for.
func DetectVoiceActivity(levels, times []float64, frameSeconds, threshold, minDuration, totalDuration float64) VoiceActivity {
	va := VoiceActivity{Segments: []Segment{}, TotalFrames: len(levels)}

	limit := threshold * vadThresholdRatio
	var raw []Segment
	open := false
	for i, level := range levels {
		active := level >= limit && level > 0
		if active {
			va.ActiveFrames++
		}
		switch {
		case active && !open:
			raw = append(raw, Segment{Start: times[i], End: times[i] + frameSeconds})
			open = true
		case active:
			raw[len(raw)-1].End = times[i] + frameSeconds
		default:
			open = false
		}
	}

	// --- Merge short gaps, then drop short segments ---
	var merged []Segment
	for _, seg := range raw {
		if n := len(merged); n > 0 && seg.Start-merged[n-1].End < vadMergeGap {
			merged[n-1].End = seg.End
			continue
		}
		merged = append(merged, seg)
	}
	for _, seg := range merged {
		seg.Duration = seg.End - seg.Start
		if seg.Duration < minDuration {
			continue
		}
		va.Segments = append(va.Segments, seg)
		va.SpeechDuration += seg.Duration
	}

	va.SilenceDuration = math.Max(0, totalDuration-va.SpeechDuration)
	if totalDuration > 0 {
		va.SpeechRatio = math.Min(1, va.SpeechDuration/totalDuration)
	}
	return va
}

// inSegment reports whether t falls inside one of segs.
func inSegment(t float64, segs []Segment) bool {
	for _, s := range segs {
		if t >= s.Start && t < s.End {
			return true
		}
	}
	return false
}

// SyllableNuclei finds syllable nuclei: local maxima of the 3-frame moving
// average of levels that lie inside a speech segment, exceed half of the
// mean envelope over those frames, and come at least 100 ms after the
// previous nucleus.
func SyllableNuclei(levels, times []float64, segments []Segment) []float64 {
	nuclei := []float64{}
	if len(levels) < 3 || len(segments) == 0 {
		return nuclei
	}
	env := dsp.MovingAverage(levels, envelopeWidth)

	var sum float64
	n := 0
	for i, t := range times {
		if inSegment(t, segments) {
			sum += env[i]
			n++
		}
	}
	if n == 0 || sum == 0 {
		return nuclei
	}
	floor := nucleusLevelRatio * sum / float64(n)

	last := math.Inf(-1)
	for i := 1; i < len(env)-1; i++ {
		t := times[i]
		if !inSegment(t, segments) || env[i] <= floor {
			continue
		}
		if env[i] > env[i-1] && env[i] >= env[i+1] && t-last >= nucleusMinGap {
			nuclei = append(nuclei, t)
			last = t
		}
	}
	return nuclei
}

// MeasureRhythm derives rates, pauses and interval variability from the
// nuclei and the speech segments.
func MeasureRhythm(nuclei []float64, va VoiceActivity, totalDuration float64) Rhythm {
	r := Rhythm{SyllableCount: len(nuclei), SyllableTimes: nuclei}
	if totalDuration > 0 {
		r.SpeechRate = float64(len(nuclei)) / totalDuration
	}
	if va.SpeechDuration > 0 {
		r.ArticulationRate = float64(len(nuclei)) / va.SpeechDuration
	}

	for i := 1; i < len(va.Segments); i++ {
		gap := va.Segments[i].Start - va.Segments[i-1].End
		r.PauseCount++
		r.TotalPauseDuration += gap
	}
	if r.PauseCount > 0 {
		r.MeanPauseDuration = r.TotalPauseDuration / float64(r.PauseCount)
	}

	intervals := make([]float64, 0, len(nuclei))
	for i := 1; i < len(nuclei); i++ {
		intervals = append(intervals, nuclei[i]-nuclei[i-1])
	}
	r.NPVI = NPVI(intervals)
	if len(intervals) >= 2 {
		mean, std := stat.MeanStdDev(intervals, nil)
		if mean > 0 {
			r.IntervalCV = std / mean
		}
	}
	return r
}

// NPVI is the normalized pairwise variability index:
//
//	100/(m-1) · Σ |d_k - d_k+1| / ((d_k + d_k+1)/2)
//
// It is 0 for fewer than two intervals.
func NPVI(intervals []float64) float64 {
	if len(intervals) < 2 {
		return 0
	}
	var sum float64
	for k := 0; k+1 < len(intervals); k++ {
		a, b := intervals[k], intervals[k+1]
		if mean := (a + b) / 2; mean > 0 {
			sum += math.Abs(a-b) / mean
		}
	}
	return 100 * sum / float64(len(intervals)-1)
}
