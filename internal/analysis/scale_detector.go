// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"slices"
	"sort"

	"soundlab/internal/tuning"
)

// PitchHistogramEntry is one distinct (rounded) frequency of a pitch
// histogram.
type PitchHistogramEntry struct {
	Frequency  float64 `json:"frequency" yaml:"frequency"`
	MidiNote   int     `json:"midiNote" yaml:"midiNote"`
	NoteName   string  `json:"noteName" yaml:"noteName"`
	Cents      float64 `json:"cents" yaml:"cents"`
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// ScaleMatch is the best-matching scale template.
type ScaleMatch struct {
	Name      string    `json:"name" yaml:"name"`
	Score     float64   `json:"score" yaml:"score"`
	Matches   int       `json:"matches" yaml:"matches"`
	Intervals []float64 `json:"intervals" yaml:"intervals"` // Detected pattern, cents.
}

const (
	minDominantPitches = 5
	dominantFraction   = 0.1
	intervalTolerance  = 30.0 // cents
	minScaleScore      = 0.5
)

// BuildHistogram counts frequencies rounded to the nearest hertz and
// returns the entries in ascending frequency order.
func BuildHistogram(frequencies []float64, reference float64, system tuning.System) []PitchHistogramEntry {
	counts := map[float64]int{}
	for _, f := range frequencies {
		counts[math.Round(f)]++
	}

	entries := make([]PitchHistogramEntry, 0, len(counts))
	total := float64(len(frequencies))
	for f, n := range counts {
		midi := tuning.FrequencyToMidi(f, reference, system)
		entries = append(entries, PitchHistogramEntry{
			Frequency:  f,
			MidiNote:   midi,
			NoteName:   tuning.NoteName(midi),
			Cents:      tuning.Cents(f, reference),
			Count:      n,
			Percentage: float64(n) / total * 100,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Frequency < entries[j].Frequency })
	return entries
}

// DominantPitches returns the most frequent entries: at least 10% of the
// distinct pitches and never fewer than five (or all of them, if there
// are fewer). Order is count descending, then frequency ascending.
func DominantPitches(histogram []PitchHistogramEntry) []PitchHistogramEntry {
	sorted := slices.Clone(histogram)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Frequency < sorted[j].Frequency
	})

	n := max(minDominantPitches, int(math.Ceil(dominantFraction*float64(len(sorted)))))
	return sorted[:min(n, len(sorted))]
}

// IntervalPattern returns the cents of each frequency above the lowest
// one, folded into one octave and sorted ascending.
func IntervalPattern(frequencies []float64) []float64 {
	if len(frequencies) == 0 {
		return nil
	}
	lowest := slices.Min(frequencies)
	out := make([]float64, len(frequencies))
	for i, f := range frequencies {
		out[i] = math.Mod(tuning.IntervalCents(lowest, f), 1200)
	}
	slices.Sort(out)
	return out
}

// DetectScale is the scale detector. Each template is scored as
//
//	matches / max(len(detected), len(template))
//
// where matches counts detected intervals within ±30 cents of any template
// interval. The distance is plain, not circular: 1185 cents is 1185 cents
// from 0, so an interval just under the octave only matches a template
// that lists it. The best template is returned if its score exceeds 0.5;
// ties keep the earlier template.
func DetectScale(frequencies []float64, templates []tuning.Template) (*ScaleMatch, bool) {
	detected := IntervalPattern(frequencies)
	if len(detected) == 0 {
		return nil, false
	}

	var best *ScaleMatch
	for _, tpl := range templates {
		matches := 0
		for _, d := range detected {
			for _, c := range tpl.Cents {
				if math.Abs(d-c) <= intervalTolerance {
					matches++
					break
				}
			}
		}
		score := float64(matches) / float64(max(len(detected), len(tpl.Cents)))
		if best == nil || score > best.Score {
			best = &ScaleMatch{Name: tpl.Name, Score: score, Matches: matches, Intervals: detected}
		}
	}

	if best == nil || best.Score <= minScaleScore {
		return nil, false
	}
	return best, true
}
