// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"slices"
	"sort"

	"soundlab/internal/dsp"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PitchPoint is one voiced frame of the pitch contour.
type PitchPoint struct {
	Time      float64 `json:"time" yaml:"time"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
}

// Prosody summarises pitch and intensity over the active frames.
type Prosody struct {
	Contour         []PitchPoint `json:"contour" yaml:"contour"`
	MeanPitch       float64      `json:"meanPitch" yaml:"meanPitch"`
	MedianPitch     float64      `json:"medianPitch" yaml:"medianPitch"`
	MinPitch        float64      `json:"minPitch" yaml:"minPitch"`
	MaxPitch        float64      `json:"maxPitch" yaml:"maxPitch"`
	PitchStdDev     float64      `json:"pitchStdDev" yaml:"pitchStdDev"`
	PitchRange      float64      `json:"pitchRange" yaml:"pitchRange"`           // Semitones.
	IntonationSlope float64      `json:"intonationSlope" yaml:"intonationSlope"` // Hz per second.
	IntensityMean   float64      `json:"intensityMean" yaml:"intensityMean"`     // dBFS.
	IntensityStdDev float64      `json:"intensityStdDev" yaml:"intensityStdDev"` // dB.
	Jitter          float64      `json:"jitter" yaml:"jitter"`                   // %.
	Shimmer         float64      `json:"shimmer" yaml:"shimmer"`                 // %.
	VoicedRatio     float64      `json:"voicedRatio" yaml:"voicedRatio"`
}

// voicedFrame is an active frame that produced a pitch estimate.
type voicedFrame struct {
	time      float64
	frequency float64
	amplitude float64
}

// measureProsody computes the prosody summary. intensities holds the dB
// level of every active frame; voiced holds the subset with a pitch.
func measureProsody(voiced []voicedFrame, intensities []float64) Prosody {
	p := Prosody{Contour: []PitchPoint{}}
	if len(intensities) > 0 {
		p.IntensityMean, p.IntensityStdDev = meanStdDev(intensities)
		p.VoicedRatio = float64(len(voiced)) / float64(len(intensities))
	}
	if len(voiced) == 0 {
		return p
	}

	times := make([]float64, len(voiced))
	pitches := make([]float64, len(voiced))
	amps := make([]float64, len(voiced))
	periods := make([]float64, len(voiced))
	for i, v := range voiced {
		times[i] = v.time
		pitches[i] = v.frequency
		amps[i] = v.amplitude
		periods[i] = 1 / v.frequency
		p.Contour = append(p.Contour, PitchPoint{Time: v.time, Frequency: v.frequency})
	}

	p.MeanPitch, p.PitchStdDev = meanStdDev(pitches)
	p.MinPitch = floats.Min(pitches)
	p.MaxPitch = floats.Max(pitches)
	p.PitchRange = 12 * math.Log2(p.MaxPitch/p.MinPitch)

	sorted := slices.Clone(pitches)
	sort.Float64s(sorted)
	p.MedianPitch = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	if len(voiced) >= 2 && times[len(times)-1] > times[0] {
		_, p.IntonationSlope = stat.LinearRegression(times, pitches, nil, false)
	}

	p.Jitter = perturbation(periods)
	p.Shimmer = perturbation(amps)
	return p
}

// perturbation is the mean absolute difference of consecutive values over
// their mean, in percent.
func perturbation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := stat.Mean(values, nil)
	if mean == 0 {
		return 0
	}
	var diff float64
	for i := 1; i < len(values); i++ {
		diff += math.Abs(values[i] - values[i-1])
	}
	return diff / float64(len(values)-1) / mean * 100
}

func meanStdDev(x []float64) (mean, std float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}

// FormantPoint is the first two formants of one voiced frame.
type FormantPoint struct {
	Time float64 `json:"time" yaml:"time"`
	F1   float64 `json:"f1" yaml:"f1"`
	F2   float64 `json:"f2" yaml:"f2"`
}

// VowelSpace summarises formant positions.
type VowelSpace struct {
	Points  []FormantPoint `json:"points" yaml:"points"`
	MeanF1  float64        `json:"meanF1" yaml:"meanF1"`
	MeanF2  float64        `json:"meanF2" yaml:"meanF2"`
	F1Range float64        `json:"f1Range" yaml:"f1Range"`
	F2Range float64        `json:"f2Range" yaml:"f2Range"`
	Area    float64        `json:"area" yaml:"area"` // Convex hull of (F2, F1), Hz².
}

// Formant search bands, Hz.
const (
	f1Low           = 250.0
	f1High          = 1000.0
	f2Low           = 800.0
	f2High          = 2800.0
	f2MinSpacing    = 200.0
	formantSmoothHz = 300.0
)

// EstimateFormants picks F1 and F2 as spectral peaks after smoothing the
// magnitude spectrum over about 300 Hz. It returns false when either band
// holds no energy.
func EstimateFormants(mags, frequencies []float64) (f1, f2 float64, ok bool) {
	if len(mags) < 2 || len(frequencies) < 2 {
		return 0, 0, false
	}
	binHz := frequencies[1] - frequencies[0]
	width := max(1, int(math.Round(formantSmoothHz/binHz)))
	if width%2 == 0 {
		width++
	}
	smooth := dsp.MovingAverage(mags, width)

	f1, ok = peakIn(smooth, frequencies, f1Low, f1High)
	if !ok {
		return 0, 0, false
	}
	f2, ok = peakIn(smooth, frequencies, math.Max(f2Low, f1+f2MinSpacing), f2High)
	if !ok {
		return 0, 0, false
	}
	return f1, f2, true
}

func peakIn(mags, frequencies []float64, lowHz, highHz float64) (float64, bool) {
	best := -1
	for k, f := range frequencies {
		if f < lowHz || f > highHz {
			continue
		}
		if best < 0 || mags[k] > mags[best] {
			best = k
		}
	}
	if best < 0 || mags[best] <= 0 {
		return 0, false
	}
	return frequencies[best], true
}

func measureVowelSpace(points []FormantPoint) VowelSpace {
	vs := VowelSpace{Points: points}
	if vs.Points == nil {
		vs.Points = []FormantPoint{}
	}
	if len(points) == 0 {
		return vs
	}

	f1 := make([]float64, len(points))
	f2 := make([]float64, len(points))
	for i, p := range points {
		f1[i], f2[i] = p.F1, p.F2
	}
	vs.MeanF1 = stat.Mean(f1, nil)
	vs.MeanF2 = stat.Mean(f2, nil)
	vs.F1Range = floats.Max(f1) - floats.Min(f1)
	vs.F2Range = floats.Max(f2) - floats.Min(f2)

	hull := make([][2]float64, len(points))
	for i, p := range points {
		hull[i] = [2]float64{p.F2, p.F1}
	}
	vs.Area = HullArea(hull)
	return vs
}

// HullArea returns the area of the convex hull of pts (Andrew's monotone
// chain, then the shoelace formula). Fewer than three distinct
// non-collinear points give 0.
func HullArea(pts [][2]float64) float64 {
	if len(pts) < 3 {
		return 0
	}
	sorted := slices.Clone(pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	cross := func(o, a, b [2]float64) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	hull := make([][2]float64, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	hull = hull[:len(hull)-1]
	if len(hull) < 3 {
		return 0
	}

	var area float64
	for i := range hull {
		j := (i + 1) % len(hull)
		area += hull[i][0]*hull[j][1] - hull[j][0]*hull[i][1]
	}
	return math.Abs(area) / 2
}
