// SPDX-License-Identifier: MIT
package tuning

import (
	"fmt"
	"slices"
	"strings"
)

// Scale is a set of pitch classes given as semitone offsets from the root.
type Scale struct {
	Name      string
	Semitones []int
}

// Scales lists the scale sets accepted by scaleType, in display order.
var Scales = []Scale{
	{"chromatic", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	{"major", []int{0, 2, 4, 5, 7, 9, 11}},
	{"minor", []int{0, 2, 3, 5, 7, 8, 10}},
	{"harmonic_minor", []int{0, 2, 3, 5, 7, 8, 11}},
	{"melodic_minor", []int{0, 2, 3, 5, 7, 9, 11}},
	{"dorian", []int{0, 2, 3, 5, 7, 9, 10}},
	{"phrygian", []int{0, 1, 3, 5, 7, 8, 10}},
	{"lydian", []int{0, 2, 4, 6, 7, 9, 11}},
	{"mixolydian", []int{0, 2, 4, 5, 7, 9, 10}},
	{"locrian", []int{0, 1, 3, 5, 6, 8, 10}},
	{"pentatonic_major", []int{0, 2, 4, 7, 9}},
	{"pentatonic_minor", []int{0, 3, 5, 7, 10}},
	{"blues", []int{0, 3, 5, 6, 7, 10}},
	{"whole_tone", []int{0, 2, 4, 6, 8, 10}},
}

// LookupScale finds a scale set by name (case-insensitive, '-' and ' '
// read as '_').
func LookupScale(name string) (Scale, error) {
	key := normalizeName(name)
	for _, s := range Scales {
		if s.Name == key {
			return s, nil
		}
	}
	return Scale{}, fmt.Errorf("unknown scale type: '%s'", name)
}

// Contains reports whether midi belongs to the scale transposed to root.
func (s Scale) Contains(midi, root int) bool {
	pc := ((midi-root)%12 + 12) % 12
	return slices.Contains(s.Semitones, pc)
}

// Template is a scale expressed as cents above its lowest degree, used by
// the scale detector.
type Template struct {
	Name  string
	Cents []float64
}

// Templates returns the detector templates: every scale set in equal
// temperament followed by tunings that do not fit the 12-tone grid.
func Templates() []Template {
	out := make([]Template, 0, len(Scales)+len(nonWesternTemplates))
	// Chromatic would match any 12-tone material, so it goes last.
	for _, s := range Scales[1:] {
		out = append(out, fromSemitones(s))
	}
	out = append(out, nonWesternTemplates...)
	return append(out, fromSemitones(Scales[0]))
}

var nonWesternTemplates = []Template{
	{"just_major", []float64{0, 204, 386, 498, 702, 884, 1088}},
	{"maqam_rast", []float64{0, 200, 350, 500, 700, 900, 1050}},
	{"maqam_bayati", []float64{0, 150, 300, 500, 700, 800, 1000}},
	{"slendro", []float64{0, 240, 480, 720, 960}},
	{"pelog", []float64{0, 120, 270, 540, 670, 785, 950}},
	{"quarter_tone_24", quarterToneCents()},
}

func fromSemitones(s Scale) Template {
	cents := make([]float64, len(s.Semitones))
	for i, st := range s.Semitones {
		cents[i] = float64(st * 100)
	}
	return Template{Name: s.Name, Cents: cents}
}

func quarterToneCents() []float64 {
	cents := make([]float64, 24)
	for i := range cents {
		cents[i] = float64(i * 50)
	}
	return cents
}

func normalizeName(name string) string {
	r := strings.NewReplacer("-", "_", " ", "_")
	return r.Replace(strings.ToLower(strings.TrimSpace(name)))
}
