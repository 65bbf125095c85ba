// SPDX-License-Identifier: MIT

// Package tuning maps between frequencies and MIDI note numbers under a
// reference pitch and tuning system, and holds the scale tables used for
// scale constraint and scale detection.
package tuning

import (
	"fmt"
	"math"
	"strings"
)

// MIDI range of the 88-key piano. Every mapped note is clamped into it.
const (
	MinMidi = 21
	MaxMidi = 108

	DefaultReferenceFrequency = 440.0
)

// System selects how an exact (fractional) MIDI value is rounded.
type System int

const (
	Equal System = iota
	Just
	Pythagorean
	Meantone
	QuarterTone
)

var systemNames = map[System]string{
	Equal:       "equal",
	Just:        "just",
	Pythagorean: "pythagorean",
	Meantone:    "meantone",
	QuarterTone: "quarter_tone",
}

// String returns the configuration name of the tuning system.
func (s System) String() string {
	if name, ok := systemNames[s]; ok {
		return name
	}
	return fmt.Sprintf("system(%d)", int(s))
}

// ParseSystem converts a configuration name (case-insensitive, '-' and '_'
// interchangeable) to a System.
func ParseSystem(name string) (System, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for s, n := range systemNames {
		if n == key {
			return s, nil
		}
	}
	return Equal, fmt.Errorf("unknown tuning system: '%s'", name)
}

// ExactMidi returns 12·log2(f/ref)+69 without rounding.
func ExactMidi(frequency, reference float64) float64 {
	return 12*math.Log2(frequency/reference) + 69
}

// FrequencyToMidi returns the MIDI note for frequency under the given
// system, clamped to [MinMidi, MaxMidi].
//
// QuarterTone rounds on a 24-step octave first and then to the nearest even
// step, so exact values from x.25 up to x.5 resolve upward. Just,
// Pythagorean and Meantone currently round exactly like Equal.
func FrequencyToMidi(frequency, reference float64, system System) int {
	if !(frequency > 0) || !(reference > 0) {
		return MinMidi
	}
	exact := ExactMidi(frequency, reference)

	var midi float64
	switch system {
	case QuarterTone:
		steps := math.Round(exact * 2)
		midi = math.Round(steps / 2)
	default:
		midi = math.Round(exact)
	}
	return clampMidi(midi)
}

// MidiToFrequency returns ref·2^((m-69)/12).
func MidiToFrequency(midi int, reference float64) float64 {
	return reference * math.Pow(2, float64(midi-69)/12)
}

// Cents returns the deviation of frequency from the nearest equal-tempered
// note, in [-50, 50] cents.
func Cents(frequency, reference float64) float64 {
	exact := ExactMidi(frequency, reference)
	return (exact - math.Round(exact)) * 100
}

// IntervalCents returns the distance from low to high in cents.
func IntervalCents(low, high float64) float64 {
	return 1200 * math.Log2(high/low)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the sharp spelling with octave, e.g. 60 → "C4",
// 69 → "A4".
func NoteName(midi int) string {
	pc := ((midi % 12) + 12) % 12
	octave := floorDiv(midi, 12) - 1
	return fmt.Sprintf("%s%d", noteNames[pc], octave)
}

// PitchClass returns the note name without octave.
func PitchClass(midi int) string {
	return noteNames[((midi%12)+12)%12]
}

func clampMidi(m float64) int {
	if m < MinMidi {
		return MinMidi
	}
	if m > MaxMidi {
		return MaxMidi
	}
	return int(m)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
