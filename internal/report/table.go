// SPDX-License-Identifier: MIT
package report

import (
	"fmt"
	"strconv"
	"strings"

	"soundlab/internal/analysis"
	"soundlab/internal/tuning"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))

	titleCaser = cases.Title(language.English)
)

// maxTableRows caps long listings (notes, histogram, segments).
const maxTableRows = 50

// Render returns the styled table view of one entry.
func Render(e Entry) (string, error) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", titleCaser.String(string(e.Mode)), e.File)))
	b.WriteString("\n")

	switch r := e.Result.(type) {
	case *analysis.TranscriptionResult:
		renderTranscription(&b, r)
	case *analysis.SoundscapeResult:
		renderSoundscape(&b, r)
	case *analysis.MicrotonalResult:
		renderMicrotonal(&b, r)
	case *analysis.LinguisticsResult:
		renderLinguistics(&b, r)
	default:
		return "", fmt.Errorf("no table layout for result type %T", e.Result)
	}
	return b.String(), nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func section(b *strings.Builder, name string, t fmt.Stringer) {
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(name))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
}

// summary renders key/value pairs as a two-column table.
func summary(pairs ...string) *table.Table {
	t := newTable("Metric", "Value")
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Row(pairs[i], pairs[i+1])
	}
	return t
}

// truncated reports how many rows were left out of a listing.
func truncated(b *strings.Builder, total int) {
	if total > maxTableRows {
		fmt.Fprintf(b, "… %d more\n", total-maxTableRows)
	}
}

func num(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }

func renderTranscription(b *strings.Builder, r *analysis.TranscriptionResult) {
	tempo, meter := "-", "-"
	if r.DetectedTempo != nil {
		tempo = num(*r.DetectedTempo, 1) + " BPM"
	}
	if r.DetectedTimeSignature != "" {
		meter = r.DetectedTimeSignature
	}
	section(b, "Summary", summary(
		"Duration", num(r.Duration, 2)+" s",
		"Sample rate", strconv.Itoa(r.SampleRate)+" Hz",
		"Notes", strconv.Itoa(len(r.Notes)),
		"Confidence", num(r.Confidence, 3),
		"Tempo", tempo,
		"Time signature", meter,
	))

	notes := newTable("#", "Note", "MIDI", "Start", "Duration", "Velocity", "Confidence")
	for i, n := range r.Notes[:min(len(r.Notes), maxTableRows)] {
		notes.Row(
			strconv.Itoa(i+1), n.PitchName, strconv.Itoa(n.Midi),
			num(n.StartTime, 3), num(n.Duration, 3),
			strconv.Itoa(n.Velocity), num(n.Confidence, 2),
		)
	}
	section(b, "Notes", notes)
	truncated(b, len(r.Notes))
}

func renderSoundscape(b *strings.Builder, r *analysis.SoundscapeResult) {
	idx := r.Indices
	section(b, "Acoustic indices", summary(
		"ACI", num(idx.ACI, 4),
		"NDSI", num(idx.NDSI, 4),
		"Biophony", num(idx.Biophony, 4),
		"Anthrophony", num(idx.Anthrophony, 4),
		"Entropy", num(idx.Entropy, 4),
		"Peak frequency", num(idx.PeakFrequency, 1)+" Hz",
		"Spectral centroid", num(idx.SpectralCentroid, 1)+" Hz",
	))

	bands := newTable("Band", "Range", "Share")
	for _, s := range r.FrequencyBands {
		bands.Row(s.Name, fmt.Sprintf("%s-%s Hz", num(s.LowHz, 0), num(s.HighHz, 0)), num(s.Percentage, 1)+"%")
	}
	section(b, "Frequency bands", bands)

	temporal := newTable("Second", "RMS")
	for i, v := range r.TemporalVariation[:min(len(r.TemporalVariation), maxTableRows)] {
		temporal.Row(strconv.Itoa(i), num(v, 4))
	}
	section(b, "Temporal variation", temporal)
	truncated(b, len(r.TemporalVariation))
}

func renderMicrotonal(b *strings.Builder, r *analysis.MicrotonalResult) {
	scale := "no match"
	if r.ScaleAnalysis != nil {
		scale = fmt.Sprintf("%s (score %s, %d matches)", r.ScaleAnalysis.Name, num(r.ScaleAnalysis.Score, 2), r.ScaleAnalysis.Matches)
	}
	section(b, "Summary", summary(
		"Pitched frames", strconv.Itoa(r.TotalNotes),
		"Distinct pitches", strconv.Itoa(len(r.PitchHistogram)),
		"Microtonal content", num(r.MicrotonalContent, 1)+"%",
		"Mean deviation", num(r.AverageCentsDeviation, 1)+" cents",
		"Scale", scale,
	))

	dominant := newTable("Frequency", "Note", "Cents", "Count", "Share")
	for _, e := range r.DominantPitches {
		dominant.Row(num(e.Frequency, 0)+" Hz", e.NoteName, num(e.Cents, 1), strconv.Itoa(e.Count), num(e.Percentage, 1)+"%")
	}
	section(b, "Dominant pitches", dominant)
}

func renderLinguistics(b *strings.Builder, r *analysis.LinguisticsResult) {
	p, rh, va, vs := r.Prosody, r.Rhythm, r.VoiceActivity, r.VowelSpace

	section(b, "Prosody", summary(
		"Mean pitch", num(p.MeanPitch, 1)+" Hz",
		"Median pitch", num(p.MedianPitch, 1)+" Hz",
		"Pitch range", num(p.PitchRange, 2)+" st",
		"Pitch std dev", num(p.PitchStdDev, 1)+" Hz",
		"Intonation slope", num(p.IntonationSlope, 1)+" Hz/s",
		"Intensity", num(p.IntensityMean, 1)+" dB",
		"Jitter", num(p.Jitter, 2)+"%",
		"Shimmer", num(p.Shimmer, 2)+"%",
		"Voiced ratio", num(p.VoicedRatio, 2),
	))

	section(b, "Rhythm", summary(
		"Syllables", strconv.Itoa(rh.SyllableCount),
		"Speech rate", num(rh.SpeechRate, 2)+" syl/s",
		"Articulation rate", num(rh.ArticulationRate, 2)+" syl/s",
		"Pauses", strconv.Itoa(rh.PauseCount),
		"Mean pause", num(rh.MeanPauseDuration, 3)+" s",
		"nPVI", num(rh.NPVI, 1),
		"Interval CV", num(rh.IntervalCV, 3),
	))

	segments := newTable("#", "Start", "End", "Duration")
	for i, s := range va.Segments[:min(len(va.Segments), maxTableRows)] {
		segments.Row(strconv.Itoa(i+1), num(s.Start, 3), num(s.End, 3), num(s.Duration, 3))
	}
	section(b, fmt.Sprintf("Voice activity (speech ratio %s)", num(va.SpeechRatio, 2)), segments)
	truncated(b, len(va.Segments))

	section(b, "Vowel space", summary(
		"Frames", strconv.Itoa(len(vs.Points)),
		"Mean F1", num(vs.MeanF1, 0)+" Hz",
		"Mean F2", num(vs.MeanF2, 0)+" Hz",
		"Area", num(vs.Area, 0)+" Hz²",
	))
}

// Scales renders the scale sets accepted by scaleType and the detector
// templates.
func Scales(scales []tuning.Scale, templates []tuning.Template) string {
	sets := newTable("Scale", "Semitones")
	for _, s := range scales {
		parts := make([]string, len(s.Semitones))
		for i, st := range s.Semitones {
			parts[i] = strconv.Itoa(st)
		}
		sets.Row(s.Name, strings.Join(parts, " "))
	}

	tpls := newTable("Template", "Cents")
	for _, t := range templates {
		parts := make([]string, len(t.Cents))
		for i, c := range t.Cents {
			parts[i] = num(c, 0)
		}
		tpls.Row(t.Name, strings.Join(parts, " "))
	}

	var b strings.Builder
	section(&b, "Scale sets", sets)
	section(&b, "Detector templates", tpls)
	return b.String()
}
