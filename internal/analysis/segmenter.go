// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"soundlab/internal/tuning"
)

// NoteEvent is a committed note. It is created only when the segmenter
// closes a note that lasted at least the minimum duration.
type NoteEvent struct {
	Midi       int     `json:"midi" yaml:"midi"`
	StartTime  float64 `json:"startTime" yaml:"startTime"`
	Duration   float64 `json:"duration" yaml:"duration"`
	Velocity   int     `json:"velocity" yaml:"velocity"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Frequency  float64 `json:"frequency" yaml:"frequency"`
	PitchName  string  `json:"pitchName" yaml:"pitchName"`
}

// FrameObservation is what the segmenter sees of one analysis frame.
type FrameObservation struct {
	Time       float64
	Amplitude  float64 // RMS of the raw frame.
	Gated      bool    // Noise gate closed for this frame.
	Voiced     bool    // Pitch estimate present.
	Frequency  float64
	Confidence float64 // Local confidence of the pitch estimate.
}

// SegmenterState is the state of the note FSM.
type SegmenterState int

const (
	StateIdle SegmenterState = iota
	StateActive
)

func (s SegmenterState) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// SegmenterConfig holds the acceptance rules and note shaping.
type SegmenterConfig struct {
	Threshold       float64
	MinNoteDuration float64
	FrequencyMin    float64
	FrequencyMax    float64
	MidiMin         int
	MidiMax         int

	Reference float64
	System    tuning.System

	// Scale, when non-nil, rejects notes outside it transposed to ScaleRoot.
	Scale     *tuning.Scale
	ScaleRoot int

	Quantizer Quantizer

	VelocityScaling bool
	VelocityMin     int
	VelocityMax     int
}

type openNote struct {
	event      NoteEvent
	confidence float64 // Sum over the note's frames.
	frames     int
}

// NoteSegmenter turns frame observations into NoteEvents. It is an
// explicit two-state machine: Idle, or Active with exactly one open note.
//
// Per frame:
//  1. A gated frame closes the open note.
//  2. A frame is accepted when it is loud enough, voiced, inside the
//     frequency band, inside the MIDI band and, if constrained, in scale.
//  3. An accepted frame with the open note's MIDI value extends it; any
//     other accepted frame closes the open note and opens a new one at the
//     quantized frame time.
//  4. A rejected frame closes the open note.
//
// Closing emits the note only if it lasted at least MinNoteDuration.
type NoteSegmenter struct {
	cfg   SegmenterConfig
	state SegmenterState
	open  openNote
	notes []NoteEvent

	confidenceSum float64
	accepted      int
}

// NewNoteSegmenter returns an idle segmenter.
func NewNoteSegmenter(cfg SegmenterConfig) *NoteSegmenter {
	return &NoteSegmenter{cfg: cfg}
}

// State returns the current FSM state.
func (s *NoteSegmenter) State() SegmenterState { return s.state }

// Accepted returns the number of accepted frames so far.
func (s *NoteSegmenter) Accepted() int { return s.accepted }

// Step feeds one frame.
func (s *NoteSegmenter) Step(obs FrameObservation) {
	// --- 1. Noise gate ---
	if obs.Gated {
		s.close()
		return
	}

	// --- 2. Acceptance ---
	midi, ok := s.accept(obs)
	if !ok {
		s.close()
		return
	}
	s.confidenceSum += obs.Confidence
	s.accepted++

	// --- 3. Extend or open ---
	start := s.cfg.Quantizer.Quantize(obs.Time)
	velocity := s.velocity(obs.Amplitude)

	if s.state == StateActive && s.open.event.Midi == midi {
		s.open.event.Duration = start - s.open.event.StartTime
		s.open.event.Velocity = max(s.open.event.Velocity, velocity)
		s.open.confidence += obs.Confidence
		s.open.frames++
		return
	}

	s.close()
	s.state = StateActive
	s.open = openNote{
		event: NoteEvent{
			Midi:      midi,
			StartTime: start,
			Velocity:  velocity,
			Frequency: obs.Frequency,
			PitchName: tuning.NoteName(midi),
		},
		confidence: obs.Confidence,
		frames:     1,
	}
}

// Flush closes any open note and returns every emitted note in order.
func (s *NoteSegmenter) Flush() []NoteEvent {
	s.close()
	return s.notes
}

// Confidence returns the mean local confidence of all accepted frames, or
// 0.7 when none was accepted.
func (s *NoteSegmenter) Confidence() float64 {
	if s.accepted == 0 {
		return defaultConfidence
	}
	return s.confidenceSum / float64(s.accepted)
}

const defaultConfidence = 0.7

func (s *NoteSegmenter) accept(obs FrameObservation) (int, bool) {
	if obs.Amplitude < s.cfg.Threshold || !obs.Voiced {
		return 0, false
	}
	if obs.Frequency < s.cfg.FrequencyMin || obs.Frequency > s.cfg.FrequencyMax {
		return 0, false
	}
	midi := tuning.FrequencyToMidi(obs.Frequency, s.cfg.Reference, s.cfg.System)
	if midi < s.cfg.MidiMin || midi > s.cfg.MidiMax {
		return 0, false
	}
	if s.cfg.Scale != nil && !s.cfg.Scale.Contains(midi, s.cfg.ScaleRoot) {
		return 0, false
	}
	return midi, true
}

// velocity maps an RMS amplitude to 0..127 with a fixed 2x gain.
func (s *NoteSegmenter) velocity(amplitude float64) int {
	v := int(math.Floor(amplitude * 127 * 2))
	v = min(max(v, 0), 127)
	if s.cfg.VelocityScaling {
		v = min(max(v, s.cfg.VelocityMin), s.cfg.VelocityMax)
	}
	return v
}

func (s *NoteSegmenter) close() {
	if s.state != StateActive {
		return
	}
	s.state = StateIdle
	note := s.open.event
	if note.Duration >= s.cfg.MinNoteDuration {
		note.Confidence = math.Min(1, s.open.confidence/float64(s.open.frames))
		s.notes = append(s.notes, note)
	}
	s.open = openNote{}
}
