// SPDX-License-Identifier: MIT

// Package audio defines the decoded signal value the analysis engine
// consumes, the noise gate applied to frame amplitudes, and the WAV/MP3
// codecs the command line uses to produce and consume signals.
package audio

import (
	"fmt"
	"strings"
)

// Signal is a decoded PCM buffer: one float slice per channel, samples
// nominally in [-1, 1]. A Signal is treated as immutable; nothing in this
// module writes into Channels.
type Signal struct {
	Channels   [][]float64
	SampleRate int
}

// NewSignal wraps the given channels without copying them.
func NewSignal(sampleRate int, channels ...[]float64) Signal {
	return Signal{Channels: channels, SampleRate: sampleRate}
}

// NumChannels returns the channel count.
func (s Signal) NumChannels() int { return len(s.Channels) }

// Frames returns the number of samples in the first channel.
func (s Signal) Frames() int {
	if len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

// Duration returns the signal length in seconds, or 0 when the sample rate
// is not positive.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(s.Frames()) / float64(s.SampleRate)
}

// ChannelSelection chooses how a multi-channel signal becomes the mono
// buffer that analysis runs on.
type ChannelSelection int

const (
	ChannelLeft ChannelSelection = iota
	ChannelRight
	ChannelMix
	ChannelBoth
)

// String returns the configuration name of the selection.
func (c ChannelSelection) String() string {
	switch c {
	case ChannelLeft:
		return "left"
	case ChannelRight:
		return "right"
	case ChannelMix:
		return "mix"
	case ChannelBoth:
		return "both"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// ParseChannelSelection converts a configuration name (case-insensitive).
func ParseChannelSelection(name string) (ChannelSelection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return ChannelLeft, nil
	case "right":
		return ChannelRight, nil
	case "mix":
		return ChannelMix, nil
	case "both":
		return ChannelBoth, nil
	default:
		return ChannelMix, fmt.Errorf("unknown channel selection: '%s'", name)
	}
}

// Mono returns the analysis buffer for sel.
//
//   - left reads channel 0 and right reads channel 1.
//   - mix averages channels 0 and 1 sample by sample.
//   - both reads channel 0, exactly like left.
//
// A single-channel signal yields channel 0 for every selection. left, right
// and both return the channel slice itself; mix allocates.
func (s Signal) Mono(sel ChannelSelection) []float64 {
	switch len(s.Channels) {
	case 0:
		return nil
	case 1:
		return s.Channels[0]
	}

	switch sel {
	case ChannelRight:
		return s.Channels[1]
	case ChannelMix:
		left, right := s.Channels[0], s.Channels[1]
		n := min(len(left), len(right))
		out := make([]float64, n)
		for i := range n {
			out[i] = (left[i] + right[i]) / 2
		}
		return out
	default:
		return s.Channels[0]
	}
}
