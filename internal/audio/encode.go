// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes sig as integer PCM at bitDepth (16, 24 or 32) bits.
// Samples are clipped to [-1, 1].
func WriteWAV(w io.WriteSeeker, sig Signal, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported wav bit depth: %d", bitDepth)
	}
	if sig.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sig.SampleRate)
	}
	channels := sig.NumChannels()
	if channels == 0 {
		return fmt.Errorf("signal has no channels")
	}

	encoder := wav.NewEncoder(w, sig.SampleRate, bitDepth, channels, 1)

	frames := sig.Frames()
	fullScale := float64(int64(1)<<(bitDepth-1)) - 1
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sig.SampleRate,
		},
		Data:           make([]int, frames*channels),
		SourceBitDepth: bitDepth,
	}
	for i := range frames {
		for c, ch := range sig.Channels {
			var v float64
			if i < len(ch) {
				v = math.Max(-1, math.Min(1, ch[i]))
			}
			buf.Data[i*channels+c] = int(math.Round(v * fullScale))
		}
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write pcm data: %w", err)
	}
	return encoder.Close()
}

// WriteWAVFile creates path and writes sig into it.
func WriteWAVFile(path string, sig Signal, bitDepth int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteWAV(file, sig, bitDepth); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
