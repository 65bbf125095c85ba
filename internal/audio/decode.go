// SPDX-License-Identifier: MIT
package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat is returned by Decode for files that are neither
// WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode reads a WAV or MP3 file into a Signal. The format is chosen by
// extension and, failing that, by the RIFF magic.
func Decode(path string) (Signal, error) {
	file, err := os.Open(path)
	if err != nil {
		return Signal{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return DecodeWAV(file)
	case ".mp3":
		return DecodeMP3(file)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(file, magic); err != nil {
		return Signal{}, fmt.Errorf("failed to read audio header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Signal{}, err
	}
	if string(magic) == "RIFF" {
		return DecodeWAV(file)
	}
	return Signal{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
}

// DecodeWAV decodes integer PCM WAV data. Samples are scaled by the
// source bit depth into [-1, 1).
func DecodeWAV(r io.ReadSeeker) (Signal, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return Signal{}, fmt.Errorf("invalid wav file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("failed to read pcm data: %w", err)
	}

	channels := int(decoder.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		return Signal{}, fmt.Errorf("wav file declares %d channels", channels)
	}

	bitDepth := int(decoder.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}

	var scale, offset float64
	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned.
		scale, offset = 128, 128
	case 16, 24, 32:
		scale = float64(int64(1) << (bitDepth - 1))
	default:
		return Signal{}, fmt.Errorf("unsupported wav bit depth: %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, frames)
	}
	for i := range frames {
		for c := range channels {
			out[c][i] = (float64(buf.Data[i*channels+c]) - offset) / scale
		}
	}

	return NewSignal(int(decoder.SampleRate), out...), nil
}

// DecodeMP3 decodes an MP3 stream. The decoder always produces 16-bit
// little-endian stereo.
func DecodeMP3(r io.Reader) (Signal, error) {
	decoder, err := mp3.NewDecoder(bufio.NewReader(r))
	if err != nil {
		return Signal{}, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}

	var left, right []float64
	if n := decoder.Length(); n > 0 {
		left = make([]float64, 0, n/4)
		right = make([]float64, 0, n/4)
	}

	buffer := make([]byte, 8192)
	var carry []byte
	for {
		n, err := decoder.Read(buffer)
		chunk := append(carry, buffer[:n]...)
		whole := len(chunk) - len(chunk)%4
		for i := 0; i < whole; i += 4 {
			l := int16(binary.LittleEndian.Uint16(chunk[i:]))
			r := int16(binary.LittleEndian.Uint16(chunk[i+2:]))
			left = append(left, float64(l)/32768)
			right = append(right, float64(r)/32768)
		}
		carry = append(carry[:0], chunk[whole:]...)

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Signal{}, fmt.Errorf("failed to read mp3 frames: %w", err)
		}
	}

	return NewSignal(decoder.SampleRate(), left, right), nil
}
