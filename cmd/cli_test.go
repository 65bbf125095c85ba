// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"soundlab/internal/analysis"
	"soundlab/internal/config"
	"soundlab/internal/log"
	"soundlab/internal/transport/udp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// run executes the command tree against the built-in defaults.
func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { log.SetLevel(log.LevelInfo) })

	cfg := config.Default()
	a := newApp(&cfg, "")
	root := a.rootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// synth writes a test file and returns its path.
func synth(t *testing.T, name, freqs string, seconds string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	_, err := run(t, context.Background(), "synth", "--freq", freqs, "--duration", seconds, "--out", path)
	require.NoError(t, err)
	return path
}

func TestSynthThenTranscribe(t *testing.T) {
	path := synth(t, "tones.wav", "440,880", "1")

	out, err := run(t, context.Background(), "transcribe", path, "--output", "json")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out), out)

	assert.Equal(t, path, gjson.Get(out, "0.file").String())
	assert.Equal(t, "transcription", gjson.Get(out, "0.mode").String())
	assert.Equal(t, int64(2), gjson.Get(out, "0.result.notes.#").Int())
	assert.Equal(t, []int64{69, 81}, []int64{
		gjson.Get(out, "0.result.notes.0.midi").Int(),
		gjson.Get(out, "0.result.notes.1.midi").Int(),
	})
	assert.InDelta(t, 2.0, gjson.Get(out, "0.result.duration").Float(), 1e-3)
}

func TestTranscribeKeepsArgumentOrder(t *testing.T) {
	low := synth(t, "low.wav", "440", "0.5")
	high := synth(t, "high.wav", "880", "0.5")

	out, err := run(t, context.Background(), "transcription", high, low, high, "-o", "json", "--jobs", "2")
	require.NoError(t, err)

	files := gjson.Get(out, "#.file").Array()
	require.Len(t, files, 3)
	assert.Equal(t, high, files[0].String())
	assert.Equal(t, low, files[1].String())
	assert.Equal(t, int64(69), gjson.Get(out, "1.result.notes.0.midi").Int())
	assert.Equal(t, int64(81), gjson.Get(out, "2.result.notes.0.midi").Int())
}

func TestSoundscapeSpectrogramFlag(t *testing.T) {
	path := synth(t, "tone.wav", "3000", "0.5")

	for _, withSpec := range []bool{false, true} {
		args := []string{"soundscape", path, "--output", "yaml"}
		if withSpec {
			args = append(args, "--spectrogram")
		}
		out, err := run(t, context.Background(), args...)
		require.NoError(t, err)

		var doc []map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		require.Len(t, doc, 1)
		result, ok := doc[0]["result"].(map[string]any)
		require.True(t, ok)
		_, ok = result["spectrogram"]
		assert.Equal(t, withSpec, ok)
		assert.Contains(t, result, "indices")
	}
}

func TestOutFile(t *testing.T) {
	path := synth(t, "tone.wav", "440", "0.5")
	report := filepath.Join(t.TempDir(), "report.txt")

	out, err := run(t, context.Background(), "microtonal", path, "--out-file", report)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Microtonal")
	assert.Contains(t, string(data), "441 Hz")
}

func TestLinguisticsTable(t *testing.T) {
	path := synth(t, "voice.wav", "200,0,220", "0.4")
	out, err := run(t, context.Background(), "linguistics", path)
	require.NoError(t, err)
	for _, want := range []string{"Linguistics", "Prosody", "Rhythm", "Vowel space"} {
		assert.Contains(t, out, want)
	}
}

// Not parallel: uses t.Setenv.
func TestEnvironmentFillsUnsetFlags(t *testing.T) {
	path := synth(t, "tone.wav", "440", "0.5")

	t.Setenv("SOUNDLAB_FFT_SIZE", "1000")
	_, err := run(t, context.Background(), "transcribe", path)
	require.Error(t, err)
	assert.True(t, analysis.IsConfigurationError(err))
	assert.Equal(t, analysis.CodeUnsupportedValue, analysis.ErrorCode(err))

	// A flag on the command line wins over the environment.
	_, err = run(t, context.Background(), "transcribe", path, "--fft-size", "4096")
	assert.NoError(t, err)

	t.Setenv("SOUNDLAB_FFT_SIZE", "lots")
	_, err = run(t, context.Background(), "transcribe", path, "-o", "json")
	assert.ErrorContains(t, err, "--fft-size")
}

func TestLogLevelFlags(t *testing.T) {
	_, err := run(t, context.Background(), "scales", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, log.LevelError, log.GetLevel())

	_, err = run(t, context.Background(), "scales", "--log-level", "error", "-v")
	require.NoError(t, err)
	assert.Equal(t, log.LevelDebug, log.GetLevel())

	_, err = run(t, context.Background(), "scales", "--log-level", "loud")
	assert.Error(t, err)
}

func TestScalesCommand(t *testing.T) {
	out, err := run(t, context.Background(), "scales")
	require.NoError(t, err)
	for _, want := range []string{"Scale sets", "Detector templates", "major", "pentatonic_minor", "slendro", "maqam_bayati"} {
		assert.Contains(t, out, want)
	}
}

func TestCommandErrors(t *testing.T) {
	path := synth(t, "tone.wav", "440", "0.5")
	missing := filepath.Join(t.TempDir(), "missing.wav")

	tests := []struct {
		desc string
		args []string
		want string
	}{
		{"No input files", []string{"transcribe"}, "requires at least 1 arg"},
		{"Missing file", []string{"soundscape", missing}, "missing.wav"},
		{"Bad output format", []string{"transcribe", path, "-o", "xml"}, "output.format"},
		{"Too many jobs", []string{"transcribe", path, "--jobs", "1000"}, "jobs"},
		{"Bad option", []string{"microtonal", path, "--frequency-min", "0"}, "frequencyMin"},
		{"Synth amplitude", []string{"synth", "--amplitude", "2", "--out", filepath.Join(t.TempDir(), "x.wav")}, "--amplitude"},
		{"Synth above Nyquist", []string{"synth", "--freq", "30000", "--out", filepath.Join(t.TempDir(), "x.wav")}, "30000"},
		{"Synth bit depth", []string{"synth", "--bit-depth", "12", "--out", filepath.Join(t.TempDir(), "x.wav")}, "bit depth"},
		{"Unknown command", []string{"karaoke"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := run(t, context.Background(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUDPPublishing(t *testing.T) {
	path := synth(t, "tone.wav", "3000", "0.5")

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	var events, frames int
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 65536)
		for {
			_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, _, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			if gjson.ValidBytes(buf[:n]) {
				events++
				continue
			}
			if _, err := udp.DecodeSpectrumPacket(buf[:n]); err == nil {
				frames++
			}
		}
	}()

	_, err = run(t, context.Background(), "soundscape", path, "-o", "json",
		"--udp", pc.LocalAddr().String(), "--udp-interval", "1ms")
	require.NoError(t, err)

	<-done
	assert.Positive(t, events, "progress/result events")
	assert.Positive(t, frames, "spectrogram frames")
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := run(t, ctx, "serve", "--addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "Listening on ws://127.0.0.1:")
}

func TestConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"transcribe", "--config", "a.yaml", "x.wav"}, "a.yaml"},
		{[]string{"--config=b.yaml", "scales"}, "b.yaml"},
		{[]string{"transcribe", "--fft-size", "4096", "-o", "json", "--config", "c.yaml"}, "c.yaml"},
		{[]string{"transcribe", "x.wav", "--help"}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, configPathFromArgs(tt.args), strings.Join(tt.args, " "))
	}

	t.Setenv("SOUNDLAB_CONFIG", "env.yaml")
	assert.Equal(t, "env.yaml", configPathFromArgs([]string{"scales"}))
	assert.Equal(t, "flag.yaml", configPathFromArgs([]string{"scales", "--config", "flag.yaml"}))
}

func TestPrintError(t *testing.T) {
	cfg := config.Default()
	a := newApp(&cfg, "")

	var buf bytes.Buffer
	a.printError(&buf, errors.New("boom"))
	assert.Equal(t, "error: boom\n", buf.String())

	buf.Reset()
	a.verbose = true
	_, err := run(t, context.Background(), "soundscape", filepath.Join(t.TempDir(), "gone.wav"))
	require.Error(t, err)
	a.printError(&buf, err)
	assert.Contains(t, buf.String(), "gone.wav")
	assert.Greater(t, strings.Count(buf.String(), "\n"), 1, "verbose output carries a stack trace")
}
