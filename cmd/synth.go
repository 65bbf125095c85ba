// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"soundlab/internal/audio"
	"soundlab/internal/config"
	"soundlab/pkg/utils"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"
)

type synthOptions struct {
	frequencies []float64
	duration    float64
	amplitude   float64
	sampleRate  int
	bitDepth    int
	out         string
}

func (a *app) synthCommand() *cobra.Command {
	o := synthOptions{
		frequencies: []float64{440},
		duration:    1,
		amplitude:   config.DefaultSynthAmplitude,
		sampleRate:  config.DefaultSynthSampleRate,
		bitDepth:    config.DefaultSynthBitDepth,
		out:         "tone.wav",
	}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write test tones (one segment per frequency, 0 for silence) to a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd.OutOrStdout(), o)
		},
	}

	fs := cmd.Flags()
	fs.Float64SliceVar(&o.frequencies, "freq", o.frequencies, "Segment frequencies, Hz")
	fs.Float64Var(&o.duration, "duration", o.duration, "Seconds per segment")
	fs.Float64Var(&o.amplitude, "amplitude", o.amplitude, "Peak amplitude in (0,1]")
	fs.IntVar(&o.sampleRate, "sample-rate", o.sampleRate, "Sample rate, Hz")
	fs.IntVar(&o.bitDepth, "bit-depth", o.bitDepth, "Bits per sample: 16, 24 or 32")
	fs.StringVar(&o.out, "out", o.out, "Output WAV file")
	return cmd
}

func runSynth(stdout io.Writer, o synthOptions) error {
	switch {
	case len(o.frequencies) == 0:
		return fmt.Errorf("at least one --freq is required")
	case o.duration <= 0:
		return fmt.Errorf("--duration must be positive, got %g", o.duration)
	case o.amplitude <= 0 || o.amplitude > 1:
		return fmt.Errorf("--amplitude must be in (0,1], got %g", o.amplitude)
	case o.sampleRate < config.MinSampleRate || o.sampleRate > config.MaxSampleRate:
		return fmt.Errorf("--sample-rate must be in [%d, %d], got %d", config.MinSampleRate, config.MaxSampleRate, o.sampleRate)
	}
	for _, f := range o.frequencies {
		if f < 0 || f >= float64(o.sampleRate)/2 {
			return fmt.Errorf("frequency %g Hz is outside [0, %d)", f, o.sampleRate/2)
		}
	}

	samples := utils.GenerateTones(o.sampleRate, o.duration, o.amplitude, o.frequencies...)
	sig := audio.NewSignal(o.sampleRate, samples)
	if err := audio.WriteWAVFile(o.out, sig, o.bitDepth); err != nil {
		return xerrors.New(err)
	}
	fmt.Fprintf(stdout, "Wrote %s (%.2f s, %d Hz, %d-bit)\n", o.out, sig.Duration(), o.sampleRate, o.bitDepth)
	return nil
}
