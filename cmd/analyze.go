// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"soundlab/internal/analysis"
	"soundlab/internal/audio"
	"soundlab/internal/log"
	"soundlab/internal/report"
	"soundlab/internal/transport"
	"soundlab/internal/transport/udp"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// modeCommand describes one analysis subcommand.
type modeCommand struct {
	use   string
	mode  analysis.Mode
	short string
}

var (
	modeTranscribe  = modeCommand{"transcribe", analysis.ModeTranscription, "Detect note events (pitch, onset, duration, velocity)"}
	modeSoundscape  = modeCommand{"soundscape", analysis.ModeSoundscape, "Compute a spectrogram and ecoacoustic indices"}
	modeMicrotonal  = modeCommand{"microtonal", analysis.ModeMicrotonal, "Build a pitch histogram and detect the scale"}
	modeLinguistics = modeCommand{"linguistics", analysis.ModeLinguistics, "Measure prosody, rhythm, voice activity and vowel space"}
)

func (a *app) analyzeCommand(m modeCommand) *cobra.Command {
	var udpAddr string

	cmd := &cobra.Command{
		Use:     m.use + " <file>...",
		Short:   m.short,
		Aliases: aliases(m),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if udpAddr != "" {
				a.cfg.Transport.UDPEnabled = true
				a.cfg.Transport.UDPTargetAddress = udpAddr
			}
			return a.runAnalysis(cmd.Context(), cmd.OutOrStdout(), m.mode, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&a.cfg.Output.Format, "output", "o", a.cfg.Output.Format,
		"Output format: table, json, yaml")
	fs.StringVar(&a.cfg.Output.File, "out-file", a.cfg.Output.File,
		"Write the report to this file instead of stdout")
	fs.IntVarP(&a.cfg.Jobs, "jobs", "j", a.cfg.Jobs,
		"Files analysed concurrently")
	fs.StringVar(&udpAddr, "udp", "",
		"Publish events (and soundscape frames) to host:port over UDP")
	fs.DurationVar(&a.cfg.Transport.UDPSendInterval, "udp-interval", a.cfg.Transport.UDPSendInterval,
		"Interval between replayed spectrogram frames")
	if m.mode == analysis.ModeSoundscape {
		fs.BoolVar(&a.cfg.Output.Spectrogram, "spectrogram", a.cfg.Output.Spectrogram,
			"Include the full spectrogram in the report")
	}
	addAnalysisFlags(fs, &a.cfg.Analysis)
	return cmd
}

func aliases(m modeCommand) []string {
	if string(m.mode) != m.use {
		return []string{string(m.mode)}
	}
	return nil
}

// runAnalysis analyses every file with up to cfg.Jobs running at once and
// writes one report holding all results in argument order.
func (a *app) runAnalysis(ctx context.Context, stdout io.Writer, mode analysis.Mode, files []string) error {
	format, err := report.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	analyzer, err := analysis.Lookup(string(mode))
	if err != nil {
		return err
	}

	events := transport.Multi{transport.NewLoggingTransport()}
	var publisher *udp.Publisher
	if a.cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(a.cfg.Transport.UDPTargetAddress)
		if err != nil {
			return xerrors.New(err)
		}
		publisher, err = udp.NewPublisher(sender)
		if err != nil {
			sender.Close()
			return xerrors.New(err)
		}
		events = append(events, publisher)
	}
	defer events.Close()

	entries := make([]report.Entry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Jobs)

	for i, path := range files {
		g.Go(func() error {
			result, err := a.analyzeFile(gctx, analyzer, path, events, publisher)
			if err != nil {
				_ = events.Send(transport.ErrorEvent("", path, mode, err))
				_ = events.Send(transport.CompleteEvent("", path, mode, true))
				return xerrors.New(fmt.Errorf("%s: %w", path, err))
			}
			_ = events.Send(transport.ResultEvent("", path, mode, result))
			_ = events.Send(transport.CompleteEvent("", path, mode, false))
			entries[i] = report.Entry{File: path, Mode: mode, Result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := stdout
	if a.cfg.Output.File != "" {
		f, err := os.Create(a.cfg.Output.File)
		if err != nil {
			return xerrors.New(fmt.Errorf("failed to create report file: %w", err))
		}
		defer f.Close()
		out = f
	}
	if err := report.Write(out, format, entries); err != nil {
		return xerrors.New(err)
	}
	if a.cfg.Output.File != "" {
		log.Infof("Report: wrote %d result(s) to %s", len(entries), a.cfg.Output.File)
	}
	return nil
}

func (a *app) analyzeFile(ctx context.Context, analyzer analysis.Analyzer, path string, events transport.Transport, publisher *udp.Publisher) (any, error) {
	start := time.Now()
	sig, err := audio.Decode(path)
	if err != nil {
		return nil, err
	}

	opts := a.cfg.Analysis
	opts.Progress = transport.ProgressTo(events, "", path)
	result, err := analyzer.Analyze(ctx, sig, opts)
	if err != nil {
		return nil, err
	}

	if sr, ok := result.(*analysis.SoundscapeResult); ok {
		if publisher != nil && sr.Spectrogram != nil {
			if err := publisher.Replay(ctx, sr.Spectrogram.Magnitudes, a.cfg.Transport.UDPSendInterval); err != nil {
				return nil, fmt.Errorf("spectrogram replay: %w", err)
			}
		}
		if !a.cfg.Output.Spectrogram {
			sr.Spectrogram = nil
		}
	}

	log.WithFields(log.Fields{
		"file":     path,
		"mode":     analyzer.Mode(),
		"duration": sig.Duration(),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Debugf("Analysis: finished %s", path)
	return result, nil
}
