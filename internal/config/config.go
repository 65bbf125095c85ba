// SPDX-License-Identifier: MIT

// Package config loads the application configuration: output and
// transport settings for the command line shell plus the analysis options
// handed to the engine.
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// of the command line shell.
const (
	DefaultLogLevel     = "info"
	DefaultOutputFormat = "table"
	DefaultJobs         = 4 // Files analysed concurrently.

	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30 spectrogram frames per second.
	DefaultWebSocketAddress = ":8080"

	// Test tone synthesis
	DefaultSynthSampleRate = 44100
	DefaultSynthBitDepth   = 16
	DefaultSynthAmplitude  = 0.5

	// Limits
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxJobs       = 64
)

// OutputFormats lists the accepted output.format values.
var OutputFormats = []string{"table", "json", "yaml"}

// SearchPaths are tried in order when LoadConfig is given no path.
var SearchPaths = []string{"soundlab.yaml", "config.yaml"}
