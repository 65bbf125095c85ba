// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"soundlab/internal/analysis"
	"soundlab/internal/log"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool             `yaml:"debug"`     // Enable debug logging.
	LogLevel  string           `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Jobs      int              `yaml:"jobs"`      // Input files analysed concurrently.
	Output    OutputConfig     `yaml:"output"`    // Result rendering.
	Transport TransportConfig  `yaml:"transport"` // Event publishing (UDP, websocket).
	Analysis  analysis.Options `yaml:"analysis"`  // Engine options, camelCase keys.
}

// OutputConfig holds settings related to how results are rendered.
type OutputConfig struct {
	Format      string `yaml:"format"`      // "table", "json" or "yaml".
	File        string `yaml:"file"`        // Write results here instead of stdout.
	Spectrogram bool   `yaml:"spectrogram"` // Keep the full spectrogram in soundscape results.
}

// TransportConfig holds settings related to sending analysis events over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish events and spectrogram frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between spectrogram packets.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address of the serve command.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Jobs:     DefaultJobs,
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WebSocketAddress: DefaultWebSocketAddress,
		},
		Analysis: analysis.DefaultOptions(),
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches SearchPaths. If no file is found, it uses built-in defaults. Keys
// missing from the file keep their defaults. After loading, it applies
// environment variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range SearchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the shell settings and then the analysis options.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level '%s' is not one of debug, info, warn, error, fatal", c.LogLevel)
	}
	if !slices.Contains(OutputFormats, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("output.format '%s' is not one of %v", c.Output.Format, OutputFormats)
	}
	if c.Jobs < 1 || c.Jobs > MaxJobs {
		return fmt.Errorf("jobs must be in [1, %d], got %d", MaxJobs, c.Jobs)
	}

	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid: %w", c.Transport.UDPTargetAddress, err)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WebSocketAddress == "" {
		return fmt.Errorf("transport.websocket_address must be set")
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

// applyEnvOverrides reads SOUNDLAB_* variables. Unparseable values are
// ignored with a warning.
func (c *Config) applyEnvOverrides() {
	boolEnv := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				log.Warnf("Config: ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = b
			log.Debugf("Config: overriding from %s: %v", key, b)
		}
	}
	stringEnv := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			log.Debugf("Config: overriding from %s: %s", key, val)
		}
	}

	// SOUNDLAB_{...}
	// These are general overrides.
	boolEnv("SOUNDLAB_DEBUG", &c.Debug)
	stringEnv("SOUNDLAB_LOG_LEVEL", &c.LogLevel)
	stringEnv("SOUNDLAB_OUTPUT_FORMAT", &c.Output.Format)
	if val, ok := os.LookupEnv("SOUNDLAB_JOBS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Jobs = n
			log.Debugf("Config: overriding from SOUNDLAB_JOBS: %d", n)
		} else {
			log.Warnf("Config: ignoring SOUNDLAB_JOBS=%q: %v", val, err)
		}
	}

	// SOUNDLAB_UDP_{...}
	// These are specific to the transport layer.
	boolEnv("SOUNDLAB_UDP_ENABLED", &c.Transport.UDPEnabled)
	stringEnv("SOUNDLAB_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("SOUNDLAB_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Debugf("Config: overriding from SOUNDLAB_UDP_SEND_INTERVAL: %s", dur)
		} else {
			log.Warnf("Config: ignoring SOUNDLAB_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
	stringEnv("SOUNDLAB_WEBSOCKET_ADDRESS", &c.Transport.WebSocketAddress)
}
