// SPDX-License-Identifier: MIT

// Package cmd is the soundlab command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"soundlab/internal/config"
	"soundlab/internal/log"
	"soundlab/pkg/build"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment variables that stand in for flags:
// --fft-size is read from SOUNDLAB_FFT_SIZE when not passed.
const envPrefix = "SOUNDLAB"

// app carries the state shared by every command of one invocation.
type app struct {
	cfg        *config.Config
	configPath string
	verbose    bool
	env        *viper.Viper
}

// Execute runs the command line with args (without the program name). The
// error, if any, has already been printed to stderr.
func Execute(ctx context.Context, args []string) error {
	path := configPathFromArgs(args)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}

	a := newApp(cfg, path)
	root := a.rootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		a.printError(os.Stderr, err)
		return err
	}
	return nil
}

func newApp(cfg *config.Config, path string) *app {
	env := viper.New()
	env.SetEnvPrefix(envPrefix)
	env.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	env.AutomaticEnv()
	return &app{cfg: cfg, configPath: path, env: env}
}

// configPathFromArgs finds --config before the command tree exists, so the
// file can supply flag defaults.
func configPathFromArgs(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	path := fs.String("config", "", "")
	_ = fs.Parse(args)
	if *path == "" {
		return os.Getenv(envPrefix + "_CONFIG")
	}
	return *path
}

func (a *app) rootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.String("config", a.configPath,
		"Config file (default searches soundlab.yaml, config.yaml)")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel,
		"Log level (debug, info, warn, error)")
	pf.BoolVarP(&a.verbose, "verbose", "v", a.cfg.Debug,
		"Debug logging and stack traces on failure")

	for _, c := range []*cobra.Command{
		a.analyzeCommand(modeTranscribe),
		a.analyzeCommand(modeSoundscape),
		a.analyzeCommand(modeMicrotonal),
		a.analyzeCommand(modeLinguistics),
		a.serveCommand(),
		a.synthCommand(),
		a.scalesCommand(),
	} {
		rootCmd.AddCommand(c)
	}
	return rootCmd
}

// initialize applies environment fallbacks to flags, sets the log level
// and validates the merged configuration.
func (a *app) initialize(cmd *cobra.Command) error {
	if err := bindFlags(cmd, a.env); err != nil {
		return xerrors.New(err)
	}

	level, ok := log.ParseLevel(a.cfg.LogLevel)
	if !ok {
		return fmt.Errorf("invalid log level '%s'", a.cfg.LogLevel)
	}
	if a.verbose || a.cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// bindFlags gives every flag the user did not pass the value of its
// SOUNDLAB_* environment variable, if set.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" || f.Name == "version" {
			return
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.GetString(f.Name)
			if err := cmd.Flags().Set(f.Name, val); err != nil {
				lastErr = fmt.Errorf("environment value for --%s: %w", f.Name, err)
			} else {
				log.Debugf("Config: --%s set from environment: %s", f.Name, val)
			}
		}
	})

	return lastErr
}

func (a *app) printError(w io.Writer, err error) {
	if a.verbose {
		fmt.Fprint(w, xerrors.Sprint(err))
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
