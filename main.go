// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"soundlab/cmd"
	"soundlab/internal/log"
	"soundlab/pkg/build"

	"github.com/joho/godotenv"
)

// main wires process concerns around the command line:
//
//  1. Startup: build information, .env loading.
//  2. Run: the selected command under a context cancelled by SIGINT/SIGTERM.
//  3. Exit: non-zero status when the command failed.
func main() {
	// Development builds lack linker flags; report and carry on.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v", err)
	}

	// A .env file is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Config: failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:])
	stop()

	if err != nil {
		os.Exit(1)
	}
}
