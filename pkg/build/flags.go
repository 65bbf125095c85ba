// SPDX-License-Identifier: MIT
//
// Package build holds the identity of the binary: name, description, build
// time, commit and version. Values are injected with linker flags, e.g.
//
//	go build -ldflags "-X soundlab/pkg/build.buildVersion=v0.3.0 \
//	    -X soundlab/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X soundlab/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds fall back to the module and VCS metadata the Go
// toolchain embeds.
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders a one-line version banner.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

const (
	defaultName        = "soundlab"
	defaultDescription = "Offline audio analysis: transcription, soundscape, microtonal and linguistic measurements"
	unknown            = "unknown"
)

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = &Info{
	Name:        defaultName,
	Description: defaultDescription,
	Time:        unknown,
	Commit:      unknown,
	Version:     "dev",
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the linker values into Info. Missing values are filled
// from the embedded build metadata where possible; the returned error lists
// whatever is still unknown so callers can warn. Info stays usable either
// way.
func Initialize() error {
	if buildName != "" {
		info.Name = buildName
	}
	if buildTime != "" {
		info.Time = buildTime
	}
	if buildCommit != "" {
		info.Commit = buildCommit
	}
	if buildVersion != "" {
		info.Version = buildVersion
	}

	if bi, ok := readBuildInfo(); ok {
		if buildVersion == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if buildCommit == "" {
					info.Commit = shortCommit(s.Value)
				}
			case "vcs.time":
				if buildTime == "" {
					info.Time = s.Value
				}
			}
		}
	}

	var missing []string
	if info.Time == unknown {
		missing = append(missing, "BuildTime")
	}
	if info.Commit == unknown {
		missing = append(missing, "BuildCommit")
	}
	if len(missing) > 0 {
		return errors.New("build info incomplete: " + strings.Join(missing, ", ") + " not set")
	}
	return nil
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() Info {
	return *info
}
