// SPDX-License-Identifier: MIT

// Package report renders analysis results for people (styled tables) and
// for programs (JSON, YAML).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"soundlab/internal/analysis"

	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTable:
		return "table"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat converts a configuration name (case-insensitive).
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatTable, fmt.Errorf("unknown output format: '%s'", name)
	}
}

// Entry is the result of analysing one file.
type Entry struct {
	File   string        `json:"file" yaml:"file"`
	Mode   analysis.Mode `json:"mode" yaml:"mode"`
	Result any           `json:"result" yaml:"result"`
}

// Write renders entries to w in the given format. JSON and YAML emit a
// single document holding every entry.
func Write(w io.Writer, format Format, entries []Entry) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()

	case FormatTable:
		for i, e := range entries {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			out, err := Render(e)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, out); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported output format %s", format)
	}
}
