// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Grid is a rhythmic quantization grid.
type Grid int

const (
	GridNone Grid = iota
	GridQuarter
	GridEighth
	GridSixteenth
	GridThirtySecond
)

var gridNames = []string{"none", "quarter", "eighth", "sixteenth", "thirty-second"}

func (g Grid) String() string {
	if g >= 0 && int(g) < len(gridNames) {
		return gridNames[g]
	}
	return fmt.Sprintf("grid(%d)", int(g))
}

// Subdivisions returns the grid cells per beat, or 0 for GridNone.
func (g Grid) Subdivisions() int {
	switch g {
	case GridQuarter:
		return 1
	case GridEighth:
		return 2
	case GridSixteenth:
		return 4
	case GridThirtySecond:
		return 8
	default:
		return 0
	}
}

// ParseGrid converts a configuration name. "thirty_second" is accepted as
// an alias.
func ParseGrid(name string) (Grid, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if key == "" {
		return GridNone, nil
	}
	for i, n := range gridNames {
		if n == key {
			return Grid(i), nil
		}
	}
	return GridNone, fmt.Errorf("unknown quantization: '%s'", name)
}

// Quantizer snaps times to a grid at a fixed tempo.
type Quantizer struct {
	Grid  Grid
	Tempo float64 // Beats per minute.
}

// Step returns the grid spacing in seconds, or 0 when quantization is off.
func (q Quantizer) Step() float64 {
	sub := q.Grid.Subdivisions()
	if sub == 0 || q.Tempo <= 0 {
		return 0
	}
	return 60 / q.Tempo / float64(sub)
}

// Quantize rounds t to the nearest grid point. It is idempotent.
func (q Quantizer) Quantize(t float64) float64 {
	step := q.Step()
	if step == 0 {
		return t
	}
	return math.Round(t/step) * step
}
