// SPDX-License-Identifier: MIT
package audio

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Gate is a noise gate driven by per-frame RMS amplitudes. Each frame is
// judged on its own level: the gate is open for a frame whose amplitude is
// at least the threshold and closed otherwise.
type Gate struct {
	threshold float64
	closed    int
}

// NewGate returns a gate with the given threshold, clamped to [0,1].
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	return g
}

// SetThreshold adjusts the gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=closed for
// any signal below full scale.
func (g *Gate) SetThreshold(threshold float64) {
	g.threshold = min(max(threshold, 0), 1)
}

// Threshold returns the current threshold.
func (g *Gate) Threshold() float64 { return g.threshold }

// Process reports whether a frame with the given amplitude passes the gate.
func (g *Gate) Process(amplitude float64) bool {
	if amplitude < g.threshold {
		g.closed++
		return false
	}
	return true
}

// Closed returns the number of frames gated so far.
func (g *Gate) Closed() int { return g.closed }

// CalibrateThreshold derives a gate threshold from a set of frame
// amplitudes: twice their 25th percentile, clamped to [0,1]. An empty set
// yields 0.
func CalibrateThreshold(levels []float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	sorted := slices.Clone(levels)
	slices.Sort(sorted)
	q := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	return min(max(2*q, 0), 1)
}
