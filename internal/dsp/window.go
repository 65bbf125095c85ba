// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the weighting applied to a frame before analysis.
type WindowFunc int

// Enum for available window functions.
const (
	Rectangular WindowFunc = iota
	Hann
	Hamming
	Blackman
)

// String returns the canonical lower-case name of the window.
func (w WindowFunc) String() string {
	switch w {
	case Rectangular:
		return "rectangular"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Blackman:
		return "blackman"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. It
// returns Hann and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rectangular", "rect", "none":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// Coefficients returns the n window weights for w. The gonum windows are
// the symmetric forms, using n-1 in the cosine denominator:
//
//	hann     0.5 - 0.5cos(2πi/(n-1))
//	hamming  0.54 - 0.46cos(2πi/(n-1))
//	blackman 0.42 - 0.5cos(2πi/(n-1)) + 0.08cos(4πi/(n-1))
func Coefficients(w WindowFunc, n int) []float64 {
	coeffs := make([]float64, n)
	// The gonum window functions scale the slice in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	if n < 2 {
		return coeffs
	}
	switch w {
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	}
	return coeffs
}

// ApplyWindow writes frame·coeffs into dst and returns dst. dst is grown
// if it is too short.
func ApplyWindow(dst, frame, coeffs []float64) []float64 {
	if cap(dst) < len(frame) {
		dst = make([]float64, len(frame))
	}
	dst = dst[:len(frame)]
	for i, v := range frame {
		dst[i] = v * coeffs[i]
	}
	return dst
}
