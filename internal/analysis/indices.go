// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"soundlab/internal/dsp"

	"gonum.org/v1/gonum/floats"
)

// FrequencyBand defines the name and half-open frequency range [LowHz,
// HighHz) of an energy band.
type FrequencyBand struct {
	Name   string  `json:"name" yaml:"name"`
	LowHz  float64 `json:"lowHz" yaml:"lowHz"`
	HighHz float64 `json:"highHz" yaml:"highHz"`
}

// SoundscapeBands are the bands reported as a share of total energy.
var SoundscapeBands = []FrequencyBand{
	{Name: "anthrophony", LowHz: 0, HighHz: 2000},
	{Name: "lowBiophony", LowHz: 2000, HighHz: 4000},
	{Name: "midBiophony", LowHz: 4000, HighHz: 8000},
	{Name: "highBiophony", LowHz: 8000, HighHz: 16000},
	{Name: "ultrasonic", LowHz: 16000, HighHz: 22050},
}

// NDSI bands.
var (
	ndsiAnthrophony = FrequencyBand{Name: "anthrophony", LowHz: 1000, HighHz: 2000}
	ndsiBiophony    = FrequencyBand{Name: "biophony", LowHz: 2000, HighHz: 8000}
)

// AcousticIndices summarises a spectrogram.
type AcousticIndices struct {
	ACI              float64 `json:"aci" yaml:"aci"`
	NDSI             float64 `json:"ndsi" yaml:"ndsi"`
	Biophony         float64 `json:"biophony" yaml:"biophony"`
	Anthrophony      float64 `json:"anthrophony" yaml:"anthrophony"`
	Entropy          float64 `json:"entropy" yaml:"entropy"`
	PeakFrequency    float64 `json:"peakFrequency" yaml:"peakFrequency"`
	SpectralCentroid float64 `json:"spectralCentroid" yaml:"spectralCentroid"`
}

// BandShare is one band's share of the total spectrogram energy.
type BandShare struct {
	FrequencyBand `yaml:",inline"`
	Percentage    float64 `json:"percentage" yaml:"percentage"`
}

// ComputeIndices is the acoustic index aggregator. spectrogram holds one
// magnitude slice per frame and frequencies the shared bin table; all
// magnitudes must be nonnegative.
//
//	ACI     Σ_f Σ_t |S[t,f]-S[t-1,f]| / Σ_f Σ_t S[t,f]
//	NDSI    (bio-anthro)/(bio+anthro), each band sum / (bins·frames)
//	entropy mean per-frame normalized spectral entropy
//
// Peak frequency and centroid are taken from the time-averaged spectrum.
// Every quotient with a zero denominator is 0.
func ComputeIndices(spectrogram [][]float64, frequencies []float64) AcousticIndices {
	var idx AcousticIndices
	if len(spectrogram) == 0 || len(frequencies) == 0 {
		return idx
	}
	bins := len(frequencies)
	frames := float64(len(spectrogram))

	// --- 1. ACI ---
	var diff, total float64
	for t, frame := range spectrogram {
		total += floats.Sum(frame)
		if t == 0 {
			continue
		}
		prev := spectrogram[t-1]
		for f := range bins {
			diff += math.Abs(frame[f] - prev[f])
		}
	}
	if total > 0 {
		idx.ACI = diff / total
	}

	// --- 2. NDSI ---
	idx.Anthrophony = normalizedBandEnergy(spectrogram, frequencies, ndsiAnthrophony)
	idx.Biophony = normalizedBandEnergy(spectrogram, frequencies, ndsiBiophony)
	if sum := idx.Biophony + idx.Anthrophony; sum > 0 {
		idx.NDSI = (idx.Biophony - idx.Anthrophony) / sum
	}

	// --- 3. Entropy ---
	var entropy float64
	for _, frame := range spectrogram {
		entropy += dsp.SpectralEntropy(frame)
	}
	idx.Entropy = entropy / frames

	// --- 4. Time-averaged spectrum ---
	mean := MeanSpectrum(spectrogram)
	if peak := dsp.PeakBin(mean); peak >= 0 && mean[peak] > 0 {
		idx.PeakFrequency = frequencies[peak]
	}
	idx.SpectralCentroid = dsp.SpectralCentroid(mean, frequencies)

	return idx
}

// MeanSpectrum averages a spectrogram over time.
func MeanSpectrum(spectrogram [][]float64) []float64 {
	if len(spectrogram) == 0 {
		return nil
	}
	mean := make([]float64, len(spectrogram[0]))
	for _, frame := range spectrogram {
		floats.Add(mean, frame)
	}
	floats.Scale(1/float64(len(spectrogram)), mean)
	return mean
}

// BandShares reports each band's percentage of the total magnitude of the
// spectrogram. A silent spectrogram gives 0 for every band.
func BandShares(spectrogram [][]float64, frequencies []float64, bands []FrequencyBand) []BandShare {
	shares := make([]BandShare, len(bands))
	var total float64
	for i, band := range bands {
		shares[i].FrequencyBand = band
		for _, frame := range spectrogram {
			e, _ := dsp.BandEnergy(frame, frequencies, band.LowHz, band.HighHz)
			shares[i].Percentage += e
		}
	}
	for _, frame := range spectrogram {
		total += floats.Sum(frame)
	}
	for i := range shares {
		if total > 0 {
			shares[i].Percentage = shares[i].Percentage / total * 100
		} else {
			shares[i].Percentage = 0
		}
	}
	return shares
}

func normalizedBandEnergy(spectrogram [][]float64, frequencies []float64, band FrequencyBand) float64 {
	var energy float64
	bins := 0
	for _, frame := range spectrogram {
		e, n := dsp.BandEnergy(frame, frequencies, band.LowHz, band.HighHz)
		energy += e
		bins = n
	}
	if bins == 0 {
		return 0
	}
	return energy / float64(bins*len(spectrogram))
}

// TemporalVariation returns the RMS of each one-second block of samples.
// A trailing partial block is included.
func TemporalVariation(samples []float64, sampleRate int) []float64 {
	if sampleRate <= 0 {
		return nil
	}
	out := make([]float64, 0, len(samples)/sampleRate+1)
	for start := 0; start < len(samples); start += sampleRate {
		end := min(start+sampleRate, len(samples))
		out = append(out, dsp.RMS(samples[start:end]))
	}
	return out
}
