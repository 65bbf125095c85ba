// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
)

// Inter-onset interval limits and histogram resolution, in seconds.
const (
	minIOI         = 0.05
	maxIOI         = 2.0
	ioiBucketWidth = 0.01

	minBPM = 40.0
	maxBPM = 240.0
)

// DetectTempo estimates a tempo from ascending onset times. Intervals
// outside (0.05, 2.0) s are ignored; the rest are bucketed at 10 ms and
// the modal bucket (the shorter interval on ties) gives the beat period.
// The result is folded by octaves into [40, 240] BPM. It returns false
// when no interval qualifies.
func DetectTempo(onsets []float64) (float64, bool) {
	counts := map[int]int{}
	for i := 1; i < len(onsets); i++ {
		ioi := onsets[i] - onsets[i-1]
		if ioi <= minIOI || ioi >= maxIOI {
			continue
		}
		counts[int(math.Floor(ioi/ioiBucketWidth))]++
	}
	if len(counts) == 0 {
		return 0, false
	}

	best, bestCount := -1, 0
	for bucket, n := range counts {
		if n > bestCount || (n == bestCount && bucket < best) {
			best, bestCount = bucket, n
		}
	}

	period := (float64(best) + 0.5) * ioiBucketWidth
	return foldBPM(60 / period), true
}

func foldBPM(bpm float64) float64 {
	for bpm < minBPM {
		bpm *= 2
	}
	for bpm > maxBPM {
		bpm /= 2
	}
	return math.Round(bpm*10) / 10
}

// TimeSignature accumulates note velocities on beat positions modulo 3 and
// modulo 4 and picks the meter whose downbeats are louder relative to the
// mean accent. Ties and empty input give "4/4".
func TimeSignature(notes []NoteEvent, bpm float64) string {
	if bpm <= 0 || len(notes) == 0 {
		return "4/4"
	}
	beat := 60 / bpm

	var total float64
	var down3, down4 float64
	var n3, n4 int
	for _, n := range notes {
		idx := int(math.Round(n.StartTime / beat))
		accent := float64(n.Velocity)
		total += accent
		if idx%3 == 0 {
			down3 += accent
			n3++
		}
		if idx%4 == 0 {
			down4 += accent
			n4++
		}
	}
	mean := total / float64(len(notes))
	if mean == 0 {
		return "4/4"
	}

	score := func(down float64, n int) float64 {
		if n == 0 {
			return 0
		}
		return down / float64(n) / mean
	}
	if score(down3, n3) > score(down4, n4) {
		return "3/4"
	}
	return "4/4"
}
