// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tempo search range and the octave folding window applied to the result.
const (
	DefaultBPM  = 120.0
	MinBPM      = 50.0
	MaxBPM      = 220.0
	FoldLowBPM  = 70.0
	FoldHighBPM = 180.0

	// Multiples of the beat period used to refine the estimate.
	maxRefineMultiple = 4
	// A multiple weaker than this fraction of the best lag stops refinement.
	refineFloor = 0.5
)

// TempoEstimate is an advisory tempo. Confidence is in [0, 1].
type TempoEstimate struct {
	BPM        float64
	Confidence float64
}

// OnsetEnvelope records the total spectral magnitude of each frame.
type OnsetEnvelope struct {
	energy []float64
}

// NewOnsetEnvelope preallocates room for the expected number of frames.
func NewOnsetEnvelope(frames int) *OnsetEnvelope {
	return &OnsetEnvelope{energy: make([]float64, 0, frames)}
}

// Process appends the frame energy.
func (o *OnsetEnvelope) Process(frame SpectralFrame) {
	o.energy = append(o.energy, floats.Sum(frame.Magnitudes))
}

// Energies returns the per-frame energies collected so far.
func (o *OnsetEnvelope) Energies() []float64 {
	return o.energy
}

// EstimateTempo finds the dominant beat period of a per-frame energy curve
// sampled every hop samples.
//
// The onset strength is the half-wave rectified energy difference with its
// mean removed. The strongest autocorrelation lag in the MinBPM..MaxBPM
// range is refined with parabolic interpolation and then against its
// second to fourth multiples, which keeps the sub-frame precision that a
// single peak cannot give. Silent or too short input returns DefaultBPM
// with zero confidence.
func EstimateTempo(energy []float64, hop int, sampleRate float64) TempoEstimate {
	fallback := TempoEstimate{BPM: DefaultBPM}
	if hop <= 0 || sampleRate <= 0 || len(energy) < 4 {
		return fallback
	}

	onset := onsetStrength(energy)
	n := len(onset)
	hopSeconds := float64(hop) / sampleRate

	r0 := autocorrelation(onset, 0)
	lo := max(1, int(math.Ceil(60/(MaxBPM*hopSeconds))))
	hi := min(int(math.Floor(60/(MinBPM*hopSeconds))), n-2)
	if r0 <= 0 || hi < lo {
		return fallback
	}

	best, bestR := strongestLag(onset, lo, hi)
	if bestR <= 0 {
		return fallback
	}

	period := interpolateLag(onset, best)
	for k := 2; k <= maxRefineMultiple; k++ {
		center := int(math.Round(float64(k) * period))
		from, to := max(center-k, 1), center+k
		if to > n-2 {
			break
		}
		lag, r := strongestLag(onset, from, to)
		if r < refineFloor*bestR {
			break
		}
		period = interpolateLag(onset, lag) / float64(k)
	}

	bpm := 60 / (period * hopSeconds)
	for bpm < FoldLowBPM {
		bpm *= 2
	}
	for bpm > FoldHighBPM {
		bpm /= 2
	}

	return TempoEstimate{
		BPM:        bpm,
		Confidence: math.Max(0, math.Min(1, bestR/r0)),
	}
}

func onsetStrength(energy []float64) []float64 {
	onset := make([]float64, len(energy))
	for i := 1; i < len(energy); i++ {
		onset[i] = math.Max(0, energy[i]-energy[i-1])
	}
	floats.AddConst(-floats.Sum(onset)/float64(len(onset)), onset)
	return onset
}

// autocorrelation is the unbiased estimate, normalized by the overlap.
func autocorrelation(x []float64, lag int) float64 {
	n := len(x)
	if lag < 0 || lag >= n {
		return 0
	}
	return floats.Dot(x[:n-lag], x[lag:]) / float64(n-lag)
}

func strongestLag(x []float64, from, to int) (int, float64) {
	best, bestR := from, autocorrelation(x, from)
	for lag := from + 1; lag <= to; lag++ {
		if r := autocorrelation(x, lag); r > bestR {
			best, bestR = lag, r
		}
	}
	return best, bestR
}

// interpolateLag fits a parabola through the autocorrelation around lag
// and returns the fractional position of its peak.
func interpolateLag(x []float64, lag int) float64 {
	a := autocorrelation(x, lag-1)
	b := autocorrelation(x, lag)
	c := autocorrelation(x, lag+1)
	d := a - 2*b + c
	if d >= 0 {
		return float64(lag)
	}
	return float64(lag) + 0.5*(a-c)/d
}
