// SPDX-License-Identifier: MIT
package decode

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	// Zero crossings of the sinc kernel on each side, per unit of
	// decimation ratio.
	lowPassZeros = 16
	// Passband edge as a fraction of the output Nyquist.
	lowPassCutoff = 0.9
)

// resample converts between rates by linear interpolation. When the rate
// goes down the input is first low-pass filtered below the new Nyquist so
// nothing folds back into the analysis band.
func resample(x []float64, from, to int) []float64 {
	if from == to || from <= 0 || to <= 0 || len(x) == 0 {
		return x
	}
	if to < from {
		x = lowPass(x, lowPassCutoff*0.5*float64(to)/float64(from), int(math.Ceil(float64(from)/float64(to))))
	}

	n := int(int64(len(x)) * int64(to) / int64(from))
	out := make([]float64, n)
	step := float64(from) / float64(to)
	last := len(x) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = x[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = x[j]*(1-frac) + x[j+1]*frac
	}
	return out
}

// lowPass filters x with a Blackman-windowed sinc whose cutoff is given in
// cycles per input sample. The signal is treated as zero outside its ends.
func lowPass(x []float64, cutoff float64, ratio int) []float64 {
	taps := lowPassTaps(cutoff, 2*lowPassZeros*ratio+1)
	half := len(taps) / 2

	padded := make([]float64, len(x)+2*half)
	copy(padded[half:], x)

	out := make([]float64, len(x))
	for i := range out {
		out[i] = floats.Dot(taps, padded[i:i+len(taps)])
	}
	return out
}

// lowPassTaps returns an odd-length linear-phase kernel with unit DC gain.
func lowPassTaps(cutoff float64, n int) []float64 {
	taps := make([]float64, n)
	mid := n / 2
	for i := range taps {
		t := float64(i - mid)
		if t == 0 {
			taps[i] = 2 * cutoff
			continue
		}
		taps[i] = math.Sin(2*math.Pi*cutoff*t) / (math.Pi * t)
	}
	window.Blackman(taps)
	floats.Scale(1/floats.Sum(taps), taps)
	return taps
}
