// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ChromaVector is the energy of each pitch class, index 0 = C. A normalized
// vector sums to 1; a silent clip gives the zero vector.
type ChromaVector [12]float64

// PitchClassNames indexes pitch classes the same way as ChromaVector.
var PitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const (
	// DefaultChromaMinFrequency drops rumble and DC below the bass register.
	DefaultChromaMinFrequency = 80.0

	referenceA4 = 440.0
	pitchClassA = 9
)

// PitchClass maps a frequency to its nearest equal-tempered pitch class
// relative to A4 = 440 Hz. Non-positive frequencies return -1.
func PitchClass(freq float64) int {
	if freq <= 0 {
		return -1
	}
	semitones := int(math.Round(12 * math.Log2(freq/referenceA4)))
	return ((semitones+pitchClassA)%12 + 12) % 12
}

// Peak returns the strongest pitch class and its value.
func (c ChromaVector) Peak() (int, float64) {
	i := floats.MaxIdx(c[:])
	return i, c[i]
}

// Silent reports whether every component is effectively zero.
func (c ChromaVector) Silent() bool {
	return floats.Norm(c[:], math.Inf(1)) < silenceEpsilon
}

// Normalized returns the vector scaled to sum to 1, or the zero vector when
// the sum is zero.
func (c ChromaVector) Normalized() ChromaVector {
	sum := floats.Sum(c[:])
	if sum <= 0 {
		return ChromaVector{}
	}
	out := c
	floats.Scale(1/sum, out[:])
	return out
}

// ChromaAccumulator folds spectral frames into a clip-level chroma vector.
// Bins in [minFreq, maxFreq) contribute their magnitude to the pitch class
// nearest their center frequency.
type ChromaAccumulator struct {
	classes []int // pitch class per bin, -1 when the bin is ignored
	sums    ChromaVector
	frames  int
}

// NewChromaAccumulator precomputes the bin to pitch class mapping for the
// given spectrum. maxFreq <= 0 or above Nyquist means Nyquist.
func NewChromaAccumulator(spec *Spectrum, minFreq, maxFreq float64) *ChromaAccumulator {
	nyquist := spec.SampleRate() / 2
	if maxFreq <= 0 || maxFreq > nyquist {
		maxFreq = nyquist
	}

	classes := make([]int, spec.Bins())
	for k := range classes {
		f := spec.BinFrequency(k)
		if f < minFreq || f >= maxFreq {
			classes[k] = -1
			continue
		}
		classes[k] = PitchClass(f)
	}
	return &ChromaAccumulator{classes: classes}
}

// Process adds one spectral frame.
func (c *ChromaAccumulator) Process(frame SpectralFrame) {
	n := min(len(frame.Magnitudes), len(c.classes))
	for k := range n {
		if pc := c.classes[k]; pc >= 0 {
			c.sums[pc] += frame.Magnitudes[k]
		}
	}
	c.frames++
}

// Frames returns how many frames have been accumulated.
func (c *ChromaAccumulator) Frames() int {
	return c.frames
}

// Vector returns the normalized clip chroma.
func (c *ChromaAccumulator) Vector() ChromaVector {
	return c.sums.Normalized()
}
