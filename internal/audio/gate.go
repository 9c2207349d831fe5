// SPDX-License-Identifier: MIT
package audio

import "math"

// SetGateThreshold adjusts the level below which a take is reported as silent.
// The value is in the range of 0.0-1.0 of full scale.
func (r *Recorder) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	r.gateThreshold = int32(threshold * float64(math.MaxInt32))
}

// GetGateThreshold returns the current gate threshold in the range 0.0-1.0.
func (r *Recorder) GetGateThreshold() float64 {
	return float64(r.gateThreshold) / float64(math.MaxInt32)
}

// peakAmplitude returns the largest absolute sample. The loop is branchless;
// it works in int64 so that math.MinInt32 does not overflow.
func peakAmplitude(buffer []int32) int64 {
	var maxAmplitude int64
	for i := range buffer {
		sample := int64(buffer[i])
		mask := sample >> 63
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += diff &^ (diff >> 63)
	}
	return maxAmplitude
}
