// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// TrimSilence drops leading and trailing samples quieter than topDB below
// the clip peak. Silent clips are returned unchanged, as is any clip where
// trimming would leave fewer than minSamples.
func TrimSilence(pcm PCM, topDB float64, minSamples int) PCM {
	if topDB <= 0 || len(pcm.Samples) == 0 {
		return pcm
	}

	peak := floats.Norm(pcm.Samples, math.Inf(1))
	if peak < silenceEpsilon {
		return pcm
	}
	threshold := peak * math.Pow(10, -topDB/20)

	start := 0
	for start < len(pcm.Samples) && math.Abs(pcm.Samples[start]) < threshold {
		start++
	}
	end := len(pcm.Samples)
	for end > start && math.Abs(pcm.Samples[end-1]) < threshold {
		end--
	}

	if end-start < minSamples || (start == 0 && end == len(pcm.Samples)) {
		return pcm
	}
	return PCM{Samples: pcm.Samples[start:end], SampleRate: pcm.SampleRate}
}
