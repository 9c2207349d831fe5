// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// ConfidenceSharpness is the softmax inverse temperature applied to the
	// correlation scores before taking the top-two probability margin.
	ConfidenceSharpness = 10.0

	// TieTolerance is the score distance below which two keys count as tied.
	// Ties are resolved in favor of the major key.
	TieTolerance = 1e-6

	silenceEpsilon  = 1e-12
	varianceEpsilon = 1e-18
)

// KeyCandidate is one key with its Pearson correlation score in [-1, 1].
type KeyCandidate struct {
	Tonic int
	Mode  Mode
	Score float64
}

// Name returns e.g. "A Minor".
func (k KeyCandidate) Name() string {
	return KeyName(k.Tonic, k.Mode)
}

// Relative returns the relative major/minor key, with no score.
func (k KeyCandidate) Relative() KeyCandidate {
	tonic, mode := RelativeKey(k.Tonic, k.Mode)
	return KeyCandidate{Tonic: tonic, Mode: mode}
}

// KeyEstimate is the ranked result of a key estimation. Confidence is on a
// 0-100 scale. An undetermined estimate carries no candidates and zero
// confidence.
type KeyEstimate struct {
	Candidates []KeyCandidate
	Confidence float64
	Determined bool
}

// Best returns the winning key.
func (e KeyEstimate) Best() (KeyCandidate, bool) {
	if !e.Determined || len(e.Candidates) == 0 {
		return KeyCandidate{}, false
	}
	return e.Candidates[0], true
}

// Alternatives returns up to n runner-up keys whose score exceeds minScore.
func (e KeyEstimate) Alternatives(n int, minScore float64) []KeyCandidate {
	if !e.Determined || n <= 0 {
		return nil
	}
	end := min(1+n, len(e.Candidates))
	var out []KeyCandidate
	for _, c := range e.Candidates[1:end] {
		if c.Score > minScore {
			out = append(out, c)
		}
	}
	return out
}

// EstimateKey correlates a chroma vector against the 24 key templates.
//
// The estimate is undetermined when the chroma is silent or flat, or when
// no key correlates positively. Confidence is 100 * (p0 - p1) where p is
// the softmax of ConfidenceSharpness * score over all 24 keys, so it is
// zero for an exact tie and shrinks as the runner-ups close in.
func EstimateKey(chroma ChromaVector) KeyEstimate {
	if chroma.Silent() || stat.Variance(chroma[:], nil) < varianceEpsilon {
		return KeyEstimate{}
	}

	candidates := make([]KeyCandidate, len(templates))
	for i, t := range templates {
		score := stat.Correlation(chroma[:], t.Profile[:], nil)
		if math.IsNaN(score) {
			return KeyEstimate{}
		}
		candidates[i] = KeyCandidate{Tonic: t.Tonic, Mode: t.Mode, Score: score}
	}

	rankCandidates(candidates)

	if candidates[0].Score <= 0 {
		return KeyEstimate{}
	}

	return KeyEstimate{
		Candidates: candidates,
		Confidence: softmaxMargin(candidates),
		Determined: true,
	}
}

// rankCandidates sorts by descending score. When a major key scores
// within TieTolerance of the leader it moves to the front and the rest
// keep their order.
func rankCandidates(c []KeyCandidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Score > c[j].Score })
	if len(c) == 0 || c[0].Mode == Major {
		return
	}
	for i := 1; i < len(c) && c[0].Score-c[i].Score <= TieTolerance; i++ {
		if c[i].Mode == Major {
			major := c[i]
			copy(c[1:i+1], c[:i])
			c[0] = major
			return
		}
	}
}

func softmaxMargin(ranked []KeyCandidate) float64 {
	if len(ranked) < 2 {
		return 100
	}
	top := ranked[0].Score
	var z float64
	for _, c := range ranked {
		z += math.Exp(ConfidenceSharpness * (c.Score - top))
	}
	p0 := 1 / z
	p1 := math.Exp(ConfidenceSharpness*(ranked[1].Score-top)) / z
	return math.Max(0, math.Min(100, 100*(p0-p1)))
}
