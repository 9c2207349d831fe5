// SPDX-License-Identifier: MIT
package catalog

import (
	"strings"

	"sessionkey/internal/analysis"
)

type quality int

const (
	majorChord quality = iota
	minorChord
	diminishedChord
)

// scale is one mode's degrees as semitones above the tonic with the triad
// built on each. The minor scale uses the harmonic minor's major V.
type scale struct {
	steps     [7]int
	qualities [7]quality
	patterns  [][]int // progressions as 0-based scale degrees
}

var scales = map[analysis.Mode]scale{
	analysis.Major: {
		steps:     [7]int{0, 2, 4, 5, 7, 9, 11},
		qualities: [7]quality{majorChord, minorChord, minorChord, majorChord, majorChord, minorChord, diminishedChord},
		patterns:  [][]int{{0, 4, 5, 3}, {0, 3, 4, 0}, {0, 5, 1, 4}, {3, 0, 4, 5}},
	},
	analysis.Minor: {
		steps:     [7]int{0, 2, 3, 5, 7, 8, 10},
		qualities: [7]quality{minorChord, diminishedChord, majorChord, minorChord, majorChord, majorChord, majorChord},
		patterns:  [][]int{{0, 4, 5, 2}, {0, 3, 4, 0}, {0, 5, 2, 6}, {3, 0, 4, 0}},
	},
}

// progressions maps every canonical key name to its common progressions.
var progressions = buildProgressions()

func buildProgressions() map[string][]string {
	out := make(map[string][]string, 24)
	for _, t := range analysis.Templates() {
		sc := scales[t.Mode]
		list := make([]string, 0, len(sc.patterns))
		for _, pattern := range sc.patterns {
			chords := make([]string, len(pattern))
			for i, degree := range pattern {
				chords[i] = chordName((t.Tonic+sc.steps[degree])%12, sc.qualities[degree])
			}
			list = append(list, strings.Join(chords, " - "))
		}
		out[t.Name()] = list
	}
	return out
}

func chordName(root int, q quality) string {
	name := analysis.PitchClassNames[root]
	switch q {
	case minorChord:
		return name + "m"
	case diminishedChord:
		return name + "dim"
	}
	return name
}

// ChordProgressions returns common progressions for key, e.g.
// "C - G - Am - F" for C Major. Unknown keys return nil.
func ChordProgressions(key string) []string {
	canonical, ok := NormalizeKey(key)
	if !ok {
		return nil
	}
	return append([]string(nil), progressions[canonical]...)
}
