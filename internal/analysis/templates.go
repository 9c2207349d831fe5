// SPDX-License-Identifier: MIT
package analysis

import "gonum.org/v1/gonum/floats"

// TemplateVersion identifies the profile table below. Bump it whenever the
// weights change so stored results can be told apart.
const TemplateVersion = "krumhansl-kessler/1"

// Mode is the scale mode of a key.
type Mode int

const (
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	if m == Minor {
		return "Minor"
	}
	return "Major"
}

// Krumhansl-Kessler probe-tone ratings, tonic first.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyTemplate is a profile rotated to a tonic and normalized to zero mean
// and unit norm.
type KeyTemplate struct {
	Tonic   int
	Mode    Mode
	Profile [12]float64
}

// Name returns e.g. "F# Minor".
func (t KeyTemplate) Name() string {
	return KeyName(t.Tonic, t.Mode)
}

// templates holds the 24 keys, majors C..B then minors C..B. Built once and
// never written again, so it is safe to share between analyses.
var templates = buildTemplates()

func buildTemplates() [24]KeyTemplate {
	var out [24]KeyTemplate
	for i, mode := range []Mode{Major, Minor} {
		base := majorProfile
		if mode == Minor {
			base = minorProfile
		}
		norm := zNormalize(base)
		for tonic := range 12 {
			t := KeyTemplate{Tonic: tonic, Mode: mode}
			for pc := range 12 {
				t.Profile[pc] = norm[(pc-tonic+12)%12]
			}
			out[i*12+tonic] = t
		}
	}
	return out
}

func zNormalize(p [12]float64) [12]float64 {
	mean := floats.Sum(p[:]) / 12
	floats.AddConst(-mean, p[:])
	if n := floats.Norm(p[:], 2); n > 0 {
		floats.Scale(1/n, p[:])
	}
	return p
}

// Templates returns a copy of the 24 key templates.
func Templates() []KeyTemplate {
	out := make([]KeyTemplate, len(templates))
	copy(out, templates[:])
	return out
}

// KeyName formats a tonic pitch class and mode.
func KeyName(tonic int, mode Mode) string {
	return PitchClassNames[((tonic%12)+12)%12] + " " + mode.String()
}

// RelativeKey returns the key sharing the same pitch collection: a major
// key's relative minor sits a major sixth above, a minor key's relative
// major a minor third above.
func RelativeKey(tonic int, mode Mode) (int, Mode) {
	if mode == Major {
		return (tonic + 9) % 12, Minor
	}
	return (tonic + 3) % 12, Major
}

// ParseKeyName is the inverse of KeyName. Flats are accepted for the
// black keys ("Bb Major" == "A# Major").
func ParseKeyName(name string) (int, Mode, bool) {
	var note, mode string
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ' ' {
			note, mode = name[:i], name[i+1:]
			break
		}
	}
	var m Mode
	switch mode {
	case "Major":
		m = Major
	case "Minor":
		m = Minor
	default:
		return 0, 0, false
	}
	for pc, n := range PitchClassNames {
		if n == note {
			return pc, m, true
		}
	}
	if pc, ok := flatNames[note]; ok {
		return pc, m, true
	}
	return 0, 0, false
}

var flatNames = map[string]int{"Db": 1, "Eb": 3, "Gb": 6, "Ab": 8, "Bb": 10}
