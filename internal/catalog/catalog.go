// SPDX-License-Identifier: MIT
//
// Package catalog holds the static reference data served next to an
// analysis: chord progressions per key, a curated song list and artist key
// profiles.
package catalog

import (
	"sort"
	"strings"

	"sessionkey/internal/analysis"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Result limits for song searches.
const (
	DefaultLimit = 20
	MaxLimit     = 50

	// Popularity given to songs that only come from the analysis history.
	historyPopularity = 50
)

// Song is a track with a known key.
type Song struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	BPM        int    `json:"bpm"`
	Genre      string `json:"genre"`
	Popularity int    `json:"popularity"`
}

// ArtistSong is a track listed in an artist profile.
type ArtistSong struct {
	Title      string `json:"title"`
	Key        string `json:"key"`
	BPM        int    `json:"bpm"`
	Popularity int    `json:"popularity"`
}

// BPMRange summarizes the tempos an artist works in.
type BPMRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
	Avg int `json:"avg"`
}

// ArtistProfile describes the keys and tempos an artist favors.
type ArtistProfile struct {
	Name            string       `json:"artist"`
	MostUsedKeys    []string     `json:"most_used_keys"`
	BPMRange        BPMRange     `json:"bpm_range"`
	PreferredGenres []string     `json:"preferred_genres"`
	TopSongs        []ArtistSong `json:"top_songs"`
	Source          string       `json:"source"`
}

// SongSource supplies extra songs for a key, typically recognized songs
// from earlier analyses.
type SongSource interface {
	SongsByKey(key string, limit int) []Song
}

// Catalog answers key and artist lookups. The zero value serves only the
// curated tables.
type Catalog struct {
	history SongSource
}

// New creates a catalog that tops up short song lists from history, which
// may be nil.
func New(history SongSource) *Catalog {
	return &Catalog{history: history}
}

// NormalizeKey converts loosely written key names to the canonical form
// used throughout the service: "a minor", "Am" and "A min" all become
// "A Minor", and flats are spelled as sharps ("Bb major" is "A# Major").
func NormalizeKey(name string) (string, bool) {
	fields := strings.Fields(name)
	var note, mode string
	switch len(fields) {
	case 1:
		note, mode = fields[0], "major"
		if n := len(note); n > 1 && note[n-1] == 'm' {
			note, mode = note[:n-1], "minor"
		}
	case 2:
		note, mode = fields[0], fields[1]
	default:
		return "", false
	}

	switch strings.ToLower(mode) {
	case "major", "maj":
		mode = "Major"
	case "minor", "min":
		mode = "Minor"
	default:
		return "", false
	}

	tonic, m, ok := analysis.ParseKeyName(cases.Title(language.English).String(note) + " " + mode)
	if !ok {
		return "", false
	}
	return analysis.KeyName(tonic, m), true
}

// SongsByKey returns curated songs in key, most popular first, optionally
// filtered by genre ("" or "all" keeps every genre). Short lists are
// topped up from the history source. limit is clamped to [1, MaxLimit].
func (c *Catalog) SongsByKey(key, genre string, limit int) []Song {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	canonical, ok := NormalizeKey(key)
	if !ok {
		return nil
	}

	fold := cases.Fold()
	filter := fold.String(strings.TrimSpace(genre))
	var songs []Song
	for _, s := range curatedSongs[canonical] {
		if filter == "" || filter == "all" || strings.Contains(fold.String(s.Genre), filter) {
			songs = append(songs, s)
		}
	}
	sort.SliceStable(songs, func(i, j int) bool { return songs[i].Popularity > songs[j].Popularity })

	if c != nil && c.history != nil && len(songs) < limit {
		songs = append(songs, c.history.SongsByKey(canonical, limit-len(songs))...)
	}
	if len(songs) > limit {
		songs = songs[:limit]
	}
	return songs
}

// Artist looks up a curated artist profile, ignoring case.
func Artist(name string) (ArtistProfile, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	for _, p := range artistProfiles {
		if fold.String(p.Name) == want {
			p.Source = "curated"
			return p, true
		}
	}
	return ArtistProfile{}, false
}

// HistorySong wraps a recognized track from the analysis history. Genre is
// not known for these.
func HistorySong(title, artist string, bpm int) Song {
	return Song{Title: title, Artist: artist, BPM: bpm, Genre: "Unknown", Popularity: historyPopularity}
}

// Stats reports the size of the curated tables.
func Stats() (songs, artists, keys int) {
	for _, s := range curatedSongs {
		songs += len(s)
	}
	return songs, len(artistProfiles), len(progressions)
}
