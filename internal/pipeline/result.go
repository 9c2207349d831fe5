// SPDX-License-Identifier: MIT
package pipeline

import (
	"math"
	"time"

	"sessionkey/internal/analysis"
	"sessionkey/internal/catalog"
	"sessionkey/internal/recognition"
	"sessionkey/internal/store"
	"sessionkey/internal/transport"

	"github.com/google/uuid"
)

// Key status values.
const (
	KeyDetermined   = "determined"
	KeyUndetermined = "undetermined"

	// UndeterminedKey is reported in place of a key name.
	UndeterminedKey = "Undetermined"
)

// Outcome is what the DSP stages produce for one clip.
type Outcome struct {
	Chroma   analysis.ChromaVector
	Key      analysis.KeyEstimate
	Tempo    analysis.TempoEstimate
	Duration time.Duration
}

// Result is the response for one analysis. It is not modified after
// Assemble returns it.
type Result struct {
	ID                string    `json:"id"`
	Key               string    `json:"key"`
	KeyConfidence     float64   `json:"key_confidence"`
	KeyStatus         string    `json:"key_status"`
	RelativeKey       string    `json:"relative_key,omitempty"`
	AlternativeKeys   []string  `json:"alternative_keys"`
	BPM               int       `json:"bpm"`
	BPMConfidence     float64   `json:"bpm_confidence"`
	ChordProgressions []string  `json:"chord_progressions"`
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
	Status            string    `json:"status"`

	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	CoverArtURL string `json:"cover_art_url,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	SpotifyURL  string `json:"spotify_url,omitempty"`

	Chroma analysis.ChromaVector `json:"-"`
}

// Determined reports whether a key was detected.
func (r *Result) Determined() bool {
	return r.KeyStatus == KeyDetermined
}

// Assemble merges the DSP outcome and the optional recognition match into
// a Result. A key whose confidence is below the configured floor is
// reported as undetermined; its confidence is still reported.
func Assemble(id string, at time.Time, out Outcome, match *recognition.Match, opts Options) *Result {
	r := &Result{
		ID:                id,
		Key:               UndeterminedKey,
		KeyStatus:         KeyUndetermined,
		KeyConfidence:     round(out.Key.Confidence, 1),
		AlternativeKeys:   []string{},
		BPM:               int(math.Round(out.Tempo.BPM)),
		BPMConfidence:     round(out.Tempo.Confidence, 2),
		ChordProgressions: []string{},
		AnalysisTimestamp: at,
		Status:            store.StatusNotRecognized,
		Chroma:            out.Chroma,
	}

	if best, ok := out.Key.Best(); ok && out.Key.Confidence >= opts.MinConfidence {
		r.Key = best.Name()
		r.KeyStatus = KeyDetermined
		r.RelativeKey = best.Relative().Name()
		for _, alt := range out.Key.Alternatives(opts.Alternatives, opts.AlternativeMinScore) {
			r.AlternativeKeys = append(r.AlternativeKeys, alt.Name())
		}
		if progs := catalog.ChordProgressions(r.Key); progs != nil {
			r.ChordProgressions = progs
		}
	}

	if match != nil {
		r.Status = store.StatusRecognized
		r.Title = match.Title
		r.Artist = match.Artist
		r.Album = match.Album
		r.CoverArtURL = match.CoverArtURL
		r.ReleaseDate = match.ReleaseDate
		r.SpotifyURL = match.SpotifyURL
	}
	return r
}

// Record converts the result into a history record.
func (r *Result) Record() store.Record {
	rec := store.Record{
		Timestamp:  r.AnalysisTimestamp,
		Key:        r.Key,
		BPM:        r.BPM,
		Confidence: r.KeyConfidence,
		Status:     r.Status,
		Title:      r.Title,
		Artist:     r.Artist,
	}
	if id, err := uuid.Parse(r.ID); err == nil {
		rec.ID = id
	}
	if !r.Determined() {
		rec.Key = ""
	}
	return rec
}

// Event converts the result into a transport event.
func (r *Result) Event() transport.AnalysisEvent {
	return transport.AnalysisEvent{
		Type:          transport.EventAnalysis,
		ID:            r.ID,
		Timestamp:     r.AnalysisTimestamp,
		Key:           r.Key,
		KeyConfidence: r.KeyConfidence,
		BPM:           float64(r.BPM),
		BPMConfidence: r.BPMConfidence,
		Chroma:        r.Chroma,
		Status:        r.Status,
		Title:         r.Title,
		Artist:        r.Artist,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
