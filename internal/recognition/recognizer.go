// SPDX-License-Identifier: MIT
//
// Package recognition identifies the song a clip was recorded from by
// asking an external fingerprinting service.
package recognition

import (
	"context"
	"errors"
)

// ErrNoMatch means the service answered but did not know the song.
var ErrNoMatch = errors.New("no match")

// Match describes an identified song.
type Match struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	SpotifyURL  string `json:"spotify_url,omitempty"`
	CoverArtURL string `json:"cover_art_url,omitempty"`
}

// Recognizer identifies a clip. Implementations must honor ctx and be safe
// for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (*Match, error)
}

// Noop never recognizes anything. It is used when no service is configured.
type Noop struct{}

// Recognize always returns ErrNoMatch.
func (Noop) Recognize(context.Context, []byte) (*Match, error) {
	return nil, ErrNoMatch
}

// Func adapts a plain function into a Recognizer.
type Func func(ctx context.Context, audio []byte) (*Match, error)

// Recognize calls fn.
func (fn Func) Recognize(ctx context.Context, audio []byte) (*Match, error) {
	return fn(ctx, audio)
}

var (
	_ Recognizer = Noop{}
	_ Recognizer = Func(nil)
	_ Recognizer = (*ACRCloud)(nil)
)
