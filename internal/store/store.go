// SPDX-License-Identifier: MIT
//
// Package store keeps the history of completed analyses. Recognized songs
// in the history supplement the curated song-by-key search.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sessionkey/internal/catalog"

	"github.com/google/uuid"
)

// Recognition status values stored with each record.
const (
	StatusRecognized    = "recognized"
	StatusNotRecognized = "not_recognized"
)

// Record is one completed analysis.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Key        string    `json:"key"`
	BPM        int       `json:"bpm"`
	Confidence float64   `json:"confidence"`
	Status     string    `json:"status"`
	Title      string    `json:"title,omitempty"`
	Artist     string    `json:"artist,omitempty"`
}

// Store is an append-only list of records, optionally persisted as a JSON
// file. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	path    string
	records []Record
}

var _ catalog.SongSource = (*Store)(nil)

// NewMemory creates a store that is never written to disk.
func NewMemory() *Store {
	return &Store{}
}

// Open loads the history file at path, creating an empty history when it
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return s, nil
}

// Add appends a record, filling in a missing ID and timestamp, and returns
// the stored copy. Records without a key or tempo are ignored.
func (s *Store) Add(r Record) (Record, error) {
	if r.Key == "" || r.BPM <= 0 {
		return r, nil
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = StatusNotRecognized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
	if err := s.save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return r, err
	}
	return r, nil
}

// save writes the whole history through a temporary file so a crash never
// leaves a half written file behind. Caller holds the lock.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// RecognizedByKey returns up to limit recognized records in key, oldest
// first.
func (s *Store) RecognizedByKey(key string, limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.records {
		if len(out) >= limit {
			break
		}
		if r.Key == key && r.Status == StatusRecognized && r.Title != "" && r.Artist != "" {
			out = append(out, r)
		}
	}
	return out
}

// SongsByKey implements catalog.SongSource.
func (s *Store) SongsByKey(key string, limit int) []catalog.Song {
	records := s.RecognizedByKey(key, limit)
	songs := make([]catalog.Song, len(records))
	for i, r := range records {
		songs[i] = catalog.HistorySong(r.Title, r.Artist, r.BPM)
	}
	return songs
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Path returns the backing file, or "" for a memory store.
func (s *Store) Path() string {
	return s.path
}
