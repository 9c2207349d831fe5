// SPDX-License-Identifier: MIT
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"sessionkey/internal/catalog"
	"sessionkey/internal/decode"
	"sessionkey/internal/log"
	"sessionkey/internal/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("Server: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody reads a small JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		if r.ContentLength > s.opts.MaxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "audio file too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "audio file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "Invalid file")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	clip := decode.Clip{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	res, err := s.deps.Analyzer.Analyze(r.Context(), clip)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	var inputErr *pipeline.InputError
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "server busy, retry later")
	case errors.As(err, &inputErr):
		status := http.StatusBadRequest
		if errors.Is(err, decode.ErrUnsupported) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, inputErr.Err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debugf("Server: analysis abandoned: %v", err)
		writeError(w, http.StatusServiceUnavailable, "analysis cancelled")
	default:
		log.Errorf("Server: analysis failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type searchByKeyRequest struct {
	Key   string `json:"key"`
	Genre string `json:"genre"`
	Limit int    `json:"limit"`
}

type searchByKeyResponse struct {
	Success bool           `json:"success"`
	Key     string         `json:"key"`
	Genre   string         `json:"genre"`
	Songs   []catalog.Song `json:"songs"`
	Total   int            `json:"total"`
}

func (s *Server) handleSearchByKey(w http.ResponseWriter, r *http.Request) {
	var req searchByKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "Key is required")
		return
	}
	if req.Genre == "" {
		req.Genre = "all"
	}

	// A key we cannot parse simply has no songs.
	key, songs := req.Key, []catalog.Song{}
	if normalized, ok := catalog.NormalizeKey(req.Key); ok {
		key = normalized
		if found := s.deps.Catalog.SongsByKey(key, req.Genre, req.Limit); found != nil {
			songs = found
		}
	}
	writeJSON(w, http.StatusOK, searchByKeyResponse{
		Success: true,
		Key:     key,
		Genre:   req.Genre,
		Songs:   songs,
		Total:   len(songs),
	})
}

type artistResponse struct {
	Success bool `json:"success"`
	catalog.ArtistProfile
}

func (s *Server) handleSearchArtist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Artist string `json:"artist"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Artist == "" {
		writeError(w, http.StatusBadRequest, "Artist name is required")
		return
	}

	profile, ok := catalog.Artist(req.Artist)
	if !ok {
		writeError(w, http.StatusNotFound, "Artist not found")
		return
	}
	writeJSON(w, http.StatusOK, artistResponse{Success: true, ArtistProfile: profile})
}

type progressionsResponse struct {
	Success           bool     `json:"success"`
	Key               string   `json:"key"`
	ChordProgressions []string `json:"chord_progressions"`
}

func (s *Server) handleChordProgressions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "Key is required")
		return
	}
	resp := progressionsResponse{Success: true, Key: req.Key, ChordProgressions: []string{}}
	if key, ok := catalog.NormalizeKey(req.Key); ok {
		resp.Key = key
		if progs := catalog.ChordProgressions(key); progs != nil {
			resp.ChordProgressions = progs
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version,omitempty"`
	Services map[string]bool `json:"services"`
	Workers  int             `json:"workers,omitempty"`
	Queued   int             `json:"queued"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "healthy",
		Version:  s.deps.Version,
		Services: s.deps.Services,
	}
	if resp.Services == nil {
		resp.Services = map[string]bool{}
	}
	if p := s.deps.Pool; p != nil {
		resp.Workers = p.Workers()
		resp.Queued = p.Queued()
	}
	writeJSON(w, http.StatusOK, resp)
}
