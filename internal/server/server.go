// SPDX-License-Identifier: MIT
//
// Package server exposes the analysis pipeline and the catalog over HTTP.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"sessionkey/internal/catalog"
	"sessionkey/internal/decode"
	"sessionkey/internal/log"
	"sessionkey/internal/pipeline"

	"github.com/google/uuid"
)

const (
	shutdownTimeout = 10 * time.Second
	// Multipart parts beyond this are spooled to disk.
	multipartMemory = 8 << 20
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, clip decode.Clip) (*pipeline.Result, error)
}

// Options holds the HTTP settings.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Deps are the collaborators of a Server. Analyzer is required.
type Deps struct {
	Analyzer  Analyzer
	Catalog   *catalog.Catalog
	WebSocket http.Handler    // Mounted at /ws when set.
	Pool      *pipeline.Pool  // Reported by /health when set.
	Services  map[string]bool // Optional collaborators and whether they are enabled.
	Version   string
}

// Server is the HTTP front end.
type Server struct {
	opts    Options
	deps    Deps
	handler http.Handler
}

// New builds the server and its routes.
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, errors.New("server: analyzer is required")
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.New(nil)
	}

	s := &Server{opts: opts, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /search_by_key", s.handleSearchByKey)
	mux.HandleFunc("POST /search_artist", s.handleSearchArtist)
	mux.HandleFunc("POST /get_chord_progressions", s.handleChordProgressions)
	mux.HandleFunc("GET /health", s.handleHealth)
	if deps.WebSocket != nil {
		mux.Handle("GET /ws", deps.WebSocket)
	}

	s.handler = logRequests(corsMiddleware(mux))
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server: listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed by the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("server: response writer cannot be hijacked")
	}
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"request_id": uuid.NewString(),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"elapsed":    time.Since(start).Round(time.Microsecond),
		}).Debug("Server: request")
	})
}
