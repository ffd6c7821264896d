// Package api exposes the session and mint state over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/mint"
	"github.com/vietddude/epicmint/internal/session"
)

// Backend is the application surface served over HTTP.
type Backend interface {
	Snapshot() domain.Snapshot

	// Connect blocks until the wallet answers the authorization request
	Connect(ctx context.Context) error

	// StartMint begins a mint attempt in the background
	StartMint() error
}

// HealthStatus is the coarse state reported on /health.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
)

// Server provides the HTTP endpoints.
type Server struct {
	backend Backend
	server  *http.Server
	log     *slog.Logger
}

// NewServer creates a new API server.
func NewServer(backend Backend, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{
		backend: backend,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		log: log.With("component", "api"),
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /connect", s.handleConnect)
	mux.HandleFunc("POST /mint", s.handleMint)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server. It returns nil after Stop.
func (s *Server) Start() error {
	s.log.Info("API server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.backend.Snapshot()
	status := StatusHealthy
	if snap.View.State == domain.ViewNoProvider || snap.Session.Error.HasKind(domain.ErrorWrongNetwork) {
		status = StatusDegraded
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Snapshot())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Connect(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.backend.Snapshot())
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.StartMint(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.backend.Snapshot())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrProviderMissing):
		code = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, mint.ErrInFlight),
		errors.Is(err, mint.ErrNoBinding),
		errors.Is(err, session.ErrNotConnected):
		code = http.StatusConflict
	default:
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
