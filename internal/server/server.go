// Package server implements the Hrana v2 HTTP transport and its lifecycle:
// health/version/pipeline endpoints, the baton session registry, ownership
// of the database handle, and single-instance eviction before binding.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kimaki/hranad/internal/evict"
	"github.com/kimaki/hranad/internal/hrana"
	"github.com/kimaki/hranad/internal/storage"
)

// Config holds the transport settings for creating a Server.
type Config struct {
	// Port is the fixed, well-known port to bind (and the eviction target).
	// Port 0 binds an ephemeral port and skips eviction; used in tests.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBodyBytes int64
	SessionTTL          time.Duration
}

// Server is the Hrana HTTP server. Start and Stop are idempotent; at most
// one database handle is open per Server.
type Server struct {
	cfg     Config
	evictor *evict.Evictor
	logger  *slog.Logger
	version string

	mu       sync.Mutex
	db       *storage.DB
	registry *hrana.Registry
	httpSrv  *http.Server
	handler  http.Handler
	url      string
}

// StartError reports a definitive start failure, carrying the port and a
// human-readable reason.
type StartError struct {
	Port   int
	Reason string
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("server: start on port %d: %s: %v", e.Port, e.Reason, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// New creates a Server. Nothing is bound or opened until Start.
func New(cfg Config, evictor *evict.Evictor, logger *slog.Logger, version string) *Server {
	return &Server{cfg: cfg, evictor: evictor, logger: logger, version: version}
}

// Start evicts any prior instance, opens the database handle, binds the
// listener and returns the base URL. Calling Start on an already-started
// Server is a no-op returning the existing URL.
func (s *Server) Start(ctx context.Context, dbPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.url != "" {
		return s.url, nil
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", &StartError{Port: s.cfg.Port, Reason: "create database directory", Err: err}
		}
	}

	if s.cfg.Port != 0 {
		s.evictor.Evict(ctx, fmt.Sprintf("http://127.0.0.1:%d/health", s.cfg.Port))
	}

	db, err := storage.Open(ctx, dbPath, s.logger)
	if err != nil {
		return "", &StartError{Port: s.cfg.Port, Reason: "open database", Err: err}
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.cfg.Port))
	if err != nil {
		// Don't leak an open file handle on a failed start.
		_ = db.Close()
		return "", &StartError{Port: s.cfg.Port, Reason: "bind listener (port may still be in use)", Err: err}
	}

	registry := hrana.NewRegistry(s.cfg.SessionTTL)
	handler := s.routes(db, registry)

	httpSrv := &http.Server{
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()

	s.db = db
	s.registry = registry
	s.httpSrv = httpSrv
	s.handler = handler
	s.url = fmt.Sprintf("http://127.0.0.1:%d", ln.Addr().(*net.TCPAddr).Port)

	s.logger.Info("hrana server ready", "url", s.url, "db", dbPath)
	return s.url, nil
}

// Stop closes the listener, then the database handle, and clears all
// published state. Stopping an already-stopped Server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.url == "" {
		return nil
	}
	s.logger.Info("hrana server shutting down")

	var firstErr error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		firstErr = err
	}
	s.registry.Close()
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.db = nil
	s.registry = nil
	s.httpSrv = nil
	s.handler = nil
	s.url = ""
	return firstErr
}

// URL returns the base URL, or empty if the server is not started.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Handler returns the root HTTP handler for use in tests, or nil if the
// server is not started.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

// routes wires the protocol endpoints behind the middleware chain.
func (s *Server) routes(db *storage.DB, registry *hrana.Registry) http.Handler {
	h := &handlers{
		db:       db,
		registry: registry,
		logger:   s.logger,
		version:  s.version,
		maxBody:  s.cfg.MaxRequestBodyBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /v2", h.handleVersion)
	mux.HandleFunc("POST /v2/pipeline", h.handlePipeline)
	// Everything else is 404 with an empty body.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(s.logger, handler)
	handler = loggingMiddleware(s.logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}
