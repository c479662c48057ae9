// Package engine serves a stub registry over real HTTP, for clients that
// cannot be hooked in-process (other processes, containers, CI services).
// Matched stubs are written as responses; unmatched requests get a 404
// with a JSON near-miss payload.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/registry"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":4280". ":0" picks a free port.
	Addr string

	// Logger is the operational logger. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Server exposes a registry over HTTP.
type Server struct {
	cfg Config
	reg *registry.Registry
	log *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// NewServer creates a server for the given registry.
func NewServer(cfg Config, reg *registry.Registry) *Server {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":4280"
	}
	return &Server{cfg: cfg, reg: reg, log: log}
}

// Handler returns the HTTP handler serving the registry. Useful with
// httptest in tests.
func (s *Server) Handler() http.Handler {
	return &Handler{Registry: s.reg, Log: s.log}
}

// Start begins listening and serving in a background goroutine.
// It also starts the registry, so fixture-loaded stubs resolve. Idempotent.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.Handler()}
	s.running = true

	s.reg.Start()
	s.log.Info("stub server listening", "addr", listener.Addr().String(), "stubs", len(s.reg.Stubs()))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server and the registry.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.reg.Stop()
	return s.httpServer.Shutdown(ctx)
}
