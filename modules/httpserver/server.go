package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/GoCodeAlone/servicetest/logging"
)

// Server is an HTTP server bound to a service's lifecycle: it starts
// listening on StartStage and shuts down on StopStage.
type Server struct {
	config  Config
	handler http.Handler
	logger  logging.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a server that serves handler once started.
func NewServer(cfg Config, handler http.Handler, logger logging.Logger) *Server {
	return &Server{
		config:  cfg,
		handler: handler,
		logger:  logging.OrNop(logger),
	}
}

// Start binds the listener and serves in the background. With port 0 the
// system picks a free port; Addr reports it once Start returns.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		// If server was shut down gracefully, err will be http.ErrServerClosed
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.server, s.listener, s.done = srv, ln, done
	s.logger.Info("HTTP server started", "address", ln.Addr().String())
	return nil
}

// Stop shuts the server down, waiting at most the configured shutdown
// timeout for open requests.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return ErrServerNotStarted
	}
	srv, done := s.server, s.done
	s.server, s.listener, s.done = nil, nil, nil

	s.logger.Info("Stopping HTTP server", "timeout", s.config.ShutdownTimeout)

	if s.config.ShutdownTimeout <= 0 {
		err := srv.Close()
		<-done
		if err != nil {
			return fmt.Errorf("error closing HTTP server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		<-done
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	<-done
	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address, or "" when the server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound port, or 0 when the server is not running.
func (s *Server) Port() int {
	_, port, err := net.SplitHostPort(s.Addr())
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}

// URL returns the base URL of the running server, e.g. http://127.0.0.1:41234.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}
