package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/logger"
)

// getState returns the current server state
func (s *ChronoServer) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *ChronoServer) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", newState.String())
}

// Listen binds the port, falling back to nearby ports when it is taken.
// It returns the address actually bound.
func (s *ChronoServer) Listen(port int) (net.Listener, error) {
	actualPort, err := findAvailablePort(port)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort,
		)
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", actualPort))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on port %d", actualPort)
	}
	return ln, nil
}

// Serve serves HTTP on ln until Stop is called
func (s *ChronoServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	s.addr = ln.Addr().String()
	srv := s.httpServer
	s.mu.Unlock()

	s.setState(ServerStateRunning)
	s.logger.Infow("Server ready",
		logger.FieldURL, "http://"+s.addr,
		"evaluator", s.evaluator.URL(),
		"history", s.history != nil,
	)

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "http server failed")
}

// Start listens on port and serves until Stop is called
func (s *ChronoServer) Start(port int) error {
	ln, err := s.Listen(port)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Addr returns the bound address once serving
func (s *ChronoServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop gracefully shuts down the server: in-flight requests finish, LSP
// sessions are closed and the config watcher stops
func (s *ChronoServer) Stop() error {
	if s.getState() == ServerStateStopped {
		return nil
	}
	s.logger.Infow("Initiating server shutdown")
	s.setState(ServerStateDraining)

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		// Hijacked LSP connections are not tracked by Shutdown
		shutdownErr = srv.Shutdown(ctx)
	}

	// Cancelling the context ends LSP sessions
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Infow("All LSP sessions closed")
	case <-ctx.Done():
		s.logger.Warnw("LSP session shutdown timed out", "timeout", ShutdownTimeout)
	}

	if s.configWatcher != nil {
		if err := s.configWatcher.Stop(); err != nil {
			s.logger.Warnw("Failed to stop config watcher", logger.FieldError, err)
		}
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete")
	return shutdownErr
}
