package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// defaultShutdownTimeout applies when the config leaves it unset.
const defaultShutdownTimeout = 30 * time.Second

// ListenAndServe accepts connections on the configured address until ctx is
// done. It then stops accepting and gives in-flight requests up to
// server.shutdown_timeout to finish. A stop requested through ctx or
// Shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.srv, s.listener = hs, ln
	s.mu.Unlock()

	served := make(chan error, 1)
	go func() {
		served <- hs.Serve(ln)
	}()

	if s.repo.IsZero() {
		s.logger.Warn("no default repository, requests must name one")
	}
	s.logger.Info("server started", "addr", ln.Addr().String())
	close(s.ready)

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	s.logger.Info("shutting down", "timeout", timeout)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := hs.Shutdown(stopCtx); err != nil {
		s.logger.Error("in-flight requests did not finish", "err", err)
		return err
	}
	<-served

	s.logger.Info("server stopped")
	return nil
}

// Shutdown stops a running server, waiting for in-flight requests until ctx
// is done. It is a no-op before ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.srv
	s.mu.Unlock()

	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

// Addr returns the address the server listens on, or "" before
// ListenAndServe. With port 0 it reports the port actually chosen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
