package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/sinope"
)

// ShutdownTimeout bounds a graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Listen   string
	Registry *prometheus.Registry     // nil disables /metrics
	Latest   func() []sinope.Snapshot // source of /api/devices and the initial websocket state
}

// Server serves the HTTP endpoints of serve mode.
type Server struct {
	config   *Config
	hub      *Hub
	http     *http.Server
	listener net.Listener
}

// New creates a server. It does not listen until Start.
func New(config *Config) *Server {
	s := &Server{config: config, hub: NewHub(config.Latest)}
	s.http = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the websocket hub, to be registered as a poller sink.
func (s *Server) Hub() *Hub { return s.hub }

// Listen binds the configured address. Start calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx ends, SIGINT or SIGTERM arrives, or serving fails,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	logging.Info("HTTP server listening", zap.String("addr", s.listener.Addr().String()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
	case <-ctx.Done():
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, disconnects websocket clients and
// waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.hub.Close()
	if err := s.http.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return s.http.Close()
	}
	logging.Info("All connections closed gracefully")
	return nil
}

func (s *Server) latest() []sinope.Snapshot {
	if s.config.Latest == nil {
		return []sinope.Snapshot{}
	}
	snaps := s.config.Latest()
	if snaps == nil {
		return []sinope.Snapshot{}
	}
	return snaps
}
