// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web serves the HTML surface: registration, login, logout,
// the dashboard, and email confirmation.
package web

import (
	"context"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// Server is the public-facing HTTP server.
type Server struct {
	addr          string
	secureCookies bool
	auth          *auth.Service
	metrics       *observability.Metrics
	logger        *slog.Logger
	templates     *template.Template

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the web server. metrics may be nil, which disables
// request counters (useful in tests).
func NewServer(addr string, secureCookies bool, authService *auth.Service, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if authService == nil {
		return nil, oops.Code("WEB_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		addr:          addr,
		secureCookies: secureCookies,
		auth:          authService,
		metrics:       metrics,
		logger:        logger,
		templates:     templates,
	}, nil
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.instrument("index", s.handleIndex))
	mux.HandleFunc("GET /register", s.instrument("register_form", s.handleRegisterForm))
	mux.HandleFunc("POST /register", s.instrument("register", s.handleRegister))
	mux.HandleFunc("GET /login", s.instrument("login_form", s.handleLoginForm))
	mux.HandleFunc("POST /login", s.instrument("login", s.handleLogin))
	mux.HandleFunc("GET /logout", s.instrument("logout", s.handleLogout))
	mux.HandleFunc("GET /dashboard", s.instrument("dashboard", s.requireLogin(s.handleDashboard)))
	mux.HandleFunc("GET /confirm", s.instrument("confirm", s.handleConfirm))

	return s.withIdentity(mux)
}

// Start begins serving. It returns an error channel that receives any
// serve failure; the channel closes on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the web server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}

	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
