// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"context"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/avatar"
	"github.com/inkwell/inkwell/internal/blog"
	"github.com/inkwell/inkwell/internal/observability"
)

// DefaultMaxUploadBytes bounds an avatar upload when Config leaves it unset.
const DefaultMaxUploadBytes = avatar.DefaultMaxUploadBytes

// multipartOverhead is the room left for form fields around the picture.
const multipartOverhead = 1 << 20

// AvatarSource opens stored avatars for serving.
type AvatarSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, avatar.BlobInfo, error)
}

// Config holds the HTTP settings of the web server.
type Config struct {
	Addr           string
	SecureCookies  bool
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Deps are the services the web server routes to. Metrics may be nil.
type Deps struct {
	Auth     *auth.Service
	Accounts *auth.AccountService
	Resets   *auth.PasswordResetService
	Gate     *auth.Gate
	Blog     *blog.Service
	Avatars  AvatarSource
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Server is the blog HTTP server.
type Server struct {
	cfg      Config
	auth     *auth.Service
	accounts *auth.AccountService
	resets   *auth.PasswordResetService
	gate     *auth.Gate
	blog     *blog.Service
	avatars  AvatarSource
	metrics  *observability.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	pages    map[string]*template.Template
	handler  http.Handler

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server and parses its templates.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Auth == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service is required")
	case deps.Accounts == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("account service is required")
	case deps.Resets == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("password reset service is required")
	case deps.Gate == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("gate is required")
	case deps.Blog == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("blog service is required")
	case deps.Avatars == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("avatar source is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		auth:     deps.Auth,
		accounts: deps.Accounts,
		resets:   deps.Resets,
		gate:     deps.Gate,
		blog:     deps.Blog,
		avatars:  deps.Avatars,
		metrics:  deps.Metrics,
		logger:   logger,
		tracer:   otel.Tracer("github.com/inkwell/inkwell/internal/web"),
		pages:    pages,
	}
	s.handler = s.chain(s.routes())
	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving on the configured address. The returned channel
// receives a serve failure and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_ALREADY_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
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

// Stop gracefully shuts the server down.
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

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Running reports whether the listener is bound.
func (s *Server) Running() bool {
	return s.running.Load()
}
