package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joshdurbin/hashlink/internal/config"
	"github.com/joshdurbin/hashlink/internal/metrics"
	"github.com/joshdurbin/hashlink/internal/service"
)

// Server represents the HTTP server
type Server struct {
	handler *Handler
	server  *http.Server
	logger  *slog.Logger
}

// NewServer creates a new HTTP server. m may be nil, in which case the
// /metrics route is not registered.
func NewServer(links service.LinkService, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	handler := NewHandler(links, cfg.Server.PublicURL(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /x/health", handler.Health)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	mux.HandleFunc("POST /{$}", handler.Create)
	mux.HandleFunc("GET /{hash}", handler.Resolve)
	mux.HandleFunc("DELETE /{hash}/remove/{removeToken}", handler.Remove)

	chain := Chain(
		RequestID,
		NewLoggingMiddleware(logger, cfg.Logging.Verbose).Middleware,
		Recovery(logger),
		Timeout(cfg.Server.RequestTimeout),
		Instrument(m),
	)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      chain(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return &Server{
		handler: handler,
		server:  server,
		logger:  logger,
	}
}

// Start starts the HTTP server and blocks until it stops. A server stopped
// by Shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler returns the fully wrapped HTTP handler (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
