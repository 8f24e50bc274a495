package api

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/api/handler"
	"github.com/ZertGraf/deploy-tracker/internal/api/middleware"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"net"
	"net/http"
	"time"
)

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// HTTPServer serves the liveness/readiness probe only.
type HTTPServer struct {
	server *http.Server
	config *ServerConfig
	logger *logger.Logger
}

func NewHTTPServer(config *ServerConfig, checker handler.HealthChecker, logger *logger.Logger) *HTTPServer {
	log := logger.Component("http")

	server := &http.Server{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		Handler:      NewRouter(checker, log),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		config: config,
		logger: log,
	}
}

func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.Info("probe server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("probe server failed", "error", err)
		}
	}()

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping probe server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("probe server shutdown failed", "error", err)
		return err
	}

	s.logger.Info("probe server stopped")
	return nil
}

func NewRouter(checker handler.HealthChecker, logger *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.NoStore)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(checker, 5*time.Second, logger))

	return r
}
