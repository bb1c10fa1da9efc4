// Package api wires the Echo HTTP server: routes, middleware, and lifecycle.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldops/ticket-sentinel/internal/api/handlers"
	"github.com/fieldops/ticket-sentinel/internal/api/middleware"
	"github.com/fieldops/ticket-sentinel/internal/config"
	"github.com/fieldops/ticket-sentinel/internal/engine"
	"github.com/fieldops/ticket-sentinel/internal/store"
)

// Server is the ticket-sentinel HTTP server.
type Server struct {
	echo *echo.Echo
	addr string
	log  *slog.Logger
}

// New builds the server with all routes and middleware registered.
func New(cfg *config.ServerConfig, s store.Store, eng *engine.Engine, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(s)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	alerts := handlers.NewAlertsHandler(eng, log)
	v1 := e.Group("/api/v1")
	v1.GET("/alerts", alerts.ListAlerts)
	v1.POST("/alerts/:id/resolve", alerts.ResolveAlert)

	return &Server{
		echo: e,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		log:  log,
	}
}

// Start begins serving and blocks until the server shuts down.
func (s *Server) Start() error {
	s.log.Info("starting server", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
