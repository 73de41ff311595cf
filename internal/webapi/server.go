// Package webapi is the HTTP + WebSocket dashboard facade: a REST API over
// the same service layer the MCP tools call, plus a /ws broadcaster that
// pushes board-change notifications so a dashboard can stay live without
// polling.
package webapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cwaproj/cwa/internal/services"
)

// Config holds dashboard-facade tuning: listen address, body limit,
// timeouts, and allowed CORS origins.
type Config struct {
	Addr           string
	BodyLimit      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the dashboard facade.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8787",
		BodyLimit:      "2M",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// Server wraps an echo.Echo router and the websocket broadcaster feeding it.
type Server struct {
	echo      *echo.Echo
	broadcast *Broadcaster
	cfg       Config
}

// New builds the dashboard facade: standard middleware stack (logger,
// recover, body-limit, CORS), every REST route, and the /ws upgrade.
func New(svc *services.Services, cfg Config, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		}))
	}

	broadcast := NewBroadcaster(logger)

	s := &Server{echo: e, broadcast: broadcast, cfg: cfg}
	h := &handlers{svc: svc}

	e.GET("/healthz", func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]string{"status": "healthy"}) })

	e.GET("/api/tasks", h.listTasks)
	e.POST("/api/tasks", h.createTask)
	e.GET("/api/tasks/:id", h.getTask)
	e.PUT("/api/tasks/:id", h.updateTask)
	e.GET("/api/board", h.getBoard)

	e.GET("/api/specs", h.listSpecs)
	e.POST("/api/specs", h.createSpec)
	e.GET("/api/specs/:id", h.getSpec)
	e.POST("/api/specs/:id/generate-tasks", h.generateTasks)

	e.GET("/api/domains", h.getDomains)
	e.GET("/api/decisions", h.listDecisions)
	e.POST("/api/decisions", h.createDecision)

	e.GET("/api/context/summary", h.contextSummary)

	e.GET("/ws", broadcast.HandleUpgrade)

	return s
}

// Handler exposes the underlying http.Handler for embedding in another
// process's listener, or for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Broadcaster returns the websocket broadcaster so callers can feed it from
// the primary store's pub/sub subscription.
func (s *Server) Broadcaster() *Broadcaster { return s.broadcast }

// Start runs the dashboard facade until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		srv := &http.Server{
			Addr:         s.cfg.Addr,
			Handler:      s.echo,
			ReadTimeout:  s.cfg.ReadTimeout,
			WriteTimeout: s.cfg.WriteTimeout,
		}
		errCh <- s.echo.StartServer(srv)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
