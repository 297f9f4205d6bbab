// Package http serves the redactd API over echo.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/redactd/internal/logging"
	"github.com/fyrsmithlabs/redactd/internal/notes"
)

// Config holds HTTP server configuration.
type Config struct {
	Host      string
	Port      int
	BodyLimit string // echo size notation, e.g. "2M"
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	service *notes.Service
	logger  *logging.Logger
	config  *Config
}

// NewServer creates a server over the note service.
func NewServer(service *notes.Service, logger *logging.Logger, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, errors.New("note service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 9090}
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "2M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(requestLogger(logger))
	e.Use(NewMetrics(logger.Underlying()).Middleware())

	s := &Server{echo: e, service: service, logger: logger, config: cfg}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/notes", s.handleCreateNote)
	v1.GET("/notes/:id/redaction", s.handlePreview)
	v1.POST("/notes/:id/disclose", s.handleDisclose)
	v1.DELETE("/notes/:id", s.handleDeleteNote)
	v1.POST("/scan", s.handleScan)
	v1.POST("/redact", s.handleRedact)
	v1.PUT("/users/:id/voice-pin", s.handleSetPin)
	v1.POST("/users/:id/voice-pin/verify", s.handleVerifyPin)
}

// requestLogger puts the request id into the request context so service
// logs and the access log share it.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			}
			var he *echo.HTTPError
			if errors.As(err, &he) {
				fields[2] = zap.Int("status", he.Code)
				if he.Code >= http.StatusInternalServerError {
					logger.Error(ctx, "http request failed", append(fields, zap.Error(he.Internal))...)
					return err
				}
			}
			logger.Info(ctx, "http request", fields...)
			return err
		}
	}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
