// Package http provides the HTTP API for managerd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/export"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
	"github.com/fyrsmithlabs/managerd/internal/logging"
	"github.com/fyrsmithlabs/managerd/internal/services"
	"github.com/fyrsmithlabs/managerd/internal/session"
)

// ErrNotConfirmed is returned for destructive calls made without
// confirm=true.
var ErrNotConfirmed = errors.New("confirmation required: repeat the request with confirm=true")

// Server provides HTTP endpoints for managerd.
type Server struct {
	echo    *echo.Echo
	reg     services.Registry
	logger  *zap.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(reg services.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("service registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		reg:     reg,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(logger),
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(correlate)
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			}
			logger.Info("http request", append(fields, logging.ContextFields(c.Request().Context())...)...)
			return nil
		}
	})

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/session/login", s.handleLogin)
	v1.GET("/session", s.handleSessionStatus)

	authed := v1.Group("", s.requireSession)
	authed.POST("/session/logout", s.handleLogout)

	authed.GET("/chat/history", s.handleChatHistory)
	authed.POST("/chat/messages", s.handleChatSubmit)
	authed.DELETE("/chat/history", s.handleChatClear)
	authed.GET("/chat/export", s.handleChatExport)

	authed.GET("/tasks", s.handleListTasks)
	authed.PATCH("/tasks/:id/status", s.handleSetTaskStatus)
	authed.GET("/tasks/selection", s.handleGetSelection)
	authed.POST("/tasks/selection", s.handleToggleSelection)
	authed.POST("/tasks/selection/all", s.handleToggleAllSelection)
	authed.DELETE("/tasks/selection", s.handleClearSelection)
	authed.POST("/tasks/bulk", s.handleBulkEdit)

	authed.GET("/transactions", s.handleLedger)
	authed.POST("/transactions", s.handleAddTransaction)
	authed.DELETE("/transactions/:id", s.handleDeleteTransaction)

	authed.GET("/notifications", s.handleListNotifications)
	authed.DELETE("/notifications/:id", s.handleDismissNotification)

	authed.GET("/settings/push-recipient", s.handleGetPushRecipient)
	authed.PUT("/settings/push-recipient", s.handleSetPushRecipient)

	authed.POST("/images/generate", s.handleGenerateImage)
	authed.POST("/images/edit", s.handleEditImage)
	authed.POST("/audio/transcribe", s.handleTranscribe)
	authed.POST("/search", s.handleSearch)
	authed.POST("/documents/export", s.handleExportDocument)
}

// correlate tags the request context with the channel and the id set by
// the RequestID middleware.
func correlate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := logging.WithChannel(c.Request().Context(), logging.ChannelHTTP)
		if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
			ctx = logging.WithRequestID(ctx, rid)
		}
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireSession rejects every request while the gate is closed.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := s.reg.Session().SessionID()
		if id == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, session.ErrNotAuthenticated.Error())
		}
		c.SetRequest(c.Request().WithContext(logging.WithSessionID(c.Request().Context(), id)))
		return next(c)
	}
}

// confirmed enforces confirm=true on destructive calls.
func confirmed(c echo.Context) error {
	ok, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, ErrNotConfirmed.Error())
	}
	return nil
}

// httpError maps domain errors to HTTP statuses.
func (s *Server) httpError(c echo.Context, err error) error {
	var transport *gateway.TransportError
	switch {
	case errors.Is(err, dashboard.ErrValidation),
		errors.Is(err, gateway.ErrInvalidInput),
		errors.Is(err, entity.ErrInvalidDeadline),
		errors.Is(err, entity.ErrInvalidValue),
		errors.Is(err, export.ErrUnknownFormat):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrAccessDenied):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, entity.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, gateway.ErrMissingCredential):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, gateway.ErrUnsupported):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	case errors.As(err, &transport),
		errors.Is(err, gateway.ErrMalformedResponse),
		errors.Is(err, gateway.ErrNoImage):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	s.logger.Error("request failed", append(logging.ContextFields(c.Request().Context()), zap.Error(err))...)
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Handler exposes the router, mainly for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
