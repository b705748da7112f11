// Package server exposes the extraction pipeline over HTTP. Handlers only
// marshal between HTTP and core calls; every decision lives in the pipeline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/pipeline"
	"github.com/casewright/casewright/internal/store"
)

// Server provides the HTTP API.
type Server struct {
	echo  *echo.Echo
	orch  *pipeline.Orchestrator
	store store.Store
	cfg   model.ServerConfig
	log   zerolog.Logger
}

// New creates the HTTP server and registers its routes.
func New(orch *pipeline.Orchestrator, st store.Store, cfg model.ServerConfig, log zerolog.Logger) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit: fmt.Sprintf("%d", cfg.MaxUploadBytes),
		}))
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			log.Info().
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("http request")

			return err
		}
	})

	s := &Server{
		echo:  e,
		orch:  orch,
		store: st,
		cfg:   cfg,
		log:   log,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	s.echo.POST("/extract", s.handleExtract)
	s.echo.POST("/extract/document", s.handleExtractDocument)
	s.echo.POST("/estimate", s.handleEstimate)

	s.echo.POST("/session", s.handleCreateSession)
	s.echo.GET("/sessions", s.handleListSessions)
	s.echo.GET("/session/:id", s.handleGetSession)
	s.echo.PUT("/session/:id/context", s.handleUpdateSessionContext)
	s.echo.GET("/session/:id/history", s.handleGetHistory)
	s.echo.GET("/session/:id/metrics", s.handleSessionMetrics)
	s.echo.GET("/session/:id/conflicts", s.handleSessionConflicts)
	s.echo.GET("/session/:id/export/markdown", s.handleExportMarkdown)
	s.echo.GET("/session/:id/export/plantuml", s.handleExportPlantUML)
	s.echo.DELETE("/session/:id", s.handleDeleteSession)

	s.echo.GET("/use-cases", s.handleListUseCases)
	s.echo.GET("/use-case/:id", s.handleGetUseCase)
	s.echo.POST("/use-case/refine", s.handleRefine)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("starting http server")
	return s.echo.Start(s.cfg.Addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")
	return s.echo.Shutdown(ctx)
}
