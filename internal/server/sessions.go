package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casewright/casewright/internal/dedupe"
	"github.com/casewright/casewright/internal/export"
	"github.com/casewright/casewright/internal/model"
)

// CreateSessionRequest is the request body for POST /session.
type CreateSessionRequest struct {
	ProjectContext string `json:"project_context"`
	Domain         string `json:"domain"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session := model.Session{
		ID:             uuid.NewString(),
		ProjectContext: req.ProjectContext,
		Domain:         req.Domain,
	}
	if err := s.store.CreateSession(c.Request().Context(), session); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	created, err := s.store.GetSession(c.Request().Context(), session.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.store.ListSessions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sessions)
}

// SessionDetail is the response body for GET /session/:id.
type SessionDetail struct {
	model.Session
	UseCases []model.UseCase `json:"use_cases"`
}

func (s *Server) handleGetSession(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if session == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	useCases, err := s.store.ListSessionUseCases(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, SessionDetail{Session: *session, UseCases: useCases})
}

// UpdateContextRequest is the request body for PUT /session/:id/context.
type UpdateContextRequest struct {
	ProjectContext string `json:"project_context"`
	Domain         string `json:"domain"`
}

func (s *Server) handleUpdateSessionContext(c echo.Context) error {
	var req UpdateContextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if err := s.store.UpdateSessionContext(ctx, id, req.ProjectContext, req.Domain); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) handleGetHistory(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = parsed
	}

	history, err := s.store.GetHistory(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, history)
}

func (s *Server) handleSessionMetrics(c echo.Context) error {
	metrics, err := s.orch.SessionMetrics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, metrics)
}

// ConflictReport is the response body for GET /session/:id/conflicts.
type ConflictReport struct {
	SessionID string           `json:"session_id"`
	Conflicts []model.Conflict `json:"conflicts"`
}

func (s *Server) handleSessionConflicts(c echo.Context) error {
	id := c.Param("id")
	useCases, err := s.store.ListSessionUseCases(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	conflicts := dedupe.DetectConflicts(useCases)
	if conflicts == nil {
		conflicts = []model.Conflict{}
	}
	return c.JSON(http.StatusOK, ConflictReport{SessionID: id, Conflicts: conflicts})
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.store.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// sessionExport loads a session and its use cases for the export handlers.
func (s *Server) sessionExport(c echo.Context) (*model.Session, []model.UseCase, error) {
	ctx := c.Request().Context()
	id := c.Param("id")

	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if session == nil {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	useCases, err := s.store.ListSessionUseCases(ctx, id)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return session, useCases, nil
}

func (s *Server) handleExportMarkdown(c echo.Context) error {
	session, useCases, err := s.sessionExport(c)
	if err != nil {
		return err
	}
	doc := export.Markdown(useCases, session, time.Now().UTC())
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(doc))
}

func (s *Server) handleExportPlantUML(c echo.Context) error {
	_, useCases, err := s.sessionExport(c)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(export.PlantUML(useCases)))
}
