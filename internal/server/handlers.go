package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/casewright/casewright/internal/ingest"
	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/pipeline"
)

// ExtractRequest is the request body for POST /extract.
type ExtractRequest struct {
	SessionID      string `json:"session_id"`
	Text           string `json:"text"`
	ProjectContext string `json:"project_context"`
	Domain         string `json:"domain"`
	MaxUseCases    int    `json:"max_use_cases"`
	Strategy       string `json:"chunking_strategy"`
}

func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	report, err := s.orch.Extract(c.Request().Context(), pipeline.ExtractRequest{
		SessionID:      req.SessionID,
		Text:           req.Text,
		ProjectContext: req.ProjectContext,
		Domain:         req.Domain,
		MaxUseCases:    req.MaxUseCases,
		Strategy:       req.Strategy,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("extraction failed")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// handleExtractDocument accepts a multipart upload and extracts from its
// text. Form fields mirror the JSON extract request.
func (s *Server) handleExtractDocument(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "opening upload failed")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "reading upload failed")
	}

	text, err := ingest.ExtractText(fileHeader.Filename, data)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	}

	maxUseCases := 0
	if v := c.FormValue("max_use_cases"); v != "" {
		if maxUseCases, err = strconv.Atoi(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "max_use_cases must be an integer")
		}
	}

	report, err := s.orch.Extract(c.Request().Context(), pipeline.ExtractRequest{
		SessionID:      c.FormValue("session_id"),
		Text:           text,
		ProjectContext: c.FormValue("project_context"),
		Domain:         c.FormValue("domain"),
		MaxUseCases:    maxUseCases,
		Strategy:       c.FormValue("chunking_strategy"),
	})
	if err != nil {
		s.log.Error().Err(err).Str("file", fileHeader.Filename).Msg("document extraction failed")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// EstimateRequest is the request body for POST /estimate.
type EstimateRequest struct {
	Text string `json:"text"`
}

// EstimateResponse pairs the use case estimate with text statistics.
type EstimateResponse struct {
	Estimation model.EstimationResult `json:"estimation"`
	Stats      ingest.TextStats       `json:"text_stats"`

	// DirectlyProcessable reports whether the text fits one generation call
	// or will be chunked.
	DirectlyProcessable bool `json:"directly_processable"`
}

func (s *Server) handleEstimate(c echo.Context) error {
	var req EstimateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	stats := ingest.Stats(req.Text)
	return c.JSON(http.StatusOK, EstimateResponse{
		Estimation:          s.orch.Estimate(req.Text),
		Stats:               stats,
		DirectlyProcessable: stats.DirectlyProcessable(),
	})
}

// handleListUseCases returns every stored use case across all sessions.
func (s *Server) handleListUseCases(c echo.Context) error {
	useCases, err := s.store.ListAllUseCases(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if useCases == nil {
		useCases = []model.UseCase{}
	}
	return c.JSON(http.StatusOK, useCases)
}

func (s *Server) handleGetUseCase(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	uc, err := s.store.GetUseCase(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if uc == nil {
		return echo.NewHTTPError(http.StatusNotFound, "use case not found")
	}
	return c.JSON(http.StatusOK, uc)
}

// RefineRequest is the request body for POST /use-case/refine.
type RefineRequest struct {
	UseCaseID          int64  `json:"use_case_id"`
	RefinementType     string `json:"refinement_type"`
	CustomInstructions string `json:"custom_instructions"`
}

func (s *Server) handleRefine(c echo.Context) error {
	var req RefineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UseCaseID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "use_case_id field is required")
	}

	existing, err := s.store.GetUseCase(c.Request().Context(), req.UseCaseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if existing == nil {
		return echo.NewHTTPError(http.StatusNotFound, "use case not found")
	}

	refined, err := s.orch.Refine(c.Request().Context(), req.UseCaseID, req.RefinementType, req.CustomInstructions)
	if err != nil {
		s.log.Warn().Err(err).Int64("id", req.UseCaseID).Msg("refinement failed")
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, refined)
}
