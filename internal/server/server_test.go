package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/casewright/casewright/internal/llm"
	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/pipeline"
	"github.com/casewright/casewright/internal/store"
)

// stubGenerator returns a canned generation response.
type stubGenerator struct {
	response string
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return &llm.GenerateResponse{Text: s.response, Model: "stub"}, nil
}

func (s *stubGenerator) IsAvailable(ctx context.Context) bool { return true }

const stubOutput = `[{
  "title": "User places order",
  "preconditions": ["Cart is not empty"],
  "main_flow": ["User opens cart", "User confirms payment", "System creates order"],
  "sub_flows": [],
  "alternate_flows": [],
  "outcomes": ["Order is created"],
  "stakeholders": ["User", "System"]
}]`

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("Creating store failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := model.DefaultConfig()
	cfg.Concurrency.RequestsPerSecond = 1000
	cfg.Concurrency.Burst = 1000

	orch := pipeline.NewOrchestrator(cfg, &stubGenerator{response: stubOutput}, nil, st, nil, zerolog.Nop())

	srv, err := New(orch, st, cfg.Server, zerolog.Nop())
	if err != nil {
		t.Fatalf("Creating server failed: %v", err)
	}
	return srv, st
}

func doJSON(srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Status != "ok" {
		t.Errorf("Unexpected health response: %s", rec.Body.String())
	}
}

func TestHandleExtract(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/extract", ExtractRequest{
		Text:           "Users can place orders.",
		ProjectContext: "Shop",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report model.ExtractionReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.SessionID == "" || report.StoredCount != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}
}

func TestHandleExtract_MissingText(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/extract", ExtractRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, writer.FormDataContentType()
}

func TestHandleExtractDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartUpload(t, "spec.txt", "Users can place orders.")
	req := httptest.NewRequest(http.MethodPost, "/extract/document", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleExtractDocument_UnsupportedFormat(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartUpload(t, "spec.pdf", "binary")
	req := httptest.NewRequest(http.MethodPost, "/extract/document", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415, got %d", rec.Code)
	}
}

func TestHandleEstimate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/estimate", EstimateRequest{
		Text: "Users can search restaurants. Users can place orders.",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp EstimateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Estimation.MaxEstimate < 1 || resp.Stats.Words == 0 {
		t.Errorf("Unexpected estimate response: %+v", resp)
	}
	if !resp.DirectlyProcessable {
		t.Error("Expected a two-sentence text to fit one generation call")
	}
}

func TestHandleListUseCases(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	for _, sess := range []string{"s1", "s2"} {
		if err := st.CreateSession(ctx, model.Session{ID: sess}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.InsertUseCase(ctx, "s1", model.UseCase{Title: "User places order"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertUseCase(ctx, "s2", model.UseCase{Title: "Admin manages menu"}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(srv, http.MethodGet, "/use-cases", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var useCases []model.UseCase
	if err := json.Unmarshal(rec.Body.Bytes(), &useCases); err != nil {
		t.Fatal(err)
	}
	if len(useCases) != 2 {
		t.Errorf("Expected use cases from both sessions, got %+v", useCases)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create.
	rec := doJSON(srv, http.MethodPost, "/session", CreateSessionRequest{
		ProjectContext: "Shop",
		Domain:         "retail",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var session model.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}
	if session.ID == "" || session.ProjectContext != "Shop" {
		t.Fatalf("Unexpected session: %+v", session)
	}

	// List.
	rec = doJSON(srv, http.MethodGet, "/sessions", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), session.ID) {
		t.Errorf("Expected session in listing, got %d: %s", rec.Code, rec.Body.String())
	}

	// Get detail.
	rec = doJSON(srv, http.MethodGet, "/session/"+session.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	// Update context.
	rec = doJSON(srv, http.MethodPut, "/session/"+session.ID+"/context", UpdateContextRequest{
		Domain: "food delivery",
	})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "food delivery") {
		t.Errorf("Expected updated domain, got %d: %s", rec.Code, rec.Body.String())
	}

	// Delete.
	rec = doJSON(srv, http.MethodDelete, "/session/"+session.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	rec = doJSON(srv, http.MethodGet, "/session/"+session.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestHandleGetSession_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodGet, "/session/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandleSessionMetricsAndExports(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	if err := st.CreateSession(ctx, model.Session{ID: "s1", ProjectContext: "Shop"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertUseCase(ctx, "s1", model.UseCase{
		Title:         "User places order",
		Preconditions: []string{"Cart is not empty"},
		MainFlow:      []string{"a", "b", "c"},
		Outcomes:      []string{"Order created"},
		Stakeholders:  []string{"User", "System"},
	}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(srv, http.MethodGet, "/session/s1/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var metrics model.SessionMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &metrics); err != nil {
		t.Fatal(err)
	}
	if metrics.TotalUseCases != 1 {
		t.Errorf("Expected 1 use case in metrics, got %d", metrics.TotalUseCases)
	}

	rec = doJSON(srv, http.MethodGet, "/session/s1/export/markdown", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# Use Case Specification") {
		t.Errorf("Unexpected markdown export: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(srv, http.MethodGet, "/session/s1/export/plantuml", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "@startuml") {
		t.Errorf("Unexpected PlantUML export: %d", rec.Code)
	}
}

func TestHandleSessionConflicts(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	if err := st.CreateSession(ctx, model.Session{ID: "s1"}); err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"User places order", "Customer places order"} {
		if _, err := st.InsertUseCase(ctx, "s1", model.UseCase{
			Title:    title,
			MainFlow: []string{"a", "b", "c"},
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(srv, http.MethodGet, "/session/s1/conflicts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var report ConflictReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.SessionID != "s1" || report.Conflicts == nil {
		t.Errorf("Unexpected conflict report: %+v", report)
	}
}

func TestHandleGetHistory(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	if err := st.CreateSession(ctx, model.Session{ID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddMessage(ctx, model.ConversationMessage{SessionID: "s1", Role: "user", Content: "hello"}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(srv, http.MethodGet, "/session/s1/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var history []model.ConversationMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Content != "hello" {
		t.Errorf("Unexpected history: %+v", history)
	}
}

func TestHandleGetUseCase(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	if err := st.CreateSession(ctx, model.Session{ID: "s1"}); err != nil {
		t.Fatal(err)
	}
	id, err := st.InsertUseCase(ctx, "s1", model.UseCase{Title: "User places order"})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(srv, http.MethodGet, "/use-case/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for id %d, got %d", id, rec.Code)
	}

	rec = doJSON(srv, http.MethodGet, "/use-case/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	rec = doJSON(srv, http.MethodGet, "/use-case/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestHandleRefine_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/use-case/refine", RefineRequest{UseCaseID: 999})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
