package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Generate_Success(t *testing.T) {
	// Mock server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected stream=false")
		}
		if req.Options.NumPredict != 800 {
			t.Errorf("Expected num_predict 800, got %d", req.Options.NumPredict)
		}

		resp := ollamaGenerateResponse{
			Model:           "llama3.2:3b",
			Response:        `[{"title": "User logs in"}]`,
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
		Model:   "llama3.2:3b",
		Timeout: 5,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{
		Prompt:    "Extract use cases",
		MaxTokens: 800,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != `[{"title": "User logs in"}]` {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.2:3b", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("Expected error message to contain 'model not found', got %v", err)
	}
}

func TestOllamaProvider_Generate_NoModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error for missing model")
	}
}

func TestOllamaProvider_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("Expected path /api/embeddings, got %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "all-minilm", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	vec, err := provider.Embed(context.Background(), "User logs in")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("Expected 3 dimensions, got %d", len(vec))
	}
}

func TestOllamaProvider_Embed_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "all-minilm", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Embed(context.Background(), "x"); err == nil {
		t.Fatal("Expected error for empty embedding")
	}
}

func TestOllamaProxyFunc_NoProxy(t *testing.T) {
	proxyFunc := newOllamaProxyFunc("http://proxy:3128", "", "localhost,.internal")

	tests := []struct {
		target    string
		wantProxy bool
	}{
		{"http://localhost:11434/api/generate", false},
		{"http://svc.internal/api/generate", false},
		{"http://internal/api/generate", false},
		{"http://example.com/api/generate", true},
		{"http://notinternal.com/api/generate", true},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.target, nil)
		proxyURL, err := proxyFunc(req)
		if err != nil {
			t.Fatalf("%s: proxy func failed: %v", tt.target, err)
		}
		if tt.wantProxy && (proxyURL == nil || proxyURL.Host != "proxy:3128") {
			t.Errorf("%s: expected proxy, got %v", tt.target, proxyURL)
		}
		if !tt.wantProxy && proxyURL != nil {
			t.Errorf("%s: expected direct connection, got %v", tt.target, proxyURL)
		}
	}
}

func TestOllamaProxyFunc_Wildcard(t *testing.T) {
	proxyFunc := newOllamaProxyFunc("http://proxy:3128", "", "*")

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/generate", nil)
	proxyURL, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if proxyURL != nil {
		t.Errorf("expected wildcard to disable proxying, got %v", proxyURL)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Expected path /api/tags, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
}
