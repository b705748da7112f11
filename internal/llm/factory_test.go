package llm

import "testing"

func TestNewGenerator_Disabled(t *testing.T) {
	gen, err := NewGenerator(Config{})
	if err != nil {
		t.Fatalf("Expected no error for empty provider, got %v", err)
	}
	if gen != nil {
		t.Error("Expected nil generator when provider is empty")
	}
}

func TestNewGenerator_Unknown(t *testing.T) {
	_, err := NewGenerator(Config{Provider: "bedrock"})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestNewGenerator_Ollama(t *testing.T) {
	gen, err := NewGenerator(Config{Provider: "ollama", Model: "llama3.2:3b"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gen.Name() != "ollama" {
		t.Errorf("Expected ollama, got %s", gen.Name())
	}
}

func TestNewEmbedder_Ollama(t *testing.T) {
	emb, err := NewEmbedder(Config{Provider: "ollama", Model: "all-minilm"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if emb == nil {
		t.Fatal("Expected embedder")
	}
}

func TestNewGenerator_OpenAIRequiresKey(t *testing.T) {
	if _, err := NewGenerator(Config{Provider: "openai"}); err == nil {
		t.Fatal("Expected error for missing API key and base URL")
	}
	if _, err := NewGenerator(Config{Provider: "openai", BaseURL: "http://localhost:8000/v1"}); err != nil {
		t.Fatalf("Expected local OpenAI-compatible server to work without key, got %v", err)
	}
}
