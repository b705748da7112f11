// Package llm abstracts the two model capabilities the pipeline needs:
// text generation and text embedding. Providers speak either the Ollama API
// or any OpenAI-compatible endpoint.
package llm

import (
	"context"

	"github.com/casewright/casewright/internal/model"
)

// Generator produces text from a prompt.
type Generator interface {
	// Name returns the provider name
	Name() string

	// Generate runs a single completion request
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Embedder turns text into a dense vector for similarity comparison.
// Both sides of a comparison must come from the same embedder and model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerateRequest contains the input for one generation call.
type GenerateRequest struct {
	// Prompt is the full user prompt
	Prompt string

	// System is an optional system message
	System string

	// Model overrides the configured model for this call
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Sampling overrides; zero values fall back to the configured defaults
	Temperature   float32
	TopP          float32
	RepeatPenalty float32
}

// GenerateResponse contains the raw model output.
type GenerateResponse struct {
	// Text is the generated text, whitespace-trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption (estimated when the API omits it)
	TokensUsed int
}

// Config holds provider configuration for both capabilities.
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI-compatible endpoints
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Default sampling parameters
	Temperature   float32
	TopP          float32
	RepeatPenalty float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    "ollama",
		BaseURL:     "http://localhost:11434",
		Timeout:     120,
		Temperature: 0.3,
		TopP:        0.85,
	}
}

// ConfigFromLLM converts model.LLMConfig to llm.Config.
func ConfigFromLLM(c model.LLMConfig) Config {
	return Config{
		Provider:      c.Provider,
		Model:         c.Model,
		APIKey:        c.APIKey,
		BaseURL:       c.BaseURL,
		Timeout:       c.Timeout,
		Temperature:   c.Temperature,
		TopP:          c.TopP,
		RepeatPenalty: c.RepeatPenalty,
		HTTPProxy:     c.HTTPProxy,
		HTTPSProxy:    c.HTTPSProxy,
		NoProxy:       c.NoProxy,
	}
}

// ConfigFromEmbedding converts model.EmbeddingConfig to llm.Config.
func ConfigFromEmbedding(c model.EmbeddingConfig) Config {
	return Config{
		Provider: c.Provider,
		Model:    c.Model,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Timeout:  c.Timeout,
	}
}
