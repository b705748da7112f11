package llm

import (
	"fmt"
	"strings"
)

// NewGenerator creates a text generator based on configuration.
func NewGenerator(config Config) (Generator, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "ollama":
		p, err := NewOllamaProvider(config)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "":
		// No provider configured - generation disabled, pipeline falls back
		// to pattern extraction.
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// NewEmbedder creates an embedder based on configuration. A nil embedder
// disables similarity-based deduplication.
func NewEmbedder(config Config) (Embedder, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "ollama":
		p, err := NewOllamaProvider(config)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama)", config.Provider)
	}
}
