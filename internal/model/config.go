package model

import "time"

// Config is the complete casewright configuration.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Dedupe      DedupeConfig      `yaml:"dedupe"`
	Store       StoreConfig       `yaml:"store"`
	Cache       CacheConfig       `yaml:"cache"`
	Server      ServerConfig      `yaml:"server"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// LLMConfig configures the generation capability.
type LLMConfig struct {
	// Provider name: "openai" (any OpenAI-compatible server) or "ollama".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Timeout  int    `yaml:"timeout"` // seconds

	// Sampling parameters. Tuning concerns, not contracts.
	Temperature   float32 `yaml:"temperature"`
	TopP          float32 `yaml:"top_p"`
	RepeatPenalty float32 `yaml:"repeat_penalty"`

	// Proxy settings for the provider's HTTP client. NoProxy is a
	// comma-separated list of hosts and parent domains reached directly.
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
	NoProxy    string `yaml:"no_proxy"`
}

// EmbeddingConfig configures the text-to-vector capability.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// ChunkingConfig bounds per-chunk size for large documents.
type ChunkingConfig struct {
	// MaxTokens per chunk; chars are estimated at tokens*4.
	MaxTokens int `yaml:"max_tokens"`
}

// DedupeConfig holds the similarity thresholds for the duplicate gate.
// The source system used two divergent values; both are explicit here.
type DedupeConfig struct {
	SessionThreshold      float64 `yaml:"session_threshold"`       // within one session
	CrossSessionThreshold float64 `yaml:"cross_session_threshold"` // against other sessions
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig configures generation/embedding caching.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"` // disk layer; empty = memory only
	TTL     time.Duration `yaml:"ttl"`
}

// ServerConfig configures the HTTP layer.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// ConcurrencyConfig bounds batch parallelism and generation call rate.
type ConcurrencyConfig struct {
	BatchWorkers      int     `yaml:"batch_workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults. A locally hosted Ollama instance
// with an instruct model is the expected baseline deployment.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:      "ollama",
			Model:         "llama3.2:3b",
			BaseURL:       "http://localhost:11434",
			Timeout:       120,
			Temperature:   0.3,
			TopP:          0.85,
			RepeatPenalty: 1.1,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "all-minilm",
			BaseURL:  "http://localhost:11434",
			Timeout:  30,
		},
		Chunking: ChunkingConfig{
			MaxTokens: 3000,
		},
		Dedupe: DedupeConfig{
			SessionThreshold:      0.85,
			CrossSessionThreshold: 0.90,
		},
		Store: StoreConfig{
			Path: "requirements.db",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 10 << 20, // 10MB
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers:      1, // one generation call in flight
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}
