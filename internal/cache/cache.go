// Package cache provides memory and disk caching for model call results.
// Generation output and embedding vectors are both pure functions of
// (model, input), so repeated extractions over the same text skip the
// expensive calls entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// GenerationKey generates a cache key for a generation call.
func GenerationKey(model, prompt string) string {
	return hashKey("gen", model, prompt)
}

// EmbeddingKey generates a cache key for an embedding call.
func EmbeddingKey(model, text string) string {
	return hashKey("emb", model, text)
}

func hashKey(kind, model, input string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + input))
	return "casewright:v1:" + kind + ":" + hex.EncodeToString(hash[:])
}

// EncodeVector serializes an embedding vector for storage.
func EncodeVector(vec []float32) ([]byte, error) {
	return json.Marshal(vec)
}

// DecodeVector deserializes a stored embedding vector.
func DecodeVector(data []byte) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}
