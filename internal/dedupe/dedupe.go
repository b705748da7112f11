// Package dedupe decides whether a candidate use case duplicates one that is
// already stored. The primary signal is cosine similarity between embedding
// vectors; when no embedder is available it degrades to exact title matching.
package dedupe

import (
	"context"
	"fmt"
	"math"

	"github.com/casewright/casewright/internal/cache"
	"github.com/casewright/casewright/internal/llm"
	"github.com/casewright/casewright/internal/model"
)

// Result is the outcome of one duplicate check.
type Result struct {
	IsDuplicate bool
	// Similarity is the maximum cosine similarity observed against the
	// existing set, whether or not it crossed the threshold.
	Similarity float64
	// MatchTitle is the title of the closest existing use case.
	MatchTitle string
}

// Detector compares candidates against existing use cases.
type Detector struct {
	embedder llm.Embedder
	cache    cache.Cache
	model    string
}

// NewDetector creates a detector. A nil embedder disables similarity checks;
// Check then falls back to exact title matching. A nil cache disables
// embedding reuse.
func NewDetector(embedder llm.Embedder, c cache.Cache, embeddingModel string) *Detector {
	return &Detector{
		embedder: embedder,
		cache:    c,
		model:    embeddingModel,
	}
}

// Check reports whether candidate duplicates any of existing at the given
// similarity threshold. Both sides are embedded from the same
// title-plus-main-flow text, so the comparison is symmetric.
func (d *Detector) Check(ctx context.Context, candidate model.UseCase, existing []model.UseCase, threshold float64) (Result, error) {
	if len(existing) == 0 {
		return Result{}, nil
	}

	if d.embedder == nil {
		return d.checkByTitle(candidate, existing), nil
	}

	candVec, err := d.embed(ctx, candidate.EmbeddingText())
	if err != nil {
		return Result{}, fmt.Errorf("embed candidate: %w", err)
	}

	var best Result
	for _, uc := range existing {
		vec, err := d.embed(ctx, uc.EmbeddingText())
		if err != nil {
			return Result{}, fmt.Errorf("embed existing %q: %w", uc.Title, err)
		}
		sim := Cosine(candVec, vec)
		if sim > best.Similarity {
			best.Similarity = sim
			best.MatchTitle = uc.Title
		}
	}
	best.IsDuplicate = best.Similarity >= threshold
	return best, nil
}

// checkByTitle is the degraded path: exact title-key equality only.
func (d *Detector) checkByTitle(candidate model.UseCase, existing []model.UseCase) Result {
	key := candidate.TitleKey()
	for _, uc := range existing {
		if uc.TitleKey() == key {
			return Result{IsDuplicate: true, Similarity: 1.0, MatchTitle: uc.Title}
		}
	}
	return Result{}
}

// embed returns the cached vector for text, computing it on a miss.
func (d *Detector) embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.EmbeddingKey(d.model, text)
	if d.cache != nil {
		if data, found := d.cache.Get(key); found {
			if vec, err := cache.DecodeVector(data); err == nil {
				return vec, nil
			}
		}
	}

	vec, err := d.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		if data, err := cache.EncodeVector(vec); err == nil {
			_ = d.cache.Set(key, data, 0)
		}
	}
	return vec, nil
}

// Cosine computes the cosine similarity of two vectors. Mismatched lengths
// and zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
