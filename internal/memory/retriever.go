package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/casewright/casewright/internal/chunk"
	"github.com/casewright/casewright/internal/dedupe"
	"github.com/casewright/casewright/internal/llm"
)

// Retriever ranks overlapping sentence windows of a document by embedding
// similarity to a query. Used to pull the most relevant document passages
// into a refinement prompt without replaying the whole document.
type Retriever struct {
	embedder llm.Embedder
	entries  []retrieverEntry
}

type retrieverEntry struct {
	text   string
	vector []float32
}

// NewRetriever creates a retriever over the given embedder.
func NewRetriever(embedder llm.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Index splits text into overlapping sentence windows and embeds each one.
// Calling Index again replaces the previous index.
func (r *Retriever) Index(ctx context.Context, text string, sentencesPerWindow, overlap int) error {
	if r.embedder == nil {
		return fmt.Errorf("retriever requires an embedder")
	}
	if sentencesPerWindow <= 0 {
		sentencesPerWindow = 30
	}
	if overlap < 0 || overlap >= sentencesPerWindow {
		overlap = sentencesPerWindow / 3
	}

	sentences := chunk.SplitSentences(text)
	step := sentencesPerWindow - overlap

	r.entries = nil
	for start := 0; start < len(sentences); start += step {
		end := min(start+sentencesPerWindow, len(sentences))
		window := strings.TrimSpace(strings.Join(sentences[start:end], " "))
		if window == "" {
			continue
		}
		vec, err := r.embedder.Embed(ctx, window)
		if err != nil {
			return fmt.Errorf("embed window at sentence %d: %w", start, err)
		}
		r.entries = append(r.entries, retrieverEntry{text: window, vector: vec})
		if end == len(sentences) {
			break
		}
	}
	return nil
}

// Retrieve returns the k indexed windows most similar to query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("retriever requires an embedder")
	}
	if len(r.entries) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		text string
		sim  float64
	}
	ranked := make([]scored, 0, len(r.entries))
	for _, e := range r.entries {
		ranked = append(ranked, scored{text: e.text, sim: dedupe.Cosine(queryVec, e.vector)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, s := range ranked[:k] {
		out = append(out, s.text)
	}
	return out, nil
}
