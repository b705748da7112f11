package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/casewright/casewright/internal/cache"
	"github.com/casewright/casewright/internal/chunk"
	"github.com/casewright/casewright/internal/dedupe"
	"github.com/casewright/casewright/internal/estimate"
	"github.com/casewright/casewright/internal/llm"
	"github.com/casewright/casewright/internal/memory"
	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/parse"
	"github.com/casewright/casewright/internal/score"
	"github.com/casewright/casewright/internal/store"
	"github.com/casewright/casewright/internal/validate"
)

// minTitleChars is the floor below which a candidate is rejected outright.
const minTitleChars = 10

// Token budget bounds for one generation call.
const (
	minGenerationTokens = 300
	maxGenerationTokens = 1500
	tokensPerUseCase    = 150
)

// Orchestrator runs the complete extraction flow. Generation and parsing
// failures degrade to fallback extraction; only storage failures are fatal.
type Orchestrator struct {
	generator llm.Generator // nil when no provider is configured
	embedder  llm.Embedder  // nil when no embedding provider is configured
	detector  *dedupe.Detector
	store     store.Store
	cache     cache.Cache // nil when caching is disabled
	limiter   *rate.Limiter

	estimator *estimate.Estimator
	chunker   *chunk.Chunker
	validator *validate.Validator
	enricher  *Enricher
	fallback  *FallbackExtractor
	memBuild  *memory.Builder

	config *model.Config
	log    zerolog.Logger
}

// NewOrchestrator wires the pipeline together. The generator may be nil, in
// which case every extraction uses pattern fallback.
func NewOrchestrator(cfg *model.Config, generator llm.Generator, embedder llm.Embedder, st store.Store, c cache.Cache, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		embedder:  embedder,
		detector:  dedupe.NewDetector(embedder, c, cfg.Embedding.Model),
		store:     st,
		cache:     c,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Concurrency.RequestsPerSecond), cfg.Concurrency.Burst),
		estimator: estimate.NewEstimator(),
		chunker:   chunk.NewChunker(cfg.Chunking.MaxTokens),
		validator: validate.NewValidator(),
		enricher:  NewEnricher(),
		fallback:  NewFallbackExtractor(),
		memBuild:  memory.NewBuilder(),
		config:    cfg,
		log:       log,
	}
}

// ExtractRequest is one extraction call.
type ExtractRequest struct {
	SessionID      string `json:"session_id"`
	Text           string `json:"text"`
	ProjectContext string `json:"project_context"`
	Domain         string `json:"domain"`
	MaxUseCases    int    `json:"max_use_cases"` // 0 = estimate from text
	Strategy       string `json:"chunking_strategy"`
}

// Extract runs the full pipeline over one requirements text and returns a
// report of every decision made along the way.
func (o *Orchestrator) Extract(ctx context.Context, req ExtractRequest) (*model.ExtractionReport, error) {
	started := time.Now()

	// 1. Resolve the session.
	session, err := o.ensureSession(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &model.ExtractionReport{
		SessionID: session.ID,
		Method:    model.MethodGeneration,
	}

	// 2. Assemble memory context from session state.
	memoryContext, err := o.buildMemoryContext(ctx, *session)
	if err != nil {
		o.log.Warn().Err(err).Str("session", session.ID).Msg("memory context unavailable")
		report.Warnings = append(report.Warnings, fmt.Sprintf("memory context unavailable: %v", err))
	}

	if _, err := o.store.AddMessage(ctx, model.ConversationMessage{
		SessionID: session.ID,
		Role:      "user",
		Content:   req.Text,
	}); err != nil {
		return nil, fmt.Errorf("recording request: %w", err)
	}

	// 3. Chunk and extract per chunk.
	chunks := o.chunker.Chunk(req.Text, req.Strategy)
	report.ChunksProcessed = len(chunks)

	perChunk := make([][]model.UseCase, 0, len(chunks))
	for _, ch := range chunks {
		candidates, warning := o.extractChunk(ctx, ch, memoryContext, req.MaxUseCases)
		if warning != "" {
			report.Method = model.MethodFallback
			report.Warnings = append(report.Warnings, warning)
		}
		perChunk = append(perChunk, candidates)
		report.ChunkSummaries = append(report.ChunkSummaries, model.ChunkSummary{
			ChunkID:       ch.ID,
			CharCount:     ch.CharCount,
			UseCasesFound: len(candidates),
		})
	}

	// 4. Merge chunk results and gate each candidate.
	candidates := chunk.Merge(perChunk)
	report.ExtractedCount = len(candidates)

	if err := o.storeCandidates(ctx, session.ID, candidates, report); err != nil {
		return nil, err
	}

	// 5. Record the assistant turn.
	if _, err := o.store.AddMessage(ctx, model.ConversationMessage{
		SessionID: session.ID,
		Role:      "assistant",
		Content:   fmt.Sprintf("Extracted %d use cases (%d stored, %d duplicates)", report.ExtractedCount, report.StoredCount, report.DuplicateCount),
		Metadata: map[string]any{
			"extraction_method": string(report.Method),
			"stored_count":      report.StoredCount,
			"duplicate_count":   report.DuplicateCount,
		},
	}); err != nil {
		return nil, fmt.Errorf("recording response: %w", err)
	}

	report.Elapsed = time.Since(started)
	report.ElapsedSeconds = report.Elapsed.Seconds()

	o.log.Info().
		Str("session", session.ID).
		Str("method", string(report.Method)).
		Int("extracted", report.ExtractedCount).
		Int("stored", report.StoredCount).
		Int("duplicates", report.DuplicateCount).
		Dur("elapsed", report.Elapsed).
		Msg("extraction complete")

	return report, nil
}

// extractChunk produces candidates for one chunk, via generation when
// possible and pattern fallback otherwise. The returned warning is empty on
// the generation path.
func (o *Orchestrator) extractChunk(ctx context.Context, ch model.Chunk, memoryContext string, maxUseCases int) ([]model.UseCase, string) {
	maxForChunk := maxUseCases
	if maxForChunk <= 0 {
		maxForChunk = o.estimator.SmartMax(ch.Text)
	}

	if o.generator == nil {
		return o.fallback.Extract(ch.Text), "no generation provider configured, used pattern extraction"
	}

	candidates, err := o.generateChunk(ctx, ch, memoryContext, maxForChunk)
	if err != nil {
		o.log.Warn().Err(err).Int("chunk", ch.ID).Msg("generation failed, falling back to pattern extraction")
		return o.fallback.Extract(ch.Text), fmt.Sprintf("chunk %d: %v, used pattern extraction", ch.ID, err)
	}
	return candidates, ""
}

// generateChunk runs one generation call and parses its output into gated,
// normalized use cases.
func (o *Orchestrator) generateChunk(ctx context.Context, ch model.Chunk, memoryContext string, maxForChunk int) ([]model.UseCase, error) {
	prompt := BuildExtractionPrompt(memoryContext, ch.Text, maxForChunk)

	raw, err := o.generate(ctx, llm.GenerateRequest{
		Prompt:    prompt,
		System:    extractionSystemPrompt,
		MaxTokens: generationTokenBudget(maxForChunk),
	})
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}

	records, err := parse.ExtractRecords(parse.Clean(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing output: %w", err)
	}

	// Short-titled candidates are kept here and rejected with a recorded
	// reason at the storage gate.
	var candidates []model.UseCase
	for _, record := range records {
		candidates = append(candidates, o.enricher.Enrich(parse.Normalize(record)))
	}

	// Over-generation beyond a small tolerance gets truncated to the ask.
	if len(candidates) > maxForChunk+2 {
		o.log.Debug().Int("chunk", ch.ID).Int("got", len(candidates)).Int("kept", maxForChunk).Msg("truncating over-generation")
		candidates = candidates[:maxForChunk]
	}
	return candidates, nil
}

// generate runs one rate-limited, cached generation call and returns the raw
// model output.
func (o *Orchestrator) generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	cacheModel := req.Model
	if cacheModel == "" {
		cacheModel = o.config.LLM.Model
	}
	key := cache.GenerationKey(cacheModel, req.System+"\x00"+req.Prompt)

	if o.cache != nil {
		if cached, ok := o.cache.Get(key); ok {
			o.log.Debug().Msg("generation cache hit")
			return string(cached), nil
		}
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := o.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	if o.cache != nil {
		if err := o.cache.Set(key, []byte(resp.Text), o.config.Cache.TTL); err != nil {
			o.log.Warn().Err(err).Msg("caching generation result failed")
		}
	}
	return resp.Text, nil
}

// storeCandidates validates, deduplicates, and stores merged candidates,
// appending a CandidateResult per candidate to the report. Duplicate checks
// that fail degrade to exact-title comparison instead of blocking storage.
func (o *Orchestrator) storeCandidates(ctx context.Context, sessionID string, candidates []model.UseCase, report *model.ExtractionReport) error {
	sessionExisting, err := o.store.ListSessionUseCases(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("listing session use cases: %w", err)
	}
	otherExisting, err := o.store.ListOtherSessionUseCases(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("listing other sessions' use cases: %w", err)
	}

	for _, uc := range candidates {
		result := model.CandidateResult{Title: uc.Title}

		if len(strings.TrimSpace(uc.Title)) < minTitleChars {
			result.Status = model.CandidateRejected
			result.Issues = []string{"title too short"}
			report.Candidates = append(report.Candidates, result)
			continue
		}

		_, issues := o.validator.Validate(uc)
		result.Issues = issues
		result.Suggestions = o.validator.Suggestions(uc)
		result.QualityScore = o.validator.QualityScore(uc)

		dup, warning := o.checkDuplicate(ctx, uc, sessionExisting, otherExisting)
		if warning != "" {
			report.Warnings = append(report.Warnings, warning)
		}
		if dup.IsDuplicate {
			result.Status = model.CandidateDuplicate
			result.Similarity = dup.Similarity
			report.DuplicateCount++
			report.Candidates = append(report.Candidates, result)
			o.log.Debug().Str("title", uc.Title).Str("match", dup.MatchTitle).Float64("similarity", dup.Similarity).Msg("duplicate skipped")
			continue
		}

		id, err := o.store.InsertUseCase(ctx, sessionID, uc)
		if err != nil {
			return fmt.Errorf("storing use case %q: %w", uc.Title, err)
		}
		uc.ID = id
		sessionExisting = append(sessionExisting, uc)

		result.Status = model.CandidateStored
		result.StoredID = id
		report.StoredCount++
		report.Candidates = append(report.Candidates, result)
	}
	return nil
}

// checkDuplicate runs the two-tier duplicate gate: session-local at the
// session threshold, then cross-session at the stricter threshold. On
// detector failure it degrades to exact title matching within the session.
func (o *Orchestrator) checkDuplicate(ctx context.Context, uc model.UseCase, sessionExisting, otherExisting []model.UseCase) (dedupe.Result, string) {
	dup, err := o.detector.Check(ctx, uc, sessionExisting, o.config.Dedupe.SessionThreshold)
	if err != nil {
		return titleOnlyCheck(uc, sessionExisting), fmt.Sprintf("duplicate check degraded to title match for %q: %v", uc.Title, err)
	}
	if dup.IsDuplicate {
		return dup, ""
	}

	cross, err := o.detector.Check(ctx, uc, otherExisting, o.config.Dedupe.CrossSessionThreshold)
	if err != nil {
		return dup, fmt.Sprintf("cross-session duplicate check failed for %q: %v", uc.Title, err)
	}
	if cross.IsDuplicate {
		return cross, ""
	}
	if dup.Similarity >= cross.Similarity {
		return dup, ""
	}
	return cross, ""
}

func titleOnlyCheck(uc model.UseCase, existing []model.UseCase) dedupe.Result {
	for _, e := range existing {
		if e.TitleKey() == uc.TitleKey() {
			return dedupe.Result{IsDuplicate: true, Similarity: 1.0, MatchTitle: e.Title}
		}
	}
	return dedupe.Result{}
}

// Refine rewrites one stored use case per the given refinement instruction
// and persists the result. Unlike extraction, refinement has no fallback: a
// generation or parse failure is returned to the caller.
func (o *Orchestrator) Refine(ctx context.Context, id int64, refinementType, custom string) (*model.UseCase, error) {
	if o.generator == nil {
		return nil, fmt.Errorf("refinement requires a generation provider")
	}

	uc, err := o.store.GetUseCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if uc == nil {
		return nil, fmt.Errorf("use case %d not found", id)
	}

	sourceContext := ""
	if o.embedder != nil {
		sourceContext, err = o.refinementSource(ctx, id, *uc)
		if err != nil {
			o.log.Warn().Err(err).Int64("id", id).Msg("source retrieval unavailable, refining without it")
			sourceContext = ""
		}
	}

	prompt := BuildRefinementPrompt(*uc, RefinementInstruction(refinementType, custom), sourceContext)

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := o.generator.Generate(ctx, llm.GenerateRequest{
		Prompt:    prompt,
		System:    refinementSystemPrompt,
		MaxTokens: maxGenerationTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("refinement generation: %w", err)
	}

	records, err := parse.ExtractRecords(parse.Clean(resp.Text))
	if err != nil {
		return nil, fmt.Errorf("parsing refinement output: %w", err)
	}

	refined := parse.Normalize(records[0])
	refined.ID = id
	if strings.TrimSpace(refined.Title) == "" || refined.Title == model.PlaceholderTitle {
		refined.Title = uc.Title
	}

	if err := o.store.UpdateUseCase(ctx, id, refined); err != nil {
		return nil, err
	}
	o.log.Info().Int64("id", id).Str("type", refinementType).Msg("use case refined")
	return &refined, nil
}

// refinementSource retrieves the source-document passages most relevant to
// the use case being refined from its session's conversation history.
func (o *Orchestrator) refinementSource(ctx context.Context, id int64, uc model.UseCase) (string, error) {
	sessionID, err := o.store.GetUseCaseSession(ctx, id)
	if err != nil || sessionID == "" {
		return "", err
	}

	history, err := o.store.GetHistory(ctx, sessionID, 0)
	if err != nil {
		return "", err
	}
	var docs []string
	for _, msg := range history {
		if msg.Role == "user" {
			docs = append(docs, msg.Content)
		}
	}
	if len(docs) == 0 {
		return "", nil
	}

	retriever := memory.NewRetriever(o.embedder)
	if err := retriever.Index(ctx, strings.Join(docs, "\n\n"), 0, 0); err != nil {
		return "", err
	}
	passages, err := retriever.Retrieve(ctx, uc.Title, 2)
	if err != nil {
		return "", err
	}
	return strings.Join(passages, "\n\n"), nil
}

// SessionMetrics aggregates quality metrics and conflict findings over one
// session's stored use cases.
func (o *Orchestrator) SessionMetrics(ctx context.Context, sessionID string) (*model.SessionMetrics, error) {
	useCases, err := o.store.ListSessionUseCases(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metrics := score.NewAggregator().Metrics(useCases)
	metrics.Conflicts = dedupe.DetectConflicts(useCases)
	return &metrics, nil
}

// Estimate reports how many use cases a text plausibly contains.
func (o *Orchestrator) Estimate(text string) model.EstimationResult {
	return o.estimator.Estimate(text)
}

// ensureSession loads the session or creates it, applying any context update
// carried on the request.
func (o *Orchestrator) ensureSession(ctx context.Context, req ExtractRequest) (*model.Session, error) {
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	session, err := o.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		session = &model.Session{
			ID:             id,
			ProjectContext: req.ProjectContext,
			Domain:         req.Domain,
		}
		if err := o.store.CreateSession(ctx, *session); err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		return session, nil
	}

	if req.ProjectContext != "" || req.Domain != "" {
		if err := o.store.UpdateSessionContext(ctx, id, req.ProjectContext, req.Domain); err != nil {
			return nil, fmt.Errorf("updating session context: %w", err)
		}
		if req.ProjectContext != "" {
			session.ProjectContext = req.ProjectContext
		}
		if req.Domain != "" {
			session.Domain = req.Domain
		}
	} else if err := o.store.TouchSession(ctx, id); err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}
	return session, nil
}

// buildMemoryContext renders session memory for the prompt.
func (o *Orchestrator) buildMemoryContext(ctx context.Context, session model.Session) (string, error) {
	history, err := o.store.GetHistory(ctx, session.ID, memory.DefaultHistoryLimit)
	if err != nil {
		return "", err
	}
	previous, err := o.store.ListSessionUseCases(ctx, session.ID)
	if err != nil {
		return "", err
	}
	return o.memBuild.Build(memory.Input{
		Session:  session,
		History:  history,
		Previous: previous,
	}), nil
}

// generationTokenBudget sizes the response budget to the number of use cases
// requested, clamped to a sane range.
func generationTokenBudget(maxUseCases int) int {
	budget := maxUseCases*tokensPerUseCase + 100
	if budget < minGenerationTokens {
		return minGenerationTokens
	}
	if budget > maxGenerationTokens {
		return maxGenerationTokens
	}
	return budget
}
