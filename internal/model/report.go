package model

import "time"

// CandidateStatus records the accept/reject decision for one candidate.
type CandidateStatus string

const (
	CandidateStored    CandidateStatus = "stored"
	CandidateDuplicate CandidateStatus = "duplicate_skipped"
	CandidateRejected  CandidateStatus = "rejected"
)

// CandidateResult is the per-candidate entry of an ExtractionReport.
type CandidateResult struct {
	Title        string          `json:"title"`
	Status       CandidateStatus `json:"status"`
	Issues       []string        `json:"issues,omitempty"`
	Suggestions  []string        `json:"suggestions,omitempty"` // advice derived from the issues
	QualityScore float64         `json:"quality_score"`
	Similarity   float64         `json:"similarity,omitempty"` // max cosine sim against existing, set for duplicates
	StoredID     int64           `json:"stored_id,omitempty"`
}

// ChunkSummary describes what a single chunk contributed.
type ChunkSummary struct {
	ChunkID       int `json:"chunk_id"`
	CharCount     int `json:"char_count"`
	UseCasesFound int `json:"use_cases_found"`
}

// ExtractionMethod names the path that produced the candidates.
type ExtractionMethod string

const (
	MethodGeneration ExtractionMethod = "generation"
	MethodFallback   ExtractionMethod = "fallback"
)

// ExtractionReport is the complete result of one extract call: enough for a
// caller to render progress and decisions without re-deriving them. A request
// that hits every internal failure mode still returns a report, with Warnings
// explaining the degradation.
type ExtractionReport struct {
	SessionID       string            `json:"session_id"`
	Method          ExtractionMethod  `json:"extraction_method"`
	ChunksProcessed int               `json:"chunks_processed"`
	ChunkSummaries  []ChunkSummary    `json:"chunk_summaries,omitempty"`
	ExtractedCount  int               `json:"extracted_count"`
	StoredCount     int               `json:"stored_count"`
	DuplicateCount  int               `json:"duplicate_count"`
	Candidates      []CandidateResult `json:"results"`
	Warnings        []string          `json:"warnings,omitempty"`
	Elapsed         time.Duration     `json:"-"`
	ElapsedSeconds  float64           `json:"processing_time_seconds"`
}

// Session scopes a sequence of extracted use cases and conversation turns.
// It is the deduplication universe and the source of prompt memory.
type Session struct {
	ID             string    `json:"session_id"`
	ProjectContext string    `json:"project_context,omitempty"`
	Domain         string    `json:"domain,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`
}

// ConversationMessage is one turn of a session's history.
type ConversationMessage struct {
	ID        int64          `json:"id,omitempty"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"` // "user" or "assistant"
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ConflictSeverity grades how serious a detected conflict is.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// Conflict is an advisory finding about two already-accepted use cases.
// Conflicts never block storage.
type Conflict struct {
	Type        string           `json:"type"`
	Severity    ConflictSeverity `json:"severity"`
	UseCase1    string           `json:"use_case_1,omitempty"`
	UseCase2    string           `json:"use_case_2,omitempty"`
	Description string           `json:"description"`
	Details     []string         `json:"details,omitempty"`
	Similarity  float64          `json:"similarity_score,omitempty"`
}

// SessionMetrics aggregates quality information over a session's use cases.
type SessionMetrics struct {
	TotalUseCases     int            `json:"total_use_cases"`
	AvgPreconditions  float64        `json:"avg_preconditions"`
	AvgMainFlowSteps  float64        `json:"avg_main_flow_steps"`
	AvgOutcomes       float64        `json:"avg_outcomes"`
	WithSubFlows      int            `json:"with_sub_flows"`
	WithAlternates    int            `json:"with_alternate_flows"`
	Stakeholders      []string       `json:"stakeholders"`
	CompletenessScore float64        `json:"completeness_score"`
	QualityBuckets    QualityBuckets `json:"quality_summary"`
	Conflicts         []Conflict     `json:"conflicts,omitempty"`
}

// QualityBuckets counts use cases by quality band.
type QualityBuckets struct {
	Excellent        int `json:"excellent"`         // score >= 80
	Good             int `json:"good"`              // 60 <= score < 80
	NeedsImprovement int `json:"needs_improvement"` // score < 60
}
