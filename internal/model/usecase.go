package model

import "strings"

// Placeholder values substituted for absent or empty use case fields.
// Downstream code (validation, scoring, metrics) compares against these to
// tell real content apart from filler.
const (
	PlaceholderTitle          = "Untitled"
	PlaceholderPreconditions  = "No preconditions"
	PlaceholderMainFlow       = "No main flow"
	PlaceholderSubFlows       = "No subflows"
	PlaceholderAlternateFlows = "No alternate flows"
	PlaceholderOutcomes       = "No outcomes"
	PlaceholderStakeholders   = "No stakeholders"
)

// UseCase is the canonical extracted entity. After normalization every
// sequence field is a non-nil, non-empty slice of strings - never a map,
// scalar, or null. The rest of the pipeline depends on that invariant.
type UseCase struct {
	ID             int64    `json:"id,omitempty"`
	Title          string   `json:"title"`
	Preconditions  []string `json:"preconditions"`
	MainFlow       []string `json:"main_flow"`
	SubFlows       []string `json:"sub_flows"`
	AlternateFlows []string `json:"alternate_flows"`
	Outcomes       []string `json:"outcomes"`
	Stakeholders   []string `json:"stakeholders"`
}

// EmbeddingText combines title and main flow into the text that is embedded
// for duplicate detection. Both sides of a comparison must use the same
// construction.
func (u UseCase) EmbeddingText() string {
	return u.Title + " " + strings.Join(u.MainFlow, " ")
}

// TitleKey returns the case-insensitive, whitespace-trimmed form of the title
// used for same-batch deduplication.
func (u UseCase) TitleKey() string {
	return strings.ToLower(strings.TrimSpace(u.Title))
}

// Chunk is a contiguous slice of a source document, produced transiently per
// extraction call and never persisted.
type Chunk struct {
	ID              int    `json:"chunk_id"`
	Text            string `json:"text"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Strategy        string `json:"strategy"`
}

// EstimationResult reports how many use cases a blob of text plausibly
// contains. Consumed immediately to size prompts; not persisted.
type EstimationResult struct {
	MinEstimate int               `json:"min_estimate"`
	MaxEstimate int               `json:"max_estimate"`
	Details     EstimationDetails `json:"details"`
}

// EstimationDetails exposes the raw counts behind an estimate so the numbers
// stay explainable.
type EstimationDetails struct {
	CharCount         int      `json:"char_count"`
	SentenceCount     int      `json:"sentence_count"`
	ActionVerbCount   int      `json:"action_verb_count"`
	UniqueActions     int      `json:"unique_actions"`
	FoundActions      []string `json:"found_actions"`
	ActorCount        int      `json:"actor_count"`
	ConjunctionSplits int      `json:"conjunction_splits"`
	ListItems         int      `json:"list_items"`
	Estimates         []int    `json:"estimates"`
}
