// Package validate scores normalized use cases for completeness and lists
// improvement issues. Issues are advisory: they accompany stored records and
// never block storage. Validation is a completeness gate, not a correctness
// gate - it cannot tell whether the model understood the requirements, only
// whether the record is fully fleshed out.
package validate

import (
	"fmt"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

// actionVerbs is the vocabulary a well-formed title is expected to contain.
var actionVerbs = []string{
	"add", "create", "delete", "update", "search", "view", "manage",
	"edit", "remove", "submit", "process", "validate", "approve",
	"reject", "send", "receive", "upload", "download", "export",
	"import", "configure", "register", "login", "logout", "browse",
	"filter", "sort", "select", "purchase", "pay", "checkout", "track",
	"cancel", "place", "review", "verify",
}

// Validator checks use case quality and structure.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns whether the use case is complete and the list of issues
// found. The record is valid iff the issue list is empty; this is
// intentionally strict.
func (v *Validator) Validate(uc model.UseCase) (bool, []string) {
	var issues []string

	if len(strings.Fields(uc.Title)) < 3 {
		issues = append(issues, "Title too short - should follow 'Actor Action Object' pattern")
	}
	if !containsActionVerb(uc.Title) {
		issues = append(issues, "Title should contain an action verb")
	}

	if isPlaceholder(uc.Preconditions, model.PlaceholderPreconditions) {
		issues = append(issues, "Use case should have at least one precondition")
	}

	switch {
	case isPlaceholder(uc.MainFlow, model.PlaceholderMainFlow):
		issues = append(issues, "Main flow is required")
	case len(uc.MainFlow) < 2:
		issues = append(issues, "Main flow should have at least 2 steps")
	case len(uc.MainFlow) < 3:
		issues = append(issues, "Consider adding more detail to main flow")
	}

	if isPlaceholder(uc.SubFlows, model.PlaceholderSubFlows) {
		issues = append(issues, "Consider adding optional/alternative sub-flows")
	}
	if isPlaceholder(uc.AlternateFlows, model.PlaceholderAlternateFlows) {
		issues = append(issues, "Consider adding error handling and alternate paths")
	}
	if isPlaceholder(uc.Outcomes, model.PlaceholderOutcomes) {
		issues = append(issues, "Use case should define expected outcomes")
	}

	switch {
	case isPlaceholder(uc.Stakeholders, model.PlaceholderStakeholders):
		issues = append(issues, "Use case should identify stakeholders")
	case len(uc.Stakeholders) < 2:
		issues = append(issues, "Consider identifying more stakeholders (actors, systems)")
	}
	if !mentionsSystem(uc.Stakeholders) {
		issues = append(issues, "Consider adding 'System' as a stakeholder")
	}

	return len(issues) == 0, issues
}

// QualityScore calculates a deterministic 0-100 completeness score.
//
// Weights: title 10, preconditions 15, main flow 25, sub flows 15,
// alternate flows 15, outcomes 10, stakeholders 10.
func (v *Validator) QualityScore(uc model.UseCase) float64 {
	score := 0.0

	if len(strings.Fields(uc.Title)) >= 3 {
		score += 5
	}
	if containsActionVerb(uc.Title) {
		score += 5
	}

	if !isPlaceholder(uc.Preconditions, model.PlaceholderPreconditions) {
		score += min(float64(len(uc.Preconditions))*5, 15)
	}

	if !isPlaceholder(uc.MainFlow, model.PlaceholderMainFlow) {
		switch {
		case len(uc.MainFlow) >= 5:
			score += 25
		case len(uc.MainFlow) >= 3:
			score += 20
		case len(uc.MainFlow) >= 2:
			score += 15
		default:
			score += 10
		}
	}

	if !isPlaceholder(uc.SubFlows, model.PlaceholderSubFlows) {
		score += min(float64(len(uc.SubFlows))*5, 15)
	}
	if !isPlaceholder(uc.AlternateFlows, model.PlaceholderAlternateFlows) {
		score += min(float64(len(uc.AlternateFlows))*5, 15)
	}
	if !isPlaceholder(uc.Outcomes, model.PlaceholderOutcomes) {
		score += min(float64(len(uc.Outcomes))*5, 10)
	}
	if !isPlaceholder(uc.Stakeholders, model.PlaceholderStakeholders) {
		score += min(float64(len(uc.Stakeholders))*3, 10)
	}

	return min(score, 100)
}

// Suggestions translates issues into concrete improvement advice.
func (v *Validator) Suggestions(uc model.UseCase) []string {
	var suggestions []string

	valid, issues := v.Validate(uc)
	if !valid {
		for _, issue := range issues {
			lower := strings.ToLower(issue)
			switch {
			case strings.Contains(lower, "title"):
				suggestions = append(suggestions, "Rewrite title in format: 'Actor ActionVerb Object' (e.g., 'Customer searches for books')")
			case strings.Contains(lower, "precondition"):
				suggestions = append(suggestions, "Add preconditions like: user authentication state, system availability, data prerequisites")
			case strings.Contains(lower, "main flow"):
				suggestions = append(suggestions, "Break down the main flow into more detailed steps, each describing a specific action")
			case strings.Contains(lower, "sub-flow"):
				suggestions = append(suggestions, "Add optional features, filters, or sorting capabilities as sub-flows")
			case strings.Contains(lower, "alternate"):
				suggestions = append(suggestions, "Add error handling: what happens on validation failure, timeout, or system error?")
			case strings.Contains(lower, "outcome"):
				suggestions = append(suggestions, "Define clear success criteria and what the actor achieves")
			case strings.Contains(lower, "stakeholder"):
				suggestions = append(suggestions, "Identify all involved parties: primary actor, secondary actors, external systems")
			}
		}
	}

	if qs := v.QualityScore(uc); qs < 60 {
		suggestions = append(suggestions, fmt.Sprintf("Quality score is %.0f/100. Consider enriching all sections for better completeness.", qs))
	}
	return suggestions
}

// isPlaceholder reports whether a field is empty or still carries its
// normalization placeholder.
func isPlaceholder(values []string, placeholder string) bool {
	if len(values) == 0 {
		return true
	}
	return len(values) == 1 && values[0] == placeholder
}

func containsActionVerb(title string) bool {
	lower := strings.ToLower(title)
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

func mentionsSystem(stakeholders []string) bool {
	for _, s := range stakeholders {
		if strings.Contains(strings.ToLower(s), "system") {
			return true
		}
	}
	return false
}
