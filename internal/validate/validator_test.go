package validate

import (
	"strings"
	"testing"

	"github.com/casewright/casewright/internal/model"
)

func completeUseCase() model.UseCase {
	return model.UseCase{
		Title:          "User searches for restaurants",
		Preconditions:  []string{"User has internet connection", "Location services enabled", "App is installed"},
		MainFlow:       []string{"User opens app", "User enters criteria", "System queries database", "System displays results", "User views results"},
		SubFlows:       []string{"User can filter results", "User can sort by rating", "User can save searches"},
		AlternateFlows: []string{"If no results: System suggests nearby areas", "If connection fails: System shows cached results", "If timeout: System retries"},
		Outcomes:       []string{"User sees restaurant list", "Search is logged"},
		Stakeholders:   []string{"User", "System", "Database"},
	}
}

func TestValidator_CompleteUseCaseIsValid(t *testing.T) {
	v := NewValidator()

	valid, issues := v.Validate(completeUseCase())

	if !valid {
		t.Errorf("Expected complete use case to be valid, issues: %v", issues)
	}
}

func TestValidator_PlaceholderFieldsFlagged(t *testing.T) {
	v := NewValidator()

	uc := model.UseCase{
		Title:          "Login",
		Preconditions:  []string{model.PlaceholderPreconditions},
		MainFlow:       []string{model.PlaceholderMainFlow},
		SubFlows:       []string{model.PlaceholderSubFlows},
		AlternateFlows: []string{model.PlaceholderAlternateFlows},
		Outcomes:       []string{model.PlaceholderOutcomes},
		Stakeholders:   []string{model.PlaceholderStakeholders},
	}

	valid, issues := v.Validate(uc)

	if valid {
		t.Error("Expected placeholder-only use case to be invalid")
	}
	// Short title, no verb is covered by the verb list (login IS a verb here),
	// so expect at least the six field issues plus the short-title issue.
	if len(issues) < 6 {
		t.Errorf("Expected at least 6 issues, got %d: %v", len(issues), issues)
	}
}

func TestQualityScore_Deterministic(t *testing.T) {
	v := NewValidator()
	uc := completeUseCase()

	first := v.QualityScore(uc)
	for i := 0; i < 10; i++ {
		if got := v.QualityScore(uc); got != first {
			t.Fatalf("Score not deterministic: %f vs %f", first, got)
		}
	}
}

func TestQualityScore_Range(t *testing.T) {
	v := NewValidator()

	empty := v.QualityScore(model.UseCase{})
	full := v.QualityScore(completeUseCase())

	if empty < 0 || empty > 100 {
		t.Errorf("Empty score out of range: %f", empty)
	}
	if full < 0 || full > 100 {
		t.Errorf("Full score out of range: %f", full)
	}
	if full <= empty {
		t.Errorf("Expected complete use case to outscore empty one: %f vs %f", full, empty)
	}
}

func TestQualityScore_NonDecreasingWhenPlaceholderReplaced(t *testing.T) {
	v := NewValidator()

	base := completeUseCase()
	base.SubFlows = []string{model.PlaceholderSubFlows}
	before := v.QualityScore(base)

	base.SubFlows = []string{"User can apply filters", "User can sort results"}
	after := v.QualityScore(base)

	if after < before {
		t.Errorf("Score decreased after replacing placeholder: %f -> %f", before, after)
	}
}

func TestQualityScore_MainFlowTiers(t *testing.T) {
	v := NewValidator()

	tiers := []struct {
		steps int
		want  float64
	}{
		{5, 25}, {3, 20}, {2, 15}, {1, 10},
	}

	for _, tt := range tiers {
		uc := model.UseCase{Title: "x"}
		for i := 0; i < tt.steps; i++ {
			uc.MainFlow = append(uc.MainFlow, "step")
		}
		got := v.QualityScore(uc)
		if got != tt.want {
			t.Errorf("steps=%d: expected score %f, got %f", tt.steps, tt.want, got)
		}
	}
}

func TestSuggestions_MapIssuesToAdvice(t *testing.T) {
	v := NewValidator()

	uc := model.UseCase{
		Title:          "Login",
		Preconditions:  []string{model.PlaceholderPreconditions},
		MainFlow:       []string{"User logs in"},
		SubFlows:       []string{model.PlaceholderSubFlows},
		AlternateFlows: []string{model.PlaceholderAlternateFlows},
		Outcomes:       []string{model.PlaceholderOutcomes},
		Stakeholders:   []string{model.PlaceholderStakeholders},
	}

	suggestions := v.Suggestions(uc)
	if len(suggestions) == 0 {
		t.Fatal("Expected suggestions for an incomplete use case")
	}

	joined := strings.Join(suggestions, "\n")
	for _, want := range []string{"title", "precondition", "error handling", "Quality score"} {
		if !strings.Contains(strings.ToLower(joined), strings.ToLower(want)) {
			t.Errorf("Expected a suggestion mentioning %q, got %v", want, suggestions)
		}
	}
}

func TestSuggestions_EmptyForCompleteUseCase(t *testing.T) {
	v := NewValidator()

	if got := v.Suggestions(completeUseCase()); len(got) != 0 {
		t.Errorf("Expected no suggestions for a complete use case, got %v", got)
	}
}

func TestValidator_MissingSystemStakeholder(t *testing.T) {
	v := NewValidator()

	uc := completeUseCase()
	uc.Stakeholders = []string{"User", "Customer"}

	valid, issues := v.Validate(uc)
	if valid {
		t.Error("Expected issue for missing System stakeholder")
	}
	found := false
	for _, issue := range issues {
		if issue == "Consider adding 'System' as a stakeholder" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected System stakeholder issue, got %v", issues)
	}
}
