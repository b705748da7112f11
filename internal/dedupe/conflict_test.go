package dedupe

import (
	"testing"

	"github.com/casewright/casewright/internal/model"
)

func TestTitleSimilarity(t *testing.T) {
	if sim := TitleSimilarity("User searches restaurants", "User searches restaurants"); sim != 1 {
		t.Errorf("Identical titles: expected 1, got %f", sim)
	}
	if sim := TitleSimilarity("User searches restaurants", "Admin deletes accounts"); sim != 0 {
		t.Errorf("Disjoint titles: expected 0, got %f", sim)
	}
	// Stop words must not count toward similarity.
	if sim := TitleSimilarity("the a an", "the a an"); sim != 0 {
		t.Errorf("Stop-word-only titles: expected 0, got %f", sim)
	}
}

func TestDetectConflicts_DuplicateFunctionality(t *testing.T) {
	useCases := []model.UseCase{
		{Title: "User searches restaurants", MainFlow: []string{"open app", "enter query"}},
		{Title: "User searches restaurants nearby", MainFlow: []string{"open app", "enter query", "view map"}},
	}

	conflicts := DetectConflicts(useCases)

	found := false
	for _, c := range conflicts {
		if c.Type == "duplicate_functionality" {
			found = true
			if c.Severity != model.SeverityMedium {
				t.Errorf("Expected medium severity, got %s", c.Severity)
			}
			if c.Similarity <= 0 {
				t.Error("Expected similarity score on duplicate finding")
			}
		}
	}
	if !found {
		t.Errorf("Expected duplicate_functionality conflict, got %v", conflicts)
	}
}

func TestDetectConflicts_ConflictingOutcomes(t *testing.T) {
	useCases := []model.UseCase{
		{Title: "User requests refund", Outcomes: []string{"Refund is never issued automatically"}},
		{Title: "User cancels order", Outcomes: []string{"Refund is always issued automatically"}},
	}

	conflicts := DetectConflicts(useCases)

	found := false
	for _, c := range conflicts {
		if c.Type == "conflicting_outcomes" && c.Severity == model.SeverityHigh {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected conflicting_outcomes conflict, got %v", conflicts)
	}
}

func TestDetectConflicts_InconsistentTerminology(t *testing.T) {
	useCases := []model.UseCase{
		{Title: "User logs into account", MainFlow: []string{"user provides login"}},
		{Title: "Customer views orders", MainFlow: []string{"customer opens history"}},
	}

	conflicts := DetectConflicts(useCases)

	found := false
	for _, c := range conflicts {
		if c.Type == "inconsistent_terminology" {
			found = true
			if c.Severity != model.SeverityLow {
				t.Errorf("Expected low severity, got %s", c.Severity)
			}
			if len(c.Details) < 2 {
				t.Errorf("Expected at least two variations, got %v", c.Details)
			}
		}
	}
	if !found {
		t.Errorf("Expected inconsistent_terminology conflict, got %v", conflicts)
	}
}

func TestDetectConflicts_MissingDependency(t *testing.T) {
	useCases := []model.UseCase{
		{
			Title:         "User places order",
			Preconditions: []string{"Requires user registration"},
			MainFlow:      []string{"checkout"},
		},
	}

	conflicts := DetectConflicts(useCases)

	found := false
	for _, c := range conflicts {
		if c.Type == "missing_dependency" && c.UseCase1 == "User places order" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected missing_dependency conflict, got %v", conflicts)
	}
}

func TestDetectConflicts_CleanSet(t *testing.T) {
	useCases := []model.UseCase{
		{Title: "User browses catalog", MainFlow: []string{"open catalog", "scroll items"}, Outcomes: []string{"items listed"}},
		{Title: "Admin reviews inventory", MainFlow: []string{"open dashboard", "inspect stock"}, Outcomes: []string{"stock verified"}},
	}

	if conflicts := DetectConflicts(useCases); len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %v", conflicts)
	}
}
