package parse

import (
	"reflect"
	"testing"

	"github.com/casewright/casewright/internal/model"
)

// sequenceFields enumerates the six list-valued fields and their placeholders.
var sequenceFields = map[string]string{
	"preconditions":   model.PlaceholderPreconditions,
	"main_flow":       model.PlaceholderMainFlow,
	"sub_flows":       model.PlaceholderSubFlows,
	"alternate_flows": model.PlaceholderAlternateFlows,
	"outcomes":        model.PlaceholderOutcomes,
	"stakeholders":    model.PlaceholderStakeholders,
}

func fieldOf(uc model.UseCase, name string) []string {
	switch name {
	case "preconditions":
		return uc.Preconditions
	case "main_flow":
		return uc.MainFlow
	case "sub_flows":
		return uc.SubFlows
	case "alternate_flows":
		return uc.AlternateFlows
	case "outcomes":
		return uc.Outcomes
	case "stakeholders":
		return uc.Stakeholders
	}
	return nil
}

func TestNormalize_TotalCoverage(t *testing.T) {
	// Every field, every input shape: sequence, mapping, scalar, null, missing.
	shapes := map[string]any{
		"sequence": []any{"a", "b"},
		"mapping":  map[string]any{"k": "v"},
		"scalar":   "single value",
		"number":   float64(3),
		"null":     nil,
	}

	for field, placeholder := range sequenceFields {
		for shapeName, shape := range shapes {
			raw := Record{"title": "Some Use Case"}
			if shapeName != "missing" {
				raw[field] = shape
			}
			uc := Normalize(raw)

			got := fieldOf(uc, field)
			if got == nil || len(got) == 0 {
				t.Errorf("field %s shape %s: got nil/empty slice", field, shapeName)
			}
			for _, s := range got {
				if s == "" {
					t.Errorf("field %s shape %s: empty string element", field, shapeName)
				}
			}
			if shapeName == "null" && !reflect.DeepEqual(got, []string{placeholder}) {
				t.Errorf("field %s null: expected placeholder %q, got %v", field, placeholder, got)
			}
		}

		// Missing entirely.
		uc := Normalize(Record{"title": "Some Use Case"})
		if got := fieldOf(uc, field); !reflect.DeepEqual(got, []string{placeholder}) {
			t.Errorf("field %s missing: expected placeholder, got %v", field, got)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := Record{
		"title":           "User updates profile",
		"preconditions":   []any{"User is logged in"},
		"main_flow":       map[string]any{"step1": "open settings", "step2": "edit"},
		"sub_flows":       "optional avatar upload",
		"alternate_flows": nil,
		"outcomes":        []any{"profile saved", float64(200)},
		"stakeholders":    []any{"User", "System"},
	}

	first := Normalize(raw)

	// Re-normalizing the already-canonical shape must be a fixpoint.
	again := Record{
		"title":           first.Title,
		"preconditions":   first.Preconditions,
		"main_flow":       first.MainFlow,
		"sub_flows":       first.SubFlows,
		"alternate_flows": first.AlternateFlows,
		"outcomes":        first.Outcomes,
		"stakeholders":    first.Stakeholders,
	}
	second := Normalize(again)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Normalize not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalize_MappingFlattensSorted(t *testing.T) {
	uc := Normalize(Record{
		"title":     "Admin manages users",
		"main_flow": map[string]any{"b": "second", "a": "first"},
	})

	want := []string{"a: first", "b: second"}
	if !reflect.DeepEqual(uc.MainFlow, want) {
		t.Errorf("Expected sorted key flattening %v, got %v", want, uc.MainFlow)
	}
}

func TestNormalize_TitleFallback(t *testing.T) {
	uc := Normalize(Record{})
	if uc.Title != model.PlaceholderTitle {
		t.Errorf("Expected %q, got %q", model.PlaceholderTitle, uc.Title)
	}

	uc = Normalize(Record{"title": "   "})
	if uc.Title != model.PlaceholderTitle {
		t.Errorf("Expected whitespace title replaced, got %q", uc.Title)
	}
}

func TestNormalize_NestedListsFlattened(t *testing.T) {
	uc := Normalize(Record{
		"title":    "User exports data",
		"outcomes": []any{"done", []any{"nested one", "nested two"}},
	})

	want := []string{"done", "nested one", "nested two"}
	if !reflect.DeepEqual(uc.Outcomes, want) {
		t.Errorf("Expected %v, got %v", want, uc.Outcomes)
	}
}
