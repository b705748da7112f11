package pipeline

import (
	"reflect"
	"testing"

	"github.com/casewright/casewright/internal/model"
)

func TestEnrich_ThinMainFlow(t *testing.T) {
	uc := model.UseCase{
		Title:    "Customer cancels subscription",
		MainFlow: []string{"Customer opens account page"},
	}

	got := NewEnricher().Enrich(uc)

	if len(got.MainFlow) < minMainFlowSteps {
		t.Fatalf("Expected expanded main flow, got %v", got.MainFlow)
	}
	if got.MainFlow[0] != "Customer attempts to cancels subscription" {
		t.Errorf("Unexpected first step %q", got.MainFlow[0])
	}
	// The original step survives in the middle.
	if got.MainFlow[1] != "Customer opens account page" {
		t.Errorf("Expected original step preserved, got %v", got.MainFlow)
	}
}

func TestEnrich_PlaceholderFields(t *testing.T) {
	uc := model.UseCase{
		Title:          "Admin approves request",
		Preconditions:  []string{model.PlaceholderPreconditions},
		MainFlow:       []string{model.PlaceholderMainFlow},
		Outcomes:       []string{model.PlaceholderOutcomes},
		AlternateFlows: []string{model.PlaceholderAlternateFlows},
		Stakeholders:   []string{model.PlaceholderStakeholders},
	}

	got := NewEnricher().Enrich(uc)

	if got.Preconditions[0] != "Admin has access to the system" {
		t.Errorf("Unexpected preconditions %v", got.Preconditions)
	}
	if got.Outcomes[0] != "Approves request is completed successfully" {
		t.Errorf("Unexpected outcomes %v", got.Outcomes)
	}
	if len(got.AlternateFlows) != 1 {
		t.Errorf("Unexpected alternate flows %v", got.AlternateFlows)
	}
	if !reflect.DeepEqual(got.Stakeholders, []string{"Admin", "System"}) {
		t.Errorf("Unexpected stakeholders %v", got.Stakeholders)
	}
}

func TestEnrich_CompleteUseCaseUntouched(t *testing.T) {
	uc := model.UseCase{
		Title:          "User places order",
		Preconditions:  []string{"Cart is not empty"},
		MainFlow:       []string{"User opens cart", "User confirms payment", "System creates order"},
		SubFlows:       []string{"User applies coupon"},
		AlternateFlows: []string{"If payment fails: System shows error"},
		Outcomes:       []string{"Order is created"},
		Stakeholders:   []string{"User", "System"},
	}

	got := NewEnricher().Enrich(uc)

	if !reflect.DeepEqual(got, uc) {
		t.Errorf("Expected complete use case unchanged, got %+v", got)
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	uc := model.UseCase{Title: "User logs in", MainFlow: []string{model.PlaceholderMainFlow}}

	once := NewEnricher().Enrich(uc)
	twice := NewEnricher().Enrich(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Expected idempotent enrichment, got %+v then %+v", once, twice)
	}
}

func TestEnrich_UntitledFallsBackToUser(t *testing.T) {
	uc := model.UseCase{Title: model.PlaceholderTitle, MainFlow: []string{model.PlaceholderMainFlow}}

	got := NewEnricher().Enrich(uc)

	if got.MainFlow[0] != "User initiates the action" {
		t.Errorf("Unexpected first step %q", got.MainFlow[0])
	}
}
