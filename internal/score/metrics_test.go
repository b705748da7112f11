package score

import (
	"reflect"
	"testing"

	"github.com/casewright/casewright/internal/model"
)

func TestMetrics_Empty(t *testing.T) {
	a := NewAggregator()

	m := a.Metrics(nil)
	if m.TotalUseCases != 0 {
		t.Errorf("Expected zero total, got %d", m.TotalUseCases)
	}
}

func TestMetrics_Averages(t *testing.T) {
	a := NewAggregator()

	useCases := []model.UseCase{
		{
			Title:          "User searches catalog",
			Preconditions:  []string{"logged in", "catalog loaded"},
			MainFlow:       []string{"open", "type", "submit", "view"},
			SubFlows:       []string{"filter results"},
			AlternateFlows: []string{model.PlaceholderAlternateFlows},
			Outcomes:       []string{"results shown"},
			Stakeholders:   []string{"User", "System"},
		},
		{
			Title:          "Admin removes listing",
			Preconditions:  []string{model.PlaceholderPreconditions},
			MainFlow:       []string{"open admin", "select listing"},
			SubFlows:       []string{model.PlaceholderSubFlows},
			AlternateFlows: []string{"if locked: show error"},
			Outcomes:       []string{"listing removed", "audit logged"},
			Stakeholders:   []string{"Admin", "System"},
		},
	}

	m := a.Metrics(useCases)

	if m.TotalUseCases != 2 {
		t.Fatalf("Expected 2 use cases, got %d", m.TotalUseCases)
	}
	// Placeholder preconditions count as zero: (2+0)/2 = 1.
	if m.AvgPreconditions != 1 {
		t.Errorf("Expected avg preconditions 1, got %f", m.AvgPreconditions)
	}
	if m.AvgMainFlowSteps != 3 {
		t.Errorf("Expected avg main flow steps 3, got %f", m.AvgMainFlowSteps)
	}
	if m.AvgOutcomes != 1.5 {
		t.Errorf("Expected avg outcomes 1.5, got %f", m.AvgOutcomes)
	}
	if m.WithSubFlows != 1 {
		t.Errorf("Expected 1 with sub flows, got %d", m.WithSubFlows)
	}
	if m.WithAlternates != 1 {
		t.Errorf("Expected 1 with alternate flows, got %d", m.WithAlternates)
	}
}

func TestMetrics_StakeholderUnionSorted(t *testing.T) {
	a := NewAggregator()

	useCases := []model.UseCase{
		{Title: "a", MainFlow: []string{"x"}, Stakeholders: []string{"User", "System"}},
		{Title: "b", MainFlow: []string{"y"}, Stakeholders: []string{"Admin", "System"}},
	}

	m := a.Metrics(useCases)

	want := []string{"Admin", "System", "User"}
	if !reflect.DeepEqual(m.Stakeholders, want) {
		t.Errorf("Expected %v, got %v", want, m.Stakeholders)
	}
}

func TestMetrics_CompletenessScore(t *testing.T) {
	a := NewAggregator()

	// Passes all six checks.
	full := model.UseCase{
		Title:          "User places order",
		Preconditions:  []string{"cart not empty", "logged in"},
		MainFlow:       []string{"open cart", "checkout", "confirm"},
		SubFlows:       []string{"apply coupon"},
		AlternateFlows: []string{"payment declined: retry"},
		Outcomes:       []string{"order created"},
		Stakeholders:   []string{"User", "System"},
	}
	m := a.Metrics([]model.UseCase{full})
	if m.CompletenessScore != 100 {
		t.Errorf("Expected completeness 100, got %f", m.CompletenessScore)
	}

	// Passes none.
	bare := model.UseCase{
		Title:          "x",
		Preconditions:  []string{model.PlaceholderPreconditions},
		MainFlow:       []string{model.PlaceholderMainFlow},
		SubFlows:       []string{model.PlaceholderSubFlows},
		AlternateFlows: []string{model.PlaceholderAlternateFlows},
		Outcomes:       []string{model.PlaceholderOutcomes},
		Stakeholders:   []string{model.PlaceholderStakeholders},
	}
	m = a.Metrics([]model.UseCase{bare})
	if m.CompletenessScore != 0 {
		t.Errorf("Expected completeness 0, got %f", m.CompletenessScore)
	}
}

func TestMetrics_QualityBucketsSum(t *testing.T) {
	a := NewAggregator()

	useCases := []model.UseCase{
		{Title: "User creates account", MainFlow: []string{"a", "b", "c"}},
		{Title: "x", MainFlow: []string{"a"}},
	}
	m := a.Metrics(useCases)

	sum := m.QualityBuckets.Excellent + m.QualityBuckets.Good + m.QualityBuckets.NeedsImprovement
	if sum != len(useCases) {
		t.Errorf("Buckets should partition the set: %d != %d", sum, len(useCases))
	}
}
