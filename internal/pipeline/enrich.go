package pipeline

import (
	"strings"

	"github.com/casewright/casewright/internal/model"
)

// minMainFlowSteps is the floor below which a main flow counts as thin.
const minMainFlowSteps = 3

// Enricher fills out thin use cases deterministically: it derives missing
// steps and fields from the title rather than calling the model again.
type Enricher struct{}

// NewEnricher creates an enricher.
func NewEnricher() *Enricher {
	return &Enricher{}
}

// Enrich returns a copy of the use case with thin or placeholder fields
// filled in. Real content is never overwritten; enriching an already complete
// use case is a no-op, so repeated enrichment is safe.
func (e *Enricher) Enrich(uc model.UseCase) model.UseCase {
	actor, action := splitTitle(uc.Title)

	if realSteps(uc.MainFlow, model.PlaceholderMainFlow) < minMainFlowSteps {
		uc.MainFlow = expandMainFlow(uc.MainFlow, actor, action)
	}
	if onlyPlaceholder(uc.Preconditions, model.PlaceholderPreconditions) {
		uc.Preconditions = []string{
			actor + " has access to the system",
			"System is operational",
		}
	}
	if onlyPlaceholder(uc.Outcomes, model.PlaceholderOutcomes) {
		outcome := "Action is completed successfully"
		if action != "" {
			outcome = capitalize(action) + " is completed successfully"
		}
		uc.Outcomes = []string{outcome, "System state reflects the change"}
	}
	if onlyPlaceholder(uc.AlternateFlows, model.PlaceholderAlternateFlows) {
		uc.AlternateFlows = []string{
			"If an error occurs: System reports the failure and no changes are applied",
		}
	}
	if onlyPlaceholder(uc.Stakeholders, model.PlaceholderStakeholders) {
		uc.Stakeholders = []string{actor, "System"}
	}
	return uc
}

// expandMainFlow rebuilds a thin main flow around the title's actor and
// action, keeping whatever real steps already exist in the middle.
func expandMainFlow(existing []string, actor, action string) []string {
	initiate := actor + " initiates the action"
	if action != "" {
		initiate = actor + " attempts to " + action
	}

	flow := []string{initiate}
	for _, step := range existing {
		if strings.TrimSpace(step) == "" || step == model.PlaceholderMainFlow {
			continue
		}
		flow = append(flow, step)
	}
	flow = append(flow,
		"System validates the request",
		"System performs the requested operation",
		actor+" receives the result",
	)
	return flow
}

// splitTitle separates "Actor does something" into its actor and action. A
// single-word or empty title falls back to the generic actor "User".
func splitTitle(title string) (actor, action string) {
	words := strings.Fields(strings.TrimSpace(title))
	if len(words) == 0 || strings.EqualFold(title, model.PlaceholderTitle) {
		return "User", ""
	}
	if len(words) == 1 {
		return capitalize(words[0]), ""
	}
	return capitalize(words[0]), strings.ToLower(strings.Join(words[1:], " "))
}

func realSteps(values []string, placeholder string) int {
	n := 0
	for _, v := range values {
		if v != placeholder && strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

func onlyPlaceholder(values []string, placeholder string) bool {
	return realSteps(values, placeholder) == 0
}
