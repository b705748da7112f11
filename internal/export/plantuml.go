package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

// PlantUML renders a use case diagram: one actor node per distinct
// stakeholder, one usecase node per use case, arrows for participation, and
// include edges where one use case's flows mention another's title.
func PlantUML(useCases []model.UseCase) string {
	var uml strings.Builder

	uml.WriteString("@startuml\n")
	uml.WriteString("left to right direction\n")
	uml.WriteString("skinparam packageStyle rectangle\n\n")

	actorSet := map[string]struct{}{}
	for _, uc := range useCases {
		if !hasContent(uc.Stakeholders, model.PlaceholderStakeholders) {
			continue
		}
		for _, s := range uc.Stakeholders {
			actorSet[s] = struct{}{}
		}
	}
	actors := make([]string, 0, len(actorSet))
	for a := range actorSet {
		actors = append(actors, a)
	}
	sort.Strings(actors)

	uml.WriteString("' Actors\n")
	actorIDs := map[string]string{}
	for _, actor := range actors {
		id := identifier(actor)
		actorIDs[actor] = id
		if isSystemActor(actor) {
			fmt.Fprintf(&uml, "rectangle %s as \"%s\"\n", id, actor)
		} else {
			fmt.Fprintf(&uml, "actor %s as \"%s\"\n", id, actor)
		}
	}
	uml.WriteString("\n")

	uml.WriteString("' Use Cases\n")
	ucIDs := make([]string, len(useCases))
	for i, uc := range useCases {
		ucIDs[i] = fmt.Sprintf("UC%d", i+1)
		title := strings.ReplaceAll(uc.Title, `"`, `\"`)
		fmt.Fprintf(&uml, "usecase %s as \"%s\"\n", ucIDs[i], title)
	}
	uml.WriteString("\n")

	uml.WriteString("' Relationships\n")
	for i, uc := range useCases {
		if !hasContent(uc.Stakeholders, model.PlaceholderStakeholders) {
			continue
		}
		for _, s := range uc.Stakeholders {
			if id, ok := actorIDs[s]; ok {
				fmt.Fprintf(&uml, "%s --> %s\n", id, ucIDs[i])
			}
		}
	}

	uml.WriteString("\n' Use Case Dependencies (include/extend)\n")
	for i, uc1 := range useCases {
		flows := strings.ToLower(strings.Join(uc1.MainFlow, " ") + " " + strings.Join(uc1.SubFlows, " "))
		for j, uc2 := range useCases {
			if i >= j {
				continue
			}
			if strings.Contains(flows, strings.ToLower(uc2.Title)) {
				fmt.Fprintf(&uml, "%s ..> %s : <<include>>\n", ucIDs[i], ucIDs[j])
			}
		}
	}

	uml.WriteString("\n@enduml")
	return uml.String()
}

// identifier turns an actor name into a valid PlantUML identifier.
func identifier(name string) string {
	id := strings.ReplaceAll(name, " ", "_")
	id = strings.ReplaceAll(id, "-", "_")
	return id
}

func isSystemActor(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "system") ||
		strings.Contains(lower, "database") ||
		strings.Contains(lower, "api")
}
