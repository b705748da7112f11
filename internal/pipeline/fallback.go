package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

// fallbackLimit caps how many use cases pattern extraction produces.
const fallbackLimit = 15

// fallbackActors are the subjects pattern extraction recognizes.
var fallbackActors = []string{
	"user", "users", "customer", "customers", "admin", "administrator",
	"staff", "system", "platform", "application", "restaurant", "driver",
	"delivery person", "manager", "employee",
}

// fallbackVerbs maps recognized verbs to their third-person form for titles.
var fallbackVerbs = map[string]string{
	"find": "finds", "search": "searches", "view": "views", "see": "views",
	"show": "shows", "display": "displays", "list": "lists",
	"filter": "filters", "sort": "sorts", "select": "selects",
	"add": "adds", "create": "creates", "place": "places",
	"update": "updates", "edit": "edits", "modify": "modifies", "change": "changes",
	"delete": "deletes", "remove": "removes", "mark": "marks",
	"track": "tracks", "monitor": "monitors", "check": "checks",
	"send": "sends", "receive": "receives", "confirm": "confirms",
	"reject": "rejects", "accept": "accepts", "approve": "approves",
	"rate": "rates", "review": "reviews", "order": "orders",
	"pay": "pays", "deliver": "delivers", "manage": "manages",
	"login": "logs in", "register": "registers",
}

var (
	fallbackSentenceRe = regexp.MustCompile(`[.!?]+`)
	objectTailRe       = regexp.MustCompile(`\s+(and|or|but|if|when|after|before|to|that|which|for now).*$`)
)

// FallbackExtractor derives use cases from actor-verb-object patterns in the
// raw text. It never fails; at worst it returns an empty slice.
type FallbackExtractor struct {
	patterns map[string][]*regexp.Regexp
}

// NewFallbackExtractor precompiles the per-actor sentence patterns.
func NewFallbackExtractor() *FallbackExtractor {
	patterns := make(map[string][]*regexp.Regexp, len(fallbackActors))
	for _, actor := range fallbackActors {
		quoted := regexp.QuoteMeta(actor)
		patterns[actor] = []*regexp.Regexp{
			// "Users should be able to track their order"
			regexp.MustCompile(`\b` + quoted + `\s+(?:should|can|must|may|will|shall|need to|able to)\s+(?:be able to\s+)?([a-z]+)\s+([^,.]+)`),
			// "Platform should let users find restaurants"
			regexp.MustCompile(`platform\s+should\s+(?:let|allow)\s+` + quoted + `\s+(?:to\s+)?([a-z]+)\s+([^,.]+)`),
			// "Users track their order"
			regexp.MustCompile(`\b` + quoted + `\s+([a-z]+)\s+(?:the|their|a|an)\s+([^,.]+)`),
		}
	}
	return &FallbackExtractor{patterns: patterns}
}

// Extract scans the text for actor-verb-object statements and synthesizes a
// structured use case for each distinct one found.
func (f *FallbackExtractor) Extract(text string) []model.UseCase {
	var useCases []model.UseCase
	seenTitles := map[string]struct{}{}

	for _, raw := range fallbackSentenceRe.Split(text, -1) {
		sentence := strings.ToLower(strings.TrimSpace(raw))
		if len(sentence) <= 20 {
			continue
		}

		for _, actor := range fallbackActors {
			for _, pattern := range f.patterns[actor] {
				for _, match := range pattern.FindAllStringSubmatch(sentence, -1) {
					verb := strings.TrimSpace(match[1])
					obj := cleanObject(match[2])

					if len(obj) < 5 || len(obj) > 100 {
						continue
					}
					conjugated, known := fallbackVerbs[verb]
					if !known {
						continue
					}

					title := fmt.Sprintf("%s %s %s", capitalize(actor), conjugated, obj)
					titleKey := strings.ToLower(strings.TrimSpace(title))
					if _, seen := seenTitles[titleKey]; seen || len(title) < 15 {
						continue
					}
					seenTitles[titleKey] = struct{}{}

					useCases = append(useCases, synthesizeUseCase(actor, verb, obj, title))
					if len(useCases) >= fallbackLimit {
						return useCases
					}
				}
			}
		}
	}
	return useCases
}

// synthesizeUseCase builds a complete boilerplate record around one detected
// actor-verb-object statement.
func synthesizeUseCase(actor, verb, obj, title string) model.UseCase {
	subject := capitalize(actor)
	return model.UseCase{
		Title: title,
		Preconditions: []string{
			subject + " is authenticated and authorized",
			"System is operational and responsive",
		},
		MainFlow: []string{
			subject + " navigates to relevant section",
			fmt.Sprintf("%s initiates %s action", subject, verb),
			"System validates request",
			fmt.Sprintf("System processes %s", obj),
			fmt.Sprintf("System confirms completion to %s", actor),
			subject + " receives confirmation",
		},
		SubFlows: []string{
			subject + " can view additional details",
			subject + " can customize preferences",
		},
		AlternateFlows: []string{
			"If validation fails: System displays error and prompts correction",
			fmt.Sprintf("If system timeout: System retries and notifies %s", actor),
		},
		Outcomes: []string{
			title + " completed successfully",
			"System state is updated",
		},
		Stakeholders: []string{subject, "System"},
	}
}

func cleanObject(obj string) string {
	obj = strings.TrimSpace(obj)
	if len(obj) > 80 {
		obj = obj[:80]
	}
	return strings.TrimSpace(objectTailRe.ReplaceAllString(obj, ""))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
