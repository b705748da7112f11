package dedupe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

// Conflict detection is advisory lexical analysis over already-accepted use
// cases: near-duplicate functionality, contradicting statements, mixed
// terminology, and references to use cases that do not exist. Findings never
// block anything.

var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {},
}

var flowStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {},
}

// termVariations maps a canonical concept to the wordings that should not be
// mixed within one requirements set.
var termVariations = map[string][]string{
	"user":     {"user", "customer", "client", "member"},
	"login":    {"login", "log in", "sign in", "authenticate"},
	"register": {"register", "sign up", "create account"},
	"remove":   {"remove", "delete", "erase"},
	"update":   {"update", "modify", "edit", "change"},
	"view":     {"view", "see", "display", "show"},
}

var dependencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`requires?\s+([^,.]+)`),
	regexp.MustCompile(`depends?\s+on\s+([^,.]+)`),
	regexp.MustCompile(`after\s+([^,.]+)`),
	regexp.MustCompile(`following\s+([^,.]+)`),
}

// DetectConflicts runs all conflict checks over the set.
func DetectConflicts(useCases []model.UseCase) []model.Conflict {
	var conflicts []model.Conflict
	conflicts = append(conflicts, conflictingPreconditions(useCases)...)
	conflicts = append(conflicts, duplicateFunctionality(useCases)...)
	conflicts = append(conflicts, inconsistentTerminology(useCases)...)
	conflicts = append(conflicts, missingDependencies(useCases)...)
	conflicts = append(conflicts, conflictingOutcomes(useCases)...)
	return conflicts
}

// conflictingPreconditions flags similarly titled use cases whose
// preconditions contradict each other.
func conflictingPreconditions(useCases []model.UseCase) []model.Conflict {
	var conflicts []model.Conflict
	for i, uc1 := range useCases {
		for _, uc2 := range useCases[i+1:] {
			if TitleSimilarity(uc1.Title, uc2.Title) <= 0.5 {
				continue
			}
			var details []string
			for _, p1 := range uc1.Preconditions {
				for _, p2 := range uc2.Preconditions {
					if isContradictory(p1, p2) {
						details = append(details, fmt.Sprintf("%q vs %q", strings.ToLower(p1), strings.ToLower(p2)))
					}
				}
			}
			if len(details) > 0 {
				conflicts = append(conflicts, model.Conflict{
					Type:        "conflicting_preconditions",
					Severity:    model.SeverityHigh,
					UseCase1:    uc1.Title,
					UseCase2:    uc2.Title,
					Description: "Similar use cases have conflicting preconditions",
					Details:     details,
				})
			}
		}
	}
	return conflicts
}

// duplicateFunctionality flags pairs whose titles or main flows overlap
// heavily.
func duplicateFunctionality(useCases []model.UseCase) []model.Conflict {
	var conflicts []model.Conflict
	for i, uc1 := range useCases {
		for _, uc2 := range useCases[i+1:] {
			titleSim := TitleSimilarity(uc1.Title, uc2.Title)
			flowSim := FlowSimilarity(uc1.MainFlow, uc2.MainFlow)
			if titleSim > 0.7 || flowSim > 0.6 {
				conflicts = append(conflicts, model.Conflict{
					Type:        "duplicate_functionality",
					Severity:    model.SeverityMedium,
					UseCase1:    uc1.Title,
					UseCase2:    uc2.Title,
					Description: "These use cases may represent duplicate functionality",
					Similarity:  max(titleSim, flowSim),
				})
			}
		}
	}
	return conflicts
}

// inconsistentTerminology flags concepts expressed with mixed wording across
// the set.
func inconsistentTerminology(useCases []model.UseCase) []model.Conflict {
	var conflicts []model.Conflict

	concepts := make([]string, 0, len(termVariations))
	for c := range termVariations {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)

	for _, canonical := range concepts {
		used := map[string]struct{}{}
		for _, uc := range useCases {
			text := strings.ToLower(strings.Join([]string{
				uc.Title,
				strings.Join(uc.MainFlow, " "),
				strings.Join(uc.Preconditions, " "),
			}, " "))
			for _, variation := range termVariations[canonical] {
				if strings.Contains(text, variation) {
					used[variation] = struct{}{}
				}
			}
		}
		if len(used) > 1 {
			variations := make([]string, 0, len(used))
			for v := range used {
				variations = append(variations, v)
			}
			sort.Strings(variations)
			conflicts = append(conflicts, model.Conflict{
				Type:        "inconsistent_terminology",
				Severity:    model.SeverityLow,
				Description: fmt.Sprintf("Inconsistent terminology for concept '%s'", canonical),
				Details:     variations,
			})
		}
	}
	return conflicts
}

// missingDependencies flags references to use cases that do not exist in the
// set.
func missingDependencies(useCases []model.UseCase) []model.Conflict {
	var conflicts []model.Conflict

	titles := map[string]struct{}{}
	for _, uc := range useCases {
		titles[strings.ToLower(uc.Title)] = struct{}{}
	}

	for _, uc := range useCases {
		text := strings.ToLower(strings.Join([]string{
			strings.Join(uc.Preconditions, " "),
			strings.Join(uc.MainFlow, " "),
			strings.Join(uc.AlternateFlows, " "),
		}, " "))
		for _, pattern := range dependencyPatterns {
			for _, match := range pattern.FindAllStringSubmatch(text, -1) {
				ref := strings.TrimSpace(match[1])
				if _, exists := titles[ref]; !exists {
					conflicts = append(conflicts, model.Conflict{
						Type:        "missing_dependency",
						Severity:    model.SeverityMedium,
						UseCase1:    uc.Title,
						Description: fmt.Sprintf("References '%s' which doesn't exist as a use case", ref),
						Details:     []string{"Consider adding this as a separate use case or clarifying the reference"},
					})
				}
			}
		}
	}
	return conflicts
}

// conflictingOutcomes flags pairs whose outcomes contradict each other.
func conflictingOutcomes(useCases []model.UseCase) []model.Conflict {
	var conflicts []model.Conflict
	for i, uc1 := range useCases {
		for _, uc2 := range useCases[i+1:] {
			for _, out1 := range uc1.Outcomes {
				for _, out2 := range uc2.Outcomes {
					if isContradictory(out1, out2) {
						conflicts = append(conflicts, model.Conflict{
							Type:        "conflicting_outcomes",
							Severity:    model.SeverityHigh,
							UseCase1:    uc1.Title,
							UseCase2:    uc2.Title,
							Description: "Use cases have contradictory expected outcomes",
							Details:     []string{strings.ToLower(out1), strings.ToLower(out2)},
						})
					}
				}
			}
		}
	}
	return conflicts
}

// TitleSimilarity is the Jaccard similarity of non-stopword title tokens.
func TitleSimilarity(title1, title2 string) float64 {
	return jaccard(tokenSet(title1, titleStopWords), tokenSet(title2, titleStopWords))
}

// FlowSimilarity is the Jaccard similarity of non-stopword flow tokens.
func FlowSimilarity(flow1, flow2 []string) float64 {
	if len(flow1) == 0 || len(flow2) == 0 {
		return 0
	}
	return jaccard(
		tokenSet(strings.Join(flow1, " "), flowStopWords),
		tokenSet(strings.Join(flow2, " "), flowStopWords),
	)
}

func tokenSet(text string, stopWords map[string]struct{}) map[string]struct{} {
	set := map[string]struct{}{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if _, stop := stopWords[word]; !stop {
			set[word] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

var negationPairs = []struct{ neg, pos string }{
	{"not", ""},
	{"no ", ""},
	{"without", "with"},
	{"never", "always"},
	{"none", "all"},
}

// isContradictory reports whether one statement reads as the negation of the
// other.
func isContradictory(text1, text2 string) bool {
	t1 := strings.ToLower(text1)
	t2 := strings.ToLower(text2)

	for _, p := range negationPairs {
		if strings.Contains(t1, p.neg) && !strings.Contains(t2, p.neg) {
			normalized := strings.ReplaceAll(t1, p.neg, p.pos)
			if strings.Contains(t2, normalized) || strings.Contains(normalized, t2) {
				return true
			}
		}
		if strings.Contains(t2, p.neg) && !strings.Contains(t1, p.neg) {
			normalized := strings.ReplaceAll(t2, p.neg, p.pos)
			if strings.Contains(t1, normalized) || strings.Contains(normalized, t1) {
				return true
			}
		}
	}
	return false
}
