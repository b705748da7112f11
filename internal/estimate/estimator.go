// Package estimate analyzes raw requirements text to predict how many use
// cases it plausibly contains. The estimate sizes prompts and token budgets
// downstream so the generator neither hallucinates extra records on trivial
// input nor truncates on dense input.
package estimate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/casewright/casewright/internal/model"
)

// actionVerbs is the fixed vocabulary of verbs that indicate a discrete use
// case. English-specific by design; repeated mentions of the same verb do not
// inflate the unique-action count.
var actionVerbs = []string{
	"login", "logout", "register", "sign in", "sign up", "authenticate",
	"search", "find", "browse", "filter", "sort", "view", "display",
	"add", "create", "insert", "submit",
	"edit", "update", "modify", "change", "revise",
	"delete", "remove", "cancel", "clear",
	"download", "upload", "export", "import",
	"purchase", "buy", "checkout", "pay", "order",
	"track", "monitor", "review", "rate", "comment",
	"approve", "reject", "verify", "validate",
	"send", "receive", "share", "notify",
	"configure", "customize", "manage", "administer",
	"select", "choose", "pick", "click",
}

// actors is the fixed vocabulary of actor nouns.
var actors = []string{
	"user", "customer", "admin", "administrator", "manager",
	"employee", "staff", "member", "visitor", "guest",
	"buyer", "seller", "vendor", "supplier",
	"student", "teacher", "instructor",
	"patient", "doctor", "nurse",
	"system", "application", "platform",
}

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	bulletRe        = regexp.MustCompile(`^\s*[-*•]\s+`)
	numberedRe      = regexp.MustCompile(`^\s*\d+\.\s+`)
	conjunctionRe   = regexp.MustCompile(`\b(?:and|or)\b`)
)

// verbPattern holds the two match forms for one action verb: bare/plural and
// modal-prefixed ("can login", "should search").
type verbPattern struct {
	verb  string
	modal *regexp.Regexp
	bare  *regexp.Regexp
}

// Estimator estimates use case counts from text. Safe for concurrent use.
type Estimator struct {
	patterns []verbPattern
}

// NewEstimator compiles the verb vocabulary into match patterns.
func NewEstimator() *Estimator {
	patterns := make([]verbPattern, 0, len(actionVerbs))
	for _, verb := range actionVerbs {
		quoted := regexp.QuoteMeta(verb)
		patterns = append(patterns, verbPattern{
			verb:  verb,
			modal: regexp.MustCompile(`\b(?:can|should|must|may|will|shall)\s+` + quoted + `\b`),
			bare:  regexp.MustCompile(`\b` + quoted + `s?\b`),
		})
	}
	return &Estimator{patterns: patterns}
}

// Estimate reports the minimum and maximum number of use cases the text
// plausibly contains, both clamped to [1, 20], along with the raw counts
// behind the numbers. It never fails: empty text yields (1, 1).
func (e *Estimator) Estimate(text string) model.EstimationResult {
	lower := strings.ToLower(text)
	charCount := len(text)

	sentences := splitSentences(text)

	// Action verbs, bare and modal-prefixed.
	actionCount := 0
	foundActions := make(map[string]bool)
	for _, p := range e.patterns {
		n := len(p.modal.FindAllStringIndex(lower, -1)) + len(p.bare.FindAllStringIndex(lower, -1))
		if n > 0 {
			actionCount += n
			foundActions[p.verb] = true
		}
	}

	actorCount := 0
	for _, actor := range actors {
		if strings.Contains(lower, actor) {
			actorCount++
		}
	}

	conjunctionSplits := len(conjunctionRe.FindAllStringIndex(lower, -1))

	listItems := 0
	for _, line := range strings.Split(text, "\n") {
		if bulletRe.MatchString(line) || numberedRe.MatchString(line) {
			listItems++
		}
	}

	// Four independent heuristics; min and max of whichever fired.
	var estimates []int
	if actionCount > 0 {
		estimates = append(estimates, actionCount)
	}
	if listItems > 0 {
		estimates = append(estimates, listItems)
	}
	if n := sentencesWithSignal(sentences); n > 0 {
		estimates = append(estimates, n)
	}
	charBased := charCount / 150
	if charBased < 1 {
		charBased = 1
	}
	estimates = append(estimates, charBased)

	minEst, maxEst := estimates[0], estimates[0]
	for _, v := range estimates[1:] {
		if v < minEst {
			minEst = v
		}
		if v > maxEst {
			maxEst = v
		}
	}

	minEst = clamp(minEst, 1, 20)
	maxEst = clamp(maxEst, 1, 20)

	// Tighter caps for trivial input to suppress over-generation.
	if charCount < 100 && maxEst > 2 {
		maxEst = 2
	} else if charCount < 500 && maxEst > 5 {
		maxEst = 5
	}
	if minEst > maxEst {
		minEst = maxEst
	}

	actions := make([]string, 0, len(foundActions))
	for verb := range foundActions {
		actions = append(actions, verb)
	}
	sort.Strings(actions)

	return model.EstimationResult{
		MinEstimate: minEst,
		MaxEstimate: maxEst,
		Details: model.EstimationDetails{
			CharCount:         charCount,
			SentenceCount:     len(sentences),
			ActionVerbCount:   actionCount,
			UniqueActions:     len(foundActions),
			FoundActions:      actions,
			ActorCount:        actorCount,
			ConjunctionSplits: conjunctionSplits,
			ListItems:         listItems,
			Estimates:         estimates,
		},
	}
}

// SmartMax returns the recommended max_records for a generation call. The
// unique-action count is the primary signal: repeated mentions of one verb
// should not inflate the budget. Character-count tiers cap the result.
func (e *Estimator) SmartMax(text string) int {
	result := e.Estimate(text)

	max := result.Details.UniqueActions
	if max == 0 {
		max = result.MinEstimate
	}

	charCount := result.Details.CharCount
	switch {
	case charCount < 100:
		max = clamp(max, 1, 2)
	case charCount < 500:
		max = clamp(max, 1, 5)
	case charCount < 2000:
		max = clamp(max, 1, 10)
	default:
		max = clamp(max, 1, 20)
	}
	return max
}

// sentencesWithSignal counts sentences that mention an action verb or actor.
func sentencesWithSignal(sentences []string) int {
	count := 0
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		found := false
		for _, verb := range actionVerbs {
			if strings.Contains(lower, verb) {
				found = true
				break
			}
		}
		if !found {
			for _, actor := range actors {
				if strings.Contains(lower, actor) {
					found = true
					break
				}
			}
		}
		if found {
			count++
		}
	}
	return count
}

// splitSentences tokenizes text on sentence-terminal punctuation.
func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
