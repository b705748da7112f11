// Package score aggregates quality metrics across a session's use cases.
package score

import (
	"math"
	"sort"

	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/validate"
)

// Aggregator computes session-level quality metrics.
type Aggregator struct {
	validator *validate.Validator
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{validator: validate.NewValidator()}
}

// Metrics computes aggregate statistics over a session's use cases. A session
// with no use cases yields a zero-value result with TotalUseCases == 0.
func (a *Aggregator) Metrics(useCases []model.UseCase) model.SessionMetrics {
	total := len(useCases)
	if total == 0 {
		return model.SessionMetrics{}
	}

	var sumPre, sumMain, sumOut int
	var withSub, withAlt int
	stakeholderSet := map[string]struct{}{}
	var completeness int

	var buckets model.QualityBuckets
	for _, uc := range useCases {
		sumPre += realLen(uc.Preconditions, model.PlaceholderPreconditions)
		sumMain += realLen(uc.MainFlow, model.PlaceholderMainFlow)
		sumOut += realLen(uc.Outcomes, model.PlaceholderOutcomes)

		hasSub := !isPlaceholder(uc.SubFlows, model.PlaceholderSubFlows)
		hasAlt := !isPlaceholder(uc.AlternateFlows, model.PlaceholderAlternateFlows)
		if hasSub {
			withSub++
		}
		if hasAlt {
			withAlt++
		}

		if !isPlaceholder(uc.Stakeholders, model.PlaceholderStakeholders) {
			for _, s := range uc.Stakeholders {
				stakeholderSet[s] = struct{}{}
			}
		}

		// Six completeness checks per use case.
		if realLen(uc.Preconditions, model.PlaceholderPreconditions) > 1 {
			completeness++
		}
		if realLen(uc.MainFlow, model.PlaceholderMainFlow) >= 3 {
			completeness++
		}
		if hasSub {
			completeness++
		}
		if hasAlt {
			completeness++
		}
		if realLen(uc.Outcomes, model.PlaceholderOutcomes) > 0 {
			completeness++
		}
		if realLen(uc.Stakeholders, model.PlaceholderStakeholders) >= 2 {
			completeness++
		}

		switch qs := a.validator.QualityScore(uc); {
		case qs >= 80:
			buckets.Excellent++
		case qs >= 60:
			buckets.Good++
		default:
			buckets.NeedsImprovement++
		}
	}

	stakeholders := make([]string, 0, len(stakeholderSet))
	for s := range stakeholderSet {
		stakeholders = append(stakeholders, s)
	}
	sort.Strings(stakeholders)

	n := float64(total)
	return model.SessionMetrics{
		TotalUseCases:     total,
		AvgPreconditions:  round2(float64(sumPre) / n),
		AvgMainFlowSteps:  round2(float64(sumMain) / n),
		AvgOutcomes:       round2(float64(sumOut) / n),
		WithSubFlows:      withSub,
		WithAlternates:    withAlt,
		Stakeholders:      stakeholders,
		CompletenessScore: round2(float64(completeness) / (n * 6) * 100),
		QualityBuckets:    buckets,
	}
}

// realLen counts the elements of a field, treating a lone placeholder as zero.
func realLen(values []string, placeholder string) int {
	if isPlaceholder(values, placeholder) {
		return 0
	}
	return len(values)
}

func isPlaceholder(values []string, placeholder string) bool {
	if len(values) == 0 {
		return true
	}
	return len(values) == 1 && values[0] == placeholder
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
