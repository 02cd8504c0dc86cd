package ranking

import (
	"github.com/sells-group/opportunity-cli/internal/model"
)

// Predicate is one boolean filter over an opportunity.
type Predicate func(*model.Opportunity) bool

// Filter keeps the opportunities satisfying every predicate. It never
// reorders, only removes; the input slice is left untouched.
func Filter(opportunities []model.Opportunity, predicates ...Predicate) []model.Opportunity {
	if len(predicates) == 0 {
		out := make([]model.Opportunity, len(opportunities))
		copy(out, opportunities)
		return out
	}

	out := make([]model.Opportunity, 0, len(opportunities))
	for i := range opportunities {
		keep := true
		for _, pred := range predicates {
			if !pred(&opportunities[i]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, opportunities[i])
		}
	}
	return out
}

// MinMatchScore keeps opportunities with at least the given match score.
func MinMatchScore(min float64) Predicate {
	return func(o *model.Opportunity) bool { return o.MatchScore >= min }
}

// MinRevenue keeps opportunities with at least the given estimated revenue.
func MinRevenue(min float64) Predicate {
	return func(o *model.Opportunity) bool { return o.EstimatedRevenue >= min }
}

// MaxTimeHours keeps opportunities at or under the given time estimate.
func MaxTimeHours(max float64) Predicate {
	return func(o *model.Opportunity) bool { return o.EstimatedTimeHours <= max }
}

// PriorityIn keeps opportunities whose priority is in the given set.
func PriorityIn(priorities ...model.Priority) Predicate {
	set := make(map[model.Priority]bool, len(priorities))
	for _, p := range priorities {
		set[p] = true
	}
	return func(o *model.Opportunity) bool { return set[o.Priority] }
}

// CategoryIn keeps opportunities whose category is in the given set.
func CategoryIn(categories ...string) Predicate {
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return func(o *model.Opportunity) bool { return set[o.Category] }
}

// QuickWin keeps high-score, low-effort opportunities.
func QuickWin(minScore, maxHours float64) Predicate {
	return func(o *model.Opportunity) bool {
		return o.MatchScore >= minScore && o.EstimatedTimeHours <= maxHours
	}
}

// HighValue keeps opportunities at or above the revenue threshold.
func HighValue(threshold float64) Predicate {
	return func(o *model.Opportunity) bool { return o.EstimatedRevenue >= threshold }
}
