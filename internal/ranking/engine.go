// Package ranking orders opportunity batches under a chosen strategy and
// provides composable post-hoc filtering.
package ranking

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// ErrRankConfig marks invalid ranking configuration, such as composite
// weights that do not sum to 1.0. The call is rejected before any scoring.
var ErrRankConfig = eris.New("ranking configuration error")

// Strategy is a closed set of ranking strategies.
type Strategy string

const (
	StrategyRevenue    Strategy = "revenue"
	StrategyMatchScore Strategy = "match_score"
	StrategyPriority   Strategy = "priority"
	StrategyComposite  Strategy = "composite"
)

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyRevenue, StrategyMatchScore, StrategyPriority, StrategyComposite:
		return Strategy(s), nil
	}
	return "", eris.Wrapf(ErrRankConfig, "unknown strategy %q", s)
}

// weightTolerance is the floating tolerance for the composite weight sum.
const weightTolerance = 1e-9

// Options configures a ranking call.
type Options struct {
	Strategy      Strategy
	MatchWeight   float64 // composite only
	RevenueWeight float64 // composite only

	// RevenueCeiling normalizes revenue for the composite score. It is a
	// fixed configuration constant, never derived from the batch, so equal
	// inputs rank equally regardless of what else is in the batch.
	RevenueCeiling float64

	// Limit truncates the result after ranks are assigned over the full
	// set. Zero means no limit.
	Limit int
}

// Rank returns a new slice of opportunities sorted under the strategy, with
// rank numbers 1..N assigned over the entire sorted set and, for the
// composite strategy, the composite score attached. The input slice is never
// mutated. The sort is stable: equal keys retain relative input order.
func Rank(opportunities []model.Opportunity, opts Options) ([]model.Opportunity, error) {
	if opts.Strategy == StrategyComposite {
		if math.Abs(opts.MatchWeight+opts.RevenueWeight-1.0) > weightTolerance {
			return nil, eris.Wrapf(ErrRankConfig, "composite weights must sum to 1.0 (got %.4f + %.4f)", opts.MatchWeight, opts.RevenueWeight)
		}
		if opts.RevenueCeiling <= 0 {
			return nil, eris.Wrap(ErrRankConfig, "composite ranking requires a positive revenue ceiling")
		}
	}

	ranked := make([]model.Opportunity, len(opportunities))
	copy(ranked, opportunities)

	var key func(*model.Opportunity) float64
	switch opts.Strategy {
	case StrategyRevenue:
		key = func(o *model.Opportunity) float64 { return o.EstimatedRevenue }
	case StrategyMatchScore:
		key = func(o *model.Opportunity) float64 { return o.MatchScore }
	case StrategyPriority:
		key = func(o *model.Opportunity) float64 { return float64(o.Priority.Weight()) }
	case StrategyComposite:
		for i := range ranked {
			score := compositeScore(&ranked[i], opts)
			ranked[i].CompositeScore = &score
		}
		key = func(o *model.Opportunity) float64 { return *o.CompositeScore }
	default:
		return nil, eris.Wrapf(ErrRankConfig, "unknown strategy %q", opts.Strategy)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return key(&ranked[i]) > key(&ranked[j])
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked, nil
}

// compositeScore blends match score with ceiling-normalized revenue.
func compositeScore(o *model.Opportunity, opts Options) float64 {
	normalized := math.Min(o.EstimatedRevenue/opts.RevenueCeiling, 1.0) * 100
	return o.MatchScore*opts.MatchWeight + normalized*opts.RevenueWeight
}
