// Package opportunity composes matching and revenue estimation into
// Opportunity records for each (client, scenario) pair.
package opportunity

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/opportunity-cli/internal/matcher"
	"github.com/sells-group/opportunity-cli/internal/model"
	"github.com/sells-group/opportunity-cli/internal/revenue"
)

// defaultWorkers bounds BuildAll concurrency when no worker count is set.
const defaultWorkers = 8

// Builder assembles Opportunity records subject to a minimum match
// threshold. The threshold is a hard filter: below-threshold matches are
// discarded, not retained with a flag.
type Builder struct {
	MinMatchThreshold float64
	Workers           int
}

// Build runs the matching engine and, only when the score clears the
// threshold, the revenue calculator. It returns (nil, nil) for a
// below-threshold match and an error only for revenue formula
// misconfiguration on an otherwise-qualified pair.
func (b *Builder) Build(client *model.Client, scenario *model.Scenario) (*model.Opportunity, error) {
	score, details := matcher.Match(client, scenario)
	if score < b.MinMatchThreshold {
		return nil, nil
	}

	calc, err := revenue.Calculate(client, &scenario.Formula)
	if err != nil {
		return nil, err
	}

	return &model.Opportunity{
		ClientID:           client.ID,
		ClientName:         client.Name,
		ScenarioID:         scenario.ID,
		ScenarioName:       scenario.Name,
		Category:           scenario.Category,
		MatchScore:         score,
		MatchDetails:       details,
		CriteriaTotal:      len(details),
		CriteriaMet:        matcher.CountMet(details),
		EstimatedRevenue:   calc.FinalAmount,
		RevenueCalculation: calc,
		Priority:           scenario.Priority,
		EstimatedTimeHours: scenario.EstimatedTimeHours,
	}, nil
}

// BuildAll evaluates the Cartesian product of clients and scenarios with
// bounded concurrency. A failure on one pair is logged and excluded; it
// never aborts the batch. Result order is unspecified; the ranking engine
// re-establishes order.
func (b *Builder) BuildAll(ctx context.Context, clients []model.Client, scenarios []model.Scenario) []model.Opportunity {
	workers := b.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		mu      sync.Mutex
		results []model.Opportunity
		skipped int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for ci := range clients {
		for si := range scenarios {
			client, scenario := &clients[ci], &scenarios[si]
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				opp, err := b.Build(client, scenario)
				if err != nil {
					zap.L().Warn("builder: pair evaluation failed",
						zap.String("client_id", client.ID),
						zap.String("scenario_id", scenario.ID),
						zap.Error(err),
					)
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				if opp == nil {
					return nil
				}
				mu.Lock()
				results = append(results, *opp)
				mu.Unlock()
				return nil
			})
		}
	}

	// Workers only ever return nil; Wait is for completion, not errors.
	_ = g.Wait()

	zap.L().Info("builder: batch complete",
		zap.Int("clients", len(clients)),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("opportunities", len(results)),
		zap.Int("pairs_skipped", skipped),
	)
	return results
}
