package matcher

import (
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// Match evaluates every criterion of a scenario against a client and returns
// the weighted match score (0-100) plus the per-criterion audit trail.
//
// A panic inside a single criterion's evaluation is converted to a failed
// MatchDetail and does not abort the remaining criteria. A scenario whose
// weights sum to zero scores 0; that is a configuration anomaly worth a log
// line, not a fatal error.
func Match(client *model.Client, scenario *model.Scenario) (float64, []model.MatchDetail) {
	details := make([]model.MatchDetail, 0, len(scenario.Criteria))

	var totalWeight, earned float64
	for _, criterion := range scenario.Criteria {
		detail := evaluateSafely(client, criterion)
		details = append(details, detail)
		totalWeight += criterion.Weight
		earned += detail.PointsEarned
	}

	if totalWeight == 0 {
		zap.L().Warn("matcher: scenario has zero total criterion weight",
			zap.String("scenario_id", scenario.ID),
			zap.String("client_id", client.ID),
		)
		return 0, details
	}

	return 100 * earned / totalWeight, details
}

// evaluateSafely shields Match from a panicking criterion evaluation.
func evaluateSafely(client *model.Client, criterion model.Criterion) (detail model.MatchDetail) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("matcher: criterion evaluation panicked",
				zap.String("field", criterion.Field),
				zap.String("operator", string(criterion.Operator)),
				zap.Any("panic", r),
			)
			detail = model.MatchDetail{
				Field:         criterion.Field,
				Operator:      criterion.Operator,
				ExpectedValue: criterion.Value,
				Weight:        criterion.Weight,
			}
		}
	}()
	return Evaluate(client, criterion)
}

// CountMet returns how many criteria in the audit trail matched.
func CountMet(details []model.MatchDetail) int {
	n := 0
	for i := range details {
		if details[i].Matched {
			n++
		}
	}
	return n
}
