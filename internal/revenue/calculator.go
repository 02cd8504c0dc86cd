// Package revenue computes estimated revenue for a matched opportunity from
// a scenario's revenue formula and a client record.
package revenue

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// ErrMultiplier marks a formula whose multiplier field resolves to a
// non-numeric value on the client. This is scenario misconfiguration, not
// bad client data, and is surfaced to the caller rather than coerced.
var ErrMultiplier = eris.New("revenue: multiplier field is not numeric")

// Calculate applies a revenue formula to a client record. The returned
// calculation retains both the pre-cap and post-cap amounts plus flags
// recording whether either cap fired.
func Calculate(client *model.Client, formula *model.Formula) (model.RevenueCalculation, error) {
	calc := model.RevenueCalculation{
		FormulaType: formula.Type,
		BaseRate:    formula.BaseRate,
	}

	switch formula.Type {
	case model.FormulaFlatFee:
		calc.CalculatedAmount = formula.BaseRate

	case model.FormulaPercentage:
		mv, err := multiplierValue(client, formula.MultiplierField)
		if err != nil {
			return model.RevenueCalculation{}, err
		}
		calc.MultiplierValue = &mv
		calc.CalculatedAmount = formula.BaseRate * mv

	case model.FormulaAUMBased:
		field := formula.MultiplierField
		if field == "" {
			field = model.PortfolioTotalField
		}
		mv, err := multiplierValue(client, field)
		if err != nil {
			return model.RevenueCalculation{}, err
		}
		calc.MultiplierValue = &mv
		calc.CalculatedAmount = formula.BaseRate * mv

	case model.FormulaTiered:
		mv, err := multiplierValue(client, formula.MultiplierField)
		if err != nil {
			return model.RevenueCalculation{}, err
		}
		calc.MultiplierValue = &mv
		calc.CalculatedAmount = tieredAmount(formula.SortedTiers(), mv)

	default:
		return model.RevenueCalculation{}, eris.Wrapf(model.ErrScenarioConfig, "revenue: unknown formula_type %q", formula.Type)
	}

	calc.FinalAmount = calc.CalculatedAmount
	if formula.MinRevenue != nil && calc.FinalAmount < *formula.MinRevenue {
		calc.FinalAmount = *formula.MinRevenue
		calc.MinApplied = true
	}
	if formula.MaxRevenue != nil && calc.FinalAmount > *formula.MaxRevenue {
		calc.FinalAmount = *formula.MaxRevenue
		calc.MaxApplied = true
	}

	return calc, nil
}

// tieredAmount consumes the multiplier value marginally tier by tier, like
// progressive tax brackets. Tiers must already be sorted ascending; the last
// tier may be open-ended and absorbs all remaining value.
func tieredAmount(tiers []model.Tier, value float64) float64 {
	var total float64
	for _, t := range tiers {
		if value <= t.LowerBound {
			break
		}
		span := value - t.LowerBound
		if t.UpperBound != nil && *t.UpperBound-t.LowerBound < span {
			span = *t.UpperBound - t.LowerBound
		}
		total += t.Rate * span
	}
	return total
}

// multiplierValue resolves a formula's multiplier field on the client and
// requires a numeric result.
func multiplierValue(client *model.Client, field string) (float64, error) {
	v, ok := client.Resolve(field)
	if !ok {
		return 0, eris.Wrapf(ErrMultiplier, "field %q absent on client %s", field, client.ID)
	}
	f, ok := numeric(v)
	if !ok {
		return 0, eris.Wrapf(ErrMultiplier, "field %q resolved to %T on client %s", field, v, client.ID)
	}
	return f, nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// FormatAmount renders a revenue amount in compact human-readable form.
func FormatAmount(amount float64) string {
	switch {
	case amount >= 1_000_000_000:
		return fmt.Sprintf("$%.1fB", amount/1_000_000_000)
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("$%.1fK", amount/1_000)
	default:
		return fmt.Sprintf("$%.0f", amount)
	}
}
