package revenue

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-cli/internal/model"
)

func f64(v float64) *float64 { return &v }

func revClient(total float64) *model.Client {
	return &model.Client{
		ID:        "c-001",
		NetWorth:  1_000_000,
		Portfolio: model.Portfolio{TotalValue: total},
	}
}

func TestCalculate_FlatFee(t *testing.T) {
	calc, err := Calculate(revClient(0), &model.Formula{Type: model.FormulaFlatFee, BaseRate: 1500})
	require.NoError(t, err)
	assert.Equal(t, 1500.0, calc.CalculatedAmount)
	assert.Equal(t, 1500.0, calc.FinalAmount)
	assert.Nil(t, calc.MultiplierValue)
	assert.False(t, calc.MinApplied)
	assert.False(t, calc.MaxApplied)
}

func TestCalculate_Percentage(t *testing.T) {
	formula := &model.Formula{
		Type:            model.FormulaPercentage,
		BaseRate:        0.01,
		MultiplierField: "portfolio.total_value",
	}
	calc, err := Calculate(revClient(500_000), formula)
	require.NoError(t, err)
	require.NotNil(t, calc.MultiplierValue)
	assert.Equal(t, 500_000.0, *calc.MultiplierValue)
	assert.Equal(t, 5000.0, calc.FinalAmount)
}

func TestCalculate_AUMBased_DefaultsToPortfolioTotal(t *testing.T) {
	calc, err := Calculate(revClient(850_000), &model.Formula{Type: model.FormulaAUMBased, BaseRate: 0.005})
	require.NoError(t, err)
	assert.InDelta(t, 4250.0, calc.FinalAmount, 1e-9)
}

func TestCalculate_AUMBased_ExplicitField(t *testing.T) {
	formula := &model.Formula{Type: model.FormulaAUMBased, BaseRate: 0.001, MultiplierField: "net_worth"}
	calc, err := Calculate(revClient(850_000), formula)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, calc.FinalAmount, 1e-9)
}

func TestCalculate_Tiered_Marginal(t *testing.T) {
	formula := &model.Formula{
		Type:            model.FormulaTiered,
		MultiplierField: "portfolio.total_value",
		Tiers: []model.Tier{
			{LowerBound: 0, UpperBound: f64(100_000), Rate: 0.01},
			{LowerBound: 100_000, Rate: 0.005},
		},
	}

	// 100000*0.01 + 50000*0.005 = 1000 + 250
	calc, err := Calculate(revClient(150_000), formula)
	require.NoError(t, err)
	assert.InDelta(t, 1250.0, calc.FinalAmount, 1e-9)
}

func TestCalculate_Tiered_ValueInsideFirstTier(t *testing.T) {
	formula := &model.Formula{
		Type:            model.FormulaTiered,
		MultiplierField: "portfolio.total_value",
		Tiers: []model.Tier{
			{LowerBound: 0, UpperBound: f64(100_000), Rate: 0.01},
			{LowerBound: 100_000, Rate: 0.005},
		},
	}

	calc, err := Calculate(revClient(60_000), formula)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, calc.FinalAmount, 1e-9)
}

func TestCalculate_Tiered_ZeroValue(t *testing.T) {
	formula := &model.Formula{
		Type:            model.FormulaTiered,
		MultiplierField: "portfolio.total_value",
		Tiers:           []model.Tier{{LowerBound: 0, Rate: 0.01}},
	}

	calc, err := Calculate(revClient(0), formula)
	require.NoError(t, err)
	assert.Zero(t, calc.FinalAmount)
}

func TestCalculate_Tiered_UnsortedTiersStillMarginal(t *testing.T) {
	formula := &model.Formula{
		Type:            model.FormulaTiered,
		MultiplierField: "portfolio.total_value",
		Tiers: []model.Tier{
			{LowerBound: 100_000, Rate: 0.005},
			{LowerBound: 0, UpperBound: f64(100_000), Rate: 0.01},
		},
	}

	calc, err := Calculate(revClient(150_000), formula)
	require.NoError(t, err)
	assert.InDelta(t, 1250.0, calc.FinalAmount, 1e-9)
}

// A single open-ended tier at rate r must equal a percentage formula at the
// same rate.
func TestCalculate_SingleTierEqualsPercentage(t *testing.T) {
	client := revClient(321_456)

	tiered, err := Calculate(client, &model.Formula{
		Type:            model.FormulaTiered,
		MultiplierField: "portfolio.total_value",
		Tiers:           []model.Tier{{LowerBound: 0, Rate: 0.0125}},
	})
	require.NoError(t, err)

	pct, err := Calculate(client, &model.Formula{
		Type:            model.FormulaPercentage,
		BaseRate:        0.0125,
		MultiplierField: "portfolio.total_value",
	})
	require.NoError(t, err)

	assert.InDelta(t, pct.FinalAmount, tiered.FinalAmount, 1e-9)
}

func TestCalculate_MinCap(t *testing.T) {
	formula := &model.Formula{Type: model.FormulaFlatFee, BaseRate: 100, MinRevenue: f64(500)}
	calc, err := Calculate(revClient(0), formula)
	require.NoError(t, err)
	assert.Equal(t, 100.0, calc.CalculatedAmount)
	assert.Equal(t, 500.0, calc.FinalAmount)
	assert.True(t, calc.MinApplied)
	assert.False(t, calc.MaxApplied)
}

func TestCalculate_MaxCap(t *testing.T) {
	formula := &model.Formula{
		Type:            model.FormulaPercentage,
		BaseRate:        0.01,
		MultiplierField: "portfolio.total_value",
		MaxRevenue:      f64(2000),
	}
	calc, err := Calculate(revClient(500_000), formula)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, calc.CalculatedAmount)
	assert.Equal(t, 2000.0, calc.FinalAmount)
	assert.True(t, calc.MaxApplied)
}

func TestCalculate_MultiplierErrors(t *testing.T) {
	client := &model.Client{
		ID:    "c-bad",
		Extra: map[string]any{"segment": "premier"},
	}

	t.Run("absent field", func(t *testing.T) {
		_, err := Calculate(client, &model.Formula{
			Type: model.FormulaPercentage, BaseRate: 0.01, MultiplierField: "missing_field",
		})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMultiplier))
	})

	t.Run("non-numeric field", func(t *testing.T) {
		_, err := Calculate(client, &model.Formula{
			Type: model.FormulaPercentage, BaseRate: 0.01, MultiplierField: "segment",
		})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMultiplier))
	})
}

func TestCalculate_UnknownFormulaType(t *testing.T) {
	_, err := Calculate(revClient(0), &model.Formula{Type: "royalty"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrScenarioConfig))
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{500, "$500"},
		{1500, "$1.5K"},
		{2_500_000, "$2.5M"},
		{1_200_000_000, "$1.2B"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.amount))
	}
}
