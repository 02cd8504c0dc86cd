package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-cli/internal/model"
)

func filterOpportunities() []model.Opportunity {
	return []model.Opportunity{
		{ClientID: "c-1", Category: "tax_planning", MatchScore: 95, EstimatedRevenue: 8_000, EstimatedTimeHours: 1.5, Priority: model.PriorityHigh},
		{ClientID: "c-2", Category: "estate_planning", MatchScore: 70, EstimatedRevenue: 3_000, EstimatedTimeHours: 6, Priority: model.PriorityMedium},
		{ClientID: "c-3", Category: "tax_planning", MatchScore: 85, EstimatedRevenue: 1_000, EstimatedTimeHours: 2, Priority: model.PriorityLow},
	}
}

func clientIDs(opps []model.Opportunity) []string {
	ids := make([]string, len(opps))
	for i, o := range opps {
		ids[i] = o.ClientID
	}
	return ids
}

func TestFilter_NoPredicatesCopiesAll(t *testing.T) {
	opps := filterOpportunities()
	out := Filter(opps)
	assert.Equal(t, clientIDs(opps), clientIDs(out))

	// Fresh backing array, not a view of the input.
	out[0].ClientID = "mutated"
	assert.Equal(t, "c-1", opps[0].ClientID)
}

func TestFilter_SinglePredicates(t *testing.T) {
	opps := filterOpportunities()

	tests := []struct {
		name string
		pred Predicate
		want []string
	}{
		{"min match score", MinMatchScore(85), []string{"c-1", "c-3"}},
		{"min match score boundary", MinMatchScore(95), []string{"c-1"}},
		{"min revenue", MinRevenue(3_000), []string{"c-1", "c-2"}},
		{"max time", MaxTimeHours(2), []string{"c-1", "c-3"}},
		{"priority in", PriorityIn(model.PriorityHigh, model.PriorityLow), []string{"c-1", "c-3"}},
		{"category in", CategoryIn("tax_planning"), []string{"c-1", "c-3"}},
		{"quick win", QuickWin(80, 2), []string{"c-1", "c-3"}},
		{"high value", HighValue(5_000), []string{"c-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Filter(opps, tt.pred)
			assert.Equal(t, tt.want, clientIDs(out))
		})
	}
}

func TestFilter_PredicatesCompose(t *testing.T) {
	out := Filter(filterOpportunities(), CategoryIn("tax_planning"), MinRevenue(2_000))
	require.Len(t, out, 1)
	assert.Equal(t, "c-1", out[0].ClientID)
}

func TestFilter_PreservesOrder(t *testing.T) {
	out := Filter(filterOpportunities(), MinMatchScore(0))
	assert.Equal(t, []string{"c-1", "c-2", "c-3"}, clientIDs(out))
}

func TestFilter_AllRemoved(t *testing.T) {
	out := Filter(filterOpportunities(), MinRevenue(1_000_000))
	assert.Empty(t, out)
}
