package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testEnriched(id, category string) model.EnrichedScenario {
	return model.EnrichedScenario{
		Scenario: model.Scenario{
			ID:       id,
			Name:     "Roth Conversion Window",
			Category: category,
			Criteria: []model.Criterion{
				{Field: "age", Operator: model.OpGT, Value: 55, Weight: 100},
			},
			Formula:  model.Formula{Type: model.FormulaFlatFee, BaseRate: 1500},
			Priority: model.PriorityHigh,
		},
		Confidence: model.Confidence{
			SourceReliability: 0.8,
			OverallConfidence: 0.75,
		},
		TemporalContext: model.TemporalContext{Urgency: model.UrgencyShortTerm},
		Sources: []model.Source{
			{Name: "advisor_notes", Type: "manual", ReliabilityScore: 0.8, RetrievedAt: time.Now().UTC()},
		},
	}
}

func testBatch(strategy string) *Batch {
	return &Batch{
		Strategy:      strategy,
		ClientCount:   2,
		ScenarioCount: 3,
		Opportunities: []model.Opportunity{
			{Rank: 1, ClientID: "c-001", ScenarioID: "s-roth", MatchScore: 100, EstimatedRevenue: 5000, Priority: model.PriorityHigh},
			{Rank: 2, ClientID: "c-002", ScenarioID: "s-roth", MatchScore: 60, EstimatedRevenue: 1200, Priority: model.PriorityHigh},
		},
	}
}

// --- Scenarios ---

func TestSQLite_Scenario_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	es := testEnriched("s-roth", "tax_planning")
	require.NoError(t, st.SaveScenario(ctx, es))

	got, err := st.GetScenario(ctx, "s-roth")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, es.Name, got.Name)
	assert.Equal(t, es.Confidence.OverallConfidence, got.Confidence.OverallConfidence)
	require.Len(t, got.Criteria, 1)
	assert.Equal(t, model.OpGT, got.Criteria[0].Operator)
}

func TestSQLite_Scenario_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetScenario(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Scenario_SaveIsUpsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	es := testEnriched("s-roth", "tax_planning")
	require.NoError(t, st.SaveScenario(ctx, es))

	es.Confidence.OverallConfidence = 0.9
	es.Confidence.CrossReferenceCount = 2
	require.NoError(t, st.SaveScenario(ctx, es))

	got, err := st.GetScenario(ctx, "s-roth")
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Confidence.OverallConfidence)

	all, err := st.ListScenarios(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_Scenario_ListByCategory(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveScenario(ctx, testEnriched("s-a", "tax_planning")))
	require.NoError(t, st.SaveScenario(ctx, testEnriched("s-b", "estate_planning")))
	require.NoError(t, st.SaveScenario(ctx, testEnriched("s-c", "tax_planning")))

	tax, err := st.ListScenarios(ctx, "tax_planning")
	require.NoError(t, err)
	require.Len(t, tax, 2)
	assert.Equal(t, "s-a", tax[0].ID)
	assert.Equal(t, "s-c", tax[1].ID)

	all, err := st.ListScenarios(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_Scenario_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveScenario(ctx, testEnriched("s-roth", "tax_planning")))
	require.NoError(t, st.DeleteScenario(ctx, "s-roth"))

	got, err := st.GetScenario(ctx, "s-roth")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, st.DeleteScenario(ctx, "s-roth"))
}

// --- Batches ---

func TestSQLite_Batch_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	batch := testBatch("composite")
	require.NoError(t, st.SaveBatch(ctx, batch))
	assert.NotEmpty(t, batch.ID)
	assert.False(t, batch.CreatedAt.IsZero())

	got, err := st.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "composite", got.Strategy)
	assert.Equal(t, 2, got.ClientCount)
	require.Len(t, got.Opportunities, 2)
	assert.Equal(t, "c-001", got.Opportunities[0].ClientID)
	assert.Equal(t, 5000.0, got.Opportunities[0].EstimatedRevenue)
}

func TestSQLite_Batch_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetBatch(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestSQLite_Batch_ListFilterAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveBatch(ctx, testBatch("composite")))
	require.NoError(t, st.SaveBatch(ctx, testBatch("revenue")))
	require.NoError(t, st.SaveBatch(ctx, testBatch("revenue")))

	revenueOnly, err := st.ListBatches(ctx, BatchFilter{Strategy: "revenue"})
	require.NoError(t, err)
	assert.Len(t, revenueOnly, 2)

	limited, err := st.ListBatches(ctx, BatchFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	all, err := st.ListBatches(ctx, BatchFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
