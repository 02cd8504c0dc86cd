package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-cli/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const scenariosYAML = `
scenarios:
  - id: roth-window
    name: Roth Conversion Window
    category: tax_planning
    criteria:
      - field: age
        operator: gt
        value: 55
        weight: 50
      - field: portfolio.total_value
        operator: gt
        value: 250000
        weight: 50
    revenue_formula:
      formula_type: percentage
      base_rate: 0.01
      multiplier_field: portfolio.total_value
    priority: high
    estimated_time_hours: 3
`

const scenariosJSON = `{
  "scenarios": [
    {
      "id": "hsa-max",
      "name": "HSA Maximization",
      "category": "tax_planning",
      "criteria": [{"field": "annual_income", "operator": "gt", "value": 100000, "weight": 1}],
      "revenue_formula": {"formula_type": "flat_fee", "base_rate": 500},
      "priority": "medium"
    }
  ]
}`

func TestLoadScenarios_YAML(t *testing.T) {
	path := writeFile(t, "scenarios.yaml", scenariosYAML)

	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	s := scenarios[0]
	assert.Equal(t, "roth-window", s.ID)
	assert.Equal(t, model.PriorityHigh, s.Priority)
	require.Len(t, s.Criteria, 2)
	assert.Equal(t, model.OpGT, s.Criteria[0].Operator)
	assert.Equal(t, model.FormulaPercentage, s.Formula.Type)
	assert.Equal(t, 3.0, s.EstimatedTimeHours)
}

func TestLoadScenarios_JSON(t *testing.T) {
	path := writeFile(t, "scenarios.json", scenariosJSON)

	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "hsa-max", scenarios[0].ID)
}

func TestLoadScenarios_InvalidScenarioFailsWholeLoad(t *testing.T) {
	bad := `
scenarios:
  - id: broken
    name: Broken Scenario
    category: tax_planning
    criteria:
      - field: age
        operator: between
        value: 55
        weight: 50
    revenue_formula:
      formula_type: flat_fee
      base_rate: 100
    priority: high
`
	path := writeFile(t, "scenarios.yaml", bad)

	_, err := LoadScenarios(path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrScenarioConfig))
}

func TestLoadScenarios_Empty(t *testing.T) {
	path := writeFile(t, "scenarios.yaml", "scenarios: []\n")
	_, err := LoadScenarios(path)
	assert.Error(t, err)
}

func TestLoadScenarios_MissingFile(t *testing.T) {
	_, err := LoadScenarios(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadScenarios_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "scenarios.toml", "scenarios = []")
	_, err := LoadScenarios(path)
	assert.Error(t, err)
}

func TestLoadCandidates(t *testing.T) {
	const candidatesYAML = `
candidates:
  - id: roth-window
    name: Roth Conversion Window
    category: tax_planning
    criteria:
      - field: age
        operator: gt
        value: 55
        weight: 50
    revenue_formula:
      formula_type: flat_fee
      base_rate: 1500
    priority: high
    confidence:
      source_reliability: 0.8
      overall_confidence: 0.75
    temporal_context:
      urgency: short_term
    sources:
      - source_name: advisor_notes
        source_type: manual
        reliability_score: 0.8
`
	path := writeFile(t, "candidates.yaml", candidatesYAML)

	candidates, err := LoadCandidates(path)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "roth-window", c.ID)
	assert.Equal(t, 0.75, c.Confidence.OverallConfidence)
	assert.Equal(t, model.UrgencyShortTerm, c.TemporalContext.Urgency)
	require.Len(t, c.Sources, 1)
	assert.Equal(t, "advisor_notes", c.Sources[0].Name)
}

func TestLoadCandidates_NoValidationAtLoadTime(t *testing.T) {
	// A structurally readable but semantically invalid candidate loads fine;
	// the synthesizer is responsible for dropping it.
	const badYAML = `
candidates:
  - id: broken
    name: Broken Candidate
    category: tax_planning
    criteria: []
    revenue_formula:
      formula_type: flat_fee
      base_rate: 100
    priority: high
`
	path := writeFile(t, "candidates.yaml", badYAML)

	candidates, err := LoadCandidates(path)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}
