package model

// MatchDetail is the per-criterion audit record produced by evaluation.
// Created fresh per (client, scenario) pair, never mutated afterwards.
type MatchDetail struct {
	Field         string   `json:"field"`
	Operator      Operator `json:"operator"`
	ExpectedValue any      `json:"expected_value"`
	ActualValue   any      `json:"actual_value"`
	Matched       bool     `json:"matched"`
	Weight        float64  `json:"weight"`
	PointsEarned  float64  `json:"points_earned"`
}

// RevenueCalculation records how an estimated revenue was produced. Both the
// pre-cap and post-cap amounts are retained for auditability.
type RevenueCalculation struct {
	FormulaType      FormulaType `json:"formula_type"`
	BaseRate         float64     `json:"base_rate"`
	MultiplierValue  *float64    `json:"multiplier_value,omitempty"`
	CalculatedAmount float64     `json:"calculated_amount"`
	FinalAmount      float64     `json:"final_amount"`
	MinApplied       bool        `json:"min_applied"`
	MaxApplied       bool        `json:"max_applied"`
}

// Opportunity is the terminal record: one client matched against one
// scenario, with its score, revenue estimate, and audit trail. Created by
// the builder; the ranking engine attaches Rank and CompositeScore on copies
// it returns, never in place.
type Opportunity struct {
	ClientID           string             `json:"client_id"`
	ClientName         string             `json:"client_name"`
	ScenarioID         string             `json:"scenario_id"`
	ScenarioName       string             `json:"scenario_name"`
	Category           string             `json:"category"`
	MatchScore         float64            `json:"match_score"`
	MatchDetails       []MatchDetail      `json:"match_details"`
	CriteriaTotal      int                `json:"criteria_total"`
	CriteriaMet        int                `json:"criteria_met"`
	EstimatedRevenue   float64            `json:"estimated_revenue"`
	RevenueCalculation RevenueCalculation `json:"revenue_calculation"`
	Priority           Priority           `json:"priority"`
	EstimatedTimeHours float64            `json:"estimated_time_hours,omitempty"`
	Rank               int                `json:"rank,omitempty"`
	CompositeScore     *float64           `json:"composite_score,omitempty"`
}
