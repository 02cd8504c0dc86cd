package model

import (
	"sort"

	"github.com/rotisserie/eris"
)

// ErrScenarioConfig marks scenario configuration errors: unknown operators,
// malformed revenue formulas, empty criteria lists. These are caller errors
// surfaced at load time, never during evaluation.
var ErrScenarioConfig = eris.New("scenario configuration error")

// Operator is a closed set of criterion comparison operators.
type Operator string

const (
	OpGT       Operator = "gt"
	OpLT       Operator = "lt"
	OpGTE      Operator = "gte"
	OpLTE      Operator = "lte"
	OpEQ       Operator = "eq"
	OpContains Operator = "contains"
	OpInRange  Operator = "in_range"
)

// ParseOperator validates an operator name from a scenario file.
func ParseOperator(s string) (Operator, error) {
	switch Operator(s) {
	case OpGT, OpLT, OpGTE, OpLTE, OpEQ, OpContains, OpInRange:
		return Operator(s), nil
	}
	return "", eris.Wrapf(ErrScenarioConfig, "unknown operator %q", s)
}

// Criterion is a single weighted matching rule against a client field path.
type Criterion struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
	Weight   float64  `json:"weight" yaml:"weight"`
}

// FormulaType is a closed set of revenue formula kinds.
type FormulaType string

const (
	FormulaFlatFee    FormulaType = "flat_fee"
	FormulaPercentage FormulaType = "percentage"
	FormulaTiered     FormulaType = "tiered"
	FormulaAUMBased   FormulaType = "aum_based"
)

// Tier is one bracket of a tiered formula. A nil UpperBound means the tier
// is open-ended and absorbs all remaining value.
type Tier struct {
	LowerBound float64  `json:"lower_bound" yaml:"lower_bound"`
	UpperBound *float64 `json:"upper_bound,omitempty" yaml:"upper_bound,omitempty"`
	Rate       float64  `json:"rate" yaml:"rate"`
}

// Formula describes how to turn a matched client into an estimated revenue.
type Formula struct {
	Type            FormulaType `json:"formula_type" yaml:"formula_type"`
	BaseRate        float64     `json:"base_rate" yaml:"base_rate"`
	MultiplierField string      `json:"multiplier_field,omitempty" yaml:"multiplier_field,omitempty"`
	Tiers           []Tier      `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	MinRevenue      *float64    `json:"min_revenue,omitempty" yaml:"min_revenue,omitempty"`
	MaxRevenue      *float64    `json:"max_revenue,omitempty" yaml:"max_revenue,omitempty"`
}

// Validate checks the formula's structural invariants. It is called at
// scenario load time so that evaluation never hits a malformed formula.
func (f *Formula) Validate() error {
	switch f.Type {
	case FormulaFlatFee:
	case FormulaPercentage:
		if f.MultiplierField == "" {
			return eris.Wrap(ErrScenarioConfig, "percentage formula requires multiplier_field")
		}
	case FormulaAUMBased:
		// multiplier_field optional: defaults to portfolio total value.
	case FormulaTiered:
		if len(f.Tiers) == 0 {
			return eris.Wrap(ErrScenarioConfig, "tiered formula requires at least one tier")
		}
		if err := validateTiers(f.Tiers); err != nil {
			return err
		}
	default:
		return eris.Wrapf(ErrScenarioConfig, "unknown formula_type %q", f.Type)
	}

	if f.MinRevenue != nil && f.MaxRevenue != nil && *f.MaxRevenue < *f.MinRevenue {
		return eris.Wrapf(ErrScenarioConfig, "max_revenue %.2f below min_revenue %.2f", *f.MaxRevenue, *f.MinRevenue)
	}
	return nil
}

// SortedTiers returns the tiers ordered ascending by lower bound.
func (f *Formula) SortedTiers() []Tier {
	tiers := make([]Tier, len(f.Tiers))
	copy(tiers, f.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].LowerBound < tiers[j].LowerBound })
	return tiers
}

// validateTiers requires tiers to be contiguous and non-overlapping once
// sorted by lower bound, with at most the last tier open-ended.
func validateTiers(tiers []Tier) error {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LowerBound < sorted[j].LowerBound })

	for i, t := range sorted {
		if t.Rate < 0 {
			return eris.Wrapf(ErrScenarioConfig, "tier %d has negative rate", i)
		}
		if t.UpperBound == nil {
			if i != len(sorted)-1 {
				return eris.Wrapf(ErrScenarioConfig, "tier %d is open-ended but not last", i)
			}
			continue
		}
		if *t.UpperBound <= t.LowerBound {
			return eris.Wrapf(ErrScenarioConfig, "tier %d upper bound %.2f not above lower bound %.2f", i, *t.UpperBound, t.LowerBound)
		}
		if i < len(sorted)-1 && sorted[i+1].LowerBound != *t.UpperBound {
			return eris.Wrapf(ErrScenarioConfig, "gap or overlap between tier %d and %d", i, i+1)
		}
	}
	return nil
}

// Priority is the advisor-facing urgency class of a scenario.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight maps a priority to its ranking weight.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Scenario is one opportunity scenario: a weighted criteria set plus a
// revenue formula. Immutable once constructed.
type Scenario struct {
	ID                 string      `json:"id" yaml:"id"`
	Name               string      `json:"name" yaml:"name"`
	Description        string      `json:"description,omitempty" yaml:"description,omitempty"`
	Category           string      `json:"category" yaml:"category"`
	Criteria           []Criterion `json:"criteria" yaml:"criteria"`
	Formula            Formula     `json:"revenue_formula" yaml:"revenue_formula"`
	Priority           Priority    `json:"priority" yaml:"priority"`
	RequiredLicenses   []string    `json:"required_licenses,omitempty" yaml:"required_licenses,omitempty"`
	ComplianceNotes    string      `json:"compliance_notes,omitempty" yaml:"compliance_notes,omitempty"`
	EstimatedTimeHours float64     `json:"estimated_time_hours,omitempty" yaml:"estimated_time_hours,omitempty"`
}

// Validate checks the scenario's structural invariants at load time.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return eris.Wrap(ErrScenarioConfig, "scenario id is required")
	}
	if len(s.Criteria) == 0 {
		return eris.Wrapf(ErrScenarioConfig, "scenario %s has no criteria", s.ID)
	}
	for i, c := range s.Criteria {
		if c.Field == "" {
			return eris.Wrapf(ErrScenarioConfig, "scenario %s criterion %d has no field", s.ID, i)
		}
		if _, err := ParseOperator(string(c.Operator)); err != nil {
			return eris.Wrapf(ErrScenarioConfig, "scenario %s criterion %d: unknown operator %q", s.ID, i, c.Operator)
		}
		if c.Weight < 0 {
			return eris.Wrapf(ErrScenarioConfig, "scenario %s criterion %d has negative weight", s.ID, i)
		}
	}
	switch s.Priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return eris.Wrapf(ErrScenarioConfig, "scenario %s has unknown priority %q", s.ID, s.Priority)
	}
	if err := s.Formula.Validate(); err != nil {
		return eris.Wrapf(err, "scenario %s", s.ID)
	}
	return nil
}
