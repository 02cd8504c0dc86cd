// Package model defines the data records shared by the matching, revenue,
// synthesis, and ranking stages: clients, scenarios, and opportunities.
package model

import (
	"strings"
)

// Portfolio holds a client's investable assets.
type Portfolio struct {
	TotalValue float64            `json:"total_value" yaml:"total_value"`
	Allocation map[string]float64 `json:"allocation,omitempty" yaml:"allocation,omitempty"` // asset class -> percent
}

// Client is one client record in a book of business. The typed fields cover
// the attributes every book carries; Extra holds any additional named
// attributes a scenario may reference. Records are immutable for the
// duration of a matching run.
type Client struct {
	ID                  string         `json:"id" yaml:"id"`
	Name                string         `json:"name" yaml:"name"`
	Age                 int            `json:"age,omitempty" yaml:"age,omitempty"`
	RiskTolerance       string         `json:"risk_tolerance,omitempty" yaml:"risk_tolerance,omitempty"`
	InvestmentObjective string         `json:"investment_objective,omitempty" yaml:"investment_objective,omitempty"`
	TimeHorizonYears    int            `json:"time_horizon_years,omitempty" yaml:"time_horizon_years,omitempty"`
	AnnualIncome        float64        `json:"annual_income,omitempty" yaml:"annual_income,omitempty"`
	NetWorth            float64        `json:"net_worth,omitempty" yaml:"net_worth,omitempty"`
	Portfolio           Portfolio      `json:"portfolio,omitempty" yaml:"portfolio,omitempty"`
	Extra               map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// PortfolioTotalField is the canonical path of the portfolio total value,
// used as the default multiplier for AUM-based revenue formulas.
const PortfolioTotalField = "portfolio.total_value"

// Resolve walks a dot-separated field path against the client record.
// Typed fields are checked first, then the Extra map (including nested maps).
// An unknown path resolves to (nil, false), never an error.
func (c *Client) Resolve(path string) (any, bool) {
	if c == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")

	if v, ok := c.resolveTyped(segments); ok {
		return v, true
	}
	return resolveMap(c.Extra, segments)
}

// resolveTyped resolves paths that land on the typed core fields.
func (c *Client) resolveTyped(segments []string) (any, bool) {
	switch segments[0] {
	case "id":
		return leaf(c.ID, segments)
	case "name":
		return leaf(c.Name, segments)
	case "age":
		return leaf(c.Age, segments)
	case "risk_tolerance":
		return leaf(c.RiskTolerance, segments)
	case "investment_objective":
		return leaf(c.InvestmentObjective, segments)
	case "time_horizon_years":
		return leaf(c.TimeHorizonYears, segments)
	case "annual_income":
		return leaf(c.AnnualIncome, segments)
	case "net_worth":
		return leaf(c.NetWorth, segments)
	case "portfolio":
		return c.resolvePortfolio(segments[1:])
	}
	return nil, false
}

func (c *Client) resolvePortfolio(rest []string) (any, bool) {
	if len(rest) == 0 {
		return c.Portfolio, true
	}
	switch rest[0] {
	case "total_value":
		if len(rest) == 1 {
			return c.Portfolio.TotalValue, true
		}
	case "allocation":
		if len(rest) == 1 {
			return c.Portfolio.Allocation, true
		}
		if len(rest) == 2 {
			v, ok := c.Portfolio.Allocation[rest[1]]
			return v, ok
		}
	}
	return nil, false
}

// leaf returns v only when the path has no further segments.
func leaf(v any, segments []string) (any, bool) {
	if len(segments) == 1 {
		return v, true
	}
	return nil, false
}

// resolveMap walks the remaining segments through nested maps.
func resolveMap(m map[string]any, segments []string) (any, bool) {
	if m == nil {
		return nil, false
	}
	cur := any(m)
	for _, seg := range segments {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
