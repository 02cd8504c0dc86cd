// Package matcher evaluates scenario criteria against client records and
// produces weighted match scores with a per-criterion audit trail.
package matcher

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// Evaluate resolves one criterion against a client and returns its audit
// record. It is a total function: an absent field, a type mismatch, or a
// malformed range all yield matched=false, never an error. Unknown operator
// names are rejected at scenario load time, not here.
func Evaluate(client *model.Client, criterion model.Criterion) model.MatchDetail {
	actual, ok := client.Resolve(criterion.Field)

	detail := model.MatchDetail{
		Field:         criterion.Field,
		Operator:      criterion.Operator,
		ExpectedValue: criterion.Value,
		Weight:        criterion.Weight,
	}
	if ok {
		detail.ActualValue = actual
	}

	if !ok {
		return detail
	}

	switch criterion.Operator {
	case model.OpGT:
		detail.Matched = compareOrdered(actual, criterion.Value, func(c int) bool { return c > 0 })
	case model.OpLT:
		detail.Matched = compareOrdered(actual, criterion.Value, func(c int) bool { return c < 0 })
	case model.OpGTE:
		detail.Matched = compareOrdered(actual, criterion.Value, func(c int) bool { return c >= 0 })
	case model.OpLTE:
		detail.Matched = compareOrdered(actual, criterion.Value, func(c int) bool { return c <= 0 })
	case model.OpEQ:
		detail.Matched = looseEqual(actual, criterion.Value)
	case model.OpContains:
		detail.Matched = evalContains(actual, criterion.Value)
	case model.OpInRange:
		detail.Matched = evalInRange(actual, criterion.Value)
	}

	if detail.Matched {
		detail.PointsEarned = criterion.Weight
	}
	return detail
}

// compareOrdered compares actual against expected and applies pred to the
// sign of the result. Numbers compare numerically, strings lexically;
// anything else is unordered and never matches.
func compareOrdered(actual, expected any, pred func(int) bool) bool {
	if af, aok := asFloat(actual); aok {
		ef, eok := asFloat(expected)
		if !eok {
			return false
		}
		switch {
		case af < ef:
			return pred(-1)
		case af > ef:
			return pred(1)
		default:
			return pred(0)
		}
	}
	as, aok := actual.(string)
	es, eok := expected.(string)
	if aok && eok {
		return pred(strings.Compare(as, es))
	}
	return false
}

// looseEqual compares numbers numerically, other comparable values by
// identity, and list or map values by deep equality. Slices and maps are not
// comparable with ==, so the identity path must be guarded.
func looseEqual(actual, expected any) bool {
	if af, aok := asFloat(actual); aok {
		ef, eok := asFloat(expected)
		return eok && af == ef
	}
	if isComparable(actual) && isComparable(expected) {
		return actual == expected
	}
	return reflect.DeepEqual(actual, expected)
}

func isComparable(v any) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}

// evalContains is a case-sensitive substring test for textual values and a
// membership test for lists. Any other actual type never matches.
func evalContains(actual, expected any) bool {
	switch v := actual.(type) {
	case string:
		sub, ok := expected.(string)
		return ok && strings.Contains(v, sub)
	case []string:
		for _, item := range v {
			if looseEqual(item, expected) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if looseEqual(item, expected) {
				return true
			}
		}
	}
	return false
}

// evalInRange treats a two-element numeric list as an inclusive [min,max]
// bound for numeric actuals, and any other list as a membership set.
// A malformed expected value never matches.
func evalInRange(actual, expected any) bool {
	items := asList(expected)
	if items == nil {
		return false
	}

	if len(items) == 2 {
		lo, loOK := asFloat(items[0])
		hi, hiOK := asFloat(items[1])
		if loOK && hiOK {
			av, aok := asFloat(actual)
			return aok && av >= lo && av <= hi
		}
	}

	for _, item := range items {
		if looseEqual(actual, item) {
			return true
		}
	}
	return false
}

// asList normalizes the supported list representations from JSON and YAML.
func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		items := make([]any, len(l))
		for i, s := range l {
			items[i] = s
		}
		return items
	case []float64:
		items := make([]any, len(l))
		for i, f := range l {
			items[i] = f
		}
		return items
	case []int:
		items := make([]any, len(l))
		for i, n := range l {
			items[i] = n
		}
		return items
	}
	return nil
}

// asFloat coerces the numeric types that JSON, YAML, and typed client fields
// produce.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
