package rule

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/smartlist/internal/domain/track"
)

// ErrUnknownOperator is returned when a rule names an operator that does not exist.
var ErrUnknownOperator = errors.New("unknown operator")

// Operator identifies a comparison between a track value and a rule operand.
type Operator string

const (
	OpEquals               Operator = "equals"
	OpNotEquals            Operator = "notEquals"
	OpGreaterThan          Operator = "greaterThan"
	OpLessThan             Operator = "lessThan"
	OpGreaterThanOrEqualTo Operator = "greaterThanOrEqualTo"
	OpLessThanOrEqualTo    Operator = "lessThanOrEqualTo"
	OpContains             Operator = "contains"
	OpDoesNotContain       Operator = "doesNotContain"
)

const (
	// fuzzyTolerance is the relative tolerance used when the left value is non-integral.
	fuzzyTolerance = 0.01
	// maxContainsDepth bounds recursion into nested sequences.
	maxContainsDepth = 3
)

var operators = map[Operator]func(a, b any) bool{
	OpEquals:               Equals,
	OpNotEquals:            NotEquals,
	OpGreaterThan:          GreaterThan,
	OpLessThan:             LessThan,
	OpGreaterThanOrEqualTo: GreaterThanOrEqualTo,
	OpLessThanOrEqualTo:    LessThanOrEqualTo,
	OpContains:             Contains,
	OpDoesNotContain:       DoesNotContain,
}

// ParseOperator resolves a raw operator name. Matching is case-insensitive.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	if _, ok := operators[Operator(s)]; ok {
		return Operator(s), nil
	}
	for op := range operators {
		if strings.EqualFold(string(op), s) {
			return op, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownOperator, "%q", s)
}

// Apply evaluates the operator. Unknown operators never match.
func (o Operator) Apply(a, b any) bool {
	fn, ok := operators[o]
	if !ok {
		return false
	}
	return fn(a, b)
}

// Equals compares a track value with an operand.
//
// Sequences, sets and keyed mappings test membership of b. A non-integral
// number matches within 1% of itself, which is meant for audio features in
// [0,1] but applies to any fractional value. Everything else is strict.
func Equals(a, b any) bool {
	switch av := a.(type) {
	case []string:
		for _, e := range av {
			if strictEqual(e, b) {
				return true
			}
		}
		return false
	case []any:
		for _, e := range av {
			if strictEqual(e, b) {
				return true
			}
		}
		return false
	case track.StringSet:
		bs, ok := b.(string)
		return ok && av.Has(bs)
	case track.AudioFeatures:
		for _, v := range av {
			if strictEqual(v, b) {
				return true
			}
		}
		return false
	case float64:
		bf, ok := b.(float64)
		if !ok {
			return false
		}
		if av != math.Trunc(av) {
			return math.Abs(av-bf) <= math.Abs(av)*fuzzyTolerance
		}
		return av == bf
	default:
		return strictEqual(a, b)
	}
}

// NotEquals is the negation of Equals.
func NotEquals(a, b any) bool {
	return !Equals(a, b)
}

// GreaterThan orders strings and numbers; other types never match.
func GreaterThan(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bf, ok := b.(float64)
		return ok && av > bf
	case string:
		bs, ok := b.(string)
		return ok && av > bs
	}
	return false
}

// LessThan orders strings and numbers; other types never match.
func LessThan(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bf, ok := b.(float64)
		return ok && av < bf
	case string:
		bs, ok := b.(string)
		return ok && av < bs
	}
	return false
}

// GreaterThanOrEqualTo is GreaterThan or Equals.
func GreaterThanOrEqualTo(a, b any) bool {
	return GreaterThan(a, b) || Equals(a, b)
}

// LessThanOrEqualTo is LessThan or Equals.
func LessThanOrEqualTo(a, b any) bool {
	return LessThan(a, b) || Equals(a, b)
}

// Contains reports whether a equals b, a is a string containing b, or a is a
// sequence with an element that contains b.
func Contains(a, b any) bool {
	return contains(a, b, 0)
}

// DoesNotContain is the negation of Contains.
func DoesNotContain(a, b any) bool {
	return !Contains(a, b)
}

func contains(a, b any, depth int) bool {
	if Equals(a, b) {
		return true
	}
	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && strings.Contains(av, bs)
	case []string:
		if depth >= maxContainsDepth {
			return false
		}
		for _, e := range av {
			if contains(e, b, depth+1) {
				return true
			}
		}
	case []any:
		if depth >= maxContainsDepth {
			return false
		}
		for _, e := range av {
			if contains(e, b, depth+1) {
				return true
			}
		}
	}
	return false
}

// strictEqual compares scalar values of the same type.
func strictEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && av == bs
	case float64:
		bf, ok := b.(float64)
		return ok && av == bf
	case bool:
		bb, ok := b.(bool)
		return ok && av == bb
	}
	return false
}
