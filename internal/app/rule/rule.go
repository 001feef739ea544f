package rule

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/smartlist/internal/domain/track"
)

// Request keys for one rule are playlistRule<Part>-<N>.
const (
	keyPrefix   = "playlistRule"
	keyType     = keyPrefix + "Type-"
	keyOperator = keyPrefix + "Operator-"
	keyData     = keyPrefix + "Data-"
	keyUnit     = keyPrefix + "Unit-"
)

var ruleKeyPattern = regexp.MustCompile(`^playlistRule[A-Za-z]+-(\d+)$`)

// Rule is a compiled attribute/operator/operand triple.
type Rule struct {
	Index     int       // Numeric suffix of the request keys
	Attribute Attribute // Attribute the rule reads
	Operator  Operator  // Comparison applied
	Operand   any       // Coerced operand (string or float64)
	Unit      string    // Unit the raw operand was given in, if any
}

// Evaluate reports whether t satisfies the rule.
func (r Rule) Evaluate(t *track.Track) bool {
	return r.Operator.Apply(r.Attribute.Value(t), r.Operand)
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s %v", r.Attribute, r.Operator, r.Operand)
}

// Compile builds rules from a flat request mapping. Rules are returned in
// ascending index order. An unknown operator or rule type aborts the whole
// compilation.
func Compile(params map[string]string) ([]Rule, error) {
	suffixes := ruleSuffixes(params)
	rules := make([]Rule, 0, len(suffixes))

	for _, s := range suffixes {
		op, err := ParseOperator(params[keyOperator+s.suffix])
		if err != nil {
			return nil, errors.Wrapf(err, "rule %s", s.suffix)
		}

		attr, err := ParseAttribute(params[keyType+s.suffix])
		if err != nil {
			return nil, errors.Wrapf(err, "rule %s", s.suffix)
		}

		unit := strings.ToLower(strings.TrimSpace(params[keyUnit+s.suffix]))
		rules = append(rules, Rule{
			Index:     s.index,
			Attribute: attr,
			Operator:  op,
			Operand:   coerceOperand(attr, params[keyData+s.suffix], unit),
			Unit:      unit,
		})
	}

	return rules, nil
}

// FromValues flattens a form body, keeping the first value of each key.
func FromValues(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

type ruleSuffix struct {
	index  int
	suffix string
}

// ruleSuffixes returns one entry per distinct numeric index, sorted.
// When two suffixes share a number ("1" and "01"), the lexically first wins.
func ruleSuffixes(params map[string]string) []ruleSuffix {
	var found []ruleSuffix
	seenSuffix := make(map[string]bool)
	for key := range params {
		m := ruleKeyPattern.FindStringSubmatch(key)
		if m == nil || seenSuffix[m[1]] {
			continue
		}
		seenSuffix[m[1]] = true
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, ruleSuffix{index: n, suffix: m[1]})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].index != found[j].index {
			return found[i].index < found[j].index
		}
		return found[i].suffix < found[j].suffix
	})

	out := make([]ruleSuffix, 0, len(found))
	for _, s := range found {
		if len(out) > 0 && out[len(out)-1].index == s.index {
			continue
		}
		out = append(out, s)
	}
	return out
}

// coerceOperand shapes raw rule data to match the attribute's values.
// Numeric data that does not parse is kept as a string and never matches a number.
func coerceOperand(attr Attribute, data, unit string) any {
	data = strings.TrimSpace(data)

	switch attr.Kind() {
	case KindText, KindTextList:
		return strings.ToUpper(data)
	case KindNumber:
		v, err := strconv.ParseFloat(data, 64)
		if err != nil {
			return data
		}
		if unit != "" {
			converted, ok := ConvertUnit(unit, v)
			if !ok {
				zlog.Debug().Msgf("ignoring unknown rule unit: attribute=%s unit=%s", attr, unit)
			}
			v = converted
		}
		return v
	default:
		return data
	}
}
