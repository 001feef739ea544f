package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/smartlist/internal/domain/track"
)

func TestEquals(t *testing.T) {
	tests := []struct {
		name     string
		a        any
		b        any
		expected bool
	}{
		{name: "string match", a: "ARTIST A", b: "ARTIST A", expected: true},
		{name: "string mismatch", a: "ARTIST A", b: "ARTIST B", expected: false},
		{name: "string vs number", a: "2020", b: 2020.0, expected: false},
		{name: "sequence membership", a: []string{"A", "B"}, b: "B", expected: true},
		{name: "sequence without member", a: []string{"A", "B"}, b: "C", expected: false},
		{name: "empty sequence", a: []string{}, b: "A", expected: false},
		{name: "untyped sequence membership", a: []any{"A", 1.0}, b: 1.0, expected: true},
		{name: "set membership", a: track.NewStringSet("ROCK", "POP"), b: "POP", expected: true},
		{name: "set without member", a: track.NewStringSet("ROCK"), b: "JAZZ", expected: false},
		{name: "mapping value membership", a: track.AudioFeatures{"tempo": 120, "key": 5}, b: 5.0, expected: true},
		{name: "mapping key is not a value", a: track.AudioFeatures{"tempo": 120}, b: "tempo", expected: false},
		{name: "integral numbers strict", a: 200000.0, b: 200000.0, expected: true},
		{name: "integral numbers off by one", a: 200000.0, b: 200001.0, expected: false},
		{name: "fractional within 1%", a: 0.5, b: 0.504, expected: true},
		{name: "fractional outside 1%", a: 0.5, b: 0.51, expected: false},
		// Fuzzy matching applies to any fractional left value, not only audio features.
		{name: "fractional tempo within 1%", a: 120.5, b: 121.0, expected: true},
		{name: "integral tempo is strict", a: 120.0, b: 121.0, expected: false},
		{name: "number vs string", a: 0.5, b: "0.5", expected: false},
		{name: "nil never equals", a: nil, b: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Equals(tt.a, tt.b))
			assert.Equal(t, !tt.expected, NotEquals(tt.a, tt.b))
		})
	}
}

func TestOrdering(t *testing.T) {
	tests := []struct {
		name string
		a    any
		b    any
		gt   bool
		lt   bool
		gte  bool
		lte  bool
	}{
		{name: "greater number", a: 300000.0, b: 200000.0, gt: true, gte: true},
		{name: "lesser number", a: 100000.0, b: 200000.0, lt: true, lte: true},
		{name: "equal number", a: 50.0, b: 50.0, gte: true, lte: true},
		{name: "fuzzy equal fraction", a: 0.5, b: 0.503, lt: true, gte: true, lte: true},
		{name: "date strings", a: "2021-05-01", b: "2020-12-31", gt: true, gte: true},
		{name: "equal strings", a: "ABC", b: "ABC", gte: true, lte: true},
		{name: "mismatched types", a: 10.0, b: "5"},
		{name: "sequence is not ordinal", a: []string{"B"}, b: "A"},
		{name: "sequence member counts as equal", a: []string{"A"}, b: "A", gte: true, lte: true},
		{name: "nil value", a: nil, b: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.gt, GreaterThan(tt.a, tt.b), "greaterThan")
			assert.Equal(t, tt.lt, LessThan(tt.a, tt.b), "lessThan")
			assert.Equal(t, tt.gte, GreaterThanOrEqualTo(tt.a, tt.b), "greaterThanOrEqualTo")
			assert.Equal(t, tt.lte, LessThanOrEqualTo(tt.a, tt.b), "lessThanOrEqualTo")
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name     string
		a        any
		b        any
		expected bool
	}{
		{name: "equal values", a: 42.0, b: 42.0, expected: true},
		{name: "substring", a: "HELLO WORLD", b: "LO WO", expected: true},
		{name: "not a substring", a: "HELLO", b: "BYE", expected: false},
		{name: "empty operand is a substring", a: "HELLO", b: "", expected: true},
		{name: "sequence element substring", a: []string{"INDIE ROCK", "POP"}, b: "ROCK", expected: true},
		{name: "sequence without match", a: []string{"JAZZ"}, b: "ROCK", expected: false},
		{name: "nested within depth", a: []any{[]any{[]any{"DEEP ROCK"}}}, b: "ROCK", expected: true},
		{name: "nested beyond depth", a: []any{[]any{[]any{[]any{"DEEP ROCK"}}}}, b: "ROCK", expected: false},
		{name: "set has no substring match", a: track.NewStringSet("INDIE ROCK"), b: "ROCK", expected: false},
		{name: "set exact member", a: track.NewStringSet("INDIE ROCK"), b: "INDIE ROCK", expected: true},
		{name: "number is not searched", a: 12345.0, b: "23", expected: false},
		{name: "nil value", a: nil, b: "X", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Contains(tt.a, tt.b))
			assert.Equal(t, !tt.expected, DoesNotContain(tt.a, tt.b),
				"doesNotContain must be the complement of contains")
		})
	}
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("greaterThanOrEqualTo")
	require.NoError(t, err)
	assert.Equal(t, OpGreaterThanOrEqualTo, op)

	op, err = ParseOperator(" DOESNOTCONTAIN ")
	require.NoError(t, err)
	assert.Equal(t, OpDoesNotContain, op)

	_, err = ParseOperator("startsWith")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOperator)
	assert.Contains(t, err.Error(), "startsWith")
}

func TestOperator_ApplyUnknown(t *testing.T) {
	assert.False(t, Operator("bogus").Apply("A", "A"))
	assert.True(t, OpEquals.Apply("A", "A"))
}
