package filter

import (
	"github.com/osa030/smartlist/internal/app/rule"
	"github.com/osa030/smartlist/internal/domain/track"
)

// Chain evaluates compiled rules in sequence. All rules are AND-ed.
type Chain struct {
	rules []rule.Rule
}

// NewChain creates a new rule chain.
func NewChain(rules ...rule.Rule) *Chain {
	c := &Chain{
		rules: make([]rule.Rule, 0, len(rules)),
	}
	for _, r := range rules {
		c.Add(r)
	}
	return c
}

// Add adds a rule to the chain.
func (c *Chain) Add(r rule.Rule) {
	c.rules = append(c.rules, r)
}

// Execute runs all rules in sequence.
// Returns immediately if any rule rejects the track; an empty chain accepts everything.
func (c *Chain) Execute(t *track.Track) Result {
	for i := range c.rules {
		if !c.rules[i].Evaluate(t) {
			return Reject(&c.rules[i])
		}
	}
	return Accept()
}

