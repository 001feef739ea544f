// Package filter provides the rule chain that admits or rejects tracks.
package filter

import "github.com/osa030/smartlist/internal/app/rule"

// Result represents the result of running a track through the chain.
type Result struct {
	Accepted bool
	Rule     *rule.Rule // First rule that rejected the track, nil when accepted
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result naming the failing rule.
func Reject(r *rule.Rule) Result {
	return Result{Accepted: false, Rule: r}
}
