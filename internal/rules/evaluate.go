// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/filterkeeper/internal/types"
)

/*
 * Easy filter evaluation.
 *
 * A dataset may carry several compiled rules. They are ANDed: a row passes
 * when every rule matches. A single rule is an OR over its candidates: it
 * matches when the cell compares true against any one of them.
 *
 * Short-circuit semantics: the first failing rule stops evaluation of the
 * remaining rules, the first matching candidate stops evaluation of the
 * remaining candidates.
 */

// Match reports whether cell satisfies the rule for any candidate value.
func (e *Engine) Match(rule CompiledFilter, cell types.Value) bool {
	for _, candidate := range rule.Values {
		if e.Compare(rule.Operator, cell, candidate, rule.Options) {
			return true
		}
	}
	return false
}

// CellReader reads the cell a rule looks at.
type CellReader func(rule CompiledFilter) (types.Value, error)

// MatchAll reports whether every rule matches the cell returned by read.
// Returns the first read error; rules after a failure are not evaluated.
func (e *Engine) MatchAll(rules []CompiledFilter, read CellReader) (bool, error) {
	for _, rule := range rules {
		cell, err := read(rule)
		if err != nil {
			return false, err
		}
		if !e.Match(rule, cell) {
			return false, nil
		}
	}
	return true, nil
}
