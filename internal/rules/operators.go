// internal/rules/operators.go
package rules

import (
	"cmp"
	"math"
	"strings"

	"github.com/solatis/filterkeeper/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Compare applies a CompareOperator to two Values. Resolution order:
 *   1. both absent: equal (Equal, LessOrEqual, MoreOrEqual hold)
 *   2. both bool: boolean ordering (false < true)
 *   3. bool against absent: never equal, ordering treats absent as false
 *   4. pattern operators: on text renderings, honoring case sensitivity
 *   5. a number on either side: exact when both sides are integers,
 *      otherwise numeric with fuzzy float equality, when the other side
 *      converts to a number
 *   6. both times: chronological
 *   7. otherwise text: equality by case folding, ordering by collation
 *
 * Numeric collation is enabled so that "item 2" sorts before "item 10".
 */

type compareOpts struct {
	caseSensitive bool
}

func optsOf(o types.CompareOptions) compareOpts {
	return compareOpts{caseSensitive: o.CaseSensitive}
}

// Compare reports whether "left op right" holds.
// Operators outside the declared set compare false.
func (e *Engine) Compare(op types.CompareOperator, left, right types.Value, options types.CompareOptions) bool {
	if op == types.OpUndefined || !op.Known() {
		return false
	}
	opts := optsOf(options)

	if left.IsAbsent() && right.IsAbsent() {
		return op == types.OpEqual || op == types.OpLessOrEqual || op == types.OpMoreOrEqual
	}

	lb, lIsBool := left.AsBool()
	rb, rIsBool := right.AsBool()
	if lIsBool && rIsBool {
		return compareOrdered(op, boolRank(lb), boolRank(rb))
	}
	if (lIsBool && right.IsAbsent()) || (left.IsAbsent() && rIsBool) {
		switch op {
		case types.OpEqual:
			return false
		case types.OpNotEqual:
			return true
		}
		if op.IsPattern() {
			return false
		}
		return compareOrdered(op, boolRank(lb), boolRank(rb))
	}

	if op.IsPattern() {
		return e.comparePattern(op, left.String(), right.String(), opts)
	}

	if left.IsNumeric() || right.IsNumeric() {
		li, lok := toInteger(left)
		ri, rok := toInteger(right)
		if lok && rok {
			return compareOrdered(op, cmp.Compare(li, ri), 0)
		}
		ln, lok := toNumber(left)
		rn, rok := toNumber(right)
		if lok && rok {
			return compareNumeric(op, ln, rn)
		}
	}

	lt, lIsTime := left.AsTime()
	rt, rIsTime := right.AsTime()
	if lIsTime && rIsTime {
		return compareOrdered(op, lt.Compare(rt), 0)
	}

	return e.compareText(op, left.String(), right.String(), opts)
}

// Order returns the three-way ordering of left against right, using the same
// rules as Compare.
func (e *Engine) Order(left, right types.Value, options types.CompareOptions) types.Ordering {
	switch {
	case e.Compare(types.OpLess, left, right, options):
		return types.Less
	case e.Compare(types.OpMore, left, right, options):
		return types.Greater
	}
	return types.Equal
}

// comparePattern handles contains/starts with/ends with.
func (e *Engine) comparePattern(op types.CompareOperator, s, pattern string, opts compareOpts) bool {
	if !opts.caseSensitive {
		s = e.lower.String(s)
		pattern = e.lower.String(pattern)
	}
	switch op {
	case types.OpContains:
		return strings.Contains(s, pattern)
	case types.OpStartsWith:
		return strings.HasPrefix(s, pattern)
	case types.OpEndsWith:
		return strings.HasSuffix(s, pattern)
	}
	return false
}

// compareText handles the text fallback.
func (e *Engine) compareText(op types.CompareOperator, a, b string, opts compareOpts) bool {
	switch op {
	case types.OpEqual:
		return textEqual(a, b, opts)
	case types.OpNotEqual:
		return !textEqual(a, b, opts)
	}
	return compareOrdered(op, e.collator(opts).CompareString(a, b), 0)
}

func textEqual(a, b string, opts compareOpts) bool {
	if opts.caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// compareNumeric compares with fuzzy equality so that 0.1+0.2 equals 0.3.
func compareNumeric(op types.CompareOperator, a, b float64) bool {
	eq := fuzzyEqual(a, b)
	switch op {
	case types.OpEqual:
		return eq
	case types.OpNotEqual:
		return !eq
	case types.OpMore:
		return !eq && a > b
	case types.OpMoreOrEqual:
		return eq || a > b
	case types.OpLess:
		return !eq && a < b
	case types.OpLessOrEqual:
		return eq || a < b
	}
	return false
}

// compareOrdered applies an ordering operator to an already computed
// three-way comparison of a against b.
func compareOrdered(op types.CompareOperator, a, b int) bool {
	switch op {
	case types.OpEqual:
		return a == b
	case types.OpNotEqual:
		return a != b
	case types.OpMore:
		return a > b
	case types.OpMoreOrEqual:
		return a >= b
	case types.OpLess:
		return a < b
	case types.OpLessOrEqual:
		return a <= b
	}
	return false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// fuzzyULPs is the distance in units of least precision under which two
// floats are equal.
const fuzzyULPs = 4

// fuzzyEqual treats numbers at most fuzzyULPs apart as equal.
func fuzzyEqual(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	m := math.Max(math.Abs(a), math.Abs(b))
	ulp := math.Nextafter(m, math.Inf(1)) - m
	return math.Abs(a-b) <= fuzzyULPs*ulp
}
