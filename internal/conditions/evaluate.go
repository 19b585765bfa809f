package conditions

import (
	"github.com/solatis/filterkeeper/internal/resolve"
	"github.com/solatis/filterkeeper/internal/rules"
	"github.com/solatis/filterkeeper/internal/types"
)

// State is the state of an evaluation outcome.
type State uint8

const (
	StateSatisfied State = iota
	StatePending
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	}
	return "satisfied"
}

// Outcome is the result of evaluating a node: a boolean, a set of
// dependencies to wait for, or an error.
type Outcome struct {
	State State
	Value bool
	Deps  []types.Dependency
	Err   error
}

// Satisfied wraps a boolean result.
func Satisfied(b bool) Outcome { return Outcome{State: StateSatisfied, Value: b} }

// Pending wraps a result waiting for deps.
func Pending(deps []types.Dependency) Outcome { return Outcome{State: StatePending, Deps: deps} }

// Failed wraps an error.
func Failed(err error) Outcome { return Outcome{State: StateFailed, Err: err} }

// IsTrue reports whether the outcome is a satisfied true.
func (o Outcome) IsTrue() bool { return o.State == StateSatisfied && o.Value }

// Resolver is what evaluation needs from a value resolver. *resolve.Resolver
// implements it.
type Resolver interface {
	Resolve(ref types.PropertyRef, conv types.ConversionKind, rows []types.PropertyRef) types.Resolution
	DecodeLookup(ref types.PropertyRef, code types.Value) types.Resolution
	Describe(ref types.PropertyRef) (types.PropertyInfo, error)
	Mode() resolve.Mode
}

// Comparer applies a compare operator. *rules.Engine implements it.
type Comparer interface {
	Compare(op types.CompareOperator, left, right types.Value, options types.CompareOptions) bool
}

var _ Comparer = (*rules.Engine)(nil)

// Evaluate evaluates the whole tree against the rows located by rows.
func (t *Tree) Evaluate(rows []types.PropertyRef, r Resolver, cmp Comparer) Outcome {
	return t.EvaluateNode(t.root, rows, r, cmp)
}

// EvaluateNode evaluates the subtree at h. An empty logical node is true.
// Children run in order; the first pending or failed child decides the
// outcome, And and Or short-circuit.
func (t *Tree) EvaluateNode(h Handle, rows []types.PropertyRef, r Resolver, cmp Comparer) Outcome {
	n := t.node(h)
	switch n.kind {
	case types.ConditionAnd, types.ConditionOr:
		for _, c := range n.children {
			o := t.EvaluateNode(c, rows, r, cmp)
			if o.State != StateSatisfied {
				return o
			}
			if n.kind == types.ConditionAnd && !o.Value {
				return Satisfied(false)
			}
			if n.kind == types.ConditionOr && o.Value {
				return Satisfied(true)
			}
		}
		return Satisfied(n.kind == types.ConditionAnd || len(n.children) == 0)

	case types.ConditionRequired:
		res := r.Resolve(n.fields.Source, n.fields.SourceConversion, rows)
		if o, done := settle(res); done {
			return o
		}
		return Satisfied(!rules.IsBlank(res.Value))

	case types.ConditionCompare:
		return evaluateCompare(n.fields, rows, r, cmp)
	}
	types.Violation("evaluate node %s of kind %v", n.id, n.kind)
	return Outcome{}
}

func evaluateCompare(f Fields, rows []types.PropertyRef, r Resolver, cmp Comparer) Outcome {
	src := r.Resolve(f.Source, f.SourceConversion, rows)
	if o, done := settle(src); done {
		return o
	}

	var tgt types.Resolution
	if f.IsPropertyCompare {
		tgt = r.Resolve(f.TargetProperty, f.TargetConversion, rows)
	} else {
		decode, err := decodesTarget(f, r)
		if err != nil {
			return Failed(err)
		}
		if decode {
			tgt = r.DecodeLookup(f.Source, f.TargetValue)
		} else {
			tgt = types.Resolved(f.TargetValue)
		}
	}
	if o, done := settle(tgt); done {
		return o
	}

	left, right := src.Value, tgt.Value
	if left.Kind() == types.KindBool && right.IsAbsent() {
		right = types.Bool(false)
	}
	if right.Kind() == types.KindBool && left.IsAbsent() {
		left = types.Bool(false)
	}
	return Satisfied(cmp.Compare(f.Operator, left, right, types.CompareOptions{}))
}

// decodesTarget reports whether a stored target code is compared through its
// lookup: only for equality operators on a lookup-backed source that is
// itself rendered as a display value.
func decodesTarget(f Fields, r Resolver) (bool, error) {
	if !f.Operator.IsEquality() {
		return false, nil
	}
	info, err := r.Describe(f.Source)
	if err != nil {
		return false, err
	}
	if !info.HasLookup() {
		return false, nil
	}
	return r.Mode() == resolve.Visible || f.SourceConversion == types.ConversionNameFromLookup, nil
}

func settle(res types.Resolution) (Outcome, bool) {
	switch {
	case res.Err != nil:
		return Failed(res.Err), true
	case res.IsPending():
		return Pending(res.Pending), true
	}
	return Outcome{}, false
}
