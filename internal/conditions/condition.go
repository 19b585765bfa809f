// internal/conditions/condition.go
package conditions

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/solatis/filterkeeper/internal/types"
)

/*
 * Condition nodes and their validity rules.
 *
 * A node is either logical (And/Or, children only) or a leaf (Required,
 * Compare, never children). Leaf data lives in Fields; which fields are
 * legal depends on the kind:
 *   - And/Or: none
 *   - Required: Source, SourceConversion
 *   - Compare: Source, SourceConversion, Operator and either TargetValue
 *     or IsPropertyCompare + TargetProperty + TargetConversion
 *
 * Nodes are stored in the arena of their Tree and addressed by Handle.
 * Condition is a read-only snapshot of one node.
 */

// Handle addresses a node in the arena of a Tree. The zero Handle is
// invalid. A handle goes stale when its node is removed; using a stale
// handle is a contract violation.
type Handle struct {
	slot int32
	gen  uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(nil)"
	}
	return "handle(" + strconv.Itoa(int(h.slot)) + "." + strconv.FormatUint(uint64(h.gen), 10) + ")"
}

// Fields holds the leaf data of a node.
type Fields struct {
	Source            types.PropertyRef
	SourceConversion  types.ConversionKind
	Operator          types.CompareOperator
	TargetValue       types.Value
	IsPropertyCompare bool
	TargetProperty    types.PropertyRef
	TargetConversion  types.ConversionKind
}

// Same reports whether f and o hold identical data.
func (f Fields) Same(o Fields) bool {
	return f.Source == o.Source &&
		f.SourceConversion == o.SourceConversion &&
		f.Operator == o.Operator &&
		f.TargetValue.Same(o.TargetValue) &&
		f.IsPropertyCompare == o.IsPropertyCompare &&
		f.TargetProperty == o.TargetProperty &&
		f.TargetConversion == o.TargetConversion
}

// hasTarget reports whether any target field is populated.
func (f Fields) hasTarget() bool {
	return !f.TargetValue.IsAbsent() || f.IsPropertyCompare || f.TargetProperty != (types.PropertyRef{})
}

// defaults returns the field set a node of kind starts from. Required and
// Compare keep the current source.
func defaults(kind types.ConditionKind, current Fields) Fields {
	switch kind {
	case types.ConditionRequired:
		return Fields{Source: current.Source, SourceConversion: types.ConversionDirect}
	case types.ConditionCompare:
		return Fields{Source: current.Source, SourceConversion: types.ConversionDirect, Operator: types.OpEqual}
	}
	return Fields{}
}

// Condition is a snapshot of one node.
type Condition struct {
	Fields
	Handle   Handle
	ID       string
	Kind     types.ConditionKind
	Parent   Handle
	Children []Handle
}

// IsRoot reports whether the node has no parent.
func (c Condition) IsRoot() bool { return c.Parent.IsZero() }

// IsLogical reports whether the node combines children.
func (c Condition) IsLogical() bool { return c.Kind.IsLogical() }

// Problems lists the validity problems of the node itself. An empty root
// has none.
func (c Condition) Problems() []Problem {
	return rootProblems(problems(c.Kind, c.Fields, len(c.Children)), c.IsRoot(), len(c.Children))
}

// IsValidSelf reports whether the node itself, ignoring descendants, is valid.
func (c Condition) IsValidSelf() bool {
	return len(c.Problems()) == 0
}

// Problem names the part of a node that makes it invalid.
type Problem uint8

const (
	ProblemKind Problem = iota
	ProblemSource
	ProblemSourceConversion
	ProblemOperator
	ProblemTarget
	ProblemTargetConversion
)

var problemNames = [...]string{
	ProblemKind:             "kind",
	ProblemSource:           "source",
	ProblemSourceConversion: "source conversion",
	ProblemOperator:         "operator",
	ProblemTarget:           "target",
	ProblemTargetConversion: "target conversion",
}

func (p Problem) String() string {
	if int(p) < len(problemNames) {
		return problemNames[p]
	}
	return "Problem(" + strconv.Itoa(int(p)) + ")"
}

// problems implements the per-kind validity rules.
func problems(kind types.ConditionKind, f Fields, children int) []Problem {
	var out []Problem
	switch kind {
	case types.ConditionAnd, types.ConditionOr:
		if children == 0 {
			out = append(out, ProblemKind)
		}
		if f.Source != (types.PropertyRef{}) {
			out = append(out, ProblemSource)
		}
		if f.SourceConversion != types.ConversionUndefined {
			out = append(out, ProblemSourceConversion)
		}
		if f.Operator != types.OpUndefined {
			out = append(out, ProblemOperator)
		}
		if f.hasTarget() {
			out = append(out, ProblemTarget)
		}
		if f.TargetConversion != types.ConversionUndefined {
			out = append(out, ProblemTargetConversion)
		}

	case types.ConditionRequired:
		if children > 0 {
			out = append(out, ProblemKind)
		}
		if !f.Source.IsValid() {
			out = append(out, ProblemSource)
		}
		if f.SourceConversion == types.ConversionUndefined || !f.SourceConversion.Known() {
			out = append(out, ProblemSourceConversion)
		}
		if f.Operator != types.OpUndefined {
			out = append(out, ProblemOperator)
		}
		if f.hasTarget() {
			out = append(out, ProblemTarget)
		}
		if f.TargetConversion != types.ConversionUndefined {
			out = append(out, ProblemTargetConversion)
		}

	case types.ConditionCompare:
		if children > 0 {
			out = append(out, ProblemKind)
		}
		if !f.Source.IsValid() {
			out = append(out, ProblemSource)
		}
		if f.SourceConversion == types.ConversionUndefined || !f.SourceConversion.Known() {
			out = append(out, ProblemSourceConversion)
		}
		if f.Operator == types.OpUndefined || !f.Operator.Known() {
			out = append(out, ProblemOperator)
		}
		if f.IsPropertyCompare {
			if f.TargetConversion == types.ConversionUndefined || !f.TargetConversion.Known() {
				out = append(out, ProblemTargetConversion)
			}
			if !f.TargetProperty.IsValid() || !f.TargetValue.IsAbsent() {
				out = append(out, ProblemTarget)
			}
		} else {
			if f.TargetConversion != types.ConversionUndefined {
				out = append(out, ProblemTargetConversion)
			}
			if f.TargetProperty != (types.PropertyRef{}) || f.TargetValue.IsAbsent() {
				out = append(out, ProblemTarget)
			}
		}

	default:
		out = append(out, ProblemKind)
	}
	return out
}

// problemsError aggregates the problems of one node. Each entry wraps
// types.ErrInvalidCondition.
func problemsError(id string, kind types.ConditionKind, ps []Problem) error {
	var result *multierror.Error
	for _, p := range ps {
		result = multierror.Append(result, fmt.Errorf("condition %s (%v): bad %v: %w", id, kind, p, types.ErrInvalidCondition))
	}
	return result.ErrorOrNil()
}
