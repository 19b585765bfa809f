package conditions

import (
	"github.com/hashicorp/go-multierror"

	"github.com/solatis/filterkeeper/internal/types"
)

// IsEmpty reports whether the root has no children.
func (t *Tree) IsEmpty() bool {
	return len(t.node(t.root).children) == 0
}

// IsValid reports whether the tree is empty or every node is self-valid.
func (t *Tree) IsValid() bool {
	return t.IsEmpty() || t.validFrom(t.root)
}

func (t *Tree) validFrom(h Handle) bool {
	if !t.IsValidSelf(h) {
		return false
	}
	for _, c := range t.node(h).children {
		if !t.validFrom(c) {
			return false
		}
	}
	return true
}

// IsValidSelf reports whether the node at h, ignoring its descendants, is
// valid. An empty root is valid.
func (t *Tree) IsValidSelf(h Handle) bool {
	return len(t.Problems(h)) == 0
}

// Problems lists the validity problems of the node at h.
func (t *Tree) Problems(h Handle) []Problem {
	n := t.node(h)
	return t.selfProblems(h, n.kind, n.fields, len(n.children))
}

func (t *Tree) selfProblems(h Handle, kind types.ConditionKind, f Fields, children int) []Problem {
	return rootProblems(problems(kind, f, children), h == t.root, children)
}

// rootProblems drops the kind problem of an empty root: a root without
// children is valid.
func rootProblems(ps []Problem, root bool, children int) []Problem {
	if !root || children > 0 {
		return ps
	}
	out := ps[:0]
	for _, p := range ps {
		if p != ProblemKind {
			out = append(out, p)
		}
	}
	return out
}

// FindInvalid returns the invalid nodes in pre-order.
func (t *Tree) FindInvalid() []Handle {
	var out []Handle
	t.Walk(func(c Condition) bool {
		if !t.IsValidSelf(c.Handle) {
			out = append(out, c.Handle)
		}
		return true
	})
	return out
}

// Validate returns nil for a valid tree, otherwise an aggregate of the
// problems of every invalid node. Each entry wraps types.ErrInvalidCondition.
func (t *Tree) Validate() error {
	var result *multierror.Error
	for _, h := range t.FindInvalid() {
		n := t.node(h)
		if err := problemsError(n.id, n.kind, t.Problems(h)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
