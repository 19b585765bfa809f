package conditions

import (
	"github.com/solatis/filterkeeper/internal/types"
)

// AddLogical appends an And or Or node under parent.
func (t *Tree) AddLogical(parent Handle, kind types.ConditionKind) (Handle, error) {
	types.Require(kind.IsLogical(), "AddLogical with kind %v", kind)
	return t.add(parent, kind, Fields{})
}

// AddRequired appends a Required node under parent.
func (t *Tree) AddRequired(parent Handle, source types.PropertyRef, conv types.ConversionKind) (Handle, error) {
	f := defaults(types.ConditionRequired, Fields{Source: source})
	f.SourceConversion = conv
	return t.add(parent, types.ConditionRequired, f)
}

// AddCompare appends a Compare node testing source against a fixed value.
func (t *Tree) AddCompare(parent Handle, source types.PropertyRef, conv types.ConversionKind,
	op types.CompareOperator, value types.Value) (Handle, error) {
	return t.add(parent, types.ConditionCompare, compareFields(source, conv, op, value))
}

// AddPropertyCompare appends a Compare node testing source against another
// property.
func (t *Tree) AddPropertyCompare(parent Handle, source types.PropertyRef, conv types.ConversionKind,
	op types.CompareOperator, target types.PropertyRef, targetConv types.ConversionKind) (Handle, error) {
	return t.add(parent, types.ConditionCompare, propertyCompareFields(source, conv, op, target, targetConv))
}

// AddEmpty appends a placeholder Compare node without source or value, to be
// filled in later. Validation must be disabled.
func (t *Tree) AddEmpty(parent Handle) Handle {
	types.Require(!t.validation, "AddEmpty with validation enabled")
	h, err := t.add(parent, types.ConditionCompare, defaults(types.ConditionCompare, Fields{}))
	if err != nil {
		types.Violation("AddEmpty: %v", err)
	}
	return h
}

func compareFields(source types.PropertyRef, conv types.ConversionKind, op types.CompareOperator, value types.Value) Fields {
	f := defaults(types.ConditionCompare, Fields{Source: source})
	f.SourceConversion = conv
	f.Operator = op
	f.TargetValue = value
	return f
}

func propertyCompareFields(source types.PropertyRef, conv types.ConversionKind, op types.CompareOperator,
	target types.PropertyRef, targetConv types.ConversionKind) Fields {
	f := defaults(types.ConditionCompare, Fields{Source: source})
	f.SourceConversion = conv
	f.Operator = op
	f.IsPropertyCompare = true
	f.TargetProperty = target
	f.TargetConversion = targetConv
	return f
}

func (t *Tree) add(parent Handle, kind types.ConditionKind, f Fields) (Handle, error) {
	p := t.node(parent)
	types.Require(p.kind.IsLogical(), "parent %s is %v, not logical", p.id, p.kind)

	if t.validation {
		if err := problemsError("(new)", kind, problems(kind, f, 0)); err != nil {
			return Handle{}, err
		}
	}
	id := t.newID()
	h := t.alloc(id, kind, f, parent)
	t.events.Notify(Event{Kind: Inserted, ID: id})
	return h, nil
}

// UpdateLogical turns h into an And or Or node. Leaf data is cleared;
// children are kept when h already was logical.
func (t *Tree) UpdateLogical(h Handle, kind types.ConditionKind) error {
	types.Require(kind.IsLogical(), "UpdateLogical with kind %v", kind)
	return t.update(h, kind, defaults(kind, t.node(h).fields))
}

// UpdateRequired turns h into a Required node, removing its children.
func (t *Tree) UpdateRequired(h Handle, source types.PropertyRef, conv types.ConversionKind) error {
	f := defaults(types.ConditionRequired, t.node(h).fields)
	f.Source = source
	f.SourceConversion = conv
	return t.update(h, types.ConditionRequired, f)
}

// UpdateCompare turns h into a value Compare node, removing its children.
func (t *Tree) UpdateCompare(h Handle, source types.PropertyRef, conv types.ConversionKind,
	op types.CompareOperator, value types.Value) error {
	return t.update(h, types.ConditionCompare, compareFields(source, conv, op, value))
}

// UpdatePropertyCompare turns h into a property Compare node, removing its
// children.
func (t *Tree) UpdatePropertyCompare(h Handle, source types.PropertyRef, conv types.ConversionKind,
	op types.CompareOperator, target types.PropertyRef, targetConv types.ConversionKind) error {
	return t.update(h, types.ConditionCompare, propertyCompareFields(source, conv, op, target, targetConv))
}

func (t *Tree) update(h Handle, kind types.ConditionKind, f Fields) error {
	n := t.node(h)
	if h == t.root {
		types.Require(kind.IsLogical(), "root cannot become %v", kind)
	}

	children := 0
	if n.kind.IsLogical() && kind.IsLogical() {
		children = len(n.children)
	}
	if t.validation {
		if err := problemsError(n.id, kind, t.selfProblems(h, kind, f, children)); err != nil {
			return err
		}
	}

	changed := n.kind != kind || !n.fields.Same(f)
	if n.kind.IsLogical() && !kind.IsLogical() && len(n.children) > 0 {
		t.RemoveChildren(h)
		changed = true
		n = t.node(h)
	}
	n.kind = kind
	n.fields = f
	if changed {
		t.events.Notify(Event{Kind: Changed, ID: n.id})
	}
	return nil
}

// Remove deletes a non-root node and its subtree. Every removed node gets a
// Removed event, descendants first, last child first.
func (t *Tree) Remove(h Handle) {
	types.Require(h != t.root, "cannot remove the root")
	ids := t.collect(h, nil)
	t.detach(h)
	t.release(h)
	for _, id := range ids {
		t.events.Notify(Event{Kind: Removed, ID: id})
	}
}

func (t *Tree) collect(h Handle, ids []string) []string {
	n := t.node(h)
	for i := len(n.children) - 1; i >= 0; i-- {
		ids = t.collect(n.children[i], ids)
	}
	return append(ids, n.id)
}

// RemoveChildren deletes every child of h, last first. The node itself is
// not reported as changed.
func (t *Tree) RemoveChildren(h Handle) {
	for {
		children := t.node(h).children
		if len(children) == 0 {
			return
		}
		t.Remove(children[len(children)-1])
	}
}

// Clear removes every node below the root and resets the root to And.
func (t *Tree) Clear() {
	t.RemoveChildren(t.root)
	if err := t.UpdateLogical(t.root, types.ConditionAnd); err != nil {
		types.Violation("clear: %v", err)
	}
}

// CopyFrom replaces the content of t with a deep copy of other. Copied nodes
// get fresh ids. Validation is suspended during the copy and restored when
// the result is valid. Unless interactive, per-node events are suppressed and
// a single Changed event for the root is emitted at the end.
func (t *Tree) CopyFrom(other *Tree, interactive bool) {
	types.Require(other != t, "CopyFrom on itself")

	var unblock func()
	if !interactive {
		unblock = t.events.Block()
	}

	t.RemoveChildren(t.root)
	if err := t.UpdateLogical(t.root, other.node(other.root).kind); err != nil {
		types.Violation("copy root: %v", err)
	}

	validation := t.validation
	t.validation = false
	for _, c := range other.node(other.root).children {
		t.copyNode(t.root, other, c)
	}
	if validation && t.IsValid() {
		t.validation = true
	}

	if !interactive {
		unblock()
		t.events.Notify(Event{Kind: Changed, ID: t.node(t.root).id})
	}
}

func (t *Tree) copyNode(parent Handle, other *Tree, src Handle) {
	n := other.node(src)
	h, err := t.add(parent, n.kind, n.fields)
	if err != nil {
		types.Violation("copy %s: %v", n.id, err)
	}
	for _, c := range n.children {
		t.copyNode(h, other, c)
	}
}

// SetValidation switches validation. Enabling it on an invalid tree fails
// with the problems of every invalid node.
func (t *Tree) SetValidation(on bool) error {
	if on && !t.IsValid() {
		return t.Validate()
	}
	t.validation = on
	return nil
}
