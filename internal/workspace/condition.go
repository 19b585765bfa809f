package workspace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/dataset"
	"github.com/solatis/filterkeeper/internal/types"
)

// Condition is the YAML form of a condition node. Kind is one of and, or,
// required and compare; a compare node names either a fixed value or a
// target property.
type Condition struct {
	ID               string      `yaml:"id,omitempty"`
	Kind             string      `yaml:"kind"`
	Source           string      `yaml:"source,omitempty"`
	Conversion       string      `yaml:"conversion,omitempty"`
	Operator         string      `yaml:"op,omitempty"`
	Value            any         `yaml:"value,omitempty"`
	Target           string      `yaml:"target,omitempty"`
	TargetConversion string      `yaml:"target_conversion,omitempty"`
	Children         []Condition `yaml:"children,omitempty"`
}

// Describer reports property metadata. Compare values are coerced to the
// declared type of their source.
type Describer interface {
	Describe(ref types.PropertyRef) (types.PropertyInfo, error)
}

// LoadCondition reads a condition document from path.
func LoadCondition(path string) (Condition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Condition{}, fmt.Errorf("failed to read condition: %w", err)
	}
	return ParseCondition(data)
}

// ParseCondition decodes a condition document.
func ParseCondition(data []byte) (Condition, error) {
	var c Condition
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Condition{}, fmt.Errorf("failed to parse condition: %w", err)
	}
	return c, nil
}

// BuildTree creates a tree from doc. The tree is built with validation
// disabled and then switched to the requested validation mode; an invalid
// tree is returned together with its validation error. describe may be nil.
func BuildTree(doc Condition, describe Describer, validation bool, opts ...conditions.Option) (*conditions.Tree, error) {
	tree := conditions.New(append(opts, conditions.WithValidation(false))...)
	if err := Build(tree, doc, describe); err != nil {
		return nil, err
	}
	if err := tree.SetValidation(validation); err != nil {
		return tree, err
	}
	return tree, nil
}

// Build replaces the content of tree with doc. The root of doc must be
// logical. Validation of tree must be disabled.
func Build(tree *conditions.Tree, doc Condition, describe Describer) error {
	kind, err := parseKind(doc.Kind)
	if err != nil {
		return err
	}
	if !kind.IsLogical() {
		return fmt.Errorf("root condition is %v: %w", kind, types.ErrInvalidCondition)
	}
	tree.Clear()
	root := tree.Root()
	if err := tree.UpdateLogical(root, kind); err != nil {
		return err
	}
	for i, child := range doc.Children {
		if err := build(tree, root, child, describe); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func build(tree *conditions.Tree, parent conditions.Handle, doc Condition, describe Describer) error {
	kind, err := parseKind(doc.Kind)
	if err != nil {
		return err
	}
	if !kind.IsLogical() && len(doc.Children) > 0 {
		return fmt.Errorf("%v condition with children: %w", kind, types.ErrInvalidCondition)
	}

	source := types.ParseProperty(doc.Source)
	conv, ok := types.ParseConversion(doc.Conversion)
	if !ok {
		return fmt.Errorf("unknown conversion %q", doc.Conversion)
	}

	var h conditions.Handle
	switch kind {
	case types.ConditionAnd, types.ConditionOr:
		h, err = tree.AddLogical(parent, kind)
	case types.ConditionRequired:
		h, err = tree.AddRequired(parent, source, conv)
	case types.ConditionCompare:
		op := types.OpEqual
		if doc.Operator != "" {
			if op, ok = types.ParseOperator(doc.Operator); !ok {
				return fmt.Errorf("operator %q: %w", doc.Operator, types.ErrInvalidOperator)
			}
		}
		if doc.Target != "" {
			targetConv, ok := types.ParseConversion(doc.TargetConversion)
			if !ok {
				return fmt.Errorf("unknown conversion %q", doc.TargetConversion)
			}
			h, err = tree.AddPropertyCompare(parent, source, conv, op, types.ParseProperty(doc.Target), targetConv)
		} else {
			h, err = tree.AddCompare(parent, source, conv, op, coerceTo(describe, source, doc.Value))
		}
	}
	if err != nil {
		return err
	}

	for i, child := range doc.Children {
		if err := build(tree, h, child, describe); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func parseKind(s string) (types.ConditionKind, error) {
	switch s {
	case "and", "":
		return types.ConditionAnd, nil
	case "or":
		return types.ConditionOr, nil
	case "required":
		return types.ConditionRequired, nil
	case "compare":
		return types.ConditionCompare, nil
	}
	return types.ConditionUndefined, fmt.Errorf("condition kind %q: %w", s, types.ErrInvalidCondition)
}

func coerceTo(describe Describer, source types.PropertyRef, raw any) types.Value {
	v := types.FromNative(raw)
	if describe == nil || !source.IsValid() {
		return v
	}
	info, err := describe.Describe(source)
	if err != nil || info.HasLookup() {
		return v
	}
	return dataset.Coerce(v, info.DataType)
}

// ConditionOf renders tree as a document, node ids included.
func ConditionOf(tree *conditions.Tree) Condition {
	return conditionOf(tree, tree.Root())
}

func conditionOf(tree *conditions.Tree, h conditions.Handle) Condition {
	n := tree.Node(h)
	c := Condition{ID: n.ID, Kind: n.Kind.String()}
	switch n.Kind {
	case types.ConditionRequired:
		c.Source = refString(n.Source)
		c.Conversion = n.SourceConversion.String()
	case types.ConditionCompare:
		c.Source = refString(n.Source)
		c.Conversion = n.SourceConversion.String()
		c.Operator = n.Operator.String()
		if n.IsPropertyCompare {
			c.Target = refString(n.TargetProperty)
			c.TargetConversion = n.TargetConversion.String()
		} else {
			c.Value = n.TargetValue.Native()
		}
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, conditionOf(tree, child))
	}
	return c
}

// refString renders a field or column in the notation ParseProperty reads.
func refString(ref types.PropertyRef) string {
	if !ref.IsValid() {
		return ""
	}
	return ref.String()
}

// MarshalCondition renders tree as YAML.
func MarshalCondition(tree *conditions.Tree) ([]byte, error) {
	data, err := yaml.Marshal(ConditionOf(tree))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal condition: %w", err)
	}
	return data, nil
}
