// internal/rules/compile.go
package rules

import (
	"github.com/solatis/filterkeeper/internal/types"
)

/*
 * Easy filter compilation and validation.
 *
 * Compiles types.EasyFilter to CompiledFilter with validated limits and a
 * deduplicated candidate list.
 *
 * Compilation workflow:
 *   1. Column must be a dataset column reference
 *   2. Operator must be a declared, defined operator
 *   3. Candidate list must be non-empty and within MaxEasyFilterValues
 *   4. Duplicate candidates are dropped, first occurrence wins
 *
 * Validation happens when the rule is installed rather than for every row,
 * so a bad rule is reported to the caller configuring the filter.
 */

// CompiledFilter is a validated easy filter rule ready for matching.
type CompiledFilter struct {
	Column   types.PropertyRef
	Role     types.Role
	Operator types.CompareOperator
	Values   []types.Value
	Options  types.CompareOptions
}

// Dataset returns the id of the dataset the rule applies to.
func (c CompiledFilter) Dataset() string {
	return c.Column.Dataset
}

// Source returns the rule in its uncompiled form.
func (c CompiledFilter) Source() types.EasyFilter {
	return types.EasyFilter{
		Column:   c.Column,
		Values:   append([]types.Value(nil), c.Values...),
		Operator: c.Operator,
		Role:     c.Role,
		Options:  c.Options,
	}
}

// CompileEasyFilter validates and pre-processes an easy filter rule.
func CompileEasyFilter(f types.EasyFilter) (CompiledFilter, error) {
	if f.Column.Kind != types.PropertyColumn || !f.Column.IsValid() {
		return CompiledFilter{}, types.ErrNotColumn
	}
	if f.Operator == types.OpUndefined || !f.Operator.Known() {
		return CompiledFilter{}, types.ErrInvalidOperator
	}
	if len(f.Values) == 0 {
		return CompiledFilter{}, types.ErrEmptyValues
	}
	if len(f.Values) > types.MaxEasyFilterValues {
		return CompiledFilter{}, types.ErrTooManyValues
	}

	values := make([]types.Value, 0, len(f.Values))
	for _, v := range f.Values {
		dup := false
		for _, have := range values {
			if have.Same(v) {
				dup = true
				break
			}
		}
		if !dup {
			values = append(values, v)
		}
	}

	return CompiledFilter{
		Column:   f.Column,
		Role:     f.Role,
		Operator: f.Operator,
		Values:   values,
		Options:  f.Options,
	}, nil
}
