package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/solatis/filterkeeper/internal/types"
)

// ExprFilter is an External predicate evaluating a boolean expr-lang
// expression over the visible cells of a row, after the default pipeline
// accepted it. Columns are variables named by column id; unknown names are
// nil. Rows of datasets outside its scope go through the default pipeline
// only.
type ExprFilter struct {
	expression string
	datasets   map[string]bool
	program    *vm.Program
}

// NewExprFilter compiles expression for the given datasets. No datasets
// means every dataset.
func NewExprFilter(expression string, datasets ...string) (*ExprFilter, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter expression: %w", err)
	}
	x := &ExprFilter{expression: expression, program: program}
	if len(datasets) > 0 {
		x.datasets = make(map[string]bool, len(datasets))
		for _, ds := range datasets {
			x.datasets[ds] = true
		}
	}
	return x, nil
}

// String returns the expression.
func (x *ExprFilter) String() string { return x.expression }

func (x *ExprFilter) covers(dataset string) bool {
	return x.datasets == nil || x.datasets[dataset]
}

// AcceptsRow implements External.
func (x *ExprFilter) AcceptsRow(f *Engine, dataset string, row types.PropertyRef) (Decision, error) {
	d, err := f.DefaultAccepts(dataset, row)
	if err != nil || !d.Visible || !x.covers(dataset) {
		return d, err
	}

	env, pending, err := f.RowValues(row, types.RoleDisplay)
	if err != nil {
		return Decision{}, err
	}
	if len(pending) > 0 {
		f.RefilterWhenReady(dataset, pending)
		return Decision{Exclude: d.Exclude}, nil
	}

	out, err := vm.Run(x.program, env)
	if err != nil {
		return Decision{}, fmt.Errorf("filter expression on %v: %w", row, err)
	}
	ok, _ := out.(bool)
	d.Visible = ok
	return d, nil
}

// Compare implements External; the default order applies.
func (x *ExprFilter) Compare(*Engine, string, types.PropertyRef, types.PropertyRef) (types.Ordering, error) {
	return types.Equal, nil
}

// RowValues returns the cells of a row keyed by column id as plain Go
// values, with the dependencies of the cells still pending.
func (f *Engine) RowValues(row types.PropertyRef, role types.Role) (map[string]any, []types.Dependency, error) {
	info, err := f.resolver.Describe(row.DatasetRef())
	if err != nil {
		return nil, nil, err
	}
	env := make(map[string]any, len(info.Columns))
	var pending []types.Dependency
	for _, col := range info.Columns {
		res := f.resolver.Cell(row, col, role)
		switch {
		case res.Err != nil:
			return nil, nil, res.Err
		case res.IsPending():
			pending = types.MergeDependencies(pending, res.Pending...)
		default:
			env[col.ID] = res.Value.Native()
		}
	}
	return env, pending, nil
}
